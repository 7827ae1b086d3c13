// Package query derives backend request parameters and cache keys from
// filter state. Keys are value-stable: two states that serialize the same
// always yield the same key, so the cache and the stale-response guard can
// compare by string equality.
package query

import (
	"net/url"
	"strconv"

	"github.com/voltdesk/voltdesk/pkg/filter"
	"github.com/voltdesk/voltdesk/pkg/types"
)

const (
	contractsKeyPrefix = "contracts?"
	boundsKeyPrefix    = "bounds?"

	// KeyFamilyContracts and KeyFamilyBounds are the invalidation families
	// mutations target. Every composed key starts with one of them.
	KeyFamilyContracts = contractsKeyPrefix
	KeyFamilyBounds    = boundsKeyPrefix
)

// Query is a composed backend request: the parameters to send and the key
// identifying the cached response.
type Query struct {
	Params url.Values
	Key    string
}

// Primary composes the contract listing query. The effective price range is
// included only when the user has touched the price control; in auto-follow
// mode price is omitted so the backend returns the unfiltered-by-price set.
func Primary(s filter.State, effective *types.PriceBounds, pageSize int) Query {
	values := baseParams(s)
	if s.PriceTouched && effective != nil {
		values.Set("price_min", strconv.FormatFloat(effective.Min, 'f', -1, 64))
		values.Set("price_max", strconv.FormatFloat(effective.Max, 'f', -1, 64))
	}
	if s.SortBy != "" {
		values.Set("sort_by", s.SortBy)
		values.Set("sort_dir", s.SortDir)
	}
	values.Set("page", strconv.Itoa(s.Page))
	if pageSize <= 0 {
		pageSize = filter.DefaultPageSize
	}
	values.Set("page_size", strconv.Itoa(pageSize))
	return Query{Params: values, Key: contractsKeyPrefix + values.Encode()}
}

// Bounds composes the price-bounds query: the same filters minus the price
// dimension and pagination, against the dedicated bounds endpoint.
func Bounds(s filter.State) Query {
	values := baseParams(s)
	return Query{Params: values, Key: boundsKeyPrefix + values.Encode()}
}

// baseParams carries every non-price, non-pagination dimension. Multi-valued
// params use repeated keys; State.Normalize keeps the slices sorted so
// Encode output is canonical.
func baseParams(s filter.State) url.Values {
	values := url.Values{}
	for _, v := range s.EnergyTypes {
		values.Add("energy_type", v)
	}
	for _, v := range s.Locations {
		values.Add("location", v)
	}
	if s.Status != "" {
		values.Set("status", s.Status)
	}
	if s.QtyMin != nil {
		values.Set("qty_min", strconv.Itoa(*s.QtyMin))
	}
	if s.QtyMax != nil {
		values.Set("qty_max", strconv.Itoa(*s.QtyMax))
	}
	if s.DeliveryStart != nil {
		values.Set("start_from", s.DeliveryStart.String())
	}
	if s.DeliveryEnd != nil {
		values.Set("end_to", s.DeliveryEnd.String())
	}
	return values
}
