package filter

import (
	"net/url"
	"reflect"
	"strconv"

	"github.com/gorilla/schema"
	"github.com/voltdesk/voltdesk/pkg/types"
)

var urlDecoder = newURLDecoder()

func newURLDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(types.Date{}, func(s string) reflect.Value {
		date, err := types.ParseDate(s)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(date)
	})
	return d
}

// ParseQuery seeds a FilterState from a shareable query string. Decoding is
// lenient: unknown keys and malformed values are dropped, never surfaced,
// matching the free-text behavior of the form fields. Presence of an
// explicit price parameter latches touched mode so a resumed link keeps the
// user's selection instead of auto-following the bounds.
func ParseQuery(rawQuery string) State {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return defaultState()
	}
	var s State
	if err := urlDecoder.Decode(&s, values); err != nil {
		// schema.MultiError carries per-field conversion failures; fields
		// that failed stay unset, everything else is kept
		if _, partial := err.(schema.MultiError); !partial {
			return defaultState()
		}
	}
	if values.Has("price_min") || values.Has("price_max") {
		s.PriceTouched = true
	}
	s.Normalize()
	return s
}

func defaultState() State {
	var s State
	s.Normalize()
	return s
}

// EncodeQuery renders the canonical shareable query string for a state.
// Defaults are omitted: empty sets, untouched price, page 1, unset
// quantities and dates, default sort and status. The output is stable for
// equal states, which is what makes apply-if-different URL writes cheap.
func EncodeQuery(s State) string {
	values := url.Values{}
	for _, v := range s.EnergyTypes {
		values.Add("energy_type", v)
	}
	for _, v := range s.Locations {
		values.Add("location", v)
	}
	if s.PriceTouched {
		if s.PriceMin != nil {
			values.Set("price_min", formatFloat(*s.PriceMin))
		}
		if s.PriceMax != nil {
			values.Set("price_max", formatFloat(*s.PriceMax))
		}
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
	if s.SortBy != "" {
		values.Set("sort_by", s.SortBy)
		if s.SortDir != DefaultSortDir {
			values.Set("sort_dir", s.SortDir)
		}
	}
	if s.Status != "" && s.Status != DefaultStatus {
		values.Set("status", s.Status)
	}
	if s.Page > 1 {
		values.Set("page", strconv.Itoa(s.Page))
	}
	return values.Encode()
}

// History mirrors FilterState into a shareable address. Implementations are
// the browser-style in-memory history used by the terminal shell and test
// doubles. The URL is never a source of truth after initial load; inbound
// navigation is delivered explicitly by the shell.
type History interface {
	// Current returns the raw query currently displayed.
	Current() string
	// Replace swaps the displayed query in place, without a history entry.
	Replace(rawQuery string)
}

// MemoryHistory is the in-process History used by the terminal shell.
type MemoryHistory struct {
	raw string
}

func NewMemoryHistory(rawQuery string) *MemoryHistory {
	return &MemoryHistory{raw: rawQuery}
}

func (h *MemoryHistory) Current() string         { return h.raw }
func (h *MemoryHistory) Replace(rawQuery string) { h.raw = rawQuery }
