package query

import (
	"strings"
	"testing"

	"github.com/voltdesk/voltdesk/pkg/filter"
	"github.com/voltdesk/voltdesk/pkg/types"
)

func stateFromQuery(raw string) filter.State {
	return filter.ParseQuery(raw)
}

func TestPrimary_AutoFollowOmitsPrice(t *testing.T) {
	s := stateFromQuery("energy_type=Solar")
	eff := types.PriceBounds{Min: 10, Max: 80}
	q := Primary(s, &eff, 20)
	if q.Params.Has("price_min") || q.Params.Has("price_max") {
		t.Errorf("Expected no price params in auto-follow but got %v", q.Params)
	}
	if got := q.Params.Get("page"); got != "1" {
		t.Errorf("Expected page 1 but got %q", got)
	}
	if got := q.Params.Get("page_size"); got != "20" {
		t.Errorf("Expected page_size 20 but got %q", got)
	}
	if got := q.Params.Get("status"); got != types.StatusAvailable {
		t.Errorf("Expected status %q but got %q", types.StatusAvailable, got)
	}
}

func TestPrimary_TouchedIncludesEffectivePrice(t *testing.T) {
	s := stateFromQuery("energy_type=Solar&price_min=20&price_max=60")
	eff := types.PriceBounds{Min: 25, Max: 60}
	q := Primary(s, &eff, 20)
	if got := q.Params.Get("price_min"); got != "25" {
		t.Errorf("Expected effective price_min 25 but got %q", got)
	}
	if got := q.Params.Get("price_max"); got != "60" {
		t.Errorf("Expected effective price_max 60 but got %q", got)
	}
}

func TestPrimary_KeyIsValueStable(t *testing.T) {
	a := stateFromQuery("energy_type=Wind&energy_type=Solar&qty_min=10")
	b := stateFromQuery("qty_min=10&energy_type=Solar&energy_type=Wind")
	qa := Primary(a, nil, 20)
	qb := Primary(b, nil, 20)
	if qa.Key != qb.Key {
		t.Errorf("Expected equal keys but got %q and %q", qa.Key, qb.Key)
	}
	if !strings.HasPrefix(qa.Key, KeyFamilyContracts) {
		t.Errorf("Expected key in the contracts family but got %q", qa.Key)
	}
}

func TestPrimary_PageChangesKey(t *testing.T) {
	s := stateFromQuery("energy_type=Solar")
	q1 := Primary(s, nil, 20)
	s.Page = 2
	q2 := Primary(s, nil, 20)
	if q1.Key == q2.Key {
		t.Error("Expected page change to change the key")
	}
}

func TestPrimary_SortParams(t *testing.T) {
	s := stateFromQuery("sort_by=price_per_mwh&sort_dir=asc")
	q := Primary(s, nil, 20)
	if got := q.Params.Get("sort_by"); got != "price_per_mwh" {
		t.Errorf("Expected sort_by price_per_mwh but got %q", got)
	}
	if got := q.Params.Get("sort_dir"); got != "asc" {
		t.Errorf("Expected sort_dir asc but got %q", got)
	}
}

func TestBounds_OmitsPriceAndPagination(t *testing.T) {
	s := stateFromQuery("energy_type=Solar&price_min=20&price_max=60&page=3&qty_min=10")
	q := Bounds(s)
	for _, key := range []string{"price_min", "price_max", "page", "page_size", "sort_by"} {
		if q.Params.Has(key) {
			t.Errorf("Expected bounds query without %q but got %v", key, q.Params)
		}
	}
	if got := q.Params.Get("qty_min"); got != "10" {
		t.Errorf("Expected qty_min carried over but got %q", got)
	}
	if !strings.HasPrefix(q.Key, KeyFamilyBounds) {
		t.Errorf("Expected key in the bounds family but got %q", q.Key)
	}
}

func TestBounds_KeyIgnoresPage(t *testing.T) {
	a := stateFromQuery("energy_type=Solar&page=1")
	b := stateFromQuery("energy_type=Solar&page=7")
	if Bounds(a).Key != Bounds(b).Key {
		t.Error("Expected bounds key to be page independent")
	}
}
