package filter

import (
	"testing"

	"github.com/voltdesk/voltdesk/pkg/types"
)

func TestParseQuery_SharedLink(t *testing.T) {
	s := ParseQuery("energy_type=Wind&energy_type=Solar&price_min=20&price_max=60&page=2")
	if len(s.EnergyTypes) != 2 || s.EnergyTypes[0] != "Solar" || s.EnergyTypes[1] != "Wind" {
		t.Errorf("Expected sorted [Solar Wind] but got %v", s.EnergyTypes)
	}
	if !s.PriceTouched {
		t.Error("Expected explicit price params to latch touched mode")
	}
	if s.PriceMin == nil || *s.PriceMin != 20 || s.PriceMax == nil || *s.PriceMax != 60 {
		t.Errorf("Expected price 20-60 but got %v/%v", s.PriceMin, s.PriceMax)
	}
	if s.Page != 2 {
		t.Errorf("Expected page 2 but got %d", s.Page)
	}
}

func TestParseQuery_LenientOnMalformedValues(t *testing.T) {
	s := ParseQuery("energy_type=Solar&qty_min=abc&start_from=notadate&page=2")
	if len(s.EnergyTypes) != 1 || s.EnergyTypes[0] != "Solar" {
		t.Errorf("Expected Solar to survive malformed siblings but got %v", s.EnergyTypes)
	}
	if s.QtyMin != nil {
		t.Errorf("Expected malformed qty_min dropped but got %v", *s.QtyMin)
	}
	if s.DeliveryStart != nil {
		t.Errorf("Expected malformed date dropped but got %v", s.DeliveryStart)
	}
	if s.Page != 2 {
		t.Errorf("Expected page 2 but got %d", s.Page)
	}
}

func TestParseQuery_IgnoresUnknownKeys(t *testing.T) {
	s := ParseQuery("utm_source=mail&energy_type=Hydro")
	if len(s.EnergyTypes) != 1 || s.EnergyTypes[0] != "Hydro" {
		t.Errorf("Expected [Hydro] but got %v", s.EnergyTypes)
	}
}

func TestParseQuery_NoPriceParamsStaysAutoFollow(t *testing.T) {
	s := ParseQuery("energy_type=Solar")
	if s.PriceTouched {
		t.Error("Expected auto-follow when the link carries no price")
	}
}

func TestEncodeQuery_OmitsDefaults(t *testing.T) {
	var s State
	s.Normalize()
	if got := EncodeQuery(s); got != "" {
		t.Errorf("Expected empty query for default state but got %q", got)
	}
}

func TestEncodeQuery_RoundTripIsCanonical(t *testing.T) {
	raw := "page=3&energy_type=Wind&energy_type=Solar&qty_min=10"
	once := EncodeQuery(ParseQuery(raw))
	twice := EncodeQuery(ParseQuery(once))
	if once != twice {
		t.Errorf("Expected stable canonical form but got %q then %q", once, twice)
	}
	want := "energy_type=Solar&energy_type=Wind&page=3&qty_min=10"
	if once != want {
		t.Errorf("Expected %q but got %q", want, once)
	}
}

func TestEncodeQuery_UntouchedPriceOmitted(t *testing.T) {
	min, max := 10.0, 80.0
	s := State{PriceMin: &min, PriceMax: &max}
	s.Normalize()
	if got := EncodeQuery(s); got != "" {
		t.Errorf("Expected auto-follow price omitted but got %q", got)
	}
	s.PriceTouched = true
	want := "price_max=80&price_min=10"
	if got := EncodeQuery(s); got != want {
		t.Errorf("Expected %q but got %q", want, got)
	}
}

func TestEncodeQuery_Dates(t *testing.T) {
	from := types.NewDate(2026, 1, 1)
	s := State{DeliveryStart: &from}
	s.Normalize()
	want := "start_from=2026-01-01"
	if got := EncodeQuery(s); got != want {
		t.Errorf("Expected %q but got %q", want, got)
	}
}

func TestMemoryHistory(t *testing.T) {
	h := NewMemoryHistory("a=1")
	if h.Current() != "a=1" {
		t.Errorf("Expected initial query but got %q", h.Current())
	}
	h.Replace("b=2")
	if h.Current() != "b=2" {
		t.Errorf("Expected replaced query but got %q", h.Current())
	}
}
