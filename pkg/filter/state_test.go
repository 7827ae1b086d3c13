package filter

import (
	"testing"

	"github.com/voltdesk/voltdesk/pkg/types"
)

func TestStore_Defaults(t *testing.T) {
	st := NewStore(State{})
	s := st.State()
	if s.Page != 1 {
		t.Errorf("Expected page 1 but got %d", s.Page)
	}
	if s.SortDir != DefaultSortDir {
		t.Errorf("Expected sort dir %q but got %q", DefaultSortDir, s.SortDir)
	}
	if s.Status != types.StatusAvailable {
		t.Errorf("Expected status %q but got %q", types.StatusAvailable, s.Status)
	}
}

func TestStore_FilterChangeResetsPage(t *testing.T) {
	st := NewStore(State{})
	if !st.SetPage(3) {
		t.Fatal("Expected page change to report a change")
	}
	if !st.ToggleEnergyType("Solar") {
		t.Fatal("Expected toggle to report a change")
	}
	if got := st.State().Page; got != 1 {
		t.Errorf("Expected page reset to 1 but got %d", got)
	}
}

func TestStore_SamePageIsNoChange(t *testing.T) {
	st := NewStore(State{})
	st.SetPage(2)
	if st.SetPage(2) {
		t.Error("Expected setting the same page to report no change")
	}
}

func TestStore_PageOnlyChangeKeepsSignature(t *testing.T) {
	st := NewStore(State{})
	st.ToggleEnergyType("Wind")
	before := st.State().Signature()
	st.SetPage(4)
	after := st.State().Signature()
	if before != after {
		t.Errorf("Expected identical signatures but got %q and %q", before, after)
	}
	if got := st.State().Page; got != 4 {
		t.Errorf("Expected page 4 but got %d", got)
	}
}

func TestStore_ToggleEnergyTypeTwice(t *testing.T) {
	st := NewStore(State{})
	st.ToggleEnergyType("Solar")
	st.ToggleEnergyType("Wind")
	st.ToggleEnergyType("Solar")
	s := st.State()
	if len(s.EnergyTypes) != 1 || s.EnergyTypes[0] != "Wind" {
		t.Errorf("Expected [Wind] but got %v", s.EnergyTypes)
	}
}

func TestStore_QtyInputIsLenient(t *testing.T) {
	st := NewStore(State{})
	if st.SetQtyMinInput("abc") {
		t.Error("Expected unparseable input to report no change")
	}
	if st.State().QtyMin != nil {
		t.Errorf("Expected unset qty min but got %v", *st.State().QtyMin)
	}
	if st.QtyMinInput() != "abc" {
		t.Errorf("Expected raw input to round-trip but got %q", st.QtyMinInput())
	}

	if !st.SetQtyMinInput("50") {
		t.Error("Expected numeric input to report a change")
	}
	if got := st.State().QtyMin; got == nil || *got != 50 {
		t.Errorf("Expected qty min 50 but got %v", got)
	}

	// negative quantities parse to unset
	st.SetQtyMaxInput("-3")
	if st.State().QtyMax != nil {
		t.Errorf("Expected unset qty max but got %v", *st.State().QtyMax)
	}
}

func TestState_InvalidQtyRange(t *testing.T) {
	st := NewStore(State{})
	st.SetQtyMinInput("100")
	st.SetQtyMaxInput("50")
	if st.State().Valid() {
		t.Error("Expected max below min to be invalid")
	}
	st.SetQtyMaxInput("150")
	if !st.State().Valid() {
		t.Error("Expected max above min to be valid")
	}
}

func TestStore_PriceRangeLatchesTouched(t *testing.T) {
	st := NewStore(State{})
	if st.State().PriceTouched {
		t.Fatal("Expected untouched initial state")
	}
	st.SetPriceRange(20, 60)
	s := st.State()
	if !s.PriceTouched {
		t.Error("Expected touched after setting a price range")
	}
	if *s.PriceMin != 20 || *s.PriceMax != 60 {
		t.Errorf("Expected range 20-60 but got %v-%v", *s.PriceMin, *s.PriceMax)
	}
}

func TestStore_ClearResetsEverything(t *testing.T) {
	st := NewStore(State{})
	st.ToggleEnergyType("Solar")
	st.SetLocations([]string{"DE", "FR"})
	st.SetPriceRange(20, 60)
	st.SetQtyMinInput("10")
	st.SetPage(5)

	st.Clear()
	s := st.State()
	if len(s.EnergyTypes) != 0 || len(s.Locations) != 0 {
		t.Errorf("Expected empty sets but got %v / %v", s.EnergyTypes, s.Locations)
	}
	if s.PriceTouched || s.PriceMin != nil {
		t.Error("Expected price back to auto-follow after clear")
	}
	if s.QtyMin != nil || st.QtyMinInput() != "" {
		t.Error("Expected quantity inputs cleared")
	}
	if s.Page != 1 {
		t.Errorf("Expected page 1 but got %d", s.Page)
	}
}

func TestState_SignatureIncludesPriceOnlyWhenTouched(t *testing.T) {
	min, max := 20.0, 60.0
	untouched := State{PriceMin: &min, PriceMax: &max}
	untouched.Normalize()
	touched := untouched.Clone()
	touched.PriceTouched = true
	if untouched.Signature() == touched.Signature() {
		t.Error("Expected touched and untouched signatures to differ")
	}

	bare := State{}
	bare.Normalize()
	if bare.Signature() != untouched.Signature() {
		t.Errorf("Expected untouched price to be ignored, got %q vs %q",
			bare.Signature(), untouched.Signature())
	}
}

func TestState_CloneDoesNotAlias(t *testing.T) {
	min := 20.0
	s := State{EnergyTypes: []string{"Solar"}, PriceMin: &min}
	c := s.Clone()
	c.EnergyTypes[0] = "Wind"
	*c.PriceMin = 99
	if s.EnergyTypes[0] != "Solar" || *s.PriceMin != 20 {
		t.Error("Expected clone to be independent of the original")
	}
}
