package filter

import (
	"slices"
	"strconv"
	"strings"

	"github.com/voltdesk/voltdesk/pkg/types"
)

const (
	DefaultSortDir  = "desc"
	DefaultStatus   = types.StatusAvailable
	DefaultPageSize = 20
)

// State holds every filter dimension of the contracts browse view. The zero
// value plus Normalize() is the default state (no filters, page 1).
//
// Schema tags drive URL decoding; slices map to repeated query keys.
type State struct {
	EnergyTypes   []string    `schema:"energy_type"`
	Locations     []string    `schema:"location"`
	PriceMin      *float64    `schema:"price_min"`
	PriceMax      *float64    `schema:"price_max"`
	QtyMin        *int        `schema:"qty_min"`
	QtyMax        *int        `schema:"qty_max"`
	DeliveryStart *types.Date `schema:"start_from"`
	DeliveryEnd   *types.Date `schema:"end_to"`
	SortBy        string      `schema:"sort_by"`
	SortDir       string      `schema:"sort_dir"`
	Status        string      `schema:"status"`
	Page          int         `schema:"page"`

	// PriceTouched latches once the user manipulates the price control (or
	// the initial URL carried explicit price params). While false the price
	// range auto-follows the server-computed bounds and is omitted from
	// queries. Reset only by Clear.
	PriceTouched bool `schema:"-"`
}

// Normalize fills defaults and repairs out-of-range values in place.
func (s *State) Normalize() {
	if s.Page < 1 {
		s.Page = 1
	}
	if s.SortDir != "asc" && s.SortDir != "desc" {
		s.SortDir = DefaultSortDir
	}
	if s.Status == "" {
		s.Status = DefaultStatus
	}
	slices.Sort(s.EnergyTypes)
	s.EnergyTypes = slices.Compact(s.EnergyTypes)
	slices.Sort(s.Locations)
	s.Locations = slices.Compact(s.Locations)
}

// Valid reports whether the quantity range is sane. An invalid state must
// not reach the fetch layer.
func (s State) Valid() bool {
	if s.QtyMin != nil && s.QtyMax != nil && *s.QtyMax < *s.QtyMin {
		return false
	}
	return true
}

// Signature is a canonical serialization of every dimension except Page.
// Two states with equal signatures compose identical (page-independent)
// queries; a signature change is what resets pagination.
func (s State) Signature() string {
	var b strings.Builder
	for _, v := range s.EnergyTypes {
		b.WriteString("et=" + v + ";")
	}
	for _, v := range s.Locations {
		b.WriteString("loc=" + v + ";")
	}
	if s.PriceTouched {
		b.WriteString("touched;")
		if s.PriceMin != nil {
			b.WriteString("pmin=" + formatFloat(*s.PriceMin) + ";")
		}
		if s.PriceMax != nil {
			b.WriteString("pmax=" + formatFloat(*s.PriceMax) + ";")
		}
	}
	if s.QtyMin != nil {
		b.WriteString("qmin=" + strconv.Itoa(*s.QtyMin) + ";")
	}
	if s.QtyMax != nil {
		b.WriteString("qmax=" + strconv.Itoa(*s.QtyMax) + ";")
	}
	if s.DeliveryStart != nil {
		b.WriteString("from=" + s.DeliveryStart.String() + ";")
	}
	if s.DeliveryEnd != nil {
		b.WriteString("to=" + s.DeliveryEnd.String() + ";")
	}
	if s.SortBy != "" {
		b.WriteString("sort=" + s.SortBy + ":" + s.SortDir + ";")
	}
	if s.Status != DefaultStatus {
		b.WriteString("status=" + s.Status + ";")
	}
	return b.String()
}

// Clone returns a deep copy so snapshots cannot alias live state.
func (s *State) Clone() State {
	c := *s
	c.EnergyTypes = slices.Clone(s.EnergyTypes)
	c.Locations = slices.Clone(s.Locations)
	c.PriceMin = cloneptr(s.PriceMin)
	c.PriceMax = cloneptr(s.PriceMax)
	c.QtyMin = cloneptr(s.QtyMin)
	c.QtyMax = cloneptr(s.QtyMax)
	c.DeliveryStart = cloneptr(s.DeliveryStart)
	c.DeliveryEnd = cloneptr(s.DeliveryEnd)
	return c
}

func cloneptr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Store owns the live FilterState for a browse session. Setting any
// dimension other than the page resets the page to 1 when the dimension
// signature actually changed. The store is not goroutine safe; the owning
// session serializes access.
type Store struct {
	state State

	// raw text behind the numeric quantity fields, kept so incremental
	// typing round-trips through the UI without being destroyed by parsing
	qtyMinRaw string
	qtyMaxRaw string
}

func NewStore(initial State) *Store {
	initial.Normalize()
	st := &Store{state: initial}
	if initial.QtyMin != nil {
		st.qtyMinRaw = strconv.Itoa(*initial.QtyMin)
	}
	if initial.QtyMax != nil {
		st.qtyMaxRaw = strconv.Itoa(*initial.QtyMax)
	}
	return st
}

func (st *Store) State() State { return st.state.Clone() }

func (st *Store) QtyMinInput() string { return st.qtyMinRaw }
func (st *Store) QtyMaxInput() string { return st.qtyMaxRaw }

// mutate applies fn and resets the page when the signature changed.
// It reports whether anything observable changed.
func (st *Store) mutate(fn func(*State)) bool {
	before := st.state.Signature()
	page := st.state.Page
	fn(&st.state)
	st.state.Normalize()
	after := st.state.Signature()
	if after != before {
		st.state.Page = 1
		return true
	}
	return st.state.Page != page
}

func (st *Store) SetEnergyTypes(v []string) bool {
	return st.mutate(func(s *State) { s.EnergyTypes = slices.Clone(v) })
}

func (st *Store) ToggleEnergyType(v string) bool {
	return st.mutate(func(s *State) {
		if i := slices.Index(s.EnergyTypes, v); i >= 0 {
			s.EnergyTypes = slices.Delete(slices.Clone(s.EnergyTypes), i, i+1)
		} else {
			s.EnergyTypes = append(slices.Clone(s.EnergyTypes), v)
		}
	})
}

func (st *Store) SetLocations(v []string) bool {
	return st.mutate(func(s *State) { s.Locations = slices.Clone(v) })
}

// SetPriceRange commits an explicit price selection and latches touched
// mode. Debouncing of slider input happens upstream; by the time a value
// lands here it is final.
func (st *Store) SetPriceRange(min, max float64) bool {
	return st.mutate(func(s *State) {
		s.PriceMin = &min
		s.PriceMax = &max
		s.PriceTouched = true
	})
}

// SetQtyMinInput accepts free text. Non-numeric or empty input parses to
// unset without surfacing an error, so the user can type incrementally.
func (st *Store) SetQtyMinInput(raw string) bool {
	st.qtyMinRaw = raw
	return st.mutate(func(s *State) { s.QtyMin = parseQty(raw) })
}

func (st *Store) SetQtyMaxInput(raw string) bool {
	st.qtyMaxRaw = raw
	return st.mutate(func(s *State) { s.QtyMax = parseQty(raw) })
}

func (st *Store) SetDeliveryStart(d *types.Date) bool {
	return st.mutate(func(s *State) { s.DeliveryStart = cloneptr(d) })
}

func (st *Store) SetDeliveryEnd(d *types.Date) bool {
	return st.mutate(func(s *State) { s.DeliveryEnd = cloneptr(d) })
}

func (st *Store) SetSort(by, dir string) bool {
	return st.mutate(func(s *State) {
		s.SortBy = by
		s.SortDir = dir
	})
}

func (st *Store) SetPage(page int) bool {
	if page < 1 {
		page = 1
	}
	if page == st.state.Page {
		return false
	}
	st.state.Page = page
	return true
}

// Clear resets every dimension to its default, including the touched latch.
func (st *Store) Clear() bool {
	st.qtyMinRaw = ""
	st.qtyMaxRaw = ""
	changed := st.mutate(func(s *State) {
		*s = State{}
	})
	st.state.Page = 1
	return changed
}

func parseQty(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
