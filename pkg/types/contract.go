package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Energy types known to the marketplace. The backend validates against the
// same vocabulary; the client only uses these for pickers.
var EnergyTypes = []string{"Solar", "Wind", "Natural Gas", "Nuclear", "Coal", "Hydro"}

const (
	StatusAvailable = "Available"
	StatusSold      = "Sold"
)

const DateLayout = "2006-01-02"

// Date is a calendar day encoded as YYYY-MM-DD on the wire.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid date %s", string(b))
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Contract struct {
	Id            int             `json:"id"`
	EnergyType    string          `json:"energy_type"`
	QuantityMwh   int             `json:"quantity_mwh"`
	PricePerMwh   decimal.Decimal `json:"price_per_mwh"`
	DeliveryStart Date            `json:"delivery_start"`
	DeliveryEnd   Date            `json:"delivery_end"`
	Location      string          `json:"location"`
	Status        string          `json:"status"`
}

// ContractList is one page of contracts. It is replaced wholesale on every
// successful fetch, never patched.
type ContractList struct {
	Items    []Contract `json:"items"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Total    int        `json:"total"`
}

// PageCount derives the number of pages from the server-reported total,
// never less than one.
func (l *ContractList) PageCount() int {
	if l == nil || l.PageSize <= 0 || l.Total <= 0 {
		return 1
	}
	n := (l.Total + l.PageSize - 1) / l.PageSize
	if n < 1 {
		return 1
	}
	return n
}

// PriceBounds is the feasible price range for the current non-price filters.
type PriceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultPriceBounds is used when no contracts match the non-price filters
// and the server reports null bounds.
var DefaultPriceBounds = PriceBounds{Min: 0, Max: 100}

func (b PriceBounds) Valid() bool {
	return b.Min <= b.Max
}

// Clamp restricts r into the bounds without inverting it.
func (b PriceBounds) Clamp(min, max float64) (float64, float64) {
	if min < b.Min {
		min = b.Min
	}
	if max > b.Max {
		max = b.Max
	}
	if min > max {
		min = b.Min
		max = b.Max
	}
	return min, max
}
