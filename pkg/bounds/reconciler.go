// Package bounds reconciles the server-computed feasible price range with
// the user's price selection.
package bounds

import "github.com/voltdesk/voltdesk/pkg/types"

// Mode is the reconciler's state. The transition auto-follow -> touched
// happens the instant the user manipulates the price control and is one-way;
// only an explicit clear returns to auto-follow.
type Mode int

const (
	AutoFollow Mode = iota
	Touched
)

// Reconciler derives the effective price range. In auto-follow mode the
// effective range tracks the latest bounds verbatim; in touched mode it is
// the user's selection clamped into the bounds on every bounds update.
// Not goroutine safe; the owning session serializes access.
type Reconciler struct {
	mode       Mode
	bounds     types.PriceBounds
	haveBounds bool
	selMin     float64
	selMax     float64

	// fast-changing raw slider value, shown immediately while the debounced
	// commit is still pending
	inputMin float64
	inputMax float64
}

// New starts in auto-follow with the default bounds displayed until the
// first real bounds arrive.
func New() *Reconciler {
	r := &Reconciler{bounds: types.DefaultPriceBounds}
	r.inputMin, r.inputMax = r.bounds.Min, r.bounds.Max
	return r
}

// Resume starts in touched mode from a selection carried in the initial URL.
// A nil endpoint falls back to the matching default bound.
func Resume(min, max *float64) *Reconciler {
	r := New()
	selMin, selMax := r.bounds.Min, r.bounds.Max
	if min != nil {
		selMin = *min
	}
	if max != nil {
		selMax = *max
	}
	if selMin > selMax {
		selMin, selMax = selMax, selMin
	}
	r.mode = Touched
	r.selMin, r.selMax = selMin, selMax
	r.inputMin, r.inputMax = selMin, selMax
	return r
}

func (r *Reconciler) Mode() Mode { return r.mode }

func (r *Reconciler) Bounds() types.PriceBounds { return r.bounds }

// HaveBounds reports whether real server bounds have arrived; the price
// control stays disabled until then.
func (r *Reconciler) HaveBounds() bool { return r.haveBounds }

// ApplyBounds installs a new feasible range. Invalid bounds (or the
// null-bounds fallback) are replaced by the defaults. In touched mode the
// selection is clamped, never inverted; in auto-follow everything snaps to
// the new bounds.
func (r *Reconciler) ApplyBounds(b types.PriceBounds) {
	if !b.Valid() {
		b = types.DefaultPriceBounds
	}
	r.bounds = b
	r.haveBounds = true
	if r.mode == Touched {
		r.selMin, r.selMax = b.Clamp(r.selMin, r.selMax)
	}
	eff := r.Effective()
	r.inputMin, r.inputMax = eff.Min, eff.Max
}

// Touch commits a user selection and latches touched mode.
func (r *Reconciler) Touch(min, max float64) {
	if min > max {
		min, max = max, min
	}
	r.mode = Touched
	r.selMin, r.selMax = r.bounds.Clamp(min, max)
	r.inputMin, r.inputMax = r.selMin, r.selMax
}

// SetInput records raw slider movement for immediate display. It does not
// change the effective range; the debounced commit calls Touch.
func (r *Reconciler) SetInput(min, max float64) {
	if min > max {
		min, max = max, min
	}
	r.inputMin, r.inputMax = min, max
}

func (r *Reconciler) Input() (float64, float64) { return r.inputMin, r.inputMax }

// Effective is the range that feeds the query composer.
func (r *Reconciler) Effective() types.PriceBounds {
	if r.mode == AutoFollow {
		return r.bounds
	}
	return types.PriceBounds{Min: r.selMin, Max: r.selMax}
}

// Reset returns to auto-follow; used by the clear-filters action only.
func (r *Reconciler) Reset() {
	r.mode = AutoFollow
	r.selMin, r.selMax = 0, 0
	r.inputMin, r.inputMax = r.bounds.Min, r.bounds.Max
}
