package bounds

import (
	"sync"
	"time"
)

// DefaultQuiescence is how long slider input must be stable before the
// pending value is committed to the query composer.
const DefaultQuiescence = time.Second

// Debouncer owns a single cancellable deferred action. A new Trigger
// cancels any pending one, so only the final value of a rapid input burst
// fires. Close cancels the pending action for good; it is safe to call more
// than once.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	closed bool
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultQuiescence
	}
	return &Debouncer{window: window}
}

// Trigger schedules fn after the quiescence window, replacing any pending
// action.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Close cancels and refuses further triggers. Must be called on teardown so
// no callback fires into a dead session.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
