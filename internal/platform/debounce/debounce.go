// Package debounce provides a timer-based trailing-edge debouncer used to
// coalesce rapid repeated triggers into a single side effect.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period applied when none is configured.
const DefaultWindow = 300 * time.Millisecond

// Debouncer runs the most recently triggered function once no further
// trigger has arrived for a full window. Intermediate triggers inside the
// window are coalesced: only the latest function ever runs.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	pending func()
	stopped bool
}

// New constructs a Debouncer with the given window, falling back to
// DefaultWindow for non-positive values.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window}
}

// Trigger schedules fn to run after the quiet period, replacing any
// previously pending function and restarting the timer.
func (d *Debouncer) Trigger(fn func()) {
	if d == nil || fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs the pending function immediately, if any, cancelling the
// timer.
func (d *Debouncer) Flush() {
	if d == nil {
		return
	}
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels any pending run and rejects further triggers.
func (d *Debouncer) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
