package trigger

import (
	"sync"
	"time"

	"cronjob-trigger/internal/clock"
)

// Debouncer is a single-slot cancellable deferred task. Every Trigger
// replaces the pending call with a new one scheduled interval from now, so
// fn runs once after the last Trigger of a burst.
type Debouncer struct {
	clock    clock.Clock
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	pending clock.Timer
	gen     uint64
}

// NewDebouncer creates a debouncer that calls fn once interval has passed
// without a further Trigger.
func NewDebouncer(c clock.Clock, interval time.Duration, fn func()) *Debouncer {
	if c == nil {
		c = clock.Real{}
	}
	return &Debouncer{
		clock:    c,
		interval: interval,
		fn:       fn,
	}
}

// Trigger cancels the pending call, if any, and schedules a new one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
	}

	// A timer that already fired but lost the race for the lock must not
	// run fn; the generation check rejects it.
	d.gen++
	gen := d.gen
	d.pending = d.clock.AfterFunc(d.interval, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	d.fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.gen++
}
