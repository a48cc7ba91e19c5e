package search

import (
	"sync"
	"time"

	"melodeck/internal/clock"
)

// Debouncer runs the most recently triggered function once the delay passes
// without another trigger. Every trigger or cancel bumps a generation, and a
// timer only runs its function if its generation is still current, so a
// superseded timer that fires late is ignored.
type Debouncer struct {
	mu    sync.Mutex
	sched clock.Scheduler
	delay time.Duration
	timer clock.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer on the given scheduler
func NewDebouncer(sched clock.Scheduler, delay time.Duration) *Debouncer {
	if sched == nil {
		sched = clock.Real{}
	}
	return &Debouncer{sched: sched, delay: delay}
}

// Trigger replaces any pending function with f
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.gen++
		d.mu.Unlock()

		f()
	})
}

// Cancel drops the pending function and reports whether there was one
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := d.timer != nil
	d.stopLocked()
	d.gen++
	return pending
}

// Pending reports whether a function is waiting to run
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
