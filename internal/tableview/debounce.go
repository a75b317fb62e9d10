package tableview

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls: only the last function handed to
// Debounce runs, once the delay has passed without a newer call.
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	delay   time.Duration
}

// NewDebouncer returns a debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Debounce schedules fn, replacing any pending call.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timer != t {
			d.mu.Unlock()
			return
		}
		run := d.pending
		d.timer, d.pending = nil, nil
		d.mu.Unlock()
		if run != nil {
			run()
		}
	})
	d.timer = t
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer, d.pending = nil, nil
}

// Flush runs the pending call now, on the caller's goroutine. It reports
// whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	run := d.pending
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer, d.pending = nil, nil
	d.mu.Unlock()

	if run == nil {
		return false
	}
	run()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
