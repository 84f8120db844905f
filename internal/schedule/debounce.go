// Package schedule provides cancellable delayed tasks used to debounce
// rapidly changing dashboard input.
package schedule

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled function once no new Schedule
// call has arrived for the configured delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiescence window.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Delay returns the quiescence window.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Schedule (re)starts the window. Any previously scheduled function that has
// not started yet is dropped. Calls after Stop are ignored.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A newer Schedule, Cancel or Stop happened after this timer was armed.
		if d.gen != gen || d.stopped {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		fn()
	})
}

// Cancel drops the pending function. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Stop cancels the pending function and disables future scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Value debounces a value: Set records the latest value and restarts the
// window; when the window elapses the value current at that moment is handed
// to the settle callback.
type Value[T any] struct {
	d      *Debouncer
	settle func(T)

	mu      sync.Mutex
	pending T
}

// NewValue creates a debounced value that calls settle on quiescence.
func NewValue[T any](delay time.Duration, settle func(T)) *Value[T] {
	return &Value[T]{d: NewDebouncer(delay), settle: settle}
}

// Set records v and restarts the window.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.pending = val
	v.mu.Unlock()

	v.d.Schedule(func() {
		v.mu.Lock()
		latest := v.pending
		v.mu.Unlock()
		v.settle(latest)
	})
}

// Cancel drops a pending settle.
func (v *Value[T]) Cancel() bool { return v.d.Cancel() }

// Stop cancels and disables the value.
func (v *Value[T]) Stop() { v.d.Stop() }

// Pending reports whether a settle is waiting.
func (v *Value[T]) Pending() bool { return v.d.Pending() }
