// Package debounce provides a replaceable one-shot timer.
package debounce

import (
	"sync"
	"time"
)

// Timer holds at most one pending callback. Arming it again cancels the
// pending callback and restarts the wait, so a burst of triggers runs only
// the last one.
type Timer struct {
	mu    sync.Mutex
	wait  time.Duration
	timer *time.Timer
	fn    func()
	gen   uint64
}

// New returns a Timer that waits d before firing.
func New(d time.Duration) *Timer {
	return &Timer{wait: d}
}

// Arm schedules fn, replacing anything pending.
func (t *Timer) Arm(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.fn = fn
	t.timer = time.AfterFunc(t.wait, func() { t.fire(gen) })
}

// Cancel drops the pending callback. It reports whether one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.fn != nil
	t.stopLocked()
	t.gen++
	return pending
}

// Flush runs the pending callback now, on the caller's goroutine.
func (t *Timer) Flush() {
	t.mu.Lock()
	fn := t.fn
	t.stopLocked()
	t.gen++
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Pending reports whether a callback is waiting to fire.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fn != nil
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	// A timer that fired while being replaced must not run.
	if gen != t.gen || t.fn == nil {
		t.mu.Unlock()
		return
	}
	fn := t.fn
	t.fn = nil
	t.timer = nil
	t.mu.Unlock()

	fn()
}

func (t *Timer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.fn = nil
}
