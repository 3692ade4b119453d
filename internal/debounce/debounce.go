// Package debounce delays a rapidly changing value until it has been stable
// for a fixed interval.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delivers the last pushed value to a callback once no newer value
// has arrived for the configured delay. Every Push stops the pending timer.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(T)
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// New creates a debouncer calling fire on its own goroutine
func New[T any](delay time.Duration, fire func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fire: fire}
}

// Push records v and restarts the delay
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A Push that raced with this timer firing wins.
		current := seq == d.seq && !d.stopped
		d.mu.Unlock()
		if current {
			d.fire(v)
		}
	})
}

// Flush cancels the pending timer and delivers v immediately
func (d *Debouncer[T]) Flush(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.mu.Unlock()
	d.fire(v)
}

// Stop cancels any pending delivery; later pushes are ignored
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Value is a debounced readable value: Set updates the raw value at once,
// Get returns the value that has been stable for the delay.
type Value[T any] struct {
	mu       sync.RWMutex
	settled  T
	onChange func(T)
	d        *Debouncer[T]
}

// NewValue creates a debounced value starting at initial. onChange, if not
// nil, is called after each settled update.
func NewValue[T any](initial T, delay time.Duration, onChange func(T)) *Value[T] {
	v := &Value[T]{settled: initial, onChange: onChange}
	v.d = New(delay, v.settle)
	return v
}

func (v *Value[T]) settle(x T) {
	v.mu.Lock()
	v.settled = x
	v.mu.Unlock()
	if v.onChange != nil {
		v.onChange(x)
	}
}

// Set pushes a new raw value
func (v *Value[T]) Set(x T) {
	v.d.Push(x)
}

// Get returns the settled value
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.settled
}

// Flush settles x immediately
func (v *Value[T]) Flush(x T) {
	v.d.Flush(x)
}

// Stop cancels pending updates
func (v *Value[T]) Stop() {
	v.d.Stop()
}
