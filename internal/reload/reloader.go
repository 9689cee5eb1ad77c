// Package reload schedules collection reloads when a dependency changes,
// never running them closer together than a fixed floor.
package reload

import (
	"sync"
	"time"
)

// Timer is the subset of *time.Timer the reloader uses.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so schedules can be tested deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Reloader runs fn once per burst of dependency changes. The first change of a
// burst schedules fn delay later; changes arriving before it fires only update
// the dependency fn will receive.
type Reloader[D comparable] struct {
	fn    func(D)
	delay time.Duration
	clock Clock

	mu      sync.Mutex
	dep     D
	hasDep  bool
	pending Timer
	lastRun time.Time
	runs    int
	stopped bool
}

// New creates a reloader. A zero delay runs fn on every change.
func New[D comparable](delay time.Duration, fn func(D)) *Reloader[D] {
	return NewWithClock(delay, fn, SystemClock)
}

// NewWithClock is New with an explicit clock.
func NewWithClock[D comparable](delay time.Duration, fn func(D), clock Clock) *Reloader[D] {
	return &Reloader[D]{fn: fn, delay: delay, clock: clock}
}

// Start records the initial dependency and, if immediate, runs fn right away.
func (r *Reloader[D]) Start(dep D, immediate bool) {
	r.Reset(dep)
	if immediate {
		r.run()
	}
}

// Reset records dep as current without scheduling anything, for when the
// caller has just loaded the data itself.
func (r *Reloader[D]) Reset(dep D) {
	r.mu.Lock()
	r.dep = dep
	r.hasDep = true
	r.mu.Unlock()
}

// Notify reports the current dependency value. A value equal to the last one
// is ignored. The first change of a burst always waits the full delay, however
// long ago fn last ran; only Request measures from the last run.
func (r *Reloader[D]) Notify(dep D) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || (r.hasDep && dep == r.dep) {
		return
	}
	r.dep = dep
	r.hasDep = true

	if r.pending != nil {
		return
	}

	if r.delay <= 0 {
		go r.run()
		return
	}
	r.pending = r.clock.AfterFunc(r.delay, r.fire)
}

// Request asks for a run without a dependency change. It runs fn
// synchronously and returns true when at least delay has passed since the
// last run; otherwise it schedules fn for when that spacing is reached and
// returns false.
func (r *Reloader[D]) Request() bool {
	r.mu.Lock()
	if r.stopped || r.pending != nil {
		r.mu.Unlock()
		return false
	}
	var remaining time.Duration
	if !r.lastRun.IsZero() {
		remaining = r.delay - r.clock.Now().Sub(r.lastRun)
	}
	if remaining > 0 {
		r.pending = r.clock.AfterFunc(remaining, r.fire)
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	r.run()
	return true
}

// Force runs fn now with the current dependency, cancelling any pending run.
func (r *Reloader[D]) Force() {
	r.mu.Lock()
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.mu.Unlock()
	r.run()
}

// Pending reports whether a run is scheduled.
func (r *Reloader[D]) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// Runs reports how many times fn has been called.
func (r *Reloader[D]) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// Stop cancels any pending run and ignores further notifications.
func (r *Reloader[D]) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

func (r *Reloader[D]) fire() {
	r.mu.Lock()
	r.pending = nil
	stopped := r.stopped
	r.mu.Unlock()
	if !stopped {
		r.run()
	}
}

func (r *Reloader[D]) run() {
	r.mu.Lock()
	dep := r.dep
	r.lastRun = r.clock.Now()
	r.runs++
	r.mu.Unlock()

	r.fn(dep)
}
