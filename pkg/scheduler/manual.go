package scheduler

import (
	"sync"
	"time"
)

// ManualScheduler is a Scheduler for tests: ticks never fire on their own,
// and the test drives them with Fire. It records every scheduled delay so
// backoff behavior can be asserted directly.
type ManualScheduler struct {
	mu    sync.Mutex
	ticks []*ManualTick
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// NewTick returns a manually-driven tick handle.
func (s *ManualScheduler) NewTick(fire func()) Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	tick := &ManualTick{fire: fire}
	s.ticks = append(s.ticks, tick)
	return tick
}

// Ticks returns all handles created so far.
func (s *ManualScheduler) Ticks() []*ManualTick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ManualTick(nil), s.ticks...)
}

// ManualTick records its schedule history and fires only on demand.
type ManualTick struct {
	mu      sync.Mutex
	fire    func()
	pending bool
	delays  []time.Duration
}

// Schedule records the delay and marks the tick pending.
func (t *ManualTick) Schedule(delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = true
	t.delays = append(t.delays, delay)
}

// Cancel clears the pending flag.
func (t *ManualTick) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = false
}

// Pending reports whether a tick is armed.
func (t *ManualTick) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Delays returns every delay passed to Schedule, oldest first.
func (t *ManualTick) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

// LastDelay returns the most recent scheduled delay, or zero.
func (t *ManualTick) LastDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.delays) == 0 {
		return 0
	}
	return t.delays[len(t.delays)-1]
}

// Fire synchronously runs the tick body if one is pending.
func (t *ManualTick) Fire() {
	t.mu.Lock()
	if !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	fire := t.fire
	t.mu.Unlock()
	fire()
}
