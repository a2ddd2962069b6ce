package scheduler

import (
	"sync"
	"time"
)

// Tick is one tenant's pending sync timer. Schedule replaces any pending
// tick, so at most one tick is ever outstanding per handle.
type Tick interface {
	// Schedule arms the tick to fire after delay, replacing any pending
	// tick.
	Schedule(delay time.Duration)

	// Cancel drops the pending tick, if any.
	Cancel()
}

// Scheduler creates tick handles. It is injected into the orchestrator so
// tests can drive ticks without wall-clock waits.
type Scheduler interface {
	// NewTick returns a handle that runs fire on its own goroutine when
	// the tick elapses.
	NewTick(fire func()) Tick
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

// NewTimerScheduler creates a wall-clock scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// NewTick returns a timer-backed tick handle.
func (s *TimerScheduler) NewTick(fire func()) Tick {
	return &timerTick{fire: fire}
}

type timerTick struct {
	mu    sync.Mutex
	timer *time.Timer
	fire  func()
}

func (t *timerTick) Schedule(delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(delay, t.fire)
}

func (t *timerTick) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
