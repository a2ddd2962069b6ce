package orchestrator

import (
	"time"
)

// Config holds the orchestrator's thresholds. Everything is injected so
// tests can shrink timers; DefaultConfig carries the production values.
type Config struct {
	// FirstSyncDelay is the delay before the first sync tick after start.
	// Long enough for first-boot setup work inside the sandbox.
	FirstSyncDelay time.Duration

	// SyncInterval is the normal tick interval while the instance is
	// healthy and backups are succeeding.
	SyncInterval time.Duration

	// BackoffBase and BackoffCap bound the tick backoff:
	// min(BackoffCap, BackoffBase * 2^syncFailCount).
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// SelfHealThreshold is the number of consecutive failed health checks
	// after which a running instance is force-stopped.
	SelfHealThreshold int

	// LockStaleAfter is how old a sync lock may be before it is presumed
	// abandoned and cleared on load.
	LockStaleAfter time.Duration

	// Bucket and MountPath describe the backing object storage mount.
	Bucket    string
	MountPath string

	// MirrorTimeout bounds each fire-and-forget registry mirror write.
	MirrorTimeout time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		FirstSyncDelay:    10 * time.Minute,
		SyncInterval:      5 * time.Minute,
		BackoffBase:       5 * time.Minute,
		BackoffCap:        30 * time.Minute,
		SelfHealThreshold: 5,
		LockStaleAfter:    10 * time.Minute,
		Bucket:            "burrow-tenant-data",
		MountPath:         "/data",
		MirrorTimeout:     10 * time.Second,
	}
}

// backoffFor computes the tick delay for a given consecutive-failure count.
func (c Config) backoffFor(failCount int) time.Duration {
	d := c.BackoffBase
	for i := 0; i < failCount; i++ {
		d *= 2
		if d >= c.BackoffCap {
			return c.BackoffCap
		}
	}
	if d > c.BackoffCap {
		return c.BackoffCap
	}
	return d
}
