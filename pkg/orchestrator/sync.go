package orchestrator

import (
	"context"
	"time"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
)

// syncTick is the scheduled health-check-and-backup pass. It runs on the
// tick's goroutine but takes the same mutex as every API operation, so it
// can never race a concurrent stop or destroy.
//
// The tick is two-phase because the two failure domains need different
// remedies: an unreachable container must eventually stop being reported
// as running (self-heal), while a reachable container with failing backups
// only needs retry pressure. Both failures share the backoff counter, but
// only health failures count toward self-heal.
func (i *Instance) syncTick() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		i.logger.Error().Err(err).Msg("sync tick could not load state")
		return
	}
	// The loop only runs while the instance is running; anything else is
	// a stale tick and is dropped without rescheduling.
	if i.state == nil || i.state.Status != types.StatusRunning || i.state.SandboxID == "" {
		return
	}

	ctx := context.Background()

	// Phase 1: health. A lightweight runtime query, never a wake-up.
	health, err := i.deps.Runtime.Health(ctx, i.state.SandboxID)
	if err != nil || !health.Healthy {
		i.handleUnhealthyTick(err, health.Detail)
		return
	}

	// Phase 2: backup sync under the lock.
	now := i.now()
	i.state.SyncInProgress = true
	i.state.SyncLockedAt = &now
	if err := i.persist(); err != nil {
		i.logger.Error().Err(err).Msg("failed to acquire sync lock")
		i.tick.Schedule(i.cfg.SyncInterval)
		return
	}

	defer func() {
		i.state.SyncInProgress = false
		i.state.SyncLockedAt = nil
		if err := i.persist(); err != nil {
			i.logger.Error().Err(err).Msg("failed to release sync lock")
		}
	}()

	found, err := i.deps.Runtime.FindGatewayProcess(ctx, i.state.SandboxID)
	if err != nil || !found {
		if err != nil {
			i.logger.Warn().Err(err).Msg("gateway probe failed, skipping backup")
		} else {
			i.logger.Debug().Msg("no gateway process, skipping backup")
		}
		metrics.SyncTicksTotal.WithLabelValues("skipped").Inc()
		i.tick.Schedule(i.cfg.SyncInterval)
		return
	}

	start := time.Now()
	result := i.deps.Objects.Sync(ctx, i.state.SandboxID)
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	if result.Success {
		syncedAt := result.LastSync
		if syncedAt.IsZero() {
			syncedAt = i.now()
		}
		i.state.LastSyncAt = &syncedAt
		i.state.SyncFailCount = 0
		metrics.SyncTicksTotal.WithLabelValues("synced").Inc()
		i.publish(events.EventBackupSynced, "backup synced")
		i.mirror(types.StatusRunning, registry.FieldLastSyncAt)
	} else {
		// Backup failures add backoff pressure but never self-heal:
		// the container itself is demonstrably alive.
		i.state.SyncFailCount++
		metrics.SyncTicksTotal.WithLabelValues("sync_failed").Inc()
		i.logger.Warn().Err(result.Err).Int("fail_count", i.state.SyncFailCount).Msg("backup sync failed")
		i.publish(events.EventBackupFailed, "backup sync failed")
	}

	if i.state.SyncFailCount > 0 {
		i.tick.Schedule(i.cfg.backoffFor(i.state.SyncFailCount))
	} else {
		i.tick.Schedule(i.cfg.SyncInterval)
	}
}

// handleUnhealthyTick records a failed health check and either backs off
// or, at the threshold, self-heals: the container is presumed dead and the
// instance stops claiming to run. Self-heal is the safety net for deaths
// the crash-recovery hook never reported.
func (i *Instance) handleUnhealthyTick(err error, detail string) {
	i.state.SyncFailCount++
	metrics.SyncTicksTotal.WithLabelValues("health_failed").Inc()
	i.logger.Warn().
		Err(err).
		Str("detail", detail).
		Int("fail_count", i.state.SyncFailCount).
		Msg("sandbox health check failed")

	if i.state.SyncFailCount >= i.cfg.SelfHealThreshold {
		now := i.now()
		i.state.Status = types.StatusStopped
		i.state.LastStoppedAt = &now
		if perr := i.persist(); perr != nil {
			i.logger.Error().Err(perr).Msg("failed to persist self-heal transition")
			return
		}
		i.tick.Cancel()
		i.mirror(types.StatusStopped, registry.FieldLastStoppedAt)
		metrics.SelfHealsTotal.Inc()
		i.logger.Warn().Msg("self-healed: sustained health failure, instance forced to stopped")
		i.publish(events.EventInstanceSelfHealed, "instance self-healed to stopped")
		return
	}

	if perr := i.persist(); perr != nil {
		i.logger.Error().Err(perr).Msg("failed to persist health fail count")
	}
	i.tick.Schedule(i.cfg.backoffFor(i.state.SyncFailCount))
}
