package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/objectstore"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/sandbox"
	"github.com/cuemby/burrow/pkg/scheduler"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
)

// Deps are the collaborators every instance actor talks to.
type Deps struct {
	Store     storage.Store
	Registry  registry.Registry
	Runtime   runtime.Runtime
	Objects   objectstore.ObjectStore
	Env       *config.Layering
	Events    *events.Broker
	Scheduler scheduler.Scheduler
}

// Instance is the per-tenant actor. It owns the tenant's authoritative
// operational state and serializes every operation: API calls, crash
// notifications and sync ticks all take the same mutex, so one tenant's
// state is never mutated concurrently.
type Instance struct {
	tenantID string
	cfg      Config
	deps     Deps
	logger   zerolog.Logger

	mu     sync.Mutex
	loaded bool
	state  *types.Instance // nil = no instance persisted
	tick   scheduler.Tick

	// now is split out for tests that need a fixed clock.
	now func() time.Time
}

func newInstance(tenantID string, cfg Config, deps Deps) *Instance {
	i := &Instance{
		tenantID: tenantID,
		cfg:      cfg,
		deps:     deps,
		logger:   log.WithComponent("orchestrator").With().Str("tenant_id", tenantID).Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	i.tick = deps.Scheduler.NewTick(i.syncTick)
	return i
}

// load is the lazy-load gate called at the top of every operation while
// holding the mutex. After the first call the state is cached for the life
// of the actor. Stale sync locks are cleared here, before any sync logic
// can observe them.
func (i *Instance) load() error {
	if i.loaded {
		return nil
	}

	state, err := i.deps.Store.Load(i.tenantID)
	if err != nil {
		return types.Transient(fmt.Errorf("failed to load instance state: %w", err))
	}

	if state != nil && state.SyncInProgress && state.SyncLockedAt != nil {
		if i.now().Sub(*state.SyncLockedAt) > i.cfg.LockStaleAfter {
			i.logger.Warn().
				Time("locked_at", *state.SyncLockedAt).
				Msg("clearing stale sync lock from a dead tick")
			state.SyncInProgress = false
			state.SyncLockedAt = nil
			if err := i.deps.Store.Save(state); err != nil {
				return types.Transient(fmt.Errorf("failed to clear stale sync lock: %w", err))
			}
		}
	}

	i.state = state
	i.loaded = true
	return nil
}

func (i *Instance) persist() error {
	if err := i.deps.Store.Save(i.state); err != nil {
		return types.Transient(fmt.Errorf("failed to persist instance state: %w", err))
	}
	return nil
}

// Provision creates the tenant's instance and returns its sandbox id.
// The registry insert is the authority for the provisioning race: it must
// succeed before any local state exists, and a conflict surfaces as
// ErrAlreadyProvisioned without touching the stored config.
func (i *Instance) Provision(ctx context.Context, cfg *types.SandboxConfig) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		return "", err
	}
	if i.state != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("provision", "conflict").Inc()
		return "", types.ErrAlreadyProvisioned
	}

	sandboxID, err := sandbox.Name(i.tenantID)
	if err != nil {
		return "", err
	}

	// Registry first: if this write fails the whole operation fails and
	// no local state is created.
	if err := i.deps.Registry.InsertProvisioned(ctx, i.tenantID, sandboxID); err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("provision", "error").Inc()
		return "", err
	}

	now := i.now()
	i.state = &types.Instance{
		TenantID:      i.tenantID,
		SandboxID:     sandboxID,
		Status:        types.StatusProvisioned,
		Config:        cfg.Clone(),
		ProvisionedAt: &now,
	}
	if err := i.persist(); err != nil {
		// The registry row exists but local state does not; existence
		// authority stays with the registry, so re-provisioning will
		// keep failing until the operator destroys the row.
		i.state = nil
		metrics.LifecycleOpsTotal.WithLabelValues("provision", "error").Inc()
		return "", err
	}

	i.logger.Info().Str("sandbox_id", sandboxID).Msg("instance provisioned")
	metrics.LifecycleOpsTotal.WithLabelValues("provision", "ok").Inc()
	i.publish(events.EventInstanceProvisioned, "instance provisioned")
	return sandboxID, nil
}

// Start boots the tenant's sandbox and schedules the first sync tick.
// Starting a running instance is a no-op that changes nothing.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		return err
	}
	if i.state == nil || i.state.SandboxID == "" {
		return types.ErrNotProvisioned
	}
	if i.state.Status == types.StatusRunning {
		return nil
	}

	// Mounting the backing bucket is best-effort: the sandbox can boot
	// without it and the sync loop will keep trying to back it up.
	if err := i.deps.Objects.Mount(ctx, i.cfg.Bucket, i.cfg.MountPath, i.state.SandboxID); err != nil {
		i.logger.Warn().Err(err).Msg("failed to mount backing storage, starting anyway")
	}

	env, err := i.deps.Env.BuildEnv(i.tenantID, i.state.SandboxID, i.state.Config)
	if err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("start", "error").Inc()
		return fmt.Errorf("failed to build sandbox environment: %w", err)
	}

	if err := i.deps.Runtime.Start(ctx, i.state.SandboxID, env); err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("start", "error").Inc()
		return err
	}

	now := i.now()
	i.state.Status = types.StatusRunning
	i.state.LastStartedAt = &now
	i.state.SyncFailCount = 0
	if err := i.persist(); err != nil {
		return err
	}

	i.tick.Schedule(i.cfg.FirstSyncDelay)
	i.mirror(types.StatusRunning, registry.FieldLastStartedAt)

	i.logger.Info().Msg("instance started")
	metrics.LifecycleOpsTotal.WithLabelValues("start", "ok").Inc()
	i.publish(events.EventInstanceStarted, "instance started")
	return nil
}

// Stop halts the tenant's sandbox. Stopping an instance that is not
// running is a no-op.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		return err
	}
	if i.state == nil {
		return types.ErrNotProvisioned
	}
	if i.state.Status == types.StatusStopped || i.state.Status == types.StatusProvisioned {
		return nil
	}

	// The container stop is best-effort: the authoritative transition
	// below commits regardless, and self-heal covers a zombie container.
	if err := i.deps.Runtime.Stop(ctx, i.state.SandboxID); err != nil {
		i.logger.Warn().Err(err).Msg("failed to stop sandbox container")
	}

	now := i.now()
	i.state.Status = types.StatusStopped
	i.state.LastStoppedAt = &now
	if err := i.persist(); err != nil {
		return err
	}

	i.tick.Cancel()
	i.mirror(types.StatusStopped, registry.FieldLastStoppedAt)

	i.logger.Info().Msg("instance stopped")
	metrics.LifecycleOpsTotal.WithLabelValues("stop", "ok").Inc()
	i.publish(events.EventInstanceStopped, "instance stopped")
	return nil
}

// Destroy tears the instance down. The registry soft-delete is the
// authority: it must succeed and affect exactly one row before any
// teardown happens. Local state is always cleared afterwards, even when
// container or data teardown fails.
func (i *Instance) Destroy(ctx context.Context, deleteData bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		return err
	}

	rows, err := i.deps.Registry.MarkDestroyed(ctx, i.tenantID)
	if err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("destroy", "error").Inc()
		return err
	}
	if rows == 0 {
		metrics.LifecycleOpsTotal.WithLabelValues("destroy", "conflict").Inc()
		return types.ErrNoActiveInstance
	}

	// Sandbox names are deterministic, so teardown works even if local
	// state was lost.
	sandboxID := ""
	if i.state != nil {
		sandboxID = i.state.SandboxID
	}
	if sandboxID == "" {
		if derived, err := sandbox.Name(i.tenantID); err == nil {
			sandboxID = derived
		}
	}

	if sandboxID != "" {
		if err := i.deps.Runtime.Destroy(ctx, sandboxID); err != nil {
			i.logger.Warn().Err(err).Msg("failed to remove sandbox container during destroy")
		}
		if deleteData {
			if err := i.deps.Objects.Purge(ctx, sandboxID); err != nil {
				i.logger.Warn().Err(err).Msg("failed to purge sandbox data during destroy")
			}
		}
	}

	i.tick.Cancel()
	i.state = nil
	if err := i.deps.Store.Delete(i.tenantID); err != nil {
		return types.Transient(fmt.Errorf("failed to clear instance state: %w", err))
	}

	i.logger.Info().Bool("delete_data", deleteData).Msg("instance destroyed")
	metrics.LifecycleOpsTotal.WithLabelValues("destroy", "ok").Inc()
	i.publish(events.EventInstanceDestroyed, "instance destroyed")
	return nil
}

// HandleContainerStopped is the crash-recovery transition, invoked from
// the runtime adapter rather than user-facing routes. It idempotently
// forces the instance to stopped; duplicate notifications are harmless.
func (i *Instance) HandleContainerStopped(ctx context.Context, reason types.StopReason) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		return err
	}
	metrics.CrashNotificationsTotal.Inc()

	if i.state == nil || i.state.Status == types.StatusStopped {
		return nil
	}

	now := i.now()
	i.state.Status = types.StatusStopped
	i.state.LastStoppedAt = &now
	if err := i.persist(); err != nil {
		return err
	}

	i.tick.Cancel()
	i.mirror(types.StatusStopped, registry.FieldLastStoppedAt)

	i.logger.Warn().
		Int("exit_code", reason.ExitCode).
		Str("reason", reason.Reason).
		Msg("container stopped outside control plane, forcing stopped status")
	i.publish(events.EventInstanceCrashed, fmt.Sprintf("container stopped: %s (exit %d)", reason.Reason, reason.ExitCode))
	return nil
}

// Status returns a snapshot of the cached state, or nil when no instance
// exists. It never touches the container runtime.
func (i *Instance) Status(ctx context.Context) (*types.Instance, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		return nil, err
	}
	if i.state == nil {
		return nil, nil
	}
	snapshot := *i.state
	snapshot.Config = i.state.Config.Clone()
	return &snapshot, nil
}

// Config returns the tenant-supplied config, or nil when no instance
// exists.
func (i *Instance) Config(ctx context.Context) (*types.SandboxConfig, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.load(); err != nil {
		return nil, err
	}
	if i.state == nil {
		return nil, nil
	}
	return i.state.Config.Clone(), nil
}

// mirror dispatches a fire-and-forget status write to the registry.
// It must never block or fail the calling operation.
func (i *Instance) mirror(status types.Status, timestampField string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), i.cfg.MirrorTimeout)
		defer cancel()
		if err := i.deps.Registry.MirrorStatus(ctx, i.tenantID, status, timestampField); err != nil {
			metrics.MirrorWritesTotal.WithLabelValues("error").Inc()
			i.logger.Warn().Err(err).Str("status", string(status)).Msg("registry mirror write failed")
			return
		}
		metrics.MirrorWritesTotal.WithLabelValues("ok").Inc()
	}()
}

func (i *Instance) publish(eventType events.EventType, message string) {
	if i.deps.Events == nil {
		return
	}
	i.deps.Events.Publish(&events.Event{
		Type:     eventType,
		TenantID: i.tenantID,
		Message:  message,
	})
}
