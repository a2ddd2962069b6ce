package recovery

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/orchestrator"
	"github.com/cuemby/burrow/pkg/retry"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/sandbox"
	"github.com/cuemby/burrow/pkg/types"
)

// Hook watches the container runtime for sandbox deaths and forwards each
// one to the owning tenant's actor. It is advisory: the sync loop's
// self-heal covers any death the hook misses, so failures here are logged
// and dropped, never escalated.
type Hook struct {
	fleet   *orchestrator.Fleet
	runtime runtime.Runtime
	policy  retry.Policy
	logger  zerolog.Logger
}

// NewHook creates a crash-recovery hook over the fleet.
func NewHook(fleet *orchestrator.Fleet, rt runtime.Runtime, policy retry.Policy) *Hook {
	return &Hook{
		fleet:   fleet,
		runtime: rt,
		policy:  policy,
		logger:  log.WithComponent("recovery"),
	}
}

// Run consumes stop events until the context is cancelled or the runtime
// closes the stream.
func (h *Hook) Run(ctx context.Context) error {
	events, err := h.runtime.WatchStops(ctx)
	if err != nil {
		return err
	}
	h.logger.Info().Msg("crash recovery hook watching for sandbox stops")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				h.logger.Warn().Msg("runtime stop stream closed")
				return nil
			}
			h.handle(ctx, event)
		}
	}
}

// handle maps one container death back to its tenant and notifies the
// actor. The sandbox name alone carries the tenant identity, so no
// registry lookup is needed even when the control plane just restarted.
func (h *Hook) handle(ctx context.Context, event runtime.StopEvent) {
	tenantID, err := sandbox.TenantID(event.SandboxID)
	if err != nil {
		// Not one of ours, or a mangled name. Either way there is no
		// actor to notify.
		h.logger.Debug().Str("container", event.SandboxID).Msg("ignoring stop event for unmanaged container")
		return
	}

	logger := h.logger.With().Str("tenant_id", tenantID).Str("sandbox_id", event.SandboxID).Logger()
	logger.Info().Int("exit_code", event.ExitCode).Str("reason", event.Reason).Msg("sandbox stopped")

	err = retry.Do(ctx, h.policy,
		func(ctx context.Context) (*orchestrator.Instance, error) {
			return h.fleet.Instance(tenantID)
		},
		func(ctx context.Context, inst *orchestrator.Instance) error {
			return inst.HandleContainerStopped(ctx, types.StopReason{
				ExitCode: event.ExitCode,
				Reason:   event.Reason,
			})
		})
	if err != nil {
		logger.Error().Err(err).Msg("failed to record sandbox stop, self-heal will catch it")
	}
}
