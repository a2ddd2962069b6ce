package runtime

import (
	"context"
)

// Health is the lightweight state report for a sandbox. Querying it must
// never wake or mutate the container.
type Health struct {
	Exists  bool
	Running bool
	Healthy bool
	Detail  string
}

// StopEvent is emitted when a sandbox container stops for any reason,
// including deaths the control plane did not initiate (crash, OOM, signal).
type StopEvent struct {
	SandboxID string
	ExitCode  int
	Reason    string // "exit", "oom", "signal"
}

// Runtime drives sandbox containers. Implementations are external to the
// orchestrator's state machine: every method may block on I/O and every
// error from here is infrastructure, not application logic.
type Runtime interface {
	// Start boots the sandbox with the given environment. Starting an
	// already-running sandbox is a no-op.
	Start(ctx context.Context, sandboxID string, env map[string]string) error

	// Stop gracefully stops the sandbox. Stopping an absent or stopped
	// sandbox is a no-op.
	Stop(ctx context.Context, sandboxID string) error

	// Destroy force-removes the sandbox container.
	Destroy(ctx context.Context, sandboxID string) error

	// Health reports the sandbox's lightweight state.
	Health(ctx context.Context, sandboxID string) (Health, error)

	// FindGatewayProcess reports whether the tenant gateway process is
	// alive inside the sandbox.
	FindGatewayProcess(ctx context.Context, sandboxID string) (bool, error)

	// WatchStops streams stop events for managed sandboxes until ctx is
	// cancelled. This is the crash-recovery signal source.
	WatchStops(ctx context.Context) (<-chan StopEvent, error)
}
