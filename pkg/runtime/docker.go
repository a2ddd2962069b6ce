package runtime

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
)

const (
	// LabelManaged marks containers Burrow owns; the stop watcher only
	// reports events for labelled containers.
	LabelManaged = "burrow-managed"

	stopTimeoutSeconds = 10
)

// DockerConfig holds settings for the Docker runtime.
type DockerConfig struct {
	// Image is the sandbox image booted for every tenant.
	Image string

	// GatewayProcess is the process name probed by FindGatewayProcess.
	GatewayProcess string

	// Memory / CPU limits applied to every sandbox.
	MemoryBytes int64
	NanoCPUs    int64
}

// DefaultDockerConfig returns production limits for tenant sandboxes.
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		Image:          "burrow-sandbox:latest",
		GatewayProcess: "gateway",
		MemoryBytes:    512 * 1024 * 1024,
		NanoCPUs:       1_000_000_000, // 1 core
	}
}

// DockerRuntime implements Runtime using the Docker Engine API.
type DockerRuntime struct {
	cli    *client.Client
	cfg    DockerConfig
	logger zerolog.Logger
}

// NewDockerRuntime creates a Docker-backed runtime.
func NewDockerRuntime(cfg DockerConfig) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerRuntime{
		cli:    cli,
		cfg:    cfg,
		logger: log.WithComponent("docker-runtime"),
	}, nil
}

// Start boots the sandbox container, creating it first if needed.
func (r *DockerRuntime) Start(ctx context.Context, sandboxID string, env map[string]string) error {
	inspect, err := r.cli.ContainerInspect(ctx, sandboxID)
	if err != nil {
		if !client.IsErrNotFound(err) {
			return types.Transient(fmt.Errorf("failed to inspect sandbox: %w", err))
		}
		if err := r.create(ctx, sandboxID, env); err != nil {
			return err
		}
	} else if inspect.State != nil && inspect.State.Running {
		return nil
	}

	if err := r.cli.ContainerStart(ctx, sandboxID, container.StartOptions{}); err != nil && !isAlreadyStartedErr(err) {
		return types.Transient(fmt.Errorf("failed to start sandbox: %w", err))
	}
	r.logger.Info().Str("sandbox_id", sandboxID).Msg("sandbox started")
	return nil
}

func (r *DockerRuntime) create(ctx context.Context, sandboxID string, env map[string]string) error {
	// Pull best-effort in case a newer image exists.
	reader, err := r.cli.ImagePull(ctx, r.cfg.Image, image.PullOptions{})
	if err != nil {
		r.logger.Warn().Err(err).Str("image", r.cfg.Image).Msg("image pull failed, using local")
	} else {
		_, _ = io.Copy(io.Discard, reader)
		_ = reader.Close()
	}

	_, err = r.cli.ContainerCreate(ctx,
		&container.Config{
			Image: r.cfg.Image,
			Env:   config.Slice(env),
			Labels: map[string]string{
				LabelManaged: "true",
			},
		},
		&container.HostConfig{
			Resources: container.Resources{
				Memory:   r.cfg.MemoryBytes,
				NanoCPUs: r.cfg.NanoCPUs,
			},
		},
		nil, nil, sandboxID)
	if err != nil {
		return types.Transient(fmt.Errorf("failed to create sandbox container: %w", err))
	}
	r.logger.Info().Str("sandbox_id", sandboxID).Msg("sandbox container created")
	return nil
}

// Stop gracefully stops the sandbox container.
func (r *DockerRuntime) Stop(ctx context.Context, sandboxID string) error {
	timeout := stopTimeoutSeconds
	if err := r.cli.ContainerStop(ctx, sandboxID, container.StopOptions{Timeout: &timeout}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return types.Transient(fmt.Errorf("failed to stop sandbox: %w", err))
	}
	return nil
}

// Destroy force-removes the sandbox container.
func (r *DockerRuntime) Destroy(ctx context.Context, sandboxID string) error {
	if err := r.cli.ContainerRemove(ctx, sandboxID, container.RemoveOptions{Force: true}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return types.Transient(fmt.Errorf("failed to remove sandbox: %w", err))
	}
	return nil
}

// Health reports the sandbox's state from a single inspect call.
func (r *DockerRuntime) Health(ctx context.Context, sandboxID string) (Health, error) {
	inspect, err := r.cli.ContainerInspect(ctx, sandboxID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return Health{Exists: false, Detail: "container not found"}, nil
		}
		return Health{}, types.Transient(fmt.Errorf("failed to inspect sandbox: %w", err))
	}

	h := Health{Exists: true}
	if inspect.State == nil {
		h.Detail = "no state reported"
		return h, nil
	}
	h.Running = inspect.State.Running
	h.Detail = inspect.State.Status

	// Without a container-level healthcheck, running is the best signal.
	h.Healthy = h.Running
	if inspect.State.Health != nil {
		h.Healthy = h.Running && inspect.State.Health.Status == "healthy"
		h.Detail = inspect.State.Health.Status
	}
	return h, nil
}

// FindGatewayProcess probes for the gateway process with pidof inside the
// sandbox. A missing process is (false, nil); only exec plumbing failures
// are errors.
func (r *DockerRuntime) FindGatewayProcess(ctx context.Context, sandboxID string) (bool, error) {
	execResp, err := r.cli.ContainerExecCreate(ctx, sandboxID, container.ExecOptions{
		Cmd:          []string{"pidof", r.cfg.GatewayProcess},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return false, types.Transient(fmt.Errorf("failed to create gateway probe: %w", err))
	}

	attachResp, err := r.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return false, types.Transient(fmt.Errorf("failed to attach gateway probe: %w", err))
	}
	_, _ = io.Copy(io.Discard, attachResp.Reader)
	attachResp.Close()

	inspect, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return false, types.Transient(fmt.Errorf("failed to inspect gateway probe: %w", err))
	}
	return inspect.ExitCode == 0, nil
}

// WatchStops streams die events for managed sandboxes.
func (r *DockerRuntime) WatchStops(ctx context.Context) (<-chan StopEvent, error) {
	f := filters.NewArgs(
		filters.Arg("type", "container"),
		filters.Arg("event", "die"),
		filters.Arg("label", LabelManaged+"=true"),
	)
	msgs, errs := r.cli.Events(ctx, events.ListOptions{Filters: f})

	out := make(chan StopEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				if err != nil && ctx.Err() == nil {
					r.logger.Warn().Err(err).Msg("docker event stream error")
				}
				return
			case msg := <-msgs:
				ev, ok := r.stopEventFromMessage(ctx, msg)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *DockerRuntime) stopEventFromMessage(ctx context.Context, msg events.Message) (StopEvent, bool) {
	name := strings.TrimPrefix(msg.Actor.Attributes["name"], "/")
	if name == "" {
		return StopEvent{}, false
	}

	exitCode := 0
	if raw := msg.Actor.Attributes["exitCode"]; raw != "" {
		if code, err := strconv.Atoi(raw); err == nil {
			exitCode = code
		}
	}

	reason := "exit"
	if exitCode > 128 {
		reason = "signal"
	}
	// The die event does not carry the OOM flag; one best-effort inspect
	// recovers it while the container record still exists.
	if inspect, err := r.cli.ContainerInspect(ctx, msg.Actor.ID); err == nil &&
		inspect.State != nil && inspect.State.OOMKilled {
		reason = "oom"
	}

	return StopEvent{SandboxID: name, ExitCode: exitCode, Reason: reason}, true
}

func isAlreadyStartedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already started")
}
