/*
Package runtime drives tenant sandbox containers.

The Runtime interface is the orchestrator's only view of the container
engine: boot, stop, destroy, lightweight health, gateway-process probing,
and a stop-event stream used for crash recovery. Everything behind it is
infrastructure, so implementation errors are wrapped as transient and the
orchestrator's backoff and self-heal policies absorb them.

# Docker Implementation

DockerRuntime manages one labelled container per sandbox:

  - the container name is the sandbox id (reversibly encodes the tenant)
  - Health derives from a single ContainerInspect, preferring the image's
    own healthcheck when one is configured
  - FindGatewayProcess runs pidof inside the container over the exec API
  - WatchStops filters the engine event stream for die events on managed
    containers and enriches them with exit code and an oom/signal/exit
    reason

The stop watcher is the external signal source for the crash recovery hook:
containers that die outside any API call still surface here.
*/
package runtime
