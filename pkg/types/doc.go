/*
Package types defines the core data structures used throughout Burrow.

This package contains the domain model for per-tenant sandbox instances and
the error taxonomy the lifecycle API exposes. All other packages depend on it
for state management and error classification.

# Core Types

  - Instance: the durable per-tenant record (status, timestamps, sync lock)
  - Status: provisioned, running, stopped (destroyed = record absent)
  - SandboxConfig: opaque tenant settings (env, secret refs, channel creds)
  - StopReason: exit code + reason reported by the container runtime

# State Machine

Instances follow a small state machine:

	∅ → provisioned → running ⇄ stopped → ∅ (destroy)

Valid transitions:
  - ∅ → provisioned (provision)
  - provisioned/stopped → running (start)
  - running → stopped (stop, crash notification, or self-heal)
  - any → ∅ (destroy; terminal, clears all persisted fields)

# Error Taxonomy

Lifecycle errors are sentinel values (ErrAlreadyProvisioned,
ErrNotProvisioned, ErrNoActiveInstance). Infrastructure failures are wrapped
in TransientError and are the only errors the retry harness retries.
OverloadError marks deliberate load shedding and is never retried.

# Thread Safety

Types here are plain data. Mutations are synchronized by the per-tenant
actor in pkg/orchestrator; the storage layer persists them as JSON.
*/
package types
