package types

import (
	"time"
)

// Status represents the operational state of a tenant instance.
// Destroyed instances have no status: destruction removes the record entirely.
type Status string

const (
	StatusProvisioned Status = "provisioned"
	StatusRunning     Status = "running"
	StatusStopped     Status = "stopped"
)

// Valid reports whether s is one of the known instance statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProvisioned, StatusRunning, StatusStopped:
		return true
	}
	return false
}

// Instance is the durable record for one tenant's sandbox.
// The orchestrator is authoritative for everything in here; the registry only
// mirrors Status for cross-tenant listing.
type Instance struct {
	TenantID  string `json:"tenant_id"`
	SandboxID string `json:"sandbox_id"`
	Status    Status `json:"status"`

	// Config is tenant-supplied and opaque to the orchestrator. It is
	// interpreted only by the config layering step when building the
	// container environment.
	Config *SandboxConfig `json:"config,omitempty"`

	ProvisionedAt *time.Time `json:"provisioned_at,omitempty"`
	LastStartedAt *time.Time `json:"last_started_at,omitempty"`
	LastStoppedAt *time.Time `json:"last_stopped_at,omitempty"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`

	// Sync lock fields. SyncInProgress without SyncLockedAt is invalid;
	// a lock older than the configured staleness threshold is presumed
	// abandoned and cleared on the next load.
	SyncInProgress bool       `json:"sync_in_progress"`
	SyncLockedAt   *time.Time `json:"sync_locked_at,omitempty"`

	// SyncFailCount counts consecutive failed ticks (health or backup).
	// It drives backoff; only health-check failures drive self-heal.
	SyncFailCount int `json:"sync_fail_count"`
}

// SandboxConfig holds tenant-supplied settings for the sandbox environment.
type SandboxConfig struct {
	// Env holds plaintext environment entries.
	Env map[string]string `json:"env,omitempty"`

	// Secrets holds references to encrypted secret envelopes, decrypted
	// only when the container environment is built.
	Secrets []SecretRef `json:"secrets,omitempty"`

	// Channels holds messaging channel credentials (token stored as an
	// encrypted envelope).
	Channels []ChannelCredential `json:"channels,omitempty"`
}

// SecretRef points an environment variable at an encrypted secret envelope.
type SecretRef struct {
	EnvKey   string `json:"env_key"`
	Envelope []byte `json:"envelope"`
}

// ChannelCredential is a messaging channel binding for the sandbox.
type ChannelCredential struct {
	Channel  string `json:"channel"` // e.g. "telegram", "whatsapp"
	EnvKey   string `json:"env_key"`
	Envelope []byte `json:"envelope"`
}

// Clone returns a deep copy of the config, safe to hand to callers.
func (c *SandboxConfig) Clone() *SandboxConfig {
	if c == nil {
		return nil
	}
	out := &SandboxConfig{}
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	if c.Secrets != nil {
		out.Secrets = make([]SecretRef, len(c.Secrets))
		for i, s := range c.Secrets {
			out.Secrets[i] = SecretRef{EnvKey: s.EnvKey, Envelope: append([]byte(nil), s.Envelope...)}
		}
	}
	if c.Channels != nil {
		out.Channels = make([]ChannelCredential, len(c.Channels))
		for i, ch := range c.Channels {
			out.Channels[i] = ChannelCredential{Channel: ch.Channel, EnvKey: ch.EnvKey, Envelope: append([]byte(nil), ch.Envelope...)}
		}
	}
	return out
}

// StopReason describes why a container stopped, as reported by the runtime.
type StopReason struct {
	ExitCode int    `json:"exit_code"`
	Reason   string `json:"reason"` // "exit", "oom", "signal", ...
}
