package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/burrow/pkg/security"
	"github.com/cuemby/burrow/pkg/types"
)

// Reserved system keys. These always win over tenant-supplied values so a
// tenant cannot redirect its own control-plane wiring.
const (
	EnvTenantID  = "BURROW_TENANT_ID"
	EnvSandboxID = "BURROW_SANDBOX_ID"
	EnvDataPath  = "BURROW_DATA_PATH"
)

// DefaultDataPath is where the backing bucket is mounted inside the sandbox.
const DefaultDataPath = "/data"

// Layering builds the full container environment for a sandbox by merging,
// lowest precedence first: platform defaults, plaintext tenant vars,
// decrypted secret refs, decrypted channel tokens, reserved system keys.
type Layering struct {
	secrets  *security.SecretsManager
	defaults map[string]string
}

// NewLayering creates a config layering step. defaults may be nil.
func NewLayering(secrets *security.SecretsManager, defaults map[string]string) *Layering {
	return &Layering{
		secrets:  secrets,
		defaults: defaults,
	}
}

// BuildEnv computes the environment for a tenant's sandbox. A secret or
// channel envelope that fails to open fails the whole build: starting a
// sandbox with silently missing credentials is worse than not starting it.
func (l *Layering) BuildEnv(tenantID, sandboxID string, cfg *types.SandboxConfig) (map[string]string, error) {
	env := make(map[string]string, len(l.defaults))
	for k, v := range l.defaults {
		env[k] = v
	}

	if cfg != nil {
		for k, v := range cfg.Env {
			if k == "" {
				continue
			}
			env[k] = v
		}

		for _, ref := range cfg.Secrets {
			if ref.EnvKey == "" {
				return nil, fmt.Errorf("secret ref with empty env key")
			}
			plaintext, err := l.secrets.Open(ref.Envelope)
			if err != nil {
				return nil, fmt.Errorf("failed to open secret for %s: %w", ref.EnvKey, err)
			}
			env[ref.EnvKey] = string(plaintext)
		}

		for _, ch := range cfg.Channels {
			key := ch.EnvKey
			if key == "" {
				key = channelEnvKey(ch.Channel)
			}
			token, err := l.secrets.Open(ch.Envelope)
			if err != nil {
				return nil, fmt.Errorf("failed to open %s channel token: %w", ch.Channel, err)
			}
			env[key] = string(token)
		}
	}

	// Reserved keys are applied last, unconditionally.
	env[EnvTenantID] = tenantID
	env[EnvSandboxID] = sandboxID
	if _, ok := env[EnvDataPath]; !ok {
		env[EnvDataPath] = DefaultDataPath
	}

	return env, nil
}

// channelEnvKey derives the conventional env key for a channel token,
// e.g. "telegram" -> "BURROW_CHANNEL_TELEGRAM_TOKEN".
func channelEnvKey(channel string) string {
	normalized := strings.ToUpper(strings.ReplaceAll(channel, "-", "_"))
	return "BURROW_CHANNEL_" + normalized + "_TOKEN"
}

// Slice renders an environment map as the KEY=value slice container
// runtimes expect, sorted for deterministic container specs.
func Slice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
