package config

import (
	"testing"

	"github.com/cuemby/burrow/pkg/security"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayering(t *testing.T, defaults map[string]string) (*Layering, *security.SecretsManager) {
	t.Helper()
	sm, err := security.NewSecretsManagerFromPassword("test-key")
	require.NoError(t, err)
	return NewLayering(sm, defaults), sm
}

func seal(t *testing.T, sm *security.SecretsManager, plaintext string) []byte {
	t.Helper()
	envelope, err := sm.Seal([]byte(plaintext))
	require.NoError(t, err)
	return envelope
}

func TestBuildEnvLayering(t *testing.T) {
	layering, sm := newTestLayering(t, map[string]string{
		"PLATFORM_URL": "https://api.internal",
		"LOG_LEVEL":    "info",
	})

	cfg := &types.SandboxConfig{
		Env: map[string]string{
			"LOG_LEVEL": "debug", // overrides platform default
			"MODEL":     "small",
		},
		Secrets: []types.SecretRef{
			{EnvKey: "API_KEY", Envelope: seal(t, sm, "sk-123")},
		},
		Channels: []types.ChannelCredential{
			{Channel: "telegram", Envelope: seal(t, sm, "tg-token")},
		},
	}

	env, err := layering.BuildEnv("u1", "sbx-u1", cfg)
	require.NoError(t, err)

	assert.Equal(t, "https://api.internal", env["PLATFORM_URL"])
	assert.Equal(t, "debug", env["LOG_LEVEL"], "plain vars override defaults")
	assert.Equal(t, "sk-123", env["API_KEY"])
	assert.Equal(t, "tg-token", env["BURROW_CHANNEL_TELEGRAM_TOKEN"])
	assert.Equal(t, "u1", env[EnvTenantID])
	assert.Equal(t, "sbx-u1", env[EnvSandboxID])
	assert.Equal(t, DefaultDataPath, env[EnvDataPath])
}

func TestBuildEnvReservedKeysAlwaysWin(t *testing.T) {
	layering, _ := newTestLayering(t, nil)

	cfg := &types.SandboxConfig{
		Env: map[string]string{
			EnvTenantID:  "spoofed",
			EnvSandboxID: "spoofed",
		},
	}

	env, err := layering.BuildEnv("u1", "sbx-u1", cfg)
	require.NoError(t, err)
	assert.Equal(t, "u1", env[EnvTenantID])
	assert.Equal(t, "sbx-u1", env[EnvSandboxID])
}

func TestBuildEnvNilConfig(t *testing.T) {
	layering, _ := newTestLayering(t, map[string]string{"A": "1"})

	env, err := layering.BuildEnv("u1", "sbx-u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", env["A"])
	assert.Equal(t, "u1", env[EnvTenantID])
}

func TestBuildEnvBadEnvelopeFailsBuild(t *testing.T) {
	layering, _ := newTestLayering(t, nil)

	cfg := &types.SandboxConfig{
		Secrets: []types.SecretRef{
			{EnvKey: "API_KEY", Envelope: []byte("not-an-envelope")},
		},
	}

	_, err := layering.BuildEnv("u1", "sbx-u1", cfg)
	assert.Error(t, err)
}

func TestSliceIsSortedAndComplete(t *testing.T) {
	out := Slice(map[string]string{"B": "2", "A": "1", "C": "3"})
	assert.Equal(t, []string{"A=1", "B=2", "C=3"}, out)
}
