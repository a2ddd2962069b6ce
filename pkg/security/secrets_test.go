package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	sm, err := NewSecretsManagerFromPassword("burrow-test")
	require.NoError(t, err)

	plaintext := []byte("tg-bot-token-12345")
	envelope, err := sm.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, envelope)

	opened, err := sm.Open(envelope)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealProducesUniqueEnvelopes(t *testing.T) {
	sm, err := NewSecretsManagerFromPassword("burrow-test")
	require.NoError(t, err)

	a, err := sm.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := sm.Seal([]byte("same"))
	require.NoError(t, err)

	// Random nonces: two seals of the same plaintext must differ.
	assert.NotEqual(t, a, b)
}

func TestOpenRejectsBadInput(t *testing.T) {
	sm, err := NewSecretsManagerFromPassword("burrow-test")
	require.NoError(t, err)

	tests := []struct {
		name     string
		envelope []byte
	}{
		{"empty", nil},
		{"too short", []byte("abc")},
		{"tampered", make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sm.Open(tt.envelope)
			assert.Error(t, err)
		})
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	a, err := NewSecretsManagerFromPassword("key-a")
	require.NoError(t, err)
	b, err := NewSecretsManagerFromPassword("key-b")
	require.NoError(t, err)

	envelope, err := a.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = b.Open(envelope)
	assert.Error(t, err)
}

func TestNewSecretsManagerValidatesKeyLength(t *testing.T) {
	_, err := NewSecretsManager([]byte("short"))
	assert.Error(t, err)

	_, err = NewSecretsManager(DeriveKeyFromPlatformID("platform-1"))
	assert.NoError(t, err)
}
