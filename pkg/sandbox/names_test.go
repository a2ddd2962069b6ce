package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
	}{
		{"simple id", "u1"},
		{"uuid-ish id", "3f2a9c1e-77b4-4f08-9d2b-0a6e5c11"},
		{"uppercase preserved", "TenantA"},
		{"max length id", strings.Repeat("x", MaxTenantIDLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Name(tt.tenantID)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(encoded, NamePrefix))
			assert.LessOrEqual(t, len(encoded), MaxNameLength)
			assert.Equal(t, strings.ToLower(encoded), encoded, "name must be lowercase")

			decoded, err := TenantID(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.tenantID, decoded)
		})
	}
}

func TestNameRejectsInvalidTenantIDs(t *testing.T) {
	_, err := Name("")
	assert.Error(t, err)

	_, err = Name(strings.Repeat("x", MaxTenantIDLength+1))
	assert.Error(t, err)
}

func TestTenantIDRejectsForeignNames(t *testing.T) {
	tests := []struct {
		name      string
		container string
	}{
		{"no prefix", "nginx-1"},
		{"prefix only", "sbx-"},
		{"invalid base32", "sbx-????"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TenantID(tt.container)
			assert.Error(t, err)
			assert.False(t, IsSandboxName(tt.container))
		})
	}
}

func TestNameIsDeterministic(t *testing.T) {
	a, err := Name("tenant-7")
	require.NoError(t, err)
	b, err := Name("tenant-7")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
