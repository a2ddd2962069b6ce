package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFleetReturnsSameActorPerTenant(t *testing.T) {
	env := newTestEnv(t, "u1")

	a, err := env.fleet.Instance("u1")
	require.NoError(t, err)
	b, err := env.fleet.Instance("u1")
	require.NoError(t, err)
	assert.Same(t, a, b, "one actor per tenant per process")

	c, err := env.fleet.Instance("u2")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestFleetRejectsInvalidTenantIDs(t *testing.T) {
	env := newTestEnv(t, "u1")

	tests := []string{
		"",
		"this-tenant-id-is-far-too-long-to-ever-fit",
	}
	for _, tenantID := range tests {
		_, err := env.fleet.Instance(tenantID)
		assert.Error(t, err, "tenantID=%q", tenantID)
	}
}

func TestFleetListReflectsRegistry(t *testing.T) {
	env := newTestEnv(t, "u1")
	ctx := context.Background()

	rows, err := env.fleet.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	env.provisionAndStart(t)

	rows, err = env.fleet.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].TenantID)
}
