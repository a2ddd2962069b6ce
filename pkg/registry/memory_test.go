package registry

import (
	"context"
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertProvisionedEnforcesOneLiveRow(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, r.InsertProvisioned(ctx, "u1", "sbx-a"))

	err := r.InsertProvisioned(ctx, "u1", "sbx-a")
	assert.ErrorIs(t, err, types.ErrAlreadyProvisioned)

	// Destroy frees the tenant for re-provisioning.
	rows, err := r.MarkDestroyed(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	require.NoError(t, r.InsertProvisioned(ctx, "u1", "sbx-b"))
}

func TestMarkDestroyedReportsZeroRows(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	rows, err := r.MarkDestroyed(ctx, "ghost")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)

	require.NoError(t, r.InsertProvisioned(ctx, "u1", "sbx-a"))
	rows, err = r.MarkDestroyed(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	// Double destroy affects nothing.
	rows, err = r.MarkDestroyed(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}

func TestMirrorStatusUpdatesLiveRowOnly(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, r.InsertProvisioned(ctx, "u1", "sbx-a"))
	require.NoError(t, r.MirrorStatus(ctx, "u1", types.StatusRunning, FieldLastStartedAt))

	rows, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, types.StatusRunning, rows[0].Status)
	assert.NotNil(t, rows[0].LastStartedAt)
	assert.Nil(t, rows[0].LastStoppedAt)

	// Mirroring after destroy is a silent no-op.
	_, err = r.MarkDestroyed(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, r.MirrorStatus(ctx, "u1", types.StatusStopped, FieldLastStoppedAt))

	rows, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMirrorStatusRejectsUnknownField(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, r.InsertProvisioned(ctx, "u1", "sbx-a"))
	err := r.MirrorStatus(ctx, "u1", types.StatusRunning, "created_at; DROP TABLE instances")
	assert.Error(t, err)
}
