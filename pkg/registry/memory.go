package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/burrow/pkg/types"
)

// MemoryRegistry is an in-memory Registry for tests and single-node
// development. It enforces the same one-live-row-per-tenant constraint the
// Postgres partial index does.
type MemoryRegistry struct {
	mu   sync.Mutex
	rows []*Row
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

func (r *MemoryRegistry) live(tenantID string) *Row {
	for _, row := range r.rows {
		if row.TenantID == tenantID && row.DestroyedAt == nil {
			return row
		}
	}
	return nil
}

// InsertProvisioned records a new live instance.
func (r *MemoryRegistry) InsertProvisioned(_ context.Context, tenantID, sandboxID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.live(tenantID) != nil {
		return types.ErrAlreadyProvisioned
	}
	r.rows = append(r.rows, &Row{
		TenantID:      tenantID,
		SandboxID:     sandboxID,
		Status:        types.StatusProvisioned,
		ProvisionedAt: time.Now().UTC(),
	})
	return nil
}

// MarkDestroyed soft-deletes the live row for a tenant.
func (r *MemoryRegistry) MarkDestroyed(_ context.Context, tenantID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.live(tenantID)
	if row == nil {
		return 0, nil
	}
	now := time.Now().UTC()
	row.DestroyedAt = &now
	return 1, nil
}

// MirrorStatus updates the mirrored status for a live row.
func (r *MemoryRegistry) MirrorStatus(_ context.Context, tenantID string, status types.Status, timestampField string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.live(tenantID)
	if row == nil {
		return nil // mirroring a destroyed instance is a no-op
	}
	row.Status = status
	now := time.Now().UTC()
	switch timestampField {
	case "":
	case FieldLastStartedAt:
		row.LastStartedAt = &now
	case FieldLastStoppedAt:
		row.LastStoppedAt = &now
	case FieldLastSyncAt:
		row.LastSyncAt = &now
	default:
		return fmt.Errorf("unknown timestamp field %q", timestampField)
	}
	return nil
}

// List returns copies of all live rows.
func (r *MemoryRegistry) List(_ context.Context) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Row
	for _, row := range r.rows {
		if row.DestroyedAt == nil {
			out = append(out, *row)
		}
	}
	return out, nil
}
