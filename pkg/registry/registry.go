package registry

import (
	"context"
	"time"

	"github.com/cuemby/burrow/pkg/types"
)

// Timestamp column names accepted by MirrorStatus.
const (
	FieldLastStartedAt = "last_started_at"
	FieldLastStoppedAt = "last_stopped_at"
	FieldLastSyncAt    = "last_sync_at"
)

// Row is a registry record for one tenant's instance.
type Row struct {
	TenantID      string
	SandboxID     string
	Status        types.Status
	ProvisionedAt time.Time
	LastStartedAt *time.Time
	LastStoppedAt *time.Time
	LastSyncAt    *time.Time
	DestroyedAt   *time.Time
}

// Registry is the relational mirror of the instance fleet.
//
// It is authoritative for existence only: InsertProvisioned and MarkDestroyed
// guard the create/destroy races, and their failures are hard failures. The
// operational status column is a best-effort mirror for listing and search;
// lifecycle decisions must never read it.
type Registry interface {
	// InsertProvisioned records a new instance. Returns
	// types.ErrAlreadyProvisioned if the tenant already has a live row.
	InsertProvisioned(ctx context.Context, tenantID, sandboxID string) error

	// MarkDestroyed soft-deletes the tenant's live row and returns the
	// number of rows affected (0 means someone already destroyed it).
	MarkDestroyed(ctx context.Context, tenantID string) (int64, error)

	// MirrorStatus updates the mirrored status and, when timestampField is
	// one of the Field* constants, stamps that column with now. Callers
	// dispatch it fire-and-forget.
	MirrorStatus(ctx context.Context, tenantID string, status types.Status, timestampField string) error

	// List returns all live (not destroyed) rows.
	List(ctx context.Context) ([]Row, error)
}
