package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/lib/pq"
)

// schema creates the instances table. The partial unique index is what
// enforces "at most one live instance per tenant" under provisioning races;
// the orchestrator relies on it instead of re-checking.
const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id              BIGSERIAL PRIMARY KEY,
	tenant_id       TEXT        NOT NULL,
	sandbox_id      TEXT        NOT NULL,
	status          TEXT        NOT NULL DEFAULT 'provisioned',
	provisioned_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_started_at TIMESTAMPTZ,
	last_stopped_at TIMESTAMPTZ,
	last_sync_at    TIMESTAMPTZ,
	destroyed_at    TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS instances_live_tenant
	ON instances (tenant_id) WHERE destroyed_at IS NULL;
`

// uniqueViolation is the Postgres error code for a unique index conflict.
const uniqueViolation = "23505"

// PostgresRegistry implements Registry over a Postgres database.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry opens a registry over an existing database handle.
func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// Open connects to Postgres and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*PostgresRegistry, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, types.Transient(fmt.Errorf("failed to reach registry database: %w", err))
	}
	r := NewPostgresRegistry(db)
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// EnsureSchema applies the registry schema.
func (r *PostgresRegistry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply registry schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (r *PostgresRegistry) Close() error {
	return r.db.Close()
}

// InsertProvisioned records a new live instance inside a transaction.
// A conflict with a live row maps to ErrAlreadyProvisioned; everything else
// is infrastructure-transient.
func (r *PostgresRegistry) InsertProvisioned(ctx context.Context, tenantID, sandboxID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Transient(fmt.Errorf("failed to begin registry transaction: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO instances (tenant_id, sandbox_id, status)
		VALUES ($1, $2, $3)
	`, tenantID, sandboxID, types.StatusProvisioned)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.ErrAlreadyProvisioned
		}
		return types.Transient(fmt.Errorf("failed to insert instance row: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return types.Transient(fmt.Errorf("failed to commit instance row: %w", err))
	}
	return nil
}

// MarkDestroyed soft-deletes the live row for a tenant.
func (r *PostgresRegistry) MarkDestroyed(ctx context.Context, tenantID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE instances SET destroyed_at = NOW()
		WHERE tenant_id = $1 AND destroyed_at IS NULL
	`, tenantID)
	if err != nil {
		return 0, types.Transient(fmt.Errorf("failed to mark instance destroyed: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, types.Transient(fmt.Errorf("failed to read rows affected: %w", err))
	}
	return rows, nil
}

// MirrorStatus updates the mirrored status column, optionally stamping one
// of the known timestamp columns. Unknown field names are rejected rather
// than interpolated.
func (r *PostgresRegistry) MirrorStatus(ctx context.Context, tenantID string, status types.Status, timestampField string) error {
	query := `UPDATE instances SET status = $2 WHERE tenant_id = $1 AND destroyed_at IS NULL`
	switch timestampField {
	case "":
	case FieldLastStartedAt, FieldLastStoppedAt, FieldLastSyncAt:
		query = fmt.Sprintf(
			`UPDATE instances SET status = $2, %s = NOW() WHERE tenant_id = $1 AND destroyed_at IS NULL`,
			timestampField,
		)
	default:
		return fmt.Errorf("unknown timestamp field %q", timestampField)
	}

	if _, err := r.db.ExecContext(ctx, query, tenantID, status); err != nil {
		return types.Transient(fmt.Errorf("failed to mirror status: %w", err))
	}
	return nil
}

// List returns all live rows.
func (r *PostgresRegistry) List(ctx context.Context) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, sandbox_id, status, provisioned_at,
		       last_started_at, last_stopped_at, last_sync_at
		FROM instances
		WHERE destroyed_at IS NULL
		ORDER BY tenant_id
	`)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("failed to list instances: %w", err))
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.TenantID, &row.SandboxID, &row.Status, &row.ProvisionedAt,
			&row.LastStartedAt, &row.LastStoppedAt, &row.LastSyncAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan instance row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Transient(fmt.Errorf("failed to iterate instance rows: %w", err))
	}
	return out, nil
}
