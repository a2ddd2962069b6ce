package objectstore

import (
	"context"
	"time"
)

// SyncResult reports the outcome of a backup sync.
type SyncResult struct {
	Success  bool
	LastSync time.Time
	Err      error
}

// ObjectStore is the backup target for sandbox data.
//
// Mount is best-effort preparation before a sandbox starts: a failed mount
// is logged and never blocks the start. Sync pushes the sandbox's data to
// the store; its failures feed the sync loop's backoff counter.
type ObjectStore interface {
	// Mount makes the bucket prefix available at the given host path.
	Mount(ctx context.Context, bucket, path, prefix string) error

	// Sync pushes the sandbox's current data to the store.
	Sync(ctx context.Context, sandboxID string) SyncResult

	// Purge deletes all stored data for a sandbox. Used by destroy when
	// the caller asks for data deletion.
	Purge(ctx context.Context, sandboxID string) error
}
