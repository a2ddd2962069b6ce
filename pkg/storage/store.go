package storage

import (
	"github.com/cuemby/burrow/pkg/types"
)

// Store is the durable per-tenant instance store.
//
// Load degrades instead of failing: a missing or corrupt record loads as
// "no instance" (nil, nil) so a bad row can never wedge a tenant's actor.
// Hard errors are reserved for the store itself being unusable.
type Store interface {
	// Load returns the instance for a tenant, or nil if none is persisted.
	Load(tenantID string) (*types.Instance, error)

	// Save persists the full instance record atomically.
	Save(instance *types.Instance) error

	// Delete removes all persisted state for a tenant. Deleting an absent
	// record is not an error.
	Delete(tenantID string) error

	// List returns all persisted instances.
	List() ([]*types.Instance, error)

	// Close releases the underlying database.
	Close() error
}
