package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketInstances = []byte("instances")
)

// BoltStore implements Store using BoltDB, one JSON record per tenant id.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "burrow.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketInstances); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketInstances, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load returns the persisted instance for a tenant, or nil if none exists.
// A record that fails validation is treated as absent and logged, never
// surfaced as an error: a corrupt row must not wedge the tenant's actor.
func (s *BoltStore) Load(tenantID string) (*types.Instance, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInstances)
		if v := b.Get([]byte(tenantID)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read instance: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	instance, err := decodeInstance(tenantID, data)
	if err != nil {
		logger := log.WithComponent("storage")
		logger.Warn().
			Str("tenant_id", tenantID).
			Err(err).
			Msg("discarding invalid instance record, loading defaults")
		return nil, nil
	}
	return instance, nil
}

// Save persists the full instance record atomically.
func (s *BoltStore) Save(instance *types.Instance) error {
	if instance.TenantID == "" {
		return fmt.Errorf("cannot save instance without tenant id")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInstances)
		data, err := json.Marshal(instance)
		if err != nil {
			return fmt.Errorf("failed to marshal instance: %w", err)
		}
		return b.Put([]byte(instance.TenantID), data)
	})
}

// Delete removes all persisted state for a tenant.
func (s *BoltStore) Delete(tenantID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInstances).Delete([]byte(tenantID))
	})
}

// List returns all persisted instances, skipping invalid records.
func (s *BoltStore) List() ([]*types.Instance, error) {
	var instances []*types.Instance
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInstances)
		return b.ForEach(func(k, v []byte) error {
			instance, err := decodeInstance(string(k), v)
			if err != nil {
				logger := log.WithComponent("storage")
				logger.Warn().
					Str("tenant_id", string(k)).
					Err(err).
					Msg("skipping invalid instance record")
				return nil
			}
			instances = append(instances, instance)
			return nil
		})
	})
	return instances, err
}

// decodeInstance unmarshals and validates a stored record. New optional
// fields must decode to safe defaults when absent, so validation only
// checks the fields the state machine cannot run without.
func decodeInstance(tenantID string, data []byte) (*types.Instance, error) {
	var instance types.Instance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
	}
	if instance.TenantID == "" {
		instance.TenantID = tenantID
	}
	if instance.TenantID != tenantID {
		return nil, fmt.Errorf("record tenant id %q does not match key %q", instance.TenantID, tenantID)
	}
	if !instance.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", instance.Status)
	}
	if instance.SandboxID == "" {
		return nil, fmt.Errorf("missing sandbox id")
	}
	if instance.SyncFailCount < 0 {
		instance.SyncFailCount = 0
	}
	// An in-progress flag without a lock timestamp cannot be aged out,
	// so it is dropped here rather than trusted.
	if instance.SyncInProgress && instance.SyncLockedAt == nil {
		instance.SyncInProgress = false
	}
	return &instance, nil
}
