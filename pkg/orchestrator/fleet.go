package orchestrator

import (
	"context"
	"sync"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/sandbox"
)

// Fleet resolves tenants to their orchestrator instances. Every tenant
// maps to exactly one actor per process; resolving the same tenant twice
// returns the same actor, which is what gives operations their per-tenant
// serialization.
type Fleet struct {
	cfg  Config
	deps Deps

	mu        sync.Mutex
	instances map[string]*Instance
}

// NewFleet creates a fleet over the given collaborators.
func NewFleet(cfg Config, deps Deps) *Fleet {
	return &Fleet{
		cfg:       cfg,
		deps:      deps,
		instances: make(map[string]*Instance),
	}
}

// Instance returns the actor for a tenant, creating it on first use.
func (f *Fleet) Instance(tenantID string) (*Instance, error) {
	if err := sandbox.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if i, ok := f.instances[tenantID]; ok {
		return i, nil
	}
	i := newInstance(tenantID, f.cfg, f.deps)
	f.instances[tenantID] = i
	return i, nil
}

// List enumerates live instances from the registry mirror. The mirror is
// for listing only; per-tenant truth still comes from each actor's
// Status.
func (f *Fleet) List(ctx context.Context) ([]registry.Row, error) {
	return f.deps.Registry.List(ctx)
}
