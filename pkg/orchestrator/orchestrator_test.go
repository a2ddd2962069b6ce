package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/objectstore"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/scheduler"
	"github.com/cuemby/burrow/pkg/security"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/require"
)

// fakeRuntime is a controllable Runtime for actor tests.
type fakeRuntime struct {
	mu         sync.Mutex
	started    []string
	stopped    []string
	destroyed  []string
	startErr   error
	stopErr    error
	destroyErr error
	healthy    bool
	healthErr  error
	gateway    bool
	gatewayErr error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{healthy: true, gateway: true}
}

func (r *fakeRuntime) Start(_ context.Context, sandboxID string, _ map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started = append(r.started, sandboxID)
	return nil
}

func (r *fakeRuntime) Stop(_ context.Context, sandboxID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopErr != nil {
		return r.stopErr
	}
	r.stopped = append(r.stopped, sandboxID)
	return nil
}

func (r *fakeRuntime) Destroy(_ context.Context, sandboxID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyErr != nil {
		return r.destroyErr
	}
	r.destroyed = append(r.destroyed, sandboxID)
	return nil
}

func (r *fakeRuntime) Health(context.Context, string) (runtime.Health, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.healthErr != nil {
		return runtime.Health{}, r.healthErr
	}
	return runtime.Health{Exists: true, Running: r.healthy, Healthy: r.healthy}, nil
}

func (r *fakeRuntime) FindGatewayProcess(context.Context, string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gateway, r.gatewayErr
}

func (r *fakeRuntime) WatchStops(context.Context) (<-chan runtime.StopEvent, error) {
	ch := make(chan runtime.StopEvent)
	close(ch)
	return ch, nil
}

func (r *fakeRuntime) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started)
}

// fakeObjects is a controllable ObjectStore.
type fakeObjects struct {
	mu       sync.Mutex
	mountErr error
	syncRes  objectstore.SyncResult
	mounts   int
	syncs    int
	purged   []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{syncRes: objectstore.SyncResult{Success: true, LastSync: time.Now().UTC()}}
}

func (o *fakeObjects) Mount(context.Context, string, string, string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mounts++
	return o.mountErr
}

func (o *fakeObjects) Sync(context.Context, string) objectstore.SyncResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncs++
	return o.syncRes
}

func (o *fakeObjects) Purge(_ context.Context, sandboxID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.purged = append(o.purged, sandboxID)
	return nil
}

// testEnv bundles an actor with its controllable collaborators.
type testEnv struct {
	fleet *Fleet
	inst  *Instance
	rt    *fakeRuntime
	objs  *fakeObjects
	reg   *registry.MemoryRegistry
	store storage.Store
	sched *scheduler.ManualScheduler
	cfg   Config
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MirrorTimeout = time.Second
	return cfg
}

func newTestEnv(t *testing.T, tenantID string) *testEnv {
	t.Helper()
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sm, err := security.NewSecretsManagerFromPassword("test")
	require.NoError(t, err)

	env := &testEnv{
		rt:    newFakeRuntime(),
		objs:  newFakeObjects(),
		reg:   registry.NewMemoryRegistry(),
		store: store,
		sched: scheduler.NewManualScheduler(),
		cfg:   testConfig(),
	}
	env.fleet = NewFleet(env.cfg, Deps{
		Store:     store,
		Registry:  env.reg,
		Runtime:   env.rt,
		Objects:   env.objs,
		Env:       config.NewLayering(sm, nil),
		Scheduler: env.sched,
	})
	inst, err := env.fleet.Instance(tenantID)
	require.NoError(t, err)
	env.inst = inst
	return env
}

// tick returns the instance's manual tick handle.
func (e *testEnv) tick(t *testing.T) *scheduler.ManualTick {
	t.Helper()
	ticks := e.sched.Ticks()
	require.NotEmpty(t, ticks)
	return ticks[0]
}

// provisionAndStart is the common preamble for sync loop tests.
func (e *testEnv) provisionAndStart(t *testing.T) string {
	t.Helper()
	sandboxID, err := e.inst.Provision(context.Background(), &types.SandboxConfig{})
	require.NoError(t, err)
	require.NoError(t, e.inst.Start(context.Background()))
	return sandboxID
}

var errInfra = errors.New("infrastructure down")
