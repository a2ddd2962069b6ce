package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/objectstore"
	"github.com/cuemby/burrow/pkg/orchestrator"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/retry"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/scheduler"
	"github.com/cuemby/burrow/pkg/security"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRuntime struct {
	startErr error
}

func (r *stubRuntime) Start(context.Context, string, map[string]string) error { return r.startErr }
func (r *stubRuntime) Stop(context.Context, string) error                     { return nil }
func (r *stubRuntime) Destroy(context.Context, string) error                  { return nil }
func (r *stubRuntime) Health(context.Context, string) (runtime.Health, error) {
	return runtime.Health{Exists: true, Running: true, Healthy: true}, nil
}
func (r *stubRuntime) FindGatewayProcess(context.Context, string) (bool, error) { return true, nil }
func (r *stubRuntime) WatchStops(context.Context) (<-chan runtime.StopEvent, error) {
	ch := make(chan runtime.StopEvent)
	close(ch)
	return ch, nil
}

type stubObjects struct{}

func (stubObjects) Mount(context.Context, string, string, string) error { return nil }
func (stubObjects) Sync(context.Context, string) objectstore.SyncResult {
	return objectstore.SyncResult{Success: true, LastSync: time.Now().UTC()}
}
func (stubObjects) Purge(context.Context, string) error { return nil }

func newTestServer(t *testing.T) (*http.ServeMux, *stubRuntime) {
	t.Helper()
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sm, err := security.NewSecretsManagerFromPassword("test")
	require.NoError(t, err)

	rt := &stubRuntime{}
	fleet := orchestrator.NewFleet(orchestrator.DefaultConfig(), orchestrator.Deps{
		Store:     store,
		Registry:  registry.NewMemoryRegistry(),
		Runtime:   rt,
		Objects:   stubObjects{},
		Env:       config.NewLayering(sm, nil),
		Scheduler: scheduler.NewManualScheduler(),
	})

	policy := retry.DefaultPolicy()
	policy.Sleep = func(context.Context, time.Duration) {}

	mux := http.NewServeMux()
	NewHandler(fleet, policy).Mount(mux)
	return mux, rt
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestLifecycleOverHTTP(t *testing.T) {
	mux, _ := newTestServer(t)

	w := do(mux, http.MethodPost, "/api/instances/u1", `{"config":{"env":{"MODEL":"small"}}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created provisionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "u1", created.TenantID)
	assert.True(t, strings.HasPrefix(created.SandboxID, "sbx-"))

	w = do(mux, http.MethodPost, "/api/instances/u1/start", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(mux, http.MethodGet, "/api/instances/u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, types.StatusRunning, status.Status)
	assert.NotNil(t, status.LastStartedAt)

	w = do(mux, http.MethodGet, "/api/instances/u1/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"MODEL":"small"`)

	w = do(mux, http.MethodPost, "/api/instances/u1/stop", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(mux, http.MethodDelete, "/api/instances/u1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(mux, http.MethodGet, "/api/instances/u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProvisionConflictMapsTo409(t *testing.T) {
	mux, _ := newTestServer(t)

	w := do(mux, http.MethodPost, "/api/instances/u1", "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(mux, http.MethodPost, "/api/instances/u1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartUnprovisionedMapsTo404(t *testing.T) {
	mux, _ := newTestServer(t)

	w := do(mux, http.MethodPost, "/api/instances/u1/start", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDestroyWithoutInstanceMapsTo404(t *testing.T) {
	mux, _ := newTestServer(t)

	w := do(mux, http.MethodDelete, "/api/instances/u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransientFailureMapsTo503(t *testing.T) {
	mux, rt := newTestServer(t)

	w := do(mux, http.MethodPost, "/api/instances/u1", "")
	require.Equal(t, http.StatusCreated, w.Code)

	rt.startErr = types.Transient(io.ErrUnexpectedEOF)
	w = do(mux, http.MethodPost, "/api/instances/u1/start", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOverloadMapsTo429(t *testing.T) {
	mux, rt := newTestServer(t)

	w := do(mux, http.MethodPost, "/api/instances/u1", "")
	require.Equal(t, http.StatusCreated, w.Code)

	rt.startErr = types.Overloaded(io.ErrUnexpectedEOF)
	w = do(mux, http.MethodPost, "/api/instances/u1/start", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestInvalidTenantIDRejected(t *testing.T) {
	mux, _ := newTestServer(t)

	long := strings.Repeat("x", 64)
	w := do(mux, http.MethodPost, "/api/instances/"+long, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListInstances(t *testing.T) {
	mux, _ := newTestServer(t)

	w := do(mux, http.MethodGet, "/api/instances", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"instances":[]}`, w.Body.String())

	require.Equal(t, http.StatusCreated, do(mux, http.MethodPost, "/api/instances/u1", "").Code)

	w = do(mux, http.MethodGet, "/api/instances", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"u1"`)
}

func TestBadJSONBodyRejected(t *testing.T) {
	mux, _ := newTestServer(t)

	w := do(mux, http.MethodPost, "/api/instances/u1", `{"config":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
