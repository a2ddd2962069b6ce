package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/orchestrator"
	"github.com/cuemby/burrow/pkg/retry"
	"github.com/cuemby/burrow/pkg/sandbox"
	"github.com/cuemby/burrow/pkg/types"
)

// Handler serves the instance lifecycle API. Every lifecycle call runs
// through the retry harness with the tenant's actor as the per-attempt
// handle.
type Handler struct {
	fleet  *orchestrator.Fleet
	policy retry.Policy
	logger zerolog.Logger
}

// NewHandler creates a handler over the fleet.
func NewHandler(fleet *orchestrator.Fleet, policy retry.Policy) *Handler {
	return &Handler{
		fleet:  fleet,
		policy: policy,
		logger: log.WithComponent("api"),
	}
}

// Mount registers the lifecycle routes.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/instances", h.handleList)
	mux.HandleFunc("POST /api/instances/{tenantID}", h.handleProvision)
	mux.HandleFunc("POST /api/instances/{tenantID}/start", h.handleStart)
	mux.HandleFunc("POST /api/instances/{tenantID}/stop", h.handleStop)
	mux.HandleFunc("DELETE /api/instances/{tenantID}", h.handleDestroy)
	mux.HandleFunc("GET /api/instances/{tenantID}", h.handleStatus)
	mux.HandleFunc("GET /api/instances/{tenantID}/config", h.handleConfig)
	mux.Handle("GET /metrics", metrics.Handler())
}

type provisionRequest struct {
	Config *types.SandboxConfig `json:"config"`
}

type provisionResponse struct {
	TenantID  string `json:"tenant_id"`
	SandboxID string `json:"sandbox_id"`
}

// tenant extracts and validates the tenant id path segment. On failure it
// writes a 400 and returns ok=false.
func tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := r.PathValue("tenantID")
	if err := sandbox.ValidateTenantID(tenantID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return tenantID, true
}

func (h *Handler) handleProvision(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}

	var req provisionRequest
	if err := decodeJSONStrict(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Config == nil {
		req.Config = &types.SandboxConfig{}
	}

	var sandboxID string
	err := h.do(r.Context(), tenantID, func(ctx context.Context, inst *orchestrator.Instance) error {
		var err error
		sandboxID, err = inst.Provision(ctx, req.Config)
		return err
	})
	if err != nil {
		h.writeLifecycleError(w, tenantID, "provision", err)
		return
	}
	writeJSON(w, http.StatusCreated, provisionResponse{TenantID: tenantID, SandboxID: sandboxID})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	err := h.do(r.Context(), tenantID, func(ctx context.Context, inst *orchestrator.Instance) error {
		return inst.Start(ctx)
	})
	if err != nil {
		h.writeLifecycleError(w, tenantID, "start", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(types.StatusRunning)})
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	err := h.do(r.Context(), tenantID, func(ctx context.Context, inst *orchestrator.Instance) error {
		return inst.Stop(ctx)
	})
	if err != nil {
		h.writeLifecycleError(w, tenantID, "stop", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(types.StatusStopped)})
}

func (h *Handler) handleDestroy(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	deleteData := r.URL.Query().Get("delete_data") == "true"

	err := h.do(r.Context(), tenantID, func(ctx context.Context, inst *orchestrator.Instance) error {
		return inst.Destroy(ctx, deleteData)
	})
	if err != nil {
		h.writeLifecycleError(w, tenantID, "destroy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	TenantID      string       `json:"tenant_id"`
	SandboxID     string       `json:"sandbox_id"`
	Status        types.Status `json:"status"`
	ProvisionedAt *time.Time   `json:"provisioned_at,omitempty"`
	LastStartedAt *time.Time   `json:"last_started_at,omitempty"`
	LastStoppedAt *time.Time   `json:"last_stopped_at,omitempty"`
	LastSyncAt    *time.Time   `json:"last_sync_at,omitempty"`
	SyncFailCount int          `json:"sync_fail_count"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}

	var state *types.Instance
	err := h.do(r.Context(), tenantID, func(ctx context.Context, inst *orchestrator.Instance) error {
		var err error
		state, err = inst.Status(ctx)
		return err
	})
	if err != nil {
		h.writeLifecycleError(w, tenantID, "status", err)
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "no instance for tenant")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		TenantID:      state.TenantID,
		SandboxID:     state.SandboxID,
		Status:        state.Status,
		ProvisionedAt: state.ProvisionedAt,
		LastStartedAt: state.LastStartedAt,
		LastStoppedAt: state.LastStoppedAt,
		LastSyncAt:    state.LastSyncAt,
		SyncFailCount: state.SyncFailCount,
	})
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}

	var cfg *types.SandboxConfig
	err := h.do(r.Context(), tenantID, func(ctx context.Context, inst *orchestrator.Instance) error {
		var err error
		cfg, err = inst.Config(ctx)
		return err
	})
	if err != nil {
		h.writeLifecycleError(w, tenantID, "config", err)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "no instance for tenant")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type listEntry struct {
	TenantID      string       `json:"tenant_id"`
	SandboxID     string       `json:"sandbox_id"`
	Status        types.Status `json:"status"`
	ProvisionedAt time.Time    `json:"provisioned_at"`
	LastSyncAt    *time.Time   `json:"last_sync_at,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.fleet.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list instances")
		writeError(w, http.StatusServiceUnavailable, "registry unavailable")
		return
	}
	entries := make([]listEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, listEntry{
			TenantID:      row.TenantID,
			SandboxID:     row.SandboxID,
			Status:        row.Status,
			ProvisionedAt: row.ProvisionedAt,
			LastSyncAt:    row.LastSyncAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"instances": entries})
}

// do runs one lifecycle operation through the retry harness, acquiring the
// tenant's actor fresh on every attempt.
func (h *Handler) do(ctx context.Context, tenantID string, op func(ctx context.Context, inst *orchestrator.Instance) error) error {
	return retry.Do(ctx, h.policy,
		func(ctx context.Context) (*orchestrator.Instance, error) {
			return h.fleet.Instance(tenantID)
		},
		op)
}

func (h *Handler) writeLifecycleError(w http.ResponseWriter, tenantID, op string, err error) {
	switch {
	case errors.Is(err, types.ErrAlreadyProvisioned):
		writeError(w, http.StatusConflict, "instance already provisioned")
	case errors.Is(err, types.ErrNotProvisioned):
		writeError(w, http.StatusNotFound, "instance not provisioned")
	case errors.Is(err, types.ErrNoActiveInstance):
		writeError(w, http.StatusNotFound, "no active instance")
	default:
		var overload *types.OverloadError
		if errors.As(err, &overload) {
			writeError(w, http.StatusTooManyRequests, "sandbox runtime overloaded")
			return
		}
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Str("op", op).Msg("lifecycle operation failed")
		if types.IsRetryable(err) {
			writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
