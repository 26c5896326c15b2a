package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/api/middleware"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/service"
	"github.com/mnemolab/revise/internal/store"
)

type LifecycleHandler struct {
	svc   *service.LifecycleService
	nodes domain.NodeStore
}

func NewLifecycleHandler(svc *service.LifecycleService, nodes domain.NodeStore) *LifecycleHandler {
	return &LifecycleHandler{svc: svc, nodes: nodes}
}

// NodeState reports a superseded node's current lifecycle view: stored and
// derived state, decay multiplier, retrieval and content exposure.
func (h *LifecycleHandler) NodeState(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	nodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	node, err := h.nodes.GetByID(r.Context(), nodeID, tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load node")
		return
	}
	if !node.Superseded() {
		writeError(w, http.StatusBadRequest, "node is not superseded")
		return
	}

	now := time.Now()
	derived := h.svc.DetermineState(node, now)
	multiplier, err := h.svc.DecayMultiplier(derived)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	exposure, err := service.RetrievalExposureFor(derived)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	content, err := service.ContentExposureFor(derived)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"node_id":            node.ID,
		"stored_state":       node.Supersession.State,
		"derived_state":      derived,
		"decay_multiplier":   multiplier,
		"retrieval_exposure": exposure,
		"content_exposure":   content,
	}
	if tr := h.svc.CheckStateTransition(node, now, false); tr != nil {
		resp["pending_transition"] = tr
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeletionEligibility evaluates the five deletion criteria for a node.
func (h *LifecycleHandler) DeletionEligibility(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	nodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	node, err := h.nodes.GetByID(r.Context(), nodeID, tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	elig, err := h.svc.CheckDeletionEligibility(r.Context(), node, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "eligibility check failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"criteria": elig,
		"eligible": elig.Eligible(),
	})
}

// Sweep runs the lifecycle sweep for the tenant on demand.
func (h *LifecycleHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transitions, deletable, err := h.svc.SweepTenant(r.Context(), tenant.ID, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lifecycle sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transitions":         transitions,
		"deletion_candidates": deletable,
	})
}

// RecordAccess registers a user access on a superseded node.
func (h *LifecycleHandler) RecordAccess(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	nodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	node, err := h.nodes.GetByID(r.Context(), nodeID, tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load node")
		return
	}
	if !node.Superseded() {
		writeError(w, http.StatusBadRequest, "node is not superseded")
		return
	}

	if err := h.nodes.RecordSupersededAccess(r.Context(), nodeID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record access")
		return
	}

	multiplier, err := h.svc.EffectiveMultiplier(node.Supersession.State, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"effective_decay_multiplier": multiplier,
	})
}
