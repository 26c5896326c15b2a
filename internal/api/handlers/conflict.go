package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/api/middleware"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/service"
	"github.com/mnemolab/revise/internal/store"
)

type ConflictHandler struct {
	svc *service.QueueService
}

func NewConflictHandler(svc *service.QueueService) *ConflictHandler {
	return &ConflictHandler{svc: svc}
}

// ListPending returns the tenant's pending conflicts with suggestions.
func (h *ConflictHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.svc.Pending(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list conflicts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conflicts": items,
		"count":     len(items),
	})
}

type resolveRequest struct {
	Resolution    string `json:"resolution"`
	MergedContent string `json:"merged_content,omitempty"`
}

// Resolve applies an explicit user decision to a pending conflict.
func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	choice, err := domain.ParseResolutionChoice(req.Resolution)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Resolve(r.Context(), tenant.ID, itemID, choice, req.MergedContent)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "conflict not found")
		case errors.Is(err, service.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, "conflict already resolved")
		default:
			writeError(w, http.StatusInternalServerError, "failed to resolve conflict")
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ProcessExpired sweeps the tenant's queue for expired conflicts.
func (h *ConflictHandler) ProcessExpired(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resolved, err := h.svc.ProcessExpired(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process expired conflicts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auto_resolved": resolved,
		"count":         len(resolved),
	})
}

// Status summarizes the queue.
func (h *ConflictHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := h.svc.Status(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Prompt reports whether the weekly review prompt is due today.
func (h *ConflictHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	due, err := h.svc.ShouldPrompt(r.Context(), tenant.ID, tenant.PromptDay)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check prompt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"prompt_due": due})
}
