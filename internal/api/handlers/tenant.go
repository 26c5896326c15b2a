package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mnemolab/revise/internal/api/middleware"
	"github.com/mnemolab/revise/internal/domain"
)

type TenantHandler struct {
	store domain.TenantStore
}

func NewTenantHandler(store domain.TenantStore) *TenantHandler {
	return &TenantHandler{store: store}
}

type createTenantRequest struct {
	Name         string `json:"name"`
	AccuracyMode string `json:"accuracy_mode,omitempty"`
	PromptDay    *int   `json:"prompt_day,omitempty"`
}

type createTenantResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AccuracyMode string `json:"accuracy_mode"`
	APIKey       string `json:"api_key"`
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	mode := domain.ModeBalanced
	if req.AccuracyMode != "" {
		parsed, err := domain.ParseAccuracyMode(req.AccuracyMode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	promptDay := time.Sunday
	if req.PromptDay != nil {
		if *req.PromptDay < 0 || *req.PromptDay > 6 {
			writeError(w, http.StatusBadRequest, "prompt_day must be 0-6")
			return
		}
		promptDay = time.Weekday(*req.PromptDay)
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	tenant := &domain.Tenant{
		Name:         req.Name,
		APIKeyHash:   middleware.HashAPIKey(apiKey),
		AccuracyMode: mode,
		PromptDay:    promptDay,
	}

	if err := h.store.Create(r.Context(), tenant); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	writeJSON(w, http.StatusCreated, createTenantResponse{
		ID:           tenant.ID.String(),
		Name:         tenant.Name,
		AccuracyMode: string(tenant.AccuracyMode),
		APIKey:       apiKey,
	})
}

type updateModeRequest struct {
	AccuracyMode string `json:"accuracy_mode"`
}

// UpdateMode changes the authenticated tenant's accuracy mode.
func (h *TenantHandler) UpdateMode(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := domain.ParseAccuracyMode(req.AccuracyMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.UpdateAccuracyMode(r.Context(), tenant.ID, mode); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update accuracy mode")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accuracy_mode": string(mode)})
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "rv_" + hex.EncodeToString(b), nil
}
