package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/service"
)

type RetrievalHandler struct {
	svc *service.RetrievalService
}

func NewRetrievalHandler(svc *service.RetrievalService) *RetrievalHandler {
	return &RetrievalHandler{svc: svc}
}

// DetectMode scans a query for history-mode trigger phrases.
func (h *RetrievalHandler) DetectMode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	history, matched := h.svc.DetectHistoryMode(query)
	resp := map[string]any{
		"history_mode": history,
		"matched":      matched,
	}
	if history {
		resp["suggested_mode"] = domain.QueryModeHistory
	} else {
		resp["suggested_mode"] = domain.QueryModeCurrent
	}
	writeJSON(w, http.StatusOK, resp)
}

// ModeConfig returns the superseded-node handling for a query mode.
func (h *RetrievalHandler) ModeConfig(w http.ResponseWriter, r *http.Request) {
	mode, err := domain.ParseQueryMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.QueryModeConfig(mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type activationRequest struct {
	Activation float64 `json:"activation"`
	Superseded bool    `json:"superseded"`
	Spreading  bool    `json:"spreading"`
}

// Activation applies the superseded cap (or spread scaling) to an
// activation value during retrieval.
func (h *RetrievalHandler) Activation(w http.ResponseWriter, r *http.Request) {
	var req activationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var out float64
	if req.Spreading {
		out = h.svc.SupersededSpread(req.Activation, req.Superseded)
	} else {
		n := &domain.Node{}
		if req.Superseded {
			id := n.ID
			n.Supersession.SupersededBy = &id
		}
		out = h.svc.ApplySupersededCap(req.Activation, n)
	}
	writeJSON(w, http.StatusOK, map[string]float64{"activation": out})
}
