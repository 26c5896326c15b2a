package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/api/middleware"
	"github.com/mnemolab/revise/internal/service"
	"github.com/mnemolab/revise/internal/store"
)

type MetricsHandler struct {
	svc *service.MetricsService
}

func NewMetricsHandler(svc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

// Weekly returns the last seven days of accuracy metrics plus any alerts.
func (h *MetricsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	report, err := h.svc.WeeklyReport(r.Context(), tenant.ID, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": report,
		"alerts":  h.svc.Alerts(report),
	})
}

type feedbackRequest struct {
	EventID string `json:"event_id"`
	Agreed  bool   `json:"agreed"`
}

// Feedback attaches user agreement to a detection event.
func (h *MetricsHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event_id")
		return
	}

	if err := h.svc.RecordFeedback(r.Context(), eventID, req.Agreed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// Training reports whether the classifier tier should (re)train.
func (h *MetricsHandler) Training(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hasModel := r.URL.Query().Get("has_model") == "true"
	rec, err := h.svc.TrainingRecommendation(r.Context(), tenant.ID, hasModel)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute recommendation")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
