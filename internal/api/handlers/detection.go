package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/api/middleware"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/service"
	"github.com/mnemolab/revise/internal/store"
)

type DetectionHandler struct {
	svc *service.ResolutionService
}

func NewDetectionHandler(svc *service.ResolutionService) *DetectionHandler {
	return &DetectionHandler{svc: svc}
}

type detectionContextRequest struct {
	OldValue             string     `json:"old_value"`
	NewValue             string     `json:"new_value"`
	OldTimestamp         *time.Time `json:"old_timestamp,omitempty"`
	NewTimestamp         *time.Time `json:"new_timestamp,omitempty"`
	OldSourceConfidence  float64    `json:"old_source_confidence"`
	NewSourceConfidence  float64    `json:"new_source_confidence"`
	HasSentimentFlip     bool       `json:"has_sentiment_flip"`
	HasScopeExpansion    bool       `json:"has_scope_expansion"`
	HasCorrectionPattern bool       `json:"has_correction_pattern"`
	EntityID             string     `json:"entity_id,omitempty"`
	AttributeType        string     `json:"attribute_type,omitempty"`
}

func (r detectionContextRequest) toDomain() domain.DetectionContext {
	dctx := domain.DetectionContext{
		OldValue:             r.OldValue,
		NewValue:             r.NewValue,
		OldSourceConfidence:  r.OldSourceConfidence,
		NewSourceConfidence:  r.NewSourceConfidence,
		HasSentimentFlip:     r.HasSentimentFlip,
		HasScopeExpansion:    r.HasScopeExpansion,
		HasCorrectionPattern: r.HasCorrectionPattern,
		EntityID:             r.EntityID,
		AttributeType:        r.AttributeType,
	}
	if r.OldTimestamp != nil {
		dctx.OldTimestamp = *r.OldTimestamp
	}
	if r.NewTimestamp != nil {
		dctx.NewTimestamp = *r.NewTimestamp
	}
	return dctx
}

type classifyRequest struct {
	Context detectionContextRequest `json:"context"`
}

// Classify runs only the rule-based type classifier: cheap, total, no
// stores touched.
func (h *DetectionHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Classify(req.Context.toDomain()))
}

type detectRequest struct {
	NodeID     string                  `json:"node_id"`
	NewContent string                  `json:"new_content"`
	Context    detectionContextRequest `json:"context"`
	Mode       string                  `json:"mode,omitempty"`
}

// Detect runs the tiered pipeline against an existing node and applies the
// outcome (supersede, queue, link, or nothing).
func (h *DetectionHandler) Detect(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	nodeID, err := uuid.Parse(req.NodeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node_id")
		return
	}
	if req.NewContent == "" {
		writeError(w, http.StatusBadRequest, "new_content is required")
		return
	}

	mode := tenant.AccuracyMode
	if req.Mode != "" {
		mode, err = domain.ParseAccuracyMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	outcome, err := h.svc.HandleNewContent(r.Context(), tenant.ID, nodeID, req.NewContent, req.Context.toDomain(), mode)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "node not found")
		default:
			writeError(w, http.StatusInternalServerError, "detection failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
