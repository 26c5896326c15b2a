package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/api/middleware"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/store"
)

type NodeHandler struct {
	nodes domain.NodeStore
}

func NewNodeHandler(nodes domain.NodeStore) *NodeHandler {
	return &NodeHandler{nodes: nodes}
}

type createNodeRequest struct {
	Content       string    `json:"content"`
	Summary       string    `json:"summary,omitempty"`
	Embedding     []float32 `json:"embedding,omitempty"`
	EntityID      string    `json:"entity_id,omitempty"`
	AttributeType string    `json:"attribute_type,omitempty"`
}

// Create stores a graph node so later content can be checked against it.
func (h *NodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	now := time.Now()
	node := &domain.Node{
		ID:             uuid.New(),
		TenantID:       tenant.ID,
		Content:        req.Content,
		Summary:        req.Summary,
		Embedding:      req.Embedding,
		EntityID:       req.EntityID,
		AttributeType:  req.AttributeType,
		Retrievability: 1.0,
		DecayRate:      domain.DefaultDecayRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.nodes.Create(r.Context(), node); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create node")
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// GetByID returns a single node.
func (h *NodeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, node)
}

type similarRequest struct {
	Embedding []float32 `json:"embedding"`
	Threshold float64   `json:"threshold,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Similar finds candidate nodes for detection by embedding similarity.
func (h *NodeHandler) Similar(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req similarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Embedding) == 0 {
		writeError(w, http.StatusBadRequest, "embedding is required")
		return
	}
	if req.Threshold <= 0 {
		req.Threshold = 0.85
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	nodes, err := h.nodes.FindSimilar(r.Context(), tenant.ID, req.Embedding, req.Threshold, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "similarity search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"count": len(nodes),
	})
}
