package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/domain"
	"go.uber.org/zap"
)

// DetectionAction is what the pipeline decided to do with the old node.
type DetectionAction string

const (
	ActionSuperseded DetectionAction = "superseded"
	ActionQueued     DetectionAction = "queued"
	ActionLinked     DetectionAction = "linked"
	ActionNone       DetectionAction = "none"
)

// DetectionOutcome is the full result of handling one piece of new content
// against an existing node.
type DetectionOutcome struct {
	Result     *domain.PipelineResult           `json:"result"`
	Action     DetectionAction                  `json:"action"`
	NewNodeID  *uuid.UUID                       `json:"new_node_id,omitempty"`
	QueuedItem *domain.ConflictQueueItem        `json:"queued_item,omitempty"`
	Evicted    []domain.ContradictionResolution `json:"evicted,omitempty"`
}

// evolutionLinkStrength is the edge strength recorded between an evolved
// belief and its predecessor. Above the deletion threshold, so a linked
// predecessor is never deleted while the chain stands.
const evolutionLinkStrength = 0.6

// ResolutionService orchestrates the detector, node store, conflict queue
// and telemetry into the single entry point callers use when new
// information arrives for an existing node.
type ResolutionService struct {
	detector  *Detector
	lifecycle *LifecycleService
	queue     *QueueService
	nodes     domain.NodeStore
	edges     domain.EdgeIndex
	metrics   *MetricsService
	logger    *zap.Logger
}

func NewResolutionService(detector *Detector, lifecycle *LifecycleService, queue *QueueService, nodes domain.NodeStore, edges domain.EdgeIndex, metrics *MetricsService, logger *zap.Logger) *ResolutionService {
	return &ResolutionService{
		detector:  detector,
		lifecycle: lifecycle,
		queue:     queue,
		nodes:     nodes,
		edges:     edges,
		metrics:   metrics,
		logger:    logger,
	}
}

// Classify is the cheap entry point: classify the conflict type without
// running the tiered pipeline or touching any store.
func (s *ResolutionService) Classify(dctx domain.DetectionContext) domain.TypeClassification {
	return ClassifyConflictType(dctx)
}

// HandleNewContent runs the tiered pipeline for new content against an
// existing node and applies the outcome: supersede the old node, queue the
// conflict for the user, link evolving beliefs, or do nothing.
func (s *ResolutionService) HandleNewContent(ctx context.Context, tenantID, nodeID uuid.UUID, newContent string, dctx domain.DetectionContext, mode domain.AccuracyMode) (*DetectionOutcome, error) {
	old, err := s.nodes.GetByID(ctx, nodeID, tenantID)
	if err != nil {
		return nil, err
	}
	if dctx.OldValue == "" {
		dctx.OldValue = old.Content
	}
	if dctx.NewValue == "" {
		dctx.NewValue = newContent
	}

	result, err := s.detector.Run(ctx, dctx, mode)
	if err != nil {
		return nil, fmt.Errorf("detection pipeline: %w", err)
	}

	outcome := &DetectionOutcome{Result: result, Action: ActionNone}

	switch {
	case result.Detected && result.AutoSupersede:
		newID, err := s.supersede(ctx, old, newContent, dctx)
		if err != nil {
			return nil, err
		}
		outcome.Action = ActionSuperseded
		outcome.NewNodeID = &newID

	case result.Detected && result.Strategy == domain.StrategyKeepBothLinked:
		newID, err := s.link(ctx, old, newContent, dctx)
		if err != nil {
			return nil, err
		}
		outcome.Action = ActionLinked
		outcome.NewNodeID = &newID

	case result.Detected:
		item := &domain.ConflictQueueItem{
			TenantID:     tenantID,
			NodeID:       old.ID,
			NewContent:   newContent,
			ConflictType: result.ConflictType,
			FoundByTier:  result.TierReached,
			Confidence:   result.Confidence,
			Context:      dctx.OldValue,
			EntityID:     dctx.EntityID,
		}
		evicted, err := s.queue.Enqueue(ctx, item)
		if err != nil {
			return nil, err
		}
		outcome.Action = ActionQueued
		outcome.QueuedItem = item
		outcome.Evicted = evicted
	}

	ev := &domain.DetectionEvent{
		TenantID:     tenantID,
		TierReached:  result.TierReached,
		ConflictType: result.ConflictType,
		Confidence:   result.Confidence,
		Detected:     result.Detected,
		AutoResolved: outcome.Action == ActionSuperseded,
		Resolution:   result.Strategy,
		Mode:         mode,
	}
	if err := s.metrics.LogEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to log detection event", zap.Error(err))
	}

	return outcome, nil
}

func (s *ResolutionService) supersede(ctx context.Context, old *domain.Node, newContent string, dctx domain.DetectionContext) (uuid.UUID, error) {
	successor, err := s.createSuccessor(ctx, old, newContent, dctx)
	if err != nil {
		return uuid.Nil, err
	}

	multiplier, err := s.lifecycle.DecayMultiplier(domain.SupersededActive)
	if err != nil {
		return uuid.Nil, err
	}
	now := time.Now()
	if err := s.nodes.MarkSuperseded(ctx, old.ID, successor.ID, domain.SupersededActive, multiplier, now); err != nil {
		return uuid.Nil, fmt.Errorf("mark node %s superseded: %w", old.ID, err)
	}

	s.logger.Info("node superseded",
		zap.String("old_node_id", old.ID.String()),
		zap.String("new_node_id", successor.ID.String()))
	return successor.ID, nil
}

// link keeps both nodes current: the evolved belief is stored as a new node
// with an edge back to its predecessor, and neither is superseded.
func (s *ResolutionService) link(ctx context.Context, old *domain.Node, newContent string, dctx domain.DetectionContext) (uuid.UUID, error) {
	successor, err := s.createSuccessor(ctx, old, newContent, dctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.edges.Link(ctx, successor.ID, old.ID, evolutionLinkStrength); err != nil {
		return uuid.Nil, fmt.Errorf("link node %s to %s: %w", successor.ID, old.ID, err)
	}

	s.logger.Info("evolving beliefs linked",
		zap.String("old_node_id", old.ID.String()),
		zap.String("new_node_id", successor.ID.String()))
	return successor.ID, nil
}

func (s *ResolutionService) createSuccessor(ctx context.Context, old *domain.Node, newContent string, dctx domain.DetectionContext) (*domain.Node, error) {
	successor := &domain.Node{
		TenantID:       old.TenantID,
		Content:        newContent,
		EntityID:       dctx.EntityID,
		AttributeType:  dctx.AttributeType,
		Retrievability: 1.0,
		DecayRate:      old.DecayRate,
	}
	if err := s.nodes.Create(ctx, successor); err != nil {
		return nil, fmt.Errorf("create successor node: %w", err)
	}
	return successor, nil
}
