package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/domain"
	"go.uber.org/zap"
)

// LifecycleConfig tunes the supersession state machine. Caller-supplied so
// tenants and tests can run with different aging curves.
type LifecycleConfig struct {
	ActiveThreshold  float64 // R above this stays SUPERSEDED_ACTIVE
	FadingThreshold  float64 // R above this (and below active) is FADING
	DormantToArchive time.Duration
	ArchiveToDelete  time.Duration
	MaxEdgeStrength  float64 // strongest allowed incoming edge for deletion
	StoragePressure  float64 // capacity fraction that schedules an audit
	AccessCap        float64 // effective multiplier ceiling on user access
	DecayMultipliers map[domain.SupersededState]float64
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		ActiveThreshold:  0.3,
		FadingThreshold:  0.1,
		DormantToArchive: 90 * 24 * time.Hour,
		ArchiveToDelete:  180 * 24 * time.Hour,
		MaxEdgeStrength:  0.5,
		StoragePressure:  0.80,
		AccessCap:        2,
		DecayMultipliers: map[domain.SupersededState]float64{
			domain.SupersededActive:   3,
			domain.SupersededFading:   4,
			domain.SupersededDormant:  5,
			domain.SupersededArchived: 5,
			domain.SupersededDeleted:  0,
		},
	}
}

// LifecycleService ages superseded nodes through
// ACTIVE → FADING → DORMANT → ARCHIVED → DELETED.
type LifecycleService struct {
	cfg     LifecycleConfig
	nodes   domain.NodeStore
	edges   domain.EdgeIndex
	archive domain.ArchiveStore
	logger  *zap.Logger
}

func NewLifecycleService(cfg LifecycleConfig, nodes domain.NodeStore, edges domain.EdgeIndex, archive domain.ArchiveStore, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{cfg: cfg, nodes: nodes, edges: edges, archive: archive, logger: logger}
}

// DetermineState derives the lifecycle state from current retrievability.
// Terminal states are sticky and returned unchanged. DORMANT escalates to
// ARCHIVED after the node has been continuously dormant long enough.
// A dormant node whose retrievability recovers moves back up; only
// ARCHIVED and DELETED block re-derivation.
func (s *LifecycleService) DetermineState(n *domain.Node, now time.Time) domain.SupersededState {
	if n.Supersession.State.Terminal() {
		return n.Supersession.State
	}
	r := n.Retrievability
	switch {
	case r > s.cfg.ActiveThreshold:
		return domain.SupersededActive
	case r > s.cfg.FadingThreshold:
		return domain.SupersededFading
	default:
		if since := n.Supersession.DormantSince; since != nil &&
			now.Sub(*since) >= s.cfg.DormantToArchive {
			return domain.SupersededArchived
		}
		return domain.SupersededDormant
	}
}

// DecayMultiplier returns the multiplier applied on top of the node's
// normal forgetting-curve decay rate in a given state. Unknown states fail
// fast rather than decaying silently.
func (s *LifecycleService) DecayMultiplier(state domain.SupersededState) (float64, error) {
	m, ok := s.cfg.DecayMultipliers[state]
	if !ok {
		return 0, fmt.Errorf("no decay multiplier for state %q", state)
	}
	return m, nil
}

// EffectiveMultiplier caps the multiplier when a user actively accessed the
// node, so touched memories fade more gently regardless of state.
func (s *LifecycleService) EffectiveMultiplier(state domain.SupersededState, userAccess bool) (float64, error) {
	m, err := s.DecayMultiplier(state)
	if err != nil {
		return 0, err
	}
	if userAccess && m > s.cfg.AccessCap {
		return s.cfg.AccessCap, nil
	}
	return m, nil
}

// CheckStateTransition reports a transition only when the derived state
// differs from the stored one. Deleted nodes never transition.
func (s *LifecycleService) CheckStateTransition(n *domain.Node, now time.Time, userAccess bool) *domain.StateTransition {
	if n.Supersession.State == domain.SupersededDeleted {
		return nil
	}
	derived := s.DetermineState(n, now)
	if derived == n.Supersession.State {
		return nil
	}
	trigger := domain.TriggerDecay
	switch {
	case userAccess:
		trigger = domain.TriggerUserAccess
	case derived == domain.SupersededArchived:
		trigger = domain.TriggerTime
	}
	return &domain.StateTransition{
		NodeID:  n.ID,
		From:    n.Supersession.State,
		To:      derived,
		Trigger: trigger,
		At:      now,
	}
}

// ApplyTransition persists a transition, maintaining dormant-since and
// archived-at bookkeeping.
func (s *LifecycleService) ApplyTransition(ctx context.Context, n *domain.Node, tr *domain.StateTransition) error {
	multiplier, err := s.DecayMultiplier(tr.To)
	if err != nil {
		return err
	}

	dormantSince := n.Supersession.DormantSince
	archivedAt := n.Supersession.ArchivedAt
	switch tr.To {
	case domain.SupersededDormant:
		if dormantSince == nil {
			t := tr.At
			dormantSince = &t
		}
	case domain.SupersededArchived:
		if archivedAt == nil {
			t := tr.At
			archivedAt = &t
		}
	default:
		dormantSince = nil
	}

	if err := s.nodes.UpdateLifecycle(ctx, n.ID, tr.To, multiplier, dormantSince, archivedAt); err != nil {
		return fmt.Errorf("update lifecycle for node %s: %w", n.ID, err)
	}

	s.logger.Debug("superseded node transitioned",
		zap.String("node_id", n.ID.String()),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("trigger", string(tr.Trigger)))
	return nil
}

// CheckDeletionEligibility evaluates the five deletion criteria. Deletion
// requires every one of them; a single failure disqualifies the node.
func (s *LifecycleService) CheckDeletionEligibility(ctx context.Context, n *domain.Node, now time.Time) (domain.DeletionEligibility, error) {
	var e domain.DeletionEligibility

	if at := n.Supersession.ArchivedAt; at != nil {
		e.ArchivedLongEnough = now.Sub(*at) >= s.cfg.ArchiveToDelete
	}
	e.NoAccessSinceArchive = n.Supersession.AccessesSinceArchived == 0

	strength, err := s.edges.MaxIncomingStrength(ctx, n.ID)
	if err != nil {
		return e, fmt.Errorf("edge strength for node %s: %w", n.ID, err)
	}
	e.NoStrongEdges = strength <= s.cfg.MaxEdgeStrength

	if by := n.Supersession.SupersededBy; by != nil {
		successor, err := s.nodes.GetByID(ctx, *by, n.TenantID)
		if err != nil {
			return e, fmt.Errorf("successor of node %s: %w", n.ID, err)
		}
		e.SuccessorAlive = successor.Supersession.State != domain.SupersededDeleted
	}

	exists, err := s.archive.RawContentExists(ctx, n.ID)
	if err != nil {
		return e, fmt.Errorf("archive check for node %s: %w", n.ID, err)
	}
	e.RawContentArchived = exists

	return e, nil
}

// StoragePressureAudit reports whether current capacity warrants scheduling
// a deletion audit. The audit reviews candidates; it never authorizes
// deletion by itself.
func (s *LifecycleService) StoragePressureAudit(currentCapacity float64) bool {
	return currentCapacity >= s.cfg.StoragePressure
}

// RetrievalExposureFor says where a superseded node in this state may still
// surface during retrieval.
func RetrievalExposureFor(state domain.SupersededState) (domain.RetrievalExposure, error) {
	switch state {
	case domain.SupersededActive, domain.SupersededFading:
		return domain.ExposureHistoryOnly, nil
	case domain.SupersededDormant, domain.SupersededArchived:
		return domain.ExposureAuditOnly, nil
	case domain.SupersededDeleted:
		return domain.ExposureNone, nil
	}
	return "", fmt.Errorf("unknown superseded state %q", state)
}

// ContentExposureFor says how much of the node's content each state keeps.
func ContentExposureFor(state domain.SupersededState) (domain.ContentExposure, error) {
	switch state {
	case domain.SupersededActive, domain.SupersededFading:
		return domain.ContentFull, nil
	case domain.SupersededDormant:
		return domain.ContentSummary, nil
	case domain.SupersededArchived:
		return domain.ContentReference, nil
	case domain.SupersededDeleted:
		return domain.ContentGone, nil
	}
	return "", fmt.Errorf("unknown superseded state %q", state)
}

// SweepTenant walks a tenant's superseded nodes, applies any due
// transitions, and returns them plus the ids flagged deletion-eligible.
func (s *LifecycleService) SweepTenant(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]domain.StateTransition, []uuid.UUID, error) {
	nodes, err := s.nodes.ListSuperseded(ctx, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("list superseded for tenant %s: %w", tenantID, err)
	}

	var transitions []domain.StateTransition
	var deletable []uuid.UUID
	for i := range nodes {
		n := &nodes[i]
		if tr := s.CheckStateTransition(n, now, false); tr != nil {
			if err := s.ApplyTransition(ctx, n, tr); err != nil {
				s.logger.Warn("failed to apply lifecycle transition",
					zap.String("node_id", n.ID.String()), zap.Error(err))
				continue
			}
			transitions = append(transitions, *tr)
			n.Supersession.State = tr.To
		}
		if n.Supersession.State == domain.SupersededArchived {
			elig, err := s.CheckDeletionEligibility(ctx, n, now)
			if err != nil {
				s.logger.Warn("failed deletion eligibility check",
					zap.String("node_id", n.ID.String()), zap.Error(err))
				continue
			}
			if elig.Eligible() {
				deletable = append(deletable, n.ID)
			}
		}
	}
	return transitions, deletable, nil
}
