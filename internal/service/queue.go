package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/store"
	"go.uber.org/zap"
)

// ErrAlreadyResolved is returned when resolving an item whose status has
// already left pending. Resolved items are immutable.
var ErrAlreadyResolved = errors.New("conflict already resolved")

// QueueConfig bounds the per-tenant conflict queue.
type QueueConfig struct {
	MaxPending       int
	TTL              time.Duration
	SuggestHigh      float64 // at or above: suggest new_is_current
	SuggestLow       float64 // below: suggest keep_both
	DefaultPromptDay time.Weekday
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxPending:       20,
		TTL:              14 * 24 * time.Hour,
		SuggestHigh:      0.7,
		SuggestLow:       0.4,
		DefaultPromptDay: time.Sunday,
	}
}

// QueueService owns all conflict-queue mutation. The store row is the
// single path of truth; callers only ever see snapshots.
type QueueService struct {
	cfg    QueueConfig
	store  domain.ConflictStore
	logger *zap.Logger
	now    func() time.Time
}

func NewQueueService(cfg QueueConfig, cs domain.ConflictStore, logger *zap.Logger) *QueueService {
	return &QueueService{cfg: cfg, store: cs, logger: logger, now: time.Now}
}

// Enqueue admits a new conflict, evicting the oldest pending items first
// when the queue is at capacity. Evictions are recorded as auto-resolved
// keep-both decisions so nothing disappears without an audit record.
func (s *QueueService) Enqueue(ctx context.Context, item *domain.ConflictQueueItem) ([]domain.ContradictionResolution, error) {
	now := s.now()

	var evicted []domain.ContradictionResolution
	for {
		count, err := s.store.CountPending(ctx, item.TenantID)
		if err != nil {
			return nil, fmt.Errorf("count pending: %w", err)
		}
		if count < s.cfg.MaxPending {
			break
		}
		oldest, err := s.store.OldestPending(ctx, item.TenantID)
		if err != nil {
			return nil, fmt.Errorf("oldest pending: %w", err)
		}
		res, err := s.autoResolve(ctx, oldest, domain.ResolvedByAuto, now)
		if err != nil {
			return nil, err
		}
		s.logger.Info("evicted oldest pending conflict",
			zap.String("tenant_id", item.TenantID.String()),
			zap.String("item_id", oldest.ID.String()))
		evicted = append(evicted, *res)
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = now
	item.ExpiresAt = now.Add(s.cfg.TTL)
	item.Status = domain.StatusPending
	if err := s.store.Insert(ctx, item); err != nil {
		return evicted, fmt.Errorf("insert conflict: %w", err)
	}
	return evicted, nil
}

// Resolve applies an explicit user decision to a pending item. Missing
// items and items no longer pending both fail; a resolution is recorded
// exactly once per item.
func (s *QueueService) Resolve(ctx context.Context, tenantID, itemID uuid.UUID, choice domain.ResolutionChoice, mergedContent string) (*domain.ContradictionResolution, error) {
	item, err := s.store.GetByID(ctx, itemID, tenantID)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.StatusPending {
		return nil, fmt.Errorf("conflict %s: %w", itemID, ErrAlreadyResolved)
	}
	if choice == domain.ChoiceMerge && mergedContent == "" {
		return nil, fmt.Errorf("merge resolution requires merged content")
	}

	res := &domain.ContradictionResolution{
		ID:            uuid.New(),
		ItemID:        item.ID,
		ResolvedBy:    domain.ResolvedByUser,
		Choice:        choice,
		MergedContent: mergedContent,
		ResolvedAt:    s.now(),
	}
	if err := s.store.CreateResolution(ctx, res); err != nil {
		return nil, fmt.Errorf("record resolution: %w", err)
	}
	if err := s.store.SetStatus(ctx, item.ID, domain.StatusResolved); err != nil {
		return nil, fmt.Errorf("mark resolved: %w", err)
	}
	return res, nil
}

// ProcessExpired auto-resolves every pending item whose expiry has passed.
// All other items are untouched.
func (s *QueueService) ProcessExpired(ctx context.Context, tenantID uuid.UUID) ([]domain.ContradictionResolution, error) {
	pending, err := s.store.ListPending(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	now := s.now()

	var resolved []domain.ContradictionResolution
	for i := range pending {
		item := &pending[i]
		if item.ExpiresAt.After(now) {
			continue
		}
		res, err := s.autoResolve(ctx, item, domain.ResolvedByTimeout, now)
		if err != nil {
			return resolved, err
		}
		resolved = append(resolved, *res)
	}
	if len(resolved) > 0 {
		s.logger.Info("auto-resolved expired conflicts",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("count", len(resolved)))
	}
	return resolved, nil
}

func (s *QueueService) autoResolve(ctx context.Context, item *domain.ConflictQueueItem, by domain.ResolvedBy, now time.Time) (*domain.ContradictionResolution, error) {
	res := &domain.ContradictionResolution{
		ID:         uuid.New(),
		ItemID:     item.ID,
		ResolvedBy: by,
		Choice:     domain.ChoiceKeepBoth,
		ResolvedAt: now,
	}
	if err := s.store.CreateResolution(ctx, res); err != nil {
		return nil, fmt.Errorf("record auto resolution: %w", err)
	}
	if err := s.store.SetStatus(ctx, item.ID, domain.StatusAutoResolved); err != nil {
		return nil, fmt.Errorf("mark auto-resolved: %w", err)
	}
	return res, nil
}

// Pending returns the tenant's pending conflicts prepared for display.
func (s *QueueService) Pending(ctx context.Context, tenantID uuid.UUID) ([]domain.ConflictPresentation, error) {
	items, err := s.store.ListPending(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	out := make([]domain.ConflictPresentation, 0, len(items))
	for _, item := range items {
		out = append(out, domain.ConflictPresentation{
			Item:      item,
			Suggested: s.SuggestResolution(item.Confidence),
		})
	}
	return out, nil
}

// SuggestResolution picks a default choice from detection confidence: high
// confidence favors the new value, low confidence favors keeping both, and
// the middle band gets no suggestion.
func (s *QueueService) SuggestResolution(confidence float64) *domain.ResolutionChoice {
	var c domain.ResolutionChoice
	switch {
	case confidence >= s.cfg.SuggestHigh:
		c = domain.ChoiceNewIsCurrent
	case confidence < s.cfg.SuggestLow:
		c = domain.ChoiceKeepBoth
	default:
		return nil
	}
	return &c
}

// Status summarizes the queue for the tenant.
func (s *QueueService) Status(ctx context.Context, tenantID uuid.UUID) (*domain.QueueStatus, error) {
	pending, err := s.store.ListPending(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	status := &domain.QueueStatus{
		PendingCount: len(pending),
		AtCapacity:   len(pending) >= s.cfg.MaxPending,
	}
	for i := range pending {
		item := &pending[i]
		if status.OldestPendingAt == nil || item.CreatedAt.Before(*status.OldestPendingAt) {
			t := item.CreatedAt
			status.OldestPendingAt = &t
		}
		if status.NextAutoResolveAt == nil || item.ExpiresAt.Before(*status.NextAutoResolveAt) {
			t := item.ExpiresAt
			status.NextAutoResolveAt = &t
		}
	}
	weekAgo := s.now().Add(-7 * 24 * time.Hour)
	resolved, err := s.store.CountResolvedSince(ctx, tenantID, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("count resolved: %w", err)
	}
	status.ResolvedThisWeek = resolved
	return status, nil
}

// ShouldPrompt reports whether the weekly review prompt is due: at least
// one pending conflict and today is the tenant's prompt day.
func (s *QueueService) ShouldPrompt(ctx context.Context, tenantID uuid.UUID, promptDay time.Weekday) (bool, error) {
	count, err := s.store.CountPending(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("count pending: %w", err)
	}
	return count > 0 && s.now().Weekday() == promptDay, nil
}

// IsNotFound reports whether err is the store's missing-row sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
