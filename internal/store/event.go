package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mnemolab/revise/internal/domain"
)

type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ctx context.Context, ev *domain.DetectionEvent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO detection_events (id, tenant_id, tier_reached, conflict_type, confidence,
		     detected, auto_resolved, resolution, user_agreed, mode, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ev.ID, ev.TenantID, string(ev.TierReached), string(ev.ConflictType), ev.Confidence,
		ev.Detected, ev.AutoResolved, string(ev.Resolution), ev.UserAgreed, string(ev.Mode),
		ev.CreatedAt,
	)
	return err
}

func (s *EventStore) ListSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]domain.DetectionEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, tier_reached, conflict_type, confidence,
		        detected, auto_resolved, resolution, user_agreed, mode, created_at
		 FROM detection_events
		 WHERE tenant_id = $1 AND created_at >= $2
		 ORDER BY created_at ASC`,
		tenantID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.DetectionEvent
	for rows.Next() {
		var ev domain.DetectionEvent
		var tier, conflictType, resolution, mode string
		if err := rows.Scan(&ev.ID, &ev.TenantID, &tier, &conflictType, &ev.Confidence,
			&ev.Detected, &ev.AutoResolved, &resolution, &ev.UserAgreed, &mode,
			&ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.TierReached = domain.Tier(tier)
		ev.ConflictType = domain.ConflictType(conflictType)
		ev.Resolution = domain.ResolutionStrategy(resolution)
		ev.Mode = domain.AccuracyMode(mode)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *EventStore) RecordFeedback(ctx context.Context, id uuid.UUID, agreed bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE detection_events SET user_agreed = $2 WHERE id = $1`,
		id, agreed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EventStore) CountLabeled(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM detection_events
		 WHERE tenant_id = $1 AND user_agreed IS NOT NULL`,
		tenantID,
	).Scan(&count)
	return count, err
}
