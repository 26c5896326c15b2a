package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mnemolab/revise/internal/domain"
)

type ConflictStore struct {
	db *pgxpool.Pool
}

func NewConflictStore(db *pgxpool.Pool) *ConflictStore {
	return &ConflictStore{db: db}
}

const conflictColumns = `id, tenant_id, node_id, new_content, conflict_type, found_by_tier,
	confidence, context, entity_id, topic, created_at, expires_at, status`

func (s *ConflictStore) Insert(ctx context.Context, item *domain.ConflictQueueItem) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO conflict_queue (id, tenant_id, node_id, new_content, conflict_type, found_by_tier,
		     confidence, context, entity_id, topic, created_at, expires_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.ID, item.TenantID, item.NodeID, item.NewContent, string(item.ConflictType),
		string(item.FoundByTier), item.Confidence, item.Context, item.EntityID, item.Topic,
		item.CreatedAt, item.ExpiresAt, string(item.Status),
	)
	return err
}

func (s *ConflictStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.ConflictQueueItem, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM conflict_queue WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	item, err := scanConflict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *ConflictStore) ListPending(ctx context.Context, tenantID uuid.UUID) ([]domain.ConflictQueueItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+conflictColumns+`
		 FROM conflict_queue
		 WHERE tenant_id = $1 AND status = $2
		 ORDER BY created_at ASC`,
		tenantID, string(domain.StatusPending),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ConflictQueueItem
	for rows.Next() {
		item, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ConflictStore) CountPending(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM conflict_queue WHERE tenant_id = $1 AND status = $2`,
		tenantID, string(domain.StatusPending),
	).Scan(&count)
	return count, err
}

func (s *ConflictStore) OldestPending(ctx context.Context, tenantID uuid.UUID) (*domain.ConflictQueueItem, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+conflictColumns+`
		 FROM conflict_queue
		 WHERE tenant_id = $1 AND status = $2
		 ORDER BY created_at ASC
		 LIMIT 1`,
		tenantID, string(domain.StatusPending),
	)
	item, err := scanConflict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *ConflictStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.QueueItemStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE conflict_queue SET status = $2 WHERE id = $1 AND status = $3`,
		id, string(status), string(domain.StatusPending),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ConflictStore) CreateResolution(ctx context.Context, r *domain.ContradictionResolution) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO contradiction_resolutions (id, item_id, resolved_by, choice, merged_content, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.ItemID, string(r.ResolvedBy), string(r.Choice), r.MergedContent, r.ResolvedAt,
	)
	return err
}

func (s *ConflictStore) CountResolvedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM contradiction_resolutions r
		 JOIN conflict_queue q ON q.id = r.item_id
		 WHERE q.tenant_id = $1 AND r.resolved_at >= $2`,
		tenantID, since,
	).Scan(&count)
	return count, err
}

func scanConflict(row rowScanner) (*domain.ConflictQueueItem, error) {
	item := &domain.ConflictQueueItem{}
	var conflictType, tier, status string
	err := row.Scan(
		&item.ID, &item.TenantID, &item.NodeID, &item.NewContent, &conflictType, &tier,
		&item.Confidence, &item.Context, &item.EntityID, &item.Topic,
		&item.CreatedAt, &item.ExpiresAt, &status,
	)
	if err != nil {
		return nil, err
	}
	item.ConflictType = domain.ConflictType(conflictType)
	item.FoundByTier = domain.Tier(tier)
	item.Status = domain.QueueItemStatus(status)
	return item, nil
}
