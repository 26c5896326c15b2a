package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mnemolab/revise/internal/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

type NodeStore struct {
	db *pgxpool.Pool
}

func NewNodeStore(db *pgxpool.Pool) *NodeStore {
	return &NodeStore{db: db}
}

const nodeColumns = `id, tenant_id, content, summary, entity_id, attribute_type,
	retrievability, decay_rate, access_count, last_accessed_at,
	superseded_by, superseded_at, superseded_state, decay_multiplier,
	accesses_since_superseded, accesses_since_archived, dormant_since, archived_at,
	created_at, updated_at`

func (s *NodeStore) Create(ctx context.Context, n *domain.Node) error {
	var embedding *pgvector.Vector
	if len(n.Embedding) > 0 {
		v := pgvector.NewVector(n.Embedding)
		embedding = &v
	}
	if n.Retrievability == 0 {
		n.Retrievability = 1.0
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO graph_nodes (tenant_id, content, summary, embedding, entity_id, attribute_type, retrievability, decay_rate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		n.TenantID, n.Content, n.Summary, embedding, n.EntityID, n.AttributeType,
		n.Retrievability, n.DecayRate,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

func (s *NodeStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Node, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM graph_nodes WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	n, err := scanNode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (s *NodeStore) FindSimilar(ctx context.Context, tenantID uuid.UUID, embedding []float32, threshold float64, limit int) ([]domain.Node, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx,
		`SELECT `+nodeColumns+`
		 FROM graph_nodes
		 WHERE tenant_id = $1
		   AND embedding IS NOT NULL
		   AND superseded_by IS NULL
		   AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		tenantID, vec, threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *NodeStore) MarkSuperseded(ctx context.Context, id uuid.UUID, supersededBy uuid.UUID, state domain.SupersededState, decayMultiplier float64, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE graph_nodes
		 SET superseded_by = $2, superseded_at = $3, superseded_state = $4,
		     decay_multiplier = $5, accesses_since_superseded = 0, updated_at = now()
		 WHERE id = $1`,
		id, supersededBy, at, string(state), decayMultiplier,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NodeStore) UpdateLifecycle(ctx context.Context, id uuid.UUID, state domain.SupersededState, decayMultiplier float64, dormantSince, archivedAt *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE graph_nodes
		 SET superseded_state = $2, decay_multiplier = $3,
		     dormant_since = $4, archived_at = $5, updated_at = now()
		 WHERE id = $1`,
		id, string(state), decayMultiplier, dormantSince, archivedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NodeStore) RecordSupersededAccess(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE graph_nodes
		 SET accesses_since_superseded = accesses_since_superseded + 1,
		     accesses_since_archived = CASE WHEN archived_at IS NOT NULL
		         THEN accesses_since_archived + 1 ELSE accesses_since_archived END,
		     access_count = access_count + 1,
		     last_accessed_at = now(), updated_at = now()
		 WHERE id = $1 AND superseded_by IS NOT NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NodeStore) ListSuperseded(ctx context.Context, tenantID uuid.UUID) ([]domain.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+nodeColumns+`
		 FROM graph_nodes
		 WHERE tenant_id = $1 AND superseded_by IS NOT NULL
		   AND superseded_state != $2`,
		tenantID, string(domain.SupersededDeleted),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *NodeStore) ListArchived(ctx context.Context, tenantID uuid.UUID) ([]domain.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+nodeColumns+`
		 FROM graph_nodes
		 WHERE tenant_id = $1 AND superseded_state = $2`,
		tenantID, string(domain.SupersededArchived),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *NodeStore) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE graph_nodes
		 SET superseded_state = $3, content = '', summary = '', embedding = NULL,
		     decay_multiplier = 0, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, string(domain.SupersededDeleted),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*domain.Node, error) {
	n := &domain.Node{}
	var state *string
	err := row.Scan(
		&n.ID, &n.TenantID, &n.Content, &n.Summary, &n.EntityID, &n.AttributeType,
		&n.Retrievability, &n.DecayRate, &n.AccessCount, &n.LastAccessedAt,
		&n.Supersession.SupersededBy, &n.Supersession.SupersededAt, &state,
		&n.Supersession.DecayMultiplier,
		&n.Supersession.AccessesSinceSuperseded, &n.Supersession.AccessesSinceArchived,
		&n.Supersession.DormantSince, &n.Supersession.ArchivedAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if state != nil {
		n.Supersession.State = domain.SupersededState(*state)
	}
	return n, nil
}

func scanNodes(rows pgx.Rows) ([]domain.Node, error) {
	var nodes []domain.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}
