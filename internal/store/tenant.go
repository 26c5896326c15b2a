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

type TenantStore struct {
	db *pgxpool.Pool
}

func NewTenantStore(db *pgxpool.Pool) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	if t.AccuracyMode == "" {
		t.AccuracyMode = domain.ModeBalanced
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, api_key_hash, accuracy_mode, prompt_day)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.APIKeyHash, string(t.AccuracyMode), int(t.PromptDay),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *TenantStore) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var mode string
	var promptDay int
	err := s.db.QueryRow(ctx,
		`SELECT id, name, api_key_hash, accuracy_mode, prompt_day, created_at, updated_at
		 FROM tenants WHERE api_key_hash = $1`,
		apiKeyHash,
	).Scan(&t.ID, &t.Name, &t.APIKeyHash, &mode, &promptDay, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.AccuracyMode = domain.AccuracyMode(mode)
	t.PromptDay = time.Weekday(promptDay)
	return t, nil
}

func (s *TenantStore) UpdateAccuracyMode(ctx context.Context, id uuid.UUID, mode domain.AccuracyMode) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants SET accuracy_mode = $2, updated_at = now() WHERE id = $1`,
		id, string(mode),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TenantStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
