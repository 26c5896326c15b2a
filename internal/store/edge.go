package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EdgeStore records node-to-node links and answers edge-strength questions
// for deletion eligibility.
type EdgeStore struct {
	db *pgxpool.Pool
}

func NewEdgeStore(db *pgxpool.Pool) *EdgeStore {
	return &EdgeStore{db: db}
}

func (s *EdgeStore) Link(ctx context.Context, sourceID, targetID uuid.UUID, strength float64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO node_edges (source_id, target_id, strength)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source_id, target_id) DO UPDATE SET strength = EXCLUDED.strength`,
		sourceID, targetID, strength,
	)
	return err
}

func (s *EdgeStore) MaxIncomingStrength(ctx context.Context, nodeID uuid.UUID) (float64, error) {
	var strength float64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(strength), 0) FROM node_edges WHERE target_id = $1`,
		nodeID,
	).Scan(&strength)
	return strength, err
}
