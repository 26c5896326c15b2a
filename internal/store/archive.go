package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArchiveStore checks cold storage for a node's raw original content.
// Deletion is never allowed unless the raw content survives here.
type ArchiveStore struct {
	db *pgxpool.Pool
}

func NewArchiveStore(db *pgxpool.Pool) *ArchiveStore {
	return &ArchiveStore{db: db}
}

func (s *ArchiveStore) RawContentExists(ctx context.Context, nodeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM node_archive WHERE node_id = $1 AND raw_content IS NOT NULL)`,
		nodeID,
	).Scan(&exists)
	return exists, err
}
