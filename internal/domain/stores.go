package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
	UpdateAccuracyMode(ctx context.Context, id uuid.UUID, mode AccuracyMode) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// NodeStore is the slice of the graph store this subsystem touches: the
// supersession fields, retrievability, and similarity lookup for building
// detection contexts. The graph engine itself lives elsewhere.
type NodeStore interface {
	Create(ctx context.Context, n *Node) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*Node, error)
	FindSimilar(ctx context.Context, tenantID uuid.UUID, embedding []float32, threshold float64, limit int) ([]Node, error)
	MarkSuperseded(ctx context.Context, id uuid.UUID, supersededBy uuid.UUID, state SupersededState, decayMultiplier float64, at time.Time) error
	UpdateLifecycle(ctx context.Context, id uuid.UUID, state SupersededState, decayMultiplier float64, dormantSince, archivedAt *time.Time) error
	RecordSupersededAccess(ctx context.Context, id uuid.UUID) error
	ListSuperseded(ctx context.Context, tenantID uuid.UUID) ([]Node, error)
	ListArchived(ctx context.Context, tenantID uuid.UUID) ([]Node, error)
	Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}

// ConflictStore persists the conflict queue and its resolution records.
// The database row is the single path of truth for queue state; services
// hand out snapshots and never mutate shared slices in place.
type ConflictStore interface {
	Insert(ctx context.Context, item *ConflictQueueItem) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*ConflictQueueItem, error)
	ListPending(ctx context.Context, tenantID uuid.UUID) ([]ConflictQueueItem, error)
	CountPending(ctx context.Context, tenantID uuid.UUID) (int, error)
	OldestPending(ctx context.Context, tenantID uuid.UUID) (*ConflictQueueItem, error)
	SetStatus(ctx context.Context, id uuid.UUID, status QueueItemStatus) error
	CreateResolution(ctx context.Context, r *ContradictionResolution) error
	CountResolvedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error)
}

// EventStore persists detection telemetry.
type EventStore interface {
	Create(ctx context.Context, ev *DetectionEvent) error
	ListSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]DetectionEvent, error)
	RecordFeedback(ctx context.Context, id uuid.UUID, agreed bool) error
	CountLabeled(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// EdgeIndex is the slice of the graph's edge store this subsystem touches:
// recording evolution links and answering the strength question deletion
// eligibility asks.
type EdgeIndex interface {
	Link(ctx context.Context, sourceID, targetID uuid.UUID, strength float64) error
	MaxIncomingStrength(ctx context.Context, nodeID uuid.UUID) (float64, error)
}

// ArchiveStore confirms a node's raw content survives in cold storage.
type ArchiveStore interface {
	RawContentExists(ctx context.Context, nodeID uuid.UUID) (bool, error)
}

// ClassifierClient is the external classification service behind the LLM
// and verification tiers. Implementations own all network I/O, retries and
// schema validation; the core receives only validated structured results.
type ClassifierClient interface {
	JudgeRelationship(ctx context.Context, oldContent, newContent string) (*LLMJudgment, error)
	VerifySupersession(ctx context.Context, oldContent, newContent string, detected ConflictType) (*VerificationResult, error)
}
