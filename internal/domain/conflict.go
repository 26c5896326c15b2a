package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueueItemStatus is the lifecycle of a conflict awaiting resolution.
// Items are immutable once the status leaves pending.
type QueueItemStatus string

const (
	StatusPending      QueueItemStatus = "pending"
	StatusResolved     QueueItemStatus = "resolved"
	StatusAutoResolved QueueItemStatus = "auto_resolved"
)

// ResolutionChoice is the outcome a resolver picks for a queued conflict.
type ResolutionChoice string

const (
	ChoiceOldIsCurrent ResolutionChoice = "old_is_current"
	ChoiceNewIsCurrent ResolutionChoice = "new_is_current"
	ChoiceKeepBoth     ResolutionChoice = "keep_both"
	ChoiceMerge        ResolutionChoice = "merge"
)

func ParseResolutionChoice(s string) (ResolutionChoice, error) {
	switch ResolutionChoice(s) {
	case ChoiceOldIsCurrent, ChoiceNewIsCurrent, ChoiceKeepBoth, ChoiceMerge:
		return ResolutionChoice(s), nil
	}
	return "", fmt.Errorf("unknown resolution choice %q", s)
}

// ResolvedBy records who or what resolved a conflict.
type ResolvedBy string

const (
	ResolvedByUser    ResolvedBy = "user"
	ResolvedByAuto    ResolvedBy = "auto"
	ResolvedByTimeout ResolvedBy = "timeout"
)

// ConflictQueueItem is one ambiguous conflict waiting for human input.
type ConflictQueueItem struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	NodeID       uuid.UUID       `json:"node_id"`
	NewContent   string          `json:"new_content"`
	ConflictType ConflictType    `json:"conflict_type"`
	FoundByTier  Tier            `json:"found_by_tier"`
	Confidence   float64         `json:"confidence"`
	Context      string          `json:"context,omitempty"`
	EntityID     string          `json:"entity_id,omitempty"`
	Topic        string          `json:"topic,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Status       QueueItemStatus `json:"status"`
}

// ContradictionResolution is the append-only audit record produced when a
// queue item is resolved, by whatever path.
type ContradictionResolution struct {
	ID            uuid.UUID        `json:"id"`
	ItemID        uuid.UUID        `json:"item_id"`
	ResolvedBy    ResolvedBy       `json:"resolved_by"`
	Choice        ResolutionChoice `json:"choice"`
	MergedContent string           `json:"merged_content,omitempty"`
	ResolvedAt    time.Time        `json:"resolved_at"`
}

// QueueStatus is a summary of a tenant's conflict queue.
type QueueStatus struct {
	PendingCount      int        `json:"pending_count"`
	OldestPendingAt   *time.Time `json:"oldest_pending_at,omitempty"`
	NextAutoResolveAt *time.Time `json:"next_auto_resolve_at,omitempty"`
	ResolvedThisWeek  int        `json:"resolved_this_week"`
	AtCapacity        bool       `json:"at_capacity"`
}

// ConflictPresentation is a queue item prepared for display, with an
// optional suggested resolution based on detection confidence.
type ConflictPresentation struct {
	Item      ConflictQueueItem `json:"item"`
	Suggested *ResolutionChoice `json:"suggested,omitempty"`
}
