package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultDecayRate is the base forgetting rate assigned to new nodes.
const DefaultDecayRate = 0.1

// SupersededState is the lifecycle stage of a node after it has been
// superseded by newer information. ARCHIVED and DELETED are terminal:
// once set they are never re-derived from retrievability.
type SupersededState string

const (
	SupersededActive   SupersededState = "SUPERSEDED_ACTIVE"
	SupersededFading   SupersededState = "SUPERSEDED_FADING"
	SupersededDormant  SupersededState = "SUPERSEDED_DORMANT"
	SupersededArchived SupersededState = "SUPERSEDED_ARCHIVED"
	SupersededDeleted  SupersededState = "SUPERSEDED_DELETED"
)

func ParseSupersededState(s string) (SupersededState, error) {
	switch SupersededState(s) {
	case SupersededActive, SupersededFading, SupersededDormant, SupersededArchived, SupersededDeleted:
		return SupersededState(s), nil
	}
	return "", fmt.Errorf("unknown superseded state %q", s)
}

// Terminal reports whether the state is sticky.
func (s SupersededState) Terminal() bool {
	return s == SupersededArchived || s == SupersededDeleted
}

// Supersession holds the lifecycle fields attached to a superseded node.
// Mutated only by the lifecycle manager and by access events.
type Supersession struct {
	SupersededBy            *uuid.UUID      `json:"superseded_by,omitempty"`
	SupersededAt            *time.Time      `json:"superseded_at,omitempty"`
	State                   SupersededState `json:"superseded_state,omitempty"`
	DecayMultiplier         float64         `json:"decay_multiplier,omitempty"`
	AccessesSinceSuperseded int             `json:"accesses_since_superseded"`
	AccessesSinceArchived   int             `json:"accesses_since_archived"`
	DormantSince            *time.Time      `json:"dormant_since,omitempty"`
	ArchivedAt              *time.Time      `json:"archived_at,omitempty"`
}

// Node is a fact/belief node in the knowledge graph. The subsystem only
// reads and writes the supersession fields plus retrievability; everything
// else belongs to the graph store proper.
type Node struct {
	ID             uuid.UUID      `json:"id"`
	TenantID       uuid.UUID      `json:"tenant_id,omitempty"`
	Content        string         `json:"content"`
	Summary        string         `json:"summary,omitempty"`
	Embedding      []float32      `json:"-"`
	EntityID       string         `json:"entity_id,omitempty"`
	AttributeType  string         `json:"attribute_type,omitempty"`
	Retrievability float64        `json:"retrievability"`
	DecayRate      float64        `json:"decay_rate"`
	AccessCount    int            `json:"access_count"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Supersession   Supersession   `json:"supersession"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Superseded reports whether the node has been superseded by another node.
func (n *Node) Superseded() bool {
	return n.Supersession.SupersededBy != nil
}

// TransitionTrigger is the reason a lifecycle state change fired.
type TransitionTrigger string

const (
	TriggerDecay           TransitionTrigger = "decay"
	TriggerTime            TransitionTrigger = "time"
	TriggerStoragePressure TransitionTrigger = "storage_pressure"
	TriggerUserAccess      TransitionTrigger = "user_access"
)

// StateTransition describes a lifecycle state change for a superseded node.
type StateTransition struct {
	NodeID  uuid.UUID         `json:"node_id"`
	From    SupersededState   `json:"from"`
	To      SupersededState   `json:"to"`
	Trigger TransitionTrigger `json:"trigger"`
	At      time.Time         `json:"at"`
}

// DeletionEligibility is the result of the five-way deletion check. A node
// may only be deleted when every criterion holds.
type DeletionEligibility struct {
	ArchivedLongEnough   bool `json:"archived_long_enough"`
	NoAccessSinceArchive bool `json:"no_access_since_archive"`
	NoStrongEdges        bool `json:"no_strong_edges"`
	SuccessorAlive       bool `json:"successor_alive"`
	RawContentArchived   bool `json:"raw_content_archived"`
}

func (e DeletionEligibility) Eligible() bool {
	return e.ArchivedLongEnough &&
		e.NoAccessSinceArchive &&
		e.NoStrongEdges &&
		e.SuccessorAlive &&
		e.RawContentArchived
}
