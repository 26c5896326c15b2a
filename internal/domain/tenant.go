package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant owns a knowledge graph and its conflict queue. Every queue and
// lifecycle operation is scoped to a single tenant.
type Tenant struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	APIKeyHash   string       `json:"-"`
	AccuracyMode AccuracyMode `json:"accuracy_mode"`
	PromptDay    time.Weekday `json:"prompt_day"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
