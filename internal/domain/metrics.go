package domain

import (
	"time"

	"github.com/google/uuid"
)

// DetectionEvent is one pipeline run recorded for telemetry. UserAgreed is
// filled in later if the user confirms or overturns the detection.
type DetectionEvent struct {
	ID           uuid.UUID          `json:"id"`
	TenantID     uuid.UUID          `json:"tenant_id"`
	TierReached  Tier               `json:"tier_reached"`
	ConflictType ConflictType       `json:"conflict_type,omitempty"`
	Confidence   float64            `json:"confidence"`
	Detected     bool               `json:"detected"`
	AutoResolved bool               `json:"auto_resolved"`
	Resolution   ResolutionStrategy `json:"resolution,omitempty"`
	UserAgreed   *bool              `json:"user_agreed,omitempty"`
	Mode         AccuracyMode       `json:"mode"`
	CreatedAt    time.Time          `json:"created_at"`
}

// TierAccuracy aggregates user feedback for a single tier over a period.
type TierAccuracy struct {
	Tier         Tier    `json:"tier"`
	Events       int     `json:"events"`
	WithFeedback int     `json:"with_feedback"`
	Agreements   int     `json:"agreements"`
	Accuracy     float64 `json:"accuracy"`
}

// ModeBreakdown aggregates events per accuracy mode.
type ModeBreakdown struct {
	Mode         AccuracyMode `json:"mode"`
	Events       int          `json:"events"`
	AutoResolved int          `json:"auto_resolved"`
}

// AccuracyMetrics is the weekly aggregate used for monitoring and training
// triggers. Telemetry only, never authoritative state.
type AccuracyMetrics struct {
	PeriodStart           time.Time       `json:"period_start"`
	PeriodEnd             time.Time       `json:"period_end"`
	PerTier               []TierAccuracy  `json:"per_tier"`
	FalsePositiveRate     float64         `json:"false_positive_rate"`
	AutoSupersedeAccuracy float64         `json:"auto_supersede_accuracy"`
	PerMode               []ModeBreakdown `json:"per_mode"`
	TotalEvents           int             `json:"total_events"`
}

// AlertKind identifies which metric crossed its threshold.
type AlertKind string

const (
	AlertTierAccuracy          AlertKind = "tier_accuracy_low"
	AlertAutoSupersedeAccuracy AlertKind = "auto_supersede_accuracy_low"
	AlertFalsePositiveRate     AlertKind = "false_positive_rate_high"
)

// Alert is raised when a weekly metric crosses its configured threshold.
type Alert struct {
	Kind      AlertKind `json:"kind"`
	Tier      Tier      `json:"tier,omitempty"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
}

// TrainingRecommendation says whether the local classifier tier has enough
// labeled examples to (re)train.
type TrainingRecommendation struct {
	Recommended     bool   `json:"recommended"`
	Retrain         bool   `json:"retrain"`
	LabeledExamples int    `json:"labeled_examples"`
	Reason          string `json:"reason"`
}
