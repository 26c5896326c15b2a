package domain

import "fmt"

// QueryMode selects how retrieval treats superseded nodes.
type QueryMode string

const (
	QueryModeCurrent   QueryMode = "current"
	QueryModeHistory   QueryMode = "history"
	QueryModeAsOf      QueryMode = "as_of"
	QueryModeFullAudit QueryMode = "full_audit"
)

func ParseQueryMode(s string) (QueryMode, error) {
	switch QueryMode(s) {
	case QueryModeCurrent, QueryModeHistory, QueryModeAsOf, QueryModeFullAudit:
		return QueryMode(s), nil
	}
	return "", fmt.Errorf("unknown query mode %q", s)
}

// QueryModeConfig is the superseded-node handling for a query mode.
type QueryModeConfig struct {
	Mode              QueryMode `json:"mode"`
	IncludeSuperseded bool      `json:"include_superseded"`
	ActivationPenalty float64   `json:"activation_penalty"`
}

// RetrievalExposure says where a superseded node may still surface.
type RetrievalExposure string

const (
	ExposureHistoryOnly RetrievalExposure = "history_only"
	ExposureAuditOnly   RetrievalExposure = "audit_only"
	ExposureNone        RetrievalExposure = "none"
)

// ContentExposure says how much of a superseded node's content survives.
type ContentExposure string

const (
	ContentFull      ContentExposure = "full"
	ContentSummary   ContentExposure = "summary"
	ContentReference ContentExposure = "reference_only"
	ContentGone      ContentExposure = "gone"
)
