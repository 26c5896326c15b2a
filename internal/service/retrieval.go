package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/mnemolab/revise/internal/domain"
)

// RetrievalConfig shapes how superseded nodes participate in retrieval.
type RetrievalConfig struct {
	ActivationCap  float64 // ceiling on a superseded node's activation
	SpreadFactor   float64 // scale on activation spreading out of one
	HistoryPenalty float64 // activation multiplier in history mode
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		ActivationCap:  0.3,
		SpreadFactor:   0.5,
		HistoryPenalty: 0.5,
	}
}

// historyTriggers are query phrasings that ask about past rather than
// current state.
var historyTriggers = []string{
	"used to",
	"previously",
	"in the past",
	"back then",
	"before",
	"how has",
	"changed over",
	"what did i",
	"history of",
	"evolution of",
	"originally",
}

// RetrievalService is the query-time integration: mode detection,
// activation shaping for superseded nodes, and history-context injection.
type RetrievalService struct {
	cfg RetrievalConfig
}

func NewRetrievalService(cfg RetrievalConfig) *RetrievalService {
	return &RetrievalService{cfg: cfg}
}

// DetectHistoryMode scans the query for history-mode trigger phrases. Any
// match suggests switching the retrieval query mode to history.
func (s *RetrievalService) DetectHistoryMode(query string) (bool, []string) {
	lower := strings.ToLower(query)
	var matched []string
	for _, t := range historyTriggers {
		if strings.Contains(lower, t) {
			matched = append(matched, t)
		}
	}
	return len(matched) > 0, matched
}

// QueryModeConfig returns the superseded-node handling for a query mode.
// Unknown modes fail fast.
func (s *RetrievalService) QueryModeConfig(mode domain.QueryMode) (domain.QueryModeConfig, error) {
	switch mode {
	case domain.QueryModeCurrent:
		return domain.QueryModeConfig{Mode: mode, IncludeSuperseded: false, ActivationPenalty: 0}, nil
	case domain.QueryModeHistory:
		return domain.QueryModeConfig{Mode: mode, IncludeSuperseded: true, ActivationPenalty: s.cfg.HistoryPenalty}, nil
	case domain.QueryModeAsOf, domain.QueryModeFullAudit:
		return domain.QueryModeConfig{Mode: mode, IncludeSuperseded: true, ActivationPenalty: 1.0}, nil
	}
	return domain.QueryModeConfig{}, fmt.Errorf("unknown query mode %q", mode)
}

// ApplySupersededCap limits a superseded node's activation during
// spreading-activation retrieval. Non-superseded nodes pass through.
func (s *RetrievalService) ApplySupersededCap(activation float64, n *domain.Node) float64 {
	if !n.Superseded() {
		return activation
	}
	if activation > s.cfg.ActivationCap {
		return s.cfg.ActivationCap
	}
	return activation
}

// SupersededSpread scales activation flowing outward from a superseded
// node so stale facts pull less of the graph in with them.
func (s *RetrievalService) SupersededSpread(activation float64, superseded bool) float64 {
	if !superseded {
		return activation
	}
	return activation * s.cfg.SpreadFactor
}

// HistoryContext renders the supersession context injected when a
// superseding node is handed to a downstream reasoning step.
func (s *RetrievalService) HistoryContext(oldContent, newContent string, supersededAt time.Time) string {
	return fmt.Sprintf(
		"Note: this information was updated on %s. It previously said: %q. The current version is: %q.",
		supersededAt.Format("2006-01-02"), oldContent, newContent)
}
