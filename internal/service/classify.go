package service

import (
	"fmt"
	"math"

	"github.com/mnemolab/revise/internal/domain"
)

const (
	FactUpdateConfidence          = 0.95
	CorrectionConfidence          = 0.90
	BeliefContradictionConfidence = 0.85
	BeliefEvolutionConfidence     = 0.80
	SourceConflictConfidence      = 0.75
	AmbiguousConfidence           = 0.50

	// Source confidences further apart than this make the conflict a
	// question of source trust rather than content.
	SourceConfidenceGap = 0.2
)

// ClassifyConflictType maps a detection context to exactly one conflict
// type. Rules are evaluated in priority order and the fallback matches
// everything, so the function is total.
func ClassifyConflictType(ctx domain.DetectionContext) domain.TypeClassification {
	if ctx.EntityID != "" && ctx.AttributeType != "" &&
		ctx.OldValue != ctx.NewValue && !ctx.HasCorrectionPattern {
		return domain.TypeClassification{
			Type:          domain.ConflictFactUpdate,
			Confidence:    FactUpdateConfidence,
			AutoSupersede: true,
			Strategy:      domain.StrategySupersedeOld,
			Reasoning:     fmt.Sprintf("attribute %q of entity %q changed value", ctx.AttributeType, ctx.EntityID),
		}
	}

	if ctx.HasCorrectionPattern {
		return domain.TypeClassification{
			Type:          domain.ConflictCorrection,
			Confidence:    CorrectionConfidence,
			AutoSupersede: true,
			Strategy:      domain.StrategySupersedeOld,
			Reasoning:     "new statement explicitly corrects the old one",
		}
	}

	if ctx.HasSentimentFlip && !ctx.HasScopeExpansion {
		return domain.TypeClassification{
			Type:          domain.ConflictBeliefContradiction,
			Confidence:    BeliefContradictionConfidence,
			AutoSupersede: true,
			Strategy:      domain.StrategySupersedeOld,
			Reasoning:     "sentiment flipped with no scope change",
		}
	}

	if ctx.HasScopeExpansion && !ctx.HasSentimentFlip {
		return domain.TypeClassification{
			Type:          domain.ConflictBeliefEvolution,
			Confidence:    BeliefEvolutionConfidence,
			AutoSupersede: false,
			Strategy:      domain.StrategyKeepBothLinked,
			Reasoning:     "belief broadened rather than reversed",
		}
	}

	if math.Abs(ctx.OldSourceConfidence-ctx.NewSourceConfidence) > SourceConfidenceGap {
		winner := "new"
		if ctx.OldSourceConfidence > ctx.NewSourceConfidence {
			winner = "old"
		}
		return domain.TypeClassification{
			Type:          domain.ConflictSourceConflict,
			Confidence:    SourceConflictConfidence,
			AutoSupersede: true,
			Strategy:      domain.StrategySourceRanking,
			Reasoning:     fmt.Sprintf("source confidence gap favors the %s value", winner),
		}
	}

	return domain.TypeClassification{
		Type:          domain.ConflictAmbiguous,
		Confidence:    AmbiguousConfidence,
		AutoSupersede: false,
		Strategy:      domain.StrategyQueueForUser,
		Reasoning:     "no decisive signal; needs human review",
	}
}

// SentimentFlipped reports whether two sentiments are strictly opposite.
// Neutral never flips against either polarity.
func SentimentFlipped(prev, next domain.Sentiment) bool {
	if prev == domain.SentimentNeutral || next == domain.SentimentNeutral {
		return false
	}
	return prev != next
}

// SourceRankingWinner picks the surviving value for a SOURCE_CONFLICT.
// Ties favor the newer value.
func SourceRankingWinner(ctx domain.DetectionContext) string {
	if ctx.OldSourceConfidence > ctx.NewSourceConfidence {
		return ctx.OldValue
	}
	return ctx.NewValue
}
