package service

import (
	"context"
	"time"

	"github.com/mnemolab/revise/internal/domain"
	"go.uber.org/zap"
)

// DetectorConfig carries the tier thresholds and call costs. Thresholds are
// caller-supplied so the same logic can run with different tuning per
// tenant or in tests.
type DetectorConfig struct {
	StructuralThreshold      float64
	NormalizedThreshold      float64
	PatternHighThreshold     float64
	PatternContinueThreshold float64
	ClassifierThreshold      float64
	LLMAutoThreshold         float64
	VerificationThreshold    float64
	LLMCallCost              float64
}

// DefaultDetectorConfig returns the tuned production thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		StructuralThreshold:      0.95,
		NormalizedThreshold:      0.90,
		PatternHighThreshold:     0.70,
		PatternContinueThreshold: 0.40,
		ClassifierThreshold:      0.70,
		LLMAutoThreshold:         0.80,
		VerificationThreshold:    0.70,
		LLMCallCost:              0.002,
	}
}

// Detector runs the six-tier contradiction pipeline. The LLM and
// verification tiers call out to the external classification service; all
// other tiers are pure.
type Detector struct {
	cfg        DetectorConfig
	classifier domain.ClassifierClient
	logger     *zap.Logger
}

func NewDetector(cfg DetectorConfig, classifier domain.ClassifierClient, logger *zap.Logger) *Detector {
	return &Detector{cfg: cfg, classifier: classifier, logger: logger}
}

// Run executes the tiers allowed by the mode in fixed order, honoring
// early-exit and continuation rules, and returns the result with its
// per-tier audit trail.
func (d *Detector) Run(ctx context.Context, dctx domain.DetectionContext, mode domain.AccuracyMode) (*domain.PipelineResult, error) {
	policy, err := PolicyFor(mode)
	if err != nil {
		return nil, err
	}

	result := &domain.PipelineResult{}
	var llmResult *domain.TierResult
	var judgment *domain.LLMJudgment
	var verification *domain.VerificationResult

	for _, tier := range domain.TierOrder {
		if !policy.TierAllowed(tier) {
			continue
		}

		start := time.Now()
		var tr domain.TierResult
		switch tier {
		case domain.TierStructural:
			tr = d.runStructural(dctx)
		case domain.TierNormalized:
			tr = d.runNormalized(dctx)
		case domain.TierPattern:
			tr = d.runPattern(dctx)
		case domain.TierClassifier:
			tr = d.runClassifier(dctx)
		case domain.TierLLM:
			tr, judgment, err = d.runLLM(ctx, dctx)
			if err != nil {
				return nil, err
			}
			llmResult = &tr
		case domain.TierVerification:
			detected := result.ConflictType
			if detected == "" {
				detected = domain.ConflictAmbiguous
			}
			tr, verification, err = d.runVerification(ctx, dctx, detected)
			if err != nil {
				return nil, err
			}
		}
		tr.Elapsed = time.Since(start)
		result.Trail = append(result.Trail, tr)
		result.TierReached = tier

		if tr.Detected {
			result.Detected = true
			result.Confidence = tr.Confidence
			if tr.ConflictType != "" {
				result.ConflictType = tr.ConflictType
			}
		}

		// A detection at or above the structural threshold is final no
		// matter which tier produced it.
		if tr.Detected && tr.Confidence >= d.cfg.StructuralThreshold {
			break
		}
		// FAST and MANUAL never go past the pattern tier.
		if tier == domain.TierPattern &&
			(mode == domain.ModeFast || mode == domain.ModeManual) {
			break
		}
		if !tr.Continue {
			break
		}
	}

	if result.Detected && result.ConflictType == "" {
		cls := ClassifyConflictType(dctx)
		result.ConflictType = cls.Type
		result.Strategy = cls.Strategy
	} else if result.Detected {
		result.Strategy = strategyFor(result.ConflictType)
	}
	if judgment != nil && result.Detected {
		result.ConflictType = conflictTypeFromRelationship(judgment.Relationship, result.ConflictType)
		result.Strategy = strategyFor(result.ConflictType)
	}

	// Shallow-tier detections auto-supersede on the mode's table alone.
	// Once the LLM tier is involved, the adversarial gate must also pass.
	if result.Detected {
		switch result.TierReached {
		case domain.TierLLM, domain.TierVerification:
			result.AutoSupersede = CanAutoSupersede(mode, llmResult, verification) &&
				policy.MayAutoSupersede(domain.TierLLM)
		default:
			result.AutoSupersede = policy.MayAutoSupersede(result.TierReached)
		}
	}

	return result, nil
}

// CanAutoSupersede is the pipeline-level autonomy gate. Always false in
// MANUAL or FAST mode; otherwise requires the LLM tier to clear its auto
// threshold and the verification tier to recommend supersession with no
// concerns.
func CanAutoSupersede(mode domain.AccuracyMode, llm *domain.TierResult, verification *domain.VerificationResult) bool {
	if mode == domain.ModeManual || mode == domain.ModeFast {
		return false
	}
	if llm == nil || verification == nil {
		return false
	}
	return llm.Confidence >= 0.80 &&
		verification.ShouldSupersede &&
		verification.Recommendation == "supersede" &&
		verification.Confidence >= 0.70 &&
		len(verification.Concerns) == 0
}

func (d *Detector) runLLM(ctx context.Context, dctx domain.DetectionContext) (domain.TierResult, *domain.LLMJudgment, error) {
	tr := domain.TierResult{Tier: domain.TierLLM, Cost: d.cfg.LLMCallCost}
	judgment, err := d.classifier.JudgeRelationship(ctx, dctx.OldValue, dctx.NewValue)
	if err != nil {
		return tr, nil, err
	}
	tr.Confidence = judgment.Confidence
	tr.Detected = judgment.Relationship != domain.RelationshipUnrelated &&
		judgment.Relationship != domain.RelationshipCoexistence &&
		judgment.Confidence >= d.cfg.LLMAutoThreshold
	tr.ConflictType = conflictTypeFromRelationship(judgment.Relationship, "")
	tr.Continue = judgment.Ambiguous || tr.Detected
	return tr, judgment, nil
}

func (d *Detector) runVerification(ctx context.Context, dctx domain.DetectionContext, detected domain.ConflictType) (domain.TierResult, *domain.VerificationResult, error) {
	tr := domain.TierResult{Tier: domain.TierVerification, Cost: d.cfg.LLMCallCost}
	v, err := d.classifier.VerifySupersession(ctx, dctx.OldValue, dctx.NewValue, detected)
	if err != nil {
		return tr, nil, err
	}
	tr.Confidence = v.Confidence
	tr.Detected = v.ShouldSupersede && v.Confidence >= d.cfg.VerificationThreshold
	tr.Continue = false
	return tr, v, nil
}

func conflictTypeFromRelationship(rel domain.LLMRelationship, fallback domain.ConflictType) domain.ConflictType {
	switch rel {
	case domain.RelationshipUpdate:
		return domain.ConflictFactUpdate
	case domain.RelationshipContradiction:
		return domain.ConflictBeliefContradiction
	case domain.RelationshipEvolution:
		return domain.ConflictBeliefEvolution
	case domain.RelationshipCoexistence, domain.RelationshipUnrelated:
		if fallback != "" {
			return fallback
		}
		return domain.ConflictAmbiguous
	}
	if fallback != "" {
		return fallback
	}
	return domain.ConflictAmbiguous
}

func strategyFor(t domain.ConflictType) domain.ResolutionStrategy {
	switch t {
	case domain.ConflictFactUpdate, domain.ConflictCorrection, domain.ConflictBeliefContradiction:
		return domain.StrategySupersedeOld
	case domain.ConflictBeliefEvolution:
		return domain.StrategyKeepBothLinked
	case domain.ConflictSourceConflict:
		return domain.StrategySourceRanking
	default:
		return domain.StrategyQueueForUser
	}
}
