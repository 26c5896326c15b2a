package domain

import (
	"time"
)

// ConflictType categorizes how a new piece of information relates to an
// existing node when the two disagree.
type ConflictType string

const (
	ConflictFactUpdate          ConflictType = "FACT_UPDATE"
	ConflictCorrection          ConflictType = "CORRECTION"
	ConflictBeliefContradiction ConflictType = "BELIEF_CONTRADICTION"
	ConflictBeliefEvolution     ConflictType = "BELIEF_EVOLUTION"
	ConflictSourceConflict      ConflictType = "SOURCE_CONFLICT"
	ConflictAmbiguous           ConflictType = "AMBIGUOUS"
)

// ResolutionStrategy is what the system intends to do with the old node.
type ResolutionStrategy string

const (
	StrategySupersedeOld   ResolutionStrategy = "supersede_old"
	StrategyKeepBothLinked ResolutionStrategy = "keep_both_linked"
	StrategySourceRanking  ResolutionStrategy = "source_ranking"
	StrategyQueueForUser   ResolutionStrategy = "queue_for_user"
)

// Sentiment polarity of a statement. Neutral never participates in a flip.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// DetectionContext carries everything a single old-vs-new comparison needs.
// Ephemeral: built per comparison by the caller, never persisted.
type DetectionContext struct {
	OldValue             string    `json:"old_value"`
	NewValue             string    `json:"new_value"`
	OldTimestamp         time.Time `json:"old_timestamp"`
	NewTimestamp         time.Time `json:"new_timestamp"`
	OldSourceConfidence  float64   `json:"old_source_confidence"`
	NewSourceConfidence  float64   `json:"new_source_confidence"`
	HasSentimentFlip     bool      `json:"has_sentiment_flip"`
	HasScopeExpansion    bool      `json:"has_scope_expansion"`
	HasCorrectionPattern bool      `json:"has_correction_pattern"`
	EntityID             string    `json:"entity_id,omitempty"`
	AttributeType        string    `json:"attribute_type,omitempty"`
}

// TypeClassification is the output of the conflict-type classifier.
type TypeClassification struct {
	Type          ConflictType       `json:"type"`
	Confidence    float64            `json:"confidence"`
	AutoSupersede bool               `json:"auto_supersede"`
	Strategy      ResolutionStrategy `json:"strategy"`
	Reasoning     string             `json:"reasoning"`
}

// Tier is one detector stage of the six-stage pipeline, ordered by
// increasing cost and accuracy.
type Tier string

const (
	TierStructural   Tier = "structural"
	TierNormalized   Tier = "normalized"
	TierPattern      Tier = "pattern"
	TierClassifier   Tier = "classifier"
	TierLLM          Tier = "llm"
	TierVerification Tier = "verification"
)

// TierOrder is the fixed execution order of the pipeline.
var TierOrder = []Tier{
	TierStructural,
	TierNormalized,
	TierPattern,
	TierClassifier,
	TierLLM,
	TierVerification,
}

// TierResult is the uniform outcome of one tier invocation. The sequence of
// these forms the pipeline's audit trail.
type TierResult struct {
	Tier         Tier          `json:"tier"`
	Detected     bool          `json:"detected"`
	Confidence   float64       `json:"confidence"`
	ConflictType ConflictType  `json:"conflict_type,omitempty"`
	Continue     bool          `json:"continue"`
	Elapsed      time.Duration `json:"elapsed"`
	Cost         float64       `json:"cost"`
}

// PipelineResult is the outcome of a full tiered detection run.
type PipelineResult struct {
	Detected      bool               `json:"detected"`
	ConflictType  ConflictType       `json:"conflict_type,omitempty"`
	Confidence    float64            `json:"confidence"`
	AutoSupersede bool               `json:"auto_supersede"`
	Strategy      ResolutionStrategy `json:"strategy,omitempty"`
	TierReached   Tier               `json:"tier_reached"`
	Trail         []TierResult       `json:"trail"`
}

// LLMRelationship is the relationship kind returned by the external
// classification service for the LLM tier.
type LLMRelationship string

const (
	RelationshipUpdate        LLMRelationship = "update"
	RelationshipContradiction LLMRelationship = "contradiction"
	RelationshipEvolution     LLMRelationship = "evolution"
	RelationshipCoexistence   LLMRelationship = "coexistence"
	RelationshipUnrelated     LLMRelationship = "unrelated"
)

// LLMJudgment is the validated structured output of the external
// classification service for the LLM tier. Produced at the system boundary;
// the core never parses raw model output itself.
type LLMJudgment struct {
	Relationship  LLMRelationship `json:"relationship"`
	Confidence    float64         `json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	WhichCurrent  string          `json:"which_current"` // "old", "new", or "unclear"
	TimeDependent bool            `json:"time_dependent"`
	Ambiguous     bool            `json:"ambiguous"`
}

// VerificationResult is the validated structured output of the adversarial
// verification tier, which argues against the detected contradiction to
// catch false positives.
type VerificationResult struct {
	ShouldSupersede bool     `json:"should_supersede"`
	Confidence      float64  `json:"confidence"`
	Concerns        []string `json:"concerns"`
	Recommendation  string   `json:"recommendation"` // "supersede", "keep_both", or "queue"
}
