package service

import (
	"regexp"
	"strings"

	"github.com/mnemolab/revise/internal/domain"
)

// Pattern-tier scoring weights. Additive on a 0.50 base, clamped to [0,1].
const (
	patternBaseScore     = 0.50
	patternEntityBoost   = 0.15
	patternValueBoost    = 0.10
	patternTemporalBoost = 0.10
	patternDisqualifier  = 0.30
	patternEntityWindow  = 10 // words
)

// attributeSynonyms maps raw attribute tokens to canonical attributes.
// Unmatched tokens pass through unchanged.
var attributeSynonyms = map[string]string{
	"cell":      "contact.phone",
	"mobile":    "contact.phone",
	"phone":     "contact.phone",
	"cellphone": "contact.phone",
	"email":     "contact.email",
	"e-mail":    "contact.email",
	"mail":      "contact.email",
	"address":   "location.address",
	"home":      "location.address",
	"residence": "location.address",
	"city":      "location.city",
	"hometown":  "location.city",
	"job":       "work.role",
	"role":      "work.role",
	"title":     "work.role",
	"position":  "work.role",
	"employer":  "work.company",
	"company":   "work.company",
	"workplace": "work.company",
	"birthday":  "identity.birthdate",
	"birthdate": "identity.birthdate",
	"dob":       "identity.birthdate",
	"name":      "identity.name",
	"nickname":  "identity.name",
}

// NormalizeAttribute canonicalizes a raw attribute token.
func NormalizeAttribute(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := attributeSynonyms[key]; ok {
		return canonical
	}
	return raw
}

// temporalSignals hint that the new statement is describing change over time.
var temporalSignals = []string{
	"used to", "no longer", "not anymore", "anymore",
	"now ", "nowadays", "these days", "recently",
	"switched to", "changed to", "moved to",
}

// correctionPatterns mark an explicit correction of earlier information.
var correctionPatterns = []string{
	"actually", "i meant", "i misspoke", "correction",
	"that's wrong", "that was wrong", "not true", "i was wrong",
	"to clarify", "let me correct",
}

// disqualifyingPhrases mark speculation that should not count as conflict.
var disqualifyingPhrases = []string{
	"might", "maybe", "possibly", "not sure", "i think",
	"hypothetically", "what if", "wondering", "could be",
	"used to wonder",
}

var concreteValueRe = regexp.MustCompile(`\d|[A-Z][a-z]+`)

// HasCorrectionPattern reports whether the text contains an explicit
// correction marker.
func HasCorrectionPattern(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range correctionPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasTemporalSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range temporalSignals {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasDisqualifier(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range disqualifyingPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// entityWithinWindow reports whether the entity reference appears within
// patternEntityWindow words of the start of the statement.
func entityWithinWindow(text, entity string) bool {
	if entity == "" {
		return false
	}
	words := strings.Fields(strings.ToLower(text))
	needle := strings.ToLower(entity)
	limit := patternEntityWindow
	if len(words) < limit {
		limit = len(words)
	}
	for i := 0; i < limit; i++ {
		if strings.Contains(words[i], needle) {
			return true
		}
	}
	return false
}

// PatternScore computes the pattern-tier confidence for a new statement.
// Always within [0, 1] regardless of the trigger/disqualifier combination.
func PatternScore(text, entity string) float64 {
	score := patternBaseScore
	if entityWithinWindow(text, entity) {
		score += patternEntityBoost
	}
	if concreteValueRe.MatchString(text) {
		score += patternValueBoost
	}
	if hasTemporalSignal(text) {
		score += patternTemporalBoost
	}
	if hasDisqualifier(text) {
		score -= patternDisqualifier
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// runStructural detects a conflict when both statements address the same
// canonical structured slot (entity + attribute) with different values. Raw
// synonym attributes are left for the normalized tier to claim.
func (d *Detector) runStructural(ctx domain.DetectionContext) domain.TierResult {
	r := domain.TierResult{Tier: domain.TierStructural, Cost: 0}
	if ctx.EntityID != "" && ctx.AttributeType != "" &&
		NormalizeAttribute(ctx.AttributeType) == ctx.AttributeType &&
		ctx.OldValue != ctx.NewValue {
		r.Detected = true
		r.Confidence = d.cfg.StructuralThreshold
		r.ConflictType = domain.ConflictFactUpdate
		r.Continue = false
		return r
	}
	r.Continue = true
	return r
}

// runNormalized retries the structural comparison after canonicalizing the
// attribute tokens through the synonym table.
func (d *Detector) runNormalized(ctx domain.DetectionContext) domain.TierResult {
	r := domain.TierResult{Tier: domain.TierNormalized, Cost: 0}
	if ctx.EntityID == "" || ctx.AttributeType == "" {
		r.Continue = true
		return r
	}
	canonical := NormalizeAttribute(ctx.AttributeType)
	if canonical != ctx.AttributeType && ctx.OldValue != ctx.NewValue {
		r.Detected = true
		r.Confidence = d.cfg.NormalizedThreshold
		r.ConflictType = domain.ConflictFactUpdate
		r.Continue = false
		return r
	}
	r.Continue = true
	return r
}

// runPattern scores the new statement against contradiction surface
// patterns. High scores detect, mid scores pass the decision deeper.
func (d *Detector) runPattern(ctx domain.DetectionContext) domain.TierResult {
	r := domain.TierResult{Tier: domain.TierPattern, Cost: 0}
	score := PatternScore(ctx.NewValue, ctx.EntityID)
	r.Confidence = score
	switch {
	case score >= d.cfg.PatternHighThreshold:
		r.Detected = true
		r.Continue = false
	case score >= d.cfg.PatternContinueThreshold:
		r.Continue = true
	default:
		r.Continue = false
	}
	return r
}

// classifier-tier feature weights. A small logistic model over the
// detection-context features, bootstrapped by hand until enough labeled
// examples accumulate to train a real one.
const (
	classifierBias             = -1.2
	classifierFlipWeight       = 2.1
	classifierCorrectionWeight = 2.4
	classifierSourceGapWeight  = 1.5
	classifierValueDiffWeight  = 0.8
)

// runClassifier scores the context with the local feature model.
func (d *Detector) runClassifier(ctx domain.DetectionContext) domain.TierResult {
	r := domain.TierResult{Tier: domain.TierClassifier, Cost: 0.001}
	x := classifierBias
	if ctx.HasSentimentFlip {
		x += classifierFlipWeight
	}
	if ctx.HasCorrectionPattern {
		x += classifierCorrectionWeight
	}
	gap := ctx.OldSourceConfidence - ctx.NewSourceConfidence
	if gap < 0 {
		gap = -gap
	}
	x += classifierSourceGapWeight * gap
	if ctx.OldValue != ctx.NewValue {
		x += classifierValueDiffWeight
	}
	r.Confidence = Sigmoid(x)
	r.Detected = r.Confidence >= d.cfg.ClassifierThreshold
	r.Continue = true
	return r
}
