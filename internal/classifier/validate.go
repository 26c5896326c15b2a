package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/mnemolab/revise/internal/domain"
)

// Models occasionally return truncated or decorated JSON. Repair it before
// validating; validation failures after repair are real schema violations.
func repairAndUnmarshal(raw string, out any) error {
	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return fmt.Errorf("repair json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	return nil
}

// ParseJudgment validates raw classifier output against the fixed
// relationship-judgment field set.
func ParseJudgment(raw string) (*domain.LLMJudgment, error) {
	var payload struct {
		Relationship  string  `json:"relationship"`
		Confidence    float64 `json:"confidence"`
		Reasoning     string  `json:"reasoning"`
		WhichCurrent  string  `json:"which_current"`
		TimeDependent bool    `json:"time_dependent"`
		Ambiguous     bool    `json:"ambiguous"`
	}
	if err := repairAndUnmarshal(raw, &payload); err != nil {
		return nil, err
	}

	rel := domain.LLMRelationship(strings.ToLower(payload.Relationship))
	switch rel {
	case domain.RelationshipUpdate, domain.RelationshipContradiction,
		domain.RelationshipEvolution, domain.RelationshipCoexistence,
		domain.RelationshipUnrelated:
	default:
		return nil, fmt.Errorf("unknown relationship %q", payload.Relationship)
	}
	if payload.Confidence < 0 || payload.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", payload.Confidence)
	}
	switch payload.WhichCurrent {
	case "old", "new", "unclear":
	default:
		return nil, fmt.Errorf("unknown which_current %q", payload.WhichCurrent)
	}

	return &domain.LLMJudgment{
		Relationship:  rel,
		Confidence:    payload.Confidence,
		Reasoning:     payload.Reasoning,
		WhichCurrent:  payload.WhichCurrent,
		TimeDependent: payload.TimeDependent,
		Ambiguous:     payload.Ambiguous,
	}, nil
}

// ParseVerification validates raw classifier output against the fixed
// adversarial-verification field set.
func ParseVerification(raw string) (*domain.VerificationResult, error) {
	var payload struct {
		ShouldSupersede bool     `json:"should_supersede"`
		Confidence      float64  `json:"confidence"`
		Concerns        []string `json:"concerns"`
		Recommendation  string   `json:"recommendation"`
	}
	if err := repairAndUnmarshal(raw, &payload); err != nil {
		return nil, err
	}

	if payload.Confidence < 0 || payload.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", payload.Confidence)
	}
	switch payload.Recommendation {
	case "supersede", "keep_both", "queue":
	default:
		return nil, fmt.Errorf("unknown recommendation %q", payload.Recommendation)
	}
	if payload.Concerns == nil {
		payload.Concerns = []string{}
	}

	return &domain.VerificationResult{
		ShouldSupersede: payload.ShouldSupersede,
		Confidence:      payload.Confidence,
		Concerns:        payload.Concerns,
		Recommendation:  payload.Recommendation,
	}, nil
}
