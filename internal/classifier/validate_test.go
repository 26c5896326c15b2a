package classifier

import (
	"strings"
	"testing"

	"github.com/mnemolab/revise/internal/domain"
)

func TestParseJudgment(t *testing.T) {
	raw := `{
		"relationship": "update",
		"confidence": 0.92,
		"reasoning": "phone number replaced",
		"which_current": "new",
		"time_dependent": false,
		"ambiguous": false
	}`

	j, err := ParseJudgment(raw)
	if err != nil {
		t.Fatal(err)
	}
	if j.Relationship != domain.RelationshipUpdate {
		t.Errorf("Relationship = %v, want update", j.Relationship)
	}
	if j.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", j.Confidence)
	}
	if j.WhichCurrent != "new" {
		t.Errorf("WhichCurrent = %q, want new", j.WhichCurrent)
	}
}

func TestParseJudgment_DecoratedOutput(t *testing.T) {
	// Models wrap responses in markdown fences or leave trailing commas.
	tests := []struct {
		name string
		raw  string
	}{
		{
			"markdown fence",
			"```json\n{\"relationship\": \"contradiction\", \"confidence\": 0.8, \"reasoning\": \"\", \"which_current\": \"unclear\", \"time_dependent\": false, \"ambiguous\": true}\n```",
		},
		{
			"trailing comma",
			`{"relationship": "evolution", "confidence": 0.7, "reasoning": "opinion shifted", "which_current": "new", "time_dependent": true, "ambiguous": false,}`,
		},
		{
			"uppercase relationship",
			`{"relationship": "UPDATE", "confidence": 0.9, "reasoning": "", "which_current": "new", "time_dependent": false, "ambiguous": false}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := ParseJudgment(tt.raw)
			if err != nil {
				t.Fatalf("ParseJudgment: %v", err)
			}
			if j.Confidence <= 0 {
				t.Errorf("Confidence = %v, want positive", j.Confidence)
			}
		})
	}
}

func TestParseJudgment_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			"unknown relationship",
			`{"relationship": "replaces", "confidence": 0.9, "which_current": "new"}`,
			"unknown relationship",
		},
		{
			"confidence above range",
			`{"relationship": "update", "confidence": 1.5, "which_current": "new"}`,
			"out of range",
		},
		{
			"confidence below range",
			`{"relationship": "update", "confidence": -0.1, "which_current": "new"}`,
			"out of range",
		},
		{
			"unknown which_current",
			`{"relationship": "update", "confidence": 0.9, "which_current": "both"}`,
			"unknown which_current",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJudgment(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseVerification(t *testing.T) {
	raw := `{
		"should_supersede": true,
		"confidence": 0.88,
		"concerns": ["temporal ambiguity"],
		"recommendation": "supersede"
	}`

	v, err := ParseVerification(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !v.ShouldSupersede {
		t.Error("ShouldSupersede = false, want true")
	}
	if v.Confidence != 0.88 {
		t.Errorf("Confidence = %v, want 0.88", v.Confidence)
	}
	if len(v.Concerns) != 1 || v.Concerns[0] != "temporal ambiguity" {
		t.Errorf("Concerns = %v", v.Concerns)
	}
}

func TestParseVerification_MissingConcerns(t *testing.T) {
	raw := `{"should_supersede": false, "confidence": 0.6, "recommendation": "queue"}`

	v, err := ParseVerification(raw)
	if err != nil {
		t.Fatal(err)
	}
	if v.Concerns == nil {
		t.Error("Concerns should never be nil")
	}
	if len(v.Concerns) != 0 {
		t.Errorf("Concerns = %v, want empty", v.Concerns)
	}
}

func TestParseVerification_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown recommendation", `{"should_supersede": true, "confidence": 0.9, "recommendation": "archive"}`},
		{"confidence out of range", `{"should_supersede": true, "confidence": 2.0, "recommendation": "supersede"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseVerification(tt.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
