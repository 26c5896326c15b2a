package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseAccuracyMode(t *testing.T) {
	for _, s := range []string{"FAST", "BALANCED", "THOROUGH", "MANUAL"} {
		if _, err := ParseAccuracyMode(s); err != nil {
			t.Errorf("ParseAccuracyMode(%q): %v", s, err)
		}
	}
	for _, s := range []string{"fast", "TURBO", ""} {
		if _, err := ParseAccuracyMode(s); err == nil {
			t.Errorf("ParseAccuracyMode(%q): expected error", s)
		}
	}
}

func TestParseSupersededState(t *testing.T) {
	for _, s := range []string{
		"SUPERSEDED_ACTIVE", "SUPERSEDED_FADING", "SUPERSEDED_DORMANT",
		"SUPERSEDED_ARCHIVED", "SUPERSEDED_DELETED",
	} {
		if _, err := ParseSupersededState(s); err != nil {
			t.Errorf("ParseSupersededState(%q): %v", s, err)
		}
	}
	if _, err := ParseSupersededState("ACTIVE"); err == nil {
		t.Error("ParseSupersededState(ACTIVE): expected error")
	}
}

func TestSupersededStateTerminal(t *testing.T) {
	tests := []struct {
		state SupersededState
		want  bool
	}{
		{SupersededActive, false},
		{SupersededFading, false},
		{SupersededDormant, false},
		{SupersededArchived, true},
		{SupersededDeleted, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%v.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestNodeSuperseded(t *testing.T) {
	n := &Node{}
	if n.Superseded() {
		t.Error("fresh node should not be superseded")
	}
	successor := uuid.New()
	n.Supersession.SupersededBy = &successor
	if !n.Superseded() {
		t.Error("node with successor should be superseded")
	}
}

func TestDeletionEligibility(t *testing.T) {
	all := DeletionEligibility{
		ArchivedLongEnough:   true,
		NoAccessSinceArchive: true,
		NoStrongEdges:        true,
		SuccessorAlive:       true,
		RawContentArchived:   true,
	}
	if !all.Eligible() {
		t.Error("all criteria met should be eligible")
	}

	// Any single failing criterion blocks deletion.
	perturbed := []DeletionEligibility{
		{false, true, true, true, true},
		{true, false, true, true, true},
		{true, true, false, true, true},
		{true, true, true, false, true},
		{true, true, true, true, false},
	}
	for i, e := range perturbed {
		if e.Eligible() {
			t.Errorf("case %d: expected not eligible: %+v", i, e)
		}
	}
}

func TestParseResolutionChoice(t *testing.T) {
	for _, s := range []string{"old_is_current", "new_is_current", "keep_both", "merge"} {
		if _, err := ParseResolutionChoice(s); err != nil {
			t.Errorf("ParseResolutionChoice(%q): %v", s, err)
		}
	}
	if _, err := ParseResolutionChoice("discard"); err == nil {
		t.Error("ParseResolutionChoice(discard): expected error")
	}
}

func TestParseQueryMode(t *testing.T) {
	for _, s := range []string{"current", "history", "as_of", "full_audit"} {
		if _, err := ParseQueryMode(s); err != nil {
			t.Errorf("ParseQueryMode(%q): %v", s, err)
		}
	}
	if _, err := ParseQueryMode("latest"); err == nil {
		t.Error("ParseQueryMode(latest): expected error")
	}
}

func TestTierOrder(t *testing.T) {
	want := []Tier{TierStructural, TierNormalized, TierPattern, TierClassifier, TierLLM, TierVerification}
	if len(TierOrder) != len(want) {
		t.Fatalf("TierOrder has %d tiers, want %d", len(TierOrder), len(want))
	}
	for i, tier := range want {
		if TierOrder[i] != tier {
			t.Errorf("TierOrder[%d] = %v, want %v", i, TierOrder[i], tier)
		}
	}
}
