package domain

import "fmt"

// AccuracyMode is the per-tenant policy controlling how deep the detection
// pipeline runs and how much autonomy it has.
type AccuracyMode string

const (
	ModeFast     AccuracyMode = "FAST"
	ModeBalanced AccuracyMode = "BALANCED"
	ModeThorough AccuracyMode = "THOROUGH"
	ModeManual   AccuracyMode = "MANUAL"
)

func ParseAccuracyMode(s string) (AccuracyMode, error) {
	switch AccuracyMode(s) {
	case ModeFast, ModeBalanced, ModeThorough, ModeManual:
		return AccuracyMode(s), nil
	}
	return "", fmt.Errorf("unknown accuracy mode %q", s)
}

func ValidAccuracyMode(s string) bool {
	_, err := ParseAccuracyMode(s)
	return err == nil
}

// Involvement is the expected level of user participation for a mode.
type Involvement string

const (
	InvolvementVeryHigh Involvement = "very_high"
	InvolvementHigh     Involvement = "high"
	InvolvementMedium   Involvement = "medium"
	InvolvementLow      Involvement = "low"
)
