package service

import (
	"fmt"

	"github.com/mnemolab/revise/internal/domain"
)

// ModePolicy fixes which tiers run for an accuracy mode and which of them
// are allowed to auto-supersede.
type ModePolicy struct {
	Mode          domain.AccuracyMode
	Tiers         []domain.Tier
	AutoSupersede map[domain.Tier]bool
	Involvement   domain.Involvement
}

var modePolicies = map[domain.AccuracyMode]ModePolicy{
	domain.ModeFast: {
		Mode:  domain.ModeFast,
		Tiers: []domain.Tier{domain.TierStructural, domain.TierNormalized, domain.TierPattern},
		AutoSupersede: map[domain.Tier]bool{
			domain.TierStructural: true,
		},
		Involvement: domain.InvolvementHigh,
	},
	domain.ModeBalanced: {
		Mode: domain.ModeBalanced,
		Tiers: []domain.Tier{
			domain.TierStructural, domain.TierNormalized, domain.TierPattern,
			domain.TierClassifier, domain.TierLLM,
		},
		AutoSupersede: map[domain.Tier]bool{
			domain.TierStructural: true,
			domain.TierNormalized: true,
			domain.TierPattern:    true,
		},
		Involvement: domain.InvolvementMedium,
	},
	domain.ModeThorough: {
		Mode: domain.ModeThorough,
		Tiers: []domain.Tier{
			domain.TierStructural, domain.TierNormalized, domain.TierPattern,
			domain.TierClassifier, domain.TierLLM, domain.TierVerification,
		},
		AutoSupersede: map[domain.Tier]bool{
			domain.TierStructural: true,
			domain.TierNormalized: true,
			domain.TierPattern:    true,
			domain.TierLLM:        true,
		},
		Involvement: domain.InvolvementLow,
	},
	domain.ModeManual: {
		Mode:          domain.ModeManual,
		Tiers:         []domain.Tier{domain.TierStructural, domain.TierNormalized, domain.TierPattern},
		AutoSupersede: map[domain.Tier]bool{},
		Involvement:   domain.InvolvementVeryHigh,
	},
}

// PolicyFor returns the tier policy for a mode. Unknown modes fail fast.
func PolicyFor(mode domain.AccuracyMode) (ModePolicy, error) {
	p, ok := modePolicies[mode]
	if !ok {
		return ModePolicy{}, fmt.Errorf("unknown accuracy mode %q", mode)
	}
	return p, nil
}

// TierAllowed reports whether a tier runs at all under the mode.
func (p ModePolicy) TierAllowed(tier domain.Tier) bool {
	for _, t := range p.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}

// MayAutoSupersede reports whether the mode lets the tier supersede without
// user confirmation. The pipeline's own gate must also pass.
func (p ModePolicy) MayAutoSupersede(tier domain.Tier) bool {
	return p.AutoSupersede[tier]
}
