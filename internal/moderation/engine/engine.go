// Package engine turns a classification and confidence score into a
// moderation action. The mapping is pure threshold arithmetic: no model
// calls, no randomness, so the same inputs always produce the same action.
package engine

import (
	"context"

	"arbiter/internal/moderation"
	"arbiter/internal/policy"
)

// Outcome is the engine's verdict: the action to take and the policy that
// justified it. PolicyID is nil when no policy applied.
type Outcome struct {
	Action   moderation.Action
	PolicyID *string
}

// Decide maps a classification onto an action using the policy's thresholds.
// Thresholds are checked from most to least severe, inclusive at each bound.
// A nil or disabled policy yields no action: enforcement without an active
// policy to cite would be unauditable.
func Decide(category policy.Category, confidence float64, p *policy.Policy) Outcome {
	if category == policy.CategoryNone {
		return Outcome{Action: moderation.ActionNone}
	}
	if p == nil || !p.Enabled {
		return Outcome{Action: moderation.ActionNone}
	}

	outcome := Outcome{Action: moderation.ActionNone, PolicyID: &p.ID}
	switch {
	case confidence >= p.FlagThreshold:
		outcome.Action = moderation.ActionFlagForReview
	case confidence >= p.MuteThreshold:
		outcome.Action = moderation.ActionMute
	case confidence >= p.WarnThreshold:
		outcome.Action = moderation.ActionWarn
	}
	return outcome
}

// PolicySource resolves the active policy for a category.
type PolicySource interface {
	FindByCategory(ctx context.Context, category policy.Category) (policy.Policy, error)
}

// Decider couples the pure threshold check with a policy lookup.
type Decider struct {
	policies PolicySource
}

func NewDecider(policies PolicySource) *Decider {
	return &Decider{policies: policies}
}

// Decide resolves the category's policy and applies its thresholds. A lookup
// failure is returned so the caller can account for it, but the outcome is
// still usable: it degrades to no action.
func (d *Decider) Decide(ctx context.Context, category policy.Category, confidence float64) (Outcome, error) {
	if category == policy.CategoryNone {
		return Outcome{Action: moderation.ActionNone}, nil
	}

	p, err := d.policies.FindByCategory(ctx, category)
	if err != nil {
		return Outcome{Action: moderation.ActionNone}, err
	}
	return Decide(category, confidence, &p), nil
}
