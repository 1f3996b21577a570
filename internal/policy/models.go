package policy

import (
	"time"

	dErrors "arbiter/pkg/domain-errors"
)

// Category enumerates the content policy categories the classifier can emit.
// CategoryNone is the sentinel for "no violation"; it never has a policy.
type Category string

const (
	CategoryHarassment   Category = "harassment"
	CategoryHateSpeech   Category = "hate_speech"
	CategorySpam         Category = "spam"
	CategoryViolence     Category = "violence"
	CategoryAdultContent Category = "adult_content"
	CategoryNone         Category = "none"
)

// Categories lists the enforceable categories, i.e. everything a policy can
// be configured for. CategoryNone is deliberately excluded.
func Categories() []Category {
	return []Category{
		CategoryHarassment,
		CategoryHateSpeech,
		CategorySpam,
		CategoryViolence,
		CategoryAdultContent,
	}
}

// ParseCategory maps a wire string onto a Category. Unknown strings map to
// CategoryNone: an oracle inventing categories must never trigger enforcement.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryHarassment, CategoryHateSpeech, CategorySpam, CategoryViolence, CategoryAdultContent:
		return Category(s)
	default:
		return CategoryNone
	}
}

// Policy is the per-category escalation configuration. Thresholds partition
// [0,1] into none/warn/mute/flag bands; the ordering invariant
// 0 <= warn <= mute <= flag <= 1 must hold at all times.
type Policy struct {
	ID            string    `json:"policy_id"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	Description   string    `json:"description"`
	WarnThreshold float64   `json:"warn_threshold"`
	MuteThreshold float64   `json:"mute_threshold"`
	FlagThreshold float64   `json:"flag_threshold"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the threshold ordering invariant on a fully merged record.
func (p Policy) Validate() error {
	if p.WarnThreshold < 0 || p.FlagThreshold > 1 {
		return dErrors.New(dErrors.CodeValidation, "thresholds must lie in [0, 1]")
	}
	if !(p.WarnThreshold <= p.MuteThreshold && p.MuteThreshold <= p.FlagThreshold) {
		return dErrors.New(dErrors.CodeValidation, "thresholds must be ordered: warn <= mute <= flag")
	}
	return nil
}

// Update is a partial policy mutation; nil fields are left untouched.
type Update struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	WarnThreshold *float64 `json:"warn_threshold,omitempty"`
	MuteThreshold *float64 `json:"mute_threshold,omitempty"`
	FlagThreshold *float64 `json:"flag_threshold,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
}

// FieldChange records an old/new pair for the audit trail.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Apply merges the update into a copy of p and returns the merged record plus
// the per-field change set. The caller validates the merged record before
// persisting anything, so a rejected update leaves the stored policy intact.
func (u Update) Apply(p Policy) (Policy, map[string]FieldChange) {
	changes := make(map[string]FieldChange)

	if u.Name != nil && *u.Name != p.Name {
		changes["name"] = FieldChange{Old: p.Name, New: *u.Name}
		p.Name = *u.Name
	}
	if u.Description != nil && *u.Description != p.Description {
		changes["description"] = FieldChange{Old: p.Description, New: *u.Description}
		p.Description = *u.Description
	}
	if u.WarnThreshold != nil && *u.WarnThreshold != p.WarnThreshold {
		changes["warn_threshold"] = FieldChange{Old: p.WarnThreshold, New: *u.WarnThreshold}
		p.WarnThreshold = *u.WarnThreshold
	}
	if u.MuteThreshold != nil && *u.MuteThreshold != p.MuteThreshold {
		changes["mute_threshold"] = FieldChange{Old: p.MuteThreshold, New: *u.MuteThreshold}
		p.MuteThreshold = *u.MuteThreshold
	}
	if u.FlagThreshold != nil && *u.FlagThreshold != p.FlagThreshold {
		changes["flag_threshold"] = FieldChange{Old: p.FlagThreshold, New: *u.FlagThreshold}
		p.FlagThreshold = *u.FlagThreshold
	}
	if u.Enabled != nil && *u.Enabled != p.Enabled {
		changes["enabled"] = FieldChange{Old: p.Enabled, New: *u.Enabled}
		p.Enabled = *u.Enabled
	}

	return p, changes
}
