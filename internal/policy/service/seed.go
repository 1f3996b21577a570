package service

import (
	"context"
	"time"

	"arbiter/internal/policy"
	"arbiter/pkg/domain"
)

// Seed installs the default policy per enforceable category. Ids are stable
// across restarts so audit trails from different runs stay comparable.
// Thresholds reflect how unambiguous each category tends to be at
// classification time: hate speech and violence escalate earlier than spam.
func Seed(ctx context.Context, store Store) error {
	now := time.Now().UTC()

	defaults := []policy.Policy{
		{
			Name:          "Harassment",
			Category:      policy.CategoryHarassment,
			Description:   "Content that harasses, intimidates, or bullies individuals",
			WarnThreshold: 0.5, MuteThreshold: 0.7, FlagThreshold: 0.85,
		},
		{
			Name:          "Hate Speech",
			Category:      policy.CategoryHateSpeech,
			Description:   "Content that promotes hatred against protected groups",
			WarnThreshold: 0.4, MuteThreshold: 0.6, FlagThreshold: 0.75,
		},
		{
			Name:          "Spam",
			Category:      policy.CategorySpam,
			Description:   "Repetitive, promotional, or unsolicited content",
			WarnThreshold: 0.6, MuteThreshold: 0.8, FlagThreshold: 0.9,
		},
		{
			Name:          "Violence",
			Category:      policy.CategoryViolence,
			Description:   "Content that promotes or glorifies violence",
			WarnThreshold: 0.4, MuteThreshold: 0.6, FlagThreshold: 0.75,
		},
		{
			Name:          "Adult Content",
			Category:      policy.CategoryAdultContent,
			Description:   "Sexually explicit or mature content",
			WarnThreshold: 0.5, MuteThreshold: 0.7, FlagThreshold: 0.85,
		},
	}

	for _, p := range defaults {
		p.ID = domain.PolicyID(string(p.Category))
		p.Enabled = true
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := store.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
