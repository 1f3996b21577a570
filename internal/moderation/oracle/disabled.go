package oracle

import (
	"context"

	"arbiter/internal/policy"
	dErrors "arbiter/pkg/domain-errors"
)

// Disabled is the oracle used when no model credentials are configured.
// Every call fails, which the pipeline absorbs into its safe defaults, so
// an unconfigured deployment still records decisions instead of crashing.
type Disabled struct{}

func (Disabled) Classify(context.Context, string) (Classification, error) {
	return Classification{}, dErrors.New(dErrors.CodeUnavailable, "no model credentials configured")
}

func (Disabled) ScoreConfidence(context.Context, string, policy.Category, string) (Score, error) {
	return Score{}, dErrors.New(dErrors.CodeUnavailable, "no model credentials configured")
}
