// Package oracle holds the model-backed judgment calls the moderation
// pipeline delegates: what category content falls into, and how confident
// that call is. Implementations are expected to be fallible; callers treat
// any error as "no judgment" and substitute safe defaults.
package oracle

import (
	"context"

	"arbiter/internal/policy"
)

// Classification is a category call plus the model's stated rationale.
type Classification struct {
	Category  policy.Category
	Reasoning string
}

// Score is a confidence in a prior classification, in [0, 1], plus the
// factors the model weighed.
type Score struct {
	Confidence float64
	Factors    string
}

// Classifier assigns content to a policy category.
type Classifier interface {
	Classify(ctx context.Context, content string) (Classification, error)
}

// Scorer rates how confident the classification is for the given content.
type Scorer interface {
	ScoreConfidence(ctx context.Context, content string, category policy.Category, reasoning string) (Score, error)
}
