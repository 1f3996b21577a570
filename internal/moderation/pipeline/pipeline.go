// Package pipeline runs content through the four moderation stages:
// classify, score, decide, act. The pipeline is fail-safe by construction.
// A stage failure never aborts the run; it substitutes the stage's safe
// default (category none, confidence zero, action none) and carries the
// error forward so the final record shows what went wrong.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"arbiter/internal/moderation"
	"arbiter/internal/moderation/engine"
	"arbiter/internal/moderation/metrics"
	"arbiter/internal/moderation/oracle"
	"arbiter/internal/policy"
)

// Stage labels for the failure counter.
const (
	stageClassify = "classify"
	stageScore    = "score"
	stageDecide   = "decide"
)

// ActionExecutor persists the decision and carries out the action.
type ActionExecutor interface {
	Execute(
		ctx context.Context,
		input moderation.Input,
		category policy.Category,
		confidence float64,
		action moderation.Action,
		policyID *string,
		reasoning string,
	) (moderation.Decision, error)
}

// Pipeline wires the stages together.
type Pipeline struct {
	classifier oracle.Classifier
	scorer     oracle.Scorer
	decider    *engine.Decider
	executor   ActionExecutor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New constructs the pipeline. metrics may be nil.
func New(classifier oracle.Classifier, scorer oracle.Scorer, decider *engine.Decider, executor ActionExecutor, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		scorer:     scorer,
		decider:    decider,
		executor:   executor,
		metrics:    m,
		logger:     logger,
	}
}

func (p *Pipeline) recordStageFailure(stage string) {
	if p.metrics != nil {
		p.metrics.IncrementStageFailure(stage)
	}
}

// state carries intermediate results between stages.
type state struct {
	input moderation.Input

	category             policy.Category
	classificationReason string

	confidence     float64
	scoringFactors string

	action   moderation.Action
	policyID *string

	err error
}

// Moderate runs one input through all four stages. The returned decision is
// nil only when the final persistence stage failed; every earlier failure
// still produces a (safe-default) decision record.
func (p *Pipeline) Moderate(ctx context.Context, input moderation.Input) (*moderation.Decision, error) {
	st := &state{input: input}

	p.classify(ctx, st)
	p.score(ctx, st)
	p.decide(ctx, st)
	return p.act(ctx, st)
}

func (p *Pipeline) classify(ctx context.Context, st *state) {
	result, err := p.classifier.Classify(ctx, st.input.Content)
	if err != nil {
		p.logger.WarnContext(ctx, "classification failed, defaulting to none",
			"room_id", st.input.RoomID, "error", err)
		p.recordStageFailure(stageClassify)
		st.category = policy.CategoryNone
		st.classificationReason = "Error during classification: " + err.Error()
		st.err = err
		return
	}
	st.category = result.Category
	st.classificationReason = result.Reasoning
}

func (p *Pipeline) score(ctx context.Context, st *state) {
	// Clean content needs no confidence call; skipping it halves the model
	// traffic for the common case.
	if st.category == policy.CategoryNone {
		st.confidence = 0
		st.scoringFactors = "No violation detected"
		return
	}

	score, err := p.scorer.ScoreConfidence(ctx, st.input.Content, st.category, st.classificationReason)
	if err != nil {
		p.logger.WarnContext(ctx, "scoring failed, defaulting to zero confidence",
			"room_id", st.input.RoomID, "category", st.category, "error", err)
		p.recordStageFailure(stageScore)
		st.confidence = 0
		st.scoringFactors = "Error during scoring: " + err.Error()
		st.err = err
		return
	}
	st.confidence = score.Confidence
	st.scoringFactors = score.Factors
}

func (p *Pipeline) decide(ctx context.Context, st *state) {
	outcome, err := p.decider.Decide(ctx, st.category, st.confidence)
	if err != nil {
		p.logger.WarnContext(ctx, "decision lookup failed, defaulting to no action",
			"category", st.category, "error", err)
		p.recordStageFailure(stageDecide)
		st.err = err
	}
	st.action = outcome.Action
	st.policyID = outcome.PolicyID
}

func (p *Pipeline) act(ctx context.Context, st *state) (*moderation.Decision, error) {
	decision, err := p.executor.Execute(ctx, st.input, st.category, st.confidence, st.action, st.policyID, st.reasoning())
	if err != nil {
		p.logger.ErrorContext(ctx, "decision persistence failed",
			"room_id", st.input.RoomID, "error", err)
		return nil, err
	}
	return &decision, nil
}

// reasoning concatenates the per-stage rationales into one audit-friendly
// string.
func (st *state) reasoning() string {
	var parts []string
	if st.classificationReason != "" {
		parts = append(parts, "Classification: "+st.classificationReason)
	}
	if st.scoringFactors != "" {
		parts = append(parts, "Scoring: "+st.scoringFactors)
	}
	return strings.Join(parts, " | ")
}
