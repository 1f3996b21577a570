// Package service exposes the moderation pipeline and the decision ledger
// behind one API: submit content, query past decisions, and let admins
// review or overturn what the pipeline decided.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbiter/internal/audit"
	"arbiter/internal/broadcast"
	"arbiter/internal/moderation"
	"arbiter/internal/moderation/metrics"
	"arbiter/internal/policy"
	"arbiter/pkg/domain"
	dErrors "arbiter/pkg/domain-errors"
	"arbiter/pkg/platform/sentinel"
)

// Pipeline runs one input through the moderation stages.
type Pipeline interface {
	Moderate(ctx context.Context, input moderation.Input) (*moderation.Decision, error)
}

// Store is the keyed decision ledger.
type Store interface {
	Save(ctx context.Context, d moderation.Decision) error
	FindByID(ctx context.Context, id string) (moderation.Decision, error)
	List(ctx context.Context, filters moderation.Filters) ([]moderation.Decision, error)
	Count(ctx context.Context) (int, error)
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// Service coordinates moderation runs and decision lifecycle changes.
type Service struct {
	pipeline    Pipeline
	store       Store
	auditor     AuditRecorder
	broadcaster broadcast.Broadcaster
	metrics     *metrics.Metrics
	logger      *slog.Logger
	sem         chan struct{}
}

// New constructs the moderation service. maxConcurrent bounds how many
// pipeline runs may be in flight at once; zero or negative means unbounded.
// metrics may be nil.
func New(
	pipeline Pipeline,
	store Store,
	auditor AuditRecorder,
	broadcaster broadcast.Broadcaster,
	m *metrics.Metrics,
	logger *slog.Logger,
	maxConcurrent int,
) *Service {
	var sem chan struct{}
	if maxConcurrent > 0 {
		sem = make(chan struct{}, maxConcurrent)
	}
	return &Service{
		pipeline:    pipeline,
		store:       store,
		auditor:     auditor,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		sem:         sem,
	}
}

// Moderate validates the input and runs it through the pipeline.
func (s *Service) Moderate(ctx context.Context, input moderation.Input) (*moderation.Decision, error) {
	if input.Content == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content must not be empty")
	}
	if input.RoomID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "room_id must not be empty")
	}
	input.ContentType = moderation.ParseContentType(string(input.ContentType))

	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-ctx.Done():
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "moderation queue full")
		}
	}

	start := time.Now()
	decision, err := s.pipeline.Moderate(ctx, input)
	if s.metrics != nil {
		s.metrics.ObservePipeline(start)
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementDecision(string(decision.Action))
	}
	s.logger.InfoContext(ctx, "content moderated",
		"decision_id", decision.ID,
		"room_id", decision.RoomID,
		"classification", decision.Classification,
		"confidence", decision.ConfidenceScore,
		"action", decision.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return decision, nil
}

// Get returns one decision by ID.
func (s *Service) Get(ctx context.Context, decisionID string) (moderation.Decision, error) {
	d, err := s.store.FindByID(ctx, decisionID)
	if err != nil {
		return moderation.Decision{}, wrapDecisionErr(err, decisionID)
	}
	return d, nil
}

// List returns decisions matching the filters, newest first, paginated.
func (s *Service) List(ctx context.Context, filters moderation.Filters, page moderation.Page) ([]moderation.Decision, error) {
	decisions, err := s.store.List(ctx, filters)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list decisions")
	}

	limit := page.Limit
	if limit <= 0 {
		limit = moderation.DefaultPageSize
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(decisions) {
		return []moderation.Decision{}, nil
	}
	end := offset + limit
	if end > len(decisions) {
		end = len(decisions)
	}
	return decisions[offset:end], nil
}

// Stats aggregates the whole decision ledger.
func (s *Service) Stats(ctx context.Context) (moderation.Stats, error) {
	decisions, err := s.store.List(ctx, moderation.Filters{})
	if err != nil {
		return moderation.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "aggregate decisions")
	}

	stats := moderation.Stats{
		TotalDecisions:   len(decisions),
		ByAction:         make(map[moderation.Action]int),
		ByClassification: make(map[policy.Category]int),
		ByStatus:         make(map[moderation.Status]int),
	}

	var sum float64
	var scored int
	for _, d := range decisions {
		stats.ByAction[d.Action]++
		stats.ByClassification[d.Classification]++
		stats.ByStatus[d.Status]++
		if d.ConfidenceScore > 0 {
			sum += d.ConfidenceScore
			scored++
		}
	}
	if scored > 0 {
		stats.AverageConfidence = moderation.RoundConfidence(sum / float64(scored))
	}
	return stats, nil
}

// Review marks a decision as human-reviewed, recording whether the reviewer
// agreed with the pipeline. Any status can be reviewed; flagged decisions are
// the expected case but admins may vet any record.
func (s *Service) Review(ctx context.Context, decisionID string, approved bool, notes string) (moderation.Decision, error) {
	d, err := s.store.FindByID(ctx, decisionID)
	if err != nil {
		return moderation.Decision{}, wrapDecisionErr(err, decisionID)
	}

	d.Status = moderation.StatusReviewed
	if err := s.store.Save(ctx, d); err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "save reviewed decision")
	}

	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	reason := fmt.Sprintf("Decision reviewed: %s.", verdict)
	if notes != "" {
		reason = fmt.Sprintf("Decision reviewed: %s. %s", verdict, notes)
	}

	if _, err := s.auditor.Record(ctx, audit.Entry{
		DecisionID: decisionID,
		ActionType: audit.ActionDecisionReviewed,
		Actor:      audit.ActorAdmin,
		Reason:     reason,
		Metadata: domain.Metadata{
			"approved":                approved,
			"notes":                   notes,
			"decision_classification": string(d.Classification),
			"decision_action":         string(d.Action),
		},
	}); err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "audit decision review")
	}

	s.broadcaster.Broadcast(ctx, broadcast.EventModerationDecision, d)
	return d, nil
}

// Overturn reverses a decision. A decision can only be overturned once;
// a second attempt is a conflict, not an idempotent no-op, so the caller
// learns the trail already records a reversal.
func (s *Service) Overturn(ctx context.Context, decisionID, reason string) (moderation.Decision, error) {
	if reason == "" {
		return moderation.Decision{}, dErrors.New(dErrors.CodeValidation, "overturn reason must not be empty")
	}

	d, err := s.store.FindByID(ctx, decisionID)
	if err != nil {
		return moderation.Decision{}, wrapDecisionErr(err, decisionID)
	}
	if d.Status == moderation.StatusOverturned {
		return moderation.Decision{}, dErrors.Newf(dErrors.CodeConflict, "decision %q already overturned", decisionID)
	}

	originalAction := d.Action
	d.Status = moderation.StatusOverturned
	if err := s.store.Save(ctx, d); err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "save overturned decision")
	}

	if _, err := s.auditor.Record(ctx, audit.Entry{
		DecisionID: decisionID,
		ActionType: audit.ActionDecisionOverturned,
		Actor:      audit.ActorAdmin,
		Reason:     reason,
		Metadata: domain.Metadata{
			"original_action":         string(originalAction),
			"original_classification": string(d.Classification),
			"original_confidence":     d.ConfidenceScore,
		},
	}); err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "audit decision overturn")
	}

	if s.metrics != nil {
		s.metrics.IncrementOverturned()
	}
	s.logger.InfoContext(ctx, "decision overturned",
		"decision_id", decisionID,
		"original_action", originalAction,
	)
	s.broadcaster.Broadcast(ctx, broadcast.EventModerationDecision, d)
	return d, nil
}

func wrapDecisionErr(err error, decisionID string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "decision %q not found", decisionID)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "decision lookup failed")
}
