// Package executor persists moderation decisions and carries out the decided
// action. The decision record and its audit entry are written before any
// action is taken, so the trail always shows what was about to happen even
// if the action itself fails.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"arbiter/internal/audit"
	"arbiter/internal/broadcast"
	"arbiter/internal/moderation"
	"arbiter/internal/policy"
	"arbiter/pkg/domain"
	dErrors "arbiter/pkg/domain-errors"
)

// DecisionStore is the keyed decision ledger the executor writes to.
type DecisionStore interface {
	Save(ctx context.Context, d moderation.Decision) error
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// auditTypeFor maps an executed action onto its audit entry type.
func auditTypeFor(action moderation.Action) audit.ActionType {
	switch action {
	case moderation.ActionWarn:
		return audit.ActionParticipantWarned
	case moderation.ActionMute:
		return audit.ActionParticipantMuted
	case moderation.ActionFlagForReview:
		return audit.ActionContentFlagged
	default:
		return audit.ActionExecuted
	}
}

// Executor turns an engine outcome into durable records.
type Executor struct {
	decisions   DecisionStore
	auditor     AuditRecorder
	broadcaster broadcast.Broadcaster
	logger      *slog.Logger
	now         func() time.Time
}

func New(decisions DecisionStore, auditor AuditRecorder, broadcaster broadcast.Broadcaster, logger *slog.Logger) *Executor {
	return &Executor{
		decisions:   decisions,
		auditor:     auditor,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// Execute records the decision (status pending), audits its creation, and
// then, when an action was decided, marks the decision executed and audits
// the action. Write order is fixed: a decision record always exists before
// its audit entries, and the pending state always hits the store before
// executed.
func (e *Executor) Execute(
	ctx context.Context,
	input moderation.Input,
	category policy.Category,
	confidence float64,
	action moderation.Action,
	policyID *string,
	reasoning string,
) (moderation.Decision, error) {
	decision := moderation.Decision{
		ID:                  domain.NewDecisionID(),
		RoomID:              input.RoomID,
		ParticipantID:       input.ParticipantID,
		ParticipantIdentity: input.ParticipantIdentity,
		Content:             input.Content,
		ContentType:         input.ContentType,
		Classification:      category,
		ConfidenceScore:     confidence,
		Action:              action,
		Status:              moderation.StatusPending,
		PolicyID:            policyID,
		Timestamp:           e.now().UTC(),
		Reasoning:           reasoning,
		Metadata:            input.Metadata.Clone(),
	}

	if err := e.decisions.Save(ctx, decision); err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "save moderation decision")
	}

	_, err := e.auditor.Record(ctx, audit.Entry{
		DecisionID: decision.ID,
		ActionType: audit.ActionDecisionCreated,
		Actor:      audit.ActorAI,
		Reason:     fmt.Sprintf("Moderation decision created: %s with confidence %.2f", category, confidence),
		Metadata: domain.Metadata{
			"decision": decision,
			"input":    input,
		},
	})
	if err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "audit decision creation")
	}

	if action != moderation.ActionNone {
		if decision, err = e.executeAction(ctx, decision); err != nil {
			return moderation.Decision{}, err
		}
	}

	e.broadcaster.Broadcast(ctx, broadcast.EventModerationDecision, decision)
	return decision, nil
}

func (e *Executor) executeAction(ctx context.Context, decision moderation.Decision) (moderation.Decision, error) {
	// Enforcement against the media server would happen here: warn sends a
	// data message, mute calls the participant update API. The decision
	// record and audit trail are the system of record either way.
	decision.Status = moderation.StatusExecuted
	if err := e.decisions.Save(ctx, decision); err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "mark decision executed")
	}

	_, err := e.auditor.Record(ctx, audit.Entry{
		DecisionID: decision.ID,
		ActionType: auditTypeFor(decision.Action),
		Actor:      audit.ActorAI,
		Reason:     fmt.Sprintf("Action executed: %s on participant %s", decision.Action, decision.ParticipantIdentity),
		Metadata: domain.Metadata{
			"action":               string(decision.Action),
			"participant_id":       decision.ParticipantID,
			"participant_identity": decision.ParticipantIdentity,
			"room_id":              decision.RoomID,
			"classification":       string(decision.Classification),
			"confidence":           decision.ConfidenceScore,
		},
	})
	if err != nil {
		return moderation.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "audit action execution")
	}

	e.logger.InfoContext(ctx, "moderation action executed",
		"decision_id", decision.ID,
		"action", decision.Action,
		"room_id", decision.RoomID,
		"participant_identity", decision.ParticipantIdentity,
	)
	return decision, nil
}
