package audit

import (
	"time"

	"arbiter/pkg/domain"
)

// ActionType classifies what an audit entry records.
type ActionType string

const (
	ActionDecisionCreated    ActionType = "decision_created"
	ActionExecuted           ActionType = "action_executed"
	ActionPolicyUpdated      ActionType = "policy_updated"
	ActionDecisionReviewed   ActionType = "decision_reviewed"
	ActionDecisionOverturned ActionType = "decision_overturned"
	ActionParticipantWarned  ActionType = "participant_warned"
	ActionParticipantMuted   ActionType = "participant_muted"
	ActionContentFlagged     ActionType = "content_flagged"
)

// Actor identifies who caused the recorded change.
type Actor string

const (
	ActorSystem Actor = "system"
	ActorAI     Actor = "ai"
	ActorAdmin  Actor = "admin"
)

// Entry is one immutable record in the compliance trail. Once appended it is
// never mutated or deleted; the metadata snapshot is the durable record of
// the triggering change even if the referenced decision is mutated later.
type Entry struct {
	ID         string          `json:"audit_id"`
	DecisionID string          `json:"decision_id,omitempty"` // empty for policy-level entries
	ActionType ActionType      `json:"action_type"`
	Actor      Actor           `json:"actor"`
	Reason     string          `json:"reason"`
	Timestamp  time.Time       `json:"timestamp"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
}

// Filters narrows audit queries. Zero values mean "no constraint".
type Filters struct {
	DecisionID string
	ActionType ActionType
	Actor      Actor
	Since      time.Time
	Until      time.Time
}

// Match reports whether the entry satisfies every set filter.
func (f Filters) Match(e Entry) bool {
	if f.DecisionID != "" && e.DecisionID != f.DecisionID {
		return false
	}
	if f.ActionType != "" && e.ActionType != f.ActionType {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Page bounds a query result. Limit <= 0 falls back to the default page size.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageSize matches what the console UI requests.
const DefaultPageSize = 50

// Stats aggregates the whole audit trail for the dashboard.
type Stats struct {
	TotalEntries int                `json:"total_entries"`
	ByActionType map[ActionType]int `json:"by_action_type"`
	ByActor      map[Actor]int      `json:"by_actor"`
	OldestEntry  *time.Time         `json:"oldest_entry"`
	NewestEntry  *time.Time         `json:"newest_entry"`
}
