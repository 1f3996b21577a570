package moderation

import (
	"math"
	"time"

	"arbiter/internal/policy"
	"arbiter/pkg/domain"
)

// ContentType identifies where a piece of content came from.
type ContentType string

const (
	ContentText            ContentType = "text"
	ContentAudioTranscript ContentType = "audio_transcript"
	ContentVideoFrame      ContentType = "video_frame"
)

// ParseContentType normalizes a raw content type, defaulting to text.
func ParseContentType(raw string) ContentType {
	switch ContentType(raw) {
	case ContentAudioTranscript, ContentVideoFrame:
		return ContentType(raw)
	default:
		return ContentText
	}
}

// Action is what the platform does about a violation. Actions are ordered by
// severity: warn < mute < flag_for_review.
type Action string

const (
	ActionNone          Action = "none"
	ActionWarn          Action = "warn"
	ActionMute          Action = "mute"
	ActionFlagForReview Action = "flag_for_review"
)

// Status tracks a decision through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExecuted   Status = "executed"
	StatusReviewed   Status = "reviewed"
	StatusOverturned Status = "overturned"
)

// Input is one piece of content submitted for moderation.
type Input struct {
	RoomID              string          `json:"room_id"`
	ParticipantID       string          `json:"participant_id"`
	ParticipantIdentity string          `json:"participant_identity"`
	Content             string          `json:"content"`
	ContentType         ContentType     `json:"content_type"`
	Metadata            domain.Metadata `json:"metadata,omitempty"`
}

// Decision is the full record of one trip through the moderation pipeline.
// PolicyID is nil when no policy was consulted (no violation, or the matched
// category had no enabled policy).
type Decision struct {
	ID                  string          `json:"decision_id"`
	RoomID              string          `json:"room_id"`
	ParticipantID       string          `json:"participant_id"`
	ParticipantIdentity string          `json:"participant_identity"`
	Content             string          `json:"content"`
	ContentType         ContentType     `json:"content_type"`
	Classification      policy.Category `json:"classification"`
	ConfidenceScore     float64         `json:"confidence_score"`
	Action              Action          `json:"action"`
	Status              Status          `json:"status"`
	PolicyID            *string         `json:"policy_id"`
	Timestamp           time.Time       `json:"timestamp"`
	Reasoning           string          `json:"reasoning"`
	Metadata            domain.Metadata `json:"metadata,omitempty"`
}

// Filters narrows decision queries. Zero values mean "no constraint".
type Filters struct {
	RoomID         string
	ParticipantID  string
	Classification policy.Category
	Action         Action
	Status         Status
	MinConfidence  *float64
	MaxConfidence  *float64
}

// Match reports whether the decision satisfies every set filter.
func (f Filters) Match(d Decision) bool {
	if f.RoomID != "" && d.RoomID != f.RoomID {
		return false
	}
	if f.ParticipantID != "" && d.ParticipantID != f.ParticipantID {
		return false
	}
	if f.Classification != "" && d.Classification != f.Classification {
		return false
	}
	if f.Action != "" && d.Action != f.Action {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.MinConfidence != nil && d.ConfidenceScore < *f.MinConfidence {
		return false
	}
	if f.MaxConfidence != nil && d.ConfidenceScore > *f.MaxConfidence {
		return false
	}
	return true
}

// Page bounds a query result. Limit <= 0 falls back to the default page size.
type Page struct {
	Limit  int
	Offset int
}

const DefaultPageSize = 50

// Stats aggregates the ledger for the dashboard. AverageConfidence covers
// only decisions with a positive score, so failed classifications do not
// drag the mean down.
type Stats struct {
	TotalDecisions    int                     `json:"total_decisions"`
	ByAction          map[Action]int          `json:"by_action"`
	ByClassification  map[policy.Category]int `json:"by_classification"`
	ByStatus          map[Status]int          `json:"by_status"`
	AverageConfidence float64                 `json:"average_confidence"`
}

// RoundConfidence truncates noise from averaged scores for display.
func RoundConfidence(v float64) float64 {
	return math.Round(v*1000) / 1000
}
