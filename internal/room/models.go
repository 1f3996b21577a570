// Package room tracks media rooms and their participants, populated from
// the media server's webhook events. Room data is context for moderation
// decisions, not a source of truth for the media server itself.
package room

import (
	"time"

	"arbiter/pkg/domain"
)

// Status of a room.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Room mirrors one media-server room.
type Room struct {
	ID               string          `json:"room_id"`
	Name             string          `json:"room_name"`
	Status           Status          `json:"status"`
	ParticipantCount int             `json:"participant_count"`
	CreatedAt        time.Time       `json:"created_at"`
	EndedAt          *time.Time      `json:"ended_at"`
	Metadata         domain.Metadata `json:"metadata,omitempty"`
}

// ParticipantState is a participant's connection state within a room.
type ParticipantState string

const (
	StateJoining      ParticipantState = "joining"
	StateJoined       ParticipantState = "joined"
	StateActive       ParticipantState = "active"
	StateDisconnected ParticipantState = "disconnected"
)

// Connected reports whether the participant is still in the room.
func (s ParticipantState) Connected() bool {
	return s == StateJoined || s == StateActive
}

// Participant mirrors one media-server room participant.
type Participant struct {
	ID          string           `json:"participant_id"`
	Identity    string           `json:"identity"`
	RoomID      string           `json:"room_id"`
	State       ParticipantState `json:"state"`
	JoinTime    time.Time        `json:"join_time"`
	LeaveTime   *time.Time       `json:"leave_time"`
	Metadata    domain.Metadata  `json:"metadata,omitempty"`
	IsPublisher bool             `json:"is_publisher"`
}

// Stats aggregates room and participant state for the dashboard.
type Stats struct {
	TotalRooms         int `json:"total_rooms"`
	ActiveRooms        int `json:"active_rooms"`
	EndedRooms         int `json:"ended_rooms"`
	TotalParticipants  int `json:"total_participants"`
	ActiveParticipants int `json:"active_participants"`
}
