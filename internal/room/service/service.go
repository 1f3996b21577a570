// Package service maintains the room and participant mirrors from webhook
// events and feeds simulated content into the moderation pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbiter/internal/broadcast"
	"arbiter/internal/moderation"
	"arbiter/internal/room"
	"arbiter/pkg/domain"
	dErrors "arbiter/pkg/domain-errors"
	"arbiter/pkg/platform/sentinel"
)

// RoomStore persists room mirrors.
type RoomStore interface {
	Save(ctx context.Context, r room.Room) error
	FindByID(ctx context.Context, id string) (room.Room, error)
	List(ctx context.Context, status room.Status) ([]room.Room, error)
}

// ParticipantStore persists participant mirrors.
type ParticipantStore interface {
	Save(ctx context.Context, p room.Participant) error
	FindByID(ctx context.Context, id string) (room.Participant, error)
	ListByRoom(ctx context.Context, roomID string) ([]room.Participant, error)
	ListAll(ctx context.Context) ([]room.Participant, error)
}

// Moderator runs content through the moderation pipeline.
type Moderator interface {
	Moderate(ctx context.Context, input moderation.Input) (*moderation.Decision, error)
}

// WebhookEvent is the media server's webhook payload, reduced to the fields
// the mirror cares about.
type WebhookEvent struct {
	Event       string            `json:"event"`
	Room        *EventRoom        `json:"room"`
	Participant *EventParticipant `json:"participant"`
}

type EventRoom struct {
	SID      string          `json:"sid"`
	Name     string          `json:"name"`
	Metadata domain.Metadata `json:"metadata,omitempty"`
}

type EventParticipant struct {
	SID      string          `json:"sid"`
	Identity string          `json:"identity"`
	Metadata domain.Metadata `json:"metadata,omitempty"`
}

// WebhookResult reports how an event was handled.
type WebhookResult struct {
	Status        string `json:"status"`
	Event         string `json:"event"`
	RoomID        string `json:"room_id,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
}

// SimulatedContent is a test content event fed straight into moderation,
// bypassing the media server.
type SimulatedContent struct {
	RoomID              string `json:"room_id"`
	ParticipantID       string `json:"participant_id"`
	ParticipantIdentity string `json:"participant_identity"`
	Content             string `json:"content"`
	ContentType         string `json:"content_type"`
}

// Service maintains the mirrors and bridges simulated events to moderation.
type Service struct {
	rooms        RoomStore
	participants ParticipantStore
	moderator    Moderator
	broadcaster  broadcast.Broadcaster
	logger       *slog.Logger
	now          func() time.Time
}

func New(rooms RoomStore, participants ParticipantStore, moderator Moderator, broadcaster broadcast.Broadcaster, logger *slog.Logger) *Service {
	return &Service{
		rooms:        rooms,
		participants: participants,
		moderator:    moderator,
		broadcaster:  broadcaster,
		logger:       logger,
		now:          time.Now,
	}
}

// HandleWebhook dispatches one media-server event. Unknown event types are
// acknowledged and ignored so the webhook sender never sees an error for
// events this mirror does not track.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) (WebhookResult, error) {
	switch event.Event {
	case "room_started":
		return s.roomStarted(ctx, event)
	case "room_finished":
		return s.roomFinished(ctx, event)
	case "participant_joined":
		return s.participantJoined(ctx, event)
	case "participant_left":
		return s.participantLeft(ctx, event)
	case "track_published":
		return s.trackPublished(ctx, event)
	case "track_unpublished":
		return WebhookResult{Status: "processed", Event: event.Event}, nil
	default:
		s.logger.DebugContext(ctx, "ignoring webhook event", "event", event.Event)
		return WebhookResult{Status: "ignored", Event: event.Event}, nil
	}
}

func (s *Service) roomStarted(ctx context.Context, event WebhookEvent) (WebhookResult, error) {
	if event.Room == nil {
		return WebhookResult{}, dErrors.New(dErrors.CodeBadRequest, "room_started event missing room data")
	}

	r := room.Room{
		ID:        event.Room.SID,
		Name:      event.Room.Name,
		Status:    room.StatusActive,
		CreatedAt: s.now().UTC(),
		Metadata:  event.Room.Metadata.Clone(),
	}
	if err := s.rooms.Save(ctx, r); err != nil {
		return WebhookResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "save room")
	}

	s.logger.InfoContext(ctx, "room started", "room_id", r.ID, "room_name", r.Name)
	s.broadcaster.Broadcast(ctx, broadcast.EventRoomUpdate, r)
	return WebhookResult{Status: "processed", Event: event.Event, RoomID: r.ID}, nil
}

func (s *Service) roomFinished(ctx context.Context, event WebhookEvent) (WebhookResult, error) {
	if event.Room == nil {
		return WebhookResult{}, dErrors.New(dErrors.CodeBadRequest, "room_finished event missing room data")
	}

	roomID := event.Room.SID
	r, err := s.rooms.FindByID(ctx, roomID)
	if err == nil {
		ended := s.now().UTC()
		r.Status = room.StatusEnded
		r.EndedAt = &ended
		if err := s.rooms.Save(ctx, r); err != nil {
			return WebhookResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "save ended room")
		}
		s.broadcaster.Broadcast(ctx, broadcast.EventRoomUpdate, r)
	}
	return WebhookResult{Status: "processed", Event: event.Event, RoomID: roomID}, nil
}

func (s *Service) participantJoined(ctx context.Context, event WebhookEvent) (WebhookResult, error) {
	if event.Participant == nil || event.Room == nil {
		return WebhookResult{}, dErrors.New(dErrors.CodeBadRequest, "participant_joined event missing participant or room data")
	}

	p := room.Participant{
		ID:       event.Participant.SID,
		Identity: event.Participant.Identity,
		RoomID:   event.Room.SID,
		State:    room.StateJoined,
		JoinTime: s.now().UTC(),
		Metadata: event.Participant.Metadata.Clone(),
	}
	if err := s.participants.Save(ctx, p); err != nil {
		return WebhookResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "save participant")
	}

	if r, err := s.rooms.FindByID(ctx, p.RoomID); err == nil {
		r.ParticipantCount++
		if err := s.rooms.Save(ctx, r); err != nil {
			return WebhookResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "update room participant count")
		}
		s.broadcaster.Broadcast(ctx, broadcast.EventRoomUpdate, r)
	}

	s.broadcaster.Broadcast(ctx, broadcast.EventParticipantUpdate, p)
	return WebhookResult{Status: "processed", Event: event.Event, ParticipantID: p.ID}, nil
}

func (s *Service) participantLeft(ctx context.Context, event WebhookEvent) (WebhookResult, error) {
	if event.Participant == nil || event.Room == nil {
		return WebhookResult{}, dErrors.New(dErrors.CodeBadRequest, "participant_left event missing participant or room data")
	}

	participantID := event.Participant.SID
	if p, err := s.participants.FindByID(ctx, participantID); err == nil {
		left := s.now().UTC()
		p.State = room.StateDisconnected
		p.LeaveTime = &left
		if err := s.participants.Save(ctx, p); err != nil {
			return WebhookResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "save departed participant")
		}
		s.broadcaster.Broadcast(ctx, broadcast.EventParticipantUpdate, p)
	}

	if r, err := s.rooms.FindByID(ctx, event.Room.SID); err == nil {
		if r.ParticipantCount > 0 {
			r.ParticipantCount--
		}
		if err := s.rooms.Save(ctx, r); err != nil {
			return WebhookResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "update room participant count")
		}
		s.broadcaster.Broadcast(ctx, broadcast.EventRoomUpdate, r)
	}
	return WebhookResult{Status: "processed", Event: event.Event, ParticipantID: participantID}, nil
}

func (s *Service) trackPublished(ctx context.Context, event WebhookEvent) (WebhookResult, error) {
	if event.Participant == nil {
		return WebhookResult{Status: "ignored", Event: event.Event}, nil
	}

	participantID := event.Participant.SID
	if p, err := s.participants.FindByID(ctx, participantID); err == nil {
		p.IsPublisher = true
		p.State = room.StateActive
		if err := s.participants.Save(ctx, p); err != nil {
			return WebhookResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "save publishing participant")
		}
		s.broadcaster.Broadcast(ctx, broadcast.EventParticipantUpdate, p)
	}
	return WebhookResult{Status: "processed", Event: event.Event, ParticipantID: participantID}, nil
}

// Simulate ensures the referenced room and participant exist, then runs the
// content through the moderation pipeline. Used for exercising moderation
// without a live media-server connection.
func (s *Service) Simulate(ctx context.Context, content SimulatedContent) (*moderation.Decision, error) {
	if content.RoomID == "" || content.ParticipantID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "room_id and participant_id must not be empty")
	}

	if _, err := s.rooms.FindByID(ctx, content.RoomID); errors.Is(err, sentinel.ErrNotFound) {
		suffix := content.RoomID
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		r := room.Room{
			ID:               content.RoomID,
			Name:             fmt.Sprintf("Test Room %s", suffix),
			Status:           room.StatusActive,
			ParticipantCount: 1,
			CreatedAt:        s.now().UTC(),
		}
		if err := s.rooms.Save(ctx, r); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save simulated room")
		}
		s.broadcaster.Broadcast(ctx, broadcast.EventRoomUpdate, r)
	}

	if _, err := s.participants.FindByID(ctx, content.ParticipantID); errors.Is(err, sentinel.ErrNotFound) {
		p := room.Participant{
			ID:       content.ParticipantID,
			Identity: content.ParticipantIdentity,
			RoomID:   content.RoomID,
			State:    room.StateActive,
			JoinTime: s.now().UTC(),
		}
		if err := s.participants.Save(ctx, p); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save simulated participant")
		}
		s.broadcaster.Broadcast(ctx, broadcast.EventParticipantUpdate, p)
	}

	return s.moderator.Moderate(ctx, moderation.Input{
		RoomID:              content.RoomID,
		ParticipantID:       content.ParticipantID,
		ParticipantIdentity: content.ParticipantIdentity,
		Content:             content.Content,
		ContentType:         moderation.ParseContentType(content.ContentType),
	})
}

// Get returns one room by ID.
func (s *Service) Get(ctx context.Context, roomID string) (room.Room, error) {
	r, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return room.Room{}, wrapRoomErr(err, roomID)
	}
	return r, nil
}

// List returns rooms, optionally filtered by status, newest first, paginated.
func (s *Service) List(ctx context.Context, status room.Status, limit, offset int) ([]room.Room, error) {
	rooms, err := s.rooms.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list rooms")
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rooms) {
		return []room.Room{}, nil
	}
	end := offset + limit
	if end > len(rooms) {
		end = len(rooms)
	}
	return rooms[offset:end], nil
}

// Participants returns a room's participants, most recent join first.
func (s *Service) Participants(ctx context.Context, roomID string) ([]room.Participant, error) {
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		return nil, wrapRoomErr(err, roomID)
	}
	participants, err := s.participants.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list room participants")
	}
	return participants, nil
}

// Stats aggregates room and participant state.
func (s *Service) Stats(ctx context.Context) (room.Stats, error) {
	rooms, err := s.rooms.List(ctx, "")
	if err != nil {
		return room.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "aggregate rooms")
	}
	participants, err := s.participants.ListAll(ctx)
	if err != nil {
		return room.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "aggregate participants")
	}

	stats := room.Stats{
		TotalRooms:        len(rooms),
		TotalParticipants: len(participants),
	}
	for _, r := range rooms {
		if r.Status == room.StatusActive {
			stats.ActiveRooms++
		}
	}
	stats.EndedRooms = stats.TotalRooms - stats.ActiveRooms
	for _, p := range participants {
		if p.State.Connected() {
			stats.ActiveParticipants++
		}
	}
	return stats, nil
}

// End marks a room finished. Room data is kept for auditing; ending an
// already-ended room is a conflict.
func (s *Service) End(ctx context.Context, roomID string) (room.Room, error) {
	r, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return room.Room{}, wrapRoomErr(err, roomID)
	}
	if r.Status == room.StatusEnded {
		return room.Room{}, dErrors.Newf(dErrors.CodeConflict, "room %q already ended", roomID)
	}

	ended := s.now().UTC()
	r.Status = room.StatusEnded
	r.EndedAt = &ended
	if err := s.rooms.Save(ctx, r); err != nil {
		return room.Room{}, dErrors.Wrap(err, dErrors.CodeInternal, "save ended room")
	}

	s.logger.InfoContext(ctx, "room ended", "room_id", roomID)
	s.broadcaster.Broadcast(ctx, broadcast.EventRoomUpdate, r)
	return r, nil
}

func wrapRoomErr(err error, roomID string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "room %q not found", roomID)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "room lookup failed")
}
