// Package store keeps rooms and participants in memory, keyed by their
// media-server SIDs.
package store

import (
	"context"
	"sort"
	"sync"

	"arbiter/internal/room"
	"arbiter/pkg/platform/sentinel"
)

type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]room.Room
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]room.Room)}
}

func (s *Rooms) Save(_ context.Context, r room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
	return nil
}

func (s *Rooms) FindByID(_ context.Context, id string) (room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	if !ok {
		return room.Room{}, sentinel.ErrNotFound
	}
	return r, nil
}

// List returns rooms, optionally filtered by status, newest first.
func (s *Rooms) List(_ context.Context, status room.Status) ([]room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if status != "" && r.Status != status {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

type Participants struct {
	mu           sync.RWMutex
	participants map[string]room.Participant
}

func NewParticipants() *Participants {
	return &Participants{participants: make(map[string]room.Participant)}
}

func (s *Participants) Save(_ context.Context, p room.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
	return nil
}

func (s *Participants) FindByID(_ context.Context, id string) (room.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return room.Participant{}, sentinel.ErrNotFound
	}
	return p, nil
}

// ListByRoom returns a room's participants, most recent join first.
func (s *Participants) ListByRoom(_ context.Context, roomID string) ([]room.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []room.Participant
	for _, p := range s.participants {
		if p.RoomID == roomID {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].JoinTime.Equal(matched[j].JoinTime) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].JoinTime.After(matched[j].JoinTime)
	})
	return matched, nil
}

// ListAll returns every tracked participant.
func (s *Participants) ListAll(_ context.Context) ([]room.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]room.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		all = append(all, p)
	}
	return all, nil
}
