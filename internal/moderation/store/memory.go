// Package store keeps moderation decisions in memory, keyed by decision ID.
// Writes are last-writer-wins on the whole record; services that mutate a
// decision read it, change it, and save it back.
package store

import (
	"context"
	"sort"
	"sync"

	"arbiter/internal/moderation"
	"arbiter/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	decisions map[string]moderation.Decision
}

func NewInMemory() *InMemory {
	return &InMemory{decisions: make(map[string]moderation.Decision)}
}

func (s *InMemory) Save(_ context.Context, d moderation.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[d.ID] = d
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (moderation.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[id]
	if !ok {
		return moderation.Decision{}, sentinel.ErrNotFound
	}
	return d, nil
}

// List returns decisions matching the filters, newest first.
func (s *InMemory) List(_ context.Context, filters moderation.Filters) ([]moderation.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]moderation.Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		if filters.Match(d) {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.decisions), nil
}
