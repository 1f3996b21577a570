package store

import (
	"context"
	"sort"
	"sync"

	"arbiter/internal/policy"
	"arbiter/pkg/platform/sentinel"
)

// InMemory keeps policies for the life of the process. Readers never block
// each other; Save holds the write lock only for the map assignment, so a
// concurrent read-merge-save pair on the same policy is last-writer-wins.
type InMemory struct {
	mu       sync.RWMutex
	policies map[string]policy.Policy
}

func NewInMemory() *InMemory {
	return &InMemory{policies: make(map[string]policy.Policy)}
}

func (s *InMemory) Save(_ context.Context, p policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = p
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.policies[id]; ok {
		return p, nil
	}
	return policy.Policy{}, sentinel.ErrNotFound
}

// FindByCategory returns the policy configured for the category. At steady
// state exactly one exists per category; with duplicates the lowest id wins
// so lookups stay deterministic.
func (s *InMemory) FindByCategory(_ context.Context, category policy.Category) (policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		match policy.Policy
		found bool
	)
	for _, p := range s.policies {
		if p.Category != category {
			continue
		}
		if !found || p.ID < match.ID {
			match = p
			found = true
		}
	}
	if !found {
		return policy.Policy{}, sentinel.ErrNotFound
	}
	return match, nil
}

// List returns all policies sorted by category.
func (s *InMemory) List(_ context.Context) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]policy.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
