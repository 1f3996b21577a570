package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"arbiter/internal/moderation"
	"arbiter/internal/policy"
	"arbiter/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
}

func (s *InMemorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *InMemorySuite) decision(id, roomID string, action moderation.Action, ts time.Time) moderation.Decision {
	return moderation.Decision{
		ID:              id,
		RoomID:          roomID,
		Classification:  policy.CategoryHarassment,
		ConfidenceScore: 0.8,
		Action:          action,
		Status:          moderation.StatusPending,
		Timestamp:       ts,
	}
}

func (s *InMemorySuite) TestSaveAndFind() {
	d := s.decision("dec-1", "room-a", moderation.ActionWarn, time.Now())
	s.Require().NoError(s.store.Save(s.ctx, d))

	found, err := s.store.FindByID(s.ctx, "dec-1")
	s.Require().NoError(err)
	s.Equal(d, found)
}

func (s *InMemorySuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, "dec-missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestSaveOverwrites() {
	d := s.decision("dec-1", "room-a", moderation.ActionWarn, time.Now())
	s.Require().NoError(s.store.Save(s.ctx, d))

	d.Status = moderation.StatusExecuted
	s.Require().NoError(s.store.Save(s.ctx, d))

	found, err := s.store.FindByID(s.ctx, "dec-1")
	s.Require().NoError(err)
	s.Equal(moderation.StatusExecuted, found.Status)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *InMemorySuite) TestListNewestFirst() {
	base := time.Now()
	s.Require().NoError(s.store.Save(s.ctx, s.decision("dec-1", "room-a", moderation.ActionWarn, base.Add(-2*time.Minute))))
	s.Require().NoError(s.store.Save(s.ctx, s.decision("dec-2", "room-a", moderation.ActionMute, base.Add(-time.Minute))))
	s.Require().NoError(s.store.Save(s.ctx, s.decision("dec-3", "room-b", moderation.ActionNone, base)))

	all, err := s.store.List(s.ctx, moderation.Filters{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("dec-3", all[0].ID)
	s.Equal("dec-1", all[2].ID)
}

func (s *InMemorySuite) TestListFiltered() {
	base := time.Now()
	s.Require().NoError(s.store.Save(s.ctx, s.decision("dec-1", "room-a", moderation.ActionWarn, base)))
	s.Require().NoError(s.store.Save(s.ctx, s.decision("dec-2", "room-b", moderation.ActionMute, base)))

	byRoom, err := s.store.List(s.ctx, moderation.Filters{RoomID: "room-b"})
	s.Require().NoError(err)
	s.Require().Len(byRoom, 1)
	s.Equal("dec-2", byRoom[0].ID)

	min := 0.9
	byConfidence, err := s.store.List(s.ctx, moderation.Filters{MinConfidence: &min})
	s.Require().NoError(err)
	s.Empty(byConfidence)
}

func (s *InMemorySuite) TestConcurrentSaves() {
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := s.decision(fmt.Sprintf("dec-%02d", i), "room-a", moderation.ActionWarn, base.Add(time.Duration(i)*time.Second))
			s.Require().NoError(s.store.Save(s.ctx, d))
		}(i)
	}
	wg.Wait()

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(20, count)

	all, err := s.store.List(s.ctx, moderation.Filters{})
	s.Require().NoError(err)
	s.Require().Len(all, 20)
	s.Equal("dec-19", all[0].ID)
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}
