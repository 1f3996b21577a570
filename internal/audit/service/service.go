package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"arbiter/internal/audit"
	"arbiter/internal/broadcast"
	"arbiter/pkg/domain"
	dErrors "arbiter/pkg/domain-errors"
)

// Ledger is the slice of audit storage this service needs.
type Ledger interface {
	Append(ctx context.Context, entry audit.Entry) (int, error)
	List(ctx context.Context) ([]audit.Entry, error)
	Count(ctx context.Context) (int, error)
}

// Service records entries into the append-only ledger and answers audit
// queries. It is the only writer to the ledger; every state-changing
// operation in the system funnels its trail through Record.
type Service struct {
	ledger      Ledger
	broadcaster broadcast.Broadcaster
	logger      *slog.Logger
}

func New(ledger Ledger, broadcaster broadcast.Broadcaster, logger *slog.Logger) *Service {
	if broadcaster == nil {
		broadcaster = broadcast.Nop{}
	}
	return &Service{ledger: ledger, broadcaster: broadcaster, logger: logger}
}

// Record assigns identity and time to the entry, appends it, and notifies
// observers. The append happens in the same logical task as the state change
// being recorded; callers rely on that for causal ordering of their entries.
func (s *Service) Record(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	if entry.ID == "" {
		entry.ID = domain.NewAuditID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if _, err := s.ledger.Append(ctx, entry); err != nil {
		return audit.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "append audit entry")
	}

	s.logger.InfoContext(ctx, "audit entry recorded",
		"audit_id", entry.ID,
		"action_type", entry.ActionType,
		"actor", entry.Actor,
		"decision_id", entry.DecisionID,
	)
	s.broadcaster.Broadcast(ctx, broadcast.EventAuditEntry, entry)
	return entry, nil
}

// List returns entries matching the filters, newest first, paginated.
func (s *Service) List(ctx context.Context, filters audit.Filters, page audit.Page) ([]audit.Entry, error) {
	matched, err := s.filtered(ctx, filters)
	if err != nil {
		return nil, err
	}

	if page.Limit <= 0 {
		page.Limit = audit.DefaultPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Offset >= len(matched) {
		return []audit.Entry{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], nil
}

// Get returns a single entry by id. The ledger keeps no index, so this is a
// linear scan; the audit trail is process-lifetime sized and this is fine.
func (s *Service) Get(ctx context.Context, auditID string) (audit.Entry, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return audit.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries")
	}
	for _, e := range entries {
		if e.ID == auditID {
			return e, nil
		}
	}
	return audit.Entry{}, dErrors.New(dErrors.CodeNotFound, "audit entry not found")
}

// Stats aggregates the full trail.
func (s *Service) Stats(ctx context.Context) (audit.Stats, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return audit.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries")
	}

	stats := audit.Stats{
		TotalEntries: len(entries),
		ByActionType: make(map[audit.ActionType]int),
		ByActor:      make(map[audit.Actor]int),
	}
	for _, e := range entries {
		stats.ByActionType[e.ActionType]++
		stats.ByActor[e.Actor]++
		if stats.OldestEntry == nil || e.Timestamp.Before(*stats.OldestEntry) {
			ts := e.Timestamp
			stats.OldestEntry = &ts
		}
		if stats.NewestEntry == nil || e.Timestamp.After(*stats.NewestEntry) {
			ts := e.Timestamp
			stats.NewestEntry = &ts
		}
	}
	return stats, nil
}

// filtered returns matching entries sorted newest first.
func (s *Service) filtered(ctx context.Context, filters audit.Filters) ([]audit.Entry, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries")
	}

	matched := entries[:0:0]
	for _, e := range entries {
		if filters.Match(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched, nil
}
