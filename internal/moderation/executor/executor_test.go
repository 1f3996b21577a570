package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/audit"
	"arbiter/internal/audit/ledger"
	auditservice "arbiter/internal/audit/service"
	"arbiter/internal/broadcast"
	"arbiter/internal/moderation"
	"arbiter/internal/moderation/store"
	"arbiter/internal/platform/logger"
	"arbiter/internal/policy"
)

type fixture struct {
	executor  *Executor
	decisions *store.InMemory
	trail     *ledger.AppendOnly
}

func newFixture() *fixture {
	decisions := store.NewInMemory()
	trail := ledger.NewAppendOnly()
	auditor := auditservice.New(trail, broadcast.Nop{}, logger.NewNop())
	return &fixture{
		executor:  New(decisions, auditor, broadcast.Nop{}, logger.NewNop()),
		decisions: decisions,
		trail:     trail,
	}
}

func testInput() moderation.Input {
	return moderation.Input{
		RoomID:              "room-1",
		ParticipantID:       "pa-1",
		ParticipantIdentity: "alice",
		Content:             "some message",
		ContentType:         moderation.ContentText,
	}
}

func TestExecute_NoAction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	decision, err := f.executor.Execute(ctx, testInput(), policy.CategoryNone, 0, moderation.ActionNone, nil, "Classification: clean")
	require.NoError(t, err)

	assert.Equal(t, moderation.StatusPending, decision.Status)
	assert.Nil(t, decision.PolicyID)
	assert.NotEmpty(t, decision.ID)

	stored, err := f.decisions.FindByID(ctx, decision.ID)
	require.NoError(t, err)
	assert.Equal(t, moderation.StatusPending, stored.Status)

	entries, err := f.trail.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionDecisionCreated, entries[0].ActionType)
	assert.Equal(t, audit.ActorAI, entries[0].Actor)
	assert.Equal(t, decision.ID, entries[0].DecisionID)
	assert.Contains(t, entries[0].Reason, "with confidence 0.00")
}

func TestExecute_WithAction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	policyID := "policy-harassment"

	decision, err := f.executor.Execute(ctx, testInput(), policy.CategoryHarassment, 0.92, moderation.ActionFlagForReview, &policyID, "Classification: targeted abuse | Scoring: explicit and repeated")
	require.NoError(t, err)

	assert.Equal(t, moderation.StatusExecuted, decision.Status)
	require.NotNil(t, decision.PolicyID)
	assert.Equal(t, policyID, *decision.PolicyID)

	stored, err := f.decisions.FindByID(ctx, decision.ID)
	require.NoError(t, err)
	assert.Equal(t, moderation.StatusExecuted, stored.Status)

	entries, err := f.trail.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionDecisionCreated, entries[0].ActionType)
	assert.Equal(t, audit.ActionContentFlagged, entries[1].ActionType)
	assert.Equal(t, "Action executed: flag_for_review on participant alice", entries[1].Reason)
	assert.Equal(t, "room-1", entries[1].Metadata["room_id"])
}

func TestExecute_AuditTypePerAction(t *testing.T) {
	tests := []struct {
		action moderation.Action
		want   audit.ActionType
	}{
		{moderation.ActionWarn, audit.ActionParticipantWarned},
		{moderation.ActionMute, audit.ActionParticipantMuted},
		{moderation.ActionFlagForReview, audit.ActionContentFlagged},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			f := newFixture()
			policyID := "policy-spam"

			_, err := f.executor.Execute(context.Background(), testInput(), policy.CategorySpam, 0.95, tt.action, &policyID, "r")
			require.NoError(t, err)

			entries, err := f.trail.List(context.Background())
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, tt.want, entries[1].ActionType)
		})
	}
}

func TestExecute_BroadcastsDecision(t *testing.T) {
	decisions := store.NewInMemory()
	auditor := auditservice.New(ledger.NewAppendOnly(), broadcast.Nop{}, logger.NewNop())

	var gotType string
	sink := broadcast.Func(func(_ context.Context, eventType string, _ any) {
		gotType = eventType
	})
	exec := New(decisions, auditor, sink, logger.NewNop())

	_, err := exec.Execute(context.Background(), testInput(), policy.CategoryNone, 0, moderation.ActionNone, nil, "clean")
	require.NoError(t, err)
	assert.Equal(t, broadcast.EventModerationDecision, gotType)
}
