package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"contentgen/internal/models"
	"contentgen/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, monthlyCap string) *Ledger {
	t.Helper()
	db, err := models.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	return New(repository.NewCostLogRepository(db), decimal.RequireFromString(monthlyCap), "USD")
}

func entry(taskID string, owner uint, phase models.Phase, cost string, ok bool) *models.CostLogEntry {
	return &models.CostLogEntry{
		TaskID:   taskID,
		OwnerID:  owner,
		Phase:    phase,
		ModelID:  "gpt-4o-mini",
		Provider: "openai",
		Attempt:  1,
		Cost:     decimal.RequireFromString(cost),
		Success:  ok,
	}
}

func TestLedger_AggregateSumsPerPhase(t *testing.T) {
	l := newTestLedger(t, "0")
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, entry("t1", 1, models.PhaseResearch, "0.002", true)))
	require.NoError(t, l.Record(ctx, entry("t1", 1, models.PhaseDraft, "0", false)))
	require.NoError(t, l.Record(ctx, entry("t1", 1, models.PhaseDraft, "0.045", true)))
	require.NoError(t, l.Record(ctx, entry("t2", 1, models.PhaseDraft, "9", true)))

	s, err := l.Aggregate(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, 1, s.Failed)
	assert.True(t, s.Breakdown[string(models.PhaseDraft)].Equal(decimal.RequireFromString("0.045")))
	assert.True(t, s.Total.Equal(decimal.RequireFromString("0.047")))
	assert.True(t, s.Total.Equal(s.Breakdown.Sum()))
}

func TestLedger_RecordRefusesRewrite(t *testing.T) {
	l := newTestLedger(t, "0")
	ctx := context.Background()

	e := entry("t1", 1, models.PhaseResearch, "0.002", true)
	require.NoError(t, l.Record(ctx, e))
	require.NotZero(t, e.ID)

	assert.Error(t, l.Record(ctx, e))

	entries, err := l.Entries(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_ConcurrentWriters(t *testing.T) {
	l := newTestLedger(t, "0")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Record(ctx, entry("t1", 1, models.PhaseOutline, "0.001", true)))
		}()
	}
	wg.Wait()

	s, err := l.Aggregate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 20, s.Attempts)
	assert.True(t, s.Total.Equal(decimal.RequireFromString("0.020")))
}

func TestLedger_BudgetStatus(t *testing.T) {
	l := newTestLedger(t, "1.00")
	ctx := context.Background()
	fixed := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	old := entry("t0", 7, models.PhaseDraft, "5", true)
	old.CreatedAt = fixed.AddDate(0, -1, 0)
	require.NoError(t, l.Record(ctx, old))
	require.NoError(t, l.Record(ctx, entry("t1", 7, models.PhaseDraft, "0.40", true)))
	require.NoError(t, l.Record(ctx, entry("t2", 8, models.PhaseDraft, "0.90", true)))

	status, err := l.BudgetStatus(ctx, 7)
	require.NoError(t, err)
	assert.False(t, status.Unlimited)
	assert.True(t, status.Spent.Equal(decimal.RequireFromString("0.40")), status.Spent.String())
	assert.True(t, status.Remaining.Equal(decimal.RequireFromString("0.60")))
	assert.True(t, status.Allows(decimal.RequireFromString("0.60")))
	assert.False(t, status.Allows(decimal.RequireFromString("0.61")))
}

func TestLedger_ZeroCapIsUnlimited(t *testing.T) {
	l := newTestLedger(t, "0")

	status, err := l.BudgetStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.Unlimited)
	assert.True(t, status.Allows(decimal.NewFromInt(1_000_000)))
}
