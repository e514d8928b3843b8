// Package ledger is the append-only record of generation spend.
package ledger

import (
	"context"
	"fmt"
	"time"

	"contentgen/internal/models"

	"github.com/shopspring/decimal"
)

// Store persists cost log entries. Implementations must be safe for
// concurrent writers and must not expose update or delete.
type Store interface {
	Create(entry *models.CostLogEntry) error
	ListByTaskID(taskID string) ([]models.CostLogEntry, error)
	ListByOwnerSince(ownerID uint, since time.Time) ([]models.CostLogEntry, error)
}

// Summary is the per-phase spend of one task.
type Summary struct {
	TaskID    string               `json:"task_id"`
	Breakdown models.CostBreakdown `json:"breakdown"`
	Total     decimal.Decimal      `json:"total"`
	Attempts  int                  `json:"attempts"`
	Failed    int                  `json:"failed"`
}

// BudgetStatus is an owner's spend in the current calendar month.
type BudgetStatus struct {
	OwnerID     uint            `json:"owner_id"`
	PeriodStart time.Time       `json:"period_start"`
	Spent       decimal.Decimal `json:"spent"`
	Cap         decimal.Decimal `json:"cap"`
	Remaining   decimal.Decimal `json:"remaining"`
	Unlimited   bool            `json:"unlimited"`
	Currency    string          `json:"currency"`
}

// Allows reports whether amount fits in the remaining budget.
func (b *BudgetStatus) Allows(amount decimal.Decimal) bool {
	return b.Unlimited || amount.LessThanOrEqual(b.Remaining)
}

// Ledger records and aggregates cost log entries.
type Ledger struct {
	store      Store
	monthlyCap decimal.Decimal
	currency   string
	now        func() time.Time
}

// New creates a Ledger. A zero monthlyCap disables budget limits.
func New(store Store, monthlyCap decimal.Decimal, currency string) *Ledger {
	return &Ledger{
		store:      store,
		monthlyCap: monthlyCap,
		currency:   currency,
		now:        time.Now,
	}
}

// Record appends an entry. Prior entries are never touched.
func (l *Ledger) Record(ctx context.Context, entry *models.CostLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID != 0 {
		return fmt.Errorf("cost log entry %d already recorded", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}
	if err := l.store.Create(entry); err != nil {
		return fmt.Errorf("append cost log entry: %w", err)
	}
	return nil
}

// Aggregate sums a task's entries per phase.
func (l *Ledger) Aggregate(ctx context.Context, taskID string) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := l.store.ListByTaskID(taskID)
	if err != nil {
		return nil, fmt.Errorf("list cost log entries: %w", err)
	}

	s := &Summary{
		TaskID:    taskID,
		Breakdown: make(models.CostBreakdown),
	}
	for _, e := range entries {
		key := string(e.Phase)
		s.Breakdown[key] = s.Breakdown[key].Add(e.Cost)
		s.Attempts++
		if !e.Success {
			s.Failed++
		}
	}
	s.Total = s.Breakdown.Sum()
	return s, nil
}

// Entries returns a task's entries in write order.
func (l *Ledger) Entries(ctx context.Context, taskID string) ([]models.CostLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.ListByTaskID(taskID)
}

// SpentSince sums an owner's spend from since onwards.
func (l *Ledger) SpentSince(ctx context.Context, ownerID uint, since time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	entries, err := l.store.ListByOwnerSince(ownerID, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list owner cost log entries: %w", err)
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Cost)
	}
	return total, nil
}

// BudgetStatus reports spend against the monthly cap.
func (l *Ledger) BudgetStatus(ctx context.Context, ownerID uint) (*BudgetStatus, error) {
	now := l.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	spent, err := l.SpentSince(ctx, ownerID, start)
	if err != nil {
		return nil, err
	}

	status := &BudgetStatus{
		OwnerID:     ownerID,
		PeriodStart: start,
		Spent:       spent,
		Cap:         l.monthlyCap,
		Unlimited:   l.monthlyCap.IsZero(),
		Currency:    l.currency,
	}
	if !status.Unlimited {
		status.Remaining = decimal.Max(decimal.Zero, l.monthlyCap.Sub(spent))
	}
	return status, nil
}
