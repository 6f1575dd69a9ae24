package usecase

import (
	"context"
	"fmt"
	"time"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

// Decision is the outcome of the pre-fetch budget check.
type Decision int

const (
	// Continue allows the next upstream call.
	Continue Decision = iota
	// Exhausted stops the run without issuing the call.
	Exhausted
)

func (d Decision) String() string {
	if d == Exhausted {
		return "exhausted"
	}
	return "continue"
}

// BudgetTracker counts upstream calls against the weekly limit.
// It is a value: the controller receives it and hands back the updated copy.
type BudgetTracker struct {
	Week  domain.BudgetWeek
	Limit int
	// UsedBefore is the week's usage persisted by earlier runs.
	UsedBefore int
	runCalls   int
}

// NewBudgetTracker builds a tracker for week with usage already spent.
func NewBudgetTracker(week domain.BudgetWeek, limit, usedBefore int) BudgetTracker {
	return BudgetTracker{Week: week, Limit: limit, UsedBefore: usedBefore}
}

// LoadBudget sums the persisted usage for the ISO week containing now.
func LoadBudget(ctx context.Context, store ports.BudgetStore, limit int, now time.Time) (BudgetTracker, error) {
	week := domain.WeekOf(now)
	used, err := store.CallsInWeek(ctx, week)
	if err != nil {
		return BudgetTracker{}, fmt.Errorf("load call budget for %s: %w", week, err)
	}
	return NewBudgetTracker(week, limit, used), nil
}

// Remaining returns how many calls are still allowed this week.
func (b BudgetTracker) Remaining() int {
	return b.Limit - b.UsedBefore - b.runCalls
}

// Guard is checked strictly before every fetch.
func (b BudgetTracker) Guard() Decision {
	if b.Remaining() <= 0 {
		return Exhausted
	}
	return Continue
}

// RecordCall counts one successful fetch for this run.
func (b *BudgetTracker) RecordCall() {
	b.runCalls++
}

// CallsThisRun returns the calls made since the tracker was loaded.
func (b BudgetTracker) CallsThisRun() int {
	return b.runCalls
}

// PersistBudget appends this run's call count as one row for the tracker's week.
func PersistBudget(ctx context.Context, store ports.BudgetStore, b BudgetTracker, runID string) error {
	if err := store.RecordCalls(ctx, b.Week, b.runCalls, runID); err != nil {
		return &domain.StorageError{Op: "persist call budget", Err: err}
	}
	return nil
}
