package domain

import (
	"fmt"
	"time"
)

// Checkpoint is the persisted "resume here" marker.
type Checkpoint struct {
	Partition Partition
	Page      int
}

// Sentinel reports whether the checkpoint marks a completed full cycle for the catalog.
func (c Checkpoint) Sentinel(catalog Catalog) bool {
	return c.Partition == catalog.First() && c.Page == 0
}

func (c Checkpoint) String() string {
	return fmt.Sprintf("%s/%d", c.Partition, c.Page)
}

// BudgetWeek keys call-budget rows by calendar year and ISO week.
type BudgetWeek struct {
	Year int
	Week int
}

// WeekOf returns the ISO week the given instant falls into.
func WeekOf(t time.Time) BudgetWeek {
	year, week := t.ISOWeek()
	return BudgetWeek{Year: year, Week: week}
}

func (w BudgetWeek) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Week)
}
