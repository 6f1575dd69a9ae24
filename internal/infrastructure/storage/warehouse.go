// Package storage persists staging rows, dimensions, facts and run bookkeeping in the warehouse.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
	"ContributionsETL/internal/transform"
)

const (
	incubatorTable  = "incubator"
	factTable       = "fact_contribution"
	checkpointTable = "checkpoint"
	budgetTable     = "call_budget"

	// stageChunk bounds rows per INSERT to stay under driver parameter limits.
	stageChunk = 500
)

// Warehouse implements the staging, bookkeeping and modeling ports over database/sql.
type Warehouse struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
	now    func() time.Time
}

var (
	_ ports.StagingLoader    = (*Warehouse)(nil)
	_ ports.CheckpointStore  = (*Warehouse)(nil)
	_ ports.BudgetStore      = (*Warehouse)(nil)
	_ ports.WarehouseModeler = (*Warehouse)(nil)
)

// Open connects to the warehouse with a registered driver ("postgres" or "sqlite3").
func Open(driver, dsn string) (*Warehouse, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s warehouse: %w", driver, err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	return New(db, driver), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, driver string) *Warehouse {
	format := sq.PlaceholderFormat(sq.Question)
	if driver == "postgres" {
		format = sq.Dollar
	}
	return &Warehouse{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(format),
		now:    time.Now,
	}
}

// Ping verifies connectivity.
func (w *Warehouse) Ping(ctx context.Context) error {
	if err := w.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping warehouse: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// StagePage inserts all rows of one page in a single transaction.
func (w *Warehouse) StagePage(ctx context.Context, rows []domain.StagingRow) (err error) {
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	columns := append(append([]string{}, domain.StagingColumns...), "ingested_at")
	for start := 0; start < len(rows); start += stageChunk {
		end := min(start+stageChunk, len(rows))

		insert := w.sb.Insert(incubatorTable).Columns(columns...)
		for _, row := range rows[start:end] {
			insert = insert.Values(transform.Args(row)...)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build staging insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert staging rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staging tx: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the most recently appended resume point.
func (w *Warehouse) LatestCheckpoint(ctx context.Context) (domain.Checkpoint, error) {
	query, args, err := w.sb.Select("partition_code", "page").
		From(checkpointTable).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("build checkpoint query: %w", err)
	}

	var (
		partition string
		page      int
	)
	err = w.db.QueryRowContext(ctx, query, args...).Scan(&partition, &page)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Checkpoint{}, domain.ErrNoCheckpoint
	}
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("query checkpoint: %w", err)
	}
	return domain.Checkpoint{Partition: domain.Partition(partition), Page: page}, nil
}

// AppendCheckpoint adds a resume point; history is retained.
func (w *Warehouse) AppendCheckpoint(ctx context.Context, cp domain.Checkpoint, runID string) error {
	query, args, err := w.sb.Insert(checkpointTable).
		Columns("partition_code", "page", "run_id", "created_at").
		Values(string(cp.Partition), cp.Page, runID, w.now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build checkpoint insert: %w", err)
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// CallsInWeek sums the call counts recorded for week.
func (w *Warehouse) CallsInWeek(ctx context.Context, week domain.BudgetWeek) (int, error) {
	query, args, err := w.sb.Select("COALESCE(SUM(calls), 0)").
		From(budgetTable).
		Where(sq.Eq{"year": week.Year, "week": week.Week}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build budget query: %w", err)
	}

	var calls int64
	if err := w.db.QueryRowContext(ctx, query, args...).Scan(&calls); err != nil {
		return 0, fmt.Errorf("query budget: %w", err)
	}
	return int(calls), nil
}

// RecordCalls appends one run's call count.
func (w *Warehouse) RecordCalls(ctx context.Context, week domain.BudgetWeek, calls int, runID string) error {
	query, args, err := w.sb.Insert(budgetTable).
		Columns("year", "week", "calls", "run_id", "created_at").
		Values(week.Year, week.Week, calls, runID, w.now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build budget insert: %w", err)
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert budget row: %w", err)
	}
	return nil
}
