package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

// finishTimeout bounds budget persistence and the run report after the run context is done.
const finishTimeout = 30 * time.Second

// IngestJobDeps wires the process-level ingestion entry point.
type IngestJobDeps struct {
	Ingestor    *Ingestor
	Catalog     domain.Catalog
	Checkpoints ports.CheckpointStore
	Budget      ports.BudgetStore
	WeeklyLimit int
	Notifier    ports.Notifier
	Logger      *slog.Logger
	Now         func() time.Time
	NewRunID    func() string
}

// IngestJob reads the week's usage and the latest checkpoint, runs the
// controller, and persists the run's call count whatever the outcome.
type IngestJob struct {
	deps IngestJobDeps
}

// NewIngestJob constructs the entry point.
func NewIngestJob(deps IngestJobDeps) *IngestJob {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = func() string { return uuid.NewString() }
	}
	return &IngestJob{deps: deps}
}

// Run executes one ingestion run.
func (j *IngestJob) Run(ctx context.Context) (res IngestResult, err error) {
	runID := j.deps.NewRunID()
	res.RunID = runID

	budget, err := LoadBudget(ctx, j.deps.Budget, j.deps.WeeklyLimit, j.deps.Now())
	if err != nil {
		return res, err
	}
	res.Budget = budget
	j.info("api calls so far", "run_id", runID, "week", budget.Week.String(), "used", budget.UsedBefore, "limit", budget.Limit)

	defer func() {
		// An interrupted run has still spent its calls; record them on a context the interrupt does not cancel.
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
		defer cancel()

		if persistErr := PersistBudget(finishCtx, j.deps.Budget, res.Budget, runID); persistErr != nil {
			err = errors.Join(err, persistErr)
		}
		j.notify(finishCtx, res, err)
	}()

	start, err := j.deps.Checkpoints.LatestCheckpoint(ctx)
	switch {
	case errors.Is(err, domain.ErrNoCheckpoint):
		start = domain.Checkpoint{Partition: j.deps.Catalog.First(), Page: 0}
	case err != nil:
		return res, fmt.Errorf("load checkpoint: %w", err)
	}

	res, err = j.deps.Ingestor.Run(ctx, runID, start, budget)
	if err != nil {
		return res, fmt.Errorf("ingest run %s: %w", runID, err)
	}

	j.info("ingest run complete",
		"run_id", runID,
		"state", string(res.State),
		"checkpoint", res.Checkpoint.String(),
		"pages", res.PagesStaged,
		"rows", res.RowsStaged,
		"calls", res.Budget.CallsThisRun(),
	)
	return res, nil
}

func (j *IngestJob) notify(ctx context.Context, res IngestResult, runErr error) {
	if j.deps.Notifier == nil {
		return
	}
	if err := j.deps.Notifier.PublishReport(ctx, FormatReport(res, runErr)); err != nil && j.deps.Logger != nil {
		j.deps.Logger.Warn("publish run report", "run_id", res.RunID, "error", err)
	}
}

func (j *IngestJob) info(msg string, args ...interface{}) {
	if j.deps.Logger != nil {
		j.deps.Logger.Info(msg, args...)
	}
}

// FormatReport renders a one-run summary for operators.
func FormatReport(res IngestResult, runErr error) string {
	state := string(res.State)
	if runErr != nil {
		state = "FAILED"
	}

	report := fmt.Sprintf("contributions ingest %s\nrun: %s\npages: %d, rows: %d\ncalls: %d (%d/%d used in %s)",
		state, res.RunID, res.PagesStaged, res.RowsStaged,
		res.Budget.CallsThisRun(), res.Budget.Limit-res.Budget.Remaining(), res.Budget.Limit, res.Budget.Week)
	if runErr == nil && res.State != StateRunning {
		report += "\nnext checkpoint: " + res.Checkpoint.String()
	}
	if runErr != nil {
		report += "\nerror: " + runErr.Error()
	}
	return report
}
