package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
	"ContributionsETL/internal/transform"
)

// RunState is the controller's state machine position.
type RunState string

const (
	StateRunning   RunState = "RUNNING"
	StateExhausted RunState = "EXHAUSTED"
	StateCompleted RunState = "COMPLETED"
)

// IngestorDeps wires the controller to its collaborators.
type IngestorDeps struct {
	Catalog     domain.Catalog
	Fetcher     ports.PageFetcher
	Archive     ports.PageArchive
	Loader      ports.StagingLoader
	Checkpoints ports.CheckpointStore
	Logger      *slog.Logger
	Now         func() time.Time
}

// Ingestor walks the partition catalog page by page within the call budget.
type Ingestor struct {
	catalog     domain.Catalog
	fetcher     ports.PageFetcher
	archive     ports.PageArchive
	loader      ports.StagingLoader
	checkpoints ports.CheckpointStore
	logger      *slog.Logger
	now         func() time.Time
}

// IngestResult summarizes one controller run.
type IngestResult struct {
	RunID       string
	State       RunState
	Checkpoint  domain.Checkpoint
	PagesStaged int
	RowsStaged  int
	Budget      BudgetTracker
}

// NewIngestor constructs the resumable ingestion controller.
func NewIngestor(deps IngestorDeps) *Ingestor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Ingestor{
		catalog:     deps.Catalog,
		fetcher:     deps.Fetcher,
		archive:     deps.Archive,
		loader:      deps.Loader,
		checkpoints: deps.Checkpoints,
		logger:      deps.Logger,
		now:         now,
	}
}

// Run ingests from start until the rotation completes or the budget runs out.
// The returned result always carries the updated budget, including on error,
// so the caller can persist the calls that were spent.
func (in *Ingestor) Run(ctx context.Context, runID string, start domain.Checkpoint, budget BudgetTracker) (IngestResult, error) {
	res := IngestResult{RunID: runID, State: StateRunning, Budget: budget}

	order, err := in.catalog.Rotate(start.Partition)
	if err != nil {
		return res, fmt.Errorf("resume from %s: %w", start, err)
	}
	if start.Page < 0 {
		return res, fmt.Errorf("resume from %s: negative page", start)
	}

	in.debug("ingest start", "run_id", runID, "checkpoint", start.String(), "remaining_calls", budget.Remaining())

	page := start.Page
	for _, partition := range order {
		maxPage := page
		for page <= maxPage {
			if res.Budget.Guard() == Exhausted {
				return in.finish(ctx, res, StateExhausted, domain.Checkpoint{Partition: partition, Page: page})
			}

			fetched, err := in.ingestPage(ctx, &res, partition, page)
			if err != nil {
				return res, err
			}
			maxPage = fetched.MaxPage
			in.debug("max page", "partition", partition, "max_page", maxPage)
			page++
		}
		page = 0
	}

	// Pages before the resume point of the start partition complete the rotation.
	for prefix := 0; prefix < start.Page; prefix++ {
		if res.Budget.Guard() == Exhausted {
			return in.finish(ctx, res, StateExhausted, domain.Checkpoint{Partition: start.Partition, Page: prefix})
		}
		if _, err := in.ingestPage(ctx, &res, start.Partition, prefix); err != nil {
			return res, err
		}
	}

	return in.finish(ctx, res, StateCompleted, domain.Checkpoint{Partition: in.catalog.First(), Page: 0})
}

// ingestPage fetches, archives and stages one page; the archive write precedes staging.
func (in *Ingestor) ingestPage(ctx context.Context, res *IngestResult, partition domain.Partition, page int) (domain.Page, error) {
	in.debug("fetch page", "partition", partition, "page", page)

	fetched, err := in.fetcher.Fetch(ctx, partition, page)
	if err != nil {
		return domain.Page{}, fmt.Errorf("fetch %s/%d: %w", partition, page, err)
	}
	res.Budget.RecordCall()
	in.debug("used api calls", "used", res.Budget.Limit-res.Budget.Remaining(), "limit", res.Budget.Limit)

	if err := in.archive.Store(ctx, partition, page, fetched.Raw); err != nil {
		return domain.Page{}, &domain.StorageError{Op: fmt.Sprintf("archive %s/%d", partition, page), Err: err}
	}

	rows, err := transform.Page(fetched, in.now())
	if err != nil {
		return domain.Page{}, err
	}

	if err := in.loader.StagePage(ctx, rows); err != nil {
		return domain.Page{}, &domain.StorageError{Op: fmt.Sprintf("stage %s/%d", partition, page), Err: err}
	}

	res.PagesStaged++
	res.RowsStaged += len(rows)
	in.debug("staged page", "partition", partition, "page", page, "rows", len(rows))
	return fetched, nil
}

func (in *Ingestor) finish(ctx context.Context, res IngestResult, state RunState, cp domain.Checkpoint) (IngestResult, error) {
	if err := in.checkpoints.AppendCheckpoint(ctx, cp, res.RunID); err != nil {
		return res, &domain.StorageError{Op: "append checkpoint " + cp.String(), Err: err}
	}
	res.State = state
	res.Checkpoint = cp
	in.debug("ingest finished", "state", string(state), "checkpoint", cp.String(), "calls", res.Budget.CallsThisRun())
	return res, nil
}

func (in *Ingestor) debug(msg string, args ...interface{}) {
	if in.logger != nil {
		in.logger.Debug(msg, args...)
	}
}
