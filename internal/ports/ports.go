package ports

import (
	"context"

	"ContributionsETL/internal/domain"
)

// PageFetcher retrieves one upstream page; failures surface as *domain.UpstreamError.
type PageFetcher interface {
	Fetch(ctx context.Context, partition domain.Partition, page int) (domain.Page, error)
}

// PageArchive stores raw pages keyed by (partition, page); writes overwrite.
type PageArchive interface {
	Store(ctx context.Context, partition domain.Partition, page int, raw []byte) error
	// Load returns domain.ErrPageNotArchived when the key was never stored.
	Load(ctx context.Context, partition domain.Partition, page int) ([]byte, error)
}

// StagingLoader appends transformed rows to the incubator table, one page per transaction.
type StagingLoader interface {
	StagePage(ctx context.Context, rows []domain.StagingRow) error
}

// CheckpointStore is the append-only log of resume points.
type CheckpointStore interface {
	// LatestCheckpoint returns domain.ErrNoCheckpoint when the log is empty.
	LatestCheckpoint(ctx context.Context) (domain.Checkpoint, error)
	AppendCheckpoint(ctx context.Context, cp domain.Checkpoint, runID string) error
}

// BudgetStore is the append-only log of per-run call counts.
type BudgetStore interface {
	CallsInWeek(ctx context.Context, week domain.BudgetWeek) (int, error)
	RecordCalls(ctx context.Context, week domain.BudgetWeek, calls int, runID string) error
}

// DimensionSpec describes one dimension table fed from incubator columns.
type DimensionSpec struct {
	Table   string
	Columns []string
	// StagingColumns defaults to Columns.
	StagingColumns []string
	// SortColumn defaults to the first column.
	SortColumn string
	// Nullable lists dimension columns allowed to be NULL; they are matched null-safely.
	Nullable []string
}

// WarehouseModeler derives dimension and fact rows from the incubator.
type WarehouseModeler interface {
	SyncDimension(ctx context.Context, spec DimensionSpec) (int64, error)
	MaterializeFacts(ctx context.Context) (int64, error)
}

// Notifier publishes a short run report to an operator channel.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// PageDecoder parses an archived response body back into a page.
type PageDecoder interface {
	Decode(partition domain.Partition, page int, raw []byte) (domain.Page, error)
}
