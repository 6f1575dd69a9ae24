package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContributionsETL/internal/config"
	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/infrastructure/archive"
	"ContributionsETL/internal/infrastructure/storage"
	"ContributionsETL/internal/infrastructure/telegram"
	"ContributionsETL/internal/infrastructure/upstream"
	"ContributionsETL/internal/logging"
	"ContributionsETL/internal/ports"
	"ContributionsETL/internal/transform"
	"ContributionsETL/internal/usecase"
)

// Application wires configs to adapters and use cases.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	catalog   domain.Catalog
	warehouse *storage.Warehouse
	job       *usecase.IngestJob
	replayer  *usecase.Replayer
	loader    *usecase.WarehouseLoader
}

// Status is the resume point and this week's call usage.
type Status struct {
	Checkpoint    domain.Checkpoint
	HasCheckpoint bool
	Budget        usecase.BudgetTracker
}

// New validates the configuration and builds every adapter. Close releases the warehouse.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	catalog := domain.States
	if len(cfg.Catalog.Partitions) > 0 {
		parsed, err := domain.ParseCatalog(cfg.Catalog.Partitions)
		if err != nil {
			return nil, fmt.Errorf("build catalog: %w", err)
		}
		catalog = parsed
	}

	pages, err := newArchive(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}

	warehouse, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := warehouse.Ping(ctx); err != nil {
		_ = warehouse.Close()
		return nil, err
	}

	client := upstream.NewClient(cfg.Upstream, nil, baseLogger.With("component", "upstream"))

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	ingestor := usecase.NewIngestor(usecase.IngestorDeps{
		Catalog:     catalog,
		Fetcher:     client,
		Archive:     pages,
		Loader:      warehouse,
		Checkpoints: warehouse,
		Logger:      baseLogger.With("component", "ingestor"),
		Now:         time.Now,
	})

	job := usecase.NewIngestJob(usecase.IngestJobDeps{
		Ingestor:    ingestor,
		Catalog:     catalog,
		Checkpoints: warehouse,
		Budget:      warehouse,
		WeeklyLimit: cfg.Budget.WeeklyLimit,
		Notifier:    notifier,
		Logger:      baseLogger.With("component", "job"),
		Now:         time.Now,
	})

	var replayArchive ports.PageArchive = pages
	if cfg.Archive.CacheTTL > 0 {
		replayArchive = archive.NewCached(pages, cfg.Archive.CacheTTL)
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		catalog:   catalog,
		warehouse: warehouse,
		job:       job,
		replayer:  usecase.NewReplayer(replayArchive, client, warehouse, baseLogger.With("component", "replay")),
		loader:    usecase.NewWarehouseLoader(warehouse, storage.Dimensions, baseLogger.With("component", "warehouse")),
	}, nil
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig) (ports.PageArchive, error) {
	switch cfg.Backend {
	case config.ArchiveS3:
		a, err := archive.NewS3Archive(ctx, cfg.Bucket, cfg.Prefix, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("build s3 archive: %w", err)
		}
		return a, nil
	default:
		return archive.NewFileArchive(cfg.Dir), nil
	}
}

// Logger returns the root logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Close releases the warehouse connection.
func (a *Application) Close() error {
	return a.warehouse.Close()
}

// Migrate creates the warehouse schema.
func (a *Application) Migrate(ctx context.Context) error {
	return a.warehouse.Migrate(ctx)
}

// Ingest performs one resumable ingestion run.
func (a *Application) Ingest(ctx context.Context) (usecase.IngestResult, error) {
	return a.job.Run(ctx)
}

// Load synchronizes dimensions and materializes facts from staging.
func (a *Application) Load(ctx context.Context) (usecase.LoadReport, error) {
	return a.loader.Load(ctx)
}

// Replay stages archived pages of one partition without upstream calls.
func (a *Application) Replay(ctx context.Context, partition domain.Partition, pages []int) (int, error) {
	if a.catalog.Index(partition) < 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownPartition, partition)
	}
	return a.replayer.Replay(ctx, partition, pages)
}

// LegacySQL renders an archived page as the literal incubator INSERT.
func (a *Application) LegacySQL(ctx context.Context, partition domain.Partition, page int) (string, error) {
	rows, err := a.replayer.Rows(ctx, partition, page)
	if err != nil {
		return "", err
	}
	return transform.LegacyInsert(rows), nil
}

// Status reports the latest checkpoint and this week's call usage.
func (a *Application) Status(ctx context.Context) (Status, error) {
	var st Status

	cp, err := a.warehouse.LatestCheckpoint(ctx)
	switch {
	case errors.Is(err, domain.ErrNoCheckpoint):
	case err != nil:
		return st, err
	default:
		st.Checkpoint, st.HasCheckpoint = cp, true
	}

	st.Budget, err = usecase.LoadBudget(ctx, a.warehouse, a.cfg.Budget.WeeklyLimit, time.Now())
	if err != nil {
		return st, err
	}
	return st, nil
}
