package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
	"ContributionsETL/internal/transform"
)

// Replayer stages archived pages without spending upstream calls.
type Replayer struct {
	archive ports.PageArchive
	decoder ports.PageDecoder
	loader  ports.StagingLoader
	logger  *slog.Logger
	now     func() time.Time
}

// NewReplayer wires the archive recovery path.
func NewReplayer(archive ports.PageArchive, decoder ports.PageDecoder, loader ports.StagingLoader, logger *slog.Logger) *Replayer {
	return &Replayer{archive: archive, decoder: decoder, loader: loader, logger: logger, now: time.Now}
}

// ReadPage loads and decodes one archived page.
func (r *Replayer) ReadPage(ctx context.Context, partition domain.Partition, page int) (domain.Page, error) {
	raw, err := r.archive.Load(ctx, partition, page)
	if err != nil {
		return domain.Page{}, fmt.Errorf("load archived %s/%d: %w", partition, page, err)
	}
	decoded, err := r.decoder.Decode(partition, page, raw)
	if err != nil {
		return domain.Page{}, fmt.Errorf("decode archived %s/%d: %w", partition, page, err)
	}
	return decoded, nil
}

// Rows returns the staging rows an archived page would produce.
func (r *Replayer) Rows(ctx context.Context, partition domain.Partition, page int) ([]domain.StagingRow, error) {
	decoded, err := r.ReadPage(ctx, partition, page)
	if err != nil {
		return nil, err
	}
	return transform.Page(decoded, r.now())
}

// Replay stages the listed pages. With no pages it replays 0..maxPage as
// recorded in the archived page 0, stopping at the first page never archived.
func (r *Replayer) Replay(ctx context.Context, partition domain.Partition, pages []int) (int, error) {
	explicit := len(pages) > 0
	if !explicit {
		head, err := r.ReadPage(ctx, partition, 0)
		if err != nil {
			return 0, err
		}
		for p := 0; p <= head.MaxPage; p++ {
			pages = append(pages, p)
		}
	}

	staged := 0
	for _, page := range pages {
		rows, err := r.Rows(ctx, partition, page)
		if errors.Is(err, domain.ErrPageNotArchived) && !explicit {
			r.debug("archive ends early", "partition", partition, "page", page)
			break
		}
		if err != nil {
			return staged, err
		}
		if err := r.loader.StagePage(ctx, rows); err != nil {
			return staged, &domain.StorageError{Op: fmt.Sprintf("stage %s/%d", partition, page), Err: err}
		}
		staged++
		r.debug("replayed page", "partition", partition, "page", page, "rows", len(rows))
	}
	return staged, nil
}

func (r *Replayer) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
