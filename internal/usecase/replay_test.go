package usecase

import (
	"context"
	"errors"
	"testing"

	"ContributionsETL/internal/domain"
)

func TestReplayFollowsArchivedMaxPage(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	upstream := &fakeUpstream{rec: rec, maxPages: map[domain.Partition][]int{"X": {2, 2, 2}}}
	archive := newMemArchive(rec)
	archive.pages["X/0"] = []byte("X/0")
	archive.pages["X/1"] = []byte("X/1")
	loader := &memLoader{rec: rec}

	staged, err := NewReplayer(archive, upstream, loader, nil).Replay(context.Background(), "X", nil)
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if staged != 2 || len(loader.rows) != 2 {
		t.Fatalf("expected 2 pages replayed, got %d (%d rows)", staged, len(loader.rows))
	}
	if upstream.calls != 0 {
		t.Fatalf("replay must not call upstream")
	}
}

func TestReplayExplicitPageMissing(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	upstream := &fakeUpstream{rec: rec}
	archive := newMemArchive(rec)
	archive.pages["X/3"] = []byte("X/3")

	staged, err := NewReplayer(archive, upstream, &memLoader{rec: rec}, nil).Replay(context.Background(), "X", []int{3, 4})
	if !errors.Is(err, domain.ErrPageNotArchived) {
		t.Fatalf("expected ErrPageNotArchived, got %v", err)
	}
	if staged != 1 {
		t.Fatalf("expected page 3 staged before failure, got %d", staged)
	}
}
