package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

// FileArchive stores pages as files below a root directory.
type FileArchive struct {
	root string
}

var _ ports.PageArchive = (*FileArchive)(nil)

// NewFileArchive roots the archive at dir; directories are created on first write.
func NewFileArchive(dir string) *FileArchive {
	return &FileArchive{root: dir}
}

func (a *FileArchive) path(partition domain.Partition, page int) string {
	return filepath.Join(a.root, filepath.FromSlash(Key("", partition, page)))
}

// Store writes the page through a temp file and rename, replacing any earlier copy.
func (a *FileArchive) Store(_ context.Context, partition domain.Partition, page int, raw []byte) (err error) {
	target := a.path(partition, page)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".page-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename into %s: %w", target, err)
	}
	return nil
}

// Load reads an archived page.
func (a *FileArchive) Load(_ context.Context, partition domain.Partition, page int) ([]byte, error) {
	raw, err := os.ReadFile(a.path(partition, page))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%d: %w", partition, page, domain.ErrPageNotArchived)
	}
	if err != nil {
		return nil, fmt.Errorf("read archived page: %w", err)
	}
	return raw, nil
}
