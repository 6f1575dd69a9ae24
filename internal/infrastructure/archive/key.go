// Package archive keeps raw upstream pages keyed by (partition, page).
package archive

import (
	"fmt"
	"path"

	"ContributionsETL/internal/domain"
)

// Key returns the slash-separated object key of a page below prefix.
func Key(prefix string, partition domain.Partition, page int) string {
	return path.Join(prefix, string(partition), fmt.Sprintf("%d.json", page))
}
