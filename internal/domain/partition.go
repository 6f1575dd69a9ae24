package domain

import (
	"fmt"
	"strings"
)

// Partition identifies one unit of the ingestion catalog (a state code for the contributions API).
type Partition string

// Catalog is the fixed, ordered set of partitions walked by an ingestion run.
type Catalog []Partition

// States is the default catalog: the fifty US state codes in the order the job visits them.
var States = Catalog{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA", "HI",
	"ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD", "MA", "MI",
	"MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ", "NM", "NY", "NC",
	"ND", "OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT",
	"VT", "VA", "WA", "WV", "WI", "WY",
}

// First returns the head of the catalog; it anchors the "full cycle complete" checkpoint.
func (c Catalog) First() Partition {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Index returns the position of p in the catalog or -1.
func (c Catalog) Index(p Partition) int {
	for i, candidate := range c {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Rotate returns the traversal order starting at start; partitions before start come last.
func (c Catalog) Rotate(start Partition) (Catalog, error) {
	idx := c.Index(start)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPartition, start)
	}

	order := make(Catalog, 0, len(c))
	order = append(order, c[idx:]...)
	order = append(order, c[:idx]...)
	return order, nil
}

// ParseCatalog converts configured codes into a catalog. Codes are trimmed;
// blanks and duplicates are rejected.
func ParseCatalog(codes []string) (Catalog, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]struct{}, len(codes))
	catalog := make(Catalog, 0, len(codes))
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			return nil, fmt.Errorf("catalog contains an empty partition")
		}
		if _, ok := seen[code]; ok {
			return nil, fmt.Errorf("catalog lists %s twice", code)
		}
		seen[code] = struct{}{}
		catalog = append(catalog, Partition(code))
	}
	return catalog, nil
}
