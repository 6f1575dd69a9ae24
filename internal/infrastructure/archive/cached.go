package archive

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

// Cached keeps recently stored or loaded pages in memory in front of another archive.
type Cached struct {
	next  ports.PageArchive
	cache *gocache.Cache
}

var _ ports.PageArchive = (*Cached)(nil)

// NewCached wraps next with an in-memory cache whose entries live for ttl.
func NewCached(next ports.PageArchive, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: gocache.New(ttl, 2*ttl)}
}

// Store writes through to the wrapped archive, then refreshes the cached copy.
func (c *Cached) Store(ctx context.Context, partition domain.Partition, page int, raw []byte) error {
	if err := c.next.Store(ctx, partition, page, raw); err != nil {
		c.cache.Delete(Key("", partition, page))
		return err
	}
	c.cache.SetDefault(Key("", partition, page), raw)
	return nil
}

// Load serves from memory when possible.
func (c *Cached) Load(ctx context.Context, partition domain.Partition, page int) ([]byte, error) {
	key := Key("", partition, page)
	if val, found := c.cache.Get(key); found {
		return val.([]byte), nil
	}

	raw, err := c.next.Load(ctx, partition, page)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, raw)
	return raw, nil
}
