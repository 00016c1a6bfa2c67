package tables

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultColumnTTL is how long discovered columns are reused.
const DefaultColumnTTL = 15 * time.Minute

// ColumnCache keeps discovered column lists per table. Concurrent misses for
// the same table share one discovery.
type ColumnCache struct {
	cache *gocache.Cache
	group singleflight.Group
}

// NewColumnCache creates a cache. A non-positive ttl uses DefaultColumnTTL.
func NewColumnCache(ttl time.Duration) *ColumnCache {
	if ttl <= 0 {
		ttl = DefaultColumnTTL
	}
	return &ColumnCache{cache: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached columns for table, calling load on a miss.
func (c *ColumnCache) Get(ctx context.Context, table string, load func(context.Context) ([]string, error)) ([]string, error) {
	if v, ok := c.cache.Get(table); ok {
		return clone(v.([]string)), nil
	}

	v, err, _ := c.group.Do(table, func() (any, error) {
		cols, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(table, cols)
		return cols, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]string)), nil
}

// Flush drops every cached entry.
func (c *ColumnCache) Flush() {
	c.cache.Flush()
}

func clone(cols []string) []string {
	return append([]string(nil), cols...)
}
