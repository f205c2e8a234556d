package cache

import (
	"time"

	activeuserdomain "github.com/smallbiznis/pulse/internal/activeuser/domain"
)

const (
	defaultOverviewTTL  = 30 * time.Second
	defaultOverviewSize = 256
)

// OverviewCache stores live admin active-user reads keyed by asOf truncated
// to the minute. Pinned as_of reads and scheduled jobs bypass it.
type OverviewCache interface {
	Get(asOf time.Time) (activeuserdomain.Overview, bool)
	Set(asOf time.Time, overview activeuserdomain.Overview)
}

type overviewCache struct {
	entries Cache[int64, activeuserdomain.Overview]
}

func NewOverviewCache() OverviewCache {
	return NewOverviewCacheWithTTL(defaultOverviewTTL)
}

func NewOverviewCacheWithTTL(ttl time.Duration) OverviewCache {
	return &overviewCache{
		entries: NewTTLCache[int64, activeuserdomain.Overview](defaultOverviewSize, ttl),
	}
}

func (c *overviewCache) Get(asOf time.Time) (activeuserdomain.Overview, bool) {
	return c.entries.Get(overviewKey(asOf))
}

func (c *overviewCache) Set(asOf time.Time, overview activeuserdomain.Overview) {
	c.entries.Set(overviewKey(asOf), overview)
}

func overviewKey(asOf time.Time) int64 {
	return asOf.UTC().Truncate(time.Minute).Unix()
}
