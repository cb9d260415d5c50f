// Package cache holds the read-through campaign statistics cache.
// Writers that change subscriber counts call Invalidate; readers never see data older than the TTL.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

const DefaultTTL = 5 * time.Second

type Loader func(ctx context.Context) (*model.CampaignStats, error)

type StatsCache interface {
	Get(ctx context.Context, campaignID int, load Loader) (*model.CampaignStats, error)
	Invalidate(ctx context.Context, campaignID int) error
}

type entry struct {
	stats   *model.CampaignStats
	expires time.Time
}

// MemoryStatsCache is the single-process implementation
type MemoryStatsCache struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[int]entry
	// gens counts invalidations per campaign; a load started before one is not stored
	gens map[int]uint64
}

func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStatsCache{TTL: ttl, Now: time.Now, entries: map[int]entry{}, gens: map[int]uint64{}}
}

func (c *MemoryStatsCache) Get(ctx context.Context, campaignID int, load Loader) (*model.CampaignStats, error) {
	now := c.Now()

	c.mu.Lock()
	e, ok := c.entries[campaignID]
	gen := c.gens[campaignID]
	c.mu.Unlock()
	if ok && now.Before(e.expires) {
		return e.stats, nil
	}

	stats, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[campaignID] == gen {
		c.entries[campaignID] = entry{stats: stats, expires: now.Add(c.TTL)}
	}
	c.mu.Unlock()
	return stats, nil
}

func (c *MemoryStatsCache) Invalidate(_ context.Context, campaignID int) error {
	c.mu.Lock()
	delete(c.entries, campaignID)
	c.gens[campaignID]++
	c.mu.Unlock()
	return nil
}

var _ StatsCache = (*MemoryStatsCache)(nil)
