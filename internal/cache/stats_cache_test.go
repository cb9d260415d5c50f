package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

type countingLoader struct {
	calls int
	stats *model.CampaignStats
	err   error
}

func (l *countingLoader) load(context.Context) (*model.CampaignStats, error) {
	l.calls++
	return l.stats, l.err
}

func sampleStats() *model.CampaignStats {
	return model.NewCampaignStats(1, 4, map[model.SubscriberStatus]int{model.SubscriberComplete: 1})
}

func TestMemoryStatsCache_ReadThroughAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c := cache.NewMemoryStatsCache(5 * time.Second)
	c.Now = func() time.Time { return now }
	l := &countingLoader{stats: sampleStats()}
	ctx := context.Background()

	got, err := c.Get(ctx, 1, l.load)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.CompletionPercent)

	_, _ = c.Get(ctx, 1, l.load)
	assert.Equal(t, 1, l.calls)

	now = now.Add(5 * time.Second)
	_, _ = c.Get(ctx, 1, l.load)
	assert.Equal(t, 2, l.calls)
}

func TestMemoryStatsCache_InvalidateForcesReload(t *testing.T) {
	c := cache.NewMemoryStatsCache(time.Minute)
	l := &countingLoader{stats: sampleStats()}
	ctx := context.Background()

	_, _ = c.Get(ctx, 1, l.load)
	require.NoError(t, c.Invalidate(ctx, 1))
	_, _ = c.Get(ctx, 1, l.load)
	assert.Equal(t, 2, l.calls)
}

func TestMemoryStatsCache_LoadRacingInvalidateIsNotStored(t *testing.T) {
	c := cache.NewMemoryStatsCache(time.Minute)
	ctx := context.Background()
	calls := 0
	load := func(ctx context.Context) (*model.CampaignStats, error) {
		calls++
		if calls == 1 {
			// a writer commits while the first read is still counting
			require.NoError(t, c.Invalidate(ctx, 1))
		}
		return sampleStats(), nil
	}

	_, err := c.Get(ctx, 1, load)
	require.NoError(t, err)
	_, err = c.Get(ctx, 1, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, _ = c.Get(ctx, 1, load)
	assert.Equal(t, 2, calls)
}

func TestMemoryStatsCache_LoaderErrorNotCached(t *testing.T) {
	c := cache.NewMemoryStatsCache(time.Minute)
	l := &countingLoader{err: errors.New("db down")}
	ctx := context.Background()

	_, err := c.Get(ctx, 1, l.load)
	require.Error(t, err)

	l.err, l.stats = nil, sampleStats()
	got, err := c.Get(ctx, 1, l.load)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Contacts)
}

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	ttl     time.Duration
	failGet bool
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStatsCache_StoresWithTTLAndServesHits(t *testing.T) {
	rdb := newFakeRedis()
	c := cache.NewRedisStatsCache(rdb, 5*time.Second, nil)
	l := &countingLoader{stats: sampleStats()}
	ctx := context.Background()

	_, err := c.Get(ctx, 1, l.load)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, rdb.ttl)
	assert.Contains(t, rdb.data, "campaign:1:stats")

	got, err := c.Get(ctx, 1, l.load)
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, 1, got.Subscribers[model.SubscriberComplete])

	require.NoError(t, c.Invalidate(ctx, 1))
	assert.NotContains(t, rdb.data, "campaign:1:stats")
}

func TestRedisStatsCache_ReadFailureFallsThrough(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failGet = true
	c := cache.NewRedisStatsCache(rdb, time.Second, nil)
	l := &countingLoader{stats: sampleStats()}

	got, err := c.Get(context.Background(), 1, l.load)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Contacts)
	assert.Equal(t, 1, l.calls)
}
