package appmeta

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/radiusdt/mediaplan/internal/database"
)

// Cache stores resolved app metadata.
type Cache interface {
	Get(ctx context.Context, key string) (AppInfo, bool, error)
	Set(ctx context.Context, key string, info AppInfo, ttl time.Duration) error
	Backend() string
}

// RedisCache keeps lookups in Redis so they survive restarts and are shared
// between replicas.
type RedisCache struct {
	db *database.RedisDB
}

func NewRedisCache(db *database.RedisDB) *RedisCache {
	return &RedisCache{db: db}
}

func (c *RedisCache) Get(ctx context.Context, key string) (AppInfo, bool, error) {
	var info AppInfo
	err := c.db.GetJSON(ctx, key, &info)
	if errors.Is(err, database.ErrCacheMiss) {
		return AppInfo{}, false, nil
	}
	if err != nil {
		return AppInfo{}, false, err
	}
	return info, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, info AppInfo, ttl time.Duration) error {
	return c.db.SetJSON(ctx, key, info, ttl)
}

func (c *RedisCache) Backend() string { return "redis" }

type memoryEntry struct {
	info    AppInfo
	expires time.Time
}

// MemoryCache is a process-local cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (AppInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return AppInfo{}, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return AppInfo{}, false, nil
	}
	return e.info, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, info AppInfo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{info: info}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryCache) Backend() string { return "memory" }
