package progression

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coocood/freecache"
)

const megabyte = 1024 * 1024

// MinCacheSizeMB is the smallest cache NewCache builds. freecache rejects
// entries larger than 1/1024 of its size; a six-month dashboard with ten
// records runs to about 7 KiB, so 16 MB leaves each entry 16 KiB.
const MinCacheSizeMB = 16

// Cache holds computed dashboards per user and period. It is created once
// and handed to whatever reads or invalidates it. A nil *Cache is valid
// and caches nothing.
type Cache struct {
	store *freecache.Cache
	ttl   int
	log   *slog.Logger

	mu          sync.Mutex
	generations map[int]uint64
}

// NewCache returns a cache of sizeMB megabytes whose entries expire after
// ttlSeconds. Sizes below MinCacheSizeMB are raised to it.
func NewCache(sizeMB, ttlSeconds int, log *slog.Logger) *Cache {
	sizeMB = max(sizeMB, MinCacheSizeMB)
	return &Cache{
		store:       freecache.NewCache(sizeMB * megabyte),
		ttl:         ttlSeconds,
		log:         log,
		generations: make(map[int]uint64),
	}
}

// Generation returns the user's invalidation counter. Read it before
// computing a dashboard and pass it to Set.
func (c *Cache) Generation(userID int) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[userID]
}

func cacheKey(userID int, period Period) []byte {
	return fmt.Appendf(nil, "progression::%d::%s", userID, period)
}

// Get returns the cached dashboard, if any.
func (c *Cache) Get(userID int, period Period) (*Dashboard, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.store.Get(cacheKey(userID, period))
	if err != nil {
		return nil, false
	}
	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		c.log.Error("decoding cached dashboard", "user_id", userID, "period", period, "error", err)
		c.store.Del(cacheKey(userID, period))
		return nil, false
	}
	return &d, true
}

// Set stores a dashboard computed at generation gen. It is dropped when the
// user was invalidated since gen was read. Failures are logged; the cache
// is best effort.
func (c *Cache) Set(userID int, period Period, d *Dashboard, gen uint64) {
	if c == nil {
		return
	}
	data, err := json.Marshal(d)
	if err != nil {
		c.log.Error("encoding dashboard for cache", "user_id", userID, "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != gen {
		c.log.Debug("dropping stale dashboard", "user_id", userID, "period", period)
		return
	}
	if err := c.store.Set(cacheKey(userID, period), data, c.ttl); err != nil {
		c.log.Warn("caching dashboard", "user_id", userID, "period", period, "error", err)
	}
}

// Invalidate drops every cached period for a user.
func (c *Cache) Invalidate(userID int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	for _, p := range Periods {
		c.store.Del(cacheKey(userID, p))
	}
}

// Clear drops everything.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.store.Clear()
}

// Len returns the number of live entries.
func (c *Cache) Len() int64 {
	if c == nil {
		return 0
	}
	return c.store.EntryCount()
}
