// Package lrucache is a bounded in-process LRU cache that doubles as the
// governor's cache collaborator: it reports hit/miss statistics and supports
// an explicit memory-reclamation pass that evicts down to a low-water mark.
package lrucache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"github.com/renderpulse/renderpulse/pkg/domain"
)

type item struct {
	key   string
	value []byte
}

// Cache is a fixed-capacity LRU keyed by string. All operations are safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	index    map[string]*list.Element
	logger   *slog.Logger

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache holding at most capacity entries.
func New(capacity int, logger *slog.Logger) *Cache {
	if capacity <= 0 {
		capacity = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
		logger:   logger,
	}
}

// Get returns the cached value and marks it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*item).value, true
}

// Set inserts or replaces a value, evicting the least recently used entry
// when the cache is full.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		el.Value.(*item).value = value
		c.order.MoveToFront(el)
		return
	}

	c.index[key] = c.order.PushFront(&item{key: key, value: value})
	for c.order.Len() > c.capacity {
		c.evictOldestLocked()
	}
}

// Delete removes an entry if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.removeLocked(el)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Statistics implements domain.CacheStatsProvider.
func (c *Cache) Statistics(_ context.Context) (domain.CacheStatistics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStatistics{
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
		EntryCount: c.order.Len(),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	} else {
		// An untouched cache is not an unhealthy one.
		stats.HitRate = 1
	}
	return stats, nil
}

// OptimizeMemoryUsage implements domain.CacheStatsProvider: it evicts least
// recently used entries until the cache is at half capacity. Invoked by the
// governor on aggressive-mode entry and on forced optimization.
func (c *Cache) OptimizeMemoryUsage(_ context.Context) error {
	lowWater := c.capacity / 2

	c.mu.Lock()
	before := c.order.Len()
	for c.order.Len() > lowWater {
		c.evictOldestLocked()
	}
	after := c.order.Len()
	c.mu.Unlock()

	if before != after {
		c.logger.Info("Cache memory optimization", "evicted", before-after, "remaining", after)
	}
	return nil
}

func (c *Cache) evictOldestLocked() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.removeLocked(el)
	c.evictions++
}

func (c *Cache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*item).key)
}
