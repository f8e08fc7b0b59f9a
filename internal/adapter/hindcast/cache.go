package hindcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
	"github.com/umr-lops/asar-seastate-processor/internal/observability"
)

// CachedProvider wraps a HindcastProvider with an in-memory LRU cache.
// Acquisitions along a pass revisit the same hindcast cell repeatedly; keys
// round position to the hindcast grid scale and time to the model step.
type CachedProvider struct {
	inner   domain.HindcastProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.HindcastProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) Collocate(ctx context.Context, lat, lon float64, t time.Time) (domain.HindcastResult, error) {
	// WW3 global hindcast: half-degree grid, 3-hourly steps.
	key := fmt.Sprintf("%.1f,%.1f|%s", lat, lon, t.UTC().Truncate(3*time.Hour).Format("2006010215"))
	if result, ok := c.cache.get(key); ok {
		c.metrics.HindcastCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.HindcastCache.WithLabelValues("miss").Inc()
	result, err := c.inner.Collocate(ctx, lat, lon, t)
	if err != nil {
		return result, err
	}
	c.cache.put(key, result)
	return result, nil
}

// lruCache is a simple thread-safe LRU cache for collocation results.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.HindcastResult
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.HindcastResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.HindcastResult{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.HindcastResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
