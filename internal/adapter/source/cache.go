package source

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/observability"
)

// Loader reads one center's impact table for a cycle.
type Loader interface {
	Load(ctx context.Context, center string, date time.Time) (domain.Table, error)
}

// CachedLoader wraps a Loader with an in-memory LRU cache. Tables are
// immutable, so cached values are shared between callers.
type CachedLoader struct {
	inner   Loader
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedLoader creates a cache decorator around a loader.
func NewCachedLoader(inner Loader, maxEntries int, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLoader) Load(ctx context.Context, center string, date time.Time) (domain.Table, error) {
	key := cacheKey{center: center, cycle: date.Unix()}
	if t, ok := c.cache.get(key); ok {
		c.metrics.LoaderCache.WithLabelValues("hit").Inc()
		return t, nil
	}
	c.metrics.LoaderCache.WithLabelValues("miss").Inc()

	t, err := c.inner.Load(ctx, center, date)
	if err != nil {
		return t, err
	}
	c.cache.put(key, t)
	return t, nil
}

type cacheKey struct {
	center string
	cycle  int64
}

// lruCache is a simple thread-safe LRU cache of impact tables.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[cacheKey]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   cacheKey
	value domain.Table
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[cacheKey]*entry),
	}
}

func (c *lruCache) get(key cacheKey) (domain.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Table{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key cacheKey, value domain.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries <= 0 {
		return
	}
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

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
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

func (c *lruCache) unlink(e *entry) {
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
	c.unlink(c.tail)
}
