package netcdf

import (
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// CachedReader wraps a SourceReader with an in-memory LRU cache keyed by
// quantity code and file list. A baseline and a future run that read the
// same simulation share one decode.
type CachedReader struct {
	inner   metric.SourceReader
	cache   *lruCache[domain.Field]
	lookups *prometheus.CounterVec // labels: result={hit,miss}
}

// NewCachedReader creates a cache decorator around a source reader.
func NewCachedReader(inner metric.SourceReader, maxEntries int, lookups *prometheus.CounterVec) *CachedReader {
	return &CachedReader{
		inner:   inner,
		cache:   newLRUCache[domain.Field](maxEntries),
		lookups: lookups,
	}
}

func (c *CachedReader) ReadQuantity(ctx context.Context, code string, files []string) (domain.Field, error) {
	key := code + "|" + strings.Join(files, "|")
	if f, ok := c.cache.get(key); ok {
		c.lookups.WithLabelValues("hit").Inc()
		return f.Clone(), nil
	}
	c.lookups.WithLabelValues("miss").Inc()
	f, err := c.inner.ReadQuantity(ctx, code, files)
	if err != nil {
		return f, err
	}
	c.cache.put(key, f.Clone())
	return f, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
