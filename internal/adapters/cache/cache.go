// Package cache provides a bounded TTL result cache keyed by subject and
// request signature.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/okian/attune/pkg/metrics"
)

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// ResultCache stores computed values with a TTL and a size bound.
// Concurrent misses for one key run the compute function once.
type ResultCache[V any] struct {
	cfg   config
	items *gocache.Cache
	group singleflight.Group

	// wmu serializes writers so an evicted key cannot be re-set between
	// its unlink and its delete. mu guards order and index and is also
	// taken by forget, which go-cache calls from Delete and expiry.
	wmu   sync.Mutex
	mu    sync.Mutex
	order *list.List               // keys, oldest insertion at front
	index map[string]*list.Element // key -> position in order

	hits, misses, evictions atomic.Int64
}

// New creates a cache and starts its expiry janitor.
func New[V any](opts ...Option) *ResultCache[V] {
	cfg := config{
		name:            defaultName,
		ttl:             DefaultTTL,
		cleanupInterval: defaultCleanupInterval,
		maxEntries:      DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &ResultCache[V]{
		cfg:   cfg,
		items: gocache.New(cfg.ttl, cfg.cleanupInterval),
		order: list.New(),
		index: make(map[string]*list.Element),
	}
	c.items.OnEvicted(c.forget)
	return c
}

// Key joins subject and signature.
func Key(subjectID, signature string) string {
	return subjectID + "|" + signature
}

// Get returns a live entry.
func (c *ResultCache[V]) Get(subjectID, signature string) (V, bool) {
	v, err := c.lookup(Key(subjectID, signature))
	hit := err == nil
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	metrics.RecordCacheLookup(c.cfg.name, hit)
	return v, hit
}

func (c *ResultCache[V]) lookup(key string) (V, error) {
	var zero V
	raw, ok := c.items.Get(key)
	if !ok {
		return zero, ErrCacheMiss
	}
	v, ok := raw.(V)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected type %T", ErrCacheMiss, raw)
	}
	return v, nil
}

// Set stores v, evicting the oldest inserted entries beyond the bound.
func (c *ResultCache[V]) Set(subjectID, signature string, v V) {
	key := Key(subjectID, signature)
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.items.Set(key, v, gocache.DefaultExpiration)

	// go-cache calls forget synchronously from Delete, so victims are
	// unlinked here and deleted after mu is released.
	var victims []string
	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		c.order.MoveToBack(el)
	} else {
		c.index[key] = c.order.PushBack(key)
	}
	for c.order.Len() > c.cfg.maxEntries {
		front := c.order.Front()
		k := front.Value.(string)
		c.order.Remove(front)
		delete(c.index, k)
		victims = append(victims, k)
	}
	n := c.order.Len()
	c.mu.Unlock()

	for _, k := range victims {
		c.items.Delete(k)
		c.evictions.Add(1)
		metrics.RecordCacheEviction(c.cfg.name)
	}
	metrics.UpdateCacheEntries(c.cfg.name, n)
}

// GetOrCompute returns the cached value or computes, stores and returns
// it. The bool reports whether the value came from the cache.
func (c *ResultCache[V]) GetOrCompute(ctx context.Context, subjectID, signature string, compute func(context.Context) (V, error)) (V, bool, error) {
	if v, ok := c.Get(subjectID, signature); ok {
		return v, true, nil
	}
	key := Key(subjectID, signature)
	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, err := c.lookup(key); err == nil {
			return v, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			return nil, err
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(subjectID, signature, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(V), false, nil
}

// Invalidate drops one entry.
func (c *ResultCache[V]) Invalidate(subjectID, signature string) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.items.Delete(Key(subjectID, signature))
}

// Flush drops every entry.
func (c *ResultCache[V]) Flush() {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.items.Flush()
	c.mu.Lock()
	c.order.Init()
	c.index = make(map[string]*list.Element)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.cfg.name, 0)
}

// Len returns the number of tracked entries, expired ones included until
// the janitor runs.
func (c *ResultCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns counters.
func (c *ResultCache[V]) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// forget unlinks keys go-cache removed on its own (expiry or Delete).
func (c *ResultCache[V]) forget(key string, _ any) {
	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}
	c.mu.Unlock()
}
