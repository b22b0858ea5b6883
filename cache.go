package ramcache

import (
	"fmt"
	"sync/atomic"
	"time"

	logger "github.com/harwoeck/liblog/contract"
)

// Cache is a fixed-capacity LRU cache with optional TTL expiration, safe for
// concurrent use. See the package documentation for the concurrency model.
//
// Keys and values are opaque to the cache: keys are used only for equality
// and hashing, values are never inspected or serialized.
type Cache[K comparable, V any] struct {
	capacity int
	log      logger.Logger

	locks *keyLock[K]
	m     *nodeMap[K, V]
	queue *linkedQueue[K, V]

	// Uniform TTL in nanoseconds, 0 when disabled.
	expire int64

	// Advisory counters; not exact under contention.
	hits   uint64
	misses uint64
}

// New constructs a cache from the provided config. A nil config selects the
// defaults.
func New[K comparable, V any](cfg *Config) *Cache[K, V] {
	if cfg == nil {
		cfg = NewConfig()
	}

	log := cfg.log
	if log == nil {
		log = logger.MustNewStd()
	}

	return &Cache[K, V]{
		capacity: cfg.capacity,
		log:      log.Named("ramcache"),
		locks:    newKeyLock[K](cfg.stripes),
		m:        newNodeMap[K, V](cfg.shards, cfg.initHint()),
		queue:    newLinkedQueue[K, V](),
	}
}

// Get returns the cached value for key, bumping its recency.
//
// A hit detaches the entry's node and enqueues a fresh node at the tail. If
// a racing eviction detached the node first, the call resolves to a miss
// even though the map may briefly still reference the stale node: stale
// reads become misses, never corrupted data.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	// Fast path: absent keys miss without taking the stripe lock.
	if c.m.contains(key) {
		if value, ok := c.access(key); ok {
			return value, true
		}
	}

	atomic.AddUint64(&c.misses, 1)
	c.log.Debug("missed", logger.NewField("key", key))
	var zero V
	return zero, false
}

// access is the stripe-locked hit path: detach, re-enqueue at the tail,
// repoint the map.
func (c *Cache[K, V]) access(key K) (V, bool) {
	mu := c.locks.lock(key)
	defer mu.Unlock()

	n := c.m.get(key)
	if n == nil {
		var zero V
		return zero, false
	}

	// Move the node from mid-chain to the tail. A failed removal means a
	// concurrent eviction already claimed the node; report a miss and leave
	// the stale map entry for the evictor to delete.
	if !c.queue.remove(n) {
		var zero V
		return zero, false
	}

	// A fresh node, not the detached one: a detached node is a tombstone and
	// never re-enters the chain.
	c.m.set(key, c.queue.enqueue(n.key, n.value))

	atomic.AddUint64(&c.hits, 1)
	c.log.Debug("cached", logger.NewField("key", key))
	return n.value, true
}

// GetOrFetch returns the cached value for key, invoking fetch on a miss and
// caching its result.
//
// fetch runs outside all internal locks, so a slow loader never stalls other
// keys. There is no single-flight guarantee: concurrent misses on the same
// key may each invoke fetch, and the cache converges to whichever write
// lands last. A fetch error is returned wrapped and nothing is cached.
func (c *Cache[K, V]) GetOrFetch(key K, fetch func(K) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := fetch(key)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("ramcache: fetch %v: %w", key, err)
	}

	c.Update(key, value)
	return value, nil
}

// Update writes value for key, evicting the oldest entries first when the
// cache is full.
//
// On an existing key the value is replaced in place and the entry keeps its
// position in the recency order; only Get bumps recency. A nil interface
// key or value is ignored.
func (c *Cache[K, V]) Update(key K, value V) {
	if any(key) == nil || any(value) == nil || c.capacity <= 0 {
		return
	}
	c.write(key, value)
}

// UpdateIfAbsent is Update restricted to keys not currently present.
func (c *Cache[K, V]) UpdateIfAbsent(key K, value V) {
	if any(key) == nil || any(value) == nil || c.capacity <= 0 ||
		c.m.contains(key) {
		return
	}
	c.write(key, value)
}

func (c *Cache[K, V]) write(key K, value V) {
	mu := c.locks.lock(key)
	defer mu.Unlock()

	for c.m.len() >= c.capacity {
		// Evict the oldest entry. Dequeue can come up empty while the map
		// still reports full when other threads are evicting too; clearing
		// the map is the safety valve that guarantees forward progress, at
		// the price of a burst of misses.
		removed := c.queue.dequeue()
		if removed == nil {
			c.m.clear()
			c.log.Debug("eviction raced on empty queue, cleared map",
				logger.NewField("key", key),
				logger.NewField("capacity", c.capacity))
			break
		}

		// The dequeued node is discarded, never reused: a racing reader may
		// still hold it and would otherwise resurrect it via remove+enqueue.
		c.m.delete(removed.key)
		c.log.Debug("replaced",
			logger.NewField("old", removed.key),
			logger.NewField("new", key),
			logger.NewField("capacity", c.capacity))
	}

	if n := c.m.get(key); n != nil {
		// In-place value update; the node keeps its queue position.
		n.value = value
		return
	}
	c.m.set(key, c.queue.enqueue(key, value))
}

// Invalidate removes key. Removing an absent key is a no-op, and a racing
// double-invalidate results in exactly one logical removal.
func (c *Cache[K, V]) Invalidate(key K) {
	if any(key) == nil || !c.m.contains(key) {
		return
	}
	c.remove(key)
}

func (c *Cache[K, V]) remove(key K) {
	mu := c.locks.lock(key)
	defer mu.Unlock()

	// Either step may find nothing when another thread removed the key
	// first; both tolerate it.
	if n := c.m.delete(key); n != nil {
		c.queue.remove(n)
	}
}

// Clear removes all entries. It is a global operation, not serialized with
// the per-key stripe locks: per-key calls racing with Clear may observe a
// partially cleared cache, never a corrupted one.
func (c *Cache[K, V]) Clear() {
	c.m.clear()
	c.queue.clear()
}

// Expire sets the uniform TTL applied by Tick. Zero disables expiration.
func (c *Cache[K, V]) Expire(ttl time.Duration) {
	atomic.StoreInt64(&c.expire, int64(ttl))
}

// Tick runs one expiration sweep, removing every entry older than the TTL.
// It is O(n) in the number of entries and driven by an external scheduler;
// the cache never runs its own timer.
//
// An entry's age is measured from its node's construction, and a Get
// constructs a fresh node, so only entries untouched for a full TTL are
// collected.
func (c *Cache[K, V]) Tick() {
	ttl := atomic.LoadInt64(&c.expire)
	if ttl <= 0 {
		return
	}

	now := time.Now().UnixNano()
	var expired []K
	c.m.forEach(func(key K, n *node[K, V]) {
		if n.expired(now, ttl) {
			expired = append(expired, key)
		}
	})

	for _, key := range expired {
		c.remove(key)
	}

	c.log.Debug("expired entries",
		logger.NewField("count", len(expired)),
		logger.NewField("size", c.Len()))
}

// Peek returns the value for key without bumping recency or touching the
// hit/miss counters.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	mu := c.locks.lock(key)
	defer mu.Unlock()

	if n := c.m.get(key); n != nil {
		return n.value, true
	}
	var zero V
	return zero, false
}

// Keys returns a snapshot of the cached keys in no particular order.
func (c *Cache[K, V]) Keys() []K {
	return c.m.keys()
}

// Capacity returns the configured entry limit.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Len returns the number of entries. It may transiently exceed Capacity
// while concurrent writers race to evict.
func (c *Cache[K, V]) Len() int {
	return c.m.len()
}

// IsEmpty reports whether the cache is empty.
func (c *Cache[K, V]) IsEmpty() bool {
	return c.Len() == 0
}

// Hits returns the advisory hit counter.
func (c *Cache[K, V]) Hits() uint64 {
	return atomic.LoadUint64(&c.hits)
}

// Misses returns the advisory miss counter.
func (c *Cache[K, V]) Misses() uint64 {
	return atomic.LoadUint64(&c.misses)
}
