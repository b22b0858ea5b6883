// Package ramcache provides a fixed-capacity in-memory cache with LRU
// eviction and optional TTL expiration.
//
// Key properties:
//
//   - Sharded map storage plus a striped per-key lock for concurrent access;
//     operations on keys in different stripes never block each other.
//   - Recency order lives in a concurrent doubly linked queue whose nodes
//     are locked individually (hand-over-hand with revalidation) instead of
//     behind one list-wide lock.
//   - TTL is uniform and swept cooperatively: Tick scans and removes expired
//     entries when the caller decides to run it. The cache starts no
//     goroutines and owns no timers.
//   - GetOrFetch loads missing values through a caller-supplied loader, run
//     outside all internal locks. There is no single-flight guarantee:
//     concurrent misses on the same key may each invoke the loader.
//
// # Configuration
//
// Config is a builder: NewConfig().Capacity(n).Stripes(s) and so on. New
// normalizes invalid settings instead of returning errors.
//
// # Concurrency
//
// Cache operations are safe for concurrent use. Hit/miss counters are
// advisory and may undercount under contention. Len may transiently exceed
// Capacity while racing writers evict; a subsequent write restores the bound.
package ramcache
