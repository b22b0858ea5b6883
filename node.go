package ramcache

import (
	"sync"
	"sync/atomic"
	"time"
)

// node is one queue entry. The queue owns the prev/next links; the map holds
// a non-owning handle to the same node under its key.
//
// The key is immutable after construction. The value is written in place,
// always under the key's stripe lock. birth is set once at construction and
// compared against the TTL by the expiration sweep; it is never updated on
// access (a recency bump constructs a fresh node instead).
//
// Links are atomic pointers because the queue's revalidation reads happen
// before the neighbor's lock is held; the per-node mutex guards structural
// mutation, not the loads.
type node[K comparable, V any] struct {
	mu    sync.Mutex
	key   K
	value V
	birth int64

	prev atomic.Pointer[node[K, V]]
	next atomic.Pointer[node[K, V]]
}

func newNode[K comparable, V any](key K, value V) *node[K, V] {
	return &node[K, V]{
		key:   key,
		value: value,
		birth: time.Now().UnixNano(),
	}
}

// expired reports whether the node is older than ttl at instant now.
// Both arguments are in nanoseconds.
func (n *node[K, V]) expired(now, ttl int64) bool {
	return now-n.birth > ttl
}
