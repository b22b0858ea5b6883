package ramcache

import (
	"hash/maphash"
	"sync"
)

// nodeMap is the lookup side of the cache: a sharded key→node map. Presence
// or absence of a key here is the source of truth for membership.
type nodeMap[K comparable, V any] struct {
	seed   maphash.Seed
	mask   uint64
	shards []*mapShard[K, V]
}

type mapShard[K comparable, V any] struct {
	sync.RWMutex
	store map[K]*node[K, V]
}

// shards must be a power of two; hint sizes the initial allocation across
// all shards.
func newNodeMap[K comparable, V any](shards, hint int) *nodeMap[K, V] {
	m := &nodeMap[K, V]{
		seed:   maphash.MakeSeed(),
		mask:   uint64(shards - 1),
		shards: make([]*mapShard[K, V], shards),
	}
	for i := range m.shards {
		m.shards[i] = &mapShard[K, V]{
			store: make(map[K]*node[K, V], hint/shards),
		}
	}
	return m
}

func (m *nodeMap[K, V]) shard(key K) *mapShard[K, V] {
	return m.shards[maphash.Comparable(m.seed, key)&m.mask]
}

func (m *nodeMap[K, V]) get(key K) *node[K, V] {
	s := m.shard(key)
	s.RLock()
	defer s.RUnlock()
	return s.store[key]
}

func (m *nodeMap[K, V]) contains(key K) bool {
	return m.get(key) != nil
}

func (m *nodeMap[K, V]) set(key K, n *node[K, V]) {
	s := m.shard(key)
	s.Lock()
	s.store[key] = n
	s.Unlock()
}

func (m *nodeMap[K, V]) delete(key K) *node[K, V] {
	s := m.shard(key)
	s.Lock()
	n := s.store[key]
	delete(s.store, key)
	s.Unlock()
	return n
}

func (m *nodeMap[K, V]) clear() {
	for _, s := range m.shards {
		s.Lock()
		s.store = make(map[K]*node[K, V])
		s.Unlock()
	}
}

func (m *nodeMap[K, V]) len() int {
	count := 0
	for _, s := range m.shards {
		s.RLock()
		count += len(s.store)
		s.RUnlock()
	}
	return count
}

func (m *nodeMap[K, V]) keys() []K {
	keys := make([]K, 0, m.len())
	for _, s := range m.shards {
		s.RLock()
		for k := range s.store {
			keys = append(keys, k)
		}
		s.RUnlock()
	}
	return keys
}

// forEach calls fn for each key/node pair. fn runs under the shard read
// lock; keep it quick.
func (m *nodeMap[K, V]) forEach(fn func(key K, n *node[K, V])) {
	for _, s := range m.shards {
		s.RLock()
		for k, n := range s.store {
			fn(k, n)
		}
		s.RUnlock()
	}
}
