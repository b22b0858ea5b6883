package ramcache

import (
	"hash/maphash"
	"sync"
)

// keyLock approximates one mutex per key with a fixed pool of stripes. Equal
// keys always map to the same stripe; distinct keys contend only on hash
// collision. A stripe is the unit of atomicity for every cache operation
// that touches both the map and the queue for one key.
type keyLock[K comparable] struct {
	seed    maphash.Seed
	mask    uint64
	stripes []sync.Mutex
}

// stripes must be a power of two.
func newKeyLock[K comparable](stripes int) *keyLock[K] {
	return &keyLock[K]{
		seed:    maphash.MakeSeed(),
		mask:    uint64(stripes - 1),
		stripes: make([]sync.Mutex, stripes),
	}
}

func (l *keyLock[K]) stripe(key K) *sync.Mutex {
	return &l.stripes[maphash.Comparable(l.seed, key)&l.mask]
}

// lock acquires the stripe for key and returns it, so callers can defer the
// unlock and release on every exit path.
func (l *keyLock[K]) lock(key K) *sync.Mutex {
	mu := l.stripe(key)
	mu.Lock()
	return mu
}
