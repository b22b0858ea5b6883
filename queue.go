package ramcache

// linkedQueue keeps entries in recency order under concurrent structural
// mutation, without a list-wide lock.
//
// Three permanent sentinels frame the structure: head and rear bound the live
// chain (the real entries sit strictly between them), and empty is the detach
// target. A node whose links point at empty is a tombstone: removal is
// idempotent, and a detached node never re-enters the chain. Reinserting a
// key constructs a fresh node.
//
// Structural mutations follow a lock-then-revalidate protocol: lock a node,
// re-read the neighbor pointer that led to it, and retry if it changed while
// the lock was being acquired. The retry loop replaces nested fixed-order
// locking across arbitrary node pairs, which could deadlock.
type linkedQueue[K comparable, V any] struct {
	empty *node[K, V]
	head  *node[K, V]
	rear  *node[K, V]
}

func newLinkedQueue[K comparable, V any]() *linkedQueue[K, V] {
	q := &linkedQueue[K, V]{
		empty: &node[K, V]{},
		head:  &node[K, V]{},
		rear:  &node[K, V]{},
	}
	q.reset()
	return q
}

// reset restores the empty-queue configuration. Called without locks from
// the constructor, or from clear with rear, last and head held.
func (q *linkedQueue[K, V]) reset() {
	q.head.prev.Store(q.empty)
	q.head.next.Store(q.rear)

	q.rear.prev.Store(q.head)
	q.rear.next.Store(q.empty)
}

// empty iff head.next == rear.
func (q *linkedQueue[K, V]) isEmpty() bool {
	return q.head.next.Load() == q.rear
}

// enqueue links a fresh node for key/value at the tail and returns it.
func (q *linkedQueue[K, V]) enqueue(key K, value V) *node[K, V] {
	return q.enqueueNode(newNode[K, V](key, value))
}

func (q *linkedQueue[K, V]) enqueueNode(n *node[K, V]) *node[K, V] {
	q.rear.mu.Lock()
	defer q.rear.mu.Unlock()

	for {
		last := q.rear.prev.Load()
		last.mu.Lock()
		if q.rear.prev.Load() != last {
			// A concurrent remove of the last node changed rear.prev between
			// the load and the lock; take the new last instead.
			last.mu.Unlock()
			continue
		}

		// Link n to the rear before to last, so a traversal never reaches a
		// node whose next link is unset.
		n.next.Store(q.rear)
		q.rear.prev.Store(n)
		n.prev.Store(last)
		last.next.Store(n)

		last.mu.Unlock()
		return n
	}
}

// dequeue detaches and returns the first real node, or nil when the queue is
// empty.
func (q *linkedQueue[K, V]) dequeue() *node[K, V] {
	for {
		first := q.head.next.Load()
		first.mu.Lock()
		if q.head.next.Load() != first {
			first.mu.Unlock()
			continue
		}
		if first == q.rear {
			first.mu.Unlock()
			return nil
		}

		q.head.mu.Lock()
		succ := first.next.Load()
		q.head.next.Store(succ)
		succ.prev.Store(q.head)

		first.prev.Store(q.empty)
		first.next.Store(q.empty)
		q.head.mu.Unlock()

		first.mu.Unlock()
		return first
	}
}

// remove detaches n from wherever it is in the chain. It reports false when
// another thread detached the node first: whichever caller removes first
// wins, the loser observes the tombstone.
func (q *linkedQueue[K, V]) remove(n *node[K, V]) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for {
		prev := n.prev.Load()
		if prev == q.empty {
			// Already detached by a racing dequeue or remove.
			return false
		}

		prev.mu.Lock()
		if n.prev.Load() != prev {
			// prev was itself removed before its lock was acquired; read the
			// current predecessor and try again.
			prev.mu.Unlock()
			continue
		}

		succ := n.next.Load()
		prev.next.Store(succ)
		succ.prev.Store(prev)

		n.prev.Store(q.empty)
		n.next.Store(q.empty)

		prev.mu.Unlock()
		return true
	}
}

// clear discards the whole chain at once by resetting the sentinels. In-flight
// operations holding nodes outside the locked set keep mutating the discarded
// chain and observe the tombstone state on their next check.
func (q *linkedQueue[K, V]) clear() {
	q.rear.mu.Lock()
	defer q.rear.mu.Unlock()

	for {
		last := q.rear.prev.Load()
		last.mu.Lock()
		if q.rear.prev.Load() != last {
			// A remove of the last node got in between; lock the new last.
			last.mu.Unlock()
			continue
		}

		// When the queue is empty, last is the head sentinel and its mutex
		// is already held (Go mutexes are not reentrant).
		if last != q.head {
			q.head.mu.Lock()
		}
		q.reset()
		if last != q.head {
			q.head.mu.Unlock()
		}

		last.mu.Unlock()
		return
	}
}

// dumpKeys walks the chain from head to rear and returns the keys in order.
// The snapshot is only meaningful on a quiescent queue; tests use it to check
// ordering and the absence of cycles and duplicates.
func (q *linkedQueue[K, V]) dumpKeys() []K {
	var keys []K
	for n := q.head.next.Load(); n != q.rear && n != q.empty; n = n.next.Load() {
		keys = append(keys, n.key)
	}
	return keys
}
