package cache

// entry is a cached value linked into its shard's recency list.
type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// recency orders the entries of one shard, most recently used first.
// It is not synchronized; the owning shard's mutex guards it.
type recency[K comparable, V any] struct {
	head *entry[K, V]
	tail *entry[K, V]
	n    int
}

func (l *recency[K, V]) len() int { return l.n }

// pushFront links e as the most recently used entry.
func (l *recency[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	} else {
		l.tail = e
	}
	l.head = e
	l.n++
}

// touch marks e as most recently used.
func (l *recency[K, V]) touch(e *entry[K, V]) {
	if e == l.head {
		return
	}
	l.unlink(e)
	l.pushFront(e)
}

// oldest unlinks and returns the least recently used entry, or nil.
func (l *recency[K, V]) oldest() *entry[K, V] {
	e := l.tail
	if e != nil {
		l.unlink(e)
	}
	return e
}

func (l *recency[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev = nil
	e.next = nil
	l.n--
}

func (l *recency[K, V]) clear() {
	l.head = nil
	l.tail = nil
	l.n = 0
}
