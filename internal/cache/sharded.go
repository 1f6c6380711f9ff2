package cache

import (
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of independently locked shards.
	// Must be a power of 2 for fast modulo via bitwise AND.
	ShardCount = 16

	// DefaultCapacity is the total capacity used when New gets a
	// non-positive capacity.
	DefaultCapacity = 256

	shardMask = ShardCount - 1
)

// Hasher computes the hash used for shard selection.
type Hasher[K any] func(K) uint64

// Identity returns the key itself. Use it for keys that are already hashes.
func Identity(u uint64) uint64 { return u }

// Stats is a snapshot of cache counters.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Sharded is a concurrent LRU cache.
type Sharded[K comparable, V any] struct {
	shards   [ShardCount]shard[K, V]
	hasher   Hasher[K]
	perShard int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	order   recency[K, V]
}

// New creates a cache holding about capacity entries in total, spread
// evenly over the shards. If capacity <= 0, DefaultCapacity is used.
func New[K comparable, V any](capacity int, hasher Hasher[K]) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[K, V]{
		hasher:   hasher,
		perShard: max(1, (capacity+ShardCount-1)/ShardCount),
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*entry[K, V])
	}
	return c
}

func (c *Sharded[K, V]) pick(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&shardMask]
}

// Get returns the value cached for key and marks it recently used.
func (c *Sharded[K, V]) Get(key K) (V, bool) {
	s := c.pick(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		s.order.touch(e)
	}
	s.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Add stores value under key, evicting the shard's least recently used
// entries when it is full.
func (c *Sharded[K, V]) Add(key K, value V) {
	s := c.pick(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.insert(s, key, value)
}

// GetOrCreate returns the value cached for key, or calls create and caches
// its result. create runs with the shard locked, so concurrent callers for
// one key build it once. An error from create is returned and nothing is
// cached.
func (c *Sharded[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	s := c.pick(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.order.touch(e)
		c.hits.Add(1)
		return e.value, nil
	}
	c.misses.Add(1)

	value, err := create()
	if err != nil {
		return value, err
	}
	c.insert(s, key, value)
	return value, nil
}

// insert requires s.mu.
func (c *Sharded[K, V]) insert(s *shard[K, V], key K, value V) {
	if e, ok := s.entries[key]; ok {
		e.value = value
		s.order.touch(e)
		return
	}
	for s.order.len() >= c.perShard {
		old := s.order.oldest()
		if old == nil {
			break
		}
		delete(s.entries, old.key)
		c.evictions.Add(1)
	}
	e := &entry[K, V]{key: key, value: value}
	s.order.pushFront(e)
	s.entries[key] = e
}

// Remove drops key. It reports whether the key was present.
func (c *Sharded[K, V]) Remove(key K) bool {
	s := c.pick(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.order.unlink(e)
	delete(s.entries, key)
	return true
}

// Purge removes every entry.
func (c *Sharded[K, V]) Purge() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		clear(s.entries)
		s.order.clear()
		s.mu.Unlock()
	}
}

// Len returns the number of cached entries.
func (c *Sharded[K, V]) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Capacity returns the total number of entries the cache holds before it
// starts evicting.
func (c *Sharded[K, V]) Capacity() int {
	return c.perShard * ShardCount
}

// Stats returns current counters.
func (c *Sharded[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       c.Len(),
		Capacity:  c.Capacity(),
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   rate,
	}
}
