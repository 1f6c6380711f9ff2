// Package cache holds compiled routines between Compile calls.
//
// Sharded is an LRU cache split into 16 independently locked shards, so
// compilers on many goroutines rarely contend. Keys carry their own hash
// (program hashes are already well mixed), and a failed build is never
// cached: the next lookup for the same key tries again.
//
//	c := cache.New[uint64, *jit.Routine](512, cache.Identity)
//	rt, err := c.GetOrCreate(p.Hash(), func() (*jit.Routine, error) {
//		return jit.Compile(p, opts)
//	})
//
// # Thread Safety
//
// Sharded is safe for concurrent use and must not be copied after creation.
package cache
