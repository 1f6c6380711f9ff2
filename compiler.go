package shaderjit

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/internal/cache"
	"github.com/gogpu/shaderjit/internal/jit"
	"github.com/gogpu/shaderjit/internal/parallel"
	"github.com/gogpu/shaderjit/shader"
)

// Routine is a compiled program, immutable and safe for concurrent Run
// calls.
type Routine = jit.Routine

// Batch carries the inputs and receives the outputs of one Run.
type Batch = jit.Batch

// Constants is the uniform block of a draw call.
type Constants = jit.Constants

// Registers is the per-run register state passed to a Trace.
type Registers = jit.Registers

var (
	// ErrClosed is returned by a Compiler after Close.
	ErrClosed = errors.New("shaderjit: compiler closed")

	// ErrNilProgram is returned when a nil program is compiled.
	ErrNilProgram = errors.New("shaderjit: nil program")
)

// CacheStats is a snapshot of the routine cache counters.
type CacheStats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// routineKey identifies a cached routine.
type routineKey struct {
	hash  uint64
	stage gputypes.ShaderStage
}

func (k routineKey) shard() uint64 { return k.hash }

// cached is a routine together with the encoded program it was compiled
// from. A hit only counts when the encodings match, so two programs whose
// hashes collide never share a routine.
type cached struct {
	rt   *Routine
	code []byte
}

// Compiler turns programs into routines. It owns the routine cache and the
// worker pool used by ProcessVertices; there is no global state, so
// independent Compilers never share routines.
//
// A Compiler is safe for concurrent use.
type Compiler struct {
	opts     options
	routines *cache.Sharded[routineKey, *cached]

	poolOnce sync.Once
	pool     *parallel.WorkerPool

	mu     sync.RWMutex
	closed bool
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Compiler{opts: o}
	if o.capacity > 0 {
		c.routines = cache.New[routineKey, *cached](o.capacity, routineKey.shard)
	}
	return c
}

func (c *Compiler) logger() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return Logger()
}

// Compile returns the routine for p, compiling it on first use. Programs
// with equal stages and instruction lists share one routine.
//
// An invalid program returns a *shader.CompileError wrapping one of the
// shader sentinel errors; nothing is cached for it.
func (c *Compiler) Compile(p *shader.Program) (*Routine, error) {
	if p == nil {
		return nil, ErrNilProgram
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.routines == nil {
		return c.compile(p)
	}

	code := p.Encode()
	key := routineKey{hash: p.Hash(), stage: p.Stage}
	built := false
	e, err := c.routines.GetOrCreate(key, func() (*cached, error) {
		built = true
		rt, err := c.compile(p)
		if err != nil {
			return nil, err
		}
		return &cached{rt: rt, code: code}, nil
	})
	if err != nil {
		return nil, err
	}
	if built {
		return e.rt, nil
	}
	if !bytes.Equal(e.code, code) {
		c.logger().Warn("shaderjit: routine cache key collision",
			slog.Uint64("key", key.hash),
			slog.String("stage", p.Stage.String()))
		return c.compile(p)
	}
	c.logger().Debug("shaderjit: routine cache hit",
		slog.Uint64("key", key.hash),
		slog.String("stage", p.Stage.String()))
	return e.rt, nil
}

// CompileUncached compiles p without consulting or filling the cache.
func (c *Compiler) CompileUncached(p *shader.Program) (*Routine, error) {
	if p == nil {
		return nil, ErrNilProgram
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.compile(p)
}

func (c *Compiler) compile(p *shader.Program) (*Routine, error) {
	rt, err := jit.Compile(p, jit.Options{Limits: c.opts.limits, Trace: c.opts.trace})
	if err != nil {
		c.logger().Warn("shaderjit: program rejected",
			slog.String("stage", p.Stage.String()),
			slog.Int("instructions", len(p.Instructions)),
			slog.String("error", err.Error()))
		return nil, err
	}
	c.logger().Debug("shaderjit: compiled",
		slog.Uint64("key", rt.Key()),
		slog.String("stage", p.Stage.String()),
		slog.Int("inputs", rt.Inputs()),
		slog.Int("outputs", rt.Outputs()))
	return rt, nil
}

// CacheStats reports routine cache counters. It is the zero value when
// caching is disabled.
func (c *Compiler) CacheStats() CacheStats {
	if c.routines == nil {
		return CacheStats{}
	}
	st := c.routines.Stats()
	return CacheStats{
		Len:       st.Len,
		Capacity:  st.Capacity,
		Hits:      st.Hits,
		Misses:    st.Misses,
		Evictions: st.Evictions,
		HitRate:   st.HitRate,
	}
}

// Purge drops every cached routine. Routines already handed out stay valid.
func (c *Compiler) Purge() {
	if c.routines != nil {
		c.routines.Purge()
	}
}

func (c *Compiler) workers() *parallel.WorkerPool {
	c.poolOnce.Do(func() {
		c.pool = parallel.NewWorkerPool(c.opts.workers)
	})
	return c.pool
}

// Close releases the cache and stops the worker pool. Routines compiled
// earlier remain usable. Close is safe to call more than once.
func (c *Compiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.Purge()
	c.poolOnce.Do(func() {})
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}
