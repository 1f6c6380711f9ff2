package shaderjit

import (
	"log/slog"

	"github.com/gogpu/shaderjit/internal/jit"
	"github.com/gogpu/shaderjit/shader"
)

// Option configures a Compiler during creation.
//
// Example:
//
//	c := shaderjit.NewCompiler(
//		shaderjit.WithCacheCapacity(1024),
//		shaderjit.WithWorkers(4),
//	)
type Option func(*options)

// options holds optional configuration for Compiler creation.
type options struct {
	logger   *slog.Logger
	limits   shader.Limits
	capacity int
	workers  int
	trace    Trace
}

// DefaultCacheCapacity is the number of routines a Compiler keeps.
const DefaultCacheCapacity = 512

func defaultOptions() options {
	return options{
		limits:   shader.DefaultLimits(),
		capacity: DefaultCacheCapacity,
	}
}

// WithLogger sets the logger used by the Compiler instead of the
// package-level logger from Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLimits bounds the programs the Compiler accepts. Programs exceeding
// a limit fail to compile with shader.ErrLimit.
func WithLimits(l shader.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithCacheCapacity sets how many compiled routines are kept.
// Zero or negative disables caching.
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithWorkers sets the number of goroutines ProcessVertices uses.
// Zero or negative uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTrace installs a hook called after every executed instruction of
// every routine the Compiler builds. Traced routines run much slower; use
// it for debugging and tests only.
func WithTrace(t Trace) Option {
	return func(o *options) {
		o.trace = t
	}
}

// Trace is called after every executed instruction with its index and the
// register state of the running batch.
type Trace = jit.Trace
