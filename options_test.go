package shaderjit

import (
	"log/slog"
	"testing"

	"github.com/gogpu/shaderjit/shader"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.limits != shader.DefaultLimits() {
		t.Errorf("limits = %+v, want DefaultLimits", o.limits)
	}
	if o.capacity != DefaultCacheCapacity {
		t.Errorf("capacity = %d, want %d", o.capacity, DefaultCacheCapacity)
	}
	if o.logger != nil || o.trace != nil || o.workers != 0 {
		t.Errorf("unexpected defaults %+v", o)
	}
}

func TestOptionsApply(t *testing.T) {
	l := slog.New(nopHandler{})
	lim := shader.DefaultLimits()
	lim.MaxTemps = 8

	c := NewCompiler(
		WithLogger(l),
		WithLimits(lim),
		WithCacheCapacity(32),
		WithWorkers(3),
		WithTrace(func(int, *Registers) {}),
	)
	defer c.Close()

	if c.logger() != l {
		t.Error("WithLogger not applied")
	}
	if c.opts.limits.MaxTemps != 8 {
		t.Errorf("MaxTemps = %d, want 8", c.opts.limits.MaxTemps)
	}
	if got := c.CacheStats().Capacity; got != 32 {
		t.Errorf("cache capacity = %d, want 32", got)
	}
	if got := c.workers().Workers(); got != 3 {
		t.Errorf("workers = %d, want 3", got)
	}
	if c.opts.trace == nil {
		t.Error("WithTrace not applied")
	}
}

func TestLoggerFallsBackToPackageLogger(t *testing.T) {
	c := NewCompiler()
	defer c.Close()
	if c.logger() != Logger() {
		t.Error("compiler without WithLogger does not use Logger()")
	}
}
