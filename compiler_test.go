package shaderjit

import (
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

func ins(op shader.Opcode, operands ...any) shader.Instruction {
	in := shader.Instruction{Op: op}
	n := 0
	for _, o := range operands {
		switch o := o.(type) {
		case shader.Dst:
			in.Dst = o
		case shader.Src:
			in.Src[n] = o
			n++
		}
	}
	return in
}

func vertexProgram(list ...shader.Instruction) *shader.Program {
	return &shader.Program{Stage: gputypes.ShaderStageVertex, Instructions: list}
}

// scaleProgram writes o0 = v0 * c0 + k.
func scaleProgram(k float32) *shader.Program {
	return vertexProgram(
		ins(shader.OpMad, shader.Out(shader.RegOutput, 0),
			shader.Reg(shader.RegInput, 0), shader.Reg(shader.RegConst, 0), shader.Imm(k, k, k, k)),
	)
}

func TestCompileCachesByProgram(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	a, err := c.Compile(scaleProgram(1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compile(scaleProgram(1))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("identical programs compiled to different routines")
	}

	other, err := c.Compile(scaleProgram(2))
	if err != nil {
		t.Fatal(err)
	}
	if other == a {
		t.Error("different programs share a routine")
	}

	st := c.CacheStats()
	if st.Hits != 1 || st.Misses != 2 || st.Len != 2 {
		t.Errorf("CacheStats() = %+v, want 1 hit, 2 misses, 2 entries", st)
	}
}

func TestCompileKeyIncludesStage(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	vs := scaleProgram(1)
	ps := &shader.Program{Stage: gputypes.ShaderStageFragment, Instructions: vs.Instructions}

	a, err := c.Compile(vs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compile(ps)
	if err != nil {
		t.Fatal(err)
	}
	if a == b || b.Stage() != gputypes.ShaderStageFragment {
		t.Error("vertex and pixel programs share a routine")
	}
}

func TestCompileHashCollisionIsNotAHit(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	p, other := scaleProgram(1), scaleProgram(2)
	wrong, err := c.CompileUncached(other)
	if err != nil {
		t.Fatal(err)
	}
	// Plant other's routine under p's key, as a colliding hash would.
	key := routineKey{hash: p.Hash(), stage: p.Stage}
	c.routines.Add(key, &cached{rt: wrong, code: other.Encode()})

	rt, err := c.Compile(p)
	if err != nil {
		t.Fatal(err)
	}
	if rt == wrong {
		t.Fatal("Compile() returned the routine of a colliding program")
	}
	if rt.Key() != p.Hash() {
		t.Errorf("Key() = %x, want %x", rt.Key(), p.Hash())
	}
}

func TestCachedRoutineBehavesLikeFresh(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	cached, err := c.Compile(scaleProgram(0.5))
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := c.CompileUncached(scaleProgram(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if fresh == cached {
		t.Fatal("CompileUncached returned the cached routine")
	}

	var consts Constants
	consts.SetVec4(0, [4]float32{2, 3, 4, 5})
	run := func(rt *Routine) wide.Vec4 {
		b := Batch{
			Inputs:    []wide.Vec4{wide.Uniform(1, 2, 3, 4)},
			Constants: &consts,
			Coverage:  wide.AllOnes,
		}
		rt.Run(&b)
		return b.Outputs[0]
	}
	got, want := run(cached), run(fresh)
	if got != want {
		t.Errorf("cached routine computed %v, fresh %v", got, want)
	}
	if got.Row(0) != [4]float32{2.5, 6.5, 12.5, 20.5} {
		t.Errorf("o0 = %v", got.Row(0))
	}
}

func TestCompileErrorsAreNotCached(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	bad := vertexProgram(ins(shader.OpIf, shader.Reg(shader.RegConstBool, 0)))
	for range 2 {
		_, err := c.Compile(bad)
		if !errors.Is(err, shader.ErrUnbalanced) {
			t.Fatalf("Compile error = %v, want ErrUnbalanced", err)
		}
		var ce *shader.CompileError
		if !errors.As(err, &ce) {
			t.Fatalf("error %T is not a *shader.CompileError", err)
		}
	}
	if st := c.CacheStats(); st.Len != 0 || st.Misses != 2 {
		t.Errorf("CacheStats() = %+v, want nothing cached and 2 misses", st)
	}
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler(WithLimits(shader.Limits{
		MaxTemps: 2, MaxInputs: 4, MaxOutputs: 4, MaxSamplers: 2,
		MaxNesting: 4, MaxLoopDepth: 2, MaxCallDepth: 2,
		MaxLoopIterations: 16, MaxWhileIterations: 64,
	}))
	defer c.Close()

	tests := []struct {
		name string
		prog *shader.Program
		want error
	}{
		{"nil program", nil, ErrNilProgram},
		{"too many temps", vertexProgram(ins(shader.OpMov, shader.Out(shader.RegTemp, 5), shader.Reg(shader.RegInput, 0))), shader.ErrLimit},
		{"unknown opcode", vertexProgram(ins(shader.Opcode(65000))), shader.ErrUnknownOpcode},
		{"pixel op in vertex stage", vertexProgram(ins(shader.OpDiscard)), shader.ErrStage},
		{"undefined label", vertexProgram(ins(shader.OpCall, shader.Reg(shader.RegLabel, 3))), shader.ErrUndefinedLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := c.Compile(tt.prog)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile() error = %v, want %v", err, tt.want)
			}
			if rt != nil {
				t.Error("Compile() returned a routine with an error")
			}
		})
	}
}

func TestCacheDisabled(t *testing.T) {
	c := NewCompiler(WithCacheCapacity(0))
	defer c.Close()

	a, _ := c.Compile(scaleProgram(1))
	b, _ := c.Compile(scaleProgram(1))
	if a == nil || a == b {
		t.Error("Compile cached with caching disabled")
	}
	if c.CacheStats() != (CacheStats{}) {
		t.Errorf("CacheStats() = %+v, want zero", c.CacheStats())
	}
}

func TestPurge(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	a, _ := c.Compile(scaleProgram(1))
	c.Purge()
	b, _ := c.Compile(scaleProgram(1))
	if a == b {
		t.Error("Purge kept the routine")
	}
}

func TestClose(t *testing.T) {
	c := NewCompiler()
	rt, err := c.Compile(scaleProgram(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if _, err := c.Compile(scaleProgram(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Compile after Close error = %v, want ErrClosed", err)
	}
	if _, err := c.CompileUncached(scaleProgram(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("CompileUncached after Close error = %v, want ErrClosed", err)
	}

	// Routines outlive their compiler.
	b := Batch{Inputs: []wide.Vec4{wide.Uniform(1, 1, 1, 1)}, Coverage: wide.AllOnes}
	rt.Run(&b)
	if b.Outputs[0].Row(0) != [4]float32{1, 1, 1, 1} {
		t.Errorf("o0 = %v, want v0*0 + 1", b.Outputs[0].Row(0))
	}
}

func TestCompileConcurrent(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	const goroutines = 16
	routines := make([]*Routine, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Go(func() {
			rt, err := c.Compile(scaleProgram(3))
			if err != nil {
				t.Error(err)
				return
			}
			routines[i] = rt
		})
	}
	wg.Wait()

	for i, rt := range routines {
		if rt != routines[0] {
			t.Fatalf("goroutine %d got a different routine", i)
		}
	}
	if st := c.CacheStats(); st.Misses != 1 {
		t.Errorf("program compiled %d times, want 1", st.Misses)
	}
}

func TestWithTrace(t *testing.T) {
	var pcs []int
	c := NewCompiler(WithTrace(func(pc int, _ *Registers) { pcs = append(pcs, pc) }))
	defer c.Close()

	rt, err := c.Compile(vertexProgram(
		ins(shader.OpMov, shader.Out(shader.RegTemp, 0), shader.Reg(shader.RegInput, 0)),
		ins(shader.OpAdd, shader.Out(shader.RegOutput, 0), shader.Reg(shader.RegTemp, 0), shader.Imm(1, 1, 1, 1)),
	))
	if err != nil {
		t.Fatal(err)
	}
	rt.Run(&Batch{Coverage: wide.AllOnes})

	if len(pcs) != 2 || pcs[0] != 0 || pcs[1] != 1 {
		t.Errorf("traced %v, want [0 1]", pcs)
	}
}

func BenchmarkCompileCached(b *testing.B) {
	c := NewCompiler()
	defer c.Close()
	p := scaleProgram(1)
	if _, err := c.Compile(p); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		_, _ = c.Compile(p)
	}
}
