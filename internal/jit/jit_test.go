package jit

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

func r(i uint32) shader.Src    { return shader.Reg(shader.RegTemp, i) }
func v(i uint32) shader.Src    { return shader.Reg(shader.RegInput, i) }
func cr(i uint32) shader.Src   { return shader.Reg(shader.RegConst, i) }
func rd(i uint32) shader.Dst   { return shader.Out(shader.RegTemp, i) }
func od(i uint32) shader.Dst   { return shader.Out(shader.RegOutput, i) }
func imm(x float32) shader.Src { return shader.Imm(x, x, x, x) }
func label(n uint32) shader.Src {
	return shader.Src{Type: shader.RegLabel, Index: n}
}

// ints returns an immediate carrying integer bit patterns.
func ints(x, y, z, w int32) shader.Src {
	f := func(i int32) float32 { return math.Float32frombits(uint32(i)) }
	return shader.Imm(f(x), f(y), f(z), f(w))
}

func ins(op shader.Opcode, dst shader.Dst, srcs ...shader.Src) shader.Instruction {
	in := shader.Instruction{Op: op, Dst: dst}
	copy(in.Src[:], srcs)
	return in
}

func flow(op shader.Opcode, srcs ...shader.Src) shader.Instruction {
	return ins(op, shader.Dst{}, srcs...)
}

func cmpFlow(op shader.Opcode, f gputypes.CompareFunction, a, b shader.Src) shader.Instruction {
	in := flow(op, a, b)
	in.Compare = f
	return in
}

func defi(i uint32, x, y, z, w float32) shader.Instruction {
	return ins(shader.OpDefi, shader.Dst{Type: shader.RegConstInt, Index: i}, shader.Imm(x, y, z, w))
}

func vertex(code ...shader.Instruction) *shader.Program {
	return &shader.Program{Stage: gputypes.ShaderStageVertex, Instructions: code}
}

func pixel(code ...shader.Instruction) *shader.Program {
	return &shader.Program{Stage: gputypes.ShaderStageFragment, Instructions: code}
}

// lanes returns a register holding x in every component of each lane.
func lanes(x0, x1, x2, x3 float32) wide.Vec4 {
	return wide.Splat(wide.F32x4{x0, x1, x2, x3})
}

func compile(t testing.TB, p *shader.Program) *Routine {
	t.Helper()
	rt, err := Compile(p, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return rt
}

func run(t testing.TB, p *shader.Program, b *Batch) *Batch {
	t.Helper()
	if b.Coverage == (wide.U32x4{}) {
		b.Coverage = wide.AllOnes
	}
	compile(t, p).Run(b)
	return b
}

func sameBits(a, b wide.F32x4) bool {
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}

func TestDivIntegerDestinationTruncates(t *testing.T) {
	intDst := od(0)
	intDst.Integer = true
	p := vertex(
		ins(shader.OpDiv, intDst, v(0), v(1)),
		ins(shader.OpDiv, od(1), v(0), v(1)),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{
		lanes(-7, 7, -1, 9),
		lanes(2, 2, 2, -4),
	}})

	if got, want := b.Outputs[0][wide.X], (wide.F32x4{-3, 3, 0, -2}); got != want {
		t.Errorf("integer div = %v, want %v", got, want)
	}
	if got, want := b.Outputs[1][wide.X], (wide.F32x4{-3.5, 3.5, -0.5, -2.25}); got != want {
		t.Errorf("float div = %v, want %v", got, want)
	}
}

func TestPredicatedWritePreservesDisabledChannels(t *testing.T) {
	before := wide.FromRows(&[4][4]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	})
	update := shader.Instruction{
		Op:               shader.OpMov,
		Dst:              rd(0).Masked(shader.MaskX | shader.MaskY),
		Predicate:        true,
		PredicateSwizzle: shader.SwizzleXXXX,
	}
	update.Src[0] = imm(-1)
	setp := ins(shader.OpSetp, shader.Out(shader.RegPredicate, 0), v(1), imm(0))
	setp.Compare = gputypes.CompareFunctionGreater

	p := vertex(
		ins(shader.OpMov, rd(0), v(0)),
		setp,
		update,
		ins(shader.OpMov, od(0), r(0)),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{before, lanes(1, 1, 0, 1)}})

	want := wide.FromRows(&[4][4]float32{
		{-1, -1, 3, 4},
		{-1, -1, 7, 8},
		{9, 10, 11, 12},
		{-1, -1, 15, 16},
	})
	if b.Outputs[0] != want {
		t.Errorf("result = %v, want %v", b.Outputs[0], want)
	}
}

func TestPredicateNot(t *testing.T) {
	update := shader.Instruction{
		Op:               shader.OpMov,
		Dst:              od(0).Masked(shader.MaskX),
		Predicate:        true,
		PredicateNot:     true,
		PredicateSwizzle: shader.SwizzleYYYY,
	}
	update.Src[0] = imm(5)
	p := vertex(
		ins(shader.OpMov, shader.Out(shader.RegPredicate, 0), v(0)),
		update,
	)
	mask := wide.Vec4{{}, wide.U32x4{0, ^uint32(0), 0, ^uint32(0)}.Float()}
	b := run(t, p, &Batch{Inputs: []wide.Vec4{mask}})
	if got, want := b.Outputs[0][wide.X], (wide.F32x4{5, 0, 5, 0}); got != want {
		t.Errorf("x = %v, want %v", got, want)
	}
}

func TestRefractTotalInternalReflectionIsZero(t *testing.T) {
	p := vertex(ins(shader.OpRefract3, od(0), v(0), v(1), imm(2)))
	incident := wide.FromRows(&[4][4]float32{
		{1, 0, 0, 0},  // grazing: total internal reflection
		{0, -1, 0, 0}, // head on
		{1, 0, 0, 0},
		{0, -1, 0, 0},
	})
	normal := wide.Uniform(0, 1, 0, 0)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{incident, normal}})

	out := b.Outputs[0]
	for _, lane := range []int{0, 2} {
		if row := out.Row(lane); row != ([4]float32{}) {
			t.Errorf("lane %d = %v, want zero vector", lane, row)
		}
	}
	for _, lane := range []int{1, 3} {
		if row := out.Row(lane); row != ([4]float32{0, -1, 0, 0}) {
			t.Errorf("lane %d = %v, want (0, -1, 0, 0)", lane, row)
		}
	}
}

func TestRelativeConstantOutOfRangeReadsZero(t *testing.T) {
	consts := &Constants{}
	for i := range 4 {
		consts.SetVec4(i, [4]float32{float32(i), float32(i) * 10, 0, 1})
	}
	tests := []struct {
		name  string
		index wide.F32x4
		scale int32
		want  [4][4]float32
	}{
		{
			name:  "last row, range, range+1, negative",
			index: wide.F32x4{3, 4, 5, -1},
			want:  [4][4]float32{{3, 30, 0, 1}},
		},
		{
			name:  "in range",
			index: wide.F32x4{0, 1, 2, 3},
			want:  [4][4]float32{{0, 0, 0, 1}, {1, 10, 0, 1}, {2, 20, 0, 1}, {3, 30, 0, 1}},
		},
		{
			name:  "far out of range",
			index: wide.F32x4{-1000, 1 << 20, -4, 7},
		},		{
			name:  "scaled index overflows 32 bits",
			index: wide.F32x4{1 << 30, 1 << 30, 1 << 30, 1 << 30},
			scale: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := cr(0)
			rel.Rel = shader.Rel{Type: shader.RegAddr, Component: 0, Scale: max(tt.scale, 1)}
			p := vertex(
				ins(shader.OpMova, shader.Out(shader.RegAddr, 0), v(0)),
				ins(shader.OpMov, od(0), rel),
			)
			b := run(t, p, &Batch{Inputs: []wide.Vec4{wide.Splat(tt.index)}, Constants: consts})
			if want := wide.FromRows(&tt.want); b.Outputs[0] != want {
				t.Errorf("result = %v, want %v", b.Outputs[0], want)
			}
		})
	}
}

func TestRelativeDeterministicUsesLaneZero(t *testing.T) {
	consts := &Constants{}
	for i := range 4 {
		consts.SetVec4(i, [4]float32{float32(i), 0, 0, 0})
	}
	rel := cr(0)
	rel.Rel = shader.Rel{Type: shader.RegAddr, Component: 1, Scale: 2, Deterministic: true}

	p := vertex(
		ins(shader.OpMova, shader.Out(shader.RegAddr, 0), v(0)),
		ins(shader.OpMov, od(0), rel),
	)
	in := wide.Vec4{{}, wide.F32x4{1, 0, 0, 0}}
	b := run(t, p, &Batch{Inputs: []wide.Vec4{in}, Constants: consts})
	if got, want := b.Outputs[0][wide.X], wide.SplatF32(2); got != want {
		t.Errorf("x = %v, want %v", got, want)
	}
}

func TestRelativeTemporaryScatterAndGather(t *testing.T) {
	dst := rd(0)
	dst.Rel = shader.Rel{Type: shader.RegAddr, Component: 0, Scale: 1}
	src := r(0)
	src.Rel = dst.Rel

	p := vertex(
		ins(shader.OpMov, rd(3), imm(0)), // r0..r3
		ins(shader.OpMova, shader.Out(shader.RegAddr, 0), v(0)),
		ins(shader.OpMov, dst, v(1)),
		ins(shader.OpMov, od(0), r(1)),
		ins(shader.OpMov, od(1), src),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{
		lanes(1, 2, 1, 3),
		lanes(10, 20, 30, 40),
	}})

	if got, want := b.Outputs[0][wide.X], (wide.F32x4{10, 0, 30, 0}); got != want {
		t.Errorf("r1.x = %v, want %v", got, want)
	}
	if got, want := b.Outputs[1][wide.X], (wide.F32x4{10, 20, 30, 40}); got != want {
		t.Errorf("gathered = %v, want %v", got, want)
	}
}

func TestCallSiteReturnsToItsCaller(t *testing.T) {
	p := vertex(
		ins(shader.OpMov, rd(0), imm(0)),
		flow(shader.OpCall, label(0)),
		ins(shader.OpMov, od(0), r(0)),
		flow(shader.OpCall, label(0)),
		ins(shader.OpMov, od(1), r(0)),
		flow(shader.OpCall, label(0)),
		ins(shader.OpMov, od(2), r(0)),
		flow(shader.OpRet),

		flow(shader.OpLabel, label(0)),
		ins(shader.OpAdd, rd(0), r(0), imm(1)),
		flow(shader.OpRet),
	)
	b := run(t, p, &Batch{})
	for i, want := range []float32{1, 2, 3} {
		if got := b.Outputs[i][wide.X]; got != wide.SplatF32(want) {
			t.Errorf("o%d.x = %v, want %v", i, got, want)
		}
	}
}

func TestNestedCalls(t *testing.T) {
	p := vertex(
		flow(shader.OpCall, label(1)),
		ins(shader.OpMov, od(0), r(0)),
		flow(shader.OpCall, label(2)),
		ins(shader.OpMov, od(1), r(0)),
		flow(shader.OpRet),

		flow(shader.OpLabel, label(1)),
		ins(shader.OpAdd, rd(0), r(0), imm(1)),
		flow(shader.OpCall, label(2)),
		ins(shader.OpMul, rd(0), r(0), imm(10)),
		flow(shader.OpRet),

		flow(shader.OpLabel, label(2)),
		ins(shader.OpAdd, rd(0), r(0), imm(2)),
		flow(shader.OpRet),
	)
	b := run(t, p, &Batch{})
	// ((0 + 1) + 2) * 10 = 30, then + 2.
	if got := b.Outputs[0][wide.X]; got != wide.SplatF32(30) {
		t.Errorf("o0.x = %v, want 30", got)
	}
	if got := b.Outputs[1][wide.X]; got != wide.SplatF32(32) {
		t.Errorf("o1.x = %v, want 32", got)
	}
}

func TestCallnzPerLane(t *testing.T) {
	p := vertex(
		ins(shader.OpMov, rd(0), v(0)),
		flow(shader.OpCallnz, label(0), shader.Reg(shader.RegPredicate, 0)),
		ins(shader.OpMov, od(0), r(0)),
		flow(shader.OpRet),

		flow(shader.OpLabel, label(0)),
		ins(shader.OpMul, rd(0), r(0), imm(-1)),
		flow(shader.OpRet),
	)
	setp := ins(shader.OpSetp, shader.Out(shader.RegPredicate, 0), v(0), imm(2))
	setp.Compare = gputypes.CompareFunctionLess
	p.Instructions = append([]shader.Instruction{setp}, p.Instructions...)

	b := run(t, p, &Batch{Inputs: []wide.Vec4{lanes(1, 2, 3, 0)}})
	if got, want := b.Outputs[0][wide.X], (wide.F32x4{-1, 2, 3, 0}); got != want {
		t.Errorf("o0.x = %v, want %v", got, want)
	}
}

func TestLeaveDisablesRestOfFunction(t *testing.T) {
	p := vertex(
		ins(shader.OpMov, rd(0), imm(1)),
		flow(shader.OpCall, label(0)),
		ins(shader.OpAdd, od(0), r(0), imm(100)),
		flow(shader.OpRet),

		flow(shader.OpLabel, label(0)),
		cmpFlow(shader.OpIfc, gputypes.CompareFunctionGreater, v(0), imm(0)),
		flow(shader.OpRet), // nested: acts as LEAVE
		flow(shader.OpEndIf),
		ins(shader.OpMov, rd(0), imm(7)),
		flow(shader.OpRet),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{lanes(1, 0, 1, 0)}})
	if got, want := b.Outputs[0][wide.X], (wide.F32x4{101, 107, 101, 107}); got != want {
		t.Errorf("o0.x = %v, want %v", got, want)
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	p := loopProgram()
	newBatch := func() *Batch {
		return &Batch{Inputs: []wide.Vec4{lanes(0, 1, 3, 10)}, Coverage: wide.AllOnes}
	}

	first, second := compile(t, p), compile(t, p)
	if first.Key() != second.Key() {
		t.Errorf("Key() differs: %x != %x", first.Key(), second.Key())
	}
	a, b := newBatch(), newBatch()
	first.Run(a)
	second.Run(b)
	for i := range a.Outputs {
		for comp := range 4 {
			if !sameBits(a.Outputs[i][comp], b.Outputs[i][comp]) {
				t.Errorf("o%d[%d]: %v != %v", i, comp, a.Outputs[i][comp], b.Outputs[i][comp])
			}
		}
	}

	// A routine reused for a second batch starts from clean registers.
	c := newBatch()
	first.Run(c)
	if c.Outputs[0] != a.Outputs[0] || c.Outputs[1] != a.Outputs[1] {
		t.Errorf("second run = %v, want %v", c.Outputs, a.Outputs)
	}
}

func TestCompileErrors(t *testing.T) {
	loopFromTemp := flow(shader.OpRep, r(0))

	tests := []struct {
		name string
		p    *shader.Program
		want error
	}{
		{"compute stage", &shader.Program{Stage: gputypes.ShaderStageCompute}, shader.ErrStage},
		{"unknown opcode", vertex(shader.Instruction{Op: shader.Opcode(60000)}), shader.ErrUnknownOpcode},
		{"loop count from temp", vertex(loopFromTemp, flow(shader.OpEndRep)), shader.ErrOperand},
		{"write to sampler", vertex(ins(shader.OpMov, shader.Out(shader.RegSampler, 0), imm(1))), shader.ErrOperand},
		{"unknown misc register", vertex(ins(shader.OpMov, rd(0), shader.Reg(shader.RegMisc, 9))), shader.ErrOperand},
		{"relative through output", vertex(ins(shader.OpMov, rd(0), shader.Src{
			Type: shader.RegConst, Swizzle: shader.SwizzleXYZW,
			Rel: shader.Rel{Type: shader.RegOutput},
		})), shader.ErrOperand},
		{"pixel op in vertex stage", vertex(ins(shader.OpDfdx, rd(0), v(0))), shader.ErrStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := Compile(tt.p, Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Compile() error = %v, want %v", err, tt.want)
			}
			if rt != nil {
				t.Error("Compile() returned a routine with an error")
			}
			var ce *shader.CompileError
			if !errors.As(err, &ce) {
				t.Errorf("error %T is not a *shader.CompileError", err)
			}
		})
	}
}

func TestRoutineMetadata(t *testing.T) {
	rel := cr(2)
	rel.Rel = shader.Rel{Type: shader.RegLoop}
	p := pixel(
		ins(shader.OpMov, rd(0), cr(5)),
		ins(shader.OpTex, od(1), v(3), shader.Reg(shader.RegSampler, 2)),
		ins(shader.OpAdd, od(0), r(0), rel),
	)
	rt := compile(t, p)

	if got := rt.Samplers(); got != 1<<2 {
		t.Errorf("Samplers() = %b, want %b", got, 1<<2)
	}
	if n, relative := rt.ConstantRange(); n != 6 || !relative {
		t.Errorf("ConstantRange() = (%d, %v), want (6, true)", n, relative)
	}
	if rt.Inputs() != 4 || rt.Outputs() != 2 {
		t.Errorf("Inputs(), Outputs() = %d, %d, want 4, 2", rt.Inputs(), rt.Outputs())
	}
	if rt.Stage() != gputypes.ShaderStageFragment {
		t.Errorf("Stage() = %v", rt.Stage())
	}
	if rt.Key() != p.Hash() {
		t.Error("Key() does not match Program.Hash()")
	}
}

func TestMissingInputsReadZero(t *testing.T) {
	p := vertex(ins(shader.OpAdd, od(0), v(0), v(5)))
	b := run(t, p, &Batch{Inputs: []wide.Vec4{lanes(1, 2, 3, 4)}})
	if got, want := b.Outputs[0][wide.X], (wide.F32x4{1, 2, 3, 4}); got != want {
		t.Errorf("o0.x = %v, want %v", got, want)
	}
}

func TestSaturateAndModifiers(t *testing.T) {
	sat := od(0)
	sat.Saturate = true
	absNeg := v(0)
	absNeg.Modifier = shader.ModAbsNegate
	p := vertex(
		ins(shader.OpMov, sat, v(0)),
		ins(shader.OpMov, od(1), absNeg),
		ins(shader.OpMov, od(2), v(1).Swz(shader.MakeSwizzle(3, 2, 1, 0))),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{
		lanes(-1, 0.5, 2, 1),
		wide.Uniform(1, 2, 3, 4),
	}})
	if got, want := b.Outputs[0][wide.X], (wide.F32x4{0, 0.5, 1, 1}); got != want {
		t.Errorf("saturate = %v, want %v", got, want)
	}
	if got, want := b.Outputs[1][wide.X], (wide.F32x4{-1, -0.5, -2, -1}); got != want {
		t.Errorf("-|x| = %v, want %v", got, want)
	}
	if got := b.Outputs[2].Row(0); got != [4]float32{4, 3, 2, 1} {
		t.Errorf("swizzle = %v, want [4 3 2 1]", got)
	}
}

func BenchmarkRunLoop(b *testing.B) {
	rt := compile(b, loopProgram())
	batch := &Batch{Inputs: []wide.Vec4{lanes(0, 1, 3, 10)}, Coverage: wide.AllOnes}
	for b.Loop() {
		rt.Run(batch)
	}
}
