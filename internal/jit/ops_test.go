package jit

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 1e-5*max(1, math.Abs(float64(b)))
}

// evalRow runs a single instruction writing o0 with the given inputs and
// returns lane 0 of the result.
func evalRow(t *testing.T, in shader.Instruction, inputs ...[4]float32) [4]float32 {
	t.Helper()
	regs := make([]wide.Vec4, len(inputs))
	for i, row := range inputs {
		regs[i] = wide.UniformRow(row)
	}
	b := run(t, vertex(in), &Batch{Inputs: regs})
	return b.Outputs[0].Row(0)
}

func TestVectorOps(t *testing.T) {
	tests := []struct {
		name   string
		in     shader.Instruction
		inputs [][4]float32
		want   [4]float32
	}{
		{"dp3", ins(shader.OpDp3, od(0), v(0), v(1)), [][4]float32{{1, 2, 3, 4}, {4, 5, 6, 7}}, [4]float32{32, 32, 32, 32}},
		{"dp4", ins(shader.OpDp4, od(0), v(0), v(1)), [][4]float32{{1, 2, 3, 4}, {4, 5, 6, 7}}, [4]float32{60, 60, 60, 60}},
		{"dp2add", ins(shader.OpDp2Add, od(0), v(0), v(1), imm(0.5)), [][4]float32{{1, 2, 3, 4}, {4, 5, 6, 7}}, [4]float32{14.5, 14.5, 14.5, 14.5}},
		{"dst", ins(shader.OpDst, od(0), v(0), v(1)), [][4]float32{{9, 2, 3, 9}, {9, 5, 9, 7}}, [4]float32{1, 10, 3, 7}},
		{"crs", ins(shader.OpCrs, od(0), v(0), v(1)), [][4]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}, [4]float32{0, 0, 1, 0}},
		{"nrm3", ins(shader.OpNrm3, od(0), v(0)), [][4]float32{{3, 0, 4, 7}}, [4]float32{0.6, 0, 0.8, 7}},
		{"len2", ins(shader.OpLen2, od(0), v(0)), [][4]float32{{3, 4, 9, 9}}, [4]float32{5, 5, 5, 5}},
		{"dist3", ins(shader.OpDist3, od(0), v(0), v(1)), [][4]float32{{1, 2, 3, 0}, {1, 2, 5, 0}}, [4]float32{2, 2, 2, 2}},
		{"reflect3", ins(shader.OpReflect3, od(0), v(0), v(1)), [][4]float32{{1, -1, 0, 0}, {0, 1, 0, 0}}, [4]float32{1, 1, 0, 0}},
		{"forward3 flips", ins(shader.OpForward3, od(0), v(0), v(1), v(2)), [][4]float32{{0, 1, 0, 0}, {0, 1, 0, 0}, {0, 1, 0, 0}}, [4]float32{0, -1, 0, 0}},
		{"forward3 keeps", ins(shader.OpForward3, od(0), v(0), v(1), v(2)), [][4]float32{{0, 1, 0, 0}, {0, -1, 0, 0}, {0, 1, 0, 0}}, [4]float32{0, 1, 0, 0}},
		{"det2", ins(shader.OpDet2, od(0), v(0), v(1)), [][4]float32{{1, 2, 0, 0}, {3, 4, 0, 0}}, [4]float32{-2, -2, -2, -2}},
		{"det3", ins(shader.OpDet3, od(0), v(0), v(1), v(2)), [][4]float32{{2, 0, 0, 0}, {0, 3, 0, 0}, {0, 0, 4, 0}}, [4]float32{24, 24, 24, 24}},
		{"lit", ins(shader.OpLit, od(0), v(0)), [][4]float32{{0.5, 2, 0, 3}}, [4]float32{1, 0.5, 8, 1}},
		{"lit facing away", ins(shader.OpLit, od(0), v(0)), [][4]float32{{-0.5, 2, 0, 3}}, [4]float32{1, 0, 0, 1}},
		{"sincos", ins(shader.OpSinCos, od(0).Masked(shader.MaskX|shader.MaskY), v(0)), [][4]float32{{0, 0, 0, 0}}, [4]float32{1, 0, 0, 0}},
		{"extract", ins(shader.OpExtract, od(0), v(0), ints(2, 0, 0, 0)), [][4]float32{{5, 6, 7, 8}}, [4]float32{7, 7, 7, 7}},
		{"insert", ins(shader.OpInsert, od(0), v(0), imm(9), ints(1, 0, 0, 0)), [][4]float32{{5, 6, 7, 8}}, [4]float32{5, 9, 7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalRow(t, tt.in, tt.inputs...)
			for c := range got {
				if !approx(got[c], tt.want[c]) {
					t.Errorf("result = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestMatrixMultiply(t *testing.T) {
	consts := &Constants{}
	consts.SetMat4(0, [16]float32{
		1, 0, 0, 10,
		0, 2, 0, 20,
		0, 0, 3, 30,
		0, 0, 0, 1,
	})

	tests := []struct {
		op   shader.Opcode
		want [4]float32
	}{
		{shader.OpM4x4, [4]float32{11, 22, 33, 1}},
		{shader.OpM4x3, [4]float32{11, 22, 33, 0}},
		{shader.OpM3x3, [4]float32{1, 2, 3, 0}},
		{shader.OpM3x2, [4]float32{1, 2, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			p := vertex(ins(tt.op, od(0), v(0), cr(0)))
			b := run(t, p, &Batch{Inputs: []wide.Vec4{wide.Uniform(1, 1, 1, 1)}, Constants: consts})
			if got := b.Outputs[0].Row(1); got != tt.want {
				t.Errorf("result = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntegerOps(t *testing.T) {
	tests := []struct {
		name string
		op   shader.Opcode
		a, b int32
		want int32
	}{
		{"iadd", shader.OpIAdd, 7, -9, -2},
		{"imul", shader.OpIMul, -3, 5, -15},
		{"idiv truncates", shader.OpIDiv, -7, 2, -3},
		{"idiv by zero", shader.OpIDiv, 5, 0, -1},
		{"imod", shader.OpIMod, -7, 2, -1},
		{"imin", shader.OpIMin, -7, 2, -7},
		{"umin treats sign as magnitude", shader.OpUMin, -7, 2, 2},
		{"shl", shader.OpShl, 3, 4, 48},
		{"ishr keeps sign", shader.OpIShr, -16, 2, -4},
		{"ushr", shader.OpUShr, -16, 28, 15},
		{"and", shader.OpAnd, 0b1100, 0b1010, 0b1000},
		{"or", shader.OpOr, 0b1100, 0b1010, 0b1110},
		{"xor", shader.OpXor, 0b1100, 0b1010, 0b0110},
		{"eq", shader.OpEq, 4, 4, -1},
		{"ne", shader.OpNe, 4, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := vertex(ins(tt.op, od(0), ints(tt.a, tt.a, tt.a, tt.a), ints(tt.b, tt.b, tt.b, tt.b)))
			b := run(t, p, &Batch{})
			if got := b.Outputs[0][wide.X].Int(); got != wide.SplatI32(tt.want) {
				t.Errorf("%d %s %d = %v, want %d", tt.a, tt.op, tt.b, got, tt.want)
			}
		})
	}
}

func TestUnaryIntegerOps(t *testing.T) {
	tests := []struct {
		op   shader.Opcode
		a    int32
		want int32
	}{
		{shader.OpINeg, 5, -5},
		{shader.OpIAbs, -5, 5},
		{shader.OpISgn, -9, -1},
		{shader.OpNot, 0, -1},
		{shader.OpBitCount, 0b1011, 3},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			p := vertex(ins(tt.op, od(0), ints(tt.a, tt.a, tt.a, tt.a)))
			b := run(t, p, &Batch{})
			if got := b.Outputs[0][wide.X].Int(); got != wide.SplatI32(tt.want) {
				t.Errorf("%s %d = %v, want %d", tt.op, tt.a, got, tt.want)
			}
		})
	}
}

func TestIntegerCompare(t *testing.T) {
	tests := []struct {
		op   shader.Opcode
		cmp  gputypes.CompareFunction
		a, b int32
		want bool
	}{
		{shader.OpICmp, gputypes.CompareFunctionLess, -1, 0, true},
		{shader.OpUCmp, gputypes.CompareFunctionLess, -1, 0, false},
		{shader.OpICmp, gputypes.CompareFunctionGreaterEqual, 3, 3, true},
		{shader.OpUCmp, gputypes.CompareFunctionNotEqual, 3, 3, false},
		{shader.OpCmp, gputypes.CompareFunctionLessEqual, 0, 0, true},
	}
	for _, tt := range tests {
		in := ins(tt.op, od(0), ints(tt.a, 0, 0, 0), ints(tt.b, 0, 0, 0))
		in.Compare = tt.cmp
		b := run(t, vertex(in), &Batch{})
		if got := b.Outputs[0][wide.X].Bits().All(); got != tt.want {
			t.Errorf("%s %v(%d, %d) = %v, want %v", tt.op, tt.cmp, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPackRoundTrip(t *testing.T) {
	p := vertex(
		ins(shader.OpPackHalf2x16, rd(0), v(0)),
		ins(shader.OpUnpackHalf2x16, od(0).Masked(shader.MaskX|shader.MaskY), r(0)),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{wide.Uniform(0.5, -2, 0, 0)}})
	if got := b.Outputs[0].Row(3); got != [4]float32{0.5, -2, 0, 0} {
		t.Errorf("round trip = %v, want [0.5 -2 0 0]", got)
	}
}

func TestDerivatives(t *testing.T) {
	p := pixel(
		ins(shader.OpDfdx, od(0), v(0)),
		ins(shader.OpDfdy, od(1), v(0)),
		ins(shader.OpFwidth, od(2), v(0)),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{lanes(1, 2, 4, 8)}})
	checks := []struct {
		name string
		got  wide.F32x4
		want wide.F32x4
	}{
		{"ddx", b.Outputs[0][wide.X], wide.F32x4{1, 1, 4, 4}},
		{"ddy", b.Outputs[1][wide.X], wide.F32x4{3, 6, 3, 6}},
		{"fwidth", b.Outputs[2][wide.X], wide.F32x4{4, 7, 7, 10}},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestConversions(t *testing.T) {
	p := vertex(
		ins(shader.OpF2I, od(0), v(0)),
		ins(shader.OpF2I, rd(0), v(0)),
		ins(shader.OpI2F, od(1), r(0)),
		ins(shader.OpMova, od(2), v(0)),
	)
	b := run(t, p, &Batch{Inputs: []wide.Vec4{lanes(-2.7, 2.7, 0.5, -0.5)}})
	if got, want := b.Outputs[0][wide.X].Int(), (wide.I32x4{-2, 2, 0, 0}); got != want {
		t.Errorf("f2i = %v, want %v", got, want)
	}
	if got, want := b.Outputs[1][wide.X], (wide.F32x4{-2, 2, 0, 0}); got != want {
		t.Errorf("i2f(f2i) = %v, want %v", got, want)
	}
	if got, want := b.Outputs[2][wide.X].Int(), (wide.I32x4{-3, 3, 0, 0}); got != want {
		t.Errorf("mova (ties to even) = %v, want %v", got, want)
	}
}
