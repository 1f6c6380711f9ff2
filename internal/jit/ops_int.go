package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// Integer and bitwise instructions operate on the bit patterns held in
// float registers.

func ints1(f func(wide.I32x4) wide.I32x4) func(wide.F32x4) wide.F32x4 {
	return func(a wide.F32x4) wide.F32x4 { return f(a.Int()).Float() }
}

func ints2(f func(a, b wide.I32x4) wide.I32x4) func(a, b wide.F32x4) wide.F32x4 {
	return func(a, b wide.F32x4) wide.F32x4 { return f(a.Int(), b.Int()).Float() }
}

func uints2(f func(a, b wide.U32x4) wide.U32x4) func(a, b wide.F32x4) wide.F32x4 {
	return func(a, b wide.F32x4) wide.F32x4 { return f(a.Bits(), b.Bits()).Float() }
}

var intUnaryOps = map[shader.Opcode]func(wide.F32x4) wide.F32x4{
	shader.OpINeg: ints1(wide.I32x4.Neg),
	shader.OpIAbs: ints1(func(v wide.I32x4) wide.I32x4 { return v.Max(v.Neg()) }),
	shader.OpISgn: ints1(func(v wide.I32x4) wide.I32x4 { return v.Clamp(-1, 1) }),
	shader.OpNot:  func(a wide.F32x4) wide.F32x4 { return a.Bits().Not().Float() },

	shader.OpBitCount: func(a wide.F32x4) wide.F32x4 { return a.Bits().OnesCount().Float() },
}

var intBinaryOps = map[shader.Opcode]func(a, b wide.F32x4) wide.F32x4{
	shader.OpIAdd: ints2(wide.I32x4.Add),
	shader.OpISub: ints2(wide.I32x4.Sub),
	shader.OpIMul: ints2(wide.I32x4.Mul),
	shader.OpIDiv: ints2(wide.I32x4.Div),
	shader.OpIMod: ints2(wide.I32x4.Mod),
	shader.OpIMin: ints2(wide.I32x4.Min),
	shader.OpIMax: ints2(wide.I32x4.Max),
	shader.OpUDiv: uints2(wide.U32x4.Div),
	shader.OpUMod: uints2(wide.U32x4.Mod),
	shader.OpUMin: uints2(wide.U32x4.Min),
	shader.OpUMax: uints2(wide.U32x4.Max),
	shader.OpShl:  uints2(wide.U32x4.Shl),
	shader.OpUShr: uints2(wide.U32x4.Shr),
	shader.OpIShr: func(a, b wide.F32x4) wide.F32x4 { return a.Int().Shr(b.Bits()).Float() },

	shader.OpAnd: uints2(wide.U32x4.And),
	shader.OpOr:  uints2(wide.U32x4.Or),
	shader.OpXor: uints2(wide.U32x4.Xor),
	shader.OpEq:  uints2(wide.U32x4.CmpEQ),
	shader.OpNe: uints2(func(a, b wide.U32x4) wide.U32x4 {
		return a.CmpEQ(b).Not()
	}),
}

// packOp compiles the 2x16 packing instructions. Pack reads x and y and
// writes the packed word to every component; unpack reads x and writes
// x and y.
func packOp(op shader.Opcode, s []reader) compute {
	var (
		pack   func(x, y wide.F32x4) wide.U32x4
		unpack func(p wide.U32x4) (x, y wide.F32x4)
	)
	switch op {
	case shader.OpPackSnorm2x16:
		pack = wide.PackSnorm2x16
	case shader.OpPackUnorm2x16:
		pack = wide.PackUnorm2x16
	case shader.OpPackHalf2x16:
		pack = wide.PackHalf2x16
	case shader.OpUnpackSnorm2x16:
		unpack = wide.UnpackSnorm2x16
	case shader.OpUnpackUnorm2x16:
		unpack = wide.UnpackUnorm2x16
	case shader.OpUnpackHalf2x16:
		unpack = wide.UnpackHalf2x16
	default:
		return nil
	}
	a := s[0]
	if pack != nil {
		return func(r *Registers) wide.Vec4 {
			v := a(r)
			return wide.Splat(pack(v[wide.X], v[wide.Y]).Float())
		}
	}
	return func(r *Registers) wide.Vec4 {
		x, y := unpack(a(r)[wide.X].Bits())
		return wide.Vec4{x, y}
	}
}
