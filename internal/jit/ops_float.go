package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

var (
	zero = wide.F32x4{}
	one  = wide.SplatF32(1)
	half = wide.SplatF32(0.5)
)

// boolFloat turns a lane mask into 1.0 or 0.0.
func boolFloat(m wide.U32x4) wide.F32x4 { return wide.Select(m, one, zero) }

func abs(f func(wide.F32x4) wide.F32x4) func(wide.F32x4) wide.F32x4 {
	return func(x wide.F32x4) wide.F32x4 { return f(x.Abs()) }
}

func identity(x wide.F32x4) wide.F32x4 { return x }

// unaryOps are applied to every component independently. The legacy "x"
// forms of rsq and log take the absolute value of their operand.
var unaryOps = map[shader.Opcode]func(wide.F32x4) wide.F32x4{
	shader.OpMov:       identity,
	shader.OpBitcast:   identity,
	shader.OpNeg:       wide.F32x4.Neg,
	shader.OpAbs:       wide.F32x4.Abs,
	shader.OpSat:       wide.F32x4.Saturate,
	shader.OpFrc:       wide.Frac,
	shader.OpFloor:     wide.Floor,
	shader.OpCeil:      wide.Ceil,
	shader.OpTrunc:     wide.Trunc,
	shader.OpRound:     wide.Round,
	shader.OpRoundEven: wide.RoundEven,
	shader.OpSgn:       wide.Sign,

	shader.OpRcp:   wide.Rcp,
	shader.OpRcpx:  wide.Rcp,
	shader.OpRsq:   wide.RSqrt,
	shader.OpRsqx:  abs(wide.RSqrt),
	shader.OpSqrt:  wide.Sqrt,
	shader.OpExp2:  wide.Exp2,
	shader.OpExp2x: wide.Exp2,
	shader.OpExpp:  wide.Exp2,
	shader.OpExp:   wide.Exp,
	shader.OpLog2:  wide.Log2,
	shader.OpLog2x: abs(wide.Log2),
	shader.OpLogp:  abs(wide.Log2),
	shader.OpLog:   wide.Log,

	shader.OpSin:   wide.Sin,
	shader.OpCos:   wide.Cos,
	shader.OpTan:   wide.Tan,
	shader.OpAsin:  wide.Asin,
	shader.OpAcos:  wide.Acos,
	shader.OpAtan:  wide.Atan,
	shader.OpSinh:  wide.Sinh,
	shader.OpCosh:  wide.Cosh,
	shader.OpTanh:  wide.Tanh,
	shader.OpAsinh: wide.Asinh,
	shader.OpAcosh: wide.Acosh,
	shader.OpAtanh: wide.Atanh,

	shader.OpIsNaN: func(x wide.F32x4) wide.F32x4 { return wide.IsNaN(x).Float() },
	shader.OpIsInf: func(x wide.F32x4) wide.F32x4 { return wide.IsInf(x).Float() },
	shader.OpMova:  func(x wide.F32x4) wide.F32x4 { return x.RoundI32().Float() },

	shader.OpF2I: func(x wide.F32x4) wide.F32x4 { return x.ToI32().Float() },
	shader.OpI2F: func(x wide.F32x4) wide.F32x4 { return x.Int().ToF32() },
	shader.OpF2U: func(x wide.F32x4) wide.F32x4 { return x.ToU32().Float() },
	shader.OpU2F: func(x wide.F32x4) wide.F32x4 { return x.Bits().ToF32() },
	shader.OpF2B: func(x wide.F32x4) wide.F32x4 { return x.CmpNE(zero).Float() },
	shader.OpB2F: func(x wide.F32x4) wide.F32x4 { return boolFloat(x.Bits().NonZero()) },
	shader.OpI2B: func(x wide.F32x4) wide.F32x4 { return x.Bits().NonZero().Float() },
	shader.OpB2I: func(x wide.F32x4) wide.F32x4 {
		return x.Bits().NonZero().And(wide.SplatU32(1)).Float()
	},
}

// binaryOps are applied to every component pair independently.
var binaryOps = map[shader.Opcode]func(a, b wide.F32x4) wide.F32x4{
	shader.OpAdd:   wide.F32x4.Add,
	shader.OpSub:   wide.F32x4.Sub,
	shader.OpMul:   wide.F32x4.Mul,
	shader.OpDiv:   wide.F32x4.Div,
	shader.OpMod:   wide.Mod,
	shader.OpMin:   wide.F32x4.Min,
	shader.OpMax:   wide.F32x4.Max,
	shader.OpStep:  wide.Step,
	shader.OpPow:   wide.Pow,
	shader.OpPowx:  func(a, b wide.F32x4) wide.F32x4 { return wide.Pow(a.Abs(), b) },
	shader.OpAtan2: wide.Atan2,

	shader.OpSlt: func(a, b wide.F32x4) wide.F32x4 { return boolFloat(a.CmpLT(b)) },
	shader.OpSge: func(a, b wide.F32x4) wide.F32x4 { return boolFloat(a.CmpGE(b)) },
	shader.OpSeq: func(a, b wide.F32x4) wide.F32x4 { return boolFloat(a.CmpEQ(b)) },
	shader.OpSgt: func(a, b wide.F32x4) wide.F32x4 { return boolFloat(a.CmpGT(b)) },
	shader.OpSle: func(a, b wide.F32x4) wide.F32x4 { return boolFloat(a.CmpLE(b)) },
	shader.OpSne: func(a, b wide.F32x4) wide.F32x4 { return boolFloat(a.CmpNE(b)) },
}

// ternaryOps are applied to every component triple independently.
var ternaryOps = map[shader.Opcode]func(a, b, c wide.F32x4) wide.F32x4{
	shader.OpMad:    wide.F32x4.MulAdd,
	shader.OpLrp:    func(a, b, c wide.F32x4) wide.F32x4 { return a.MulAdd(b.Sub(c), c) },
	shader.OpClamp:  wide.F32x4.Clamp,
	shader.OpSmooth: wide.SmoothStep,
	shader.OpCmp0:   func(a, b, c wide.F32x4) wide.F32x4 { return wide.Select(a.CmpGE(zero), b, c) },
	shader.OpCnd:    func(a, b, c wide.F32x4) wide.F32x4 { return wide.Select(a.CmpGT(half), b, c) },
	shader.OpSelect: func(a, b, c wide.F32x4) wide.F32x4 { return wide.Select(a.Bits().NonZero(), b, c) },
}
