package jit

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

type maskFunc func(a, b wide.F32x4) wide.U32x4

// compareFloat returns the float comparison for f. Comparisons with NaN
// are false except NotEqual.
func (c *compiler) compareFloat(pc int, f gputypes.CompareFunction) (maskFunc, error) {
	switch f {
	case gputypes.CompareFunctionNever:
		return func(a, b wide.F32x4) wide.U32x4 { return wide.U32x4{} }, nil
	case gputypes.CompareFunctionLess:
		return wide.F32x4.CmpLT, nil
	case gputypes.CompareFunctionEqual:
		return wide.F32x4.CmpEQ, nil
	case gputypes.CompareFunctionLessEqual:
		return wide.F32x4.CmpLE, nil
	case gputypes.CompareFunctionGreater:
		return wide.F32x4.CmpGT, nil
	case gputypes.CompareFunctionNotEqual:
		return wide.F32x4.CmpNE, nil
	case gputypes.CompareFunctionGreaterEqual:
		return wide.F32x4.CmpGE, nil
	case gputypes.CompareFunctionAlways:
		return func(a, b wide.F32x4) wide.U32x4 { return wide.AllOnes }, nil
	}
	return nil, c.prog.Errorf(pc, shader.ErrOperand, "comparison %v", f)
}

// compareInt returns the signed integer comparison for f over bit
// patterns.
func (c *compiler) compareInt(pc int, f gputypes.CompareFunction) (maskFunc, error) {
	lt := func(a, b wide.F32x4) wide.U32x4 { return a.Int().CmpLT(b.Int()) }
	gt := func(a, b wide.F32x4) wide.U32x4 { return a.Int().CmpGT(b.Int()) }
	eq := func(a, b wide.F32x4) wide.U32x4 { return a.Int().CmpEQ(b.Int()) }
	return c.compareWith(pc, f, lt, gt, eq)
}

// compareUint returns the unsigned integer comparison for f over bit
// patterns.
func (c *compiler) compareUint(pc int, f gputypes.CompareFunction) (maskFunc, error) {
	lt := func(a, b wide.F32x4) wide.U32x4 { return a.Bits().CmpLT(b.Bits()) }
	gt := func(a, b wide.F32x4) wide.U32x4 { return b.Bits().CmpLT(a.Bits()) }
	eq := func(a, b wide.F32x4) wide.U32x4 { return a.Bits().CmpEQ(b.Bits()) }
	return c.compareWith(pc, f, lt, gt, eq)
}

func (c *compiler) compareWith(pc int, f gputypes.CompareFunction, lt, gt, eq maskFunc) (maskFunc, error) {
	not := func(m maskFunc) maskFunc {
		return func(a, b wide.F32x4) wide.U32x4 { return m(a, b).Not() }
	}
	switch f {
	case gputypes.CompareFunctionLess:
		return lt, nil
	case gputypes.CompareFunctionEqual:
		return eq, nil
	case gputypes.CompareFunctionLessEqual:
		return not(gt), nil
	case gputypes.CompareFunctionGreater:
		return gt, nil
	case gputypes.CompareFunctionNotEqual:
		return not(eq), nil
	case gputypes.CompareFunctionGreaterEqual:
		return not(lt), nil
	}
	return c.compareFloat(pc, f)
}
