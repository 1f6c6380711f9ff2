package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// Pixel batches are 2x2 quads: lane 0 top-left, 1 top-right, 2 bottom-left,
// 3 bottom-right. Derivatives are coarse per row and column.

func ddx(v wide.F32x4) wide.F32x4 {
	h, l := v[1]-v[0], v[3]-v[2]
	return wide.F32x4{h, h, l, l}
}

func ddy(v wide.F32x4) wide.F32x4 {
	l, r := v[2]-v[0], v[3]-v[1]
	return wide.F32x4{l, r, l, r}
}

func fwidth(v wide.F32x4) wide.F32x4 {
	return ddx(v).Abs().Add(ddy(v).Abs())
}

// pixelOp compiles screen-space derivatives, or returns nil.
func (c *compiler) pixelOp(in *shader.Instruction, s []reader) compute {
	switch in.Op {
	case shader.OpDfdx:
		return map1(s[0], ddx)
	case shader.OpDfdy:
		return map1(s[0], ddy)
	case shader.OpFwidth:
		return map1(s[0], fwidth)
	}
	return nil
}

// kill compiles TEXKILL and DISCARD, which clear lanes of the batch
// coverage. Lanes already disabled by control flow are untouched.
func (c *compiler) kill(pc int, in *shader.Instruction) (func(*Registers), error) {
	whileTest := c.an.WhileTest(pc)
	if in.Op == shader.OpDiscard {
		return func(r *Registers) {
			r.batch.Coverage = r.batch.Coverage.AndNot(r.effective(whileTest))
		}, nil
	}

	read, err := c.fetch(pc, &in.Src[0])
	if err != nil {
		return nil, err
	}
	return func(r *Registers) {
		v := read(r)
		neg := v[wide.X].CmpLT(zero).Or(v[wide.Y].CmpLT(zero)).Or(v[wide.Z].CmpLT(zero))
		r.batch.Coverage = r.batch.Coverage.AndNot(neg.And(r.effective(whileTest)))
	}, nil
}
