package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// compute produces the result of an instruction before write-back.
type compute func(*Registers) wide.Vec4

// alu compiles an arithmetic, logic or pixel instruction.
func (c *compiler) alu(pc int, in *shader.Instruction) (func(*Registers), error) {
	switch in.Op {
	case shader.OpTexKill, shader.OpDiscard:
		return c.kill(pc, in)
	}

	srcs := make([]reader, len(in.Sources()))
	for i := range srcs {
		read, err := c.fetch(pc, &in.Src[i])
		if err != nil {
			return nil, err
		}
		srcs[i] = read
	}

	calc, err := c.compute(pc, in, srcs)
	if err != nil {
		return nil, err
	}
	if !in.HasDst() {
		return nil, nil
	}
	store, err := c.store(pc, in)
	if err != nil {
		return nil, err
	}
	return func(r *Registers) { store(r, calc(r)) }, nil
}

func (c *compiler) compute(pc int, in *shader.Instruction, s []reader) (compute, error) {
	op := in.Op
	if f, ok := lookup(op, unaryOps, intUnaryOps); ok {
		return map1(s[0], f), nil
	}
	if f, ok := lookup(op, binaryOps, intBinaryOps); ok {
		if op == shader.OpDiv && in.Dst.Integer {
			// Integer destinations truncate the quotient toward zero.
			return map2(s[0], s[1], func(a, b wide.F32x4) wide.F32x4 { return wide.Trunc(a.Div(b)) }), nil
		}
		return map2(s[0], s[1], f), nil
	}
	if f, ok := ternaryOps[op]; ok {
		return map3(s[0], s[1], s[2], f), nil
	}

	switch op {
	case shader.OpCmp, shader.OpICmp, shader.OpUCmp, shader.OpSetp:
		var (
			cmp maskFunc
			err error
		)
		switch op {
		case shader.OpICmp:
			cmp, err = c.compareInt(pc, in.Compare)
		case shader.OpUCmp:
			cmp, err = c.compareUint(pc, in.Compare)
		default:
			cmp, err = c.compareFloat(pc, in.Compare)
		}
		if err != nil {
			return nil, err
		}
		return map2(s[0], s[1], func(a, b wide.F32x4) wide.F32x4 { return cmp(a, b).Float() }), nil
	}

	if calc := packOp(op, s); calc != nil {
		return calc, nil
	}
	if calc, err := c.vectorOp(pc, in, s); calc != nil || err != nil {
		return calc, err
	}
	if calc := c.pixelOp(in, s); calc != nil {
		return calc, nil
	}
	return nil, c.prog.Errorf(pc, shader.ErrUnknownOpcode, "no emitter for %s", op)
}

func map1(a reader, f func(wide.F32x4) wide.F32x4) compute {
	return func(r *Registers) wide.Vec4 {
		v := a(r)
		return wide.Vec4{f(v[0]), f(v[1]), f(v[2]), f(v[3])}
	}
}

func map2(a, b reader, f func(a, b wide.F32x4) wide.F32x4) compute {
	return func(r *Registers) wide.Vec4 {
		x, y := a(r), b(r)
		return wide.Vec4{f(x[0], y[0]), f(x[1], y[1]), f(x[2], y[2]), f(x[3], y[3])}
	}
}

func map3(a, b, c reader, f func(a, b, c wide.F32x4) wide.F32x4) compute {
	return func(r *Registers) wide.Vec4 {
		x, y, z := a(r), b(r), c(r)
		return wide.Vec4{f(x[0], y[0], z[0]), f(x[1], y[1], z[1]), f(x[2], y[2], z[2]), f(x[3], y[3], z[3])}
	}
}

// replicate returns a compute writing scalar f to every component.
func replicate(f func(*Registers) wide.F32x4) compute {
	return func(r *Registers) wide.Vec4 { return wide.Splat(f(r)) }
}

func lookup[F any](op shader.Opcode, tables ...map[shader.Opcode]F) (F, bool) {
	for _, t := range tables {
		if f, ok := t[op]; ok {
			return f, true
		}
	}
	var none F
	return none, false
}
