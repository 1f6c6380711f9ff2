package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// writer commits an instruction result to its destination.
type writer func(r *Registers, v wide.Vec4)

// store compiles the write-back of instruction pc.
//
// Unmasked instructions write every lane of the enabled components.
// Masked ones blend with the previous value under the effective lane mask,
// narrowed per component by the predicate when there is one.
func (c *compiler) store(pc int, in *shader.Instruction) (writer, error) {
	d := &in.Dst
	var comps []int
	for i := range 4 {
		if d.Mask&(1<<i) != 0 {
			comps = append(comps, i)
		}
	}

	lanes := c.writeMask(pc, in)
	w, err := c.target(pc, d, comps, lanes)
	if err != nil {
		return nil, err
	}
	if d.Saturate {
		unclamped := w
		w = func(r *Registers, v wide.Vec4) { unclamped(r, v.Saturate()) }
	}
	return w, nil
}

// writeMask compiles the per-component lane mask of a masked write, or
// returns nil when the instruction writes unconditionally.
func (c *compiler) writeMask(pc int, in *shader.Instruction) func(*Registers) [4]wide.U32x4 {
	if !c.an.Masked(pc) {
		return nil
	}
	whileTest := c.an.WhileTest(pc)
	if !in.Predicate {
		return func(r *Registers) [4]wide.U32x4 {
			m := r.effective(whileTest)
			return [4]wide.U32x4{m, m, m, m}
		}
	}
	sw, not := in.PredicateSwizzle, in.PredicateNot
	return func(r *Registers) [4]wide.U32x4 {
		eff := r.effective(whileTest)
		var m [4]wide.U32x4
		for comp := range m {
			p := r.p0[sw.Component(comp)].Bits().NonZero()
			if not {
				p = p.Not()
			}
			m[comp] = eff.And(p)
		}
		return m
	}
}

func (c *compiler) target(pc int, d *shader.Dst, comps []int, lanes func(*Registers) [4]wide.U32x4) (writer, error) {
	i := d.Index
	switch d.Type {
	case shader.RegTemp, shader.RegOutput:
		file := registerFile(d.Type)
		if d.Rel.Relative() {
			return c.scatter(pc, file, i, d.Rel, comps, lanes)
		}
		return writeSlot(func(r *Registers) *wide.Vec4 { return &file(r)[i] }, comps, lanes), nil
	case shader.RegAddr:
		return writeSlot(func(r *Registers) *wide.Vec4 { return &r.a0 }, comps, lanes), nil
	case shader.RegPredicate:
		return writeSlot(func(r *Registers) *wide.Vec4 { return &r.p0 }, comps, lanes), nil
	case shader.RegDepthOut:
		if d.Mask&shader.MaskX == 0 {
			return func(*Registers, wide.Vec4) {}, nil
		}
		if lanes == nil {
			return func(r *Registers, v wide.Vec4) { r.batch.Depth = v[wide.X] }, nil
		}
		return func(r *Registers, v wide.Vec4) {
			r.batch.Depth = wide.Select(lanes(r)[wide.X], v[wide.X], r.batch.Depth)
		}, nil
	}
	return nil, c.prog.Errorf(pc, shader.ErrOperand, "no write path for %s", d.Type)
}

// writeSlot writes the enabled components of a single register.
func writeSlot(slot func(*Registers) *wide.Vec4, comps []int, lanes func(*Registers) [4]wide.U32x4) writer {
	if lanes == nil {
		return func(r *Registers, v wide.Vec4) {
			s := slot(r)
			for _, comp := range comps {
				s[comp] = v[comp]
			}
		}
	}
	return func(r *Registers, v wide.Vec4) {
		s := slot(r)
		m := lanes(r)
		for _, comp := range comps {
			s[comp] = wide.Select(m[comp], v[comp], s[comp])
		}
	}
}

// scatter compiles a relative write. With a per-lane offset every lane
// writes its own value into its own register.
func (c *compiler) scatter(pc int, file func(*Registers) []wide.Vec4, base uint32, rel shader.Rel, comps []int, lanes func(*Registers) [4]wide.U32x4) (writer, error) {
	off, err := c.offset(pc, rel)
	if err != nil {
		return nil, err
	}
	if off.uniform != nil {
		slot := func(r *Registers) *wide.Vec4 {
			f := file(r)
			return &f[clampIndex(int64(base)+off.uniform(r), len(f))]
		}
		return writeSlot(slot, comps, lanes), nil
	}
	return func(r *Registers, v wide.Vec4) {
		f := file(r)
		idx := off.lanes(r)
		m := [4]wide.U32x4{wide.AllOnes, wide.AllOnes, wide.AllOnes, wide.AllOnes}
		if lanes != nil {
			m = lanes(r)
		}
		for lane := range idx {
			reg := &f[clampIndex(int64(base)+idx[lane], len(f))]
			for _, comp := range comps {
				if m[comp][lane] != 0 {
					reg[comp][lane] = v[comp][lane]
				}
			}
		}
	}, nil
}
