package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// offset is a compiled relative address. Exactly one field is set:
// uniform when every lane uses the same offset, lanes otherwise.
// Offsets are 64-bit so that scaling a large index cannot wrap back
// into the register file.
type offset struct {
	uniform func(*Registers) int64
	lanes   func(*Registers) [4]int64
}

// offset compiles the run-time part of a relative address.
//
// The loop counter is lane-uniform, as is a register promised to be
// deterministic: lane 0 is scaled and used for every lane. Any other
// register yields one offset per lane.
func (c *compiler) offset(pc int, rel shader.Rel) (offset, error) {
	if rel.Type == shader.RegLoop {
		return offset{uniform: func(r *Registers) int64 { return int64(r.aL[r.loopIndex]) }}, nil
	}
	switch rel.Type {
	case shader.RegAddr, shader.RegTemp, shader.RegInput, shader.RegConstInt:
	default:
		return offset{}, c.prog.Errorf(pc, shader.ErrOperand, "relative addressing through %s", rel.Type)
	}

	src := shader.Src{Type: rel.Type, Index: rel.Index}
	read, err := c.raw(pc, &src)
	if err != nil {
		return offset{}, err
	}
	comp := int(rel.Component & 3)
	scale := int64(rel.Scale)
	if scale == 0 {
		scale = 1
	}

	if rel.Deterministic {
		return offset{uniform: func(r *Registers) int64 {
			return int64(intBits(read(r)[comp][0])) * scale
		}}, nil
	}
	return offset{lanes: func(r *Registers) [4]int64 {
		v := read(r)[comp].Int()
		var idx [4]int64
		for i := range v {
			idx[i] = int64(v[i]) * scale
		}
		return idx
	}}, nil
}

// clampIndex limits a computed register index to a file of n registers.
func clampIndex(idx int64, n int) int {
	switch {
	case idx < 0:
		return 0
	case idx >= int64(n):
		return n - 1
	}
	return int(idx)
}

// gatherFile compiles a relative read of temporaries, inputs or outputs.
// Indices are clamped to the file.
func (c *compiler) gatherFile(pc int, file func(*Registers) []wide.Vec4, base uint32, rel shader.Rel) (reader, error) {
	off, err := c.offset(pc, rel)
	if err != nil {
		return nil, err
	}
	if off.uniform != nil {
		return func(r *Registers) wide.Vec4 {
			f := file(r)
			return f[clampIndex(int64(base)+off.uniform(r), len(f))]
		}, nil
	}
	return func(r *Registers) wide.Vec4 {
		f := file(r)
		idx := off.lanes(r)
		var v wide.Vec4
		for lane := range idx {
			reg := &f[clampIndex(int64(base)+idx[lane], len(f))]
			for comp := range v {
				v[comp][lane] = reg[comp][lane]
			}
		}
		return v
	}, nil
}

// gatherConst compiles a relative read of float constants. DEF'd rows
// take precedence over the constant block; rows outside both read as
// zero.
func (c *compiler) gatherConst(pc int, base uint32, rel shader.Rel) (reader, error) {
	off, err := c.offset(pc, rel)
	if err != nil {
		return nil, err
	}
	defs := c.defRows
	row := func(r *Registers, idx int64) [4]float32 {
		if idx >= 0 && idx < int64(len(defs)) && defs[idx].ok {
			return defs[idx].v
		}
		if idx >= 0 && idx < int64(len(r.consts)) {
			return r.consts[idx]
		}
		return [4]float32{}
	}

	if off.uniform != nil {
		return func(r *Registers) wide.Vec4 {
			return wide.UniformRow(row(r, int64(base)+off.uniform(r)))
		}, nil
	}
	return func(r *Registers) wide.Vec4 {
		idx := off.lanes(r)
		var rows [4][4]float32
		for lane := range rows {
			rows[lane] = row(r, int64(base)+idx[lane])
		}
		return wide.FromRows(&rows)
	}, nil
}

// defRow is a float constant fixed by DEF.
type defRow struct {
	v  [4]float32
	ok bool
}

func buildDefRows(defs map[uint32][4]float32) []defRow {
	n := 0
	for i := range defs {
		n = max(n, int(i)+1)
	}
	rows := make([]defRow, n)
	for i, v := range defs {
		rows[i] = defRow{v: v, ok: true}
	}
	return rows
}
