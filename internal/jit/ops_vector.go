package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// vectorOp compiles instructions whose components depend on each other:
// dot products, geometric functions and matrix multiplies. It returns a
// nil compute for opcodes it does not handle.
func (c *compiler) vectorOp(pc int, in *shader.Instruction, s []reader) (compute, error) {
	op := in.Op
	if n, ok := dotWidth[op]; ok {
		a, b := s[0], s[1]
		return replicate(func(r *Registers) wide.F32x4 { return wide.Dot(n, a(r), b(r)) }), nil
	}
	if n, ok := matrixShape[op]; ok {
		return c.matrix(pc, in, s[0], n[0], n[1])
	}

	switch op {
	case shader.OpDp2Add:
		a, b, add := s[0], s[1], s[2]
		return replicate(func(r *Registers) wide.F32x4 {
			return wide.Dot(2, a(r), b(r)).Add(add(r)[wide.X])
		}), nil

	case shader.OpDst:
		a, b := s[0], s[1]
		return func(r *Registers) wide.Vec4 {
			x, y := a(r), b(r)
			return wide.Vec4{one, x[wide.Y].Mul(y[wide.Y]), x[wide.Z], y[wide.W]}
		}, nil

	case shader.OpLit:
		return lit(s[0]), nil

	case shader.OpCrs:
		a, b := s[0], s[1]
		return func(r *Registers) wide.Vec4 { return wide.Cross(a(r), b(r)) }, nil

	case shader.OpNrm2, shader.OpNrm3, shader.OpNrm4:
		n, a := int(op-shader.OpNrm2)+2, s[0]
		return func(r *Registers) wide.Vec4 { return wide.Normalize(n, a(r)) }, nil

	case shader.OpLen2, shader.OpLen3, shader.OpLen4:
		n, a := int(op-shader.OpLen2)+2, s[0]
		return replicate(func(r *Registers) wide.F32x4 { return wide.Length(n, a(r)) }), nil

	case shader.OpDist1, shader.OpDist2, shader.OpDist3, shader.OpDist4:
		n, a, b := int(op-shader.OpDist1)+1, s[0], s[1]
		return replicate(func(r *Registers) wide.F32x4 { return wide.Distance(n, a(r), b(r)) }), nil

	case shader.OpReflect1, shader.OpReflect2, shader.OpReflect3, shader.OpReflect4:
		n, i, nrm := int(op-shader.OpReflect1)+1, s[0], s[1]
		return func(r *Registers) wide.Vec4 { return wide.Reflect(n, i(r), nrm(r)) }, nil

	case shader.OpRefract1, shader.OpRefract2, shader.OpRefract3, shader.OpRefract4:
		n, i, nrm, eta := int(op-shader.OpRefract1)+1, s[0], s[1], s[2]
		return func(r *Registers) wide.Vec4 {
			return wide.Refract(n, i(r), nrm(r), eta(r)[wide.X])
		}, nil

	case shader.OpForward1, shader.OpForward2, shader.OpForward3, shader.OpForward4:
		n, nrm, i, ref := int(op-shader.OpForward1)+1, s[0], s[1], s[2]
		return func(r *Registers) wide.Vec4 {
			return wide.FaceForward(n, nrm(r), i(r), ref(r))
		}, nil

	case shader.OpDet2, shader.OpDet3, shader.OpDet4:
		rows := s
		return replicate(func(r *Registers) wide.F32x4 {
			var m [4]wide.Vec4
			for i, row := range rows {
				m[i] = row(r)
			}
			return wide.Determinant(len(rows), &m)
		}), nil

	case shader.OpSinCos:
		a := s[0]
		return func(r *Registers) wide.Vec4 {
			x := a(r)[wide.X]
			return wide.Vec4{wide.Cos(x), wide.Sin(x)}
		}, nil

	case shader.OpExtract:
		a, idx := s[0], s[1]
		return replicate(func(r *Registers) wide.F32x4 {
			v, i := a(r), idx(r)[wide.X].Int()
			var out wide.F32x4
			for lane := range out {
				out[lane] = v[i[lane]&3][lane]
			}
			return out
		}), nil

	case shader.OpInsert:
		a, val, idx := s[0], s[1], s[2]
		return func(r *Registers) wide.Vec4 {
			v, x, i := a(r), val(r)[wide.X], idx(r)[wide.X].Int()
			for lane := range x {
				v[i[lane]&3][lane] = x[lane]
			}
			return v
		}, nil

	case shader.OpAll, shader.OpAny:
		a, all := s[0], op == shader.OpAll
		return replicate(func(r *Registers) wide.F32x4 {
			v := a(r)
			m := v[wide.X].Bits().NonZero()
			for comp := 1; comp < 4; comp++ {
				if all {
					m = m.And(v[comp].Bits().NonZero())
				} else {
					m = m.Or(v[comp].Bits().NonZero())
				}
			}
			return m.Float()
		}), nil
	}
	return nil, nil
}

var dotWidth = map[shader.Opcode]int{
	shader.OpDp1: 1,
	shader.OpDp2: 2,
	shader.OpDp3: 3,
	shader.OpDp4: 4,
}

// matrixShape maps the matrix opcodes to {columns, rows}: the width of each
// dot product and the number of consecutive src1 registers.
var matrixShape = map[shader.Opcode][2]int{
	shader.OpM3x2: {3, 2},
	shader.OpM3x3: {3, 3},
	shader.OpM3x4: {3, 4},
	shader.OpM4x3: {4, 3},
	shader.OpM4x4: {4, 4},
}

// matrix compiles vector-matrix products. Row k of the matrix is register
// src1+k, addressed the same way as src1.
func (c *compiler) matrix(pc int, in *shader.Instruction, v reader, cols, rows int) (compute, error) {
	mat := make([]reader, rows)
	for k := range mat {
		src := in.Src[1]
		src.Index += uint32(k)
		row, err := c.fetch(pc, &src)
		if err != nil {
			return nil, err
		}
		mat[k] = row
	}
	return func(r *Registers) wide.Vec4 {
		x := v(r)
		var out wide.Vec4
		for k, row := range mat {
			out[k] = wide.Dot(cols, x, row(r))
		}
		return out
	}, nil
}

var litPower = wide.SplatF32(127.9961)

// lit computes the lighting coefficients (1, diffuse, specular, 1) from
// (n.l, n.h, -, power).
func lit(a reader) compute {
	return func(r *Registers) wide.Vec4 {
		v := a(r)
		x, y := v[wide.X], v[wide.Y]
		p := v[wide.W].Clamp(litPower.Neg(), litPower)
		specular := wide.Select(x.CmpGT(zero).And(y.CmpGT(zero)), wide.Pow(y, p), zero)
		return wide.Vec4{one, x.Max(zero), specular, one}
	}
}
