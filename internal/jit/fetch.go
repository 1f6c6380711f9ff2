package jit

import (
	"math"

	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// reader produces the value of a source operand. Readers never modify
// Registers.
type reader func(*Registers) wide.Vec4

// constant returns a reader of a value known at compile time.
func constant(v wide.Vec4) reader {
	return func(*Registers) wide.Vec4 { return v }
}

// fetch compiles a source operand: raw register read, then swizzle, then
// modifier. Operands known at compile time fold to a constant.
func (c *compiler) fetch(pc int, s *shader.Src) (reader, error) {
	if v, ok := c.constantOperand(s); ok {
		return constant(modify(v.Swizzle(uint8(s.Swizzle)), s.Modifier)), nil
	}

	read, err := c.raw(pc, s)
	if err != nil {
		return nil, err
	}
	if s.Swizzle != shader.SwizzleXYZW {
		sw := uint8(s.Swizzle)
		unswizzled := read
		read = func(r *Registers) wide.Vec4 { return unswizzled(r).Swizzle(sw) }
	}
	if s.Modifier != shader.ModNone {
		mod := s.Modifier
		plain := read
		read = func(r *Registers) wide.Vec4 { return modify(plain(r), mod) }
	}
	return read, nil
}

func modify(v wide.Vec4, m shader.Modifier) wide.Vec4 {
	switch m {
	case shader.ModNegate:
		return v.Neg()
	case shader.ModAbs:
		return v.Abs()
	case shader.ModAbsNegate:
		return v.Abs().Neg()
	case shader.ModNot:
		return v.Not()
	}
	return v
}

// constantOperand returns the value of operands that do not depend on
// run-time state: immediates, DEF'd registers, sampler and label indices.
func (c *compiler) constantOperand(s *shader.Src) (wide.Vec4, bool) {
	if s.Rel.Relative() {
		return wide.Vec4{}, false
	}
	switch s.Type {
	case shader.RegVoid:
		return wide.Vec4{}, true
	case shader.RegImmediate:
		return wide.UniformRow(s.Value), true
	case shader.RegConst:
		if v, ok := c.an.Defs[s.Index]; ok {
			return wide.UniformRow(v), true
		}
	case shader.RegConstInt:
		if v, ok := c.an.DefInts[s.Index]; ok {
			return intRow(v), true
		}
	case shader.RegConstBool:
		if v, ok := c.an.DefBools[s.Index]; ok {
			return boolRow(v), true
		}
	case shader.RegSampler, shader.RegLabel:
		return wide.Splat(wide.SplatI32(int32(s.Index)).Float()), true
	}
	return wide.Vec4{}, false
}

func intRow(v [4]int32) wide.Vec4 {
	var r wide.Vec4
	for c := range r {
		r[c] = wide.SplatI32(v[c]).Float()
	}
	return r
}

func boolRow(b bool) wide.Vec4 {
	if b {
		return wide.Splat(wide.AllOnes.Float())
	}
	return wide.Vec4{}
}

// raw compiles the unswizzled, unmodified read of a register.
func (c *compiler) raw(pc int, s *shader.Src) (reader, error) {
	if v, ok := c.constantOperand(s); ok {
		return constant(v), nil
	}
	i := s.Index

	switch s.Type {
	case shader.RegTemp, shader.RegInput, shader.RegOutput:
		file := registerFile(s.Type)
		if s.Rel.Relative() {
			return c.gatherFile(pc, file, i, s.Rel)
		}
		return func(r *Registers) wide.Vec4 { return file(r)[i] }, nil

	case shader.RegConst:
		if s.Rel.Relative() {
			return c.gatherConst(pc, i, s.Rel)
		}
		return func(r *Registers) wide.Vec4 {
			if int(i) < len(r.consts) {
				return wide.UniformRow(r.consts[i])
			}
			return wide.Vec4{}
		}, nil

	case shader.RegConstInt:
		return func(r *Registers) wide.Vec4 { return intRow(r.constInt(i)) }, nil

	case shader.RegConstBool:
		return func(r *Registers) wide.Vec4 { return boolRow(r.constBool(i)) }, nil

	case shader.RegAddr:
		return func(r *Registers) wide.Vec4 { return r.a0 }, nil

	case shader.RegPredicate:
		return func(r *Registers) wide.Vec4 { return r.p0 }, nil

	case shader.RegLoop:
		return func(r *Registers) wide.Vec4 {
			return wide.Splat(wide.SplatI32(r.aL[r.loopIndex]).Float())
		}, nil

	case shader.RegDepthOut:
		return func(r *Registers) wide.Vec4 { return wide.Vec4{r.batch.Depth} }, nil

	case shader.RegMisc:
		return c.misc(pc, i)
	}
	return nil, c.prog.Errorf(pc, shader.ErrOperand, "no read path for %s", s.Type)
}

func (c *compiler) misc(pc int, i uint32) (reader, error) {
	switch i {
	case shader.MiscPosition:
		return func(r *Registers) wide.Vec4 { return r.batch.Position }, nil
	case shader.MiscFace:
		return func(r *Registers) wide.Vec4 { return wide.Vec4{r.batch.Face} }, nil
	case shader.MiscInstanceID:
		return func(r *Registers) wide.Vec4 { return wide.Vec4{r.batch.InstanceID.Float()} }, nil
	case shader.MiscVertexID:
		return func(r *Registers) wide.Vec4 { return wide.Vec4{r.batch.VertexID.Float()} }, nil
	}
	return nil, c.prog.Errorf(pc, shader.ErrOperand, "misc register %d", i)
}

// registerFile returns the accessor of a relatively addressable file.
func registerFile(t shader.RegisterType) func(*Registers) []wide.Vec4 {
	switch t {
	case shader.RegInput:
		return func(r *Registers) []wide.Vec4 { return r.inputs }
	case shader.RegOutput:
		return func(r *Registers) []wide.Vec4 { return r.outputs }
	default:
		return func(r *Registers) []wide.Vec4 { return r.temps }
	}
}

func (r *Registers) constInt(i uint32) [4]int32 {
	if k := r.batch.Constants; k != nil && int(i) < len(k.Int) {
		return k.Int[i]
	}
	return [4]int32{}
}

func (r *Registers) constBool(i uint32) bool {
	if k := r.batch.Constants; k != nil && int(i) < len(k.Bool) {
		return k.Bool[i]
	}
	return false
}

// laneMask turns component x of a value into a lane mask: a lane is set
// when its bit pattern is non-zero.
func laneMask(v wide.Vec4) wide.U32x4 {
	return v[wide.X].Bits().NonZero()
}

// intBits reinterprets a float lane as the integer it carries.
func intBits(f float32) int32 {
	return int32(math.Float32bits(f))
}
