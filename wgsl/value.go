package wgsl

import (
	"fmt"
	"math"

	"github.com/gogpu/naga/ir"
	"github.com/gogpu/shaderjit/shader"
)

// value is the result of an expression. Scalars and vectors are a source
// operand whose swizzle repeats the last component past size. Composites
// are either a list of parts or storage holding them.
type value struct {
	src  shader.Src
	kind ir.ScalarKind
	size int

	typ   ir.TypeInner // composites only
	parts []value
	at    *place

	// global names a texture or sampler handle.
	global   ir.GlobalVariableHandle
	resource bool
}

const allOnes = 0xFFFFFFFF

func (v value) composite() bool { return v.size == 0 && !v.resource }

func (v value) imm() bool { return v.size > 0 && v.src.Type == shader.RegImmediate }

func bitsOf(f float32) uint32  { return math.Float32bits(f) }
func fromBits(b uint32) float32 { return math.Float32frombits(b) }

// immediate builds a constant value; c holds bit patterns for integer and
// boolean kinds.
func immediate(kind ir.ScalarKind, size int, c [4]float32) value {
	for i := size; i < 4; i++ {
		c[i] = c[size-1]
	}
	return value{src: shader.Imm(c[0], c[1], c[2], c[3]), kind: kind, size: size}
}

func splat(kind ir.ScalarKind, size int, x float32) value {
	return immediate(kind, size, [4]float32{x, x, x, x})
}

func floatImm(x float32) value { return splat(ir.ScalarFloat, 1, x) }

func boolImm(b bool) value {
	if b {
		return splat(ir.ScalarBool, 1, fromBits(allOnes))
	}
	return splat(ir.ScalarBool, 1, 0)
}

func intImm(kind ir.ScalarKind, x uint32) value { return splat(kind, 1, fromBits(x)) }

// swizzle applies sw to s, folding it into the literal of an immediate.
func swizzle(s shader.Src, sw shader.Swizzle) shader.Src {
	if s.Type != shader.RegImmediate {
		return s.Swz(sw)
	}
	v := s.Value
	for j := range 4 {
		s.Value[j] = v[sw.Component(j)]
	}
	return s
}

func (v value) component(k int) value {
	v.src = swizzle(v.src, shader.MakeSwizzle(k, k, k, k))
	v.size = 1
	return v
}

// regValue reads a freshly written temporary.
func regValue(t uint32, kind ir.ScalarKind, size int) value {
	return value{src: shader.Reg(shader.RegTemp, t).Swz(pad(size)), kind: kind, size: size}
}

// convertBits converts one literal component between scalar kinds.
func convertBits(x float32, from, to ir.ScalarKind) float32 {
	var f float64
	b := bitsOf(x)
	switch from {
	case ir.ScalarFloat:
		f = float64(x)
	case ir.ScalarSint:
		f = float64(int32(b))
	case ir.ScalarUint:
		f = float64(b)
	case ir.ScalarBool:
		if b != 0 {
			f = 1
		}
	}
	switch to {
	case ir.ScalarFloat:
		return float32(f)
	case ir.ScalarSint:
		return fromBits(uint32(int32(max(min(f, math.MaxInt32), math.MinInt32))))
	case ir.ScalarUint:
		return fromBits(uint32(max(min(f, math.MaxUint32), 0)))
	case ir.ScalarBool:
		if f != 0 {
			return fromBits(allOnes)
		}
	}
	return 0
}

// conversions maps a (from, to) kind pair to its instruction. Pairs
// missing from the table share a bit pattern.
var conversions = map[[2]ir.ScalarKind]shader.Opcode{
	{ir.ScalarFloat, ir.ScalarSint}: shader.OpF2I,
	{ir.ScalarFloat, ir.ScalarUint}: shader.OpF2U,
	{ir.ScalarFloat, ir.ScalarBool}: shader.OpF2B,
	{ir.ScalarSint, ir.ScalarFloat}: shader.OpI2F,
	{ir.ScalarSint, ir.ScalarBool}:  shader.OpI2B,
	{ir.ScalarUint, ir.ScalarFloat}: shader.OpU2F,
	{ir.ScalarUint, ir.ScalarBool}:  shader.OpI2B,
	{ir.ScalarBool, ir.ScalarFloat}: shader.OpB2F,
	{ir.ScalarBool, ir.ScalarSint}:  shader.OpB2I,
	{ir.ScalarBool, ir.ScalarUint}:  shader.OpB2I,
}

// convert converts v to kind, as WGSL value constructors do.
func (f *function) convert(v value, kind ir.ScalarKind) value {
	if v.kind == kind || v.size == 0 {
		return v
	}
	if v.imm() {
		var c [4]float32
		for i := range c {
			c[i] = convertBits(v.src.Value[i], v.kind, kind)
		}
		return immediate(kind, v.size, c)
	}
	op, ok := conversions[[2]ir.ScalarKind{v.kind, kind}]
	if !ok {
		v.kind = kind
		return v
	}
	return f.op(op, kind, v.size, v)
}

// unify brings the operands of a binary operator to one kind. Literals
// take the kind of the other operand, since integer literals in float
// context are not concretized by the front end.
func (f *function) unify(a, b value) (value, value) {
	if a.kind == b.kind {
		return a, b
	}
	switch {
	case a.imm() && !b.imm():
		a = f.convert(a, b.kind)
	case b.imm() && !a.imm():
		b = f.convert(b, a.kind)
	case b.kind == ir.ScalarFloat:
		a = f.convert(a, b.kind)
	default:
		b = f.convert(b, a.kind)
	}
	return a, b
}

// op emits a component-wise instruction into a new temporary.
func (f *function) op(op shader.Opcode, kind ir.ScalarKind, size int, srcs ...value) value {
	t := f.l.temp()
	in := shader.Instruction{Op: op, Dst: shader.Out(shader.RegTemp, t).Masked(mask(size))}
	for i, s := range srcs {
		in.Src[i] = s.src
	}
	f.l.emit(in)
	return regValue(t, kind, size)
}

// mov copies v into a new temporary.
func (f *function) mov(v value) value {
	return f.op(shader.OpMov, v.kind, v.size, v)
}

// parts returns the parts of a composite value.
func (f *function) parts(v value) ([]value, error) {
	if v.parts != nil {
		return v.parts, nil
	}
	if v.at == nil {
		return nil, fmt.Errorf("%w: composite operand", ErrUnsupported)
	}
	out := make([]value, f.l.count(v.typ))
	for i := range out {
		p, err := f.l.element(*v.at, i)
		if err != nil {
			return nil, err
		}
		if out[i], err = f.load(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// load reads a place.
func (f *function) load(p place) (value, error) {
	if p.lane != nil {
		base := p
		base.lane, base.typ = nil, p.vector
		vec, err := f.load(base)
		if err != nil {
			return value{}, err
		}
		return f.op(shader.OpExtract, vec.kind, 1, vec, *p.lane), nil
	}
	kind, size, ok := shape(p.typ)
	if !ok {
		return value{typ: p.typ, at: &p}, nil
	}
	src := shader.Src{Type: p.file, Index: p.reg, Rel: p.rel, Swizzle: window(p.comp, size)}
	return value{src: src, kind: kind, size: size}, nil
}

// store writes v to a place.
func (f *function) store(p place, v value) error {
	if p.file != shader.RegTemp {
		return fmt.Errorf("%w: write to %s storage", ErrUnsupported, p.file)
	}
	kind, size, ok := shape(p.typ)
	if !ok {
		parts, err := f.parts(v)
		if err != nil {
			return err
		}
		for i, part := range parts {
			sub, err := f.l.element(p, i)
			if err != nil {
				return err
			}
			if err := f.store(sub, part); err != nil {
				return err
			}
		}
		return nil
	}
	if v.size == 0 {
		return fmt.Errorf("%w: storing a composite into a vector", ErrUnsupported)
	}
	v = f.convert(v, kind)

	dst := shader.Dst{Type: p.file, Index: p.reg, Rel: p.rel}
	if p.lane != nil {
		base := p
		base.lane, base.typ = nil, p.vector
		vec, err := f.load(base)
		if err != nil {
			return err
		}
		dst.Mask = mask(vec.size)
		in := shader.Instruction{Op: shader.OpInsert, Dst: dst}
		in.Src[0], in.Src[1], in.Src[2] = vec.src, v.src, p.lane.src
		f.l.emit(in)
		return nil
	}
	dst.Mask = mask(size) << p.comp
	f.l.emit(shader.Instruction{Op: shader.OpMov, Dst: dst, Src: [5]shader.Src{swizzle(v.src, shift(p.comp, size))}})
	return nil
}

// snapshot copies v out of variable storage, so later stores to the
// variable do not change it.
func (f *function) snapshot(v value) (value, error) {
	if v.composite() {
		switch {
		case v.at != nil && v.at.file == shader.RegTemp:
			p, err := f.l.variable(v.typ)
			if err != nil {
				return value{}, err
			}
			if err := f.store(p, v); err != nil {
				return value{}, err
			}
			return f.load(p)
		case v.parts != nil:
			parts := make([]value, len(v.parts))
			for i, part := range v.parts {
				var err error
				if parts[i], err = f.snapshot(part); err != nil {
					return value{}, err
				}
			}
			v.parts = parts
		}
		return v, nil
	}
	if v.src.Type == shader.RegTemp && (f.l.vars[v.src.Index] || v.src.Rel.Relative()) {
		return f.mov(v), nil
	}
	return v, nil
}

// materialize stores a composite value so that it can be indexed
// dynamically.
func (f *function) materialize(v value) (place, error) {
	if v.at != nil {
		return *v.at, nil
	}
	p, err := f.l.variable(v.typ)
	if err != nil {
		return place{}, err
	}
	return p, f.store(p, v)
}
