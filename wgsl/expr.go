package wgsl

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/shaderjit/shader"
)

// value returns the value of expression h, lowering it on first use.
// Loads and pointers are read afresh at every use; everything else is
// cached.
func (f *function) value(h ir.ExpressionHandle) (value, error) {
	if v, ok := f.values[h]; ok {
		return v, nil
	}
	if int(h) >= len(f.fn.Expressions) {
		return value{}, fmt.Errorf("%w: expression [%d] out of range", ErrUnsupported, h)
	}
	switch k := f.fn.Expressions[h].Kind.(type) {
	case ir.ExprLoad:
		p, err := f.pointer(k.Pointer)
		if err != nil {
			return value{}, err
		}
		return f.load(p)
	case ir.ExprCallResult:
		return value{}, fmt.Errorf("%w: result of %s used before the call", ErrUnsupported, f.l.mod.Functions[k.Function].Name)
	}
	if f.isPointer(h) {
		p, err := f.pointer(h)
		if err != nil {
			return value{}, err
		}
		return f.load(p)
	}
	v, err := f.evaluate(h)
	if err != nil {
		return value{}, err
	}
	f.values[h] = v
	return v, nil
}

// isPointer reports whether h denotes storage rather than a value.
func (f *function) isPointer(h ir.ExpressionHandle) bool {
	switch k := f.fn.Expressions[h].Kind.(type) {
	case ir.ExprLocalVariable:
		return true
	case ir.ExprGlobalVariable:
		return f.l.mod.GlobalVariables[k.Variable].Space != ir.SpaceHandle
	case ir.ExprAccess:
		return f.isPointer(k.Base)
	case ir.ExprAccessIndex:
		return f.isPointer(k.Base)
	}
	return false
}

// pointer returns the place a pointer expression designates.
func (f *function) pointer(h ir.ExpressionHandle) (place, error) {
	switch k := f.fn.Expressions[h].Kind.(type) {
	case ir.ExprLocalVariable:
		if int(k.Variable) >= len(f.locals) {
			return place{}, fmt.Errorf("%w: local [%d] out of range", ErrUnsupported, k.Variable)
		}
		return f.locals[k.Variable], nil
	case ir.ExprGlobalVariable:
		p, ok := f.l.globals[k.Variable]
		if !ok {
			g := f.l.mod.GlobalVariables[k.Variable]
			return place{}, fmt.Errorf("%w: global %s in address space %d", ErrUnsupported, g.Name, g.Space)
		}
		return p, nil
	case ir.ExprAccessIndex:
		base, err := f.pointer(k.Base)
		if err != nil {
			return place{}, err
		}
		return f.l.element(base, int(k.Index))
	case ir.ExprAccess:
		base, err := f.pointer(k.Base)
		if err != nil {
			return place{}, err
		}
		idx, err := f.value(k.Index)
		if err != nil {
			return place{}, err
		}
		return f.index(base, idx)
	}
	return place{}, fmt.Errorf("%w: expression [%d] is not a pointer", ErrUnsupported, h)
}

// index returns part idx of p. A non-constant index into an array or
// matrix becomes relative addressing; into a vector, a lane place.
func (f *function) index(p place, idx value) (place, error) {
	if idx.size != 1 {
		return place{}, fmt.Errorf("%w: index of %d components", ErrUnsupported, idx.size)
	}
	idx = f.convert(idx, ir.ScalarSint)
	if idx.imm() {
		return f.l.element(p, int(int32(bitsOf(idx.src.Value[0]))))
	}
	if p.lane != nil {
		return place{}, fmt.Errorf("%w: access into a vector component", ErrUnsupported)
	}
	switch t := p.typ.(type) {
	case ir.VectorType:
		lane := idx
		if lane.src.Type == shader.RegTemp && f.l.vars[lane.src.Index] {
			lane = f.mov(lane)
		}
		sub := p
		sub.vector, sub.typ, sub.lane = t, t.Scalar, &lane
		return sub, nil
	case ir.MatrixType, ir.ArrayType:
		if p.rel.Relative() {
			return place{}, fmt.Errorf("%w: nested dynamic indexing", ErrUnsupported)
		}
		elem := f.l.partType(p.typ, 0)
		n, err := f.l.span(elem, p.uniform)
		if err != nil {
			return place{}, err
		}
		s := idx.src
		if s.Type != shader.RegTemp || s.Modifier != shader.ModNone || s.Rel.Relative() {
			s = f.mov(idx).src
		}
		sub := p
		sub.typ = elem
		sub.rel = shader.Rel{
			Type:      shader.RegTemp,
			Index:     s.Index,
			Component: uint8(s.Swizzle.Component(0)),
			Scale:     int32(n),
		}
		return sub, nil
	}
	return place{}, fmt.Errorf("%w: dynamic index into %T", ErrUnsupported, p.typ)
}

// evaluate lowers a value expression.
func (f *function) evaluate(h ir.ExpressionHandle) (value, error) {
	switch k := f.fn.Expressions[h].Kind.(type) {
	case ir.Literal:
		return literal(k.Value)
	case ir.ExprConstant:
		return f.constant(k.Constant)
	case ir.ExprZeroValue:
		return f.zero(f.l.inner(k.Type))
	case ir.ExprCompose:
		comps := make([]value, len(k.Components))
		for i, c := range k.Components {
			v, err := f.value(c)
			if err != nil {
				return value{}, err
			}
			comps[i] = v
		}
		return f.compose(f.l.inner(k.Type), comps)
	case ir.ExprAccessIndex:
		base, err := f.value(k.Base)
		if err != nil {
			return value{}, err
		}
		return f.part(base, int(k.Index))
	case ir.ExprAccess:
		return f.access(k)
	case ir.ExprSplat:
		v, err := f.value(k.Value)
		if err != nil {
			return value{}, err
		}
		if v.size != 1 {
			return value{}, fmt.Errorf("%w: splat of %d components", ErrUnsupported, v.size)
		}
		v.size = int(k.Size)
		return v, nil
	case ir.ExprSwizzle:
		v, err := f.value(k.Vector)
		if err != nil {
			return value{}, err
		}
		if v.size == 0 {
			return value{}, fmt.Errorf("%w: swizzle of a composite", ErrUnsupported)
		}
		n := int(k.Size)
		var c [4]int
		for j := range c {
			c[j] = int(k.Pattern[min(j, n-1)])
		}
		v.src = swizzle(v.src, shader.MakeSwizzle(c[0], c[1], c[2], c[3]))
		v.size = n
		return v, nil
	case ir.ExprFunctionArgument:
		if f.sub != nil {
			if int(k.Index) >= len(f.sub.args) {
				return value{}, fmt.Errorf("%w: argument %d out of range", ErrUnsupported, k.Index)
			}
			return f.load(f.sub.args[k.Index])
		}
		if int(k.Index) >= len(f.args) {
			return value{}, fmt.Errorf("%w: argument %d out of range", ErrUnsupported, k.Index)
		}
		return f.args[k.Index], nil
	case ir.ExprGlobalVariable:
		return value{global: k.Variable, resource: true}, nil
	case ir.ExprUnary:
		v, err := f.value(k.Expr)
		if err != nil {
			return value{}, err
		}
		return f.unary(k.Op, v)
	case ir.ExprBinary:
		a, err := f.value(k.Left)
		if err != nil {
			return value{}, err
		}
		b, err := f.value(k.Right)
		if err != nil {
			return value{}, err
		}
		return f.binary(k.Op, a, b)
	case ir.ExprSelect:
		return f.selection(k)
	case ir.ExprDerivative:
		v, err := f.value(k.Expr)
		if err != nil {
			return value{}, err
		}
		op := map[ir.DerivativeAxis]shader.Opcode{
			ir.DerivativeX:     shader.OpDfdx,
			ir.DerivativeY:     shader.OpDfdy,
			ir.DerivativeWidth: shader.OpFwidth,
		}[k.Axis]
		if v.size == 0 || op == 0 {
			return value{}, fmt.Errorf("%w: derivative", ErrUnsupported)
		}
		v = f.convert(v, ir.ScalarFloat)
		return f.op(op, ir.ScalarFloat, v.size, v), nil
	case ir.ExprRelational:
		return f.relational(k)
	case ir.ExprMath:
		return f.math(k)
	case ir.ExprAs:
		v, err := f.value(k.Expr)
		if err != nil {
			return value{}, err
		}
		if v.size == 0 {
			return value{}, fmt.Errorf("%w: conversion of a composite", ErrUnsupported)
		}
		if k.Convert == nil {
			v.kind = k.Kind
			return v, nil
		}
		return f.convert(v, k.Kind), nil
	case ir.ExprImageSample:
		return f.sample(k)
	case ir.ExprImageLoad:
		return f.fetch(k)
	case ir.ExprImageQuery:
		return f.query(k)
	default:
		return value{}, fmt.Errorf("%w: expression %T", ErrUnsupported, k)
	}
}

func literal(lv ir.LiteralValue) (value, error) {
	switch x := lv.(type) {
	case ir.LiteralF32:
		return floatImm(float32(x)), nil
	case ir.LiteralF64:
		return floatImm(float32(x)), nil
	case ir.LiteralAbstractFloat:
		return floatImm(float32(x)), nil
	case ir.LiteralI32:
		return intImm(ir.ScalarSint, uint32(x)), nil
	case ir.LiteralI64:
		return intImm(ir.ScalarSint, uint32(x)), nil
	case ir.LiteralAbstractInt:
		return intImm(ir.ScalarSint, uint32(x)), nil
	case ir.LiteralU32:
		return intImm(ir.ScalarUint, uint32(x)), nil
	case ir.LiteralU64:
		return intImm(ir.ScalarUint, uint32(x)), nil
	case ir.LiteralBool:
		return boolImm(bool(x)), nil
	}
	return value{}, fmt.Errorf("%w: literal %T", ErrUnsupported, lv)
}

// constant returns the value of a module-scope constant.
func (f *function) constant(h ir.ConstantHandle) (value, error) {
	if int(h) >= len(f.l.mod.Constants) {
		return value{}, fmt.Errorf("%w: constant [%d] out of range", ErrUnsupported, h)
	}
	c := f.l.mod.Constants[h]
	t := f.l.inner(c.Type)
	switch cv := c.Value.(type) {
	case ir.ScalarValue:
		var v value
		switch cv.Kind {
		case ir.ScalarFloat:
			v = floatImm(fromBits(uint32(cv.Bits)))
		case ir.ScalarBool:
			v = boolImm(cv.Bits != 0)
		default:
			v = intImm(cv.Kind, uint32(cv.Bits))
		}
		if kind, size, ok := shape(t); ok {
			v = f.convert(v, kind)
			v.size = size
		}
		return v, nil
	case ir.CompositeValue:
		parts := make([]value, len(cv.Components))
		for i, ch := range cv.Components {
			v, err := f.constant(ch)
			if err != nil {
				return value{}, err
			}
			parts[i] = v
		}
		return f.compose(t, parts)
	}
	return value{}, fmt.Errorf("%w: constant %s", ErrUnsupported, c.Name)
}

// zero returns the zero value of type t.
func (f *function) zero(t ir.TypeInner) (value, error) {
	if kind, size, ok := shape(t); ok {
		return splat(kind, size, 0), nil
	}
	n := f.l.count(t)
	if n == 0 {
		return value{}, fmt.Errorf("%w: zero value of %T", ErrUnsupported, t)
	}
	parts := make([]value, n)
	for i := range parts {
		v, err := f.zero(f.l.partType(t, i))
		if err != nil {
			return value{}, err
		}
		parts[i] = v
	}
	return value{typ: t, parts: parts}, nil
}

// compose builds a value of type t from its components.
func (f *function) compose(t ir.TypeInner, comps []value) (value, error) {
	switch t := t.(type) {
	case ir.ScalarType:
		if len(comps) != 1 || comps[0].size == 0 {
			return value{}, fmt.Errorf("%w: scalar constructor", ErrUnsupported)
		}
		return f.convert(comps[0].component(0), t.Kind), nil
	case ir.VectorType:
		return f.composeVector(t.Scalar.Kind, int(t.Size), comps)
	case ir.MatrixType:
		col := ir.VectorType{Size: t.Rows, Scalar: t.Scalar}
		if len(comps) == int(t.Columns)*int(t.Rows) {
			cols := make([]value, t.Columns)
			for j := range cols {
				v, err := f.composeVector(t.Scalar.Kind, int(t.Rows), comps[j*int(t.Rows):(j+1)*int(t.Rows)])
				if err != nil {
					return value{}, err
				}
				cols[j] = v
			}
			return value{typ: t, parts: cols}, nil
		}
		if len(comps) != int(t.Columns) {
			return value{}, fmt.Errorf("%w: mat%dx%d from %d components", ErrUnsupported, t.Columns, t.Rows, len(comps))
		}
		cols := make([]value, len(comps))
		for j, c := range comps {
			v, err := f.compose(col, []value{c})
			if err != nil {
				return value{}, err
			}
			cols[j] = v
		}
		return value{typ: t, parts: cols}, nil
	case ir.ArrayType, ir.StructType:
		if len(comps) != f.l.count(t) {
			return value{}, fmt.Errorf("%w: %T from %d components", ErrUnsupported, t, len(comps))
		}
		parts := make([]value, len(comps))
		for i, c := range comps {
			if kind, _, ok := shape(f.l.partType(t, i)); ok {
				c = f.convert(c, kind)
			}
			parts[i] = c
		}
		return value{typ: t, parts: parts}, nil
	}
	return value{}, fmt.Errorf("%w: constructor of %T", ErrUnsupported, t)
}

// composeVector builds an n-component vector, folding literals and
// otherwise gathering the components into a new temporary.
func (f *function) composeVector(kind ir.ScalarKind, n int, comps []value) (value, error) {
	total := 0
	for i, c := range comps {
		if c.size == 0 {
			return value{}, fmt.Errorf("%w: composite vector component", ErrUnsupported)
		}
		comps[i] = f.convert(c, kind)
		total += c.size
	}
	switch {
	case total == 1:
		v := comps[0]
		v.size = n
		return v, nil
	case len(comps) == 1 && total == n:
		return comps[0], nil
	case total != n:
		return value{}, fmt.Errorf("%w: vec%d from %d components", ErrUnsupported, n, total)
	}

	folded := true
	for _, c := range comps {
		folded = folded && c.imm()
	}
	if folded {
		var lit [4]float32
		pos := 0
		for _, c := range comps {
			for k := range c.size {
				lit[pos] = c.src.Value[k]
				pos++
			}
		}
		return immediate(kind, n, lit), nil
	}

	t := f.l.temp()
	pos := 0
	for _, c := range comps {
		f.l.emit(shader.Instruction{
			Op:  shader.OpMov,
			Dst: shader.Out(shader.RegTemp, t).Masked(mask(c.size) << pos),
			Src: [5]shader.Src{swizzle(c.src, shift(pos, c.size))},
		})
		pos += c.size
	}
	return regValue(t, kind, n), nil
}

// part returns component or member i of a value.
func (f *function) part(v value, i int) (value, error) {
	switch {
	case v.resource:
		return value{}, fmt.Errorf("%w: access into a texture or sampler", ErrUnsupported)
	case !v.composite():
		if i >= v.size {
			return value{}, fmt.Errorf("%w: component %d of a %d-component value", ErrUnsupported, i, v.size)
		}
		return v.component(i), nil
	case v.at != nil:
		p, err := f.l.element(*v.at, i)
		if err != nil {
			return value{}, err
		}
		return f.load(p)
	}
	if i >= len(v.parts) {
		return value{}, fmt.Errorf("%w: part %d of %d", ErrUnsupported, i, len(v.parts))
	}
	return v.parts[i], nil
}

// access indexes a value with a computed index.
func (f *function) access(k ir.ExprAccess) (value, error) {
	base, err := f.value(k.Base)
	if err != nil {
		return value{}, err
	}
	idx, err := f.value(k.Index)
	if err != nil {
		return value{}, err
	}
	idx = f.convert(idx, ir.ScalarSint)
	if idx.imm() {
		return f.part(base, int(int32(bitsOf(idx.src.Value[0]))))
	}
	if base.resource {
		return value{}, fmt.Errorf("%w: access into a texture or sampler", ErrUnsupported)
	}
	if !base.composite() {
		return f.op(shader.OpExtract, base.kind, 1, base, idx), nil
	}
	p, err := f.materialize(base)
	if err != nil {
		return value{}, err
	}
	if p, err = f.index(p, idx); err != nil {
		return value{}, err
	}
	return f.load(p)
}

func (f *function) unary(op ir.UnaryOperator, v value) (value, error) {
	if v.composite() {
		if op != ir.UnaryNegate {
			return value{}, fmt.Errorf("%w: operator on a composite", ErrUnsupported)
		}
		return f.perPart(v, func(p value) (value, error) { return f.negate(p), nil })
	}
	switch op {
	case ir.UnaryNegate:
		return f.negate(v), nil
	case ir.UnaryLogicalNot, ir.UnaryBitwiseNot:
		if v.imm() {
			var c [4]float32
			for i, x := range v.src.Value {
				c[i] = fromBits(^bitsOf(x))
			}
			return immediate(v.kind, v.size, c), nil
		}
		return f.op(shader.OpNot, v.kind, v.size, v), nil
	}
	return value{}, fmt.Errorf("%w: unary operator %d", ErrUnsupported, op)
}

// negate folds literals and uses the negate source modifier on floats.
func (f *function) negate(v value) value {
	if v.imm() {
		var c [4]float32
		for i, x := range v.src.Value {
			if v.kind == ir.ScalarFloat {
				c[i] = -x
			} else {
				c[i] = fromBits(uint32(-int32(bitsOf(x))))
			}
		}
		return immediate(v.kind, v.size, c)
	}
	if v.kind != ir.ScalarFloat {
		return f.op(shader.OpINeg, v.kind, v.size, v)
	}
	switch v.src.Modifier {
	case shader.ModNone:
		v.src.Modifier = shader.ModNegate
	case shader.ModNegate:
		v.src.Modifier = shader.ModNone
	case shader.ModAbs:
		v.src.Modifier = shader.ModAbsNegate
	case shader.ModAbsNegate:
		v.src.Modifier = shader.ModAbs
	default:
		return f.op(shader.OpNeg, v.kind, v.size, v)
	}
	return v
}

// perPart applies fn to each part of a composite.
func (f *function) perPart(v value, fn func(value) (value, error)) (value, error) {
	parts, err := f.parts(v)
	if err != nil {
		return value{}, err
	}
	out := make([]value, len(parts))
	for i, p := range parts {
		if out[i], err = fn(p); err != nil {
			return value{}, err
		}
	}
	return value{typ: v.typ, parts: out}, nil
}

var compareFuncs = map[ir.BinaryOperator]gputypes.CompareFunction{
	ir.BinaryEqual:        gputypes.CompareFunctionEqual,
	ir.BinaryNotEqual:     gputypes.CompareFunctionNotEqual,
	ir.BinaryLess:         gputypes.CompareFunctionLess,
	ir.BinaryLessEqual:    gputypes.CompareFunctionLessEqual,
	ir.BinaryGreater:      gputypes.CompareFunctionGreater,
	ir.BinaryGreaterEqual: gputypes.CompareFunctionGreaterEqual,
}

// arith lists the instruction of an arithmetic operator for float,
// signed and unsigned operands.
var arith = map[ir.BinaryOperator][3]shader.Opcode{
	ir.BinaryAdd:      {shader.OpAdd, shader.OpIAdd, shader.OpIAdd},
	ir.BinarySubtract: {shader.OpSub, shader.OpISub, shader.OpISub},
	ir.BinaryMultiply: {shader.OpMul, shader.OpIMul, shader.OpIMul},
	ir.BinaryDivide:   {shader.OpDiv, shader.OpIDiv, shader.OpUDiv},
	ir.BinaryModulo:   {0, shader.OpIMod, shader.OpUMod},
}

var bitwise = map[ir.BinaryOperator]shader.Opcode{
	ir.BinaryAnd:         shader.OpAnd,
	ir.BinaryExclusiveOr: shader.OpXor,
	ir.BinaryInclusiveOr: shader.OpOr,
	ir.BinaryLogicalAnd:  shader.OpAnd,
	ir.BinaryLogicalOr:   shader.OpOr,
}

func (f *function) binary(op ir.BinaryOperator, a, b value) (value, error) {
	if a.resource || b.resource {
		return value{}, fmt.Errorf("%w: operator on a texture or sampler", ErrUnsupported)
	}
	if a.composite() || b.composite() {
		return f.matrixBinary(op, a, b)
	}
	size := max(a.size, b.size)

	switch op {
	case ir.BinaryShiftLeft:
		return f.op(shader.OpShl, a.kind, size, a, b), nil
	case ir.BinaryShiftRight:
		if a.kind == ir.ScalarSint {
			return f.op(shader.OpIShr, a.kind, size, a, b), nil
		}
		return f.op(shader.OpUShr, a.kind, size, a, b), nil
	}

	a, b = f.unify(a, b)
	kind := a.kind
	if v, ok := fold(op, a, b, size); ok {
		return v, nil
	}

	if cmp, ok := compareFuncs[op]; ok {
		return f.compare(op, cmp, a, b, size)
	}
	if code, ok := bitwise[op]; ok {
		return f.op(code, kind, size, a, b), nil
	}
	ops, ok := arith[op]
	if !ok {
		return value{}, fmt.Errorf("%w: binary operator %d", ErrUnsupported, op)
	}
	switch kind {
	case ir.ScalarFloat:
		if op == ir.BinaryModulo {
			// Truncated remainder: a - b*trunc(a/b).
			q := f.op(shader.OpDiv, kind, size, a, b)
			q = f.op(shader.OpTrunc, kind, size, q)
			return f.op(shader.OpMad, kind, size, q, f.negate(b), a), nil
		}
		return f.op(ops[0], kind, size, a, b), nil
	case ir.ScalarSint:
		return f.op(ops[1], kind, size, a, b), nil
	case ir.ScalarUint:
		return f.op(ops[2], kind, size, a, b), nil
	}
	return value{}, fmt.Errorf("%w: arithmetic on booleans", ErrUnsupported)
}

// compare produces a lane mask per component.
func (f *function) compare(op ir.BinaryOperator, cmp gputypes.CompareFunction, a, b value, size int) (value, error) {
	var code shader.Opcode
	switch a.kind {
	case ir.ScalarFloat:
		code = shader.OpCmp
	case ir.ScalarSint:
		code = shader.OpICmp
	case ir.ScalarUint:
		code = shader.OpUCmp
	case ir.ScalarBool:
		switch op {
		case ir.BinaryEqual:
			return f.op(shader.OpEq, ir.ScalarBool, size, a, b), nil
		case ir.BinaryNotEqual:
			return f.op(shader.OpNe, ir.ScalarBool, size, a, b), nil
		}
		return value{}, fmt.Errorf("%w: ordering of booleans", ErrUnsupported)
	}
	t := f.l.temp()
	f.l.emit(shader.Instruction{
		Op:      code,
		Compare: cmp,
		Dst:     shader.Out(shader.RegTemp, t).Masked(mask(size)),
		Src:     [5]shader.Src{a.src, b.src},
	})
	return regValue(t, ir.ScalarBool, size), nil
}

// fold evaluates arithmetic on two literals.
func fold(op ir.BinaryOperator, a, b value, size int) (value, bool) {
	if !a.imm() || !b.imm() {
		return value{}, false
	}
	var c [4]float32
	for i := range c {
		x, y := a.src.Value[i], b.src.Value[i]
		xb, yb := bitsOf(x), bitsOf(y)
		switch {
		case a.kind == ir.ScalarFloat && op == ir.BinaryAdd:
			c[i] = x + y
		case a.kind == ir.ScalarFloat && op == ir.BinarySubtract:
			c[i] = x - y
		case a.kind == ir.ScalarFloat && op == ir.BinaryMultiply:
			c[i] = x * y
		case a.kind == ir.ScalarFloat && op == ir.BinaryDivide:
			c[i] = x / y
		case a.kind == ir.ScalarFloat:
			return value{}, false
		case op == ir.BinaryAdd:
			c[i] = fromBits(xb + yb)
		case op == ir.BinarySubtract:
			c[i] = fromBits(xb - yb)
		case op == ir.BinaryMultiply:
			c[i] = fromBits(xb * yb)
		case op == ir.BinaryAnd || op == ir.BinaryLogicalAnd:
			c[i] = fromBits(xb & yb)
		case op == ir.BinaryInclusiveOr || op == ir.BinaryLogicalOr:
			c[i] = fromBits(xb | yb)
		case op == ir.BinaryExclusiveOr:
			c[i] = fromBits(xb ^ yb)
		default:
			return value{}, false
		}
	}
	return immediate(a.kind, size, c), true
}

// matrixBinary lowers the operators that take a matrix operand.
func (f *function) matrixBinary(op ir.BinaryOperator, a, b value) (value, error) {
	am, aMat := a.typ.(ir.MatrixType)
	bm, bMat := b.typ.(ir.MatrixType)
	switch {
	case op == ir.BinaryMultiply && aMat && bMat:
		cols, err := f.parts(b)
		if err != nil {
			return value{}, err
		}
		out := make([]value, len(cols))
		for j, col := range cols {
			if out[j], err = f.transform(a, col); err != nil {
				return value{}, err
			}
		}
		return value{typ: ir.MatrixType{Columns: bm.Columns, Rows: am.Rows, Scalar: am.Scalar}, parts: out}, nil

	case op == ir.BinaryMultiply && aMat && b.size > 1:
		return f.transform(a, b)

	case op == ir.BinaryMultiply && bMat && a.size > 1:
		return f.rowTransform(a, b)

	case op == ir.BinaryMultiply && aMat && b.size == 1:
		s := f.convert(b, ir.ScalarFloat)
		return f.perPart(a, func(col value) (value, error) { return f.binary(op, col, s) })

	case op == ir.BinaryMultiply && bMat && a.size == 1:
		s := f.convert(a, ir.ScalarFloat)
		return f.perPart(b, func(col value) (value, error) { return f.binary(op, s, col) })

	case (op == ir.BinaryAdd || op == ir.BinarySubtract) && aMat && bMat:
		ac, err := f.parts(a)
		if err != nil {
			return value{}, err
		}
		bc, err := f.parts(b)
		if err != nil {
			return value{}, err
		}
		if len(ac) != len(bc) {
			return value{}, fmt.Errorf("%w: matrices of different shapes", ErrUnsupported)
		}
		out := make([]value, len(ac))
		for j := range ac {
			if out[j], err = f.binary(op, ac[j], bc[j]); err != nil {
				return value{}, err
			}
		}
		return value{typ: a.typ, parts: out}, nil
	}
	return value{}, fmt.Errorf("%w: binary operator %d on a composite", ErrUnsupported, op)
}

// transform multiplies matrix m by column vector v.
func (f *function) transform(m, v value) (value, error) {
	cols, err := f.parts(m)
	if err != nil {
		return value{}, err
	}
	if v.size != len(cols) {
		return value{}, fmt.Errorf("%w: mat%d by vec%d", ErrUnsupported, len(cols), v.size)
	}
	v = f.convert(v, ir.ScalarFloat)
	rows := cols[0].size
	acc := f.op(shader.OpMul, ir.ScalarFloat, rows, cols[0], v.component(0))
	for i := 1; i < len(cols); i++ {
		acc = f.op(shader.OpMad, ir.ScalarFloat, rows, cols[i], v.component(i), acc)
	}
	return acc, nil
}

// matrixOps maps {rows, columns} to the instruction that dots a vector
// with consecutive column registers.
var matrixOps = map[[2]int]shader.Opcode{
	{3, 2}: shader.OpM3x2,
	{3, 3}: shader.OpM3x3,
	{3, 4}: shader.OpM3x4,
	{4, 3}: shader.OpM4x3,
	{4, 4}: shader.OpM4x4,
}

var dotOps = [...]shader.Opcode{1: shader.OpDp1, 2: shader.OpDp2, 3: shader.OpDp3, 4: shader.OpDp4}

// rowTransform multiplies row vector v by matrix m: component k is the
// dot product of v with column k.
func (f *function) rowTransform(v, m value) (value, error) {
	mt := m.typ.(ir.MatrixType)
	if v.size != int(mt.Rows) {
		return value{}, fmt.Errorf("%w: vec%d by mat%dx%d", ErrUnsupported, v.size, mt.Columns, mt.Rows)
	}
	v = f.convert(v, ir.ScalarFloat)
	n := int(mt.Columns)
	if op, ok := matrixOps[[2]int{v.size, n}]; ok && m.at != nil && m.at.comp == 0 && !m.at.rel.Relative() {
		t := f.l.temp()
		col := shader.Reg(m.at.file, m.at.reg)
		f.l.emit(shader.Instruction{
			Op:  op,
			Dst: shader.Out(shader.RegTemp, t).Masked(mask(n)),
			Src: [5]shader.Src{v.src, col},
		})
		return regValue(t, ir.ScalarFloat, n), nil
	}
	cols, err := f.parts(m)
	if err != nil {
		return value{}, err
	}
	t := f.l.temp()
	for k, col := range cols {
		f.l.emit(shader.Instruction{
			Op:  dotOps[v.size],
			Dst: shader.Out(shader.RegTemp, t).Masked(1 << k),
			Src: [5]shader.Src{v.src, col.src},
		})
	}
	return regValue(t, ir.ScalarFloat, n), nil
}

func (f *function) selection(k ir.ExprSelect) (value, error) {
	c, err := f.value(k.Condition)
	if err != nil {
		return value{}, err
	}
	acc, err := f.value(k.Accept)
	if err != nil {
		return value{}, err
	}
	rej, err := f.value(k.Reject)
	if err != nil {
		return value{}, err
	}
	if c.imm() && c.size == 1 {
		if bitsOf(c.src.Value[0]) != 0 {
			return acc, nil
		}
		return rej, nil
	}
	if acc.composite() || rej.composite() || c.size == 0 {
		return value{}, fmt.Errorf("%w: select of composites", ErrUnsupported)
	}
	acc, rej = f.unify(acc, rej)
	c = f.convert(c, ir.ScalarBool)
	return f.op(shader.OpSelect, acc.kind, max(acc.size, rej.size), c, acc, rej), nil
}

func (f *function) relational(k ir.ExprRelational) (value, error) {
	v, err := f.value(k.Argument)
	if err != nil {
		return value{}, err
	}
	if v.size == 0 {
		return value{}, fmt.Errorf("%w: relational function of a composite", ErrUnsupported)
	}
	switch k.Fun {
	case ir.RelationalAll, ir.RelationalAny:
		if v.size == 1 {
			return v, nil
		}
		op := shader.OpAll
		if k.Fun == ir.RelationalAny {
			op = shader.OpAny
		}
		return f.op(op, ir.ScalarBool, 1, v), nil
	case ir.RelationalIsNan:
		return f.op(shader.OpIsNaN, ir.ScalarBool, v.size, v), nil
	case ir.RelationalIsInf:
		return f.op(shader.OpIsInf, ir.ScalarBool, v.size, v), nil
	}
	return value{}, fmt.Errorf("%w: relational function %d", ErrUnsupported, k.Fun)
}
