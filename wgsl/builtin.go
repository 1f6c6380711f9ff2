package wgsl

import (
	"fmt"
	"math"

	"github.com/gogpu/naga/ir"
	"github.com/gogpu/shaderjit/shader"
)

// floatOps are the component-wise float builtins with one instruction.
var floatOps = map[ir.MathFunction]shader.Opcode{
	ir.MathSaturate:    shader.OpSat,
	ir.MathCos:         shader.OpCos,
	ir.MathCosh:        shader.OpCosh,
	ir.MathSin:         shader.OpSin,
	ir.MathSinh:        shader.OpSinh,
	ir.MathTan:         shader.OpTan,
	ir.MathTanh:        shader.OpTanh,
	ir.MathAcos:        shader.OpAcos,
	ir.MathAsin:        shader.OpAsin,
	ir.MathAtan:        shader.OpAtan,
	ir.MathAtan2:       shader.OpAtan2,
	ir.MathAsinh:       shader.OpAsinh,
	ir.MathAcosh:       shader.OpAcosh,
	ir.MathAtanh:       shader.OpAtanh,
	ir.MathCeil:        shader.OpCeil,
	ir.MathFloor:       shader.OpFloor,
	ir.MathRound:       shader.OpRoundEven,
	ir.MathFract:       shader.OpFrc,
	ir.MathTrunc:       shader.OpTrunc,
	ir.MathExp:         shader.OpExp,
	ir.MathExp2:        shader.OpExp2,
	ir.MathLog:         shader.OpLog,
	ir.MathLog2:        shader.OpLog2,
	ir.MathPow:         shader.OpPow,
	ir.MathSqrt:        shader.OpSqrt,
	ir.MathInverseSqrt: shader.OpRsq,
	ir.MathFma:         shader.OpMad,
	ir.MathStep:        shader.OpStep,
	ir.MathSmoothStep:  shader.OpSmooth,
}

// geometric builtins are indexed by vector size.
var (
	lengthOps    = [...]shader.Opcode{2: shader.OpLen2, 3: shader.OpLen3, 4: shader.OpLen4}
	distanceOps  = [...]shader.Opcode{1: shader.OpDist1, 2: shader.OpDist2, 3: shader.OpDist3, 4: shader.OpDist4}
	normalizeOps = [...]shader.Opcode{2: shader.OpNrm2, 3: shader.OpNrm3, 4: shader.OpNrm4}
	reflectOps   = [...]shader.Opcode{1: shader.OpReflect1, 2: shader.OpReflect2, 3: shader.OpReflect3, 4: shader.OpReflect4}
	refractOps   = [...]shader.Opcode{1: shader.OpRefract1, 2: shader.OpRefract2, 3: shader.OpRefract3, 4: shader.OpRefract4}
	forwardOps   = [...]shader.Opcode{1: shader.OpForward1, 2: shader.OpForward2, 3: shader.OpForward3, 4: shader.OpForward4}
	detOps       = [...]shader.Opcode{2: shader.OpDet2, 3: shader.OpDet3, 4: shader.OpDet4}
)

// byKind picks the float, signed or unsigned variant of a builtin.
type byKind struct{ float, sint, uint shader.Opcode }

var kindOps = map[ir.MathFunction]byKind{
	ir.MathMin:  {shader.OpMin, shader.OpIMin, shader.OpUMin},
	ir.MathMax:  {shader.OpMax, shader.OpIMax, shader.OpUMax},
	ir.MathSign: {shader.OpSgn, shader.OpISgn, 0},
}

var packOps = map[ir.MathFunction]shader.Opcode{
	ir.MathPack2x16snorm: shader.OpPackSnorm2x16,
	ir.MathPack2x16unorm: shader.OpPackUnorm2x16,
	ir.MathPack2x16float: shader.OpPackHalf2x16,
}

var unpackOps = map[ir.MathFunction]shader.Opcode{
	ir.MathUnpack2x16snorm: shader.OpUnpackSnorm2x16,
	ir.MathUnpack2x16unorm: shader.OpUnpackUnorm2x16,
	ir.MathUnpack2x16float: shader.OpUnpackHalf2x16,
}

func (f *function) math(k ir.ExprMath) (value, error) {
	var args []value
	for _, h := range []*ir.ExpressionHandle{&k.Arg, k.Arg1, k.Arg2, k.Arg3} {
		if h == nil {
			break
		}
		v, err := f.value(*h)
		if err != nil {
			return value{}, err
		}
		args = append(args, v)
	}

	switch k.Fun {
	case ir.MathTranspose:
		return f.transpose(args[0])
	case ir.MathDeterminant:
		return f.determinant(args[0])
	}
	for _, a := range args {
		if a.size == 0 {
			return value{}, fmt.Errorf("%w: builtin %d on a composite", ErrUnsupported, k.Fun)
		}
	}
	x := args[0]
	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: builtin %d with %d arguments", ErrUnsupported, k.Fun, len(args))
		}
		return nil
	}

	if op, ok := packOps[k.Fun]; ok {
		x = f.convert(x, ir.ScalarFloat)
		return f.op(op, ir.ScalarUint, 1, x), nil
	}
	if op, ok := unpackOps[k.Fun]; ok {
		return f.op(op, ir.ScalarFloat, 2, x), nil
	}
	if k.Fun == ir.MathLdexp {
		if err := arity(2); err != nil {
			return value{}, err
		}
		x = f.convert(x, ir.ScalarFloat)
		e := f.convert(args[1], ir.ScalarFloat)
		p := f.op(shader.OpExp2, ir.ScalarFloat, e.size, e)
		return f.op(shader.OpMul, ir.ScalarFloat, max(x.size, e.size), x, p), nil
	}

	args = f.unifyAll(args)
	x = args[0]
	size := 0
	for _, a := range args {
		size = max(size, a.size)
	}

	switch k.Fun {
	case ir.MathAbs:
		switch {
		case x.kind == ir.ScalarUint:
			return x, nil
		case x.kind == ir.ScalarSint:
			return f.op(shader.OpIAbs, x.kind, x.size, x), nil
		case x.imm():
			var c [4]float32
			for i, v := range x.src.Value {
				c[i] = float32(math.Abs(float64(v)))
			}
			return immediate(x.kind, x.size, c), nil
		case x.src.Modifier == shader.ModNone || x.src.Modifier == shader.ModNegate:
			x.src.Modifier = shader.ModAbs
			return x, nil
		}
		return f.op(shader.OpAbs, x.kind, x.size, x), nil

	case ir.MathClamp:
		if err := arity(3); err != nil {
			return value{}, err
		}
		if x.kind == ir.ScalarFloat {
			return f.op(shader.OpClamp, x.kind, size, args...), nil
		}
		lo, hi := shader.OpIMax, shader.OpIMin
		if x.kind == ir.ScalarUint {
			lo, hi = shader.OpUMax, shader.OpUMin
		}
		m := f.op(lo, x.kind, size, x, args[1])
		return f.op(hi, x.kind, size, m, args[2]), nil

	case ir.MathRadians, ir.MathDegrees:
		scale := float32(math.Pi / 180)
		if k.Fun == ir.MathDegrees {
			scale = float32(180 / math.Pi)
		}
		return f.op(shader.OpMul, ir.ScalarFloat, size, x, floatImm(scale)), nil

	case ir.MathMix:
		if err := arity(3); err != nil {
			return value{}, err
		}
		// mix(a, b, t) = t*(b - a) + a
		return f.op(shader.OpLrp, ir.ScalarFloat, size, args[2], args[1], args[0]), nil

	case ir.MathDot:
		if err := arity(2); err != nil {
			return value{}, err
		}
		if x.kind != ir.ScalarFloat {
			p := f.op(shader.OpIMul, x.kind, x.size, x, args[1])
			acc := p.component(0)
			for i := 1; i < x.size; i++ {
				acc = f.op(shader.OpIAdd, x.kind, 1, acc, p.component(i))
			}
			return acc, nil
		}
		return f.op(dotOps[x.size], ir.ScalarFloat, 1, x, args[1]), nil

	case ir.MathCross:
		if err := arity(2); err != nil {
			return value{}, err
		}
		return f.op(shader.OpCrs, ir.ScalarFloat, 3, x, args[1]), nil

	case ir.MathLength:
		if x.size == 1 {
			return f.math(ir.ExprMath{Fun: ir.MathAbs, Arg: k.Arg})
		}
		return f.op(lengthOps[x.size], ir.ScalarFloat, 1, x), nil

	case ir.MathDistance:
		if err := arity(2); err != nil {
			return value{}, err
		}
		return f.op(distanceOps[size], ir.ScalarFloat, 1, x, args[1]), nil

	case ir.MathNormalize:
		if x.size == 1 {
			return f.op(shader.OpSgn, ir.ScalarFloat, 1, x), nil
		}
		return f.op(normalizeOps[x.size], ir.ScalarFloat, x.size, x), nil

	case ir.MathFaceForward:
		if err := arity(3); err != nil {
			return value{}, err
		}
		return f.op(forwardOps[size], ir.ScalarFloat, size, args...), nil

	case ir.MathReflect:
		if err := arity(2); err != nil {
			return value{}, err
		}
		return f.op(reflectOps[size], ir.ScalarFloat, size, args...), nil

	case ir.MathRefract:
		if err := arity(3); err != nil {
			return value{}, err
		}
		n := max(x.size, args[1].size)
		return f.op(refractOps[n], ir.ScalarFloat, n, args...), nil

	case ir.MathCountOneBits:
		return f.op(shader.OpBitCount, x.kind, x.size, x), nil
	}

	if ops, ok := kindOps[k.Fun]; ok {
		op := ops.float
		switch x.kind {
		case ir.ScalarSint:
			op = ops.sint
		case ir.ScalarUint:
			op = ops.uint
		}
		if op == 0 {
			return value{}, fmt.Errorf("%w: builtin %d on unsigned integers", ErrUnsupported, k.Fun)
		}
		return f.op(op, x.kind, size, args...), nil
	}
	if op, ok := floatOps[k.Fun]; ok {
		if x.kind != ir.ScalarFloat {
			return value{}, fmt.Errorf("%w: builtin %d on integers", ErrUnsupported, k.Fun)
		}
		return f.op(op, ir.ScalarFloat, size, args...), nil
	}
	return value{}, fmt.Errorf("%w: builtin %d", ErrUnsupported, k.Fun)
}

// unifyAll brings builtin arguments to one kind: that of the first
// non-literal argument, or float when any literal is a float.
func (f *function) unifyAll(args []value) []value {
	kind, found := args[0].kind, false
	for _, a := range args {
		if !a.imm() {
			kind, found = a.kind, true
			break
		}
	}
	if !found {
		for _, a := range args {
			if a.kind == ir.ScalarFloat {
				kind = ir.ScalarFloat
			}
		}
	}
	out := make([]value, len(args))
	for i, a := range args {
		out[i] = f.convert(a, kind)
	}
	return out
}

// transpose swaps the rows and columns of a matrix with masked moves.
func (f *function) transpose(m value) (value, error) {
	mt, ok := m.typ.(ir.MatrixType)
	if !ok {
		return value{}, fmt.Errorf("%w: transpose of %T", ErrUnsupported, m.typ)
	}
	cols, err := f.parts(m)
	if err != nil {
		return value{}, err
	}
	out := make([]value, mt.Rows)
	for r := range out {
		t := f.l.temp()
		for c, col := range cols {
			f.l.emit(shader.Instruction{
				Op:  shader.OpMov,
				Dst: shader.Out(shader.RegTemp, t).Masked(1 << c),
				Src: [5]shader.Src{swizzle(col.src, shader.MakeSwizzle(r, r, r, r))},
			})
		}
		out[r] = regValue(t, ir.ScalarFloat, len(cols))
	}
	return value{typ: ir.MatrixType{Columns: mt.Rows, Rows: mt.Columns, Scalar: mt.Scalar}, parts: out}, nil
}

// determinant uses the columns as rows, since det(M) = det(transpose(M)).
func (f *function) determinant(m value) (value, error) {
	mt, ok := m.typ.(ir.MatrixType)
	if !ok || mt.Columns != mt.Rows {
		return value{}, fmt.Errorf("%w: determinant of %T", ErrUnsupported, m.typ)
	}
	cols, err := f.parts(m)
	if err != nil {
		return value{}, err
	}
	return f.op(detOps[len(cols)], ir.ScalarFloat, 1, cols...), nil
}

// image returns the texture global behind h and its type.
func (f *function) image(h ir.ExpressionHandle) (value, ir.ImageType, error) {
	v, err := f.value(h)
	if err != nil {
		return value{}, ir.ImageType{}, err
	}
	if !v.resource {
		return value{}, ir.ImageType{}, fmt.Errorf("%w: texture operand", ErrUnsupported)
	}
	it, ok := f.l.inner(f.l.mod.GlobalVariables[v.global].Type).(ir.ImageType)
	if !ok {
		return value{}, ir.ImageType{}, fmt.Errorf("%w: %s is not a texture", ErrUnsupported, f.l.mod.GlobalVariables[v.global].Name)
	}
	if it.Arrayed || it.Multisampled || it.Class == ir.ImageClassStorage {
		return value{}, ir.ImageType{}, fmt.Errorf("%w: arrayed, multisampled or storage texture", ErrUnsupported)
	}
	return v, it, nil
}

func (f *function) floatArg(h ir.ExpressionHandle) (value, error) {
	v, err := f.value(h)
	if err != nil {
		return value{}, err
	}
	return f.convert(v, ir.ScalarFloat), nil
}

func (f *function) intArg(h *ir.ExpressionHandle) (value, error) {
	if h == nil {
		return intImm(ir.ScalarSint, 0), nil
	}
	v, err := f.value(*h)
	if err != nil {
		return value{}, err
	}
	return f.convert(v, ir.ScalarSint), nil
}

// sample lowers the textureSample family.
func (f *function) sample(k ir.ExprImageSample) (value, error) {
	img, it, err := f.image(k.Image)
	if err != nil {
		return value{}, err
	}
	if k.Gather != nil || k.ArrayIndex != nil {
		return value{}, fmt.Errorf("%w: texture gather or array index", ErrUnsupported)
	}
	smp, err := f.value(k.Sampler)
	if err != nil {
		return value{}, err
	}
	if !smp.resource {
		return value{}, fmt.Errorf("%w: sampler operand", ErrUnsupported)
	}
	slot := f.l.slot(img.global, &smp.global)

	coord, err := f.floatArg(k.Coordinate)
	if err != nil {
		return value{}, err
	}
	if k.DepthRef != nil {
		// The reference value travels in the coordinate's z.
		if coord.size > 2 {
			return value{}, fmt.Errorf("%w: depth comparison on a %d-component coordinate", ErrUnsupported, coord.size)
		}
		ref, err := f.floatArg(*k.DepthRef)
		if err != nil {
			return value{}, err
		}
		parts := []value{coord}
		if coord.size == 1 {
			parts = append(parts, floatImm(0))
		}
		if coord, err = f.composeVector(ir.ScalarFloat, 3, append(parts, ref)); err != nil {
			return value{}, err
		}
	}

	var off *value
	if k.Offset != nil {
		o, err := f.intArg(k.Offset)
		if err != nil {
			return value{}, err
		}
		off = &o
	}
	pick := func(plain, offset shader.Opcode) shader.Opcode {
		if off != nil {
			return offset
		}
		return plain
	}

	in := shader.Instruction{Dst: shader.Out(shader.RegTemp, f.l.temp())}
	in.Src[0], in.Src[1] = coord.src, shader.Reg(shader.RegSampler, slot)
	var extra []value
	switch lv := k.Level.(type) {
	case nil, ir.SampleLevelAuto:
		in.Op = pick(shader.OpTex, shader.OpTexOffset)
	case ir.SampleLevelZero:
		in.Op = pick(shader.OpTexLod, shader.OpTexLodOffset)
		extra = []value{floatImm(0)}
	case ir.SampleLevelExact:
		lod, err := f.floatArg(lv.Level)
		if err != nil {
			return value{}, err
		}
		in.Op = pick(shader.OpTexLod, shader.OpTexLodOffset)
		extra = []value{lod}
	case ir.SampleLevelBias:
		bias, err := f.floatArg(lv.Bias)
		if err != nil {
			return value{}, err
		}
		in.Op = pick(shader.OpTexBias, shader.OpTexOffsetBias)
		extra = []value{bias}
	case ir.SampleLevelGradient:
		ddx, err := f.floatArg(lv.X)
		if err != nil {
			return value{}, err
		}
		ddy, err := f.floatArg(lv.Y)
		if err != nil {
			return value{}, err
		}
		in.Op = pick(shader.OpTexGrad, shader.OpTexGradOffset)
		extra = []value{ddx, ddy}
	default:
		return value{}, fmt.Errorf("%w: sample level %T", ErrUnsupported, lv)
	}

	// Offsets come before a level or bias and after gradients.
	i := 2
	if off != nil && in.Op != shader.OpTexGradOffset {
		in.Src[i] = off.src
		i++
	}
	for _, e := range extra {
		in.Src[i] = e.src
		i++
	}
	if off != nil && in.Op == shader.OpTexGradOffset {
		in.Src[i] = off.src
	}
	f.l.emit(in)

	if it.Class == ir.ImageClassDepth {
		return regValue(in.Dst.Index, ir.ScalarFloat, 1), nil
	}
	return regValue(in.Dst.Index, ir.ScalarFloat, 4), nil
}

// fetch lowers textureLoad to a texel fetch with integer coordinates.
func (f *function) fetch(k ir.ExprImageLoad) (value, error) {
	img, it, err := f.image(k.Image)
	if err != nil {
		return value{}, err
	}
	if k.ArrayIndex != nil || k.Sample != nil {
		return value{}, fmt.Errorf("%w: texture load with an array index or sample", ErrUnsupported)
	}
	coord, err := f.intArg(&k.Coordinate)
	if err != nil {
		return value{}, err
	}
	lod, err := f.intArg(k.Level)
	if err != nil {
		return value{}, err
	}
	t := f.l.temp()
	f.l.emit(shader.Instruction{
		Op:  shader.OpTexelFetch,
		Dst: shader.Out(shader.RegTemp, t),
		Src: [5]shader.Src{coord.src, shader.Reg(shader.RegSampler, f.l.slot(img.global, nil)), lod.src},
	})
	if it.Class == ir.ImageClassDepth {
		return regValue(t, ir.ScalarFloat, 1), nil
	}
	return regValue(t, ir.ScalarFloat, 4), nil
}

// query lowers textureDimensions and textureNumLevels.
func (f *function) query(k ir.ExprImageQuery) (value, error) {
	img, it, err := f.image(k.Image)
	if err != nil {
		return value{}, err
	}
	var lod value
	var size int
	switch q := k.Query.(type) {
	case ir.ImageQuerySize:
		if lod, err = f.intArg(q.Level); err != nil {
			return value{}, err
		}
		switch it.Dim {
		case ir.Dim1D:
			size = 1
		case ir.Dim3D:
			size = 3
		default:
			size = 2
		}
	case ir.ImageQueryNumLevels:
		lod = intImm(ir.ScalarSint, 0)
	default:
		return value{}, fmt.Errorf("%w: texture query %T", ErrUnsupported, q)
	}
	t := f.l.temp()
	f.l.emit(shader.Instruction{
		Op:  shader.OpTexSize,
		Dst: shader.Out(shader.RegTemp, t),
		Src: [5]shader.Src{lod.src, shader.Reg(shader.RegSampler, f.l.slot(img.global, nil))},
	})
	if size == 0 {
		return value{src: shader.Reg(shader.RegTemp, t).Swz(shader.MakeSwizzle(3, 3, 3, 3)), kind: ir.ScalarUint, size: 1}, nil
	}
	return regValue(t, ir.ScalarUint, size), nil
}
