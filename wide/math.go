package wide

import "math"

var (
	zero4 = F32x4{}
	one4  = SplatF32(1)
	inf4  = SplatF32(float32(math.Inf(1)))
	nan4  = SplatF32(float32(math.NaN()))
)

// apply runs f on every lane in float64 precision.
func apply(v F32x4, f func(float64) float64) F32x4 {
	var r F32x4
	for i := range v {
		r[i] = float32(f(float64(v[i])))
	}
	return r
}

func apply2(a, b F32x4, f func(float64, float64) float64) F32x4 {
	var r F32x4
	for i := range a {
		r[i] = float32(f(float64(a[i]), float64(b[i])))
	}
	return r
}

// Rcp returns 1/x. Rcp(±0) is ±Inf.
func Rcp(x F32x4) F32x4 {
	return one4.Div(x)
}

// Sqrt returns the square root. Negative lanes yield NaN.
func Sqrt(x F32x4) F32x4 {
	return apply(x, math.Sqrt)
}

// RSqrt returns 1/sqrt(x). RSqrt(0) is +Inf, negative lanes yield NaN.
func RSqrt(x F32x4) F32x4 {
	return one4.Div(Sqrt(x))
}

// Exp2 returns 2^x.
func Exp2(x F32x4) F32x4 {
	return apply(x, math.Exp2)
}

// Log2 returns log2(x). Log2(0) is -Inf, negative lanes yield NaN.
func Log2(x F32x4) F32x4 {
	return apply(x, math.Log2)
}

// Exp returns e^x.
func Exp(x F32x4) F32x4 {
	return apply(x, math.Exp)
}

// Log returns the natural logarithm with the same edge cases as Log2.
func Log(x F32x4) F32x4 {
	return apply(x, math.Log)
}

// Pow returns x^y with a single policy for non-positive bases:
//
//	x > 0:  2^(y*log2 x)
//	x == 0: 0 if y > 0, 1 if y == 0, +Inf if y < 0
//	x < 0:  0 for every y
//
// NaN in either operand propagates.
func Pow(x, y F32x4) F32x4 {
	pos := apply2(x, y, math.Pow)
	atZero := Select(y.CmpGT(zero4), zero4, Select(y.CmpEQ(zero4), one4, inf4))
	r := Select(x.CmpGT(zero4), pos, Select(x.CmpEQ(zero4), atZero, zero4))
	return Select(IsNaN(x).Or(IsNaN(y)), nan4, r)
}

// Sin returns the sine of x (radians).
func Sin(x F32x4) F32x4 { return apply(x, math.Sin) }

// Cos returns the cosine of x (radians).
func Cos(x F32x4) F32x4 { return apply(x, math.Cos) }

// Tan returns the tangent of x (radians).
func Tan(x F32x4) F32x4 { return apply(x, math.Tan) }

// Asin returns the arcsine; lanes outside [-1, 1] yield NaN.
func Asin(x F32x4) F32x4 { return apply(x, math.Asin) }

// Acos returns the arccosine; lanes outside [-1, 1] yield NaN.
func Acos(x F32x4) F32x4 { return apply(x, math.Acos) }

// Atan returns the arctangent.
func Atan(x F32x4) F32x4 { return apply(x, math.Atan) }

// Atan2 returns the arctangent of y/x using the signs of both to pick the
// quadrant.
func Atan2(y, x F32x4) F32x4 { return apply2(y, x, math.Atan2) }

// Sinh returns the hyperbolic sine.
func Sinh(x F32x4) F32x4 { return apply(x, math.Sinh) }

// Cosh returns the hyperbolic cosine.
func Cosh(x F32x4) F32x4 { return apply(x, math.Cosh) }

// Tanh returns the hyperbolic tangent.
func Tanh(x F32x4) F32x4 { return apply(x, math.Tanh) }

// Asinh returns the inverse hyperbolic sine.
func Asinh(x F32x4) F32x4 { return apply(x, math.Asinh) }

// Acosh returns the inverse hyperbolic cosine; lanes below 1 yield NaN.
func Acosh(x F32x4) F32x4 { return apply(x, math.Acosh) }

// Atanh returns the inverse hyperbolic tangent; ±1 yield ±Inf.
func Atanh(x F32x4) F32x4 { return apply(x, math.Atanh) }

// Floor rounds toward negative infinity.
func Floor(x F32x4) F32x4 { return apply(x, math.Floor) }

// Ceil rounds toward positive infinity.
func Ceil(x F32x4) F32x4 { return apply(x, math.Ceil) }

// Trunc rounds toward zero.
func Trunc(x F32x4) F32x4 { return apply(x, math.Trunc) }

// Round rounds half away from zero.
func Round(x F32x4) F32x4 { return apply(x, math.Round) }

// RoundEven rounds half to even.
func RoundEven(x F32x4) F32x4 { return apply(x, math.RoundToEven) }

// Frac returns x - floor(x).
func Frac(x F32x4) F32x4 {
	return x.Sub(Floor(x))
}

// Mod returns x - y*floor(x/y), the sign following y.
func Mod(x, y F32x4) F32x4 {
	return x.Sub(y.Mul(Floor(x.Div(y))))
}

// Sign returns -1, 0 or 1 per lane. NaN lanes yield 0.
func Sign(x F32x4) F32x4 {
	neg := Select(x.CmpLT(zero4), SplatF32(-1), zero4)
	return Select(x.CmpGT(zero4), one4, neg)
}

// Step returns 1 where x >= edge and 0 elsewhere.
func Step(edge, x F32x4) F32x4 {
	return Select(x.CmpGE(edge), one4, zero4)
}

// SmoothStep performs Hermite interpolation between edge0 and edge1.
func SmoothStep(edge0, edge1, x F32x4) F32x4 {
	t := x.Sub(edge0).Div(edge1.Sub(edge0)).Saturate()
	return t.Mul(t).Mul(SplatF32(3).Sub(SplatF32(2).Mul(t)))
}

// IsNaN returns a mask of NaN lanes.
func IsNaN(x F32x4) U32x4 {
	return x.CmpNE(x)
}

// IsInf returns a mask of infinite lanes.
func IsInf(x F32x4) U32x4 {
	return x.Abs().CmpEQ(inf4)
}
