package wide

import "math"

// F32x4 represents 4 float32 lanes.
type F32x4 [4]float32

// SplatF32 creates F32x4 with all lanes set to n.
func SplatF32(n float32) F32x4 {
	return F32x4{n, n, n, n}
}

// Add performs lane-wise addition.
func (v F32x4) Add(o F32x4) F32x4 {
	var r F32x4
	for i := range v {
		r[i] = v[i] + o[i]
	}
	return r
}

// Sub performs lane-wise subtraction.
func (v F32x4) Sub(o F32x4) F32x4 {
	var r F32x4
	for i := range v {
		r[i] = v[i] - o[i]
	}
	return r
}

// Mul performs lane-wise multiplication.
func (v F32x4) Mul(o F32x4) F32x4 {
	var r F32x4
	for i := range v {
		r[i] = v[i] * o[i]
	}
	return r
}

// Div performs lane-wise division.
// Division by zero results in +Inf, -Inf, or NaN according to IEEE 754.
func (v F32x4) Div(o F32x4) F32x4 {
	var r F32x4
	for i := range v {
		r[i] = v[i] / o[i]
	}
	return r
}

// MulAdd returns v*m + a for each lane.
func (v F32x4) MulAdd(m, a F32x4) F32x4 {
	var r F32x4
	for i := range v {
		r[i] = v[i]*m[i] + a[i]
	}
	return r
}

// Neg flips the sign of each lane.
func (v F32x4) Neg() F32x4 {
	var r F32x4
	for i := range v {
		r[i] = -v[i]
	}
	return r
}

// Abs clears the sign bit of each lane.
func (v F32x4) Abs() F32x4 {
	var r F32x4
	for i := range v {
		r[i] = math.Float32frombits(math.Float32bits(v[i]) &^ (1 << 31))
	}
	return r
}

// Min performs lane-wise minimum.
func (v F32x4) Min(o F32x4) F32x4 {
	var r F32x4
	for i := range v {
		if v[i] < o[i] {
			r[i] = v[i]
		} else {
			r[i] = o[i]
		}
	}
	return r
}

// Max performs lane-wise maximum.
func (v F32x4) Max(o F32x4) F32x4 {
	var r F32x4
	for i := range v {
		if v[i] > o[i] {
			r[i] = v[i]
		} else {
			r[i] = o[i]
		}
	}
	return r
}

// Clamp clamps each lane to [lo, hi].
func (v F32x4) Clamp(lo, hi F32x4) F32x4 {
	return v.Max(lo).Min(hi)
}

// Saturate clamps each lane to [0, 1]. NaN lanes become 0.
func (v F32x4) Saturate() F32x4 {
	var r F32x4
	for i := range v {
		switch {
		case v[i] > 1:
			r[i] = 1
		case v[i] >= 0:
			r[i] = v[i]
		default:
			r[i] = 0
		}
	}
	return r
}

// Lerp performs linear interpolation: v + (o - v) * t.
func (v F32x4) Lerp(o, t F32x4) F32x4 {
	var r F32x4
	for i := range v {
		r[i] = v[i] + (o[i]-v[i])*t[i]
	}
	return r
}

// Bits reinterprets the lanes as raw bit patterns.
func (v F32x4) Bits() U32x4 {
	var r U32x4
	for i := range v {
		r[i] = math.Float32bits(v[i])
	}
	return r
}

// Int reinterprets the lanes as signed integer bit patterns.
func (v F32x4) Int() I32x4 {
	var r I32x4
	for i := range v {
		r[i] = int32(math.Float32bits(v[i]))
	}
	return r
}

// ToI32 converts each lane to int32, truncating toward zero.
// NaN converts to 0; out-of-range values saturate.
func (v F32x4) ToI32() I32x4 {
	var r I32x4
	for i := range v {
		r[i] = toInt32(v[i])
	}
	return r
}

// ToU32 converts each lane to uint32, truncating toward zero.
// NaN and negative values convert to 0; large values saturate.
func (v F32x4) ToU32() U32x4 {
	var r U32x4
	for i := range v {
		f := v[i]
		switch {
		case !(f > 0):
			r[i] = 0
		case f >= 4294967296:
			r[i] = math.MaxUint32
		default:
			r[i] = uint32(f)
		}
	}
	return r
}

// RoundI32 converts each lane to the nearest int32, ties to even.
func (v F32x4) RoundI32() I32x4 {
	var r I32x4
	for i := range v {
		r[i] = toInt32(float32(math.RoundToEven(float64(v[i]))))
	}
	return r
}

func toInt32(f float32) int32 {
	switch {
	case f != f:
		return 0
	case f >= 2147483648:
		return math.MaxInt32
	case f <= -2147483648:
		return math.MinInt32
	default:
		return int32(f)
	}
}

// CmpEQ returns a lane mask of v == o.
func (v F32x4) CmpEQ(o F32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] == o[i])
	}
	return r
}

// CmpNE returns a lane mask of v != o (true for unordered lanes).
func (v F32x4) CmpNE(o F32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] != o[i])
	}
	return r
}

// CmpLT returns a lane mask of v < o.
func (v F32x4) CmpLT(o F32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] < o[i])
	}
	return r
}

// CmpLE returns a lane mask of v <= o.
func (v F32x4) CmpLE(o F32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] <= o[i])
	}
	return r
}

// CmpGT returns a lane mask of v > o.
func (v F32x4) CmpGT(o F32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] > o[i])
	}
	return r
}

// CmpGE returns a lane mask of v >= o.
func (v F32x4) CmpGE(o F32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] >= o[i])
	}
	return r
}

// Select returns a where the mask lane is set and b elsewhere.
// Selection is bitwise, so partially set masks blend bit patterns.
func Select(m U32x4, a, b F32x4) F32x4 {
	var r F32x4
	for i := range m {
		r[i] = math.Float32frombits(math.Float32bits(a[i])&m[i] | math.Float32bits(b[i])&^m[i])
	}
	return r
}

// Lane returns lane i broadcast to all lanes.
func (v F32x4) Lane(i int) F32x4 {
	return SplatF32(v[i&3])
}

// Shuffle returns lanes reordered by idx.
func (v F32x4) Shuffle(a, b, c, d int) F32x4 {
	return F32x4{v[a], v[b], v[c], v[d]}
}

func boolMask(b bool) uint32 {
	if b {
		return math.MaxUint32
	}
	return 0
}
