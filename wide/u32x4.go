package wide

import (
	"math"
	"math/bits"
)

// U32x4 represents 4 uint32 lanes.
// As a lane mask every lane is either all ones (enabled) or all zeros.
type U32x4 [4]uint32

// I32x4 represents 4 int32 lanes.
type I32x4 [4]int32

// AllOnes is the mask with every lane enabled.
var AllOnes = U32x4{math.MaxUint32, math.MaxUint32, math.MaxUint32, math.MaxUint32}

// SplatU32 creates U32x4 with all lanes set to n.
func SplatU32(n uint32) U32x4 {
	return U32x4{n, n, n, n}
}

// SplatI32 creates I32x4 with all lanes set to n.
func SplatI32(n int32) I32x4 {
	return I32x4{n, n, n, n}
}

// MaskOf builds a lane mask from the low 4 bits of bits, lane 0 first.
func MaskOf(laneBits int) U32x4 {
	var r U32x4
	for i := range r {
		r[i] = boolMask(laneBits&(1<<i) != 0)
	}
	return r
}

// Float reinterprets the lanes as float32 bit patterns.
func (m U32x4) Float() F32x4 {
	var r F32x4
	for i := range m {
		r[i] = math.Float32frombits(m[i])
	}
	return r
}

// Int reinterprets the lanes as int32.
func (m U32x4) Int() I32x4 {
	var r I32x4
	for i := range m {
		r[i] = int32(m[i])
	}
	return r
}

// ToF32 converts each lane to float32 as an unsigned value.
func (m U32x4) ToF32() F32x4 {
	var r F32x4
	for i := range m {
		r[i] = float32(m[i])
	}
	return r
}

// And performs lane-wise bitwise AND.
func (m U32x4) And(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = m[i] & o[i]
	}
	return r
}

// AndNot returns m &^ o.
func (m U32x4) AndNot(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = m[i] &^ o[i]
	}
	return r
}

// Or performs lane-wise bitwise OR.
func (m U32x4) Or(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = m[i] | o[i]
	}
	return r
}

// Xor performs lane-wise bitwise XOR.
func (m U32x4) Xor(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = m[i] ^ o[i]
	}
	return r
}

// Not performs lane-wise bitwise complement.
func (m U32x4) Not() U32x4 {
	var r U32x4
	for i := range m {
		r[i] = ^m[i]
	}
	return r
}

// NonZero returns a mask of the lanes holding any set bit.
func (m U32x4) NonZero() U32x4 {
	var r U32x4
	for i := range m {
		r[i] = boolMask(m[i] != 0)
	}
	return r
}

// SignMask packs the top bit of each lane into the low 4 bits, lane 0 first.
func (m U32x4) SignMask() int {
	s := 0
	for i := range m {
		s |= int(m[i]>>31) << i
	}
	return s
}

// Any reports whether any lane is enabled.
func (m U32x4) Any() bool {
	return m.SignMask() != 0
}

// None reports whether no lane is enabled.
func (m U32x4) None() bool {
	return m.SignMask() == 0
}

// All reports whether every lane is enabled.
func (m U32x4) All() bool {
	return m.SignMask() == 0xF
}

// Shl shifts each lane left by the low 5 bits of o.
func (m U32x4) Shl(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = m[i] << (o[i] & 31)
	}
	return r
}

// Shr shifts each lane right (logical) by the low 5 bits of o.
func (m U32x4) Shr(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = m[i] >> (o[i] & 31)
	}
	return r
}

// Min performs lane-wise unsigned minimum.
func (m U32x4) Min(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = min(m[i], o[i])
	}
	return r
}

// Max performs lane-wise unsigned maximum.
func (m U32x4) Max(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = max(m[i], o[i])
	}
	return r
}

// Div performs lane-wise unsigned division. x/0 yields 0xFFFFFFFF.
func (m U32x4) Div(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		if o[i] == 0 {
			r[i] = math.MaxUint32
		} else {
			r[i] = m[i] / o[i]
		}
	}
	return r
}

// Mod performs lane-wise unsigned remainder. x%0 yields 0xFFFFFFFF.
func (m U32x4) Mod(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		if o[i] == 0 {
			r[i] = math.MaxUint32
		} else {
			r[i] = m[i] % o[i]
		}
	}
	return r
}

// CmpEQ returns a lane mask of m == o.
func (m U32x4) CmpEQ(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = boolMask(m[i] == o[i])
	}
	return r
}

// CmpLT returns a lane mask of m < o (unsigned).
func (m U32x4) CmpLT(o U32x4) U32x4 {
	var r U32x4
	for i := range m {
		r[i] = boolMask(m[i] < o[i])
	}
	return r
}

// OnesCount returns the population count of each lane.
func (m U32x4) OnesCount() U32x4 {
	var r U32x4
	for i := range m {
		r[i] = uint32(bits.OnesCount32(m[i]))
	}
	return r
}

// Bits reinterprets the lanes as uint32.
func (v I32x4) Bits() U32x4 {
	var r U32x4
	for i := range v {
		r[i] = uint32(v[i])
	}
	return r
}

// Float reinterprets the lanes as float32 bit patterns.
func (v I32x4) Float() F32x4 {
	return v.Bits().Float()
}

// ToF32 converts each lane to float32.
func (v I32x4) ToF32() F32x4 {
	var r F32x4
	for i := range v {
		r[i] = float32(v[i])
	}
	return r
}

// Add performs lane-wise wrapping addition.
func (v I32x4) Add(o I32x4) I32x4 {
	var r I32x4
	for i := range v {
		r[i] = v[i] + o[i]
	}
	return r
}

// Sub performs lane-wise wrapping subtraction.
func (v I32x4) Sub(o I32x4) I32x4 {
	var r I32x4
	for i := range v {
		r[i] = v[i] - o[i]
	}
	return r
}

// Mul performs lane-wise wrapping multiplication.
func (v I32x4) Mul(o I32x4) I32x4 {
	var r I32x4
	for i := range v {
		r[i] = v[i] * o[i]
	}
	return r
}

// Div performs lane-wise signed division truncating toward zero.
// x/0 yields -1 and MinInt32/-1 yields MinInt32.
func (v I32x4) Div(o I32x4) I32x4 {
	var r I32x4
	for i := range v {
		switch {
		case o[i] == 0:
			r[i] = -1
		case o[i] == -1:
			r[i] = -v[i]
		default:
			r[i] = v[i] / o[i]
		}
	}
	return r
}

// Mod performs lane-wise signed remainder with the sign of the dividend.
// x%0 yields -1.
func (v I32x4) Mod(o I32x4) I32x4 {
	var r I32x4
	for i := range v {
		switch {
		case o[i] == 0:
			r[i] = -1
		case o[i] == -1:
			r[i] = 0
		default:
			r[i] = v[i] % o[i]
		}
	}
	return r
}

// Neg performs lane-wise wrapping negation.
func (v I32x4) Neg() I32x4 {
	var r I32x4
	for i := range v {
		r[i] = -v[i]
	}
	return r
}

// Shr shifts each lane right (arithmetic) by the low 5 bits of o.
func (v I32x4) Shr(o U32x4) I32x4 {
	var r I32x4
	for i := range v {
		r[i] = v[i] >> (o[i] & 31)
	}
	return r
}

// Min performs lane-wise signed minimum.
func (v I32x4) Min(o I32x4) I32x4 {
	var r I32x4
	for i := range v {
		r[i] = min(v[i], o[i])
	}
	return r
}

// Max performs lane-wise signed maximum.
func (v I32x4) Max(o I32x4) I32x4 {
	var r I32x4
	for i := range v {
		r[i] = max(v[i], o[i])
	}
	return r
}

// Clamp clamps each lane to [lo, hi].
func (v I32x4) Clamp(lo, hi int32) I32x4 {
	var r I32x4
	for i := range v {
		r[i] = min(max(v[i], lo), hi)
	}
	return r
}

// CmpEQ returns a lane mask of v == o.
func (v I32x4) CmpEQ(o I32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] == o[i])
	}
	return r
}

// CmpLT returns a lane mask of v < o.
func (v I32x4) CmpLT(o I32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] < o[i])
	}
	return r
}

// CmpGT returns a lane mask of v > o.
func (v I32x4) CmpGT(o I32x4) U32x4 {
	var r U32x4
	for i := range v {
		r[i] = boolMask(v[i] > o[i])
	}
	return r
}
