package wide

import "math"

// PackSnorm2x16 packs x and y, clamped to [-1, 1], as signed 16-bit
// normalized integers: x in the low half, y in the high half.
func PackSnorm2x16(x, y F32x4) U32x4 {
	var r U32x4
	for i := range r {
		lo := uint16(int16(math.RoundToEven(float64(clampf(x[i], -1, 1)) * 32767)))
		hi := uint16(int16(math.RoundToEven(float64(clampf(y[i], -1, 1)) * 32767)))
		r[i] = uint32(lo) | uint32(hi)<<16
	}
	return r
}

// PackUnorm2x16 packs x and y, clamped to [0, 1], as unsigned 16-bit
// normalized integers.
func PackUnorm2x16(x, y F32x4) U32x4 {
	var r U32x4
	for i := range r {
		lo := uint16(math.RoundToEven(float64(clampf(x[i], 0, 1)) * 65535))
		hi := uint16(math.RoundToEven(float64(clampf(y[i], 0, 1)) * 65535))
		r[i] = uint32(lo) | uint32(hi)<<16
	}
	return r
}

// PackHalf2x16 packs x and y as IEEE half-precision values.
func PackHalf2x16(x, y F32x4) U32x4 {
	var r U32x4
	for i := range r {
		r[i] = uint32(HalfFromFloat(x[i])) | uint32(HalfFromFloat(y[i]))<<16
	}
	return r
}

// UnpackSnorm2x16 is the inverse of PackSnorm2x16.
func UnpackSnorm2x16(p U32x4) (x, y F32x4) {
	for i := range p {
		x[i] = clampf(float32(int16(p[i]))/32767, -1, 1)
		y[i] = clampf(float32(int16(p[i]>>16))/32767, -1, 1)
	}
	return x, y
}

// UnpackUnorm2x16 is the inverse of PackUnorm2x16.
func UnpackUnorm2x16(p U32x4) (x, y F32x4) {
	for i := range p {
		x[i] = float32(uint16(p[i])) / 65535
		y[i] = float32(uint16(p[i]>>16)) / 65535
	}
	return x, y
}

// UnpackHalf2x16 is the inverse of PackHalf2x16.
func UnpackHalf2x16(p U32x4) (x, y F32x4) {
	for i := range p {
		x[i] = FloatFromHalf(uint16(p[i]))
		y[i] = FloatFromHalf(uint16(p[i] >> 16))
	}
	return x, y
}

// HalfFromFloat converts f to half precision, rounding to nearest even.
// Values beyond the half range become infinities; NaN stays NaN.
func HalfFromFloat(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23) & 0xff
	mant := b & 0x7fffff

	if exp == 0xff {
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}

	e := exp - 127 + 15
	if e >= 0x1f {
		return sign | 0x7c00
	}
	if e <= 0 {
		if e < -10 {
			return sign
		}
		full := mant | 0x800000
		shift := uint32(14 - e)
		h := full >> shift
		rem := full & (1<<shift - 1)
		halfway := uint32(1) << (shift - 1)
		if rem > halfway || (rem == halfway && h&1 == 1) {
			h++
		}
		return sign | uint16(h)
	}

	h := uint32(e)<<10 | mant>>13
	rem := mant & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
		h++ // a carry into the exponent is the correct rounding
	}
	return sign | uint16(h)
}

// FloatFromHalf converts a half-precision bit pattern to float32 exactly.
func FloatFromHalf(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	case 0:
		f := float32(mant) / (1 << 24)
		if sign != 0 {
			f = -f
		}
		return f
	default:
		return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
	}
}

func clampf(v, lo, hi float32) float32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	case v != v:
		return 0
	default:
		return v
	}
}
