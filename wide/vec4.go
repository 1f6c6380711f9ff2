package wide

// Vec4 holds four components (x, y, z, w) of a shader register, each one
// F32x4 with a value per lane. This Structure-of-Arrays layout lets every
// component operation run across the whole batch at once.
type Vec4 [4]F32x4

// Component indices into a Vec4.
const (
	X = 0
	Y = 1
	Z = 2
	W = 3
)

// Uniform builds a Vec4 whose lanes all hold the same (x, y, z, w) value.
func Uniform(x, y, z, w float32) Vec4 {
	return Vec4{SplatF32(x), SplatF32(y), SplatF32(z), SplatF32(w)}
}

// UniformRow builds a Vec4 broadcasting one register row to every lane.
func UniformRow(row [4]float32) Vec4 {
	return Uniform(row[0], row[1], row[2], row[3])
}

// Splat builds a Vec4 with every component equal to s.
func Splat(s F32x4) Vec4 {
	return Vec4{s, s, s, s}
}

// FromRows transposes four per-lane rows into component layout:
// rows[lane] holds (x, y, z, w) for that lane.
func FromRows(rows *[4][4]float32) Vec4 {
	var v Vec4
	for lane := range rows {
		for c := range v {
			v[c][lane] = rows[lane][c]
		}
	}
	return v
}

// Row returns the (x, y, z, w) value of one lane.
func (v Vec4) Row(lane int) [4]float32 {
	return [4]float32{v[X][lane], v[Y][lane], v[Z][lane], v[W][lane]}
}

// SetRow stores (x, y, z, w) into one lane.
func (v *Vec4) SetRow(lane int, row [4]float32) {
	for c := range v {
		v[c][lane] = row[c]
	}
}

// Swizzle reorders components. Bits 2i..2i+1 of sw select the source
// component written to destination component i; 0xE4 is the identity.
func (v Vec4) Swizzle(sw uint8) Vec4 {
	return Vec4{
		v[sw&3],
		v[(sw>>2)&3],
		v[(sw>>4)&3],
		v[(sw>>6)&3],
	}
}

// Neg negates every component.
func (v Vec4) Neg() Vec4 {
	return Vec4{v[0].Neg(), v[1].Neg(), v[2].Neg(), v[3].Neg()}
}

// Abs takes the absolute value of every component.
func (v Vec4) Abs() Vec4 {
	return Vec4{v[0].Abs(), v[1].Abs(), v[2].Abs(), v[3].Abs()}
}

// Not complements the bit pattern of every component.
func (v Vec4) Not() Vec4 {
	return Vec4{
		v[0].Bits().Not().Float(),
		v[1].Bits().Not().Float(),
		v[2].Bits().Not().Float(),
		v[3].Bits().Not().Float(),
	}
}

// Saturate clamps every component to [0, 1].
func (v Vec4) Saturate() Vec4 {
	return Vec4{v[0].Saturate(), v[1].Saturate(), v[2].Saturate(), v[3].Saturate()}
}

// SelectVec4 picks a where m is set and b elsewhere, for every component.
func SelectVec4(m U32x4, a, b Vec4) Vec4 {
	return Vec4{
		Select(m, a[0], b[0]),
		Select(m, a[1], b[1]),
		Select(m, a[2], b[2]),
		Select(m, a[3], b[3]),
	}
}
