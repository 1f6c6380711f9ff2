package texture

import "github.com/gogpu/shaderjit/wide"

// Method selects how the level of detail of a Request is determined.
type Method uint8

const (
	// Implicit derives the level of detail from the coordinates of the
	// pixel quad, or uses level 0 outside a quad.
	Implicit Method = iota

	// Bias adds Request.Lod to the implicit level of detail.
	Bias

	// Lod uses Request.Lod as the level of detail.
	Lod

	// Grad derives the level of detail from Request.DDX and Request.DDY.
	Grad

	// Fetch reads a single texel without filtering. Coord x and y hold
	// integer texel coordinates and Lod holds the integer level, all as
	// integer bit patterns.
	Fetch
)

func (m Method) String() string {
	switch m {
	case Implicit:
		return "Implicit"
	case Bias:
		return "Bias"
	case Lod:
		return "Lod"
	case Grad:
		return "Grad"
	case Fetch:
		return "Fetch"
	default:
		return "Unknown"
	}
}

// Request carries the arguments of one texture instruction for all lanes.
type Request struct {
	Method Method

	// Coord holds (u, v, w, ref) per lane. For comparison samplers the
	// reference value is read from Coord z.
	Coord wide.Vec4

	// Lod is the bias for Bias, the level for Lod, and the integer level
	// for Fetch.
	Lod wide.F32x4

	// DDX and DDY are the coordinate gradients used by Grad.
	DDX, DDY wide.Vec4

	// Offset is added to the texel coordinates (x, y, z) after scaling.
	Offset [3]wide.I32x4

	// Quad reports that the four lanes are a 2×2 pixel quad laid out as
	// (0, 1) on the top row and (2, 3) on the bottom row.
	Quad bool
}

// Sampler is implemented by anything a shader can sample through. The
// engine calls Sample once per texture instruction for the whole batch.
type Sampler interface {
	// Sample returns the filtered RGBA value for every lane.
	Sample(req *Request) wide.Vec4

	// Size returns (width, height, depth, levels) of mip level lod, or
	// zeros when lod is out of range.
	Size(lod int32) [4]int32
}
