package jit

import (
	"github.com/gogpu/shaderjit/texture"
	"github.com/gogpu/shaderjit/wide"
	"golang.org/x/image/math/f32"
)

// Batch is the per-invocation interface between a renderer and a routine:
// four lanes of inputs in, four lanes of outputs out.
type Batch struct {
	// Inputs holds v# registers. Missing registers read as zero.
	Inputs []wide.Vec4

	// Outputs receives o# registers. Run grows it when it is shorter than
	// the routine's output count.
	Outputs []wide.Vec4

	// Constants is the uniform block of the draw call. It may be nil.
	Constants *Constants

	// Samplers is indexed by sampler slot. A nil or missing slot samples
	// as transparent black.
	Samplers []texture.Sampler

	// Position is the pixel position (x, y, z, 1/w) of each lane.
	Position wide.Vec4

	// Face is +1 for front facing and -1 for back facing primitives.
	Face wide.F32x4

	InstanceID wide.I32x4
	VertexID   wide.I32x4

	// Coverage holds the lanes still alive in a pixel batch. TEXKILL and
	// DISCARD clear lanes. Run does not reset it; renderers start it at
	// wide.AllOnes or at their raster coverage.
	Coverage wide.U32x4

	// Depth receives oDepth writes.
	Depth wide.F32x4
}

// Constants holds the uniform registers of a draw call. Reads outside a
// table return zero.
type Constants struct {
	Float [][4]float32 // c#
	Int   [][4]int32   // i#
	Bool  []bool       // b#
}

// SetVec4 stores v into float register c#i, growing the table if needed.
func (c *Constants) SetVec4(i int, v f32.Vec4) {
	c.grow(i + 1)
	c.Float[i] = v
}

// SetMat4 stores m into float registers c#i..c#i+3, one row per register.
func (c *Constants) SetMat4(i int, m f32.Mat4) {
	c.grow(i + 4)
	for r := range 4 {
		c.Float[i+r] = [4]float32(m[r*4 : r*4+4])
	}
}

// SetInt stores v into integer register i#i.
func (c *Constants) SetInt(i int, v [4]int32) {
	for len(c.Int) <= i {
		c.Int = append(c.Int, [4]int32{})
	}
	c.Int[i] = v
}

// SetBool stores v into boolean register b#i.
func (c *Constants) SetBool(i int, v bool) {
	for len(c.Bool) <= i {
		c.Bool = append(c.Bool, false)
	}
	c.Bool[i] = v
}

func (c *Constants) grow(n int) {
	if len(c.Float) < n {
		c.Float = append(c.Float, make([][4]float32, n-len(c.Float))...)
	}
}
