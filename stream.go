package shaderjit

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/texture"
	"github.com/gogpu/shaderjit/wide"
	"golang.org/x/image/math/f32"
)

// Lanes is the number of vertices or pixels a Routine processes per Run.
const Lanes = 4

// batchesPerTask is how many batches one worker task runs.
const batchesPerTask = 64

// Draw holds the state shared by every vertex of a ProcessVertices call.
type Draw struct {
	Constants *Constants
	Samplers  []texture.Sampler

	// FirstVertex is the vertex id of the first vertex in the stream.
	FirstVertex int32
	Instance    int32
}

// ProcessVertices runs a vertex routine over a stream. vertices[i] holds
// the input registers v0, v1, ... of vertex i; the result holds the output
// registers o0, o1, ... of each vertex.
//
// The stream is cut into batches of Lanes vertices which run in parallel
// on the Compiler's worker pool. A short final batch repeats its last
// vertex in the unused lanes; their outputs are discarded. Results are
// identical to running the batches one after another.
func (c *Compiler) ProcessVertices(ctx context.Context, rt *Routine, vertices [][]f32.Vec4, d Draw) ([][]f32.Vec4, error) {
	if rt.Stage() != gputypes.ShaderStageVertex {
		return nil, fmt.Errorf("shaderjit: process vertices: %w: routine stage %s", shader.ErrStage, rt.Stage())
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	out := make([][]f32.Vec4, len(vertices))
	outputs := rt.Outputs()
	for i := range out {
		out[i] = make([]f32.Vec4, outputs)
	}
	batches := (len(vertices) + Lanes - 1) / Lanes

	c.workers().Range(batches, batchesPerTask, func(lo, hi int) {
		if ctx.Err() != nil {
			return
		}
		b := Batch{Constants: d.Constants, Samplers: d.Samplers, Coverage: wide.AllOnes}
		for n := lo; n < hi; n++ {
			runVertexBatch(rt, &b, vertices, out, n*Lanes, d)
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// runVertexBatch gathers vertices [first, first+Lanes) into b, runs rt and
// scatters the outputs.
func runVertexBatch(rt *Routine, b *Batch, vertices, out [][]f32.Vec4, first int, d Draw) {
	n := min(Lanes, len(vertices)-first)

	inputs := 0
	for l := range n {
		inputs = max(inputs, len(vertices[first+l]))
	}
	b.Inputs = resize(b.Inputs, inputs)
	clear(b.Inputs)
	for lane := range Lanes {
		src := vertices[first+min(lane, n-1)]
		for r, v := range src {
			b.Inputs[r].SetRow(lane, v)
		}
		b.VertexID[lane] = d.FirstVertex + int32(first+min(lane, n-1))
	}
	b.InstanceID = wide.SplatI32(d.Instance)
	clear(b.Outputs)

	rt.Run(b)

	for lane := range n {
		dst := out[first+lane]
		for r := range dst {
			if r < len(b.Outputs) {
				dst[r] = b.Outputs[r].Row(lane)
			}
		}
	}
}

func resize(v []wide.Vec4, n int) []wide.Vec4 {
	if cap(v) < n {
		return make([]wide.Vec4, n)
	}
	return v[:n]
}
