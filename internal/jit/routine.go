package jit

import (
	"sync"

	"github.com/gogpu/gputypes"
)

// Routine is a compiled program. It is immutable and safe for concurrent
// use: every Run takes its own Registers from an internal pool.
type Routine struct {
	blocks []block
	entry  blockID
	pool   sync.Pool

	stage gputypes.ShaderStage
	key   uint64

	temps, inputs, outputs        int
	loopDepth, nesting, callDepth int
	sites                         int

	samplers      uint32
	constLimit    int
	relativeConst bool
}

// Run executes the routine over one batch of four lanes.
func (rt *Routine) Run(b *Batch) {
	r := rt.pool.Get().(*Registers)
	r.reset(rt, b)

	for id := rt.entry; id != exit; {
		blk := &rt.blocks[id]
		for _, op := range blk.ops {
			op(r)
		}
		id = blk.next(r)
	}

	r.batch, r.inputs, r.outputs, r.consts = nil, nil, nil, nil
	rt.pool.Put(r)
}

// Samplers returns the sampler slots the routine may read, bit i for s#i.
func (rt *Routine) Samplers() uint32 { return rt.samplers }

// ConstantRange returns one past the highest float constant register read
// statically, and whether any constant is read through a relative address.
func (rt *Routine) ConstantRange() (int, bool) { return rt.constLimit, rt.relativeConst }

// Key identifies the program the routine was compiled from.
func (rt *Routine) Key() uint64 { return rt.key }

// Stage returns the pipeline stage of the routine.
func (rt *Routine) Stage() gputypes.ShaderStage { return rt.stage }

// Inputs returns the number of input registers the routine reads.
func (rt *Routine) Inputs() int { return rt.inputs }

// Outputs returns the number of output registers the routine writes.
func (rt *Routine) Outputs() int { return rt.outputs }
