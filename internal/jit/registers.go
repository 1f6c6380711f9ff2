package jit

import (
	"github.com/gogpu/shaderjit/wide"
)

// Registers is the mutable state of one routine invocation. Every emitted
// closure receives it; nothing else is written while a routine runs.
type Registers struct {
	batch   *Batch
	temps   []wide.Vec4
	inputs  []wide.Vec4
	outputs []wide.Vec4
	consts  [][4]float32

	a0 wide.Vec4 // integer bits
	p0 wide.Vec4 // lane masks

	// Loop state, indexed by the dynamic loop nesting level. Level 0 is
	// outside any loop.
	loopIndex int
	aL        []int32
	iteration []int32
	increment []int32
	frames    []loopFrame

	enable         []wide.U32x4
	enableIndex    int
	enableBreak    wide.U32x4
	enableContinue wide.U32x4
	enableLeave    wide.U32x4

	callStack []int32
	callTop   int
	sites     []siteFrame

	inputBuf  []wide.Vec4
	outputBuf []wide.Vec4
}

// loopFrame holds the state a LOOP, REP, WHILE or SWITCH restores on exit.
type loopFrame struct {
	brk, cont   wide.U32x4
	enableIndex int
}

// siteFrame holds the caller state restored when a call returns.
type siteFrame struct {
	leave       wide.U32x4
	enableIndex int
}

func newRegisters(rt *Routine) *Registers {
	loops := rt.loopDepth + 1
	return &Registers{
		temps:     make([]wide.Vec4, max(rt.temps, 1)),
		aL:        make([]int32, loops),
		iteration: make([]int32, loops),
		increment: make([]int32, loops),
		frames:    make([]loopFrame, loops),
		enable:    make([]wide.U32x4, rt.nesting+1),
		callStack: make([]int32, rt.callDepth+1),
		sites:     make([]siteFrame, rt.sites),
		inputBuf:  make([]wide.Vec4, max(rt.inputs, 1)),
		outputBuf: make([]wide.Vec4, max(rt.outputs, 1)),
	}
}

// reset prepares r for a run over b. Temporaries start at zero so a run
// never observes a previous batch.
func (r *Registers) reset(rt *Routine, b *Batch) {
	r.batch = b
	clear(r.temps)
	r.a0, r.p0 = wide.Vec4{}, wide.Vec4{}

	r.inputs = b.Inputs
	if len(b.Inputs) < rt.inputs {
		clear(r.inputBuf)
		copy(r.inputBuf, b.Inputs)
		r.inputs = r.inputBuf
	}
	if len(b.Outputs) < rt.outputs {
		b.Outputs = append(b.Outputs, make([]wide.Vec4, rt.outputs-len(b.Outputs))...)
	}
	r.outputs = b.Outputs
	if len(r.outputs) == 0 {
		r.outputs = r.outputBuf
	}

	r.consts = nil
	if b.Constants != nil {
		r.consts = b.Constants.Float
	}

	r.loopIndex = 0
	r.aL[0] = 0
	r.enableIndex = 0
	r.enable[0] = wide.AllOnes
	r.enableBreak = wide.AllOnes
	r.enableContinue = wide.AllOnes
	r.enableLeave = wide.AllOnes
	r.callTop = 0
}

// effective returns the lanes an instruction may write. Instructions
// re-evaluating a WHILE condition ignore CONTINUE.
func (r *Registers) effective(whileTest bool) wide.U32x4 {
	m := r.enable[r.enableIndex].And(r.enableBreak).And(r.enableLeave)
	if !whileTest {
		m = m.And(r.enableContinue)
	}
	return m
}

func (r *Registers) push(m wide.U32x4) {
	r.enableIndex++
	r.enable[r.enableIndex] = m
}

// Effective returns the lanes enabled for an ordinary instruction at the
// current point of execution.
func (r *Registers) Effective() wide.U32x4 { return r.effective(false) }

// EnableStack returns the live part of the lane-enable stack, bottom first.
// The slice aliases r and is only valid during a trace callback.
func (r *Registers) EnableStack() []wide.U32x4 { return r.enable[:r.enableIndex+1] }

// Temp returns temporary register r#i.
func (r *Registers) Temp(i int) wide.Vec4 { return r.temps[i] }

// LoopCounter returns aL of the innermost loop.
func (r *Registers) LoopCounter() int32 { return r.aL[r.loopIndex] }

// Batch returns the batch being processed.
func (r *Registers) Batch() *Batch { return r.batch }
