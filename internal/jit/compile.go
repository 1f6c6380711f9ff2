package jit

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
)

// Trace is called after every executed instruction with its index and the
// register state. It is a debugging and testing aid; routines compiled
// with a trace run noticeably slower.
type Trace func(pc int, r *Registers)

// Options configure Compile.
type Options struct {
	// Limits bound the program. The zero value means shader.DefaultLimits.
	Limits shader.Limits

	Trace Trace
}

// compiler holds the state of one compilation. It is discarded once the
// Routine is built.
type compiler struct {
	prog  *shader.Program
	an    *shader.Analysis
	lim   shader.Limits
	trace Trace
	b     *builder

	defRows []defRow
	quad    bool

	entries  map[uint32]blockID   // function entry per label
	returns  map[uint32][]blockID // return block per call site of a label
	loopExit map[int]blockID      // exit block per LOOP, REP, WHILE, SWITCH
	ctl      []control
}

// control is an open block while a function body is compiled.
type control struct {
	pc      int
	op      shader.Opcode
	perLane bool
	body    blockID
	head    blockID
	exit    blockID
}

// Compile validates p and compiles it into a Routine. Any failure aborts
// the whole compilation; no partial routine is returned.
func Compile(p *shader.Program, opts Options) (*Routine, error) {
	lim := opts.Limits
	if lim == (shader.Limits{}) {
		lim = shader.DefaultLimits()
	}
	if p.Stage != gputypes.ShaderStageVertex && p.Stage != gputypes.ShaderStageFragment {
		return nil, p.Errorf(-1, shader.ErrStage, "unsupported stage %s", p.Stage)
	}

	an, err := shader.Analyze(p, lim)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		prog:     p,
		an:       an,
		lim:      lim,
		trace:    opts.Trace,
		b:        newBuilder(),
		defRows:  buildDefRows(an.Defs),
		quad:     p.Stage == gputypes.ShaderStageFragment,
		entries:  make(map[uint32]blockID),
		returns:  make(map[uint32][]blockID),
		loopExit: make(map[int]blockID),
	}

	labels := slices.Sorted(maps.Keys(an.Labels))
	entry := c.b.blockAt(0)
	for _, label := range labels {
		c.entries[label] = c.b.blockAt(an.Labels[label] + 1)
		rets := make([]blockID, len(an.CallSites[label]))
		for i := range rets {
			rets[i] = c.b.newBlock()
		}
		c.returns[label] = rets
	}

	if err := c.function(shader.Main, entry); err != nil {
		return nil, err
	}
	for _, label := range labels {
		if err := c.function(int(label), c.entries[label]); err != nil {
			return nil, err
		}
	}
	c.b.seal()

	rt := &Routine{
		blocks:        c.b.blocks,
		entry:         entry,
		stage:         p.Stage,
		key:           p.Hash(),
		temps:         an.Temps,
		inputs:        an.Inputs,
		outputs:       an.Outputs,
		loopDepth:     an.LoopDepth,
		nesting:       an.Nesting,
		callDepth:     an.CallDepth,
		sites:         an.NumSites,
		samplers:      an.Samplers,
		constLimit:    an.ConstLimit,
		relativeConst: an.RelativeConst,
	}
	rt.pool.New = func() any { return newRegisters(rt) }

	slogger().Debug("jit: compiled routine",
		slog.String("stage", p.Stage.String()),
		slog.Int("instructions", an.End),
		slog.Int("blocks", len(rt.blocks)),
		slog.Int("temps", an.Temps),
		slog.Int("nesting", an.Nesting),
		slog.Int("callSites", an.NumSites))
	return rt, nil
}

// function compiles the body of fn starting in block entry.
func (c *compiler) function(fn int, entry blockID) error {
	start, end := c.an.Body(fn)
	if fn != shader.Main {
		start++ // LABEL
	}
	c.b.cur = exit
	c.b.begin(entry)
	c.ctl = c.ctl[:0]

	for pc := start; pc < end; pc++ {
		if id, ok := c.b.at[pc]; ok {
			c.b.begin(id)
		}
		if err := c.instruction(pc); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) instruction(pc int) error {
	in := &c.prog.Instructions[pc]
	switch {
	case in.Op == shader.OpNop || in.Op.IsDeclaration():
		return nil
	case in.Op.IsFlow():
		return c.flow(pc, in)
	}

	var (
		op  func(*Registers)
		err error
	)
	if in.Op.IsTexture() {
		op, err = c.textureOp(pc, in)
	} else {
		op, err = c.alu(pc, in)
	}
	if err != nil {
		return err
	}
	c.emit(pc, op)
	return nil
}

// emit appends the operation of instruction pc, followed by the trace
// callback when one is installed.
func (c *compiler) emit(pc int, op func(*Registers)) {
	if c.trace != nil {
		trace, inner := c.trace, op
		op = func(r *Registers) {
			if inner != nil {
				inner(r)
			}
			trace(pc, r)
		}
	}
	if op != nil {
		c.b.emit(op)
	}
}
