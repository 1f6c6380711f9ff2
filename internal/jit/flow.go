package jit

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wide"
)

// flow compiles a control-flow instruction into lane-mask updates and
// block terminators.
func (c *compiler) flow(pc int, in *shader.Instruction) error {
	switch in.Op {
	case shader.OpIf, shader.OpIfc:
		return c.ifBlock(pc, in)
	case shader.OpElse:
		return c.elseBlock(pc)
	case shader.OpEndIf:
		return c.endIf(pc)
	case shader.OpLoop, shader.OpRep:
		return c.loop(pc, in)
	case shader.OpEndLoop, shader.OpEndRep:
		return c.endLoop(pc)
	case shader.OpWhile:
		return c.while(pc, in)
	case shader.OpEndWhile:
		return c.endWhile(pc)
	case shader.OpSwitch:
		return c.switchBlock(pc)
	case shader.OpEndSwitch:
		return c.endSwitch(pc)
	case shader.OpBreak, shader.OpBreakc, shader.OpBreakp:
		return c.breakLoop(pc, in)
	case shader.OpContinue:
		whileTest := c.an.WhileTest(pc)
		c.emit(pc, func(r *Registers) {
			r.enableContinue = r.enableContinue.AndNot(r.effective(whileTest))
		})
		return nil
	case shader.OpCall, shader.OpCallnz:
		return c.call(pc, in)
	case shader.OpRet:
		return c.ret(pc)
	case shader.OpLeave:
		c.emit(pc, c.leave(pc))
		return nil
	case shader.OpTest:
		c.emit(pc, nil)
		return nil
	}
	return c.prog.Errorf(pc, shader.ErrUnknownOpcode, "unexpected %s", in.Op)
}

func topMask(r *Registers) wide.U32x4 { return r.enable[r.enableIndex] }

// condition compiles the per-lane condition of IF, IFC, CALLNZ, WHILE and
// BREAKP: component x of a boolean operand, or a comparison for IFC.
func (c *compiler) condition(pc int, in *shader.Instruction, src int) (func(*Registers) wide.U32x4, error) {
	if in.Op == shader.OpIfc {
		return c.comparison(pc, in.Compare, &in.Src[0], &in.Src[1])
	}
	read, err := c.fetch(pc, &in.Src[src])
	if err != nil {
		return nil, err
	}
	return func(r *Registers) wide.U32x4 { return laneMask(read(r)) }, nil
}

// comparison compiles a float comparison of component x of a and b.
func (c *compiler) comparison(pc int, f gputypes.CompareFunction, a, b *shader.Src) (func(*Registers) wide.U32x4, error) {
	ra, err := c.fetch(pc, a)
	if err != nil {
		return nil, err
	}
	rb, err := c.fetch(pc, b)
	if err != nil {
		return nil, err
	}
	cmp, err := c.compareFloat(pc, f)
	if err != nil {
		return nil, err
	}
	return func(r *Registers) wide.U32x4 {
		return cmp(ra(r)[wide.X], rb(r)[wide.X])
	}, nil
}

func (c *compiler) ifBlock(pc int, in *shader.Instruction) error {
	b := c.b
	next := c.an.Match[pc] // ELSE or ENDIF
	then := b.blockAt(pc + 1)
	perLane := c.an.PerLane(pc)
	c.ctl = append(c.ctl, control{pc: pc, op: in.Op, perLane: perLane})

	cond, err := c.condition(pc, in, 0)
	if err != nil {
		return err
	}

	if !perLane {
		skip := next
		if c.prog.Instructions[next].Op == shader.OpElse {
			skip = next + 1
		}
		c.emit(pc, nil)
		b.terminate(branch(func(r *Registers) bool { return cond(r)[0] != 0 }, then, b.blockAt(skip)), pc+1)
		return nil
	}

	c.emit(pc, func(r *Registers) {
		r.push(topMask(r).And(cond(r)))
	})
	b.terminate(branchAny(topMask, then, b.blockAt(next)), pc+1)
	return nil
}

func (c *compiler) elseBlock(pc int) error {
	b := c.b
	top := c.ctl[len(c.ctl)-1]
	endif := c.an.Match[pc]

	if !top.perLane {
		// Reached only from the end of the taken branch.
		c.emit(pc, nil)
		b.terminate(jump(b.blockAt(endif)), pc+1)
		return nil
	}
	c.emit(pc, func(r *Registers) {
		i := r.enableIndex
		r.enable[i] = r.enable[i-1].AndNot(r.enable[i])
	})
	b.terminate(branchAny(topMask, b.blockAt(pc+1), b.blockAt(endif)), pc+1)
	return nil
}

func (c *compiler) endIf(pc int) error {
	top := c.ctl[len(c.ctl)-1]
	c.ctl = c.ctl[:len(c.ctl)-1]
	if !top.perLane {
		c.emit(pc, nil)
		return nil
	}
	c.emit(pc, func(r *Registers) { r.enableIndex-- })
	return nil
}

// enterLoop opens a loop frame. Lanes enabled on entry are the lanes the
// loop may run; enableBreak starts as exactly that set so lanes broken out
// of an enclosing loop never come back.
func enterLoop(r *Registers, eff wide.U32x4) int {
	r.loopIndex++
	l := r.loopIndex
	r.frames[l] = loopFrame{brk: r.enableBreak, cont: r.enableContinue, enableIndex: r.enableIndex}
	r.enableBreak = eff
	r.aL[l] = r.aL[l-1]
	r.iteration[l] = 0
	r.increment[l] = 0
	return l
}

func exitLoop(r *Registers) {
	f := &r.frames[r.loopIndex]
	r.enableBreak, r.enableContinue, r.enableIndex = f.brk, f.cont, f.enableIndex
	r.loopIndex--
}

func resetContinue(r *Registers) { r.enableContinue = wide.AllOnes }

func (c *compiler) loop(pc int, in *shader.Instruction) error {
	b := c.b
	whileTest := c.an.WhileTest(pc)
	maxIter := int32(c.lim.MaxLoopIterations)

	ctrl := &in.Src[1]
	if in.Op == shader.OpRep {
		ctrl = &in.Src[0]
	}
	if ctrl.Type != shader.RegConstInt && ctrl.Type != shader.RegImmediate {
		return c.prog.Errorf(pc, shader.ErrOperand, "loop control from %s", ctrl.Type)
	}
	read, err := c.raw(pc, ctrl)
	if err != nil {
		return err
	}
	rep := in.Op == shader.OpRep

	head, body, exitB := b.newBlock(), b.newBlock(), b.newBlock()
	c.loopExit[pc] = exitB
	c.ctl = append(c.ctl, control{pc: pc, op: in.Op, head: head, body: body, exit: exitB})
	b.bind(pc+1, body)

	c.emit(pc, func(r *Registers) {
		// (count, start, step) as integers; immediates carry bit patterns.
		v := read(r)
		l := enterLoop(r, r.effective(whileTest))
		r.iteration[l] = min(max(intBits(v[0][0]), 0), maxIter)
		if rep {
			return
		}
		r.aL[l] = intBits(v[1][0])
		step := intBits(v[2][0])
		if step == 0 {
			step = 1
		}
		r.increment[l] = step
	})
	b.end(jump(head))

	b.begin(head)
	b.end(func(r *Registers) blockID {
		if r.iteration[r.loopIndex] > 0 && r.enableBreak.Any() {
			return body
		}
		return exitB
	})

	b.begin(body)
	b.emit(resetContinue)
	return nil
}

func (c *compiler) endLoop(pc int) error {
	b := c.b
	top := c.ctl[len(c.ctl)-1]
	c.ctl = c.ctl[:len(c.ctl)-1]

	c.emit(pc, func(r *Registers) {
		l := r.loopIndex
		r.aL[l] += r.increment[l]
		r.iteration[l]--
	})
	b.end(jump(top.head))
	c.closeLoop(pc, top.exit, exitLoop)
	return nil
}

// closeLoop fills the exit block of a loop and continues after pc.
func (c *compiler) closeLoop(pc int, exitB blockID, restore func(*Registers)) {
	b := c.b
	b.cur = exitB
	b.emit(restore)
	after := b.blockAt(pc + 1)
	b.end(jump(after))
	b.cur = after
}

func (c *compiler) while(pc int, in *shader.Instruction) error {
	b := c.b
	whileTest := c.an.WhileTest(pc)
	cond, err := c.condition(pc, in, 0)
	if err != nil {
		return err
	}

	body, exitB := b.newBlock(), b.newBlock()
	c.loopExit[pc] = exitB
	c.ctl = append(c.ctl, control{pc: pc, op: in.Op, body: body, exit: exitB})
	b.bind(pc+1, body)

	c.emit(pc, func(r *Registers) {
		eff := r.effective(whileTest)
		enterLoop(r, eff)
		r.push(cond(r).And(eff))
	})
	b.end(branchAny(topMask, body, exitB))

	b.begin(body)
	b.emit(resetContinue)
	return nil
}

func (c *compiler) endWhile(pc int) error {
	b := c.b
	top := c.ctl[len(c.ctl)-1]
	c.ctl = c.ctl[:len(c.ctl)-1]
	opener := &c.prog.Instructions[top.pc]

	// The condition is read again at the end of every iteration. A lane
	// that fails it stays disabled for the rest of the loop.
	cond, err := c.condition(pc, opener, 0)
	if err != nil {
		return err
	}
	limit := int32(c.lim.MaxWhileIterations)

	c.emit(pc, func(r *Registers) {
		i := r.enableIndex
		r.enable[i] = cond(r).And(r.enable[i]).And(r.enableBreak).And(r.enableLeave)
		r.iteration[r.loopIndex]++
	})
	b.end(func(r *Registers) blockID {
		if topMask(r).Any() && r.iteration[r.loopIndex] < limit {
			return top.body
		}
		return top.exit
	})
	c.closeLoop(pc, top.exit, exitLoop)
	return nil
}

func (c *compiler) switchBlock(pc int) error {
	whileTest := c.an.WhileTest(pc)
	exitB := c.b.newBlock()
	c.loopExit[pc] = exitB
	c.ctl = append(c.ctl, control{pc: pc, op: shader.OpSwitch, exit: exitB})
	c.emit(pc, func(r *Registers) { enterLoop(r, r.effective(whileTest)) })
	return nil
}

func (c *compiler) endSwitch(pc int) error {
	top := c.ctl[len(c.ctl)-1]
	c.ctl = c.ctl[:len(c.ctl)-1]
	c.emit(pc, nil)
	c.b.end(jump(top.exit))
	// CONTINUE inside a SWITCH belongs to the enclosing loop and survives.
	c.closeLoop(pc, top.exit, func(r *Registers) {
		f := &r.frames[r.loopIndex]
		r.enableBreak, r.enableIndex = f.brk, f.enableIndex
		r.loopIndex--
	})
	return nil
}

func (c *compiler) breakLoop(pc int, in *shader.Instruction) error {
	b := c.b
	whileTest := c.an.WhileTest(pc)
	exitB := c.loopExit[c.an.Target[pc]]

	var cond func(*Registers) wide.U32x4
	switch in.Op {
	case shader.OpBreakc:
		cmp, err := c.comparison(pc, in.Compare, &in.Src[0], &in.Src[1])
		if err != nil {
			return err
		}
		cond = cmp
	case shader.OpBreakp:
		m, err := c.condition(pc, in, 0)
		if err != nil {
			return err
		}
		cond = m
	}

	c.emit(pc, func(r *Registers) {
		m := r.effective(whileTest)
		if cond != nil {
			m = m.And(cond(r))
		}
		r.enableBreak = r.enableBreak.AndNot(m)
	})
	// Once every lane has left the loop there is nothing left to iterate.
	b.terminate(branchAny(func(r *Registers) wide.U32x4 { return r.enableBreak }, b.blockAt(pc+1), exitB), pc+1)
	return nil
}

func (c *compiler) leave(pc int) func(*Registers) {
	whileTest := c.an.WhileTest(pc)
	return func(r *Registers) {
		r.enableLeave = r.enableLeave.AndNot(r.effective(whileTest))
	}
}

func (c *compiler) ret(pc int) error {
	b := c.b
	if len(c.ctl) > 0 {
		// Nested in a block: the enabled lanes are done with this function.
		c.emit(pc, c.leave(pc))
		return nil
	}

	fn := c.an.Function[pc]
	c.emit(pc, nil)
	if fn == shader.Main {
		b.terminate(jump(exit), pc+1)
		return nil
	}

	rets := c.returns[uint32(fn)]
	switch len(rets) {
	case 0:
		b.terminate(jump(exit), pc+1)
	case 1:
		b.terminate(jump(rets[0]), pc+1)
	default:
		b.terminate(func(r *Registers) blockID {
			r.callTop--
			return rets[r.callStack[r.callTop]]
		}, pc+1)
	}
	return nil
}

func (c *compiler) call(pc int, in *shader.Instruction) error {
	b := c.b
	label := in.Src[0].Index
	site := c.an.SiteID[pc]
	sites := c.an.CallSites[label]
	multi := len(sites) > 1
	k := int32(0)
	for i, s := range sites {
		if s == pc {
			k = int32(i)
		}
	}
	entry := c.entries[label]
	after := b.blockAt(pc + 1)

	// The return block restores the caller's state, then resumes after
	// the call.
	ret := c.returns[label][k]
	b.blocks[ret].ops = []func(*Registers){func(r *Registers) {
		f := &r.sites[site]
		r.enableLeave, r.enableIndex = f.leave, f.enableIndex
	}}
	b.blocks[ret].next = jump(after)

	enter := func(r *Registers) {
		r.sites[site] = siteFrame{leave: r.enableLeave, enableIndex: r.enableIndex}
		if multi {
			r.callStack[r.callTop] = k
			r.callTop++
		}
	}

	if in.Op == shader.OpCall {
		c.emit(pc, enter)
		b.terminate(jump(entry), pc+1)
		return nil
	}

	cond, err := c.condition(pc, in, 1)
	if err != nil {
		return err
	}
	c.emit(pc, nil)
	if !c.an.PerLane(pc) {
		b.terminate(func(r *Registers) blockID {
			if cond(r)[0] == 0 {
				return after
			}
			enter(r)
			return entry
		}, pc+1)
		return nil
	}
	b.terminate(func(r *Registers) blockID {
		m := topMask(r).And(cond(r))
		if m.None() {
			return after
		}
		enter(r)
		r.push(m)
		return entry
	}, pc+1)
	return nil
}
