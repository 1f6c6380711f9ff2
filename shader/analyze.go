package shader

import (
	"github.com/gogpu/gputypes"
)

// Flags annotate an instruction with facts derived by Analyze.
type Flags uint8

const (
	// FlagMasked marks instructions whose writes must be blended with the
	// lane-enable mask: they are predicated, or some lanes may be disabled
	// when they run.
	FlagMasked Flags = 1 << iota

	// FlagWhileTest marks instructions re-evaluating a WHILE condition
	// (between TEST and ENDWHILE). Their effective mask ignores CONTINUE.
	FlagWhileTest

	// FlagPerLane marks IF, IFC, CALLNZ and WHILE instructions whose
	// condition may differ between lanes.
	FlagPerLane
)

// Main is the function index of the main body in Analysis.Function.
const Main = -1

// Analysis holds the static facts the compiler needs about a program.
type Analysis struct {
	// End is the number of instructions that take part in execution;
	// anything from the first END onwards is ignored.
	End int

	Flags []Flags

	// Match pairs block instructions: IF and ELSE point at the next ELSE
	// or ENDIF, LOOP, REP, WHILE and SWITCH point at their closer, and a
	// closer points back at its opener (the ELSE of an IF that has one).
	// Other entries are -1.
	Match []int

	// Target gives the LOOP, REP, WHILE or SWITCH instruction a BREAK,
	// CONTINUE or TEST belongs to, -1 elsewhere.
	Target []int

	// Function gives the label owning each instruction, Main for the
	// main body.
	Function []int

	// Labels maps a label number to its LABEL instruction.
	Labels map[uint32]int

	// CallSites lists, per label, its CALL and CALLNZ instructions in
	// program order. SiteID numbers every call site in the program.
	CallSites map[uint32][]int
	SiteID    []int
	NumSites  int

	Temps   int
	Inputs  int
	Outputs int

	// Samplers is the set of sampler slots the program may read, bit i
	// for s#i. DynamicSamplers reports relative sampler indexing.
	Samplers        uint32
	DynamicSamplers bool

	// Compile-time constants from DEF, DEFI and DEFB.
	Defs     map[uint32][4]float32
	DefInts  map[uint32][4]int32
	DefBools map[uint32]bool

	// ConstLimit is one past the highest float constant read with a
	// static index. RelativeConst reports relative constant reads.
	ConstLimit    int
	RelativeConst bool

	// Worst-case depths across the call graph starting at the main body.
	Nesting   int
	LoopDepth int
	CallDepth int

	enableDepth []int
	loopDepth   []int
	blockDepth  []int
	bodies      map[int][2]int
}

// Analyze validates the structure of p against lim and computes the facts
// needed to compile it. Any structural problem is reported as a
// *CompileError wrapping one of the package's sentinel errors.
func Analyze(p *Program, lim Limits) (*Analysis, error) {
	n := len(p.Instructions)
	a := &Analysis{
		End:         n,
		Flags:       make([]Flags, n),
		Match:       make([]int, n),
		Target:      make([]int, n),
		Function:    make([]int, n),
		SiteID:      make([]int, n),
		Labels:      make(map[uint32]int),
		CallSites:   make(map[uint32][]int),
		Defs:        make(map[uint32][4]float32),
		DefInts:     make(map[uint32][4]int32),
		DefBools:    make(map[uint32]bool),
		enableDepth: make([]int, n),
		loopDepth:   make([]int, n),
		blockDepth:  make([]int, n),
		bodies:      make(map[int][2]int),
	}
	for i := range n {
		a.Match[i], a.Target[i], a.SiteID[i] = -1, -1, -1
		if p.Instructions[i].Op == OpEnd && a.End == n {
			a.End = i
		}
	}

	if err := a.scanOperands(p, lim); err != nil {
		return nil, err
	}
	if err := a.scanStructure(p); err != nil {
		return nil, err
	}
	if err := a.scanCalls(p, lim); err != nil {
		return nil, err
	}
	a.markFlags(p)
	return a, nil
}

// Masked reports whether instruction pc needs a masked write.
func (a *Analysis) Masked(pc int) bool { return a.Flags[pc]&FlagMasked != 0 }

// WhileTest reports whether pc re-evaluates a WHILE condition.
func (a *Analysis) WhileTest(pc int) bool { return a.Flags[pc]&FlagWhileTest != 0 }

// PerLane reports whether the condition of flow instruction pc varies per lane.
func (a *Analysis) PerLane(pc int) bool { return a.Flags[pc]&FlagPerLane != 0 }

// Body returns the instruction range [start, end) of a function, Main
// for the main body.
func (a *Analysis) Body(fn int) (start, end int) {
	r := a.bodies[fn]
	return r[0], r[1]
}

func (a *Analysis) scanOperands(p *Program, lim Limits) error {
	fragment := p.Stage == gputypes.ShaderStageFragment
	staticConst := make(map[uint32]bool)
	declared := uint32(0)

	use := func(pc int, t RegisterType, index uint32, rel Rel) error {
		switch t {
		case RegTemp:
			a.Temps = max(a.Temps, int(index)+1)
		case RegInput:
			a.Inputs = max(a.Inputs, int(index)+1)
		case RegOutput:
			a.Outputs = max(a.Outputs, int(index)+1)
		case RegConst:
			if rel.Relative() {
				a.RelativeConst = true
			} else {
				staticConst[index] = true
			}
		case RegSampler:
			if rel.Relative() {
				a.DynamicSamplers = true
			} else if int(index) >= lim.MaxSamplers {
				return p.Errorf(pc, ErrLimit, "sampler s%d", index)
			} else {
				a.Samplers |= 1 << index
			}
		}
		if rel.Type == RegTemp {
			a.Temps = max(a.Temps, int(rel.Index)+1)
		}
		return nil
	}

	for pc := 0; pc < a.End; pc++ {
		in := &p.Instructions[pc]
		if !in.Op.Valid() {
			return p.Errorf(pc, ErrUnknownOpcode, "")
		}
		if !fragment {
			switch in.Op {
			case OpDfdx, OpDfdy, OpFwidth, OpTexKill, OpDiscard:
				return p.Errorf(pc, ErrStage, "pixel-only instruction in %s stage", p.Stage)
			}
		}

		switch in.Op {
		case OpDef:
			a.Defs[in.Dst.Index] = in.Src[0].Value
			continue
		case OpDefi:
			var v [4]int32
			for i, f := range in.Src[0].Value {
				v[i] = int32(f)
			}
			a.DefInts[in.Dst.Index] = v
			continue
		case OpDefb:
			a.DefBools[in.Dst.Index] = in.Src[0].Value[0] != 0
			continue
		case OpDcl:
			switch in.Dst.Type {
			case RegSampler:
				if int(in.Dst.Index) >= lim.MaxSamplers {
					return p.Errorf(pc, ErrLimit, "sampler s%d", in.Dst.Index)
				}
				declared |= 1 << in.Dst.Index
			case RegTemp, RegInput, RegOutput:
				if err := use(pc, in.Dst.Type, in.Dst.Index, Rel{}); err != nil {
					return err
				}
			}
			continue
		}

		for _, s := range in.Sources() {
			if err := use(pc, s.Type, s.Index, s.Rel); err != nil {
				return err
			}
		}
		if in.HasDst() {
			if err := use(pc, in.Dst.Type, in.Dst.Index, in.Dst.Rel); err != nil {
				return err
			}
		}
	}

	for c := range staticConst {
		if _, ok := a.Defs[c]; !ok {
			a.ConstLimit = max(a.ConstLimit, int(c)+1)
		}
	}
	if a.DynamicSamplers {
		if declared != 0 {
			a.Samplers |= declared
		} else {
			a.Samplers |= 1<<uint(lim.MaxSamplers) - 1
		}
	}

	switch {
	case a.Temps > lim.MaxTemps:
		return p.Errorf(-1, ErrLimit, "%d temporaries, limit %d", a.Temps, lim.MaxTemps)
	case a.Inputs > lim.MaxInputs:
		return p.Errorf(-1, ErrLimit, "%d inputs, limit %d", a.Inputs, lim.MaxInputs)
	case a.Outputs > lim.MaxOutputs:
		return p.Errorf(-1, ErrLimit, "%d outputs, limit %d", a.Outputs, lim.MaxOutputs)
	}
	return nil
}

// region is an open block during the structure scan.
type region struct {
	pc      int // opening instruction
	op      Opcode
	hasElse bool
	test    bool
	perLane bool
}

func (a *Analysis) scanStructure(p *Program) error {
	var stack []region
	fn := Main
	start := 0
	enable, loops := 0, 0

	closeBody := func(end int) error {
		a.bodies[fn] = [2]int{start, end}
		if fn == Main {
			return nil
		}
		if end-1 <= start || p.Instructions[end-1].Op != OpRet {
			return p.Errorf(start, ErrMissingRet, "label l%d", fn)
		}
		return nil
	}

	innermost := func(accept func(Opcode) bool) int {
		for i := len(stack) - 1; i >= 0; i-- {
			if accept(stack[i].op) {
				return stack[i].pc
			}
		}
		return -1
	}

	for pc := 0; pc < a.End; pc++ {
		in := &p.Instructions[pc]

		if in.Op == OpLabel {
			if len(stack) != 0 {
				return p.Errorf(pc, ErrUnbalanced, "label inside %s block", stack[len(stack)-1].op)
			}
			if err := closeBody(pc); err != nil {
				return err
			}
			label := in.Src[0].Index
			if _, dup := a.Labels[label]; dup {
				return p.Errorf(pc, ErrDuplicateLabel, "l%d", label)
			}
			a.Labels[label] = pc
			fn, start = int(label), pc
		}

		a.Function[pc] = fn
		a.enableDepth[pc] = enable
		a.loopDepth[pc] = loops
		a.blockDepth[pc] = len(stack)

		switch in.Op {
		case OpIf, OpIfc:
			perLane := in.Op == OpIfc || in.Src[0].Type != RegConstBool
			stack = append(stack, region{pc: pc, op: in.Op, perLane: perLane})
			if perLane {
				enable++
			}
		case OpLoop, OpRep, OpSwitch:
			stack = append(stack, region{pc: pc, op: in.Op})
			loops++
		case OpWhile:
			stack = append(stack, region{pc: pc, op: in.Op, perLane: true})
			loops++
			enable++
		case OpElse:
			top := len(stack) - 1
			if top < 0 || (stack[top].op != OpIf && stack[top].op != OpIfc) || stack[top].hasElse {
				return p.Errorf(pc, ErrUnbalanced, "else without if")
			}
			a.Match[stack[top].pc] = pc
			a.Match[pc] = -1
			stack[top].hasElse = true
			stack[top].pc = pc
		case OpEndIf, OpEndLoop, OpEndRep, OpEndWhile, OpEndSwitch:
			top := len(stack) - 1
			if top < 0 || !closes(in.Op, stack[top].op) {
				return p.Errorf(pc, ErrUnbalanced, "%s without opener", in.Op)
			}
			r := stack[top]
			stack = stack[:top]
			a.Match[r.pc] = pc
			a.Match[pc] = r.pc
			switch r.op {
			case OpWhile:
				loops--
				enable--
			case OpLoop, OpRep, OpSwitch:
				loops--
			default:
				if r.perLane {
					enable--
				}
			}
		case OpTest:
			top := len(stack) - 1
			if top < 0 || stack[top].op != OpWhile || stack[top].test {
				return p.Errorf(pc, ErrUnbalanced, "test outside while")
			}
			stack[top].test = true
			a.Target[pc] = stack[top].pc
		case OpBreak, OpBreakc, OpBreakp:
			a.Target[pc] = innermost(func(op Opcode) bool {
				return op == OpLoop || op == OpRep || op == OpWhile || op == OpSwitch
			})
			if a.Target[pc] < 0 {
				return p.Errorf(pc, ErrBreakOutsideLoop, "")
			}
		case OpContinue:
			a.Target[pc] = innermost(func(op Opcode) bool {
				return op == OpLoop || op == OpRep || op == OpWhile
			})
			if a.Target[pc] < 0 {
				return p.Errorf(pc, ErrBreakOutsideLoop, "continue")
			}
		}
	}

	if len(stack) != 0 {
		r := stack[len(stack)-1]
		return p.Errorf(r.pc, ErrUnbalanced, "%s never closed", p.Instructions[r.pc].Op)
	}
	return closeBody(a.End)
}

// closes reports whether closer ends a block opened by opener. An ELSE
// takes the place of its IF on the stack.
func closes(closer, opener Opcode) bool {
	switch closer {
	case OpEndIf:
		return opener == OpIf || opener == OpIfc
	case OpEndLoop:
		return opener == OpLoop
	case OpEndRep:
		return opener == OpRep
	case OpEndWhile:
		return opener == OpWhile
	case OpEndSwitch:
		return opener == OpSwitch
	}
	return false
}

// cost is the worst-case resource use of a function including callees.
type cost struct {
	calls, nest, loops int
}

func (a *Analysis) scanCalls(p *Program, lim Limits) error {
	for pc := 0; pc < a.End; pc++ {
		in := &p.Instructions[pc]
		if in.Op != OpCall && in.Op != OpCallnz {
			continue
		}
		label := in.Src[0].Index
		if _, ok := a.Labels[label]; !ok {
			return p.Errorf(pc, ErrUndefinedLabel, "l%d", label)
		}
		a.SiteID[pc] = a.NumSites
		a.NumSites++
		a.CallSites[label] = append(a.CallSites[label], pc)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[int]int)
	memo := make(map[int]cost)

	var visit func(fn int) (cost, error)
	visit = func(fn int) (cost, error) {
		switch state[fn] {
		case done:
			return memo[fn], nil
		case visiting:
			return cost{}, p.Errorf(a.Labels[uint32(fn)], ErrRecursion, "l%d", fn)
		}
		state[fn] = visiting

		var c cost
		start, end := a.Body(fn)
		for pc := start; pc < end; pc++ {
			c.nest = max(c.nest, a.enableDepth[pc])
			c.loops = max(c.loops, a.loopDepth[pc])
			in := &p.Instructions[pc]
			if in.Op != OpCall && in.Op != OpCallnz {
				continue
			}
			callee, err := visit(int(in.Src[0].Index))
			if err != nil {
				return cost{}, err
			}
			extra := 0
			if in.Op == OpCallnz && in.Src[1].Type != RegConstBool {
				extra = 1
			}
			c.calls = max(c.calls, 1+callee.calls)
			c.nest = max(c.nest, a.enableDepth[pc]+extra+callee.nest)
			c.loops = max(c.loops, a.loopDepth[pc]+callee.loops)
		}

		state[fn] = done
		memo[fn] = c
		return c, nil
	}

	main, err := visit(Main)
	if err != nil {
		return err
	}
	for label := range a.Labels {
		if _, err := visit(int(label)); err != nil {
			return err
		}
	}

	a.CallDepth, a.Nesting, a.LoopDepth = main.calls, main.nest, main.loops
	switch {
	case a.CallDepth > lim.MaxCallDepth:
		return p.Errorf(-1, ErrLimit, "call depth %d, limit %d", a.CallDepth, lim.MaxCallDepth)
	case a.Nesting > lim.MaxNesting:
		return p.Errorf(-1, ErrLimit, "nesting %d, limit %d", a.Nesting, lim.MaxNesting)
	case a.LoopDepth > lim.MaxLoopDepth:
		return p.Errorf(-1, ErrLimit, "loop depth %d, limit %d", a.LoopDepth, lim.MaxLoopDepth)
	}
	return nil
}

func (a *Analysis) markFlags(p *Program) {
	divergentLoop := make(map[int]bool)
	mainLeaves := false
	for pc := 0; pc < a.End; pc++ {
		switch p.Instructions[pc].Op {
		case OpBreak, OpBreakc, OpBreakp, OpContinue:
			divergentLoop[a.Target[pc]] = true
		case OpLeave:
			mainLeaves = mainLeaves || a.Function[pc] == Main
		case OpRet:
			// A RET nested in any block, uniform ones included, leaves the
			// enabled lanes.
			if a.Function[pc] == Main && a.blockDepth[pc] > 0 {
				mainLeaves = true
			}
		}
	}

	type open struct {
		op     Opcode
		masked bool
		test   bool
	}
	var stack []open
	anyMasked := func() bool {
		for _, o := range stack {
			if o.masked {
				return true
			}
		}
		return false
	}
	whileTest := func() bool {
		for i := len(stack) - 1; i >= 0; i-- {
			switch stack[i].op {
			case OpLoop, OpRep:
				return false
			case OpWhile:
				return stack[i].test
			}
		}
		return false
	}

	for pc := 0; pc < a.End; pc++ {
		in := &p.Instructions[pc]
		if in.Op == OpLabel {
			stack = stack[:0]
		}

		// Closing instructions run in the context of the block they close.
		var f Flags
		if a.Function[pc] != Main || mainLeaves || in.Predicate || anyMasked() {
			f |= FlagMasked
		}
		if whileTest() {
			f |= FlagWhileTest
		}

		switch in.Op {
		case OpIf:
			if in.Src[0].Type != RegConstBool {
				f |= FlagPerLane
			}
			stack = append(stack, open{op: in.Op, masked: f&FlagPerLane != 0})
		case OpIfc:
			f |= FlagPerLane
			stack = append(stack, open{op: in.Op, masked: true})
		case OpCallnz:
			if in.Src[1].Type != RegConstBool {
				f |= FlagPerLane
			}
		case OpLoop, OpRep, OpSwitch:
			stack = append(stack, open{op: in.Op, masked: divergentLoop[pc]})
		case OpWhile:
			f |= FlagPerLane
			stack = append(stack, open{op: in.Op, masked: true})
		case OpTest:
			stack[len(stack)-1].test = true
		case OpEndIf, OpEndLoop, OpEndRep, OpEndWhile, OpEndSwitch:
			stack = stack[:len(stack)-1]
		}
		a.Flags[pc] = f
	}
}
