package wgsl

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/shaderjit/shader"
)

// function lowers the body of one IR function.
type function struct {
	l   *lowerer
	fn  *ir.Function
	sub *subroutine // nil for the entry point

	values  map[ir.ExpressionHandle]value
	locals  []place
	markers map[*ir.Statement]int

	args    []value
	outputs []output

	breaks []breakable
	depth  int
	closed bool
}

// output is an entry point result and the register it is written to.
type output struct {
	dst  shader.Dst
	kind ir.ScalarKind
}

// breakable is an open loop or switch, the targets of break and continue.
type breakable struct {
	loop bool
	// wrapped loops run their body inside a switch so continue can reach
	// the continuing block; flag records a break out of the loop.
	wrapped bool
	flag    uint32
}

func newFunction(l *lowerer, fn *ir.Function, sub *subroutine) *function {
	f := &function{
		l:       l,
		fn:      fn,
		sub:     sub,
		values:  make(map[ir.ExpressionHandle]value),
		markers: make(map[*ir.Statement]int),
	}
	seen := make(map[uint32]bool)
	f.scanMarkers(fn.Body, seen)
	return f
}

// scanMarkers finds the first store of each local to itself, which
// markDeclarations left where the local was declared.
func (f *function) scanMarkers(b ir.Block, seen map[uint32]bool) {
	for i := range b {
		s := &b[i]
		switch k := s.Kind.(type) {
		case ir.StmtStore:
			if k.Pointer != k.Value {
				continue
			}
			lv, ok := f.fn.Expressions[k.Pointer].Kind.(ir.ExprLocalVariable)
			if ok && !seen[lv.Variable] {
				seen[lv.Variable] = true
				f.markers[s] = int(lv.Variable)
			}
		case ir.StmtBlock:
			f.scanMarkers(k.Block, seen)
		case ir.StmtIf:
			f.scanMarkers(k.Accept, seen)
			f.scanMarkers(k.Reject, seen)
		case ir.StmtLoop:
			f.scanMarkers(k.Body, seen)
			f.scanMarkers(k.Continuing, seen)
		case ir.StmtSwitch:
			for _, c := range k.Cases {
				f.scanMarkers(c.Body, seen)
			}
		}
	}
}

// allocate reserves storage for every local variable.
func (f *function) allocate() error {
	f.locals = make([]place, len(f.fn.LocalVars))
	for i, lv := range f.fn.LocalVars {
		p, err := f.l.variable(f.l.inner(lv.Type))
		if err != nil {
			return fmt.Errorf("local %s: %w", lv.Name, err)
		}
		f.locals[i] = p
	}
	return nil
}

// declareUnmarked initializes the locals that have no declaration marker.
func (f *function) declareUnmarked() error {
	marked := make(map[int]bool, len(f.markers))
	for _, i := range f.markers {
		marked[i] = true
	}
	for i := range f.fn.LocalVars {
		if marked[i] {
			continue
		}
		if err := f.declare(i); err != nil {
			return err
		}
	}
	return nil
}

// declare runs the initializer of local i, or zeroes it.
func (f *function) declare(i int) error {
	lv := f.fn.LocalVars[i]
	if lv.Init != nil {
		v, err := f.value(*lv.Init)
		if err != nil {
			return fmt.Errorf("local %s: %w", lv.Name, err)
		}
		return f.store(f.locals[i], v)
	}
	z, err := f.zero(f.l.inner(lv.Type))
	if err != nil {
		return fmt.Errorf("local %s: %w", lv.Name, err)
	}
	return f.store(f.locals[i], z)
}

func (f *function) lowerEntry() error {
	if err := f.allocate(); err != nil {
		return err
	}
	for _, h := range f.l.privates {
		g := f.l.mod.GlobalVariables[h]
		var v value
		var err error
		if g.Init != nil {
			v, err = f.constant(*g.Init)
		} else {
			v, err = f.zero(f.l.inner(g.Type))
		}
		if err == nil {
			err = f.store(f.l.globals[h], v)
		}
		if err != nil {
			return fmt.Errorf("global %s: %w", g.Name, err)
		}
	}
	for _, a := range f.fn.Arguments {
		v, err := f.input(a)
		if err != nil {
			return fmt.Errorf("argument %s: %w", a.Name, err)
		}
		f.args = append(f.args, v)
	}
	if err := f.outputSlots(); err != nil {
		return err
	}
	if err := f.declareUnmarked(); err != nil {
		return err
	}
	if err := f.block(f.fn.Body); err != nil {
		return err
	}
	if !f.closed {
		f.l.emit(shader.Instruction{Op: shader.OpRet})
	}
	return nil
}

func (f *function) lowerSubroutine() error {
	f.l.emit(shader.Instruction{Op: shader.OpLabel, Src: [5]shader.Src{label(f.sub.label)}})
	if err := f.allocate(); err != nil {
		return err
	}
	if err := f.declareUnmarked(); err != nil {
		return err
	}
	if err := f.block(f.fn.Body); err != nil {
		return err
	}
	if !f.closed {
		f.l.emit(shader.Instruction{Op: shader.OpRet})
	}
	return nil
}

func label(n uint32) shader.Src {
	return shader.Src{Type: shader.RegLabel, Index: n}
}

// input returns the value of an entry point argument.
func (f *function) input(a ir.FunctionArgument) (value, error) {
	t := f.l.inner(a.Type)
	if a.Binding != nil {
		return f.bound(*a.Binding, t, a.Name)
	}
	st, ok := t.(ir.StructType)
	if !ok {
		return value{}, fmt.Errorf("%w: argument without a binding", ErrUnsupported)
	}
	parts := make([]value, len(st.Members))
	for i, m := range st.Members {
		if m.Binding == nil {
			return value{}, fmt.Errorf("%w: member %s without a binding", ErrUnsupported, m.Name)
		}
		v, err := f.bound(*m.Binding, f.l.inner(m.Type), m.Name)
		if err != nil {
			return value{}, fmt.Errorf("member %s: %w", m.Name, err)
		}
		parts[i] = v
	}
	return value{typ: t, parts: parts}, nil
}

// bound reads the register behind an input binding.
func (f *function) bound(b ir.Binding, t ir.TypeInner, name string) (value, error) {
	kind, size, ok := shape(t)
	if !ok {
		return value{}, fmt.Errorf("%w: input of type %T", ErrUnsupported, t)
	}
	vr := Varying{Name: name, Location: -1}
	var v value
	switch b := b.(type) {
	case ir.LocationBinding:
		vr.Location = int(b.Location)
		vr.Register, vr.Index = shader.RegInput, b.Location
		v = value{src: shader.Reg(shader.RegInput, b.Location).Swz(pad(size)), kind: kind, size: size}
	case ir.BuiltinBinding:
		vr.Builtin = b.Builtin
		vr.Register = shader.RegMisc
		switch {
		case b.Builtin == ir.BuiltinPosition && f.l.fragment:
			vr.Index = shader.MiscPosition
			v = value{src: shader.Reg(shader.RegMisc, shader.MiscPosition), kind: ir.ScalarFloat, size: 4}
		case b.Builtin == ir.BuiltinFrontFacing && f.l.fragment:
			vr.Index = shader.MiscFace
			t := f.l.temp()
			f.l.emit(shader.Instruction{
				Op:      shader.OpCmp,
				Compare: gputypes.CompareFunctionGreater,
				Dst:     shader.Out(shader.RegTemp, t).Masked(shader.MaskX),
				Src:     [5]shader.Src{shader.Reg(shader.RegMisc, shader.MiscFace).Swz(pad(1)), shader.Imm(0, 0, 0, 0)},
			})
			v = regValue(t, ir.ScalarBool, 1)
		case b.Builtin == ir.BuiltinInstanceIndex:
			vr.Index = shader.MiscInstanceID
			v = value{src: shader.Reg(shader.RegMisc, shader.MiscInstanceID).Swz(pad(1)), kind: ir.ScalarUint, size: 1}
		case b.Builtin == ir.BuiltinVertexIndex && !f.l.fragment:
			vr.Index = shader.MiscVertexID
			v = value{src: shader.Reg(shader.RegMisc, shader.MiscVertexID).Swz(pad(1)), kind: ir.ScalarUint, size: 1}
		default:
			return value{}, fmt.Errorf("%w: builtin input %v", ErrUnsupported, b.Builtin)
		}
	default:
		return value{}, fmt.Errorf("%w: input binding %T", ErrUnsupported, b)
	}
	if v.kind != kind {
		v = f.convert(v, kind)
	}
	f.l.out.Inputs = append(f.l.out.Inputs, vr)
	return v, nil
}

// outputSlots assigns registers to the entry point results.
func (f *function) outputSlots() error {
	res := f.fn.Result
	if res == nil {
		return nil
	}
	t := f.l.inner(res.Type)
	if res.Binding != nil {
		return f.slot(*res.Binding, t, "")
	}
	st, ok := t.(ir.StructType)
	if !ok {
		return fmt.Errorf("%w: result without a binding", ErrUnsupported)
	}
	for _, m := range st.Members {
		if m.Binding == nil {
			return fmt.Errorf("%w: result member %s without a binding", ErrUnsupported, m.Name)
		}
		if err := f.slot(*m.Binding, f.l.inner(m.Type), m.Name); err != nil {
			return fmt.Errorf("result member %s: %w", m.Name, err)
		}
	}
	return nil
}

func (f *function) slot(b ir.Binding, t ir.TypeInner, name string) error {
	kind, size, ok := shape(t)
	if !ok {
		return fmt.Errorf("%w: output of type %T", ErrUnsupported, t)
	}
	vr := Varying{Name: name, Location: -1}
	var dst shader.Dst
	switch b := b.(type) {
	case ir.LocationBinding:
		vr.Location = int(b.Location)
		idx := b.Location
		if !f.l.fragment {
			idx++
		}
		vr.Register, vr.Index = shader.RegOutput, idx
		dst = shader.Out(shader.RegOutput, idx).Masked(mask(size))
	case ir.BuiltinBinding:
		vr.Builtin = b.Builtin
		switch {
		case b.Builtin == ir.BuiltinPosition && !f.l.fragment:
			vr.Register = shader.RegOutput
			dst = shader.Out(shader.RegOutput, 0).Masked(mask(size))
		case b.Builtin == ir.BuiltinFragDepth && f.l.fragment:
			vr.Register = shader.RegDepthOut
			dst = shader.Out(shader.RegDepthOut, 0).Masked(shader.MaskX)
		default:
			return fmt.Errorf("%w: builtin output %v", ErrUnsupported, b.Builtin)
		}
	default:
		return fmt.Errorf("%w: output binding %T", ErrUnsupported, b)
	}
	f.outputs = append(f.outputs, output{dst: dst, kind: kind})
	f.l.out.Outputs = append(f.l.out.Outputs, vr)
	return nil
}

// writeOutputs copies the returned value to the output registers.
func (f *function) writeOutputs(v value) error {
	vals := []value{v}
	if f.fn.Result.Binding == nil {
		var err error
		if vals, err = f.parts(v); err != nil {
			return err
		}
	}
	if len(vals) != len(f.outputs) {
		return fmt.Errorf("%w: result has %d parts for %d outputs", ErrUnsupported, len(vals), len(f.outputs))
	}
	for i, o := range f.outputs {
		x := f.convert(vals[i], o.kind)
		if x.size == 0 {
			return fmt.Errorf("%w: composite output", ErrUnsupported)
		}
		f.l.emit(shader.Instruction{Op: shader.OpMov, Dst: o.dst, Src: [5]shader.Src{x.src}})
	}
	return nil
}

// block lowers a statement list. Statements after one that leaves the
// block unconditionally are unreachable and dropped.
func (f *function) block(b ir.Block) error {
	_, err := f.statements(b)
	return err
}

func (f *function) statements(b ir.Block) (bool, error) {
	for i := range b {
		done, err := f.statement(&b[i])
		if err != nil || done || f.closed {
			return true, err
		}
	}
	return false, nil
}

// statement lowers s and reports whether control never continues past it.
func (f *function) statement(s *ir.Statement) (bool, error) {
	switch k := s.Kind.(type) {
	case ir.StmtEmit:
		for h := k.Range.Start; h < k.Range.End; h++ {
			if f.isPointer(h) {
				continue
			}
			v, err := f.value(h)
			if err != nil {
				return false, err
			}
			if v, err = f.snapshot(v); err != nil {
				return false, err
			}
			f.values[h] = v
		}
	case ir.StmtBlock:
		return f.statements(k.Block)
	case ir.StmtIf:
		return false, f.ifStatement(k)
	case ir.StmtLoop:
		return false, f.loop(k)
	case ir.StmtSwitch:
		return false, f.switchStatement(k)
	case ir.StmtBreak:
		return true, f.breakStatement()
	case ir.StmtContinue:
		return true, f.continueStatement()
	case ir.StmtReturn:
		return true, f.returnStatement(k)
	case ir.StmtKill:
		f.l.emit(shader.Instruction{Op: shader.OpDiscard})
		return true, nil
	case ir.StmtStore:
		if i, ok := f.markers[s]; ok {
			return false, f.declare(i)
		}
		p, err := f.pointer(k.Pointer)
		if err != nil {
			return false, err
		}
		v, err := f.value(k.Value)
		if err != nil {
			return false, err
		}
		return false, f.store(p, v)
	case ir.StmtCall:
		return false, f.call(k)
	default:
		return false, fmt.Errorf("%w: statement %T", ErrUnsupported, k)
	}
	return false, nil
}

func (f *function) ifStatement(k ir.StmtIf) error {
	c, err := f.value(k.Condition)
	if err != nil {
		return err
	}
	if c.imm() {
		if bitsOf(c.src.Value[0]) != 0 {
			return f.block(k.Accept)
		}
		return f.block(k.Reject)
	}
	c = f.convert(c, ir.ScalarBool)
	f.l.emit(shader.Instruction{Op: shader.OpIf, Src: [5]shader.Src{c.src}})
	f.depth++
	if err := f.block(k.Accept); err != nil {
		return err
	}
	if len(k.Reject) > 0 {
		f.l.emit(shader.Instruction{Op: shader.OpElse})
		if err := f.block(k.Reject); err != nil {
			return err
		}
	}
	f.l.emit(shader.Instruction{Op: shader.OpEndIf})
	f.depth--
	return nil
}

// loop lowers a WGSL loop to an endless WHILE. A loop whose continuing
// block must run after a continue wraps its body in a SWITCH: continue
// becomes a break out of the switch, and break additionally raises a
// flag that is tested once the switch closes.
func (f *function) loop(k ir.StmtLoop) error {
	br := breakable{
		loop:    true,
		wrapped: (len(k.Continuing) > 0 || k.BreakIf != nil) && continues(k.Body),
	}
	f.l.emit(shader.Instruction{Op: shader.OpWhile, Src: [5]shader.Src{boolImm(true).src}})
	f.depth++
	if br.wrapped {
		br.flag = f.l.temp()
		f.l.emit(shader.Instruction{
			Op:  shader.OpMov,
			Dst: shader.Out(shader.RegTemp, br.flag).Masked(shader.MaskX),
			Src: [5]shader.Src{boolImm(false).src},
		})
		f.l.emit(shader.Instruction{Op: shader.OpSwitch})
	}

	f.breaks = append(f.breaks, br)
	err := f.block(k.Body)
	f.breaks = f.breaks[:len(f.breaks)-1]
	if err != nil {
		return err
	}

	if br.wrapped {
		f.l.emit(shader.Instruction{Op: shader.OpEndSwitch})
		f.l.emit(shader.Instruction{Op: shader.OpBreakp, Src: [5]shader.Src{regValue(br.flag, ir.ScalarBool, 1).src}})
	}
	if err := f.block(k.Continuing); err != nil {
		return err
	}
	if k.BreakIf != nil {
		c, err := f.value(*k.BreakIf)
		if err != nil {
			return err
		}
		c = f.convert(c, ir.ScalarBool)
		f.l.emit(shader.Instruction{Op: shader.OpBreakp, Src: [5]shader.Src{c.src}})
	}
	f.l.emit(shader.Instruction{Op: shader.OpEndWhile})
	f.depth--
	return nil
}

// continues reports whether b holds a continue of the loop around it.
func continues(b ir.Block) bool {
	for _, s := range b {
		switch k := s.Kind.(type) {
		case ir.StmtContinue:
			return true
		case ir.StmtBlock:
			if continues(k.Block) {
				return true
			}
		case ir.StmtIf:
			if continues(k.Accept) || continues(k.Reject) {
				return true
			}
		case ir.StmtSwitch:
			for _, c := range k.Cases {
				if continues(c.Body) {
					return true
				}
			}
		}
	}
	return false
}

func (f *function) breakStatement() error {
	if len(f.breaks) == 0 {
		return fmt.Errorf("%w: break outside a loop", ErrUnsupported)
	}
	top := f.breaks[len(f.breaks)-1]
	if top.loop && top.wrapped {
		f.l.emit(shader.Instruction{
			Op:  shader.OpMov,
			Dst: shader.Out(shader.RegTemp, top.flag).Masked(shader.MaskX),
			Src: [5]shader.Src{boolImm(true).src},
		})
	}
	f.l.emit(shader.Instruction{Op: shader.OpBreak})
	return nil
}

func (f *function) continueStatement() error {
	inSwitch := false
	for i := len(f.breaks) - 1; i >= 0; i-- {
		b := f.breaks[i]
		if !b.loop {
			inSwitch = true
			continue
		}
		switch {
		case !b.wrapped:
			f.l.emit(shader.Instruction{Op: shader.OpContinue})
		case inSwitch:
			return fmt.Errorf("%w: continue from a switch in a loop with a continuing block", ErrUnsupported)
		default:
			f.l.emit(shader.Instruction{Op: shader.OpBreak})
		}
		return nil
	}
	return fmt.Errorf("%w: continue outside a loop", ErrUnsupported)
}

func (f *function) returnStatement(k ir.StmtReturn) error {
	if k.Value != nil {
		v, err := f.value(*k.Value)
		if err != nil {
			return err
		}
		switch {
		case f.sub != nil && f.sub.result != nil:
			err = f.store(*f.sub.result, v)
		case f.sub == nil && f.fn.Result != nil:
			err = f.writeOutputs(v)
		}
		if err != nil {
			return err
		}
	}
	f.l.emit(shader.Instruction{Op: shader.OpRet})
	if f.depth == 0 {
		f.closed = true
	}
	return nil
}

// switchStatement lowers a WGSL switch to a SWITCH block holding one IF
// per case. Each case ends in a break, so the default case, placed last,
// only runs in lanes no other case took.
func (f *function) switchStatement(k ir.StmtSwitch) error {
	sel, err := f.value(k.Selector)
	if err != nil {
		return err
	}
	if sel.size != 1 {
		return fmt.Errorf("%w: switch selector", ErrUnsupported)
	}
	sel, err = f.snapshot(sel)
	if err != nil {
		return err
	}

	type group struct {
		values    []value
		body      ir.Block
		isDefault bool
	}
	var groups []group
	for i, c := range k.Cases {
		var v value
		isDefault := false
		switch x := c.Value.(type) {
		case ir.SwitchValueI32:
			v = intImm(ir.ScalarSint, uint32(int32(x)))
		case ir.SwitchValueU32:
			v = intImm(ir.ScalarUint, uint32(x))
		case ir.SwitchValueDefault:
			isDefault = true
		default:
			return fmt.Errorf("%w: case value %T", ErrUnsupported, x)
		}
		// Selectors of one clause share their body.
		if i > 0 && (k.Cases[i-1].FallThrough || sameBlock(k.Cases[i-1].Body, c.Body)) {
			g := &groups[len(groups)-1]
			g.body = c.Body
			g.isDefault = g.isDefault || isDefault
			if !isDefault {
				g.values = append(g.values, v)
			}
			continue
		}
		g := group{body: c.Body, isDefault: isDefault}
		if !isDefault {
			g.values = []value{v}
		}
		groups = append(groups, g)
	}

	f.l.emit(shader.Instruction{Op: shader.OpSwitch})
	f.depth++
	f.breaks = append(f.breaks, breakable{})
	defer func() { f.breaks = f.breaks[:len(f.breaks)-1] }()

	var fallback *group
	for i := range groups {
		g := &groups[i]
		if g.isDefault {
			fallback = g
			continue
		}
		var cond value
		for j, v := range g.values {
			a, b := f.unify(sel, v)
			eq := f.op(shader.OpEq, ir.ScalarBool, 1, a, b)
			if j == 0 {
				cond = eq
			} else {
				cond = f.op(shader.OpOr, ir.ScalarBool, 1, cond, eq)
			}
		}
		f.l.emit(shader.Instruction{Op: shader.OpIf, Src: [5]shader.Src{cond.src}})
		f.depth++
		if err := f.caseBody(g.body); err != nil {
			return err
		}
		f.l.emit(shader.Instruction{Op: shader.OpEndIf})
		f.depth--
	}
	if fallback != nil {
		if err := f.caseBody(fallback.body); err != nil {
			return err
		}
	}
	f.l.emit(shader.Instruction{Op: shader.OpEndSwitch})
	f.depth--
	return nil
}

// caseBody lowers a switch case and leaves the switch at its end.
func (f *function) caseBody(b ir.Block) error {
	if err := f.block(b); err != nil {
		return err
	}
	if len(b) > 0 {
		switch b[len(b)-1].Kind.(type) {
		case ir.StmtBreak, ir.StmtContinue, ir.StmtReturn, ir.StmtKill:
			return nil
		}
	}
	f.l.emit(shader.Instruction{Op: shader.OpBreak})
	return nil
}

func sameBlock(a, b ir.Block) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

// call lowers a call to a user function: arguments are copied into the
// callee's parameter storage and the result is copied out after CALL.
func (f *function) call(k ir.StmtCall) error {
	sub, err := f.l.subroutine(k.Function)
	if err != nil {
		return err
	}
	if len(k.Arguments) != len(sub.args) {
		return fmt.Errorf("%w: call with %d arguments for %d parameters", ErrUnsupported, len(k.Arguments), len(sub.args))
	}
	vals := make([]value, len(k.Arguments))
	for i, a := range k.Arguments {
		v, err := f.value(a)
		if err != nil {
			return err
		}
		if vals[i], err = f.snapshot(v); err != nil {
			return err
		}
	}
	for i, v := range vals {
		if err := f.store(sub.args[i], v); err != nil {
			return err
		}
	}
	f.l.emit(shader.Instruction{Op: shader.OpCall, Src: [5]shader.Src{label(sub.label)}})
	if k.Result != nil && sub.result != nil {
		r, err := f.load(*sub.result)
		if err != nil {
			return err
		}
		if r, err = f.snapshot(r); err != nil {
			return err
		}
		f.values[*k.Result] = r
	}
	return nil
}
