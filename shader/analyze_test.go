package shader

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func r(i uint32) Src  { return Reg(RegTemp, i) }
func rd(i uint32) Dst { return Out(RegTemp, i) }

func ins(op Opcode, dst Dst, srcs ...Src) Instruction {
	in := Instruction{Op: op, Dst: dst}
	copy(in.Src[:], srcs)
	return in
}

func flow(op Opcode, srcs ...Src) Instruction {
	return ins(op, Dst{}, srcs...)
}

func label(n uint32) Src { return Src{Type: RegLabel, Index: n} }

func pixel(code ...Instruction) *Program {
	return &Program{Stage: gputypes.ShaderStageFragment, Instructions: code}
}

func TestAnalyzeStructureErrors(t *testing.T) {
	pred := Reg(RegPredicate, 0)

	tests := []struct {
		name string
		code []Instruction
		want error
	}{
		{"unknown opcode", []Instruction{{Op: opcodeCount + 3}}, ErrUnknownOpcode},
		{"else without if", []Instruction{flow(OpElse)}, ErrUnbalanced},
		{"endif without if", []Instruction{flow(OpEndIf)}, ErrUnbalanced},
		{"unclosed if", []Instruction{flow(OpIf, pred)}, ErrUnbalanced},
		{"mismatched closer", []Instruction{flow(OpRep, Reg(RegConstInt, 0)), flow(OpEndLoop)}, ErrUnbalanced},
		{"double else", []Instruction{flow(OpIf, pred), flow(OpElse), flow(OpElse), flow(OpEndIf)}, ErrUnbalanced},
		{"break outside loop", []Instruction{flow(OpBreak)}, ErrBreakOutsideLoop},
		{"continue in switch only", []Instruction{flow(OpSwitch), flow(OpContinue), flow(OpEndSwitch)}, ErrBreakOutsideLoop},
		{"test outside while", []Instruction{flow(OpTest)}, ErrUnbalanced},
		{"undefined label", []Instruction{flow(OpCall, label(7)), flow(OpRet)}, ErrUndefinedLabel},
		{"duplicate label", []Instruction{
			flow(OpRet), flow(OpLabel, label(1)), flow(OpRet), flow(OpLabel, label(1)), flow(OpRet),
		}, ErrDuplicateLabel},
		{"function without ret", []Instruction{flow(OpRet), flow(OpLabel, label(0)), ins(OpMov, rd(0), r(1))}, ErrMissingRet},
		{"recursion", []Instruction{
			flow(OpCall, label(0)), flow(OpRet),
			flow(OpLabel, label(0)), flow(OpCall, label(1)), flow(OpRet),
			flow(OpLabel, label(1)), flow(OpCall, label(0)), flow(OpRet),
		}, ErrRecursion},
		{"label inside block", []Instruction{flow(OpIf, pred), flow(OpLabel, label(0)), flow(OpRet)}, ErrUnbalanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(pixel(tt.code...), DefaultLimits())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Analyze() error = %v, want %v", err, tt.want)
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not a *CompileError", err)
			}
		})
	}
}

func TestAnalyzeStageCheck(t *testing.T) {
	p := &Program{Stage: gputypes.ShaderStageVertex, Instructions: []Instruction{ins(OpDfdx, rd(0), r(1))}}
	if _, err := Analyze(p, DefaultLimits()); !errors.Is(err, ErrStage) {
		t.Errorf("Analyze() error = %v, want ErrStage", err)
	}
}

func TestAnalyzeLimits(t *testing.T) {
	lim := DefaultLimits()
	lim.MaxCallDepth = 1
	lim.MaxLoopDepth = 1
	lim.MaxNesting = 1

	tests := []struct {
		name string
		code []Instruction
	}{
		{"call depth", []Instruction{
			flow(OpCall, label(0)), flow(OpRet),
			flow(OpLabel, label(0)), flow(OpCall, label(1)), flow(OpRet),
			flow(OpLabel, label(1)), flow(OpRet),
		}},
		{"loop depth through call", []Instruction{
			flow(OpRep, Reg(RegConstInt, 0)), flow(OpCall, label(0)), flow(OpEndRep), flow(OpRet),
			flow(OpLabel, label(0)), flow(OpRep, Reg(RegConstInt, 0)), flow(OpEndRep), flow(OpRet),
		}},
		{"nesting", []Instruction{
			flow(OpIf, Reg(RegPredicate, 0)), flow(OpIfc, r(0), r(1)), flow(OpEndIf), flow(OpEndIf),
		}},
		{"sampler index", []Instruction{ins(OpTex, rd(0), r(0), Reg(RegSampler, 40))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Analyze(pixel(tt.code...), lim); !errors.Is(err, ErrLimit) {
				t.Errorf("Analyze() error = %v, want ErrLimit", err)
			}
		})
	}
}

func TestAnalyzeUniformIfIsNotMasked(t *testing.T) {
	p := pixel(
		flow(OpIf, Reg(RegConstBool, 0)),
		ins(OpMov, rd(0), r(1)),
		flow(OpEndIf),
		flow(OpIf, Reg(RegPredicate, 0)),
		ins(OpMov, rd(0), r(1)),
		flow(OpEndIf),
	)
	a, err := Analyze(p, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if a.Masked(1) {
		t.Error("write under a uniform if is masked")
	}
	if !a.Masked(4) {
		t.Error("write under a per-lane if is not masked")
	}
	if a.PerLane(0) || !a.PerLane(3) {
		t.Error("PerLane flags wrong")
	}
	if a.Nesting != 1 {
		t.Errorf("Nesting = %d, want 1", a.Nesting)
	}
}

func TestAnalyzeRetInUniformBlockMasksMain(t *testing.T) {
	p := pixel(
		ins(OpMov, rd(0), r(1)),
		flow(OpIf, Reg(RegConstBool, 0)),
		flow(OpRet),
		flow(OpEndIf),
		ins(OpMov, rd(0), r(2)),
	)
	a, err := Analyze(p, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if !a.Masked(4) {
		t.Error("write after a nested ret is not masked")
	}
}

func TestAnalyzeLoopMasking(t *testing.T) {
	p := pixel(
		flow(OpRep, Reg(RegConstInt, 0)),                      // 0
		ins(OpAdd, rd(0), r(0), r(1)),                         // 1
		flow(OpEndRep),                                        // 2
		flow(OpLoop, Src{Type: RegLoop}, Reg(RegConstInt, 1)), // 3
		flow(OpBreakc, r(0), r(2)),                            // 4
		ins(OpAdd, rd(0), r(0), r(1)),                         // 5
		flow(OpEndLoop),                                       // 6
	)
	p.Instructions[4].Compare = gputypes.CompareFunctionGreater

	a, err := Analyze(p, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if a.Masked(1) {
		t.Error("loop without break masks its body")
	}
	if !a.Masked(5) {
		t.Error("loop with break does not mask its body")
	}
	if a.Target[4] != 3 {
		t.Errorf("Target[breakc] = %d, want 3", a.Target[4])
	}
	if a.Match[3] != 6 || a.Match[6] != 3 {
		t.Errorf("Match loop = %d/%d", a.Match[3], a.Match[6])
	}
}

func TestAnalyzeWhileTestRegion(t *testing.T) {
	p := pixel(
		flow(OpWhile, r(0)),                      // 0
		flow(OpContinue),                         // 1
		flow(OpTest),                             // 2
		ins(OpSetp, Out(RegTemp, 0), r(1), r(2)), // 3
		flow(OpEndWhile),                         // 4
	)
	a, err := Analyze(p, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if a.WhileTest(1) {
		t.Error("body instruction flagged as while test")
	}
	if !a.WhileTest(3) || !a.Masked(3) {
		t.Error("condition instruction not flagged")
	}
	if a.Target[2] != 0 {
		t.Errorf("Target[test] = %d", a.Target[2])
	}
}

func TestAnalyzeCallSites(t *testing.T) {
	p := pixel(
		flow(OpCall, label(2)),                         // 0
		flow(OpCallnz, label(2), Reg(RegPredicate, 0)), // 1
		flow(OpCall, label(3)),                         // 2
		flow(OpCall, label(2)),                         // 3
		flow(OpRet),                                    // 4
		flow(OpLabel, label(2)),                        // 5
		ins(OpMov, rd(0), r(1)),                        // 6
		flow(OpRet),                                    // 7
		flow(OpLabel, label(3)),                        // 8
		flow(OpRet),                                    // 9
	)
	a, err := Analyze(p, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if got := a.CallSites[2]; len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 3 {
		t.Errorf("CallSites[2] = %v", got)
	}
	if a.NumSites != 4 || a.SiteID[2] != 2 || a.SiteID[3] != 3 {
		t.Errorf("site ids = %v", a.SiteID)
	}
	if !a.Masked(6) {
		t.Error("function body is not masked")
	}
	if a.Function[6] != 2 || a.Function[4] != Main {
		t.Errorf("Function = %v", a.Function)
	}
	if a.CallDepth != 1 || a.Nesting != 1 {
		t.Errorf("CallDepth = %d, Nesting = %d", a.CallDepth, a.Nesting)
	}
	if start, end := a.Body(2); start != 5 || end != 8 {
		t.Errorf("Body(2) = [%d, %d)", start, end)
	}
}

func TestAnalyzeResources(t *testing.T) {
	rel := Reg(RegConst, 2)
	rel.Rel = Rel{Type: RegAddr, Scale: 1}
	dyn := Reg(RegSampler, 0)
	dyn.Rel = Rel{Type: RegAddr, Scale: 1}

	p := pixel(
		ins(OpDef, Out(RegConst, 9), Imm(1, 2, 3, 4)),
		Instruction{Op: OpDcl, Dst: Out(RegSampler, 1)},
		Instruction{Op: OpDcl, Dst: Out(RegSampler, 5)},
		ins(OpAdd, Out(RegOutput, 1), Reg(RegConst, 4), Reg(RegConst, 9)),
		ins(OpMov, rd(6), rel),
		ins(OpTex, rd(0), Reg(RegInput, 2), dyn),
		flow(OpEnd),
		ins(OpMov, rd(100), r(0)),
	)
	a, err := Analyze(p, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if a.End != 6 {
		t.Errorf("End = %d, want 6", a.End)
	}
	if a.Temps != 7 || a.Inputs != 3 || a.Outputs != 2 {
		t.Errorf("Temps/Inputs/Outputs = %d/%d/%d", a.Temps, a.Inputs, a.Outputs)
	}
	if a.ConstLimit != 5 || !a.RelativeConst {
		t.Errorf("ConstLimit = %d, RelativeConst = %v", a.ConstLimit, a.RelativeConst)
	}
	if !a.DynamicSamplers || a.Samplers != 1<<1|1<<5 {
		t.Errorf("Samplers = %b", a.Samplers)
	}
	if a.Defs[9] != [4]float32{1, 2, 3, 4} {
		t.Errorf("Defs[9] = %v", a.Defs[9])
	}
}

func TestProgramHash(t *testing.T) {
	build := func() *Program {
		return pixel(ins(OpAdd, rd(0), r(1), Imm(1, 2, 3, 4)), flow(OpRet))
	}
	a, b := build(), build()
	if a.Hash() != b.Hash() || !bytes.Equal(a.Encode(), b.Encode()) {
		t.Error("identical programs hash differently")
	}
	b.Instructions[0].Src[1].Value[2] = 3.5
	if a.Hash() == b.Hash() {
		t.Error("changed immediate did not change the hash")
	}
	if bytes.Equal(a.Encode(), b.Encode()) {
		t.Error("changed immediate did not change the encoding")
	}
	c := build()
	c.Stage = gputypes.ShaderStageVertex
	if a.Hash() == c.Hash() {
		t.Error("stage does not take part in the hash")
	}
}

func TestInstructionString(t *testing.T) {
	add := ins(OpAdd, Dst{Type: RegOutput, Index: 0, Mask: MaskX | MaskY, Saturate: true}, r(1).Neg(), Reg(RegConst, 3).Swz(SwizzleWWWW))
	add.Predicate = true
	add.PredicateNot = true
	add.PredicateSwizzle = SwizzleXXXX
	if got, want := add.String(), "(!p0.x) add_sat o0.xy, -r1, c3.w"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	rel := Reg(RegConst, 4)
	rel.Rel = Rel{Type: RegAddr, Component: 1, Scale: 1}
	if got, want := rel.String(), "c[a0.y + 4]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSwizzle(t *testing.T) {
	s := MakeSwizzle(3, 2, 1, 0)
	if s.String() != ".wzyx" {
		t.Errorf("String() = %q", s.String())
	}
	if got := s.Compose(s); got != SwizzleXYZW {
		t.Errorf("wzyx∘wzyx = %#x, want identity", got)
	}
	if got := SwizzleXYZW.Compose(SwizzleYYYY); got != SwizzleYYYY {
		t.Errorf("xyzw∘yyyy = %#x", got)
	}
}

func TestLookupOpcode(t *testing.T) {
	for op := OpNop; op < opcodeCount; op++ {
		if !op.Valid() {
			t.Errorf("opcode %d has no name", op)
			continue
		}
		got, ok := LookupOpcode(op.String())
		if !ok || got != op {
			t.Errorf("LookupOpcode(%q) = %v, %v", op.String(), got, ok)
		}
	}
}
