package shader

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// Instruction is one decoded shader instruction. Instructions are
// immutable once they are part of a Program.
type Instruction struct {
	Op  Opcode
	Dst Dst
	Src [5]Src

	// Compare is the comparison used by SETP, IFC, BREAKC, and the
	// CMP/ICMP/UCMP family.
	Compare gputypes.CompareFunction

	// Predicate enables per-lane predication of the write by p0.
	Predicate        bool
	PredicateNot     bool
	PredicateSwizzle Swizzle

	// Project divides texture coordinates by w before sampling.
	Project bool
	// Bias adds coordinate w to the level of detail.
	Bias bool
}

// Sources returns the source operands the instruction reads.
func (in *Instruction) Sources() []Src {
	return in.Src[:in.Op.Sources()]
}

// HasDst reports whether the instruction writes a destination register.
func (in *Instruction) HasDst() bool {
	if in.Op.IsFlow() || in.Op.IsDeclaration() {
		return false
	}
	switch in.Op {
	case OpNop, OpTexKill, OpDiscard:
		return false
	}
	return in.Dst.Type != RegVoid
}

func (in *Instruction) String() string {
	var sb strings.Builder
	if in.Predicate {
		sb.WriteByte('(')
		if in.PredicateNot {
			sb.WriteByte('!')
		}
		sb.WriteString("p0")
		sb.WriteString(in.PredicateSwizzle.String())
		sb.WriteString(") ")
	}
	sb.WriteString(in.Op.String())
	if in.Project {
		sb.WriteString("p")
	}
	if in.Bias {
		sb.WriteString("b")
	}
	if suffix := compareSuffix(in.Compare); suffix != "" && usesCompare(in.Op) {
		sb.WriteByte('_')
		sb.WriteString(suffix)
	}
	if in.Dst.Saturate {
		sb.WriteString("_sat")
	}
	if in.Dst.Partial {
		sb.WriteString("_pp")
	}
	if in.Dst.Integer {
		sb.WriteString("_int")
	}
	sep := " "
	if in.HasDst() || in.Op.IsDeclaration() && in.Dst.Type != RegVoid {
		sb.WriteString(sep)
		sb.WriteString(in.Dst.String())
		sep = ", "
	}
	for _, s := range in.Sources() {
		sb.WriteString(sep)
		sb.WriteString(s.String())
		sep = ", "
	}
	return sb.String()
}

func usesCompare(op Opcode) bool {
	switch op {
	case OpSetp, OpIfc, OpBreakc, OpCmp, OpICmp, OpUCmp:
		return true
	}
	return false
}

var compareSuffixes = map[gputypes.CompareFunction]string{
	gputypes.CompareFunctionNever:        "never",
	gputypes.CompareFunctionLess:         "lt",
	gputypes.CompareFunctionEqual:        "eq",
	gputypes.CompareFunctionLessEqual:    "le",
	gputypes.CompareFunctionGreater:      "gt",
	gputypes.CompareFunctionNotEqual:     "ne",
	gputypes.CompareFunctionGreaterEqual: "ge",
	gputypes.CompareFunctionAlways:       "always",
}

func compareSuffix(f gputypes.CompareFunction) string {
	return compareSuffixes[f]
}

// LookupCompare returns the comparison for an instruction suffix such as
// "gt" or "le".
func LookupCompare(suffix string) (gputypes.CompareFunction, bool) {
	for f, s := range compareSuffixes {
		if s == suffix {
			return f, true
		}
	}
	return gputypes.CompareFunctionUndefined, false
}
