package shader

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/gogpu/gputypes"
)

// Program is a decoded shader: a stage and its instruction list.
//
// The main body runs from the first instruction up to the first LABEL (or
// the first RET at nesting depth zero). Each LABEL starts a function body
// that ends with RET.
type Program struct {
	// Stage is gputypes.ShaderStageVertex or gputypes.ShaderStageFragment.
	Stage        gputypes.ShaderStage
	Instructions []Instruction
}

// Limits bound the resources a program may use. Exceeding any of them is
// a compile error, so a compiled routine never grows a stack at run time.
type Limits struct {
	MaxTemps    int
	MaxInputs   int
	MaxOutputs  int
	MaxSamplers int

	// MaxNesting bounds the lane-enable mask stack, which grows with
	// per-lane IF, WHILE and CALLNZ regions across calls.
	MaxNesting   int
	MaxLoopDepth int
	MaxCallDepth int

	// MaxLoopIterations clamps the count of LOOP and REP.
	MaxLoopIterations int
	// MaxWhileIterations stops a WHILE loop whose condition never fails.
	MaxWhileIterations int
}

// DefaultLimits returns limits generous enough for shader model 3
// programs and lowered WGSL.
func DefaultLimits() Limits {
	return Limits{
		MaxTemps:           4096,
		MaxInputs:          32,
		MaxOutputs:         32,
		MaxSamplers:        16,
		MaxNesting:         64,
		MaxLoopDepth:       8,
		MaxCallDepth:       8,
		MaxLoopIterations:  255,
		MaxWhileIterations: 1 << 16,
	}
}

// Hash returns a stable identity for the program. Programs with equal
// stages and instruction lists hash equally.
func (p *Program) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write(p.Encode()) // fnv.Write never returns an error
	return h.Sum64()
}

// Encode returns the byte form of the stage and instruction list that
// Hash is computed over. Two programs encode equally exactly when they
// compile to the same routine.
func (p *Program) Encode() []byte {
	buf := make([]byte, 0, 4+64*len(p.Instructions))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Stage))
	for i := range p.Instructions {
		buf = appendInstruction(buf, &p.Instructions[i])
	}
	return buf
}

func appendInstruction(b []byte, in *Instruction) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(in.Op))
	b = binary.LittleEndian.AppendUint32(b, uint32(in.Compare))
	b = append(b, boolByte(in.Predicate), boolByte(in.PredicateNot), byte(in.PredicateSwizzle),
		boolByte(in.Project), boolByte(in.Bias))

	d := &in.Dst
	b = append(b, byte(d.Type), d.Mask, boolByte(d.Saturate), boolByte(d.Partial), boolByte(d.Integer))
	b = binary.LittleEndian.AppendUint32(b, d.Index)
	b = appendRel(b, d.Rel)

	for i := range in.Src {
		s := &in.Src[i]
		b = append(b, byte(s.Type), byte(s.Swizzle), byte(s.Modifier))
		b = binary.LittleEndian.AppendUint32(b, s.Index)
		b = appendRel(b, s.Rel)
		for _, v := range s.Value {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
		}
	}
	return b
}

func appendRel(b []byte, r Rel) []byte {
	b = append(b, byte(r.Type), r.Component, boolByte(r.Deterministic))
	b = binary.LittleEndian.AppendUint32(b, r.Index)
	return binary.LittleEndian.AppendUint32(b, uint32(r.Scale))
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
