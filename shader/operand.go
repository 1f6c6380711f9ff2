package shader

import (
	"fmt"
	"math"
	"strings"
)

// RegisterType is the register file an operand refers to.
type RegisterType uint8

// Register files.
const (
	RegVoid      RegisterType = iota // unused operand slot
	RegTemp                          // r#
	RegInput                         // v#
	RegOutput                        // o#
	RegConst                         // c#
	RegAddr                          // a0
	RegPredicate                     // p0
	RegSampler                       // s#
	RegLabel                         // l#
	RegImmediate                     // literal value
	RegLoop                          // aL
	RegConstBool                     // b#
	RegConstInt                      // i#
	RegMisc                          // see Misc*
	RegDepthOut                      // oDepth
)

var registerNames = [...]string{
	RegVoid:      "void",
	RegTemp:      "r",
	RegInput:     "v",
	RegOutput:    "o",
	RegConst:     "c",
	RegAddr:      "a",
	RegPredicate: "p",
	RegSampler:   "s",
	RegLabel:     "l",
	RegImmediate: "imm",
	RegLoop:      "aL",
	RegConstBool: "b",
	RegConstInt:  "i",
	RegMisc:      "vMisc",
	RegDepthOut:  "oDepth",
}

func (t RegisterType) String() string {
	if int(t) < len(registerNames) {
		return registerNames[t]
	}
	return fmt.Sprintf("reg(%d)", uint8(t))
}

// Indices of the RegMisc register file.
const (
	MiscPosition   = 0 // pixel position (x, y, z, 1/w)
	MiscFace       = 1 // x: +1 front facing, -1 back facing
	MiscInstanceID = 2 // x: instance id as integer bits
	MiscVertexID   = 3 // x: vertex id as integer bits
)

// Swizzle selects source components: bits 2i..2i+1 give the source
// component read for destination component i.
type Swizzle uint8

// Common swizzles.
const (
	SwizzleXYZW Swizzle = 0xE4
	SwizzleXXXX Swizzle = 0x00
	SwizzleYYYY Swizzle = 0x55
	SwizzleZZZZ Swizzle = 0xAA
	SwizzleWWWW Swizzle = 0xFF
)

// MakeSwizzle builds a swizzle from four component indices.
func MakeSwizzle(x, y, z, w int) Swizzle {
	return Swizzle(x&3 | (y&3)<<2 | (z&3)<<4 | (w&3)<<6)
}

// Component returns the source component read for destination component i.
func (s Swizzle) Component(i int) int {
	return int(s>>(2*uint(i))) & 3
}

// Compose returns the swizzle equivalent to applying s then t.
func (s Swizzle) Compose(t Swizzle) Swizzle {
	return MakeSwizzle(
		s.Component(t.Component(0)),
		s.Component(t.Component(1)),
		s.Component(t.Component(2)),
		s.Component(t.Component(3)),
	)
}

func (s Swizzle) String() string {
	if s == SwizzleXYZW {
		return ""
	}
	const names = "xyzw"
	b := []byte{'.', names[s.Component(0)], names[s.Component(1)], names[s.Component(2)], names[s.Component(3)]}
	// Trailing repeats are implied, as in ".xy" for ".xyyy".
	n := len(b)
	for n > 2 && b[n-1] == b[n-2] {
		n--
	}
	return string(b[:n])
}

// Modifier is a source operand modifier applied after the swizzle.
type Modifier uint8

// Source modifiers.
const (
	ModNone Modifier = iota
	ModNegate
	ModAbs
	ModAbsNegate
	ModNot
)

// Rel describes relative addressing: the index of an operand is offset by
// the value of register Type/Index at Component, multiplied by Scale.
// Register values used as offsets are integer bit patterns.
type Rel struct {
	Type      RegisterType // RegVoid when the operand is not relatively addressed
	Index     uint32
	Component uint8
	Scale     int32

	// Deterministic promises the offset is the same in every lane, so a
	// single scalar offset can be used instead of a per-lane gather.
	Deterministic bool
}

// Relative reports whether the operand uses relative addressing.
func (r Rel) Relative() bool { return r.Type != RegVoid }

// Src is a source operand.
type Src struct {
	Type     RegisterType
	Index    uint32
	Rel      Rel
	Swizzle  Swizzle
	Modifier Modifier

	// Value holds the literal for RegImmediate operands. Integer
	// immediates store their bit patterns.
	Value [4]float32
}

// Dst is a destination operand.
type Dst struct {
	Type  RegisterType
	Index uint32
	Rel   Rel

	// Mask enables destination components: bit i writes component i.
	Mask     uint8
	Saturate bool
	Partial  bool

	// Integer marks a destination holding integer semantics. A DIV into
	// an integer destination is truncated toward zero.
	Integer bool
}

// Write mask bits.
const (
	MaskX    uint8 = 1 << 0
	MaskY    uint8 = 1 << 1
	MaskZ    uint8 = 1 << 2
	MaskW    uint8 = 1 << 3
	MaskXYZW uint8 = 0xF
)

// Reg returns a source operand reading register t#index with no swizzle.
func Reg(t RegisterType, index uint32) Src {
	return Src{Type: t, Index: index, Swizzle: SwizzleXYZW}
}

// Imm returns an immediate source operand.
func Imm(x, y, z, w float32) Src {
	return Src{Type: RegImmediate, Swizzle: SwizzleXYZW, Value: [4]float32{x, y, z, w}}
}

// Out returns a destination operand writing every component of t#index.
func Out(t RegisterType, index uint32) Dst {
	return Dst{Type: t, Index: index, Mask: MaskXYZW}
}

// Swz returns s with swizzle sw composed onto its current swizzle.
func (s Src) Swz(sw Swizzle) Src {
	s.Swizzle = s.Swizzle.Compose(sw)
	return s
}

// Neg returns s with a negate modifier.
func (s Src) Neg() Src {
	s.Modifier = ModNegate
	return s
}

// Abs returns s with an absolute value modifier.
func (s Src) Abs() Src {
	s.Modifier = ModAbs
	return s
}

// Masked returns d with write mask m.
func (d Dst) Masked(m uint8) Dst {
	d.Mask = m
	return d
}

func (s Src) String() string {
	var sb strings.Builder
	switch s.Modifier {
	case ModNegate:
		sb.WriteByte('-')
	case ModAbsNegate:
		sb.WriteString("-|")
	case ModAbs:
		sb.WriteByte('|')
	case ModNot:
		sb.WriteByte('~')
	}
	switch s.Type {
	case RegImmediate:
		sb.WriteByte('{')
		for i, v := range s.Value {
			if i > 0 {
				sb.WriteString(", ")
			}
			// NaN payloads carry integer bit patterns; keep them exact.
			if v != v {
				fmt.Fprintf(&sb, "0x%08x", math.Float32bits(v))
			} else {
				fmt.Fprintf(&sb, "%g", v)
			}
		}
		sb.WriteByte('}')
	case RegAddr, RegPredicate:
		fmt.Fprintf(&sb, "%s0", s.Type)
	case RegLoop, RegDepthOut, RegVoid:
		sb.WriteString(s.Type.String())
	default:
		sb.WriteString(s.Type.String())
		writeIndex(&sb, s.Index, s.Rel)
	}
	if s.Modifier == ModAbs || s.Modifier == ModAbsNegate {
		sb.WriteByte('|')
	}
	sb.WriteString(s.Swizzle.String())
	return sb.String()
}

func (d Dst) String() string {
	var sb strings.Builder
	switch d.Type {
	case RegAddr, RegPredicate:
		fmt.Fprintf(&sb, "%s0", d.Type)
	case RegDepthOut, RegVoid:
		sb.WriteString(d.Type.String())
	default:
		sb.WriteString(d.Type.String())
		writeIndex(&sb, d.Index, d.Rel)
	}
	if d.Mask != MaskXYZW {
		sb.WriteByte('.')
		for i, c := range "xyzw" {
			if d.Mask&(1<<i) != 0 {
				sb.WriteRune(c)
			}
		}
	}
	return sb.String()
}

func writeIndex(sb *strings.Builder, index uint32, rel Rel) {
	if !rel.Relative() {
		fmt.Fprintf(sb, "%d", index)
		return
	}
	sb.WriteByte('[')
	if rel.Deterministic {
		sb.WriteString("uniform ")
	}
	switch rel.Type {
	case RegLoop:
		sb.WriteString("aL")
	case RegAddr, RegPredicate:
		fmt.Fprintf(sb, "%s0.%c", rel.Type, "xyzw"[rel.Component&3])
	default:
		fmt.Fprintf(sb, "%s%d.%c", rel.Type, rel.Index, "xyzw"[rel.Component&3])
	}
	if rel.Scale != 1 && rel.Type != RegLoop {
		fmt.Fprintf(sb, " * %d", rel.Scale)
	}
	if index != 0 {
		fmt.Fprintf(sb, " + %d", index)
	}
	sb.WriteByte(']')
}
