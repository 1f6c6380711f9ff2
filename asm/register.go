package asm

import (
	"strconv"
	"strings"

	"github.com/gogpu/shaderjit/shader"
)

// regRef is a parsed register reference without swizzle or modifiers.
type regRef struct {
	t     shader.RegisterType
	index uint32
	rel   shader.Rel
}

// registerNames lists register spellings, longer prefixes first. Fixed
// names take no index.
var registerNames = []struct {
	name  string
	t     shader.RegisterType
	fixed bool
	index uint32
}{
	{"oDepth", shader.RegDepthOut, true, 0},
	{"vMisc", shader.RegMisc, false, 0},
	{"vPos", shader.RegMisc, true, shader.MiscPosition},
	{"vFace", shader.RegMisc, true, shader.MiscFace},
	{"vInstanceID", shader.RegMisc, true, shader.MiscInstanceID},
	{"vVertexID", shader.RegMisc, true, shader.MiscVertexID},
	{"aL", shader.RegLoop, true, 0},
	{"r", shader.RegTemp, false, 0},
	{"v", shader.RegInput, false, 0},
	{"o", shader.RegOutput, false, 0},
	{"c", shader.RegConst, false, 0},
	{"a", shader.RegAddr, false, 0},
	{"p", shader.RegPredicate, false, 0},
	{"s", shader.RegSampler, false, 0},
	{"l", shader.RegLabel, false, 0},
	{"b", shader.RegConstBool, false, 0},
	{"i", shader.RegConstInt, false, 0},
}

// register parses a register reference at the start of s and returns the
// unparsed remainder (swizzle, mask or _abs).
func register(s string) (regRef, string, *Error) {
	for _, n := range registerNames {
		if !strings.HasPrefix(s, n.name) {
			continue
		}
		rest := s[len(n.name):]
		ref := regRef{t: n.t, index: n.index}
		if n.fixed {
			return ref, rest, nil
		}

		if strings.HasPrefix(rest, "[") {
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return ref, "", failf(ErrOperand, "unterminated [ in %q", s)
			}
			var err *Error
			ref.index, ref.rel, err = relative(rest[1:end])
			if err != nil {
				return ref, "", err
			}
			return ref, rest[end+1:], nil
		}

		digits := 0
		for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
			digits++
		}
		if digits == 0 {
			continue
		}
		index, err := strconv.ParseUint(rest[:digits], 10, 32)
		if err != nil {
			return ref, "", failf(ErrOperand, "register index %q", rest[:digits])
		}
		if (n.t == shader.RegAddr || n.t == shader.RegPredicate) && index != 0 {
			return ref, "", failf(ErrOperand, "only %s0 exists", n.name)
		}
		ref.index = uint32(index)
		return ref, rest[digits:], nil
	}
	return regRef{}, "", failf(ErrOperand, "register %q", s)
}

// relative parses the inside of a relative address such as
// "a0.x * 4 + 2", "aL + 1" or "uniform r1.y".
func relative(s string) (uint32, shader.Rel, *Error) {
	var rel shader.Rel
	var base uint32
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "uniform "); ok {
		rel.Deterministic = true
		s = after
	}

	for term := range strings.SplitSeq(s, "+") {
		term = strings.TrimSpace(term)
		if n, err := strconv.ParseUint(term, 10, 32); err == nil {
			base += uint32(n)
			continue
		}
		if rel.Type != shader.RegVoid {
			return 0, rel, failf(ErrOperand, "more than one register in [%s]", s)
		}

		expr, scale, hasScale := strings.Cut(term, "*")
		rel.Scale = 1
		if hasScale {
			n, err := strconv.ParseInt(strings.TrimSpace(scale), 10, 32)
			if err != nil {
				return 0, rel, failf(ErrOperand, "scale %q", scale)
			}
			rel.Scale = int32(n)
		}

		ref, rest, err := register(strings.TrimSpace(expr))
		if err != nil {
			return 0, rel, err
		}
		if ref.rel.Relative() {
			return 0, rel, failf(ErrOperand, "nested relative address")
		}
		rel.Type, rel.Index = ref.t, ref.index
		if rest != "" {
			if len(rest) != 2 || rest[0] != '.' || !strings.ContainsRune("xyzw", rune(rest[1])) {
				return 0, rel, failf(ErrOperand, "address component %q", rest)
			}
			rel.Component = uint8(strings.IndexByte("xyzw", rest[1]))
		}
	}
	if rel.Type == shader.RegVoid {
		return 0, rel, failf(ErrOperand, "relative address without a register")
	}
	return base, rel, nil
}
