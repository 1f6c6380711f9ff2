package asm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
)

var versionRE = regexp.MustCompile(`^(vs|ps)_(\d+)_(\d+|x|sw)$`)

func failf(err error, format string, args ...any) *Error {
	return &Error{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// Parse assembles src into a program. The first error stops parsing and
// is returned as an *Error carrying the line number.
func Parse(src string) (*shader.Program, error) {
	var prog *shader.Program
	for i, raw := range strings.Split(src, "\n") {
		line := stripComment(raw)
		if line == "" {
			continue
		}
		var err *Error
		if prog == nil {
			prog, err = version(line)
		} else {
			var in shader.Instruction
			in, err = instruction(line)
			if err == nil {
				prog.Instructions = append(prog.Instructions, in)
			}
		}
		if err != nil {
			err.Line = i + 1
			err.Text = strings.TrimSpace(raw)
			return nil, err
		}
	}
	if prog == nil {
		return nil, &Error{Line: 1, Err: ErrVersion, Detail: "empty program"}
	}
	return prog, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexAny(line, ";#"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func version(line string) (*shader.Program, *Error) {
	m := versionRE.FindStringSubmatch(strings.ToLower(line))
	if m == nil {
		return nil, failf(ErrVersion, "want vs_3_0 or ps_3_0")
	}
	stage := gputypes.ShaderStageVertex
	if m[1] == "ps" {
		stage = gputypes.ShaderStageFragment
	}
	return &shader.Program{Stage: stage}, nil
}

// suffixes are the mnemonic modifiers applied once the destination is known.
type suffixes struct {
	saturate, partial, integer bool
}

func instruction(line string) (shader.Instruction, *Error) {
	var in shader.Instruction
	if strings.HasPrefix(line, "(") {
		end := strings.IndexByte(line, ')')
		if end < 0 {
			return in, failf(ErrOperand, "unterminated predicate")
		}
		if err := predicate(&in, strings.TrimSpace(line[1:end])); err != nil {
			return in, err
		}
		line = strings.TrimSpace(line[end+1:])
	}

	mnemonic, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		mnemonic, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	sfx, err := opcode(&in, mnemonic)
	if err != nil {
		return in, err
	}

	operands, err := splitOperands(rest)
	if err != nil {
		return in, err
	}
	if hasDst(in.Op) {
		if len(operands) == 0 {
			return in, failf(ErrOperand, "%s needs a destination", in.Op)
		}
		if in.Dst, err = dst(operands[0]); err != nil {
			return in, err
		}
		operands = operands[1:]
	}
	in.Dst.Saturate = sfx.saturate
	in.Dst.Partial = sfx.partial
	in.Dst.Integer = sfx.integer

	if isDefinition(in.Op) && len(operands) > 1 {
		imm, err := definition(in.Op, operands)
		if err != nil {
			return in, err
		}
		in.Src[0] = imm
		return in, nil
	}
	if in.Op == shader.OpDefb && len(operands) == 1 {
		switch operands[0] {
		case "true":
			in.Src[0] = shader.Imm(1, 0, 0, 0)
			return in, nil
		case "false":
			in.Src[0] = shader.Imm(0, 0, 0, 0)
			return in, nil
		}
	}
	if len(operands) != in.Op.Sources() {
		return in, failf(ErrOperand, "%s takes %d sources, got %d", in.Op, in.Op.Sources(), len(operands))
	}
	for i, o := range operands {
		if in.Src[i], err = src(o); err != nil {
			return in, err
		}
	}
	return in, nil
}

func predicate(in *shader.Instruction, s string) *Error {
	if strings.HasPrefix(s, "!") {
		in.PredicateNot = true
		s = strings.TrimSpace(s[1:])
	}
	if !strings.HasPrefix(s, "p0") {
		return failf(ErrOperand, "predicate %q", s)
	}
	in.Predicate = true
	in.PredicateSwizzle = shader.SwizzleXYZW
	if rest := s[2:]; rest != "" {
		sw, err := swizzle(rest)
		if err != nil {
			return err
		}
		in.PredicateSwizzle = sw
	}
	return nil
}

func opcode(in *shader.Instruction, mnemonic string) (suffixes, *Error) {
	var sfx suffixes
	parts := strings.Split(strings.ToLower(mnemonic), "_")

	op, ok := shader.LookupOpcode(parts[0])
	if !ok {
		base := parts[0]
		if strings.HasSuffix(base, "b") {
			in.Bias = true
			base = base[:len(base)-1]
		}
		if strings.HasSuffix(base, "p") {
			in.Project = true
			base = base[:len(base)-1]
		}
		op, ok = shader.LookupOpcode(base)
		if !ok || !op.IsTexture() {
			return sfx, failf(ErrMnemonic, "%q", mnemonic)
		}
	}
	in.Op = op
	if op == shader.OpDcl {
		// Usage suffixes (dcl_texcoord0, dcl_2d) carry no information the
		// engine needs.
		return sfx, nil
	}

	for _, s := range parts[1:] {
		switch s {
		case "sat":
			sfx.saturate = true
		case "pp":
			sfx.partial = true
		case "int":
			sfx.integer = true
		default:
			f, ok := shader.LookupCompare(s)
			if !ok {
				return sfx, failf(ErrMnemonic, "suffix _%s", s)
			}
			in.Compare = f
		}
	}
	return sfx, nil
}

func hasDst(op shader.Opcode) bool {
	switch op {
	case shader.OpNop, shader.OpTexKill, shader.OpDiscard, shader.OpEnd:
		return false
	}
	return !op.IsFlow() || op == shader.OpSetp
}

func isDefinition(op shader.Opcode) bool {
	return op == shader.OpDef || op == shader.OpDefi || op == shader.OpDefb
}

// definition builds the immediate of "def c0, 1, 2, 3, 4".
func definition(op shader.Opcode, values []string) (shader.Src, *Error) {
	if len(values) > 4 {
		return shader.Src{}, failf(ErrOperand, "%s takes at most 4 values", op)
	}
	imm := shader.Imm(0, 0, 0, 0)
	for i, v := range values {
		f, err := number(v)
		if err != nil {
			return imm, err
		}
		imm.Value[i] = f
	}
	return imm, nil
}

// splitOperands splits on commas outside braces and brackets.
func splitOperands(s string) ([]string, *Error) {
	if s == "" {
		return nil, nil
	}
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth < 0 {
				return nil, failf(ErrOperand, "unbalanced %q", s[i])
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, failf(ErrOperand, "unbalanced brackets")
	}
	out = append(out, strings.TrimSpace(s[start:]))
	for _, o := range out {
		if o == "" {
			return nil, failf(ErrOperand, "empty operand")
		}
	}
	return out, nil
}

func dst(s string) (shader.Dst, *Error) {
	reg, rest, err := register(s)
	if err != nil {
		return shader.Dst{}, err
	}
	d := shader.Dst{Type: reg.t, Index: reg.index, Rel: reg.rel, Mask: shader.MaskXYZW}
	if rest == "" {
		return d, nil
	}
	if rest[0] != '.' {
		return d, failf(ErrOperand, "destination %q", s)
	}
	d.Mask = 0
	last := -1
	for _, c := range rest[1:] {
		i := strings.IndexRune("xyzw", c)
		if i < 0 {
			i = strings.IndexRune("rgba", c)
		}
		if i <= last {
			return d, failf(ErrOperand, "write mask %q", rest)
		}
		d.Mask |= 1 << i
		last = i
	}
	if d.Mask == 0 {
		return d, failf(ErrOperand, "empty write mask")
	}
	return d, nil
}

func src(s string) (shader.Src, *Error) {
	if f, err := number(s); err == nil {
		return shader.Imm(f, f, f, f), nil
	}

	neg, not, abs := false, false, false
	if strings.HasPrefix(s, "-") {
		neg, s = true, strings.TrimSpace(s[1:])
	}
	if strings.HasPrefix(s, "~") || strings.HasPrefix(s, "!") {
		not, s = true, strings.TrimSpace(s[1:])
	}
	if strings.HasPrefix(s, "|") {
		end := strings.LastIndexByte(s, '|')
		if end == 0 {
			return shader.Src{}, failf(ErrOperand, "unterminated |")
		}
		abs, s = true, s[1:end]+s[end+1:]
	}

	var out shader.Src
	var rest string
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "int{") {
		var err *Error
		out, rest, err = immediate(s)
		if err != nil {
			return out, err
		}
	} else {
		reg, r, err := register(s)
		if err != nil {
			return out, err
		}
		out = shader.Src{Type: reg.t, Index: reg.index, Rel: reg.rel, Swizzle: shader.SwizzleXYZW}
		rest = r
	}

	if strings.HasPrefix(rest, "_abs") {
		abs, rest = true, rest[len("_abs"):]
	}
	if rest != "" {
		sw, err := swizzle(rest)
		if err != nil {
			return out, err
		}
		out.Swizzle = sw
	}

	switch {
	case not && (neg || abs):
		return out, failf(ErrOperand, "~ cannot be combined with - or ||")
	case not:
		out.Modifier = shader.ModNot
	case neg && abs:
		out.Modifier = shader.ModAbsNegate
	case abs:
		out.Modifier = shader.ModAbs
	case neg:
		out.Modifier = shader.ModNegate
	}
	return out, nil
}

// immediate parses {x, y, z, w} or int{x, y, z, w}. Fewer than four values
// repeat the last one.
func immediate(s string) (shader.Src, string, *Error) {
	integer := strings.HasPrefix(s, "int")
	if integer {
		s = s[len("int"):]
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return shader.Src{}, "", failf(ErrOperand, "unterminated immediate")
	}
	fields := strings.Split(s[1:end], ",")
	if len(fields) > 4 {
		return shader.Src{}, "", failf(ErrOperand, "immediate with %d values", len(fields))
	}

	imm := shader.Imm(0, 0, 0, 0)
	for i := range 4 {
		f := strings.TrimSpace(fields[min(i, len(fields)-1)])
		if integer {
			n, err := strconv.ParseInt(f, 0, 64)
			if err != nil || n < math.MinInt32 || n > math.MaxUint32 {
				return imm, "", failf(ErrOperand, "integer %q", f)
			}
			imm.Value[i] = math.Float32frombits(uint32(n))
			continue
		}
		v, err := number(f)
		if err != nil {
			return imm, "", err
		}
		imm.Value[i] = v
	}
	return imm, s[end+1:], nil
}

// number parses a float literal, or a 0x literal giving raw bits.
func number(s string) (float32, *Error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		bits, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, failf(ErrOperand, "hex literal %q", s)
		}
		return math.Float32frombits(uint32(bits)), nil
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, failf(ErrOperand, "number %q", s)
	}
	return float32(f), nil
}

func swizzle(s string) (shader.Swizzle, *Error) {
	if len(s) < 2 || len(s) > 5 || s[0] != '.' {
		return 0, failf(ErrOperand, "swizzle %q", s)
	}
	var comp [4]int
	for i := range 4 {
		c := rune(s[1+min(i, len(s)-2)])
		n := strings.IndexRune("xyzw", c)
		if n < 0 {
			n = strings.IndexRune("rgba", c)
		}
		if n < 0 {
			return 0, failf(ErrOperand, "swizzle %q", s)
		}
		comp[i] = n
	}
	return shader.MakeSwizzle(comp[0], comp[1], comp[2], comp[3]), nil
}
