package asm

import (
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
)

// Format writes p in the syntax Parse accepts, indenting the bodies of
// branches and loops.
func Format(p *shader.Program) string {
	var sb strings.Builder
	if p.Stage == gputypes.ShaderStageFragment {
		sb.WriteString("ps_3_0\n")
	} else {
		sb.WriteString("vs_3_0\n")
	}

	depth := 0
	for i := range p.Instructions {
		in := &p.Instructions[i]
		switch in.Op {
		case shader.OpElse, shader.OpEndIf, shader.OpEndLoop, shader.OpEndRep,
			shader.OpEndWhile, shader.OpEndSwitch, shader.OpTest:
			depth = max(depth-1, 0)
		}
		for range depth {
			sb.WriteString("    ")
		}
		sb.WriteString(in.String())
		sb.WriteByte('\n')
		switch in.Op {
		case shader.OpIf, shader.OpIfc, shader.OpElse, shader.OpLoop, shader.OpRep,
			shader.OpWhile, shader.OpSwitch, shader.OpTest:
			depth++
		}
	}
	return sb.String()
}
