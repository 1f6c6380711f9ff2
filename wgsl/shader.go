package wgsl

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	nwgsl "github.com/gogpu/naga/wgsl"
	"github.com/gogpu/shaderjit/shader"
)

// Shader is one lowered entry point and the register assignment a
// renderer needs to drive it.
type Shader struct {
	Program *shader.Program

	Inputs   []Varying
	Outputs  []Varying
	Uniforms []Uniform
	Textures []TextureBinding
}

// Varying is an entry point input or output and the register holding it.
type Varying struct {
	Name string
	// Location is the @location index, or -1 for a builtin.
	Location int
	Builtin  ir.BuiltinValue

	Register shader.RegisterType
	Index    uint32
}

// Resource names a module-scope binding.
type Resource struct {
	Name    string
	Group   uint32
	Binding uint32
}

// Uniform is a uniform buffer and the c# registers it occupies.
type Uniform struct {
	Resource
	Register  uint32
	Registers int
}

// TextureBinding is the sampler slot assigned to a texture and sampler
// pair. Sampler is empty for a slot only used by textureLoad or
// textureDimensions.
type TextureBinding struct {
	Slot    uint32
	Texture Resource
	Sampler Resource
}

// Lower parses WGSL source and lowers the named entry point.
func Lower(source, entry string) (*Shader, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	for _, fn := range ast.Functions {
		if fn.Body != nil {
			markDeclarations(fn.Body)
		}
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	return LowerModule(mod, entry)
}

// LowerModule lowers the named entry point of an IR module. Local
// variables are initialized where a self-assignment marks their
// declaration, as Lower arranges, or at function entry otherwise.
func LowerModule(mod *ir.Module, entry string) (*Shader, error) {
	var ep *ir.EntryPoint
	for i := range mod.EntryPoints {
		if mod.EntryPoints[i].Name == entry {
			ep = &mod.EntryPoints[i]
			break
		}
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: %q", ErrEntryPoint, entry)
	}

	var stage gputypes.ShaderStage
	switch ep.Stage {
	case ir.StageVertex:
		stage = gputypes.ShaderStageVertex
	case ir.StageFragment:
		stage = gputypes.ShaderStageFragment
	default:
		return nil, fmt.Errorf("%w: %q is a compute entry point", ErrEntryPoint, entry)
	}
	if int(ep.Function) >= len(mod.Functions) {
		return nil, fmt.Errorf("%w: %q has no function", ErrEntryPoint, entry)
	}

	l := &lowerer{
		mod:      mod,
		prog:     &shader.Program{Stage: stage},
		out:      &Shader{},
		fragment: ep.Stage == ir.StageFragment,
		globals:  make(map[ir.GlobalVariableHandle]place),
		vars:     make(map[uint32]bool),
		slots:    make(map[[2]ir.GlobalVariableHandle]uint32),
		subs:     make(map[ir.FunctionHandle]*subroutine),
	}
	l.out.Program = l.prog

	if err := l.layoutGlobals(); err != nil {
		return nil, err
	}
	main := newFunction(l, &mod.Functions[ep.Function], nil)
	if err := main.lowerEntry(); err != nil {
		return nil, fmt.Errorf("%s: %w", entry, err)
	}
	// Subroutines are appended after the main body as they are first called.
	for i := 0; i < len(l.queue); i++ {
		h := l.queue[i]
		fn := newFunction(l, &mod.Functions[h], l.subs[h])
		if err := fn.lowerSubroutine(); err != nil {
			return nil, fmt.Errorf("%s: %w", mod.Functions[h].Name, err)
		}
	}
	return l.out, nil
}

// markDeclarations inserts "x = x" after every local var declaration so
// the declaration point survives in the IR as a store of a variable to
// itself. A for-loop initializer is hoisted into an enclosing block first.
func markDeclarations(b *nwgsl.BlockStmt) {
	out := make([]nwgsl.Stmt, 0, len(b.Statements))
	for _, s := range b.Statements {
		switch s := s.(type) {
		case *nwgsl.VarDecl:
			out = append(out, s, declaration(s.Name))
			continue
		case *nwgsl.ForStmt:
			if v, ok := s.Init.(*nwgsl.VarDecl); ok {
				s.Init = nil
				markStatement(s)
				out = append(out, &nwgsl.BlockStmt{
					Statements: []nwgsl.Stmt{v, declaration(v.Name), s},
					Span:       s.Span,
				})
				continue
			}
		}
		markStatement(s)
		out = append(out, s)
	}
	b.Statements = out
}

func markStatement(s nwgsl.Stmt) {
	switch s := s.(type) {
	case *nwgsl.BlockStmt:
		markDeclarations(s)
	case *nwgsl.IfStmt:
		markDeclarations(s.Body)
		if s.Else != nil {
			markStatement(s.Else)
		}
	case *nwgsl.ForStmt:
		markDeclarations(s.Body)
	case *nwgsl.WhileStmt:
		markDeclarations(s.Body)
	case *nwgsl.LoopStmt:
		markDeclarations(s.Body)
		if s.Continuing != nil {
			markDeclarations(s.Continuing)
		}
	case *nwgsl.SwitchStmt:
		for _, c := range s.Cases {
			markDeclarations(c.Body)
		}
	}
}

func declaration(name string) nwgsl.Stmt {
	return &nwgsl.AssignStmt{
		Left:  &nwgsl.Ident{Name: name},
		Op:    nwgsl.TokenEqual,
		Right: &nwgsl.Ident{Name: name},
	}
}

// lowerer holds the state shared by every function of one entry point.
type lowerer struct {
	mod      *ir.Module
	prog     *shader.Program
	out      *Shader
	fragment bool

	temps   uint32
	globals map[ir.GlobalVariableHandle]place
	// vars marks temporaries that hold variables rather than expression
	// results.
	vars  map[uint32]bool
	slots map[[2]ir.GlobalVariableHandle]uint32
	subs  map[ir.FunctionHandle]*subroutine
	queue []ir.FunctionHandle

	// privates lists private globals to initialize at the start of main.
	privates []ir.GlobalVariableHandle
}

// subroutine is a user function lowered once and called by label.
type subroutine struct {
	label  uint32
	args   []place
	result *place
}

func (l *lowerer) emit(in shader.Instruction) {
	l.prog.Instructions = append(l.prog.Instructions, in)
}

func (l *lowerer) temp() uint32 {
	t := l.temps
	l.temps++
	return t
}

// variable allocates consecutive temporaries for a variable of type t.
func (l *lowerer) variable(t ir.TypeInner) (place, error) {
	n, err := l.span(t, false)
	if err != nil {
		return place{}, err
	}
	p := place{file: shader.RegTemp, reg: l.temps, typ: t}
	for range n {
		l.vars[l.temp()] = true
	}
	return p, nil
}

func (l *lowerer) inner(h ir.TypeHandle) ir.TypeInner {
	return l.mod.Types[h].Inner
}

// layoutGlobals assigns c# registers to uniform buffers and temporaries
// to private variables.
func (l *lowerer) layoutGlobals() error {
	next := uint32(0)
	for i, g := range l.mod.GlobalVariables {
		h := ir.GlobalVariableHandle(i)
		t := l.inner(g.Type)
		switch g.Space {
		case ir.SpaceUniform:
			n, err := l.span(t, true)
			if err != nil {
				return fmt.Errorf("uniform %s: %w", g.Name, err)
			}
			l.globals[h] = place{file: shader.RegConst, reg: next, typ: t, uniform: true}
			l.out.Uniforms = append(l.out.Uniforms, Uniform{
				Resource:  resource(g),
				Register:  next,
				Registers: n,
			})
			next += uint32(n)
		case ir.SpacePrivate, ir.SpaceFunction:
			p, err := l.variable(t)
			if err != nil {
				// Reported if the variable is used.
				continue
			}
			l.globals[h] = p
			l.privates = append(l.privates, h)
		}
	}
	return nil
}

func resource(g ir.GlobalVariable) Resource {
	r := Resource{Name: g.Name}
	if g.Binding != nil {
		r.Group, r.Binding = g.Binding.Group, g.Binding.Binding
	}
	return r
}

// slot returns the sampler slot for a texture and sampler pair. A
// texture read without a sampler reuses any slot already holding it.
func (l *lowerer) slot(image ir.GlobalVariableHandle, smp *ir.GlobalVariableHandle) uint32 {
	if smp == nil {
		for _, tb := range l.out.Textures {
			if tb.Texture == resource(l.mod.GlobalVariables[image]) {
				return tb.Slot
			}
		}
	}
	key := [2]ir.GlobalVariableHandle{image, ^ir.GlobalVariableHandle(0)}
	if smp != nil {
		key[1] = *smp
	}
	if s, ok := l.slots[key]; ok {
		return s
	}
	s := uint32(len(l.out.Textures))
	l.slots[key] = s
	tb := TextureBinding{Slot: s, Texture: resource(l.mod.GlobalVariables[image])}
	if smp != nil {
		tb.Sampler = resource(l.mod.GlobalVariables[*smp])
	}
	l.out.Textures = append(l.out.Textures, tb)
	return s
}

// subroutine returns the subroutine for function h, queueing it for
// lowering on first use.
func (l *lowerer) subroutine(h ir.FunctionHandle) (*subroutine, error) {
	if s, ok := l.subs[h]; ok {
		return s, nil
	}
	if int(h) >= len(l.mod.Functions) {
		return nil, fmt.Errorf("%w: call to function %d", ErrUnsupported, h)
	}
	fn := &l.mod.Functions[h]
	s := &subroutine{label: uint32(len(l.subs))}
	for _, a := range fn.Arguments {
		p, err := l.variable(l.inner(a.Type))
		if err != nil {
			return nil, fmt.Errorf("%s argument %s: %w", fn.Name, a.Name, err)
		}
		s.args = append(s.args, p)
	}
	if fn.Result != nil {
		p, err := l.variable(l.inner(fn.Result.Type))
		if err != nil {
			return nil, fmt.Errorf("%s result: %w", fn.Name, err)
		}
		s.result = &p
	}
	l.subs[h] = s
	l.queue = append(l.queue, h)
	return s, nil
}
