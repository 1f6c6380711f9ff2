package shader

import (
	"errors"
	"fmt"
)

// Errors returned while validating or compiling a program.
var (
	// ErrUnknownOpcode is returned for an opcode outside the instruction set.
	ErrUnknownOpcode = errors.New("shader: unknown opcode")

	// ErrOperand is returned for an operand kind the instruction cannot
	// read or write.
	ErrOperand = errors.New("shader: invalid operand")

	// ErrUnbalanced is returned when IF/LOOP/REP/WHILE/SWITCH blocks do
	// not nest properly.
	ErrUnbalanced = errors.New("shader: unbalanced control flow")

	// ErrBreakOutsideLoop is returned for BREAK or CONTINUE outside any
	// loop or switch.
	ErrBreakOutsideLoop = errors.New("shader: break outside loop")

	// ErrUndefinedLabel is returned for a CALL to a label that is never
	// declared.
	ErrUndefinedLabel = errors.New("shader: undefined label")

	// ErrDuplicateLabel is returned when a label is declared twice.
	ErrDuplicateLabel = errors.New("shader: duplicate label")

	// ErrRecursion is returned when the call graph contains a cycle.
	ErrRecursion = errors.New("shader: recursive call")

	// ErrMissingRet is returned when a function body does not end in RET.
	ErrMissingRet = errors.New("shader: function without ret")

	// ErrLimit is returned when a program exceeds a configured Limit.
	ErrLimit = errors.New("shader: limit exceeded")

	// ErrStage is returned for an instruction not allowed in the
	// program's stage.
	ErrStage = errors.New("shader: instruction not valid in stage")
)

// CompileError reports the instruction that made a program invalid.
// Compilation stops at the first error; no partial routine is produced.
type CompileError struct {
	// Index is the position of the offending instruction, -1 for
	// problems with the program as a whole.
	Index int
	// Op is its opcode.
	Op Opcode
	// Err is the underlying sentinel error.
	Err error
	// Detail optionally describes the problem further.
	Detail string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Index < 0 {
		if e.Detail != "" {
			return fmt.Sprintf("%v: %s", e.Err, e.Detail)
		}
		return e.Err.Error()
	}
	if e.Detail != "" {
		return fmt.Sprintf("instruction %d (%s): %v: %s", e.Index, e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("instruction %d (%s): %v", e.Index, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Errorf returns a CompileError for instruction pc of p.
func (p *Program) Errorf(pc int, err error, format string, args ...any) *CompileError {
	ce := &CompileError{Index: pc, Err: err}
	if pc >= 0 && pc < len(p.Instructions) {
		ce.Op = p.Instructions[pc].Op
	}
	if format != "" {
		ce.Detail = fmt.Sprintf(format, args...)
	}
	return ce
}
