package asm

import (
	"errors"
	"fmt"
)

// Errors returned by Parse.
var (
	// ErrVersion is returned when the program does not start with a
	// vs_N_M or ps_N_M version line.
	ErrVersion = errors.New("asm: missing or invalid version")

	// ErrMnemonic is returned for an unknown instruction or suffix.
	ErrMnemonic = errors.New("asm: unknown mnemonic")

	// ErrOperand is returned for a malformed or misplaced operand.
	ErrOperand = errors.New("asm: invalid operand")
)

// Error reports the source line Parse rejected.
type Error struct {
	Line int // 1-based
	Text string
	Err  error
	// Detail optionally describes the problem further.
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("line %d: %v: %s (%q)", e.Line, e.Err, e.Detail, e.Text)
	}
	return fmt.Sprintf("line %d: %v (%q)", e.Line, e.Err, e.Text)
}

// Unwrap returns the underlying sentinel error.
func (e *Error) Unwrap() error {
	return e.Err
}
