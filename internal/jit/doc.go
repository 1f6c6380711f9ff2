// Package jit compiles shader programs into executable routines.
//
// Compilation walks the instruction list once and builds a graph of basic
// blocks. Each block is a slice of specialised closures (operand kinds,
// swizzles, modifiers, addressing modes and write masks are resolved while
// compiling) followed by a terminator choosing the next block: a jump, a
// two-way branch on a lane mask, a multi-way return switch, or exit.
// Running a routine walks the blocks; no instruction is decoded at run time.
//
// # Lanes
//
// Every value is a wide.Vec4 holding one value per lane for four vertices or
// the four pixels of a 2×2 quad. Divergent control flow is handled with lane
// masks kept in Registers:
//
//   - an enable stack, pushed by per-lane IF, IFC, CALLNZ and WHILE
//   - enableBreak and enableContinue for the innermost loop
//   - enableLeave for lanes that executed LEAVE or a nested RET
//
// An instruction flagged as masked by shader.Analyze writes only the lanes
// of the effective mask, the AND of all of these (enableContinue excepted
// while a WHILE condition is re-evaluated) and of its predicate. Branches
// skip a block entirely when no lane would execute it.
//
// # Concurrency
//
// A Routine is immutable. Run takes a Registers value from a pool, so one
// Routine may run many batches concurrently.
package jit
