// Package shaderjit compiles shader programs into routines that run on the
// CPU, four vertices or one 2×2 pixel quad at a time.
//
// A program is a flat list of shader.Instruction values in the style of
// shader model 3: typed registers, swizzles, write masks, predication,
// structured control flow, subroutines and texture sampling. Programs come
// from the asm assembler, the wgsl front end, or are built directly.
//
// # Quick Start
//
//	c := shaderjit.NewCompiler()
//	defer c.Close()
//
//	prog, err := asm.Parse(`
//		vs_3_0
//		m4x4 o0, v0, c0
//		mov o1, v1
//	`)
//	if err != nil {
//		log.Fatal(err)
//	}
//	rt, err := c.Compile(prog)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var consts shaderjit.Constants
//	consts.SetMat4(0, mvp)
//	out, err := c.ProcessVertices(ctx, rt, vertices, shaderjit.Draw{Constants: &consts})
//
// # Lanes and Divergence
//
// A Routine processes a Batch of four lanes. Control flow that depends on
// per-lane values is executed with lane masks: every lane sees the result
// it would get running alone, and lanes never affect each other except
// through the documented derivative instructions of the pixel stage.
//
// # Caching
//
// Compile keys compiled routines by the program's hash and stage, so
// compiling the same instruction list again returns the cached routine.
// Use CompileUncached to bypass the cache.
//
// # Logging
//
// The package is silent by default. SetLogger enables structured logging
// of compilation through log/slog.
package shaderjit
