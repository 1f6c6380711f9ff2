// Package wgsl lowers WGSL entry points into shader programs.
//
// Source is parsed and lowered to IR by github.com/gogpu/naga; this
// package then walks the IR of one entry point and emits the instruction
// model of package shader. The supported subset covers what a software
// rasterizer needs from vertex and fragment shaders:
//
//   - scalar, vector and matrix arithmetic on f32, i32, u32 and bool
//   - the WGSL math builtins that have an instruction or a short expansion
//   - local and private variables, structs, fixed-size arrays and
//     dynamic indexing
//   - if/else, loop, for and while with break, continue and break-if
//   - calls to user functions, lowered to LABEL/CALL/RET subroutines
//   - uniform buffers, read through the c# constant registers
//   - textureSample, textureSampleLevel, textureSampleBias,
//     textureSampleGrad, textureLoad and textureDimensions
//
// Anything else is rejected with ErrUnsupported.
//
// # Registers
//
// Entry point I/O is assigned as follows:
//
//	@location(n) input          v<n>
//	@builtin(position) input    vMisc0 (fragment stage)
//	@builtin(front_facing)      vMisc1 > 0
//	@builtin(instance_index)    vMisc2
//	@builtin(vertex_index)      vMisc3
//	@builtin(position) output   o0 (vertex stage)
//	@location(n) output         o<n+1> in the vertex stage, o<n> in the
//	                            fragment stage
//	@builtin(frag_depth)        oDepth
//
// Uniform buffers occupy consecutive c# registers in declaration order,
// laid out by their byte offsets: a register is 16 bytes and matrices
// store one column per register. Each texture and sampler pair used
// together gets the next s# slot. Shader reports every assignment so a
// renderer can fill a jit.Batch.
//
// Booleans are lane masks: all bits set for true, zero for false.
package wgsl
