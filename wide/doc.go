// Package wide provides 4-lane SIMD-style value types for shader execution.
//
// Every value flowing through a compiled shader is a wide value: one element
// per lane, where a lane is one vertex or pixel of the 4-wide batch processed
// together. The types are fixed-size arrays manipulated with simple loops so
// the Go compiler can keep them in registers and auto-vectorize them.
//
// # Wide Types
//
// F32x4: 4 float32 lanes, the unit of floating-point arithmetic.
// U32x4: 4 uint32 lanes, used for lane masks (all ones or all zeros) and for
// raw integer bit patterns stored in float registers.
// I32x4: 4 int32 lanes for signed integer arithmetic.
// Vec4: four F32x4 components (x, y, z, w), the shader register layout.
//
// # Numeric Policy
//
// Functions never panic on numeric input. Edge cases produce the values
// documented on each function (IEEE infinities and NaNs where a shading
// language leaves the result undefined). Data dependent special cases are
// resolved with Select over lane masks rather than per-lane branches.
//
// # Register Bit Patterns
//
// Shader registers are untyped: integer and boolean results are stored as
// bit patterns inside F32x4 lanes. Use F32x4.Bits and U32x4.Float to
// reinterpret without conversion.
package wide

// Lanes is the number of lanes in every wide type.
const Lanes = 4
