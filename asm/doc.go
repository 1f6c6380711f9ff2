// Package asm reads and writes shader programs as text.
//
// The syntax follows shader model 3 assembly. A program starts with a
// version line naming its stage, followed by one instruction per line:
//
//	ps_3_0
//	def c0, 0.5, 0.5, 0.5, 1
//	dcl s0
//	texld r0, v0, s0
//	(p0.x) mul_sat o0, r0, c0     // predicated, saturated
//	mov r1, c[a0.x + 4]           // relative constant
//	mov r2, -|r0|.wzyx            // negated absolute value, swizzled
//
// Comments start with "//", ";" or "#". Mnemonic suffixes select the
// comparison ("_gt", "_le", ...), saturation ("_sat"), partial precision
// ("_pp") and integer destinations ("_int"); texture mnemonics take "p"
// (project) and "b" (bias) as in texldp. Immediates are written in braces,
// {1, 2, 3, 4}, int{1, -2, 3, 4} for integer bit patterns, and 0x
// literals for raw bits.
//
// Format writes the same syntax, so Parse(Format(p)) reproduces p.
package asm
