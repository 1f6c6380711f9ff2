package shader

import "strconv"

// Opcode identifies the operation performed by an Instruction.
type Opcode uint16

// Opcodes. The comment on each group gives its operand convention; srcN
// refers to Instruction.Src[N].
const (
	OpNop Opcode = iota

	// Moves and conversions.
	OpMov     // dst = src0
	OpMova    // a0 = round(src0) as integer bits
	OpF2I     // float to int, truncating
	OpI2F     // int to float
	OpF2U     // float to uint, truncating
	OpU2F     // uint to float
	OpF2B     // float != 0 to boolean mask
	OpB2F     // boolean mask to 0.0 or 1.0
	OpI2B     // int != 0 to boolean mask
	OpB2I     // boolean mask to int 0 or 1
	OpBitcast // bit pattern copy, used by front ends for typed reinterpretation

	// Float arithmetic.
	OpAdd
	OpSub
	OpMul
	OpMad // src0*src1 + src2
	OpDiv
	OpMod // src0 - src1*floor(src0/src1)
	OpNeg
	OpAbs
	OpMin
	OpMax
	OpFrc
	OpFloor
	OpCeil
	OpTrunc
	OpRound
	OpRoundEven
	OpSgn
	OpStep   // step(edge=src0, x=src1)
	OpSmooth // smoothstep(src0, src1, src2)
	OpLrp    // src0*(src1 - src2) + src2
	OpClamp  // clamp(src0, src1, src2)
	OpSat

	// Float comparisons producing 1.0 or 0.0.
	OpSlt
	OpSge
	OpSeq
	OpSgt
	OpSle
	OpSne

	// Selection.
	OpCmp0    // src0 >= 0 ? src1 : src2
	OpCnd     // src0 > 0.5 ? src1 : src2
	OpCmp     // mask of src0 <Compare> src1
	OpICmp    // signed integer compare producing a mask
	OpUCmp    // unsigned integer compare producing a mask
	OpSelect  // src0 mask ? src1 : src2
	OpExtract // dst = src0[src1.x]
	OpInsert  // dst = src0 with component src2.x replaced by src1.x

	// Boolean and bitwise.
	OpAll // x = all components of src0 set
	OpAny // x = any component of src0 set
	OpNot
	OpOr
	OpXor
	OpAnd
	OpEq // mask of src0 == src1 per component, by bit pattern
	OpNe

	// Integer arithmetic on bit patterns.
	OpIAdd
	OpISub
	OpIMul
	OpIDiv
	OpUDiv
	OpIMod
	OpUMod
	OpINeg
	OpIAbs
	OpISgn
	OpIMin
	OpIMax
	OpUMin
	OpUMax
	OpShl
	OpIShr
	OpUShr
	OpBitCount

	// Packing.
	OpPackSnorm2x16
	OpPackUnorm2x16
	OpPackHalf2x16
	OpUnpackSnorm2x16
	OpUnpackUnorm2x16
	OpUnpackHalf2x16

	// Dot products and vector algebra. Scalar results are broadcast.
	OpDp1
	OpDp2
	OpDp2Add // dot2(src0, src1) + src2.x
	OpDp3
	OpDp4
	OpDst // (1, src0.y*src1.y, src0.z, src1.w)
	OpLit
	OpCrs
	OpNrm2
	OpNrm3
	OpNrm4
	OpLen2
	OpLen3
	OpLen4
	OpDist1
	OpDist2
	OpDist3
	OpDist4
	OpReflect1
	OpReflect2
	OpReflect3
	OpReflect4
	OpRefract1 // refract(src0, src1, eta=src2.x)
	OpRefract2
	OpRefract3
	OpRefract4
	OpForward1 // faceforward(N=src0, I=src1, Nref=src2)
	OpForward2
	OpForward3
	OpForward4

	// Matrix multiply: src1 names the first of consecutive rows.
	OpM3x2
	OpM3x3
	OpM3x4
	OpM4x3
	OpM4x4
	OpDet2 // rows src0..src1
	OpDet3 // rows src0..src2
	OpDet4 // rows src0..src3

	// Transcendentals. The x variants are the legacy forms on |src0|.
	OpRcpx
	OpRcp
	OpRsqx
	OpRsq
	OpSqrt
	OpExp2x
	OpExp2
	OpExpp
	OpExp
	OpLog2x
	OpLog2
	OpLogp
	OpLog
	OpPowx
	OpPow
	OpSinCos // x = cos(src0), y = sin(src0)
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpAtan2 // atan2(y=src0, x=src1)
	OpSinh
	OpCosh
	OpTanh
	OpAsinh
	OpAcosh
	OpAtanh
	OpIsNaN
	OpIsInf

	// Pixel stage.
	OpDfdx
	OpDfdy
	OpFwidth
	OpTexKill // kill lanes where any of src0.xyz < 0
	OpDiscard // kill every enabled lane

	// Texture sampling; src1 is the sampler unless noted.
	OpTex           // coord src0; Project and Bias flags apply
	OpTexLdd        // gradients src2 (ddx), src3 (ddy)
	OpTexLdl        // explicit lod src0.w
	OpTexBias       // bias src2.x
	OpTexOffset     // offset src2
	OpTexOffsetBias // offset src2, bias src3.x
	OpTexLod        // lod src2.x
	OpTexLodOffset  // offset src2, lod src3.x
	OpTexelFetch    // integer coords src0, lod src2.x
	OpTexelFetchOffset
	OpTexGrad       // gradients src2, src3
	OpTexGradOffset // gradients src2, src3, offset src4
	OpTexSize       // src0.x lod

	// Control flow.
	OpSetp
	OpIf  // src0 boolean constant or predicate
	OpIfc // src0 <Compare> src1
	OpElse
	OpEndIf
	OpLoop // src0 aL, src1 integer constant (count, start, step)
	OpEndLoop
	OpRep // src0 integer constant count
	OpEndRep
	OpWhile // src0 per-lane condition mask
	OpEndWhile
	OpTest // marks the start of the WHILE condition re-evaluation
	OpBreak
	OpBreakc // break where src0 <Compare> src1
	OpBreakp // break where the predicate src0 is set
	OpContinue
	OpSwitch
	OpEndSwitch
	OpCall   // src0 label
	OpCallnz // src0 label, src1 boolean constant or predicate
	OpLabel  // src0 label
	OpRet
	OpLeave

	// Declarations. No code is generated for these.
	OpDcl
	OpDef  // dst c#, src0 immediate
	OpDefi // dst i#, src0 immediate holding integer values
	OpDefb // dst b#, src0.x nonzero
	OpEnd

	opcodeCount
)

// opcodeInfo describes static properties of an opcode.
type opcodeInfo struct {
	name  string
	srcs  int
	class opClass
}

type opClass uint8

const (
	classALU opClass = iota
	classTexture
	classFlow
	classDecl
)

var opcodes = [opcodeCount]opcodeInfo{
	OpNop:     {"nop", 0, classALU},
	OpMov:     {"mov", 1, classALU},
	OpMova:    {"mova", 1, classALU},
	OpF2I:     {"f2i", 1, classALU},
	OpI2F:     {"i2f", 1, classALU},
	OpF2U:     {"f2u", 1, classALU},
	OpU2F:     {"u2f", 1, classALU},
	OpF2B:     {"f2b", 1, classALU},
	OpB2F:     {"b2f", 1, classALU},
	OpI2B:     {"i2b", 1, classALU},
	OpB2I:     {"b2i", 1, classALU},
	OpBitcast: {"bitcast", 1, classALU},

	OpAdd:       {"add", 2, classALU},
	OpSub:       {"sub", 2, classALU},
	OpMul:       {"mul", 2, classALU},
	OpMad:       {"mad", 3, classALU},
	OpDiv:       {"div", 2, classALU},
	OpMod:       {"mod", 2, classALU},
	OpNeg:       {"neg", 1, classALU},
	OpAbs:       {"abs", 1, classALU},
	OpMin:       {"min", 2, classALU},
	OpMax:       {"max", 2, classALU},
	OpFrc:       {"frc", 1, classALU},
	OpFloor:     {"floor", 1, classALU},
	OpCeil:      {"ceil", 1, classALU},
	OpTrunc:     {"trunc", 1, classALU},
	OpRound:     {"round", 1, classALU},
	OpRoundEven: {"roundeven", 1, classALU},
	OpSgn:       {"sgn", 1, classALU},
	OpStep:      {"step", 2, classALU},
	OpSmooth:    {"smooth", 3, classALU},
	OpLrp:       {"lrp", 3, classALU},
	OpClamp:     {"clamp", 3, classALU},
	OpSat:       {"sat", 1, classALU},

	OpSlt: {"slt", 2, classALU},
	OpSge: {"sge", 2, classALU},
	OpSeq: {"seq", 2, classALU},
	OpSgt: {"sgt", 2, classALU},
	OpSle: {"sle", 2, classALU},
	OpSne: {"sne", 2, classALU},

	OpCmp0:    {"cmp", 3, classALU},
	OpCnd:     {"cnd", 3, classALU},
	OpCmp:     {"setcmp", 2, classALU},
	OpICmp:    {"icmp", 2, classALU},
	OpUCmp:    {"ucmp", 2, classALU},
	OpSelect:  {"select", 3, classALU},
	OpExtract: {"extract", 2, classALU},
	OpInsert:  {"insert", 3, classALU},

	OpAll: {"all", 1, classALU},
	OpAny: {"any", 1, classALU},
	OpNot: {"not", 1, classALU},
	OpOr:  {"or", 2, classALU},
	OpXor: {"xor", 2, classALU},
	OpAnd: {"and", 2, classALU},
	OpEq:  {"eq", 2, classALU},
	OpNe:  {"ne", 2, classALU},

	OpIAdd:     {"iadd", 2, classALU},
	OpISub:     {"isub", 2, classALU},
	OpIMul:     {"imul", 2, classALU},
	OpIDiv:     {"idiv", 2, classALU},
	OpUDiv:     {"udiv", 2, classALU},
	OpIMod:     {"imod", 2, classALU},
	OpUMod:     {"umod", 2, classALU},
	OpINeg:     {"ineg", 1, classALU},
	OpIAbs:     {"iabs", 1, classALU},
	OpISgn:     {"isgn", 1, classALU},
	OpIMin:     {"imin", 2, classALU},
	OpIMax:     {"imax", 2, classALU},
	OpUMin:     {"umin", 2, classALU},
	OpUMax:     {"umax", 2, classALU},
	OpShl:      {"shl", 2, classALU},
	OpIShr:     {"ishr", 2, classALU},
	OpUShr:     {"ushr", 2, classALU},
	OpBitCount: {"bitcount", 1, classALU},

	OpPackSnorm2x16:   {"packsnorm2x16", 1, classALU},
	OpPackUnorm2x16:   {"packunorm2x16", 1, classALU},
	OpPackHalf2x16:    {"packhalf2x16", 1, classALU},
	OpUnpackSnorm2x16: {"unpacksnorm2x16", 1, classALU},
	OpUnpackUnorm2x16: {"unpackunorm2x16", 1, classALU},
	OpUnpackHalf2x16:  {"unpackhalf2x16", 1, classALU},

	OpDp1:      {"dp1", 2, classALU},
	OpDp2:      {"dp2", 2, classALU},
	OpDp2Add:   {"dp2add", 3, classALU},
	OpDp3:      {"dp3", 2, classALU},
	OpDp4:      {"dp4", 2, classALU},
	OpDst:      {"dst", 2, classALU},
	OpLit:      {"lit", 1, classALU},
	OpCrs:      {"crs", 2, classALU},
	OpNrm2:     {"nrm2", 1, classALU},
	OpNrm3:     {"nrm", 1, classALU},
	OpNrm4:     {"nrm4", 1, classALU},
	OpLen2:     {"len2", 1, classALU},
	OpLen3:     {"len3", 1, classALU},
	OpLen4:     {"len4", 1, classALU},
	OpDist1:    {"dist1", 2, classALU},
	OpDist2:    {"dist2", 2, classALU},
	OpDist3:    {"dist3", 2, classALU},
	OpDist4:    {"dist4", 2, classALU},
	OpReflect1: {"reflect1", 2, classALU},
	OpReflect2: {"reflect2", 2, classALU},
	OpReflect3: {"reflect3", 2, classALU},
	OpReflect4: {"reflect4", 2, classALU},
	OpRefract1: {"refract1", 3, classALU},
	OpRefract2: {"refract2", 3, classALU},
	OpRefract3: {"refract3", 3, classALU},
	OpRefract4: {"refract4", 3, classALU},
	OpForward1: {"forward1", 3, classALU},
	OpForward2: {"forward2", 3, classALU},
	OpForward3: {"forward3", 3, classALU},
	OpForward4: {"forward4", 3, classALU},

	OpM3x2: {"m3x2", 2, classALU},
	OpM3x3: {"m3x3", 2, classALU},
	OpM3x4: {"m3x4", 2, classALU},
	OpM4x3: {"m4x3", 2, classALU},
	OpM4x4: {"m4x4", 2, classALU},
	OpDet2: {"det2", 2, classALU},
	OpDet3: {"det3", 3, classALU},
	OpDet4: {"det4", 4, classALU},

	OpRcpx:   {"rcpx", 1, classALU},
	OpRcp:    {"rcp", 1, classALU},
	OpRsqx:   {"rsqx", 1, classALU},
	OpRsq:    {"rsq", 1, classALU},
	OpSqrt:   {"sqrt", 1, classALU},
	OpExp2x:  {"exp2x", 1, classALU},
	OpExp2:   {"exp2", 1, classALU},
	OpExpp:   {"expp", 1, classALU},
	OpExp:    {"exp", 1, classALU},
	OpLog2x:  {"log2x", 1, classALU},
	OpLog2:   {"log2", 1, classALU},
	OpLogp:   {"logp", 1, classALU},
	OpLog:    {"log", 1, classALU},
	OpPowx:   {"powx", 2, classALU},
	OpPow:    {"pow", 2, classALU},
	OpSinCos: {"sincos", 1, classALU},
	OpSin:    {"sin", 1, classALU},
	OpCos:    {"cos", 1, classALU},
	OpTan:    {"tan", 1, classALU},
	OpAsin:   {"asin", 1, classALU},
	OpAcos:   {"acos", 1, classALU},
	OpAtan:   {"atan", 1, classALU},
	OpAtan2:  {"atan2", 2, classALU},
	OpSinh:   {"sinh", 1, classALU},
	OpCosh:   {"cosh", 1, classALU},
	OpTanh:   {"tanh", 1, classALU},
	OpAsinh:  {"asinh", 1, classALU},
	OpAcosh:  {"acosh", 1, classALU},
	OpAtanh:  {"atanh", 1, classALU},
	OpIsNaN:  {"isnan", 1, classALU},
	OpIsInf:  {"isinf", 1, classALU},

	OpDfdx:    {"dsx", 1, classALU},
	OpDfdy:    {"dsy", 1, classALU},
	OpFwidth:  {"fwidth", 1, classALU},
	OpTexKill: {"texkill", 1, classALU},
	OpDiscard: {"discard", 0, classALU},

	OpTex:              {"texld", 2, classTexture},
	OpTexLdd:           {"texldd", 4, classTexture},
	OpTexLdl:           {"texldl", 2, classTexture},
	OpTexBias:          {"texbias", 3, classTexture},
	OpTexOffset:        {"texoffset", 3, classTexture},
	OpTexOffsetBias:    {"texoffsetbias", 4, classTexture},
	OpTexLod:           {"texlod", 3, classTexture},
	OpTexLodOffset:     {"texlodoffset", 4, classTexture},
	OpTexelFetch:       {"texelfetch", 3, classTexture},
	OpTexelFetchOffset: {"texelfetchoffset", 4, classTexture},
	OpTexGrad:          {"texgrad", 4, classTexture},
	OpTexGradOffset:    {"texgradoffset", 5, classTexture},
	OpTexSize:          {"texsize", 2, classTexture},

	OpSetp:      {"setp", 2, classALU},
	OpIf:        {"if", 1, classFlow},
	OpIfc:       {"ifc", 2, classFlow},
	OpElse:      {"else", 0, classFlow},
	OpEndIf:     {"endif", 0, classFlow},
	OpLoop:      {"loop", 2, classFlow},
	OpEndLoop:   {"endloop", 0, classFlow},
	OpRep:       {"rep", 1, classFlow},
	OpEndRep:    {"endrep", 0, classFlow},
	OpWhile:     {"while", 1, classFlow},
	OpEndWhile:  {"endwhile", 0, classFlow},
	OpTest:      {"test", 0, classFlow},
	OpBreak:     {"break", 0, classFlow},
	OpBreakc:    {"breakc", 2, classFlow},
	OpBreakp:    {"breakp", 1, classFlow},
	OpContinue:  {"continue", 0, classFlow},
	OpSwitch:    {"switch", 0, classFlow},
	OpEndSwitch: {"endswitch", 0, classFlow},
	OpCall:      {"call", 1, classFlow},
	OpCallnz:    {"callnz", 2, classFlow},
	OpLabel:     {"label", 1, classFlow},
	OpRet:       {"ret", 0, classFlow},
	OpLeave:     {"leave", 0, classFlow},

	OpDcl:  {"dcl", 0, classDecl},
	OpDef:  {"def", 1, classDecl},
	OpDefi: {"defi", 1, classDecl},
	OpDefb: {"defb", 1, classDecl},
	OpEnd:  {"end", 0, classDecl},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodes))
	for op, info := range opcodes {
		if info.name != "" {
			m[info.name] = Opcode(op)
		}
	}
	return m
}()

// String returns the assembler mnemonic of the opcode.
func (op Opcode) String() string {
	if op.Valid() {
		return opcodes[op].name
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op < opcodeCount && opcodes[op].name != ""
}

// Sources returns the number of source operands the opcode reads.
func (op Opcode) Sources() int {
	if !op.Valid() {
		return 0
	}
	return opcodes[op].srcs
}

// IsTexture reports whether op samples or queries a texture.
func (op Opcode) IsTexture() bool { return op.Valid() && opcodes[op].class == classTexture }

// IsFlow reports whether op is a control-flow instruction.
func (op Opcode) IsFlow() bool { return op.Valid() && opcodes[op].class == classFlow }

// IsDeclaration reports whether op only carries compile-time metadata.
func (op Opcode) IsDeclaration() bool { return op.Valid() && opcodes[op].class == classDecl }

// LookupOpcode returns the opcode for an assembler mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}
