// Package emitter implements a symbolic instruction buffer and label
// allocator targeting Jasmin's textual JVM assembly form: a named
// instruction mnemonic with zero, one, or a label operand, one buffer per
// subroutine, flushed through a sticky-error writer.
package emitter

// Op is a symbolic instruction mnemonic, named for what it does rather
// than the JVM opcode number it assembles to. These are the ones emitted
// directly by name; control-flow and call instructions carry their own
// operand conventions and are produced through dedicated Emitter methods
// instead of Gen1/Gen2 (GenCmp, GenCall, GenNewArray, ...).
const (
	OpLdc     = "ldc"
	OpIAdd    = "iadd"
	OpISub    = "isub"
	OpIMul    = "imul"
	OpIDiv    = "idiv"
	OpIRem    = "irem"
	OpIAnd    = "iand"
	OpIOr     = "ior"
	OpIXor    = "ixor"
	OpINeg    = "ineg"
	OpILoad   = "iload"
	OpIStore  = "istore"
	OpALoad   = "aload"
	OpAStore  = "astore"
	OpIALoad  = "iaload"
	OpIAStore = "iastore"
	OpReturn  = "return"
	OpIReturn = "ireturn"
	OpAReturn = "areturn"
	OpIfEq    = "ifeq"
	OpGoto    = "goto"
)
