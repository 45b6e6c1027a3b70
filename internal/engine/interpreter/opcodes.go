package interpreter

// opcode is the one-byte operation selector in bits 0..7 of an instruction
// word (spec.md §4.2). Values are an internal numbering; only the binary
// format's section layout is normative on the wire. The bytecode in this
// repository is hand-assembled by the test helpers in asm_test.go against
// this list, which no external encoding is checked against.
type opcode uint8

const (
	OpNop opcode = iota
	OpTrap
	OpRet

	OpJmp
	OpJz
	OpJnz
	OpJlt
	OpJle

	OpCall
	OpCallHost

	OpArg

	OpLdI32
	OpLdI64
	OpLdF32
	OpLdF64
	OpLdTrue
	OpLdFalse
	OpLdGlobal
	OpStGlobal

	OpAddI32
	OpSubI32
	OpMulI32
	OpDivSI32
	OpDivUI32
	OpRemSI32
	OpRemUI32
	OpNegI32
	OpAndI32
	OpOrI32
	OpXorI32
	OpNotI32
	OpShlI32
	OpShrSI32
	OpShrUI32
	OpClzI32
	OpCtzI32
	OpPopcntI32

	OpAddI64
	OpSubI64
	OpMulI64
	OpDivSI64
	OpDivUI64
	OpRemSI64
	OpRemUI64
	OpNegI64
	OpAndI64
	OpOrI64
	OpXorI64
	OpNotI64
	OpShlI64
	OpShrSI64
	OpShrUI64

	OpAddF32
	OpSubF32
	OpMulF32
	OpDivF32
	OpAbsF32
	OpNegF32
	OpSqrtF32
	OpMinF32
	OpMaxF32
	OpFloorF32
	OpCeilF32
	OpRoundF32

	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64
	OpAbsF64
	OpNegF64
	OpSqrtF64
	OpMinF64
	OpMaxF64
	OpFloorF64
	OpCeilF64
	OpRoundF64

	OpEqI32
	OpNeI32
	OpLtI32
	OpLeI32
	OpGtI32
	OpGeI32
	OpLtuI32
	OpLeuI32

	OpEqI64
	OpNeI64
	OpLtI64
	OpLeI64
	OpGtI64
	OpGeI64

	OpEqF32
	OpLtF32
	OpEqF64
	OpLtF64

	OpI32ToI64S
	OpU32ToI64
	OpI64ToI32
	OpI32ToF32
	OpI32ToF64
	OpI64ToF32
	OpI64ToF64
	OpF32ToI32
	OpF32ToI64
	OpF64ToI32
	OpF64ToI64
	OpF32ToF64
	OpF64ToF32
	OpBoolToI32

	OpLoad8S
	OpLoad8U
	OpLoad16S
	OpLoad16U
	OpLoad32
	OpLoad64
	OpLoadF32
	OpLoadF64
	OpStore8
	OpStore16
	OpStore32
	OpStore64
	OpStoreF32
	OpStoreF64

	OpMemSize
	OpMemGrow
	OpMemCopy
	OpMemFill

	OpMov

	opcodeCount
)

// immKind is how many trailing immediate bytes, if any, follow an
// instruction's 32-bit word (spec.md §4.2: "Immediates are consumed by the
// opcode per a fixed table").
type immKind uint8

const (
	immNone immKind = iota
	imm32
	imm64
)

// immediates maps each opcode to its trailing immediate width. Opcodes
// absent from this table (the zero value) take no immediate.
var immediates = [opcodeCount]immKind{
	OpJmp:      imm32,
	OpJz:       imm32,
	OpJnz:      imm32,
	OpJlt:      imm32,
	OpJle:      imm32,
	OpCall:     imm32,
	OpCallHost: imm32,
	OpLdI32:    imm32,
	OpLdI64:    imm64,
	OpLdF32:    imm32,
	OpLdF64:    imm64,
	OpLdGlobal: imm32,
	OpStGlobal: imm32,
	OpLoad8S:   imm32,
	OpLoad8U:   imm32,
	OpLoad16S:  imm32,
	OpLoad16U:  imm32,
	OpLoad32:   imm32,
	OpLoad64:   imm32,
	OpLoadF32:  imm32,
	OpLoadF64:  imm32,
	OpStore8:   imm32,
	OpStore16:  imm32,
	OpStore32:  imm32,
	OpStore64:  imm32,
	OpStoreF32: imm32,
	OpStoreF64: imm32,
}

func (o opcode) valid() bool { return o < opcodeCount }

func (o opcode) immKind() immKind {
	if !o.valid() {
		return immNone
	}
	return immediates[o]
}
