package interpreter

import (
	"context"
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/moremath"
	"github.com/runevm/rune/internal/wasm"
)

// instrWord is a decoded 32-bit instruction word (spec.md §4.2): an
// opcode plus three 8-bit register operands.
type instrWord struct {
	op       opcode
	dst, s1, s2 uint8
}

func decodeWord(b []byte) instrWord {
	return instrWord{op: opcode(b[0]), dst: b[1], s1: b[2], s2: b[3]}
}

// runFrame executes one local function's dispatch loop (spec.md §4.2
// "Execution algorithm" steps 2-5), grounded on the teacher's
// callNativeFunc: push a frame, loop over code fetching/decoding/executing
// one word at a time, and return on `ret` or falling off the end.
func (vm *VM) runFrame(ctx context.Context, funcIndex uint32, fn *wasm.Function, args []api.Value) api.Value {
	f, ok := vm.stack.push(funcIndex, fn.RegCount)
	if !ok {
		raise(errStackOverflow)
	}
	defer vm.stack.pop()

	n := len(args)
	if n > int(fn.RegCount) {
		n = int(fn.RegCount)
	}
	copy(f.regs[:n], args[:n])

	code := fn.Code
	words := fn.NumWords()

	for f.pc < words {
		wordPC := f.pc
		off := wordPC * 4
		w := decodeWord(code[off : off+4])
		f.pc++

		vm.fuelUsed++
		if vm.fuelLimit > 0 && vm.fuelUsed > vm.fuelLimit {
			trapAt(errFuelExhausted, funcIndex, wordPC)
		}

		if !w.op.valid() {
			trapf(errBadOpcode, funcIndex, wordPC, "opcode %d", w.op)
		}

		switch w.op {
		case OpNop:
			// no-op

		case OpTrap:
			trapAt(errTrap, funcIndex, wordPC)

		case OpRet:
			return f.regs[0]

		case OpJmp:
			rel := vm.fetchImm32(fn, f)
			f.pc = applyJump(f.pc, rel)

		case OpJz:
			rel := vm.fetchImm32(fn, f)
			if !f.regs[w.s1].Truthy() {
				f.pc = applyJump(f.pc, rel)
			}

		case OpJnz:
			rel := vm.fetchImm32(fn, f)
			if f.regs[w.s1].Truthy() {
				f.pc = applyJump(f.pc, rel)
			}

		case OpJlt:
			rel := vm.fetchImm32(fn, f)
			if f.regs[w.s1].I32() < f.regs[w.s2].I32() {
				f.pc = applyJump(f.pc, rel)
			}

		case OpJle:
			rel := vm.fetchImm32(fn, f)
			if f.regs[w.s1].I32() <= f.regs[w.s2].I32() {
				f.pc = applyJump(f.pc, rel)
			}

		case OpCall:
			calleeIndex := vm.fetchImm32(fn, f)
			callArgs := vm.drainStaging()
			f.regs[w.dst] = vm.exec(ctx, uint32(calleeIndex), callArgs)

		case OpCallHost:
			importIndex := vm.fetchImm32(fn, f)
			callArgs := vm.drainStaging()
			calleeIdx := vm.importFuncIndex(importIndex)
			f.regs[w.dst] = vm.exec(ctx, calleeIdx, callArgs)

		case OpArg:
			slot := w.dst
			if int(slot) >= api.MaxStagingSlots {
				trapf(errBadOpcode, funcIndex, wordPC, "arg slot %d out of range", slot)
			}
			vm.staging[slot] = f.regs[w.s1]
			if int(slot)+1 > vm.stagingCount {
				vm.stagingCount = int(slot) + 1
			}

		case OpLdI32:
			imm := vm.fetchImm32(fn, f)
			f.regs[w.dst] = api.I32(int32(imm))

		case OpLdI64:
			imm := vm.fetchImm64(fn, f)
			f.regs[w.dst] = api.I64(int64(imm))

		case OpLdF32:
			imm := vm.fetchImm32(fn, f)
			f.regs[w.dst] = api.F32(math.Float32frombits(uint32(imm)))

		case OpLdF64:
			imm := vm.fetchImm64(fn, f)
			f.regs[w.dst] = api.F64(math.Float64frombits(imm))

		case OpLdTrue:
			f.regs[w.dst] = api.Bool(true)

		case OpLdFalse:
			f.regs[w.dst] = api.Bool(false)

		case OpLdGlobal:
			idx := vm.fetchImm32(fn, f)
			f.regs[w.dst] = vm.globals[idx]

		case OpStGlobal:
			idx := vm.fetchImm32(fn, f)
			vm.globals[idx] = f.regs[w.s1]

		case OpMov:
			f.regs[w.dst] = f.regs[w.s1]

		// Integer i32
		case OpAddI32:
			f.regs[w.dst] = api.I32(f.regs[w.s1].I32() + f.regs[w.s2].I32())
		case OpSubI32:
			f.regs[w.dst] = api.I32(f.regs[w.s1].I32() - f.regs[w.s2].I32())
		case OpMulI32:
			f.regs[w.dst] = api.I32(f.regs[w.s1].I32() * f.regs[w.s2].I32())
		case OpDivSI32:
			divisor := f.regs[w.s2].I32()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.I32(f.regs[w.s1].I32() / divisor)
		case OpDivUI32:
			divisor := f.regs[w.s2].U32()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.U32(f.regs[w.s1].U32() / divisor)
		case OpRemSI32:
			divisor := f.regs[w.s2].I32()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.I32(f.regs[w.s1].I32() % divisor)
		case OpRemUI32:
			divisor := f.regs[w.s2].U32()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.U32(f.regs[w.s1].U32() % divisor)
		case OpNegI32:
			f.regs[w.dst] = api.I32(-f.regs[w.s1].I32())
		case OpAndI32:
			f.regs[w.dst] = api.U32(f.regs[w.s1].U32() & f.regs[w.s2].U32())
		case OpOrI32:
			f.regs[w.dst] = api.U32(f.regs[w.s1].U32() | f.regs[w.s2].U32())
		case OpXorI32:
			f.regs[w.dst] = api.U32(f.regs[w.s1].U32() ^ f.regs[w.s2].U32())
		case OpNotI32:
			f.regs[w.dst] = api.U32(^f.regs[w.s1].U32())
		case OpShlI32:
			shift := f.regs[w.s2].U32() & 31
			f.regs[w.dst] = api.U32(f.regs[w.s1].U32() << shift)
		case OpShrSI32:
			shift := f.regs[w.s2].U32() & 31
			f.regs[w.dst] = api.I32(f.regs[w.s1].I32() >> shift)
		case OpShrUI32:
			shift := f.regs[w.s2].U32() & 31
			f.regs[w.dst] = api.U32(f.regs[w.s1].U32() >> shift)
		case OpClzI32:
			f.regs[w.dst] = api.I32(int32(bits.LeadingZeros32(f.regs[w.s1].U32())))
		case OpCtzI32:
			f.regs[w.dst] = api.I32(int32(bits.TrailingZeros32(f.regs[w.s1].U32())))
		case OpPopcntI32:
			f.regs[w.dst] = api.I32(int32(bits.OnesCount32(f.regs[w.s1].U32())))

		// Integer i64
		case OpAddI64:
			f.regs[w.dst] = api.I64(f.regs[w.s1].I64() + f.regs[w.s2].I64())
		case OpSubI64:
			f.regs[w.dst] = api.I64(f.regs[w.s1].I64() - f.regs[w.s2].I64())
		case OpMulI64:
			f.regs[w.dst] = api.I64(f.regs[w.s1].I64() * f.regs[w.s2].I64())
		case OpDivSI64:
			divisor := f.regs[w.s2].I64()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.I64(f.regs[w.s1].I64() / divisor)
		case OpDivUI64:
			divisor := f.regs[w.s2].U64()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.U64(f.regs[w.s1].U64() / divisor)
		case OpRemSI64:
			divisor := f.regs[w.s2].I64()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.I64(f.regs[w.s1].I64() % divisor)
		case OpRemUI64:
			divisor := f.regs[w.s2].U64()
			if divisor == 0 {
				trapAt(errDivZero, funcIndex, wordPC)
			}
			f.regs[w.dst] = api.U64(f.regs[w.s1].U64() % divisor)
		case OpNegI64:
			f.regs[w.dst] = api.I64(-f.regs[w.s1].I64())
		case OpAndI64:
			f.regs[w.dst] = api.U64(f.regs[w.s1].U64() & f.regs[w.s2].U64())
		case OpOrI64:
			f.regs[w.dst] = api.U64(f.regs[w.s1].U64() | f.regs[w.s2].U64())
		case OpXorI64:
			f.regs[w.dst] = api.U64(f.regs[w.s1].U64() ^ f.regs[w.s2].U64())
		case OpNotI64:
			f.regs[w.dst] = api.U64(^f.regs[w.s1].U64())
		case OpShlI64:
			shift := f.regs[w.s2].U64() & 63
			f.regs[w.dst] = api.U64(f.regs[w.s1].U64() << shift)
		case OpShrSI64:
			shift := f.regs[w.s2].U64() & 63
			f.regs[w.dst] = api.I64(f.regs[w.s1].I64() >> shift)
		case OpShrUI64:
			shift := f.regs[w.s2].U64() & 63
			f.regs[w.dst] = api.U64(f.regs[w.s1].U64() >> shift)

		// Float f32
		case OpAddF32:
			f.regs[w.dst] = api.F32(f.regs[w.s1].F32() + f.regs[w.s2].F32())
		case OpSubF32:
			f.regs[w.dst] = api.F32(f.regs[w.s1].F32() - f.regs[w.s2].F32())
		case OpMulF32:
			f.regs[w.dst] = api.F32(f.regs[w.s1].F32() * f.regs[w.s2].F32())
		case OpDivF32:
			f.regs[w.dst] = api.F32(f.regs[w.s1].F32() / f.regs[w.s2].F32())
		case OpAbsF32:
			f.regs[w.dst] = api.F32(float32(math.Abs(float64(f.regs[w.s1].F32()))))
		case OpNegF32:
			f.regs[w.dst] = api.F32(-f.regs[w.s1].F32())
		case OpSqrtF32:
			f.regs[w.dst] = api.F32(float32(math.Sqrt(float64(f.regs[w.s1].F32()))))
		case OpMinF32:
			f.regs[w.dst] = api.F32(float32(moremath.MinPropagateNaN(float64(f.regs[w.s1].F32()), float64(f.regs[w.s2].F32()))))
		case OpMaxF32:
			f.regs[w.dst] = api.F32(float32(moremath.MaxPropagateNaN(float64(f.regs[w.s1].F32()), float64(f.regs[w.s2].F32()))))
		case OpFloorF32:
			f.regs[w.dst] = api.F32(float32(math.Floor(float64(f.regs[w.s1].F32()))))
		case OpCeilF32:
			f.regs[w.dst] = api.F32(float32(math.Ceil(float64(f.regs[w.s1].F32()))))
		case OpRoundF32:
			f.regs[w.dst] = api.F32(float32(math.RoundToEven(float64(f.regs[w.s1].F32()))))

		// Float f64
		case OpAddF64:
			f.regs[w.dst] = api.F64(f.regs[w.s1].F64() + f.regs[w.s2].F64())
		case OpSubF64:
			f.regs[w.dst] = api.F64(f.regs[w.s1].F64() - f.regs[w.s2].F64())
		case OpMulF64:
			f.regs[w.dst] = api.F64(f.regs[w.s1].F64() * f.regs[w.s2].F64())
		case OpDivF64:
			f.regs[w.dst] = api.F64(f.regs[w.s1].F64() / f.regs[w.s2].F64())
		case OpAbsF64:
			f.regs[w.dst] = api.F64(math.Abs(f.regs[w.s1].F64()))
		case OpNegF64:
			f.regs[w.dst] = api.F64(-f.regs[w.s1].F64())
		case OpSqrtF64:
			f.regs[w.dst] = api.F64(math.Sqrt(f.regs[w.s1].F64()))
		case OpMinF64:
			f.regs[w.dst] = api.F64(moremath.MinPropagateNaN(f.regs[w.s1].F64(), f.regs[w.s2].F64()))
		case OpMaxF64:
			f.regs[w.dst] = api.F64(moremath.MaxPropagateNaN(f.regs[w.s1].F64(), f.regs[w.s2].F64()))
		case OpFloorF64:
			f.regs[w.dst] = api.F64(math.Floor(f.regs[w.s1].F64()))
		case OpCeilF64:
			f.regs[w.dst] = api.F64(math.Ceil(f.regs[w.s1].F64()))
		case OpRoundF64:
			f.regs[w.dst] = api.F64(math.RoundToEven(f.regs[w.s1].F64()))

		// Comparisons
		case OpEqI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I32() == f.regs[w.s2].I32())
		case OpNeI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I32() != f.regs[w.s2].I32())
		case OpLtI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I32() < f.regs[w.s2].I32())
		case OpLeI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I32() <= f.regs[w.s2].I32())
		case OpGtI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I32() > f.regs[w.s2].I32())
		case OpGeI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I32() >= f.regs[w.s2].I32())
		case OpLtuI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].U32() < f.regs[w.s2].U32())
		case OpLeuI32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].U32() <= f.regs[w.s2].U32())

		case OpEqI64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I64() == f.regs[w.s2].I64())
		case OpNeI64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I64() != f.regs[w.s2].I64())
		case OpLtI64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I64() < f.regs[w.s2].I64())
		case OpLeI64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I64() <= f.regs[w.s2].I64())
		case OpGtI64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I64() > f.regs[w.s2].I64())
		case OpGeI64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].I64() >= f.regs[w.s2].I64())

		case OpEqF32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].F32() == f.regs[w.s2].F32())
		case OpLtF32:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].F32() < f.regs[w.s2].F32())
		case OpEqF64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].F64() == f.regs[w.s2].F64())
		case OpLtF64:
			f.regs[w.dst] = api.Bool(f.regs[w.s1].F64() < f.regs[w.s2].F64())

		// Conversions
		case OpI32ToI64S:
			f.regs[w.dst] = api.I64(int64(f.regs[w.s1].I32()))
		case OpU32ToI64:
			f.regs[w.dst] = api.I64(int64(f.regs[w.s1].U32()))
		case OpI64ToI32:
			f.regs[w.dst] = api.I32(int32(f.regs[w.s1].I64()))
		case OpI32ToF32:
			f.regs[w.dst] = api.F32(float32(f.regs[w.s1].I32()))
		case OpI32ToF64:
			f.regs[w.dst] = api.F64(float64(f.regs[w.s1].I32()))
		case OpI64ToF32:
			f.regs[w.dst] = api.F32(float32(f.regs[w.s1].I64()))
		case OpI64ToF64:
			f.regs[w.dst] = api.F64(float64(f.regs[w.s1].I64()))
		case OpF32ToI32:
			f.regs[w.dst] = api.I32(int32(f.regs[w.s1].F32()))
		case OpF32ToI64:
			f.regs[w.dst] = api.I64(int64(f.regs[w.s1].F32()))
		case OpF64ToI32:
			f.regs[w.dst] = api.I32(int32(f.regs[w.s1].F64()))
		case OpF64ToI64:
			f.regs[w.dst] = api.I64(int64(f.regs[w.s1].F64()))
		case OpF32ToF64:
			f.regs[w.dst] = api.F64(float64(f.regs[w.s1].F32()))
		case OpF64ToF32:
			f.regs[w.dst] = api.F32(float32(f.regs[w.s1].F64()))
		case OpBoolToI32:
			v := int32(0)
			if f.regs[w.s1].Bool() {
				v = 1
			}
			f.regs[w.dst] = api.I32(v)

		// Memory. Effective address = regs[s1].i32 + imm32 (spec.md §4.2).
		case OpLoad8S:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 1)
			f.regs[w.dst] = api.I32(int32(int8(b[0])))
		case OpLoad8U:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 1)
			f.regs[w.dst] = api.I32(int32(b[0]))
		case OpLoad16S:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 2)
			f.regs[w.dst] = api.I32(int32(int16(binary.LittleEndian.Uint16(b))))
		case OpLoad16U:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 2)
			f.regs[w.dst] = api.I32(int32(binary.LittleEndian.Uint16(b)))
		case OpLoad32:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 4)
			f.regs[w.dst] = api.I32(int32(binary.LittleEndian.Uint32(b)))
		case OpLoad64:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 8)
			f.regs[w.dst] = api.I64(int64(binary.LittleEndian.Uint64(b)))
		case OpLoadF32:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 4)
			f.regs[w.dst] = api.F32(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case OpLoadF64:
			addr := vm.memAddr(fn, f, w.s1)
			b := vm.mustRead(funcIndex, wordPC, addr, 8)
			f.regs[w.dst] = api.F64(math.Float64frombits(binary.LittleEndian.Uint64(b)))

		case OpStore8:
			addr := vm.memAddr(fn, f, w.s1)
			vm.mustWrite(funcIndex, wordPC, addr, []byte{byte(f.regs[w.s2].U32())})
		case OpStore16:
			addr := vm.memAddr(fn, f, w.s1)
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(f.regs[w.s2].U32()))
			vm.mustWrite(funcIndex, wordPC, addr, b[:])
		case OpStore32:
			addr := vm.memAddr(fn, f, w.s1)
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], f.regs[w.s2].U32())
			vm.mustWrite(funcIndex, wordPC, addr, b[:])
		case OpStore64:
			addr := vm.memAddr(fn, f, w.s1)
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], f.regs[w.s2].U64())
			vm.mustWrite(funcIndex, wordPC, addr, b[:])
		case OpStoreF32:
			addr := vm.memAddr(fn, f, w.s1)
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(f.regs[w.s2].F32()))
			vm.mustWrite(funcIndex, wordPC, addr, b[:])
		case OpStoreF64:
			addr := vm.memAddr(fn, f, w.s1)
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(f.regs[w.s2].F64()))
			vm.mustWrite(funcIndex, wordPC, addr, b[:])

		// Bulk memory
		case OpMemSize:
			f.regs[w.dst] = api.I32(int32(vm.mustMem(funcIndex, wordPC).pages))

		case OpMemGrow:
			delta := f.regs[w.s1].U32()
			prev, ok := vm.mustMem(funcIndex, wordPC).Grow(delta)
			if !ok {
				f.regs[w.dst] = api.I32(-1)
			} else {
				f.regs[w.dst] = api.I32(int32(prev))
			}

		case OpMemCopy:
			destAddr := f.regs[w.dst].U32()
			srcAddr := f.regs[w.s1].U32()
			size := f.regs[w.s2].U32()
			mem := vm.mustMem(funcIndex, wordPC)
			src, ok := mem.Read(srcAddr, size)
			if !ok {
				trapAt(errBounds, funcIndex, wordPC)
			}
			tmp := make([]byte, len(src))
			copy(tmp, src) // memmove semantics: overlap-safe even if dest < src.
			if !mem.Write(destAddr, tmp) {
				trapAt(errBounds, funcIndex, wordPC)
			}

		case OpMemFill:
			destAddr := f.regs[w.dst].U32()
			value := byte(f.regs[w.s1].U32())
			size := f.regs[w.s2].U32()
			mem := vm.mustMem(funcIndex, wordPC)
			fillBuf := make([]byte, size)
			for i := range fillBuf {
				fillBuf[i] = value
			}
			if !mem.Write(destAddr, fillBuf) {
				trapAt(errBounds, funcIndex, wordPC)
			}

		default:
			trapf(errBadOpcode, funcIndex, wordPC, "unimplemented opcode %d", w.op)
		}
	}

	if words == 0 {
		return api.Void
	}
	return f.regs[0]
}

// applyJump computes the post-immediate pc plus a signed relative word
// offset (spec.md §4.2 "Control-flow offset semantics"). pcAfterImm is
// already the word index immediately after the jump's immediate.
func applyJump(pcAfterImm uint32, rel int32) uint32 {
	return uint32(int64(pcAfterImm) + int64(rel))
}

func (vm *VM) fetchImm32(fn *wasm.Function, f *frame) int32 {
	off := f.pc * 4
	if uint64(off)+4 > uint64(len(fn.Code)) {
		trapAt(errBadOpcode, f.funcIndex, f.pc)
	}
	v := int32(binary.LittleEndian.Uint32(fn.Code[off : off+4]))
	f.pc++
	return v
}

func (vm *VM) fetchImm64(fn *wasm.Function, f *frame) uint64 {
	off := f.pc * 4
	if uint64(off)+8 > uint64(len(fn.Code)) {
		trapAt(errBadOpcode, f.funcIndex, f.pc)
	}
	v := binary.LittleEndian.Uint64(fn.Code[off : off+8])
	f.pc += 2
	return v
}

// memAddr fetches a memory opcode's trailing imm32 offset and adds it to
// the base register, yielding the effective address (spec.md §4.2
// "Memory": "Effective address = regs[s1].i32 + imm32").
func (vm *VM) memAddr(fn *wasm.Function, f *frame, base uint8) uint32 {
	offset := vm.fetchImm32(fn, f)
	return f.regs[base].U32() + uint32(offset)
}

func (vm *VM) mustMem(funcIndex, pc uint32) *memoryUnit {
	if vm.mem == nil {
		trapAt(errBounds, funcIndex, pc)
	}
	return vm.mem
}

func (vm *VM) mustRead(funcIndex, pc, addr, length uint32) []byte {
	b, ok := vm.mustMem(funcIndex, pc).Read(addr, length)
	if !ok {
		trapAt(errBounds, funcIndex, pc)
	}
	return b
}

func (vm *VM) mustWrite(funcIndex, pc, addr uint32, data []byte) {
	if !vm.mustMem(funcIndex, pc).Write(addr, data) {
		trapAt(errBounds, funcIndex, pc)
	}
}

// drainStaging returns a copy of the consumed argument-staging buffer and
// clears it (spec.md §4.2 "arg": "The next call consumes and clears
// staging").
func (vm *VM) drainStaging() []api.Value {
	n := vm.stagingCount
	if n == 0 {
		return nil
	}
	out := make([]api.Value, n)
	copy(out, vm.staging[:n])
	vm.stagingCount = 0
	return out
}

// importFuncIndex maps an import index to its module-wide function index:
// imports occupy [0, import_count) in declaration order (spec.md §4.1).
func (vm *VM) importFuncIndex(importIndex int32) uint32 {
	if importIndex < 0 || int(importIndex) >= vm.module.ImportCount() {
		trapf(errNoImport, 0, 0, "import index %d out of range", importIndex)
	}
	return uint32(importIndex)
}
