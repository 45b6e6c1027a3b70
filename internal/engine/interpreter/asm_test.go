package interpreter

import (
	"encoding/binary"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/wasm"
)

// The wire format has no assembler (spec.md §1 Non-goals), so every test
// fixture below builds its code as a raw []byte directly, the same way the
// loader's own decoder tests build byte slices by hand.

func asmWord(op opcode, dst, s1, s2 uint8) []byte {
	return []byte{byte(op), dst, s1, s2}
}

func asmImm32(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func asmImm64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func asm(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// singleFuncModule builds a module exporting one function "main" with the
// given code, register count, and signature. No imports, no memory.
func singleFuncModule(code []byte, regCount uint8, params []api.ValueKind, results []api.ValueKind) *wasm.Module {
	m := wasm.NewModule(nil)
	m.Types = []*wasm.FunctionType{{Params: params, Results: results}}
	m.Functions = []*wasm.Function{
		{TypeIndex: 0, RegCount: regCount, Code: code},
	}
	m.Exports = []*wasm.Export{
		{Kind: wasm.ExportKindFunction, Index: 0, Name: "main"},
	}
	return m
}

func withMemory(m *wasm.Module, initialPages, maxPages uint32) *wasm.Module {
	m.HasMemory = true
	m.Memory = wasm.MemoryLimits{InitialPages: initialPages, MaxPages: maxPages}
	return m
}
