package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/wasm"
	"github.com/runevm/rune/internal/wasmruntime"
)

func fixtureModule() *wasm.Module {
	m := wasm.NewModule(nil)
	m.Types = []*wasm.FunctionType{
		{Params: []api.ValueKind{api.ValueKindI32}, Results: nil},
		{Params: []api.ValueKind{api.ValueKindI32, api.ValueKindI32}, Results: []api.ValueKind{api.ValueKindI32}},
	}
	m.Imports = []*wasm.Import{
		{Module: "env", Name: "log", TypeIndex: 0},
	}
	m.Functions = []*wasm.Function{
		{IsImport: true, ImportIndex: 0, TypeIndex: 0},
		{TypeIndex: 1, RegCount: 3, LocalCount: 1, Code: []byte{1, 0, 1, 0, 2, 0, 0, 0}},
	}
	m.HasMemory = true
	m.Memory = wasm.MemoryLimits{InitialPages: 1, MaxPages: 4}
	m.Globals = []*wasm.Global{
		{Type: api.ValueKindI32, Mutable: true, Init: api.I32(7)},
	}
	m.Exports = []*wasm.Export{
		{Kind: wasm.ExportKindFunction, Index: 1, Name: "add"},
		{Kind: wasm.ExportKindMemory, Index: 0, Name: "memory"},
	}
	m.Data = []*wasm.DataSegment{
		{MemoryIndex: 0, Offset: 0, Bytes: []byte("hi")},
	}
	return m
}

// Round-trip loader: assembling a module, then loading it, yields tables
// whose type/import/export/function counts and names match the description
// (spec.md §8 "Round-trip loader").
func TestRoundTrip(t *testing.T) {
	want := fixtureModule()
	raw := EncodeModule(want)

	got, err := DecodeModule(raw)
	require.NoError(t, err)

	require.Equal(t, len(want.Types), len(got.Types))
	require.Equal(t, len(want.Imports), len(got.Imports))
	require.Equal(t, len(want.Functions), len(got.Functions))
	require.Equal(t, len(want.Exports), len(got.Exports))

	require.Equal(t, want.Imports[0].Module, got.Imports[0].Module)
	require.Equal(t, want.Imports[0].Name, got.Imports[0].Name)

	for i, e := range want.Exports {
		require.Equal(t, e.Name, got.Exports[i].Name)
		require.Equal(t, e.Kind, got.Exports[i].Kind)
		require.Equal(t, e.Index, got.Exports[i].Index)
	}

	require.True(t, got.HasMemory)
	require.Equal(t, want.Memory, got.Memory)

	require.Equal(t, 1, len(got.Globals))
	require.Equal(t, want.Globals[0].Init.Raw(), got.Globals[0].Init.Raw())

	require.Equal(t, want.Functions[1].Code, got.Functions[1].Code)

	idx, ok := got.ExportFunction("add")
	require.True(t, ok)
	require.Equal(t, uint32(1), idx)
}

// Local function indices begin at import_count (spec.md §4.1): the imported
// function is index 0, the local one index 1.
func TestFunctionIndexSpace(t *testing.T) {
	raw := EncodeModule(fixtureModule())
	got, err := DecodeModule(raw)
	require.NoError(t, err)

	require.True(t, got.Functions[0].IsImport)
	require.False(t, got.Functions[1].IsImport)
	require.Equal(t, uint32(1), got.FunctionByIndex(1).TypeIndex)
}

// _init export resolution (spec.md §3).
func TestInitFuncIndex(t *testing.T) {
	m := fixtureModule()
	m.Exports = append(m.Exports, &wasm.Export{Kind: wasm.ExportKindFunction, Index: 1, Name: "_init"})
	raw := EncodeModule(m)

	got, err := DecodeModule(raw)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.InitFuncIndex)
}

func TestNoInitFunc(t *testing.T) {
	raw := EncodeModule(fixtureModule())
	got, err := DecodeModule(raw)
	require.NoError(t, err)
	require.Equal(t, int64(-1), got.InitFuncIndex)
}

// CRC gate: corrupting any byte after the header causes module_load to
// return bad module (spec.md §8 "CRC gate").
func TestCRCGate(t *testing.T) {
	raw := EncodeModule(fixtureModule())
	require.Greater(t, len(raw), headerSize)

	corrupt := make([]byte, len(raw))
	copy(corrupt, raw)
	corrupt[headerSize] ^= 0xFF

	_, err := DecodeModule(corrupt)
	require.ErrorIs(t, err, wasmruntime.ErrBadModule)
}

func TestBadMagic(t *testing.T) {
	raw := EncodeModule(fixtureModule())
	corrupt := make([]byte, len(raw))
	copy(corrupt, raw)
	corrupt[0] = 'X'

	_, err := DecodeModule(corrupt)
	require.ErrorIs(t, err, wasmruntime.ErrBadMagic)
}

func TestVersionMismatch(t *testing.T) {
	raw := EncodeModule(fixtureModule())
	corrupt := make([]byte, len(raw))
	copy(corrupt, raw)
	corrupt[4] = 99
	// The version field sits in the header, which the CRC does not cover,
	// and the version gate runs before the CRC gate; recomputing the
	// checksum keeps the body CRC valid either way.
	binaryChecksumFixup(t, corrupt)

	_, err := DecodeModule(corrupt)
	require.ErrorIs(t, err, wasmruntime.ErrVersionMismatch)
}

func TestTruncatedInput(t *testing.T) {
	raw := EncodeModule(fixtureModule())
	_, err := DecodeModule(raw[:headerSize+2])
	require.ErrorIs(t, err, wasmruntime.ErrBadModule)
}

func TestTooShortForHeader(t *testing.T) {
	_, err := DecodeModule([]byte{1, 2, 3})
	require.ErrorIs(t, err, wasmruntime.ErrBadModule)
}

// binaryChecksumFixup recomputes and rewrites the body CRC in a modified
// buffer so the CRC gate still passes.
func binaryChecksumFixup(t *testing.T, buf []byte) {
	t.Helper()
	got := checksum(buf[headerSize:])
	buf[8] = byte(got)
	buf[9] = byte(got >> 8)
	buf[10] = byte(got >> 16)
	buf[11] = byte(got >> 24)
}
