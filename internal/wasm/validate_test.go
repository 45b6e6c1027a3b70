package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runevm/rune/api"
)

func validModule() *Module {
	m := NewModule(nil)
	m.Types = []*FunctionType{{Params: []api.ValueKind{api.ValueKindI32}, Results: []api.ValueKind{api.ValueKindI32}}}
	m.Functions = []*Function{{TypeIndex: 0, RegCount: 2, Code: []byte{0, 0, 0, 0}}}
	m.Exports = []*Export{{Kind: ExportKindFunction, Index: 0, Name: "f"}}
	return m
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, validModule().Validate())
}

func TestValidateBadFunctionTypeIndex(t *testing.T) {
	m := validModule()
	m.Functions[0].TypeIndex = 99
	require.Error(t, m.Validate())
}

func TestValidateCodeNotWordAligned(t *testing.T) {
	m := validModule()
	m.Functions[0].Code = []byte{0, 0, 0}
	require.Error(t, m.Validate())
}

func TestValidateExportBadFunctionIndex(t *testing.T) {
	m := validModule()
	m.Exports[0].Index = 5
	require.Error(t, m.Validate())
}

func TestValidateMemoryExportWithoutMemory(t *testing.T) {
	m := validModule()
	m.Exports = append(m.Exports, &Export{Kind: ExportKindMemory, Name: "memory"})
	require.Error(t, m.Validate())
}

func TestValidateDataWithoutMemory(t *testing.T) {
	m := validModule()
	m.Data = []*DataSegment{{Bytes: []byte("x")}}
	require.Error(t, m.Validate())
}

func TestValidateDataOutOfMemoryBounds(t *testing.T) {
	m := validModule()
	m.HasMemory = true
	m.Memory = MemoryLimits{InitialPages: 1, MaxPages: 1}
	m.Data = []*DataSegment{{Offset: 65535, Bytes: []byte("ab")}}
	require.Error(t, m.Validate())
}

func TestValidateNonScalarGlobal(t *testing.T) {
	m := validModule()
	m.Globals = []*Global{{Type: api.ValueKindVoid}}
	require.Error(t, m.Validate())
}

func TestExportFunctionFirstMatchWins(t *testing.T) {
	m := validModule()
	m.Functions = append(m.Functions, &Function{TypeIndex: 0, RegCount: 1, Code: []byte{0, 0, 0, 0}})
	m.Exports = append(m.Exports, &Export{Kind: ExportKindFunction, Index: 1, Name: "f"})

	idx, ok := m.ExportFunction("f")
	require.True(t, ok)
	require.Equal(t, uint32(0), idx, "duplicate export names resolve to the first match")
}
