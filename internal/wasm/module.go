// Package wasm holds the in-memory representation of a rune module: the
// parsed type/import/function/global/export/data tables described in
// spec.md §3, plus the validation gates from §4.1. Decoding raw bytes into
// this shape lives in the sibling package wasm/binary; this package owns
// the shape itself and everything that can be checked about it without a
// byte cursor in hand.
package wasm

import (
	"fmt"

	"github.com/runevm/rune/api"
)

// FunctionType is an ordered list of parameter and result type tags,
// referenced by index from imports and function headers (spec.md §3).
type FunctionType struct {
	Params  []api.ValueKind
	Results []api.ValueKind // 0 or 1 entries
}

// Return is the function's single result kind, or api.ValueKindVoid if it
// returns nothing.
func (t *FunctionType) Return() api.ValueKind {
	if len(t.Results) == 0 {
		return api.ValueKindVoid
	}
	return t.Results[0]
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("%v->%v", t.Params, t.Results)
}

// Import is a triple (module_name, name, type_index). Resolution among
// duplicate (module_name, name) pairs is the host registry's problem, not
// this package's: the format does not require uniqueness (spec.md §3).
type Import struct {
	Module    string
	Name      string
	TypeIndex uint32
}

// Function is either imported (no body) or local (type index, register and
// local counts, and a borrowed code region). ImportIndex is only meaningful
// when IsImport is true.
type Function struct {
	IsImport    bool
	ImportIndex uint32 // index into Module.Imports, valid iff IsImport

	TypeIndex uint32
	RegCount  uint8  // local only
	LocalCount uint8 // local only, informational (spec.md §3)
	Code       []byte // local only; length is a multiple of 4, borrowed from Module.raw
}

// NumWords returns the number of 32-bit instruction words in Code.
func (f *Function) NumWords() uint32 { return uint32(len(f.Code) / 4) }

// ExportKind distinguishes what an Export names.
type ExportKind uint8

const (
	ExportKindFunction ExportKind = 0
	ExportKindMemory   ExportKind = 1
)

// Export is a tagged, named reference into the function or memory index
// space. Names are not checked for uniqueness; duplicates resolve to the first match
// (spec.md §3 — "first match wins" is a choice documented in DESIGN.md).
type Export struct {
	Kind  ExportKind
	Index uint32
	Name  string
}

// Global holds a type tag, a mutability flag, and an 8-byte-encoded initial
// value. The Module's copy is never mutated; VM instances copy it in at
// init (spec.md §3).
type Global struct {
	Type    api.ValueKind
	Mutable bool
	Init    api.Value
}

// DataSegment is applied into linear memory at init time. MemoryIndex is
// always 0 in this format (spec.md §3 — multiple memories are not
// supported).
type DataSegment struct {
	MemoryIndex uint32
	Offset      uint32
	Bytes       []byte
}

// MemoryLimits is the module's MEMORY section: an initial and maximum page
// count. Max == Min when the module encodes max=0 ("equal to initial",
// spec.md §4.1).
type MemoryLimits struct {
	InitialPages uint32
	MaxPages     uint32
}

// Module is the in-memory, validated shape of a decoded rune binary.
type Module struct {
	// raw is the module's own copy of the file bytes; Function.Code slices
	// borrow from it, so raw must outlive every Function (spec.md §9).
	raw []byte

	Types   []*FunctionType
	Imports []*Import
	// Functions holds every function in index order: imports first (in
	// Imports order), then local functions (in FUNC-section declaration
	// order), matching spec.md §4.1's "local function indices begin at
	// import_count".
	Functions []*Function
	Globals   []*Global
	Exports   []*Export
	Data      []*DataSegment

	HasMemory bool
	Memory    MemoryLimits

	// InitFuncIndex is the function index of the export named "_init", if
	// one exists and names a function (spec.md §3). -1 if absent.
	InitFuncIndex int64
}

// NewModule constructs an empty Module that owns raw. binary.DecodeModule
// uses this so that Function.Code slices, which alias into raw, keep it
// reachable for as long as the Module (and anything built from it) lives.
func NewModule(raw []byte) *Module {
	return &Module{raw: raw, InitFuncIndex: -1}
}

// ImportCount returns the number of imported functions, i.e. the index of
// the first local function.
func (m *Module) ImportCount() int { return len(m.Imports) }

// FunctionByIndex returns the function at the given module-wide index, or
// nil if out of range.
func (m *Module) FunctionByIndex(i uint32) *Function {
	if int(i) >= len(m.Functions) {
		return nil
	}
	return m.Functions[i]
}

// TypeByIndex returns the function type at the given index, or nil if out
// of range.
func (m *Module) TypeByIndex(i uint32) *FunctionType {
	if int(i) >= len(m.Types) {
		return nil
	}
	return m.Types[i]
}

// ExportFunction returns the first export of kind function with the given
// name, and its function index. ok is false if absent.
func (m *Module) ExportFunction(name string) (index uint32, ok bool) {
	for _, e := range m.Exports {
		if e.Kind == ExportKindFunction && e.Name == name {
			return e.Index, true
		}
	}
	return 0, false
}

// ExportMemory returns true if the module exports its memory under the
// given name.
func (m *Module) ExportMemory(name string) bool {
	for _, e := range m.Exports {
		if e.Kind == ExportKindMemory && e.Name == name {
			return true
		}
	}
	return false
}

// Close drops the module's owned byte buffer. Any VM built from this
// module must be closed first, since Function.Code borrows from raw
// (spec.md §4.3, §9).
func (m *Module) Close() {
	m.raw = nil
}
