package wasm

import (
	"fmt"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/wasmruntime"
)

// Validation limits from spec.md §4.1. These bound untrusted module input
// before any allocation proportional to them happens.
const (
	maxStringLen   = 4096
	maxExportCount = 65536
	maxFuncCount   = 4096
	maxReturnCount = 1
)

func badModule(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", wasmruntime.ErrBadModule, fmt.Sprintf(format, args...))
}

// Validate checks every gate in spec.md §4.1 that is not already enforced
// while decoding (out-of-range indices, count mismatches, tag legality,
// length caps). binary.DecodeModule calls this once a Module is fully parsed,
// before handing it to the caller.
func (m *Module) Validate() error {
	if len(m.Types) > maxFuncCount {
		// Not a named gate on its own, but types are bounded the same way
		// functions are: untrusted counts must not size an allocation.
		return badModule("type count %d exceeds limit", len(m.Types))
	}
	for i, t := range m.Types {
		if len(t.Params) > api.MaxParams {
			return badModule("type %d: param count %d exceeds %d", i, len(t.Params), api.MaxParams)
		}
		if len(t.Results) > maxReturnCount {
			return badModule("type %d: return count %d exceeds %d", i, len(t.Results), maxReturnCount)
		}
		for _, p := range t.Params {
			if !api.IsScalar(p) {
				return badModule("type %d: non-scalar param tag %#x", i, p)
			}
		}
		for _, r := range t.Results {
			if !api.IsScalar(r) {
				return badModule("type %d: non-scalar return tag %#x", i, r)
			}
		}
	}

	for i, imp := range m.Imports {
		if len(imp.Module) > maxStringLen || len(imp.Name) > maxStringLen {
			return badModule("import %d: string length exceeds %d", i, maxStringLen)
		}
		if m.TypeByIndex(imp.TypeIndex) == nil {
			return badModule("import %d: type index %d out of range", i, imp.TypeIndex)
		}
	}

	if len(m.Functions) > maxFuncCount {
		return badModule("function count %d exceeds limit", len(m.Functions))
	}
	for i, fn := range m.Functions {
		if fn.IsImport {
			continue
		}
		if m.TypeByIndex(fn.TypeIndex) == nil {
			return badModule("function %d: type index %d out of range", i, fn.TypeIndex)
		}
		if len(fn.Code)%4 != 0 {
			return badModule("function %d: code length %d is not a multiple of 4", i, len(fn.Code))
		}
		if int(fn.RegCount) > api.MaxRegisters {
			return badModule("function %d: reg_count %d exceeds %d", i, fn.RegCount, api.MaxRegisters)
		}
	}

	for i, g := range m.Globals {
		if !api.IsScalar(g.Type) {
			return badModule("global %d: non-scalar type tag %#x", i, g.Type)
		}
	}

	if len(m.Exports) > maxExportCount {
		return badModule("export count %d exceeds limit", len(m.Exports))
	}
	for i, e := range m.Exports {
		if len(e.Name) > maxStringLen {
			return badModule("export %d: name length exceeds %d", i, maxStringLen)
		}
		switch e.Kind {
		case ExportKindFunction:
			if m.FunctionByIndex(e.Index) == nil {
				return badModule("export %d: function index %d out of range", i, e.Index)
			}
		case ExportKindMemory:
			if !m.HasMemory {
				return badModule("export %d: memory export but module declares no memory", i)
			}
		default:
			return badModule("export %d: unknown kind %d", i, e.Kind)
		}
	}

	if m.HasMemory {
		for i, d := range m.Data {
			if d.MemoryIndex != 0 {
				return badModule("data %d: memory index %d out of range", i, d.MemoryIndex)
			}
			end := uint64(d.Offset) + uint64(len(d.Bytes))
			if end > uint64(m.Memory.InitialPages)*api.PageSize {
				return badModule("data %d: [%d,%d) exceeds initial memory of %d pages", i, d.Offset, end, m.Memory.InitialPages)
			}
		}
	} else if len(m.Data) > 0 {
		return badModule("data segments present but module declares no memory")
	}

	// Import indices referenced from a local function's code are not checked
	// here (that depends on op decode, which validate.go doesn't duplicate);
	// internal/engine/interpreter range checks each one when its call_host
	// executes.
	return nil
}
