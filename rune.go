// Package rune is the public embedding surface for the register-window
// bytecode VM described by spec.md: a module loader, a VM lifecycle, and
// the host-function registration entry point. It wraps internal/wasm (the
// module shape and loader) and internal/engine/interpreter (the VM and
// dispatch loop) the same way the teacher's root wazero package wraps
// internal/wasm and internal/engine/*, keeping the parsed/validated data
// model and the execution engine as internal implementation details.
package rune

import (
	"context"
	"fmt"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/engine/interpreter"
	"github.com/runevm/rune/internal/hostfunc"
	"github.com/runevm/rune/internal/wasm"
	"github.com/runevm/rune/internal/wasm/binary"
)

// Module is a parsed, validated bytecode module (spec.md §3, §4.1).
type Module struct {
	internal *wasm.Module
}

// LoadModule parses and validates raw module bytes (spec.md §4.1
// module_load). The returned Module owns a private copy of buf.
func LoadModule(buf []byte) (*Module, error) {
	m, err := binary.DecodeModule(buf)
	if err != nil {
		return nil, err
	}
	return &Module{internal: m}, nil
}

// ExportCount returns the number of exports the module declares.
func (m *Module) ExportCount() int { return len(m.internal.Exports) }

// ExportName returns the name of the export at index i.
func (m *Module) ExportName(i int) string { return m.internal.Exports[i].Name }

// ImportCount returns the number of imports the module declares.
func (m *Module) ImportCount() int { return m.internal.ImportCount() }

// ImportModule returns the module_name of the import at index i.
func (m *Module) ImportModule(i int) string { return m.internal.Imports[i].Module }

// ImportName returns the name of the import at index i.
func (m *Module) ImportName(i int) string { return m.internal.Imports[i].Name }

// Close releases the module's owned byte buffer (spec.md §4.3
// module_free). Any VM built from this module must be closed first.
func (m *Module) Close() { m.internal.Close() }

// VM is one instantiation of a Module (spec.md §3 VM, §4.3 vm lifecycle).
type VM struct {
	module *Module
	engine *interpreter.VM
}

// NewVM allocates VM state without touching memory or running code
// (spec.md §4.3 vm_new). A nil cfg uses NewConfig()'s defaults.
func NewVM(m *Module, cfg *Config) *VM {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &VM{
		module: m,
		engine: interpreter.NewVM(m.internal, cfg.toInternal()),
	}
}

// HostFunc is a Go implementation of an imported function. args carry the
// same tagged Values a bytecode call would stage; the returned slice holds
// 0 or 1 results, matching the format's single-return-value rule.
type HostFunc func(ctx context.Context, mem Memory, args []api.Value) ([]api.Value, error)

// Register adds a host function to the VM's registry (spec.md §4.5
// vm_register). It may only be called before Instantiate.
func (vm *VM) Register(moduleName, name string, params []api.ValueKind, results []api.ValueKind, fn HostFunc) error {
	typ := &wasm.FunctionType{Params: params, Results: results}
	return vm.engine.Register(moduleName, name, typ, func(caller hostfunc.Caller, args []api.Value) ([]api.Value, error) {
		return fn(caller.Context(), memoryFromCaller(caller), args)
	})
}

// Instantiate runs spec.md §4.3 vm_init: resolves imports, allocates and
// zeroes memory, applies data segments, copies globals, and — if present —
// runs the module's `_init` export.
func (vm *VM) Instantiate(ctx context.Context) error {
	return vm.engine.Instantiate(ctx)
}

// Call invokes an exported function by name (spec.md §4.3 vm_call).
func (vm *VM) Call(ctx context.Context, exportName string, args ...api.Value) (api.Value, error) {
	return vm.engine.CallExport(ctx, exportName, args)
}

// Memory exposes the VM's linear memory, or nil if the module declares
// none (spec.md §4.4, §6).
func (vm *VM) Memory() Memory {
	mem := vm.engine.Memory()
	if mem == nil {
		return nil
	}
	return memory{mem}
}

// Refuel resets the fuel counter and sets a new limit (0 = unlimited),
// per spec.md §3's "reset only by an explicit refuel" invariant.
func (vm *VM) Refuel(fuel uint64) { vm.engine.Refuel(fuel) }

// FuelUsed returns the instruction count dispatched since the last Refuel
// or VM creation.
func (vm *VM) FuelUsed() uint64 { return vm.engine.FuelUsed() }

// LastError returns the diagnostic string for the most recently failed
// Call, or "" if none has failed yet.
func (vm *VM) LastError() string { return vm.engine.LastError() }

// Close releases the VM's frames, memory, globals, and host registry. The
// underlying Module is untouched.
func (vm *VM) Close() { vm.engine.Close() }

// Memory is the public linear-memory accessor (spec.md §4.4 vm_memory,
// vm_mem_read/write/readstr).
type Memory interface {
	Size() uint32
	Read(offset, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadString(offset uint32, maxLen uint32) (string, error)
}

type rawMemory interface {
	Size() uint32
	Read(offset, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
}

type memory struct{ m rawMemory }

func (m memory) Size() uint32 { return m.m.Size() }

func (m memory) Read(offset, length uint32) ([]byte, error) {
	b, ok := m.m.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("rune: memory read [%d, %d) out of bounds (size %d)", offset, uint64(offset)+uint64(length), m.m.Size())
	}
	return b, nil
}

func (m memory) Write(offset uint32, data []byte) error {
	if !m.m.Write(offset, data) {
		return fmt.Errorf("rune: memory write [%d, %d) out of bounds (size %d)", offset, uint64(offset)+uint64(len(data)), m.m.Size())
	}
	return nil
}

// ReadString reads bytes starting at offset up to the first NUL or maxLen
// bytes, whichever comes first (spec.md §4.4 mem_readstr).
func (m memory) ReadString(offset uint32, maxLen uint32) (string, error) {
	b, ok := m.m.Read(offset, maxLen)
	if !ok {
		return "", fmt.Errorf("rune: memory read [%d, %d) out of bounds (size %d)", offset, uint64(offset)+uint64(maxLen), m.m.Size())
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

func memoryFromCaller(caller hostfunc.Caller) Memory {
	mem := caller.Memory()
	if mem == nil {
		return nil
	}
	return memory{mem}
}
