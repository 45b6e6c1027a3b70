// Package hostfunc is the host function registry (spec.md §3, §4.5): an
// append-only table mapping (module_name, name) to a Go callback, resolved
// at Instantiate time by linear scan, first match wins. It is grounded on
// the teacher's hostfunc.ModuleBuilder (hostfunc/hostfunc.go), adapted from
// reflection-derived signatures to the explicit FunctionType already
// present on every registered entry, since rune imports carry their own
// type index rather than inferring one from a Go func's reflect.Type.
package hostfunc

import (
	"context"
	"fmt"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/wasm"
	"github.com/runevm/rune/internal/wasmruntime"
)

// Memory is the subset of linear-memory access a host callback needs. The
// interpreter's memory unit satisfies this by construction; it is declared
// here, not imported from there, to keep hostfunc free of any dependency on
// the engine (spec.md §4.5 — host functions only ever see this interface,
// never engine internals).
type Memory interface {
	Size() uint32
	Read(offset, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
}

// Caller is what a host callback receives in place of direct VM access: a
// context for cancellation/tracing plus the instance's memory, mirroring
// the teacher's api.Module passed into host-side closures in
// examples/host_func_test.go.
type Caller interface {
	Context() context.Context
	Memory() Memory
}

// Callback is a host function implementation. args and the returned slice
// use the same api.Value wire shape a rune function call uses, so the
// interpreter can stage one into the other without a conversion layer.
type Callback func(caller Caller, args []api.Value) ([]api.Value, error)

// Func is one registered host function: its (module, name) key, declared
// type, and implementation.
type Func struct {
	Module   string
	Name     string
	Type     *wasm.FunctionType
	Callback Callback
}

// Registry is an append-only, linear-scan table of Funcs (spec.md §4.5).
// Registration order is preserved; a later registration with a key that
// collides with an earlier one does not replace it — resolution always
// returns the first match, exactly as export-name collisions do in
// internal/wasm.Module.ExportFunction.
type Registry struct {
	funcs []*Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a host function. It never fails and never overwrites an
// existing entry; duplicate (module, name) pairs simply shadow each other at
// lookup time, favoring whichever was registered first.
func (r *Registry) Register(module, name string, typ *wasm.FunctionType, cb Callback) {
	r.funcs = append(r.funcs, &Func{Module: module, Name: name, Type: typ, Callback: cb})
}

// Lookup resolves (module, name) to its registered Func by linear scan,
// first match wins. ok is false if no such function was ever registered.
func (r *Registry) Lookup(module, name string) (*Func, bool) {
	for _, f := range r.funcs {
		if f.Module == module && f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Resolve binds every import in m to a registered host function, in import
// order. It fails closed: any unresolved import is a hard instantiation
// error (wasmruntime.ErrNoImport), not a lazily-failing stub, so a missing
// host function is caught before the module ever runs (spec.md §4.3, trap
// kind "noimport").
func (r *Registry) Resolve(m *wasm.Module) ([]*Func, error) {
	bound := make([]*Func, len(m.Imports))
	for i, imp := range m.Imports {
		f, ok := r.Lookup(imp.Module, imp.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", wasmruntime.ErrNoImport, imp.Module, imp.Name)
		}
		want := m.TypeByIndex(imp.TypeIndex)
		if want != nil && !sameSignature(want, f.Type) {
			return nil, fmt.Errorf("%w: %s.%s: module declares %v, host registered %v", wasmruntime.ErrNoImport, imp.Module, imp.Name, want, f.Type)
		}
		bound[i] = f
	}
	return bound, nil
}

func sameSignature(a, b *wasm.FunctionType) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}
