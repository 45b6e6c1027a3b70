// Package interpreter is the register-window dispatch engine (spec.md
// §4.2–§4.5): VM lifecycle, linear memory, the call stack, fuel metering,
// and the opcode dispatch loop itself. It collapses the teacher's
// engine/moduleEngine/callEngine three-layer split into a single VM type,
// since this format has no compiled-code cache shared across instances of
// the same module — one VM always owns exactly one instantiation.
package interpreter

import (
	"context"
	"fmt"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/hostfunc"
	"github.com/runevm/rune/internal/wasm"
	"github.com/runevm/rune/internal/wasmruntime"
)

// Config mirrors spec.md §4.3's vm_new config and §6's recognized keys.
type Config struct {
	StackSize    int
	MemoryLimit  uint64
	FuelLimit    uint64
}

// DefaultConfig matches spec.md §4.3: "stack_size = 64, memory_limit =
// 64 MiB, fuel_limit = 0 (unlimited)".
func DefaultConfig() Config {
	return Config{
		StackSize:   64,
		MemoryLimit: 64 * 1024 * 1024,
		FuelLimit:   0,
	}
}

// VM is one instantiation of a Module: its resolved imports, memory,
// globals, call stack, argument-staging buffer, and fuel counter (spec.md
// §3 VM). A VM is single-threaded and non-reentrant (spec.md §5); running
// is set for the duration of a top-level Call and checked on re-entry.
type VM struct {
	module *wasm.Module
	cfg    Config

	registry  *hostfunc.Registry
	hostFuncs []*hostfunc.Func // resolved at Instantiate, indexed like module.Imports

	mem     *memoryUnit
	globals []api.Value

	stack *callStack

	staging      [api.MaxStagingSlots]api.Value
	stagingCount int

	fuelUsed  uint64
	fuelLimit uint64

	initialized bool
	running     bool
	lastError   string
}

// NewVM allocates VM state without touching memory or running code
// (spec.md §4.3 vm_new). Zero-value fields in cfg fall back to
// DefaultConfig's values.
func NewVM(m *wasm.Module, cfg Config) *VM {
	def := DefaultConfig()
	if cfg.StackSize <= 0 {
		cfg.StackSize = def.StackSize
	}
	if cfg.MemoryLimit == 0 {
		cfg.MemoryLimit = def.MemoryLimit
	}
	return &VM{
		module:    m,
		cfg:       cfg,
		registry:  hostfunc.NewRegistry(),
		stack:     newCallStack(cfg.StackSize),
		fuelLimit: cfg.FuelLimit,
	}
}

// Register adds a host function to the VM's registry. It may only be
// called before Instantiate (spec.md §4.3 vm_register).
func (vm *VM) Register(moduleName, name string, typ *wasm.FunctionType, cb hostfunc.Callback) error {
	if vm.initialized {
		return fmt.Errorf("%w: vm_register after vm_init", wasmruntime.ErrBadModule)
	}
	vm.registry.Register(moduleName, name, typ, cb)
	return nil
}

// Instantiate runs the steps in spec.md §4.3 vm_init: resolve imports,
// allocate and zero memory, apply data segments, copy globals, mark
// initialized, and run the module's `_init` export if one exists. It may
// only run once per VM (spec.md §8 "Idempotent init").
func (vm *VM) Instantiate(ctx context.Context) error {
	if vm.initialized {
		return fmt.Errorf("%w: vm_init called twice", wasmruntime.ErrBadModule)
	}

	bound, err := vm.registry.Resolve(vm.module)
	if err != nil {
		return err
	}
	vm.hostFuncs = bound

	if vm.module.HasMemory {
		if uint64(vm.module.Memory.MaxPages)*api.PageSize > vm.cfg.MemoryLimit {
			return fmt.Errorf("%w: max_pages exceeds memory_limit", wasmruntime.ErrOOM)
		}
		vm.mem = newMemoryUnit(vm.module.Memory.InitialPages, vm.module.Memory.MaxPages)
	}

	for _, d := range vm.module.Data {
		if vm.mem == nil || !vm.mem.applyDataSegment(d) {
			return fmt.Errorf("%w: data segment at offset %d exceeds committed memory", wasmruntime.ErrBounds, d.Offset)
		}
	}

	vm.globals = make([]api.Value, len(vm.module.Globals))
	for i, g := range vm.module.Globals {
		vm.globals[i] = g.Init
	}

	vm.initialized = true

	if vm.module.InitFuncIndex >= 0 {
		if _, err := vm.Call(ctx, uint32(vm.module.InitFuncIndex), nil); err != nil {
			return err
		}
	}
	return nil
}

// CallExport looks up name among function exports (first match, spec.md
// §4.3 vm_call) and dispatches it.
func (vm *VM) CallExport(ctx context.Context, name string, args []api.Value) (api.Value, error) {
	if !vm.initialized {
		return api.Void, fmt.Errorf("%w: vm_call before vm_init", wasmruntime.ErrBadModule)
	}
	idx, ok := vm.module.ExportFunction(name)
	if !ok {
		return api.Void, fmt.Errorf("%w: %s", wasmruntime.ErrNoExport, name)
	}
	return vm.Call(ctx, idx, args)
}

// Call dispatches the function at the given module-wide index: tail-invoke
// the host registry if it is an import, otherwise push a frame and run the
// dispatch loop (spec.md §4.2 "Execution algorithm" step 1). It is the one
// top-level boundary that recovers trapSignal panics into plain errors,
// mirroring the teacher's moduleEngine.Call defer/recover around
// callNativeFunc.
func (vm *VM) Call(ctx context.Context, funcIndex uint32, args []api.Value) (result api.Value, err error) {
	if vm.running {
		return api.Void, fmt.Errorf("%w: vm_call re-entered while already running", wasmruntime.ErrReentrant)
	}
	vm.running = true
	vm.stack.reset()
	defer func() {
		vm.running = false
		if v := recover(); v != nil {
			sig, ok := v.(trapSignal)
			if !ok {
				panic(v) // not ours: a genuine bug, let it surface.
			}
			err = sig.err
			vm.lastError = err.Error()
		}
	}()

	result = vm.exec(ctx, funcIndex, args)
	return result, nil
}

// exec implements spec.md §4.2 step 1: resolve an import through the host
// registry, or run a local function's dispatch loop. It panics (via raise)
// on any trap rather than returning an error, so every recursive call site
// stays simple; Call is the only place that recovers.
func (vm *VM) exec(ctx context.Context, funcIndex uint32, args []api.Value) api.Value {
	fn := vm.module.FunctionByIndex(funcIndex)
	if fn == nil {
		raise(fmt.Errorf("%w: function index %d out of range", wasmruntime.ErrBadModule, funcIndex))
	}
	if fn.IsImport {
		return vm.callHost(ctx, fn.ImportIndex, args)
	}
	return vm.runFrame(ctx, funcIndex, fn, args)
}

// callHost invokes a resolved import's Go callback (spec.md §4.2 call_host,
// §4.5). A non-nil error from the callback becomes a trap, exactly as an
// interpreter-raised one (spec.md §4.5: "A non-OK status from a host
// callback propagates to the calling frame as a trap").
func (vm *VM) callHost(ctx context.Context, importIndex uint32, args []api.Value) api.Value {
	hf := vm.hostFuncs[importIndex]
	caller := &vmCaller{vm: vm, ctx: ctx}
	results, err := hf.Callback(caller, args)
	if err != nil {
		raise(fmt.Errorf("%w: %s.%s: %v", errTrap, hf.Module, hf.Name, err))
	}
	if len(results) == 0 {
		return api.Void
	}
	return results[0]
}

// Memory exposes the VM's linear memory to the embedding host (spec.md
// §4.4, §6 vm_memory/vm_memory_size/vm_mem_read/write/readstr). Nil if the
// module declares no memory.
func (vm *VM) Memory() *memoryUnit { return vm.mem }

// Globals exposes the VM's live global vector for diagnostics and tests.
func (vm *VM) Globals() []api.Value { return vm.globals }

// Refuel resets the monotone fuel counter (spec.md §3 invariant: "fuel_used
// is monotonic within a call; reset only by an explicit refuel").
func (vm *VM) Refuel(fuel uint64) {
	vm.fuelLimit = fuel
	vm.fuelUsed = 0
}

// FuelUsed returns the instruction count dispatched since the last Refuel
// or VM creation.
func (vm *VM) FuelUsed() uint64 { return vm.fuelUsed }

// LastError returns the diagnostic string for the most recent failed Call,
// or "" if none has failed yet (spec.md §4.3 vm_last_error).
func (vm *VM) LastError() string { return vm.lastError }

// Close releases frame register windows, memory, and globals (spec.md
// §4.3 vm_free). The module itself is untouched.
func (vm *VM) Close() {
	vm.stack = nil
	vm.mem = nil
	vm.globals = nil
	vm.registry = nil
	vm.hostFuncs = nil
}

// vmCaller adapts a VM + context into the hostfunc.Caller interface a host
// callback receives, so host code never touches engine internals directly
// (spec.md §4.5; grounded on the teacher's api.Module argument to host-side
// closures in examples/host_func_test.go).
type vmCaller struct {
	vm  *VM
	ctx context.Context
}

func (c *vmCaller) Context() context.Context { return c.ctx }

func (c *vmCaller) Memory() hostfunc.Memory {
	if c.vm.mem == nil {
		return nil
	}
	return c.vm.mem
}
