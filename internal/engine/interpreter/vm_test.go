package interpreter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/hostfunc"
	"github.com/runevm/rune/internal/wasm"
)

func mustInstantiate(t *testing.T, m *wasm.Module, cfg Config) *VM {
	t.Helper()
	vm := NewVM(m, cfg)
	require.NoError(t, vm.Instantiate(context.Background()))
	return vm
}

// Scenario 1: add i32.
func TestAddI32(t *testing.T) {
	code := asm(
		asmWord(OpAddI32, 0, 0, 1),
		asmWord(OpRet, 0, 0, 0),
	)
	m := singleFuncModule(code, 2, []api.ValueKind{api.ValueKindI32, api.ValueKindI32}, []api.ValueKind{api.ValueKindI32})
	vm := mustInstantiate(t, m, Config{})

	result, err := vm.CallExport(context.Background(), "main", []api.Value{api.I32(10), api.I32(32)})
	require.NoError(t, err)
	require.Equal(t, int32(42), result.I32())

	result, err = vm.CallExport(context.Background(), "main", []api.Value{api.I32(-1), api.I32(-1)})
	require.NoError(t, err)
	require.Equal(t, int32(-2), result.I32())
}

// Scenario 2: div trap.
func TestDivTrap(t *testing.T) {
	code := asm(
		asmWord(OpDivSI32, 0, 0, 1),
		asmWord(OpRet, 0, 0, 0),
	)
	m := singleFuncModule(code, 2, []api.ValueKind{api.ValueKindI32, api.ValueKindI32}, []api.ValueKind{api.ValueKindI32})
	vm := mustInstantiate(t, m, Config{})

	result, err := vm.CallExport(context.Background(), "main", []api.Value{api.I32(10), api.I32(2)})
	require.NoError(t, err)
	require.Equal(t, int32(5), result.I32())

	_, err = vm.CallExport(context.Background(), "main", []api.Value{api.I32(10), api.I32(0)})
	require.ErrorIs(t, err, errDivZero)
}

// Scenario 3: memory round-trip.
func TestMemoryRoundTrip(t *testing.T) {
	code := asm(
		asmWord(OpStore32, 0, 0, 0), asmImm32(100),
		asmWord(OpLoad32, 0, 0, 0), asmImm32(100),
		asmWord(OpRet, 0, 0, 0),
	)
	m := withMemory(singleFuncModule(code, 1, []api.ValueKind{api.ValueKindI32}, []api.ValueKind{api.ValueKindI32}), 1, 1)
	vm := mustInstantiate(t, m, Config{})

	result, err := vm.CallExport(context.Background(), "main", []api.Value{api.I32(12345)})
	require.NoError(t, err)
	require.Equal(t, int32(12345), result.I32())

	result, err = vm.CallExport(context.Background(), "main", []api.Value{api.I32(-99)})
	require.NoError(t, err)
	require.Equal(t, int32(-99), result.I32())
}

// Scenario 4: branching (max).
func TestBranchingMax(t *testing.T) {
	// gt R2,R0,R1; jz R2,else; mov R0,R0; ret; else: mov R0,R1; ret
	code := asm(
		asmWord(OpGtI32, 2, 0, 1),
		asmWord(OpJz, 0, 2, 0), asmImm32(2), // to "else" (2 words ahead)
		asmWord(OpMov, 0, 0, 0),
		asmWord(OpRet, 0, 0, 0),
		// else:
		asmWord(OpMov, 0, 1, 0),
		asmWord(OpRet, 0, 0, 0),
	)
	m := singleFuncModule(code, 3, []api.ValueKind{api.ValueKindI32, api.ValueKindI32}, []api.ValueKind{api.ValueKindI32})
	vm := mustInstantiate(t, m, Config{})

	cases := []struct{ a, b, want int32 }{
		{10, 5, 10},
		{3, 7, 7},
		{4, 4, 4},
	}
	for _, c := range cases {
		result, err := vm.CallExport(context.Background(), "main", []api.Value{api.I32(c.a), api.I32(c.b)})
		require.NoError(t, err)
		require.Equal(t, c.want, result.I32())
	}
}

// Scenario 5: host call staging.
func TestHostCallStaging(t *testing.T) {
	// arg slot=0,reg=R0; call_host dst=R2; arg slot=0,reg=R1; call_host dst=R2; add R0,R0,R1; ret
	code := asm(
		asmWord(OpArg, 0, 0, 0),
		asmWord(OpCallHost, 2, 0, 0), asmImm32(0),
		asmWord(OpArg, 0, 1, 0),
		asmWord(OpCallHost, 2, 0, 0), asmImm32(0),
		asmWord(OpAddI32, 0, 0, 1),
		asmWord(OpRet, 0, 0, 0),
	)
	m := wasm.NewModule(nil)
	m.Types = []*wasm.FunctionType{
		{Params: []api.ValueKind{api.ValueKindI32}, Results: nil},
		{Params: []api.ValueKind{api.ValueKindI32, api.ValueKindI32}, Results: []api.ValueKind{api.ValueKindI32}},
	}
	m.Imports = []*wasm.Import{{Module: "test", Name: "sink", TypeIndex: 0}}
	m.Functions = []*wasm.Function{
		{IsImport: true, ImportIndex: 0, TypeIndex: 0},
		{TypeIndex: 1, RegCount: 3, Code: code},
	}
	m.Exports = []*wasm.Export{{Kind: wasm.ExportKindFunction, Index: 1, Name: "call_twice"}}

	vm := NewVM(m, Config{})
	var seen []int32
	err := vm.Register("test", "sink", m.Types[0], func(_ hostfunc.Caller, args []api.Value) ([]api.Value, error) {
		seen = append(seen, args[0].I32())
		return nil, nil
	})
	require.NoError(t, err)
	require.NoError(t, vm.Instantiate(context.Background()))

	result, err := vm.CallExport(context.Background(), "call_twice", []api.Value{api.I32(3), api.I32(7)})
	require.NoError(t, err)
	require.Equal(t, int32(10), result.I32())
	require.Equal(t, []int32{3, 7}, seen)
}

// Scenario 6: fuel exhaustion.
func TestFuelExhaustion(t *testing.T) {
	// An unconditional jump to itself. The jump's relative offset is
	// measured from the word immediately after its own immediate (spec.md
	// §4.2): jmp occupies words 0-1, so pc is 2 once the immediate is
	// consumed, and rel=-2 lands back on word 0.
	code := asm(
		asmWord(OpJmp, 0, 0, 0), asmImm32(-2),
	)
	m := singleFuncModule(code, 0, nil, nil)
	vm := mustInstantiate(t, m, Config{FuelLimit: 100})

	_, err := vm.CallExport(context.Background(), "main", nil)
	require.ErrorIs(t, err, errFuelExhausted)
	require.Equal(t, uint64(101), vm.FuelUsed())
}

// Scenario 7: mutable globals.
func TestMutableGlobals(t *testing.T) {
	// ldi32 R0,1; ldglobal R1,0; add R1,R1,R0; stglobal 0,R1; mov R0,R1; ret
	code := asm(
		asmWord(OpLdI32, 0, 0, 0), asmImm32(1),
		asmWord(OpLdGlobal, 1, 0, 0), asmImm32(0),
		asmWord(OpAddI32, 1, 1, 0),
		asmWord(OpStGlobal, 0, 1, 0), asmImm32(0),
		asmWord(OpMov, 0, 1, 0),
		asmWord(OpRet, 0, 0, 0),
	)
	m := singleFuncModule(code, 2, nil, []api.ValueKind{api.ValueKindI32})
	m.Globals = []*wasm.Global{{Type: api.ValueKindI32, Mutable: true, Init: api.I32(0)}}
	vm := mustInstantiate(t, m, Config{})

	for want := int32(1); want <= 3; want++ {
		result, err := vm.CallExport(context.Background(), "main", nil)
		require.NoError(t, err)
		require.Equal(t, want, result.I32())
	}
}

// Frame bound: recursion past stack_size returns stackoverflow.
func TestStackOverflow(t *testing.T) {
	// A function that calls itself unconditionally: call imm(0) dst=R0; ret
	code := asm(
		asmWord(OpCall, 0, 0, 0), asmImm32(0),
		asmWord(OpRet, 0, 0, 0),
	)
	m := singleFuncModule(code, 1, nil, []api.ValueKind{api.ValueKindI32})
	vm := mustInstantiate(t, m, Config{StackSize: 8})

	_, err := vm.CallExport(context.Background(), "main", nil)
	require.ErrorIs(t, err, errStackOverflow)
}

// No unresolved dispatch: call_host to an unsatisfied import never invokes a
// callback and fails at Instantiate, before any bytecode runs.
func TestUnresolvedImport(t *testing.T) {
	m := wasm.NewModule(nil)
	m.Types = []*wasm.FunctionType{{Params: []api.ValueKind{api.ValueKindI32}}}
	m.Imports = []*wasm.Import{{Module: "test", Name: "missing", TypeIndex: 0}}
	m.Functions = []*wasm.Function{{IsImport: true, ImportIndex: 0, TypeIndex: 0}}

	vm := NewVM(m, Config{})
	err := vm.Instantiate(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, errNoImport)
}

// Idempotent init: vm_init succeeds at most once; a second call and a
// post-init vm_register both fail.
func TestIdempotentInit(t *testing.T) {
	m := singleFuncModule(asm(asmWord(OpRet, 0, 0, 0)), 0, nil, nil)
	vm := mustInstantiate(t, m, Config{})

	require.Error(t, vm.Instantiate(context.Background()))
	require.Error(t, vm.Register("x", "y", &wasm.FunctionType{}, nil))
}

// Bounds safety: a memory access past the committed page range traps rather
// than reading or writing outside [0, pages*65536).
func TestMemoryOutOfBounds(t *testing.T) {
	code := asm(
		asmWord(OpLoad32, 0, 0, 0), asmImm32(65536), // one page beyond the only committed page
		asmWord(OpRet, 0, 0, 0),
	)
	m := withMemory(singleFuncModule(code, 1, nil, []api.ValueKind{api.ValueKindI32}), 1, 1)
	vm := mustInstantiate(t, m, Config{})

	_, err := vm.CallExport(context.Background(), "main", nil)
	require.ErrorIs(t, err, errBounds)
}
