// Package wasmruntime holds the closed error taxonomy shared by the loader
// and the interpreter. The interpreter's panic/recover boundary unwinds a
// trap back to one error wrapping one of these sentinels.
package wasmruntime

import "errors"

// Kind identifies one of the error kinds enumerated in spec.md §7. Every
// status the public API can return is one of these.
type Kind string

const (
	KindOK               Kind = "ok"
	KindBadModule        Kind = "bad module"
	KindBadMagic         Kind = "bad magic"
	KindVersionMismatch  Kind = "version mismatch"
	KindOOM              Kind = "oom"
	KindBounds           Kind = "bounds"
	KindDivZero          Kind = "divzero"
	KindType             Kind = "type"
	KindNoExport         Kind = "noexport"
	KindNoImport         Kind = "noimport"
	KindStackOverflow    Kind = "stackoverflow"
	KindTrap             Kind = "trap"
	KindFuel             Kind = "fuel"
	KindBadOpcode        Kind = "badopcode"
)

// Sentinel errors, one per Kind, the same way the teacher's own
// internal/wasmruntime package defines one sentinel per trap (e.g.
// ErrRuntimeOutOfBoundsMemoryAccess, ErrRuntimeInvalidTableAccess) rather
// than a single parameterized error type. Call-site context (function
// index, program counter, host error detail) is layered on with fmt.Errorf
// and %w, never by mutating these values.
var (
	ErrBadModule       = errors.New("rune: bad module")
	ErrBadMagic        = errors.New("rune: bad magic")
	ErrVersionMismatch = errors.New("rune: version mismatch")
	ErrOOM             = errors.New("rune: out of memory")
	ErrBounds          = errors.New("rune: out-of-bounds memory access")
	ErrDivZero         = errors.New("rune: division by zero")
	ErrHostType        = errors.New("rune: host function argument type mismatch")
	ErrNoExport        = errors.New("rune: no such export")
	ErrNoImport        = errors.New("rune: unresolved import")
	ErrStackOverflow   = errors.New("rune: call stack overflow")
	ErrTrap            = errors.New("rune: trap")
	ErrFuelExhausted   = errors.New("rune: fuel exhausted")
	ErrBadOpcode       = errors.New("rune: unknown opcode")

	// ErrReentrant guards the non-reentrancy rule of spec.md §5: a host
	// callback calling back into vm_call on the same VM is undefined
	// behavior upstream; this implementation detects and rejects it.
	ErrReentrant = errors.New("rune: reentrant vm_call")
)

// KindOf maps a returned error to its Kind by unwrapping to one of the
// sentinels above. Errors that don't wrap a known sentinel report
// KindTrap, since any otherwise-unclassified failure still aborts the
// top-level call the same way an explicit trap opcode does.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrBadModule):
		return KindBadModule
	case errors.Is(err, ErrBadMagic):
		return KindBadMagic
	case errors.Is(err, ErrVersionMismatch):
		return KindVersionMismatch
	case errors.Is(err, ErrOOM):
		return KindOOM
	case errors.Is(err, ErrBounds):
		return KindBounds
	case errors.Is(err, ErrDivZero):
		return KindDivZero
	case errors.Is(err, ErrHostType):
		return KindType
	case errors.Is(err, ErrNoExport):
		return KindNoExport
	case errors.Is(err, ErrNoImport):
		return KindNoImport
	case errors.Is(err, ErrStackOverflow):
		return KindStackOverflow
	case errors.Is(err, ErrFuelExhausted):
		return KindFuel
	case errors.Is(err, ErrBadOpcode):
		return KindBadOpcode
	default:
		return KindTrap
	}
}
