package interpreter

import (
	"fmt"

	"github.com/runevm/rune/internal/wasmruntime"
)

// trapSignal is what the dispatch loop panics with on any guest-observable
// violation (spec.md §4.2 "Failure semantics inside the interpreter", §7).
// Call's deferred recover converts it back into a plain error; panicking
// rather than threading an error return through every opcode case mirrors
// the teacher's callNativeFunc, which panics with a wasmruntime sentinel
// and lets moduleEngine.Call's defer/recover do the unwinding.
type trapSignal struct {
	err error
}

func raise(err error) {
	panic(trapSignal{err: err})
}

func trapf(kind error, funcIndex, pc uint32, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	raise(fmt.Errorf("%w: func %d pc %d: %s", kind, funcIndex, pc, msg))
}

func trapAt(kind error, funcIndex, pc uint32) {
	raise(fmt.Errorf("%w: func %d pc %d", kind, funcIndex, pc))
}

var (
	errDivZero       = wasmruntime.ErrDivZero
	errBounds        = wasmruntime.ErrBounds
	errBadOpcode     = wasmruntime.ErrBadOpcode
	errTrap          = wasmruntime.ErrTrap
	errStackOverflow = wasmruntime.ErrStackOverflow
	errFuelExhausted = wasmruntime.ErrFuelExhausted
	errNoImport      = wasmruntime.ErrNoImport
	errHostType      = wasmruntime.ErrHostType
)
