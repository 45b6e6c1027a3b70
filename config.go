package rune

import "github.com/runevm/rune/internal/engine/interpreter"

// Config configures a VM at construction time (spec.md §4.3 vm_new, §6).
// Build one with NewConfig, which seeds the spec's documented defaults the
// same way the teacher's RuntimeConfig is built through NewRuntimeConfig
// rather than a bare struct literal. A zero Config behaves the same, since
// the interpreter substitutes the defaults for a zero stack size and
// memory limit.
type Config struct {
	stackSize   int
	memoryLimit uint64
	fuelLimit   uint64
}

// NewConfig returns a Config carrying spec.md §4.3's defaults: stack_size
// 64, memory_limit 64 MiB, fuel_limit 0 (unlimited).
func NewConfig() *Config {
	def := interpreter.DefaultConfig()
	return &Config{
		stackSize:   def.StackSize,
		memoryLimit: def.MemoryLimit,
		fuelLimit:   def.FuelLimit,
	}
}

// WithStackSize caps the maximum call depth.
func (c *Config) WithStackSize(n int) *Config {
	c.stackSize = n
	return c
}

// WithMemoryLimit caps linear memory's max_pages × 65536 byte allocation.
func (c *Config) WithMemoryLimit(bytes uint64) *Config {
	c.memoryLimit = bytes
	return c
}

// WithFuelLimit caps the number of instructions dispatched since VM
// creation or the last Refuel; 0 means unlimited. The counter is not reset
// between top-level Calls.
func (c *Config) WithFuelLimit(n uint64) *Config {
	c.fuelLimit = n
	return c
}

func (c *Config) toInternal() interpreter.Config {
	return interpreter.Config{
		StackSize:   c.stackSize,
		MemoryLimit: c.memoryLimit,
		FuelLimit:   c.fuelLimit,
	}
}
