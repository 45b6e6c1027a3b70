package interpreter

import (
	"encoding/binary"
	"math"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/wasm"
)

// memoryUnit is the VM's linear memory: one buffer sized to max_pages at
// allocation time, with a logically committed prefix tracked by pages
// (spec.md §4.4). Growth never reallocates; it only advances pages and
// zeroes the newly committed range. Grounded on the teacher's
// MemoryInstance, whose Buffer/Min/Max/hasLen fields this mirrors, adapted
// from Wasm's "grow may reallocate" policy to the spec's fixed upfront
// allocation.
type memoryUnit struct {
	buf      []byte
	pages    uint32 // committed
	maxPages uint32
}

func newMemoryUnit(initialPages, maxPages uint32) *memoryUnit {
	return &memoryUnit{
		buf:      make([]byte, uint64(maxPages)*api.PageSize),
		pages:    initialPages,
		maxPages: maxPages,
	}
}

func (m *memoryUnit) Size() uint32 { return m.pages * api.PageSize }

func (m *memoryUnit) inBounds(offset, length uint32) bool {
	end := uint64(offset) + uint64(length)
	return end <= uint64(m.Size())
}

func (m *memoryUnit) Read(offset, length uint32) ([]byte, bool) {
	if !m.inBounds(offset, length) {
		return nil, false
	}
	return m.buf[offset : offset+length], true
}

func (m *memoryUnit) Write(offset uint32, data []byte) bool {
	if !m.inBounds(offset, uint32(len(data))) {
		return false
	}
	copy(m.buf[offset:], data)
	return true
}

// Grow adds delta pages, zeroing the newly committed range, and returns the
// page count prior to growth. It fails (returns false) if the result would
// exceed maxPages; the mem_grow opcode maps that to the bytecode-visible -1
// (spec.md §4.2 mem_grow, §4.4).
func (m *memoryUnit) Grow(delta uint32) (previous uint32, ok bool) {
	if delta == 0 {
		return m.pages, true
	}
	next := uint64(m.pages) + uint64(delta)
	if next > uint64(m.maxPages) {
		return m.pages, false
	}
	start := uint64(m.pages) * api.PageSize
	end := next * api.PageSize
	for i := start; i < end; i++ {
		m.buf[i] = 0
	}
	previous = m.pages
	m.pages = uint32(next)
	return previous, true
}

func (m *memoryUnit) readUint32(offset uint32) (uint32, bool) {
	b, ok := m.Read(offset, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (m *memoryUnit) readUint64(offset uint32) (uint64, bool) {
	b, ok := m.Read(offset, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (m *memoryUnit) writeUint32(offset, v uint32) bool {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.Write(offset, b[:])
}

func (m *memoryUnit) writeUint64(offset uint32, v uint64) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.Write(offset, b[:])
}

func (m *memoryUnit) readFloat32(offset uint32) (float32, bool) {
	v, ok := m.readUint32(offset)
	return math.Float32frombits(v), ok
}

func (m *memoryUnit) readFloat64(offset uint32) (float64, bool) {
	v, ok := m.readUint64(offset)
	return math.Float64frombits(v), ok
}

func (m *memoryUnit) writeFloat32(offset uint32, v float32) bool {
	return m.writeUint32(offset, math.Float32bits(v))
}

func (m *memoryUnit) writeFloat64(offset uint32, v float64) bool {
	return m.writeUint64(offset, math.Float64bits(v))
}

// applyDataSegment writes a module's DATA entry into memory at init
// (spec.md §3 DataSegment, §4.3 step 3). Bounds failures are the caller's
// responsibility to turn into a trap kind.
func (m *memoryUnit) applyDataSegment(d *wasm.DataSegment) bool {
	return m.Write(d.Offset, d.Bytes)
}
