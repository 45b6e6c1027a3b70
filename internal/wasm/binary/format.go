// Package binary implements the rune module container format from
// spec.md §4.1 and §6: the fixed header, CRC gate, and section TLVs. It is
// the one place that knows the on-disk byte layout; internal/wasm owns the
// in-memory shape the bytes decode into.
package binary

import "hash/crc32"

// Header layout (16 bytes, spec.md §6).
const (
	headerSize = 16
	magic      = "RUNE"
	version    = uint16(1)
)

// Section ids (spec.md §6). Unknown ids are skipped by advancing past
// byte_length, so this list only needs entries this loader understands.
const (
	sectionType   = 1
	sectionImport = 2
	sectionFunc   = 3
	sectionMemory = 4
	sectionGlobal = 5
	sectionExport = 6
	sectionCode   = 7
	sectionData   = 8
)

// Export kinds on the wire (spec.md §6).
const (
	wireExportFunc   = 0
	wireExportMemory = 1
)

// Type tags on the wire (spec.md §6). These intentionally match
// api.ValueKind's byte values one-for-one; binary decode/encode moves tags
// through as opaque bytes rather than re-deriving them.
const (
	tagI32  = 0x7F
	tagI64  = 0x7E
	tagF32  = 0x7D
	tagF64  = 0x7C
	tagBool = 0x7A
	tagPtr  = 0x70
	tagVoid = 0x40
)

// crcTable is the standard bit-reflected IEEE 802.3 polynomial
// (0xEDB88320), i.e. Go's crc32.IEEE — the same table the broader corpus
// reaches for when it needs CRC-32 (e.g. moby-moby's layer/content
// integrity checks), rather than a hand-rolled or third-party
// implementation. See SPEC_FULL.md §4.1 / DESIGN.md for why this one spot
// stays on the standard library.
var crcTable = crc32.IEEETable

func checksum(b []byte) uint32 {
	return crc32.Checksum(b, crcTable)
}
