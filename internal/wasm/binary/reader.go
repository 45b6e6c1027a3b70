package binary

import (
	"encoding/binary"
	"fmt"

	"github.com/runevm/rune/internal/wasmruntime"
)

// reader is a bounds-checked little-endian cursor over a byte slice. Every
// method returns a wrapped wasmruntime.ErrBadModule on truncation instead
// of panicking, since the loader must never crash on untrusted input
// (spec.md §4.1's "truncated section" gate).
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) need(n int) error {
	if n < 0 || r.remaining() < n {
		return fmt.Errorf("%w: truncated input at offset %d, need %d more bytes", wasmruntime.ErrBadModule, r.pos, n)
	}
	return nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// str reads a length-prefixed short string: one length byte followed by
// that many bytes (spec.md §3: "module_name and name are length-prefixed
// short strings (≤255 bytes)").
func (r *reader) str() (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) atEnd() bool { return r.remaining() == 0 }
