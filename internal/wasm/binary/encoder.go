package binary

import (
	"bytes"
	"encoding/binary"

	"github.com/runevm/rune/internal/wasm"
)

// EncodeModule serializes m back into the wire format from spec.md §4.1 and
// §6. This is not the assembler (out of scope per spec.md §1 — only the
// output format is normative); it exists so tests can build *wasm.Module
// fixtures and assert the loader round-trips them, the same way the
// teacher's own binary/decoder_test.go builds wasm.Module values and checks
// Module.Encode/DecodeModule agree.
func EncodeModule(m *wasm.Module) []byte {
	var body bytes.Buffer
	encodeTypeSection(&body, m)
	encodeImportSection(&body, m)
	encodeFuncSection(&body, m)
	if m.HasMemory {
		encodeMemorySection(&body, m)
	}
	encodeGlobalSection(&body, m)
	encodeExportSection(&body, m)
	encodeCodeSection(&body, m)
	encodeDataSection(&body, m)

	out := make([]byte, headerSize)
	copy(out[0:4], magic)
	binary.LittleEndian.PutUint16(out[4:6], version)
	// flags (out[6:8]) left zero.
	binary.LittleEndian.PutUint32(out[12:16], 0) // reserved
	out = append(out, body.Bytes()...)
	binary.LittleEndian.PutUint32(out[8:12], checksum(out[headerSize:]))
	return out
}

func putSection(w *bytes.Buffer, id uint8, payload []byte) {
	w.WriteByte(id)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	w.Write(lenBuf[:])
	w.Write(payload)
}

func u32le(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func u16le(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func u64le(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func putStr(w *bytes.Buffer, s string) {
	w.WriteByte(byte(len(s)))
	w.WriteString(s)
}

func encodeTypeSection(w *bytes.Buffer, m *wasm.Module) {
	if len(m.Types) == 0 {
		return
	}
	var p bytes.Buffer
	p.Write(u32le(uint32(len(m.Types))))
	for _, t := range m.Types {
		p.WriteByte(byte(len(t.Params)))
		p.WriteByte(byte(len(t.Results)))
		p.Write(t.Params)
		p.Write(t.Results)
	}
	putSection(w, sectionType, p.Bytes())
}

func encodeImportSection(w *bytes.Buffer, m *wasm.Module) {
	if len(m.Imports) == 0 {
		return
	}
	var p bytes.Buffer
	p.Write(u32le(uint32(len(m.Imports))))
	for _, imp := range m.Imports {
		putStr(&p, imp.Module)
		putStr(&p, imp.Name)
		p.Write(u16le(uint16(imp.TypeIndex)))
	}
	putSection(w, sectionImport, p.Bytes())
}

func encodeFuncSection(w *bytes.Buffer, m *wasm.Module) {
	locals := localFunctions(m)
	if len(locals) == 0 {
		return
	}
	var p bytes.Buffer
	p.Write(u32le(uint32(len(locals))))
	for _, f := range locals {
		p.Write(u16le(uint16(f.TypeIndex)))
		p.WriteByte(f.RegCount)
		p.WriteByte(f.LocalCount)
	}
	putSection(w, sectionFunc, p.Bytes())
}

func encodeMemorySection(w *bytes.Buffer, m *wasm.Module) {
	var p bytes.Buffer
	p.Write(u16le(uint16(m.Memory.InitialPages)))
	p.Write(u16le(uint16(m.Memory.MaxPages)))
	putSection(w, sectionMemory, p.Bytes())
}

func encodeGlobalSection(w *bytes.Buffer, m *wasm.Module) {
	if len(m.Globals) == 0 {
		return
	}
	var p bytes.Buffer
	p.Write(u32le(uint32(len(m.Globals))))
	for _, g := range m.Globals {
		p.WriteByte(g.Type)
		if g.Mutable {
			p.WriteByte(1)
		} else {
			p.WriteByte(0)
		}
		p.Write(u64le(g.Init.Raw()))
	}
	putSection(w, sectionGlobal, p.Bytes())
}

func encodeExportSection(w *bytes.Buffer, m *wasm.Module) {
	if len(m.Exports) == 0 {
		return
	}
	var p bytes.Buffer
	p.Write(u32le(uint32(len(m.Exports))))
	for _, e := range m.Exports {
		switch e.Kind {
		case wasm.ExportKindFunction:
			p.WriteByte(wireExportFunc)
		case wasm.ExportKindMemory:
			p.WriteByte(wireExportMemory)
		}
		p.Write(u32le(e.Index))
		putStr(&p, e.Name)
	}
	putSection(w, sectionExport, p.Bytes())
}

func encodeCodeSection(w *bytes.Buffer, m *wasm.Module) {
	locals := localFunctions(m)
	if len(locals) == 0 {
		return
	}
	var p bytes.Buffer
	p.Write(u32le(uint32(len(locals))))
	for _, f := range locals {
		p.Write(u32le(uint32(len(f.Code))))
		p.Write(f.Code)
	}
	putSection(w, sectionCode, p.Bytes())
}

func encodeDataSection(w *bytes.Buffer, m *wasm.Module) {
	if len(m.Data) == 0 {
		return
	}
	var p bytes.Buffer
	p.Write(u32le(uint32(len(m.Data))))
	for _, d := range m.Data {
		p.WriteByte(byte(d.MemoryIndex))
		p.Write(u32le(d.Offset))
		p.Write(u32le(uint32(len(d.Bytes))))
		p.Write(d.Bytes)
	}
	putSection(w, sectionData, p.Bytes())
}

func localFunctions(m *wasm.Module) []*wasm.Function {
	locals := make([]*wasm.Function, 0, len(m.Functions))
	for _, f := range m.Functions {
		if !f.IsImport {
			locals = append(locals, f)
		}
	}
	return locals
}
