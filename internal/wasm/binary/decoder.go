package binary

import (
	"fmt"

	"github.com/runevm/rune/api"
	"github.com/runevm/rune/internal/wasm"
	"github.com/runevm/rune/internal/wasmruntime"
)

// DecodeModule parses and validates raw module bytes into an owned
// in-memory wasm.Module (spec.md §4.1). The returned Module copies buf, so
// the caller's slice may be reused or discarded afterward (spec.md §9:
// "the loader copies the raw bytes into module-owned storage").
func DecodeModule(buf []byte) (*wasm.Module, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: input shorter than header", wasmruntime.ErrBadModule)
	}
	// Module owns a private copy so Function.Code slices stay valid for the
	// module's lifetime regardless of what the caller does with buf.
	own := make([]byte, len(buf))
	copy(own, buf)

	hdr := newReader(own[:headerSize])
	magicBytes, _ := hdr.bytes(4)
	if string(magicBytes) != magic {
		return nil, fmt.Errorf("%w: got %q", wasmruntime.ErrBadMagic, magicBytes)
	}
	ver, _ := hdr.u16()
	if ver != version {
		return nil, fmt.Errorf("%w: got %d want %d", wasmruntime.ErrVersionMismatch, ver, version)
	}
	_, _ = hdr.u16() // flags: reserved for future use, not interpreted.
	wantCRC, _ := hdr.u32()
	_, _ = hdr.u32() // reserved

	body := own[headerSize:]
	if got := checksum(body); got != wantCRC {
		return nil, fmt.Errorf("%w: crc mismatch, got %#x want %#x", wasmruntime.ErrBadModule, got, wantCRC)
	}

	m := wasm.NewModule(own)
	d := decoderState{m: m, r: newReader(body)}
	if err := d.decodeSections(); err != nil {
		return nil, err
	}
	d.finish()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

type decoderState struct {
	m *wasm.Module
	r *reader

	funcLocalHeaders []localFuncHeader
	funcSeen         bool
	localCode        [][]byte
	codeSeen         bool
}

type localFuncHeader struct {
	typeIndex uint32
	regCount  uint8
	localCnt  uint8
}

func (d *decoderState) decodeSections() error {
	seen := map[uint8]bool{}
	for !d.r.atEnd() {
		id, err := d.r.u8()
		if err != nil {
			return err
		}
		length, err := d.r.u32()
		if err != nil {
			return err
		}
		payload, err := d.r.bytes(int(length))
		if err != nil {
			return fmt.Errorf("%w: section %d byte count overruns input", wasmruntime.ErrBadModule, id)
		}
		sr := newReader(payload)

		switch id {
		case sectionType:
			if seen[id] {
				return fmt.Errorf("%w: duplicate TYPE section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeType(sr); err != nil {
				return err
			}
		case sectionImport:
			if seen[id] {
				return fmt.Errorf("%w: duplicate IMPORT section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeImport(sr); err != nil {
				return err
			}
		case sectionFunc:
			if seen[id] {
				return fmt.Errorf("%w: duplicate FUNC section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeFunc(sr); err != nil {
				return err
			}
			d.funcSeen = true
		case sectionMemory:
			if seen[id] {
				return fmt.Errorf("%w: duplicate MEMORY section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeMemory(sr); err != nil {
				return err
			}
		case sectionGlobal:
			if seen[id] {
				return fmt.Errorf("%w: duplicate GLOBAL section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeGlobal(sr); err != nil {
				return err
			}
		case sectionExport:
			if seen[id] {
				return fmt.Errorf("%w: duplicate EXPORT section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeExport(sr); err != nil {
				return err
			}
		case sectionCode:
			if seen[id] {
				return fmt.Errorf("%w: duplicate CODE section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeCode(sr); err != nil {
				return err
			}
			d.codeSeen = true
		case sectionData:
			if seen[id] {
				return fmt.Errorf("%w: duplicate DATA section", wasmruntime.ErrBadModule)
			}
			if err := d.decodeData(sr); err != nil {
				return err
			}
		default:
			// Unknown section ids are skipped by construction: we already
			// consumed exactly byte_length bytes above.
		}
		seen[id] = true
	}

	if len(d.funcLocalHeaders) > 0 && !d.codeSeen {
		return fmt.Errorf("%w: FUNC section present without CODE section", wasmruntime.ErrBadModule)
	}
	if d.codeSeen && len(d.localCode) != len(d.funcLocalHeaders) {
		return fmt.Errorf("%w: CODE count %d does not match FUNC count %d", wasmruntime.ErrBadModule, len(d.localCode), len(d.funcLocalHeaders))
	}

	// Build the module-wide function index space now that every section
	// has been read, regardless of the order sections appeared in the
	// file: imports first, then local functions (spec.md §4.1 — "Local
	// function indices begin at import_count").
	d.m.Functions = make([]*wasm.Function, 0, len(d.m.Imports)+len(d.funcLocalHeaders))
	for i, imp := range d.m.Imports {
		d.m.Functions = append(d.m.Functions, &wasm.Function{
			IsImport:    true,
			ImportIndex: uint32(i),
			TypeIndex:   imp.TypeIndex,
		})
	}
	for i, h := range d.funcLocalHeaders {
		var code []byte
		if i < len(d.localCode) {
			code = d.localCode[i]
		}
		d.m.Functions = append(d.m.Functions, &wasm.Function{
			TypeIndex:  h.typeIndex,
			RegCount:   h.regCount,
			LocalCount: h.localCnt,
			Code:       code,
		})
	}
	return nil
}

func (d *decoderState) decodeType(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		paramCount, err := r.u8()
		if err != nil {
			return err
		}
		returnCount, err := r.u8()
		if err != nil {
			return err
		}
		ft := &wasm.FunctionType{
			Params:  make([]api.ValueKind, paramCount),
			Results: make([]api.ValueKind, returnCount),
		}
		for p := range ft.Params {
			tag, err := r.u8()
			if err != nil {
				return err
			}
			ft.Params[p] = tag
		}
		for p := range ft.Results {
			tag, err := r.u8()
			if err != nil {
				return err
			}
			ft.Results[p] = tag
		}
		d.m.Types = append(d.m.Types, ft)
	}
	return nil
}

func (d *decoderState) decodeImport(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		mod, err := r.str()
		if err != nil {
			return err
		}
		name, err := r.str()
		if err != nil {
			return err
		}
		typeIdx, err := r.u16()
		if err != nil {
			return err
		}
		imp := &wasm.Import{Module: mod, Name: name, TypeIndex: uint32(typeIdx)}
		d.m.Imports = append(d.m.Imports, imp)
	}
	return nil
}

func (d *decoderState) decodeFunc(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		typeIdx, err := r.u16()
		if err != nil {
			return err
		}
		regCount, err := r.u8()
		if err != nil {
			return err
		}
		localCount, err := r.u8()
		if err != nil {
			return err
		}
		d.funcLocalHeaders = append(d.funcLocalHeaders, localFuncHeader{
			typeIndex: uint32(typeIdx), regCount: regCount, localCnt: localCount,
		})
	}
	return nil
}

func (d *decoderState) decodeMemory(r *reader) error {
	initial, err := r.u16()
	if err != nil {
		return err
	}
	max, err := r.u16()
	if err != nil {
		return err
	}
	if max == 0 {
		max = initial
	}
	d.m.HasMemory = true
	d.m.Memory = wasm.MemoryLimits{InitialPages: uint32(initial), MaxPages: uint32(max)}
	return nil
}

func (d *decoderState) decodeGlobal(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tag, err := r.u8()
		if err != nil {
			return err
		}
		mut, err := r.u8()
		if err != nil {
			return err
		}
		raw, err := r.u64()
		if err != nil {
			return err
		}
		d.m.Globals = append(d.m.Globals, &wasm.Global{
			Type:    tag,
			Mutable: mut != 0,
			Init:    api.RawValue(tag, raw),
		})
	}
	return nil
}

func (d *decoderState) decodeExport(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		kind, err := r.u8()
		if err != nil {
			return err
		}
		index, err := r.u32()
		if err != nil {
			return err
		}
		name, err := r.str()
		if err != nil {
			return err
		}
		var ek wasm.ExportKind
		switch kind {
		case wireExportFunc:
			ek = wasm.ExportKindFunction
		case wireExportMemory:
			ek = wasm.ExportKindMemory
		default:
			return fmt.Errorf("%w: export %d: unknown kind %d", wasmruntime.ErrBadModule, i, kind)
		}
		d.m.Exports = append(d.m.Exports, &wasm.Export{Kind: ek, Index: index, Name: name})
	}
	return nil
}

func (d *decoderState) decodeCode(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	// A CODE section that precedes FUNC is checked against it once all
	// sections are read (decodeSections).
	if d.funcSeen && int(count) != len(d.funcLocalHeaders) {
		return fmt.Errorf("%w: CODE count %d does not match FUNC count %d", wasmruntime.ErrBadModule, count, len(d.funcLocalHeaders))
	}
	d.localCode = make([][]byte, count)
	for i := uint32(0); i < count; i++ {
		codeLen, err := r.u32()
		if err != nil {
			return err
		}
		if codeLen%4 != 0 {
			return fmt.Errorf("%w: function %d: code length %d is not a multiple of 4", wasmruntime.ErrBadModule, i, codeLen)
		}
		code, err := r.bytes(int(codeLen))
		if err != nil {
			return err
		}
		d.localCode[i] = code
	}
	return nil
}

func (d *decoderState) decodeData(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		memIdx, err := r.u8()
		if err != nil {
			return err
		}
		offset, err := r.u32()
		if err != nil {
			return err
		}
		size, err := r.u32()
		if err != nil {
			return err
		}
		b, err := r.bytes(int(size))
		if err != nil {
			return err
		}
		d.m.Data = append(d.m.Data, &wasm.DataSegment{MemoryIndex: uint32(memIdx), Offset: offset, Bytes: b})
	}
	return nil
}

// finish resolves the _init export, if present, after all sections have
// been read (spec.md §3: "init_func index set to the export named _init if
// present and of function kind").
func (d *decoderState) finish() {
	if idx, ok := d.m.ExportFunction("_init"); ok {
		d.m.InitFuncIndex = int64(idx)
	}
}
