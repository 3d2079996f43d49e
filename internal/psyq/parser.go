// Package psyq decodes the sectioned object files produced by the Psy-Q
// MIPS toolchain: sections, symbols, relocation patches and their
// expressions.
package psyq

import (
	"fmt"
	"io"
	"log/slog"

	"objdis/internal/binio"
)

// Magic numbers, read little-endian from the first four bytes.
const (
	ObjectMagic   = 0x024B4E4C // "LNK\x02"
	LibraryMagicA = 0x0142494C // "LIB\x01"
	LibraryMagicB = 0x0242494C // "LIB\x02"
)

// CPUR3000 is the only processor type accepted in a cpu chunk.
const CPUR3000 = 7

const (
	chunkEnd           = 0
	chunkCode          = 2
	chunkSwitch        = 6
	chunkUninit        = 8
	chunkPatch         = 10
	chunkXdef          = 12
	chunkXref          = 14
	chunkSection       = 16
	chunkLocal         = 18
	chunkFilename      = 28
	chunkCPU           = 46
	chunkXbss          = 48
	chunkIncLine       = 50
	chunkIncLineByte   = 52
	chunkIncLineWord   = 54
	chunkSetLine       = 56
	chunkSetLineFile   = 58
	chunkEndLineInfo   = 60
	chunkFunctionStart = 74
	chunkFunctionEnd   = 76
	chunkBlockStart    = 78
	chunkBlockEnd      = 80
	chunkDef           = 82
	chunkDef2          = 84
)

// patchKinds maps patch-type bytes to patch kinds. Type 30 marks a floating
// point field but is rewritten exactly like a long.
var patchKinds = map[uint8]PatchKind{
	16:  PatchLong,
	26:  PatchWord,
	28:  PatchWord,
	30:  PatchLong,
	74:  PatchLong,
	82:  PatchMipsHi,
	84:  PatchMipsLo,
	100: PatchMipsGP,
}

// debugRecords lists line-number records by the size of their fixed payload.
// None of them has a variable part.
var debugRecords = map[uint8]int64{
	chunkIncLine:     2,
	chunkIncLineByte: 3,
	chunkIncLineWord: 4,
	chunkSetLine:     6,
	chunkSetLineFile: 8,
	chunkEndLineInfo: 2,
	chunkFunctionEnd: 10,
	chunkBlockStart:  10,
	chunkBlockEnd:    10,
}

// functionStartFixed is the fixed part of a function start record, before
// its name.
const functionStartFixed = 2 + 4 + 2 + 4 + 2 + 4 + 2 + 4 + 4

// defFixed is the fixed head of a symbol definition record: section,
// value, class, type and size.
const defFixed = 2 + 4 + 2 + 2 + 4

// parser is the state carried between chunks.
type parser struct {
	r   *binio.Reader
	reg *Registry

	cur       *Section
	patchBase uint32
}

// Parse reads one object file and returns its populated registry. No
// normalization pass has been run on the result.
func Parse(rs io.ReadSeeker) (*Registry, error) {
	p := &parser{r: binio.NewReader(rs), reg: NewRegistry()}

	magic, err := p.r.U32()
	if err != nil {
		return nil, err
	}
	if magic != ObjectMagic {
		return nil, formatErr(ErrBadMagic, 0, "not an object file (0x%08X)", magic)
	}

	for {
		start := p.r.Offset()
		chunk, err := p.r.U8()
		if err != nil {
			return nil, err
		}
		if chunk == chunkEnd {
			break
		}
		if err := p.chunk(chunk, start); err != nil {
			return nil, err
		}
	}

	p.checkPatches()
	return p.reg, nil
}

func (p *parser) chunk(chunk uint8, start int64) error {
	switch chunk {
	case chunkCode:
		return p.code(start)
	case chunkSwitch:
		id, err := p.r.U16()
		if err != nil {
			return err
		}
		p.cur = p.reg.Section(id)
		p.patchBase = p.cur.Size
		return nil
	case chunkUninit:
		size, err := p.r.U32()
		if err != nil {
			return err
		}
		if p.cur == nil {
			return formatErr(ErrNoSection, start, "uninitialized data")
		}
		p.cur.Size += size
		return nil
	case chunkPatch:
		return p.patch(start)
	case chunkXdef:
		return p.xdef()
	case chunkXref:
		return p.xref()
	case chunkSection:
		return p.section()
	case chunkLocal:
		return p.local()
	case chunkFilename:
		if _, err := p.r.U16(); err != nil {
			return err
		}
		_, err := p.r.Name()
		return err
	case chunkCPU:
		cpu, err := p.r.U8()
		if err != nil {
			return err
		}
		if cpu != CPUR3000 {
			return formatErr(ErrUnsupportedCPU, start, "cpu type %d", cpu)
		}
		return nil
	case chunkXbss:
		return p.xbss()
	case chunkFunctionStart:
		if err := p.r.Skip(functionStartFixed); err != nil {
			return err
		}
		_, err := p.r.Name()
		return err
	case chunkDef, chunkDef2:
		return p.def(chunk)
	}

	if n, ok := debugRecords[chunk]; ok {
		return p.r.Skip(n)
	}
	return formatErr(ErrUnsupportedChunk, start, "chunk %d", chunk)
}

// def skips a debugger symbol definition. The second form carries array
// dimensions and a tag name before the symbol name.
func (p *parser) def(chunk uint8) error {
	if err := p.r.Skip(defFixed); err != nil {
		return err
	}
	if chunk == chunkDef2 {
		dims, err := p.r.U16()
		if err != nil {
			return err
		}
		if err := p.r.Skip(4 * int64(dims)); err != nil {
			return err
		}
		if _, err := p.r.Name(); err != nil {
			return err
		}
	}
	_, err := p.r.Name()
	return err
}

func (p *parser) code(start int64) error {
	n, err := p.r.U16()
	if err != nil {
		return err
	}
	if p.cur == nil {
		return formatErr(ErrNoSection, start, "code")
	}
	data, err := p.r.Bytes(int(n))
	if err != nil {
		return err
	}
	// Uninitialized space already counted in Size is materialized as zeros
	// so that Data offsets keep matching section offsets.
	if pad := int(p.cur.Size) - len(p.cur.Data); pad > 0 {
		p.cur.Data = append(p.cur.Data, make([]byte, pad)...)
	}
	p.cur.Data = append(p.cur.Data, data...)
	p.cur.Size += uint32(n)
	return nil
}

func (p *parser) patch(start int64) error {
	typ, err := p.r.U8()
	if err != nil {
		return err
	}
	off, err := p.r.U16()
	if err != nil {
		return err
	}
	kind, ok := patchKinds[typ]
	if !ok {
		return formatErr(ErrUnsupportedPatchType, start, "patch type %d", typ)
	}
	if p.cur == nil {
		return formatErr(ErrNoSection, start, "patch")
	}
	expr, err := ReadExpr(p.r)
	if err != nil {
		return err
	}
	patch := p.reg.NewPatch(p.cur, kind)
	patch.Offset = uint32(off) + p.patchBase
	patch.Expr = expr
	return nil
}

func (p *parser) xdef() error {
	number, err := p.r.U16()
	if err != nil {
		return err
	}
	sect, err := p.r.U16()
	if err != nil {
		return err
	}
	off, err := p.r.U32()
	if err != nil {
		return err
	}
	name, err := p.r.Name()
	if err != nil {
		return err
	}
	sym := p.reg.NewSymbol(p.reg.Section(sect), SymExport)
	sym.Number = uint32(number)
	sym.Offset = off
	sym.Name = name
	return nil
}

func (p *parser) xref() error {
	number, err := p.r.U16()
	if err != nil {
		return err
	}
	name, err := p.r.Name()
	if err != nil {
		return err
	}
	sym := p.reg.NewSymbol(p.reg.Section(0), SymImport)
	sym.Number = uint32(number)
	sym.Name = name
	return nil
}

func (p *parser) section() error {
	id, err := p.r.U16()
	if err != nil {
		return err
	}
	group, err := p.r.U8()
	if err != nil {
		return err
	}
	align, err := p.r.U16()
	if err != nil {
		return err
	}
	name, err := p.r.Name()
	if err != nil {
		return err
	}
	s := p.reg.Section(id)
	s.Group = group
	s.Align = align
	s.Name = name
	return nil
}

func (p *parser) local() error {
	sect, err := p.r.U16()
	if err != nil {
		return err
	}
	off, err := p.r.U32()
	if err != nil {
		return err
	}
	name, err := p.r.Name()
	if err != nil {
		return err
	}
	sym := p.reg.NewSymbol(p.reg.Section(sect), SymLocal)
	sym.Number = p.reg.NextNumber()
	sym.Offset = off
	sym.Name = name
	return nil
}

func (p *parser) xbss() error {
	number, err := p.r.U16()
	if err != nil {
		return err
	}
	sect, err := p.r.U16()
	if err != nil {
		return err
	}
	size, err := p.r.U32()
	if err != nil {
		return err
	}
	name, err := p.r.Name()
	if err != nil {
		return err
	}
	s := p.reg.Section(sect)
	sym := p.reg.NewSymbol(s, SymBSS)
	sym.Number = uint32(number)
	sym.Offset = s.Size
	sym.Size = size
	sym.Name = name
	s.Size += size
	return nil
}

func (p *parser) checkPatches() {
	for _, s := range p.reg.Sections() {
		for _, patch := range s.patches {
			if patch.Offset >= s.Size {
				slog.Warn("Patch outside its section",
					"section", s.Name, "offset", fmt.Sprintf("0x%X", patch.Offset), "size", s.Size)
			}
		}
	}
}
