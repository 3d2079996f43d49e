package psyq

import (
	"fmt"
	"log/slog"
	"strings"
)

// FirstLocalNumber seeds the counter for symbols that have no number in the
// file. File-declared numbers are 16-bit so they never reach it.
const FirstLocalNumber = 1000000

// PatchKind is the relocation field a patch rewrites.
type PatchKind uint8

const (
	PatchWord PatchKind = iota
	PatchLong
	PatchMipsLo
	PatchMipsHi
	PatchMipsGP
	PatchMipsFP
)

func (k PatchKind) String() string {
	switch k {
	case PatchWord:
		return "word"
	case PatchLong:
		return "long"
	case PatchMipsLo:
		return "mips-lo"
	case PatchMipsHi:
		return "mips-hi"
	case PatchMipsGP:
		return "mips-gp"
	case PatchMipsFP:
		return "mips-fp"
	}
	return fmt.Sprintf("patch(%d)", uint8(k))
}

// Patch is a relocation site within its owning section.
type Patch struct {
	Kind   PatchKind
	Offset uint32
	Expr   *Expr
}

// SymbolKind says how a symbol was declared.
type SymbolKind uint8

const (
	SymExport SymbolKind = iota
	SymImport
	SymBSS
	SymLocal
)

func (k SymbolKind) String() string {
	switch k {
	case SymExport:
		return "xdef"
	case SymImport:
		return "xref"
	case SymBSS:
		return "xbss"
	case SymLocal:
		return "local"
	}
	return fmt.Sprintf("sym(%d)", uint8(k))
}

type Symbol struct {
	Name   string
	Number uint32
	Offset uint32
	Size   uint32
	Kind   SymbolKind
}

// Section is one linker section. Size may exceed len(Data) when the section
// holds uninitialized space.
type Section struct {
	ID    uint16
	Name  string
	Group uint8
	Align uint16
	Data  []byte
	Size  uint32

	symbols []*Symbol
	patches []*Patch
	dumped  bool
}

// Symbols returns the section's symbols, most recently declared first.
func (s *Section) Symbols() []*Symbol {
	out := make([]*Symbol, len(s.symbols))
	for i, sym := range s.symbols {
		out[len(s.symbols)-1-i] = sym
	}
	return out
}

// SymbolsAt returns every symbol at off, most recently declared first.
func (s *Section) SymbolsAt(off uint32) []*Symbol {
	var out []*Symbol
	for i := len(s.symbols) - 1; i >= 0; i-- {
		if s.symbols[i].Offset == off {
			out = append(out, s.symbols[i])
		}
	}
	return out
}

// SymbolAt returns the most recently declared symbol at off, or nil.
func (s *Section) SymbolAt(off uint32) *Symbol {
	for i := len(s.symbols) - 1; i >= 0; i-- {
		if s.symbols[i].Offset == off {
			return s.symbols[i]
		}
	}
	return nil
}

// Patches returns the section's patches, most recently declared first.
func (s *Section) Patches() []*Patch {
	out := make([]*Patch, len(s.patches))
	for i, p := range s.patches {
		out[len(s.patches)-1-i] = p
	}
	return out
}

// PatchWithin returns a patch whose offset lies in [lo, hi], or nil.
func (s *Section) PatchWithin(lo, hi uint32) *Patch {
	for i := len(s.patches) - 1; i >= 0; i-- {
		if p := s.patches[i]; p.Offset >= lo && p.Offset <= hi {
			return p
		}
	}
	return nil
}

func (s *Section) Dumped() bool {
	return s.dumped
}

// MarkDumped sets the dumped flag. It returns false if it was already set.
func (s *Section) MarkDumped() bool {
	if s.dumped {
		return false
	}
	s.dumped = true
	return true
}

// IsCode reports whether the section name is one of the code sections.
func (s *Section) IsCode() bool {
	switch s.Name {
	case ".text", ".ctors", ".dtors":
		return true
	}
	return false
}

// IsSmall reports whether the section is addressed through the global pointer.
func (s *Section) IsSmall() bool {
	return s.Name == ".sdata" || s.Name == ".sbss"
}

// Registry holds every section of one object, in creation order. It also owns
// the counter for synthesized symbol numbers.
type Registry struct {
	sections []*Section
	byID     map[uint16]*Section
	next     uint32
}

func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[uint16]*Section),
		next: FirstLocalNumber,
	}
}

// Section returns the section with the given id, creating it on first use.
func (r *Registry) Section(id uint16) *Section {
	if s, ok := r.byID[id]; ok {
		return s
	}
	s := &Section{ID: id}
	r.byID[id] = s
	r.sections = append(r.sections, s)
	return s
}

// Lookup returns the section with the given id without creating it.
func (r *Registry) Lookup(id uint16) (*Section, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Sections returns all sections in creation order.
func (r *Registry) Sections() []*Section {
	return r.sections
}

// NextNumber allocates a symbol number from the local counter.
func (r *Registry) NextNumber() uint32 {
	n := r.next
	r.next++
	return n
}

func (r *Registry) NewSymbol(s *Section, kind SymbolKind) *Symbol {
	sym := &Symbol{Kind: kind}
	s.symbols = append(s.symbols, sym)
	return sym
}

func (r *Registry) NewPatch(s *Section, kind PatchKind) *Patch {
	p := &Patch{Kind: kind}
	s.patches = append(s.patches, p)
	return p
}

// LocalSymbolAt returns the symbol at off in s, synthesizing a local symbol
// named by name(off) when there is none.
func (r *Registry) LocalSymbolAt(s *Section, off uint32, name func(uint32) string) *Symbol {
	if sym := s.SymbolAt(off); sym != nil {
		return sym
	}
	sym := r.NewSymbol(s, SymLocal)
	sym.Number = r.NextNumber()
	sym.Offset = off
	sym.Name = name(off)
	slog.Debug("Synthesized local symbol", "section", s.Name, "name", sym.Name, "number", sym.Number)
	return sym
}

// SymbolByNumber searches every section for the symbol with number n.
func (r *Registry) SymbolByNumber(n uint32) *Symbol {
	for _, s := range r.sections {
		for i := len(s.symbols) - 1; i >= 0; i-- {
			if s.symbols[i].Number == n {
				return s.symbols[i]
			}
		}
	}
	return nil
}

func (r *Registry) SectionName(id uint16) string {
	if s, ok := r.byID[id]; ok {
		return s.Name
	}
	return ""
}

func (r *Registry) SymbolName(n uint32) string {
	if sym := r.SymbolByNumber(n); sym != nil {
		return sym.Name
	}
	return ""
}

// DumpOrder returns the sections in emission order: section 0, then the
// small-data sections, then the rest in creation order.
func (r *Registry) DumpOrder() []*Section {
	out := make([]*Section, 0, len(r.sections))
	if s, ok := r.byID[0]; ok {
		out = append(out, s)
	}
	for _, s := range r.sections {
		if s.ID != 0 && s.IsSmall() {
			out = append(out, s)
		}
	}
	for _, s := range r.sections {
		if s.ID != 0 && !s.IsSmall() {
			out = append(out, s)
		}
	}
	return out
}

func sectionLabel(s *Section, off uint32) string {
	return fmt.Sprintf("%s_%X", strings.TrimPrefix(s.Name, "."), off)
}

func branchLabel(off uint32) string {
	return fmt.Sprintf("loc_%X", off)
}
