package psyq

import (
	"objdis/internal/mips"
)

// FixPatches rewrites every patch expression of the form
// sectbase(S)+K (in either operand order) into a reference to the symbol at
// offset K of section S, synthesizing a local symbol when none exists.
// Other expressions are left as they are.
func FixPatches(reg *Registry) {
	for _, s := range reg.Sections() {
		for _, p := range s.Patches() {
			id, off, ok := sectionOffset(p.Expr)
			if !ok {
				continue
			}
			target := reg.Section(id)
			sym := reg.LocalSymbolAt(target, off, func(off uint32) string {
				return sectionLabel(target, off)
			})
			p.Expr = SymbolAddr(sym.Number)
		}
	}
}

// sectionOffset matches add(sectbase(S), constant(K)) and
// add(constant(K), sectbase(S)).
func sectionOffset(e *Expr) (uint16, uint32, bool) {
	if e == nil || e.Op != OpAdd {
		return 0, 0, false
	}
	base, k := e.Left, e.Right
	if base.Op != OpSectBase {
		base, k = k, base
	}
	if base.Op != OpSectBase || k.Op != OpConstant {
		return 0, 0, false
	}
	return uint16(base.Value), uint32(k.Value), true
}

// ResolveBranches gives every in-section branch target of s a symbol so the
// listing shows a label there. Synthesized names are loc_<HEX>.
func ResolveBranches(reg *Registry, s *Section) {
	if len(s.Data) == 0 {
		return
	}
	end := min(uint32(len(s.Data)), s.Size) &^ 3
	for pc := uint32(0); pc < end; pc += 4 {
		word := mips.Word(s.Data[pc:])
		if !mips.IsRelativeBranch(word) {
			continue
		}
		target := mips.BranchTarget(pc, word)
		if target >= s.Size {
			continue
		}
		reg.LocalSymbolAt(s, target, branchLabel)
	}
}
