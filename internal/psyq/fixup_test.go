package psyq

import (
	"testing"

	"objdis/internal/psyq/psyqtest"
)

func TestFixPatchesOperandOrder(t *testing.T) {
	tests := []struct {
		name string
		expr []byte
	}{
		{"base first", psyqtest.ExprAdd(psyqtest.ExprSectBase(2), psyqtest.ExprConst(8))},
		{"constant first", psyqtest.ExprAdd(psyqtest.ExprConst(8), psyqtest.ExprSectBase(2))},
		{"alternate add", psyqtest.ExprAddAlt(psyqtest.ExprConst(8), psyqtest.ExprSectBase(2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := parse(t, psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Section(2, 0, 8, ".data").
				Switch(2).
				Code(make([]byte, 16)...).
				Switch(1).
				Words(0x3C040000).
				Patch(82, 0, tt.expr).
				End())

			FixPatches(reg)

			text, _ := reg.Lookup(1)
			data, _ := reg.Lookup(2)
			p := text.Patches()[0]
			if p.Expr.Op != OpSymbol {
				t.Fatalf("expr = %v, want a symbol reference", p.Expr)
			}
			sym := data.SymbolAt(8)
			if sym == nil {
				t.Fatal("no symbol synthesized at .data+8")
			}
			if sym.Name != "data_8" || sym.Number != FirstLocalNumber || sym.Kind != SymLocal {
				t.Fatalf("symbol = %+v", sym)
			}
			if uint32(p.Expr.Value) != sym.Number {
				t.Fatalf("expr refers to %d, want %d", p.Expr.Value, sym.Number)
			}
		})
	}
}

func TestFixPatchesReusesSymbols(t *testing.T) {
	reg := parse(t, psyqtest.NewObject().
		Section(1, 0, 8, ".text").
		Switch(1).
		Words(0x0C000000, 0, 0x0C000000, 0).
		Xdef(9, 1, 0x0C, "helper").
		Patch(74, 0, psyqtest.ExprAdd(psyqtest.ExprSectBase(1), psyqtest.ExprConst(0x0C))).
		Patch(74, 8, psyqtest.ExprAdd(psyqtest.ExprConst(0x0C), psyqtest.ExprSectBase(1))).
		Patch(16, 4, psyqtest.ExprAdd(psyqtest.ExprSectBase(1), psyqtest.ExprConst(4))).
		Patch(16, 4, psyqtest.ExprAdd(psyqtest.ExprSectBase(1), psyqtest.ExprConst(4))).
		End())

	FixPatches(reg)

	text, _ := reg.Lookup(1)
	patches := text.Patches()
	for _, p := range patches[2:] {
		if !p.Expr.Equal(SymbolAddr(9)) {
			t.Errorf("patch at %d = %v, want the declared symbol", p.Offset, p.Expr)
		}
	}
	if !patches[0].Expr.Equal(patches[1].Expr) {
		t.Errorf("same target resolved twice: %v vs %v", patches[0].Expr, patches[1].Expr)
	}
	if n := len(text.SymbolsAt(4)); n != 1 {
		t.Errorf("%d symbols at offset 4, want 1", n)
	}
	if got := patches[0].Expr.Format(reg); got != "text_4" {
		t.Errorf("Format() = %q, want text_4", got)
	}
}

func TestFixPatchesLeavesOtherExpressions(t *testing.T) {
	exprs := [][]byte{
		psyqtest.ExprSymbol(3),
		psyqtest.ExprSub(psyqtest.ExprSectBase(1), psyqtest.ExprConst(4)),
		psyqtest.ExprAdd(psyqtest.ExprSymbol(3), psyqtest.ExprConst(4)),
		psyqtest.ExprAdd(psyqtest.ExprSectBase(1), psyqtest.ExprSectBase(1)),
		psyqtest.ExprAdd(psyqtest.ExprSectEnd(1), psyqtest.ExprConst(4)),
	}

	for _, e := range exprs {
		reg := parse(t, psyqtest.NewObject().
			Section(1, 0, 8, ".text").
			Switch(1).
			Words(0).
			Patch(16, 0, e).
			End())
		text, _ := reg.Lookup(1)
		before := text.Patches()[0].Expr

		FixPatches(reg)

		if after := text.Patches()[0].Expr; after != before {
			t.Errorf("%v was rewritten to %v", before, after)
		}
		if len(text.Symbols()) != 0 {
			t.Errorf("%v synthesized a symbol", before)
		}
	}
}

func TestResolveBranches(t *testing.T) {
	reg := parse(t, psyqtest.NewObject().
		Section(1, 0, 8, ".text").
		Switch(1).
		Words(
			0x10400002, // 0x00: beq v0,zero,+2 -> 0x0C
			0x00000000,
			0x1000FFFD, // 0x08: b -3 -> 0x00
			0x00000000,
			0x1440000F, // 0x10: bne far past the end
			0x00000000,
			0x08000000, // 0x18: j, not relative
		).
		Xdef(1, 1, 0, "start").
		End())

	text, _ := reg.Lookup(1)
	ResolveBranches(reg, text)

	if sym := text.SymbolAt(0x0C); sym == nil || sym.Name != "loc_C" {
		t.Errorf("symbol at 0xC = %+v, want loc_C", sym)
	}
	if syms := text.SymbolsAt(0); len(syms) != 1 || syms[0].Name != "start" {
		t.Errorf("symbols at 0 = %+v, want only start", syms)
	}
	if n := len(text.Symbols()); n != 2 {
		t.Errorf("got %d symbols, want 2", n)
	}
}

func TestResolveBranchesTruncatedData(t *testing.T) {
	reg := NewRegistry()
	s := reg.Section(1)
	s.Name = ".text"
	s.Data = []byte{0x01, 0x00, 0x00, 0x10, 0x00, 0x00}
	s.Size = uint32(len(s.Data))

	ResolveBranches(reg, s)

	// b +1 from 0 targets 8, beyond the six bytes of the section
	if n := len(s.Symbols()); n != 0 {
		t.Fatalf("got %d symbols, want 0", n)
	}
}
