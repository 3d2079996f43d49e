package psyq

import (
	"testing"
)

func TestRegistrySectionGetOrCreate(t *testing.T) {
	reg := NewRegistry()
	a := reg.Section(4)
	b := reg.Section(4)
	if a != b {
		t.Fatal("Section() created a second record for the same id")
	}
	if _, ok := reg.Lookup(5); ok {
		t.Fatal("Lookup() found a section that was never created")
	}
	if n := len(reg.Sections()); n != 1 {
		t.Fatalf("got %d sections, want 1", n)
	}
}

func TestRegistryNextNumber(t *testing.T) {
	reg := NewRegistry()
	for i := uint32(0); i < 3; i++ {
		if n := reg.NextNumber(); n != FirstLocalNumber+i {
			t.Fatalf("NextNumber() = %d, want %d", n, FirstLocalNumber+i)
		}
	}
	if n := NewRegistry().NextNumber(); n != FirstLocalNumber {
		t.Fatalf("fresh registry NextNumber() = %d", n)
	}
}

func TestSectionOrdering(t *testing.T) {
	reg := NewRegistry()
	s := reg.Section(1)
	first := reg.NewSymbol(s, SymLocal)
	first.Offset = 4
	second := reg.NewSymbol(s, SymLocal)
	second.Offset = 4

	if got := s.SymbolAt(4); got != second {
		t.Errorf("SymbolAt() returned the older symbol")
	}
	if syms := s.Symbols(); syms[0] != second || syms[1] != first {
		t.Errorf("Symbols() is not newest first")
	}
	if s.SymbolAt(8) != nil {
		t.Errorf("SymbolAt(8) found a symbol")
	}

	p1 := reg.NewPatch(s, PatchLong)
	p1.Offset = 0
	p2 := reg.NewPatch(s, PatchMipsLo)
	p2.Offset = 6
	if got := s.PatchWithin(4, 7); got != p2 {
		t.Errorf("PatchWithin(4, 7) = %+v", got)
	}
	if got := s.PatchWithin(0, 3); got != p1 {
		t.Errorf("PatchWithin(0, 3) = %+v", got)
	}
	if got := s.PatchWithin(8, 11); got != nil {
		t.Errorf("PatchWithin(8, 11) = %+v", got)
	}
}

func TestMarkDumped(t *testing.T) {
	s := NewRegistry().Section(1)
	if s.Dumped() {
		t.Fatal("new section is dumped")
	}
	if !s.MarkDumped() {
		t.Fatal("first MarkDumped() returned false")
	}
	if s.MarkDumped() {
		t.Fatal("second MarkDumped() returned true")
	}
	if !s.Dumped() {
		t.Fatal("section not dumped")
	}
}

func TestDumpOrder(t *testing.T) {
	reg := NewRegistry()
	for _, sec := range []struct {
		id   uint16
		name string
	}{
		{1, ".rdata"},
		{2, ".text"},
		{3, ".sbss"},
		{0, ""},
		{4, ".data"},
		{5, ".sdata"},
	} {
		reg.Section(sec.id).Name = sec.name
	}

	var got []uint16
	for _, s := range reg.DumpOrder() {
		got = append(got, s.ID)
	}
	want := []uint16{0, 3, 5, 1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("DumpOrder() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DumpOrder() = %v, want %v", got, want)
		}
	}
}

func TestLocalSymbolAt(t *testing.T) {
	reg := NewRegistry()
	s := reg.Section(1)
	s.Name = ".rdata"

	a := reg.LocalSymbolAt(s, 0x1F0, func(off uint32) string { return sectionLabel(s, off) })
	if a.Name != "rdata_1F0" || a.Number != FirstLocalNumber {
		t.Fatalf("symbol = %+v", a)
	}
	b := reg.LocalSymbolAt(s, 0x1F0, branchLabel)
	if a != b {
		t.Fatal("LocalSymbolAt() synthesized a duplicate")
	}
	if c := reg.LocalSymbolAt(s, 0x20, branchLabel); c.Name != "loc_20" || c.Number != FirstLocalNumber+1 {
		t.Fatalf("symbol = %+v", c)
	}
}

func TestSectionKinds(t *testing.T) {
	tests := []struct {
		name  string
		code  bool
		small bool
	}{
		{".text", true, false},
		{".ctors", true, false},
		{".dtors", true, false},
		{".sdata", false, true},
		{".sbss", false, true},
		{".data", false, false},
		{"text", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Section{Name: tt.name}
			if s.IsCode() != tt.code || s.IsSmall() != tt.small {
				t.Fatalf("IsCode() = %v, IsSmall() = %v", s.IsCode(), s.IsSmall())
			}
		})
	}
}
