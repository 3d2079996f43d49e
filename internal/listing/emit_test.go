package listing

import (
	"bytes"
	"errors"
	"testing"

	"objdis/internal/psyq"
	"objdis/internal/psyq/psyqtest"
)

func parseObject(t *testing.T, o *psyqtest.Object) *psyq.Registry {
	t.Helper()
	reg, err := psyq.Parse(bytes.NewReader(o.Bytes()))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	psyq.FixPatches(reg)
	return reg
}

func render(t *testing.T, reg *psyq.Registry) string {
	t.Helper()
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	if err := e.Banner("TEST.OBJ"); err != nil {
		t.Fatalf("Banner() error = %v", err)
	}
	if err := e.Object(reg); err != nil {
		t.Fatalf("Object() error = %v", err)
	}
	return buf.String()
}

func TestEmitObject(t *testing.T) {
	tests := []struct {
		name string
		obj  *psyqtest.Object
		want string
	}{
		{
			name: "single zero word",
			obj:  psyqtest.NewObject().Section(1, 0, 8, ".text").Switch(1).Words(0).End(),
			want: "==TEST.OBJ==\n\nloc_0:\n00 00 00 00 ",
		},
		{
			name: "patched jump and immediate",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Switch(1).
				Words(0x0C000010, 0x3C048000, 0x00000000).
				Xdef(1, 1, 0, "main").
				Patch(74, 0, psyqtest.ExprSymbol(2)).
				Patch(82, 4, psyqtest.ExprSymbol(2)).
				Xref(2, "callee").
				End(),
			want: "==TEST.OBJ==\n\nmain:\n?? ?? ?? 0C ?? ?? 04 3C 00 00 00 00 ",
		},
		{
			name: "unpatched words are literal",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Switch(1).
				Words(0x0C000010, 0x3C048000).
				End(),
			want: "==TEST.OBJ==\n\nloc_0:\n10 00 00 0C 00 80 04 3C ",
		},
		{
			name: "patch on a plain word",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Switch(1).
				Words(0x00000000, 0x10400001).
				Patch(16, 0, psyqtest.ExprConst(0)).
				Patch(16, 6, psyqtest.ExprConst(0)).
				End(),
			want: "==TEST.OBJ==\n\nloc_0:\n00 00 00 00 01 00 40 10 ",
		},
		{
			name: "labels inside the section",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Switch(1).
				Words(1, 2, 3).
				Local(1, 4, "first").
				Local(1, 4, "second").
				End(),
			want: "==TEST.OBJ==\n\nloc_0:\n01 00 00 00 \nsecond:\n\nfirst:\n02 00 00 00 03 00 00 00 ",
		},
		{
			name: "data sections are silent",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".data").
				Section(2, 0, 8, ".rdata").
				Switch(1).
				Words(0xDEADBEEF).
				Switch(2).
				Code('a', 'b', 0, 0).
				End(),
			want: "==TEST.OBJ==\n",
		},
		{
			name: "small data before code",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Section(2, 0, 8, ".ctors").
				Section(3, 0, 8, ".sdata").
				Switch(2).
				Words(0xAABBCCDD).
				Switch(1).
				Words(0x11223344).
				Switch(3).
				Words(0x55667788).
				End(),
			want: "==TEST.OBJ==\n\nloc_0:\n44 33 22 11 \nloc_0:\nDD CC BB AA ",
		},
		{
			name: "trailing fragment",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Switch(1).
				Code(1, 2, 3, 4, 5, 6).
				End(),
			want: "==TEST.OBJ==\n\nloc_0:\n01 02 03 04 05 06 ",
		},
		{
			name: "uninitialized tail is not listed",
			obj: psyqtest.NewObject().
				Section(1, 0, 8, ".text").
				Switch(1).
				Words(7).
				Uninit(8).
				End(),
			want: "==TEST.OBJ==\n\nloc_0:\n07 00 00 00 ",
		},
		{
			name: "empty code section",
			obj:  psyqtest.NewObject().Section(1, 0, 8, ".text").End(),
			want: "==TEST.OBJ==\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, parseObject(t, tt.obj))
			if got != tt.want {
				t.Fatalf("listing mismatch\ngot:  %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestEmitFixedPatchLabels(t *testing.T) {
	reg := parseObject(t, psyqtest.NewObject().
		Section(1, 0, 8, ".text").
		Switch(1).
		Words(0x0C000000, 0, 0x03E00008, 0).
		Patch(74, 0, psyqtest.ExprAdd(psyqtest.ExprSectBase(1), psyqtest.ExprConst(8))).
		End())

	want := "==TEST.OBJ==\n\nloc_0:\n?? ?? ?? 0C 00 00 00 00 \ntext_8:\n08 00 E0 03 00 00 00 00 "
	if got := render(t, reg); got != want {
		t.Fatalf("listing mismatch\ngot:  %q\nwant: %q", got, want)
	}
}

func TestEmitSectionOnce(t *testing.T) {
	reg := parseObject(t, psyqtest.NewObject().
		Section(1, 0, 8, ".text").
		Section(2, 0, 8, ".bss").
		Switch(1).
		Words(0).
		End())
	text, _ := reg.Lookup(1)
	bss, _ := reg.Lookup(2)

	var buf bytes.Buffer
	e := NewEmitter(&buf)
	if err := e.Section(text); err != nil {
		t.Fatal(err)
	}
	n := buf.Len()
	if err := e.Section(text); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != n {
		t.Fatalf("second Section() wrote %q", buf.String()[n:])
	}
	if !text.Dumped() {
		t.Fatal(".text not marked dumped")
	}
	if err := e.Section(bss); err != nil {
		t.Fatal(err)
	}
	if !bss.Dumped() || buf.Len() != n {
		t.Fatal(".bss was not silently marked dumped")
	}
}

type failWriter struct{ calls int }

var errWrite = errors.New("disk full")

func (f *failWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errWrite
}

func TestEmitterStickyError(t *testing.T) {
	fw := &failWriter{}
	e := NewEmitter(fw)
	if err := e.Banner("A.OBJ"); !errors.Is(err, errWrite) {
		t.Fatalf("Banner() error = %v", err)
	}
	if err := e.Separator(); !errors.Is(err, errWrite) {
		t.Fatalf("Separator() error = %v", err)
	}
	if fw.calls != 1 {
		t.Fatalf("writer called %d times after failing", fw.calls)
	}
	if !errors.Is(e.Err(), errWrite) {
		t.Fatalf("Err() = %v", e.Err())
	}
}

func TestWords(t *testing.T) {
	reg := parseObject(t, psyqtest.NewObject().
		Section(1, 0, 8, ".text").
		Switch(1).
		Words(0x27BDFFE8, 0x08000004).
		Patch(82, 2, psyqtest.ExprConst(0)).
		End())
	text, _ := reg.Lookup(1)

	words := Words(text)
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if w := words[0]; w.Masked != 2 || w.Patch == nil || w.Value() != 0x27BDFFE8 || w.Labels[0] != "loc_0" {
		t.Errorf("word 0 = %+v", w)
	}
	if w := words[1]; w.Masked != 0 || w.Patch != nil || len(w.Labels) != 0 {
		t.Errorf("word 1 = %+v", w)
	}
	if got := words[0].Text(); got != "?? ?? BD 27 " {
		t.Errorf("Text() = %q", got)
	}
}
