package cmd

import (
	"errors"
	"strings"
	"testing"

	"objdis/internal/dump"
	"objdis/internal/psyq"
	"objdis/internal/psyq/psyqtest"
	"objdis/internal/ui/colorize"
)

func loadFixture(t *testing.T, data []byte) []loadedObject {
	t.Helper()
	path := writeFixture(t, "FIX.LIB", data)
	msg, ok := loadCmd(path)().(loadedMsg)
	if !ok {
		t.Fatal("loadCmd() did not return a loadedMsg")
	}
	if msg.err != nil {
		t.Fatalf("loadCmd() error = %v", msg.err)
	}
	return msg.objects
}

func TestLoadObject(t *testing.T) {
	data := psyqtest.NewObject().
		Section(1, 0, 8, ".text").
		Section(2, 0, 8, ".data").
		Section(3, 0, 8, ".ctors").
		Switch(1).Words(0x10000000, 0).
		Switch(2).Words(0xDEADBEEF).
		Switch(3).Words(0).
		End().
		Bytes()

	path := writeFixture(t, "SECT.OBJ", data)
	var objects []loadedObject
	err := dump.Each(path, func(name string, reg *psyq.Registry) error {
		objects = append(objects, loadObject(name, reg))
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if len(objects) != 1 {
		t.Fatalf("loaded %d objects, want 1", len(objects))
	}

	var names []string
	for _, s := range objects[0].sections {
		names = append(names, s.name)
	}
	if got := strings.Join(names, ","); got != ".text,.ctors" {
		t.Errorf("sections = %s, want .text,.ctors", got)
	}
}

func TestRenderWords(t *testing.T) {
	objects := loadFixture(t, psyqtest.LibraryB(
		psyqtest.Member{Name: "A.OBJ", Data: fixtureObject()},
		psyqtest.Member{Name: "B.OBJ", Data: textOnly(0x24420001)},
	))

	body, items := renderWords(objects, false, 10)
	lines := strings.Split(colorize.StripANSI(body), "\n")

	if len(items) != 2 {
		t.Fatalf("got %d label items, want 2", len(items))
	}
	for _, it := range items {
		if got := lines[it.line-10]; got != it.name+":" {
			t.Errorf("line %d = %q, want label %s", it.line, got, it.name)
		}
	}
	if items[0].object != "A.OBJ" || items[0].name != "main" || items[1].name != "loc_0" {
		t.Errorf("items = %+v", items)
	}

	if got, want := lines[items[0].line-10+1], "  00000000  ?? ?? ?? 0C  ; long jump $00000000"; got != want {
		t.Errorf("word line = %q, want %q", got, want)
	}
	if got, want := lines[items[1].line-10+1], "  00000000  01 00 42 24  ; imm16 $0001"; got != want {
		t.Errorf("word line = %q, want %q", got, want)
	}
}

func textOnly(words ...uint32) []byte {
	return psyqtest.NewObject().Section(1, 0, 8, ".text").Switch(1).Words(words...).End().Bytes()
}

func TestWordLineAltGTE(t *testing.T) {
	// mtc2 v0,$8 moves into the IR0 data register.
	objects := loadFixture(t, textOnly(0x48824000))
	w := objects[0].sections[0].words[0]

	std := colorize.StripANSI(wordLine(w, false))
	alt := colorize.StripANSI(wordLine(w, true))
	if !strings.Contains(std, "gte data") || std == alt {
		t.Errorf("wordLine() std = %q alt = %q", std, alt)
	}
}

func TestBrowseKeys(t *testing.T) {
	m := newBrowseModel("FIX.OBJ", false)

	if next, handled, _ := m.handleKey("tab"); !handled || next.mode != viewListing {
		t.Errorf("tab without labels switched to %v", next.mode)
	}

	objects := loadFixture(t, fixtureObject())
	updated, _ := m.Update(loadedMsg{objects: objects})
	m = updated.(browseModel)
	if m.loading || len(m.items) != 1 {
		t.Fatalf("after load: loading=%v items=%d", m.loading, len(m.items))
	}

	next, handled, quit := m.handleKey("tab")
	if !handled || quit || next.mode != viewLabels {
		t.Fatalf("tab: mode=%v handled=%v quit=%v", next.mode, handled, quit)
	}
	next, _, _ = next.handleKey("enter")
	if next.mode != viewListing {
		t.Errorf("enter left mode %v", next.mode)
	}

	next, _, _ = next.handleKey("a")
	if !next.alt {
		t.Error("a did not switch GTE names")
	}
	if !strings.Contains(next.View(), "alternate") {
		t.Error("menu does not show the alternate GTE names")
	}

	if _, handled, quit := next.handleKey("q"); !handled || !quit {
		t.Error("q did not quit")
	}
	if _, handled, _ := next.handleKey("x"); handled {
		t.Error("x was handled")
	}
}

func TestBrowseLoadError(t *testing.T) {
	m := newBrowseModel("BAD.OBJ", false)
	updated, _ := m.Update(loadedMsg{err: errors.New("boom")})
	m = updated.(browseModel)
	if !strings.Contains(colorize.StripANSI(m.viewport.View()), "error: boom") {
		t.Errorf("view does not report the load error:\n%s", m.viewport.View())
	}
}
