// Package syscalls builds function-start patterns for the BIOS call stubs
// of the console runtime. Each stub loads the call table address into t2,
// jumps to it and loads the function number into t1 in the delay slot.
package syscalls

import (
	"bufio"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Entry is one line of a stub table: NAME=(TT:FF).
type Entry struct {
	Name     string
	Table    uint8
	Function uint8
}

var lineRE = regexp.MustCompile(`^(\w+)=\(([0-9A-F]{2}):([0-9A-F]{2})\)$`)

// ParseTable reads stub table entries. Lines that are not entries are
// skipped.
func ParseTable(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := lineRE.FindStringSubmatch(strings.TrimRight(sc.Text(), "\r"))
		if m == nil {
			continue
		}
		table, _ := strconv.ParseUint(m[2], 16, 8)
		fn, _ := strconv.ParseUint(m[3], 16, 8)
		entries = append(entries, Entry{Name: m[1], Table: uint8(table), Function: uint8(fn)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stub table: %w", err)
	}
	return entries, nil
}

const (
	addiuT2 = 0x240A0000 // addiu t2,zero,imm
	jrT2    = 0x01400008 // jr t2
	addiuT1 = 0x24090000 // addiu t1,zero,imm
)

// Stub returns the little-endian machine code of e's stub.
func (e Entry) Stub() []byte {
	b := make([]byte, 0, 12)
	b = binary.LittleEndian.AppendUint32(b, addiuT2|uint32(e.Table))
	b = binary.LittleEndian.AppendUint32(b, jrT2)
	b = binary.LittleEndian.AppendUint32(b, addiuT1|uint32(e.Function))
	return b
}

type patternList struct {
	XMLName  xml.Name  `xml:"patternlist"`
	Patterns []pattern `xml:"pattern"`
}

type pattern struct {
	Data      string    `xml:"data"`
	FuncStart funcStart `xml:"funcstart"`
}

type funcStart struct {
	Label     string `xml:"label,attr"`
	ValidCode string `xml:"validcode,attr"`
}

func hexList(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("0x%02x", v)
	}
	return strings.Join(parts, " ")
}

// WritePatterns writes a pattern list with one function-start pattern per
// entry.
func WritePatterns(w io.Writer, entries []Entry) error {
	list := patternList{Patterns: make([]pattern, 0, len(entries))}
	for _, e := range entries {
		list.Patterns = append(list.Patterns, pattern{
			Data:      hexList(e.Stub()),
			FuncStart: funcStart{Label: e.Name, ValidCode: "function"},
		})
	}
	slog.Debug("Writing stub patterns", "count", len(entries))

	out, err := xml.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal patterns: %w", err)
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("write patterns: %w", err)
	}
	return nil
}
