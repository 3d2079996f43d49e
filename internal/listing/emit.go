// Package listing renders parsed objects as annotated byte dumps: a banner
// per object, a label line per symbol and every code byte as a two-digit hex
// token, with relocated fields replaced by "??".
package listing

import (
	"bytes"
	"fmt"
	"io"

	"objdis/internal/mips"
	"objdis/internal/psyq"
)

const hexDigits = "0123456789ABCDEF"

// Word is one unit of a code section listing. Bytes holds four bytes except
// for a trailing fragment at the end of the section.
type Word struct {
	Offset uint32
	Labels []string
	Bytes  []byte
	Class  mips.Class
	Patch  *psyq.Patch
	// Masked is the number of leading bytes printed as "??".
	Masked int
}

// Value returns the word in host order, or 0 for a trailing fragment.
func (w Word) Value() uint32 {
	if len(w.Bytes) < 4 {
		return 0
	}
	return mips.Word(w.Bytes)
}

// AppendText appends the hex tokens of w to b.
func (w Word) AppendText(b []byte) []byte {
	for i, v := range w.Bytes {
		if i < w.Masked {
			b = append(b, "?? "...)
			continue
		}
		b = append(b, hexDigits[v>>4], hexDigits[v&0xF], ' ')
	}
	return b
}

func (w Word) Text() string {
	return string(w.AppendText(nil))
}

// Words splits a code section into listing words. Labels are attached to the
// word at their offset, most recently declared first. If nothing is declared
// at offset 0 the first word is labelled loc_0.
func Words(s *psyq.Section) []Word {
	labels := make(map[uint32][]string)
	for _, sym := range s.Symbols() {
		labels[sym.Offset] = append(labels[sym.Offset], sym.Name)
	}

	end := min(uint32(len(s.Data)), s.Size)
	out := make([]Word, 0, end/4+1)
	for off := uint32(0); off < end; off += 4 {
		w := Word{Offset: off, Labels: labels[off]}
		if off+4 > end {
			w.Bytes = s.Data[off:end]
			out = append(out, w)
			break
		}
		w.Bytes = s.Data[off : off+4]
		w.Class = mips.Classify(w.Value())
		if w.Patch = s.PatchWithin(off, off+3); w.Patch != nil {
			w.Masked = w.Class.MaskedBytes()
		}
		out = append(out, w)
	}
	if len(out) > 0 && len(out[0].Labels) == 0 {
		out[0].Labels = []string{"loc_0"}
	}
	return out
}

// Emitter writes listings to an underlying writer. The first write error is
// kept and returned by every later call.
type Emitter struct {
	w   io.Writer
	err error
	buf bytes.Buffer
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

func (e *Emitter) Err() error {
	return e.err
}

func (e *Emitter) flush() error {
	if e.err == nil && e.buf.Len() > 0 {
		_, e.err = e.w.Write(e.buf.Bytes())
	}
	e.buf.Reset()
	return e.err
}

// Banner writes the ==NAME== line that opens an object.
func (e *Emitter) Banner(name string) error {
	fmt.Fprintf(&e.buf, "==%s==\n", name)
	return e.flush()
}

// Separator writes the blank lines that follow a library member.
func (e *Emitter) Separator() error {
	e.buf.WriteString("\n\n")
	return e.flush()
}

// Section emits s once. Code sections produce labels and bytes; other
// numbered sections are only marked dumped. Section 0 is never emitted.
func (e *Emitter) Section(s *psyq.Section) error {
	if s.ID == 0 || !s.MarkDumped() {
		return e.err
	}
	if !s.IsCode() {
		return e.err
	}

	var line []byte
	for _, w := range Words(s) {
		for _, l := range w.Labels {
			fmt.Fprintf(&e.buf, "\n%s:\n", l)
		}
		line = w.AppendText(line[:0])
		e.buf.Write(line)
	}
	return e.flush()
}

// Object emits every section of reg in dump order.
func (e *Emitter) Object(reg *psyq.Registry) error {
	for _, s := range reg.DumpOrder() {
		if err := e.Section(s); err != nil {
			return err
		}
	}
	return nil
}
