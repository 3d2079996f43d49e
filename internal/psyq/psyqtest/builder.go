// Package psyqtest builds object and library images in memory for tests.
package psyqtest

import (
	"bytes"
	"encoding/binary"
)

// Object accumulates the chunks of an object file.
type Object struct {
	buf bytes.Buffer
}

// NewObject starts an object with the object magic already written.
func NewObject() *Object {
	o := &Object{}
	o.u32(0x024B4E4C)
	return o
}

func (o *Object) u8(v uint8)   { o.buf.WriteByte(v) }
func (o *Object) u16(v uint16) { o.buf.Write(binary.LittleEndian.AppendUint16(nil, v)) }
func (o *Object) u32(v uint32) { o.buf.Write(binary.LittleEndian.AppendUint32(nil, v)) }

func (o *Object) name(s string) {
	o.u8(uint8(len(s)))
	o.buf.WriteString(s)
}

// Raw appends bytes verbatim.
func (o *Object) Raw(b ...byte) *Object {
	o.buf.Write(b)
	return o
}

func (o *Object) Section(id uint16, group uint8, align uint16, name string) *Object {
	o.u8(16)
	o.u16(id)
	o.u8(group)
	o.u16(align)
	o.name(name)
	return o
}

func (o *Object) Switch(id uint16) *Object {
	o.u8(6)
	o.u16(id)
	return o
}

func (o *Object) Code(data ...byte) *Object {
	o.u8(2)
	o.u16(uint16(len(data)))
	o.buf.Write(data)
	return o
}

// Words appends a code chunk holding the words in storage byte order.
func (o *Object) Words(words ...uint32) *Object {
	var data []byte
	for _, w := range words {
		data = binary.LittleEndian.AppendUint32(data, w)
	}
	return o.Code(data...)
}

func (o *Object) Uninit(size uint32) *Object {
	o.u8(8)
	o.u32(size)
	return o
}

func (o *Object) Patch(typ uint8, off uint16, expr []byte) *Object {
	o.u8(10)
	o.u8(typ)
	o.u16(off)
	o.buf.Write(expr)
	return o
}

func (o *Object) Xdef(number, sect uint16, off uint32, name string) *Object {
	o.u8(12)
	o.u16(number)
	o.u16(sect)
	o.u32(off)
	o.name(name)
	return o
}

func (o *Object) Xref(number uint16, name string) *Object {
	o.u8(14)
	o.u16(number)
	o.name(name)
	return o
}

func (o *Object) Local(sect uint16, off uint32, name string) *Object {
	o.u8(18)
	o.u16(sect)
	o.u32(off)
	o.name(name)
	return o
}

func (o *Object) Filename(number uint16, name string) *Object {
	o.u8(28)
	o.u16(number)
	o.name(name)
	return o
}

func (o *Object) CPU(cpu uint8) *Object {
	o.u8(46)
	o.u8(cpu)
	return o
}

func (o *Object) Xbss(number, sect uint16, size uint32, name string) *Object {
	o.u8(48)
	o.u16(number)
	o.u16(sect)
	o.u32(size)
	o.name(name)
	return o
}

// FunctionStart appends a function start debug record.
func (o *Object) FunctionStart(sect uint16, off uint32, name string) *Object {
	o.u8(74)
	o.u16(sect)
	o.u32(off)
	o.u16(1)  // file
	o.u32(10) // start line
	o.u16(29) // frame register
	o.u32(24) // frame size
	o.u16(31) // return address register
	o.u32(0x80000000)
	o.u32(0xFFFFFFFC)
	o.name(name)
	return o
}

func (o *Object) FunctionEnd(sect uint16, off uint32, line uint32) *Object {
	o.u8(76)
	o.u16(sect)
	o.u32(off)
	o.u32(line)
	return o
}

func (o *Object) BlockStart(sect uint16, off uint32, line uint32) *Object {
	o.u8(78)
	o.u16(sect)
	o.u32(off)
	o.u32(line)
	return o
}

func (o *Object) BlockEnd(sect uint16, off uint32, line uint32) *Object {
	o.u8(80)
	o.u16(sect)
	o.u32(off)
	o.u32(line)
	return o
}

// Def appends a symbol definition record.
func (o *Object) Def(sect uint16, value uint32, class, typ uint16, size uint32, name string) *Object {
	o.u8(82)
	o.u16(sect)
	o.u32(value)
	o.u16(class)
	o.u16(typ)
	o.u32(size)
	o.name(name)
	return o
}

// Def2 appends a symbol definition record with array dimensions and a tag.
func (o *Object) Def2(sect uint16, value uint32, class, typ uint16, size uint32, dims []uint32, tag, name string) *Object {
	o.u8(84)
	o.u16(sect)
	o.u32(value)
	o.u16(class)
	o.u16(typ)
	o.u32(size)
	o.u16(uint16(len(dims)))
	for _, d := range dims {
		o.u32(d)
	}
	o.name(tag)
	o.name(name)
	return o
}

func (o *Object) End() *Object {
	o.u8(0)
	return o
}

func (o *Object) Bytes() []byte {
	return bytes.Clone(o.buf.Bytes())
}

// Expression encoders.

func ExprConst(v uint32) []byte {
	return binary.LittleEndian.AppendUint32([]byte{0x00}, v)
}

func ExprSymbol(n uint16) []byte     { return leaf(0x02, n) }
func ExprSectBase(id uint16) []byte  { return leaf(0x04, id) }
func ExprSectStart(id uint16) []byte { return leaf(0x0C, id) }
func ExprSectEnd(id uint16) []byte   { return leaf(0x16, id) }

func ExprAdd(l, r []byte) []byte    { return node(0x2C, l, r) }
func ExprAddAlt(l, r []byte) []byte { return node(0x36, l, r) }
func ExprSub(l, r []byte) []byte    { return node(0x2E, l, r) }
func ExprMul(l, r []byte) []byte    { return node(0x30, l, r) }
func ExprDiv(l, r []byte) []byte    { return node(0x32, l, r) }

func leaf(tag byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16([]byte{tag}, v)
}

func node(tag byte, l, r []byte) []byte {
	out := []byte{tag}
	out = append(out, l...)
	return append(out, r...)
}

// Member is one object stored in a library.
type Member struct {
	Name string
	Data []byte
	// Aux names are written to the directory of a second-layout library.
	Aux []string
}

// LibraryA builds a first-layout library: fixed records of an 8-byte name,
// date, header size and total size, each followed by the member data.
func LibraryA(members ...Member) []byte {
	var b bytes.Buffer
	b.Write(binary.LittleEndian.AppendUint32(nil, 0x0142494C))
	for _, m := range members {
		name := []byte("        ")
		copy(name, m.Name)
		b.Write(name)
		b.Write(binary.LittleEndian.AppendUint32(nil, 0x5A5A5A5A))
		b.Write(binary.LittleEndian.AppendUint32(nil, 20))
		b.Write(binary.LittleEndian.AppendUint32(nil, uint32(20+len(m.Data))))
		b.Write(m.Data)
	}
	return b.Bytes()
}

// LibraryB builds a second-layout library: member data first, then a
// directory located by the header.
func LibraryB(members ...Member) []byte {
	const header = 12
	var data, dir bytes.Buffer
	for _, m := range members {
		dir.Write(binary.LittleEndian.AppendUint32(nil, uint32(header+data.Len())))
		dir.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(m.Data))))
		dir.Write(binary.LittleEndian.AppendUint32(nil, 0x5A5A5A5A))
		dir.WriteByte(uint8(len(m.Name)))
		dir.WriteString(m.Name)
		dir.WriteByte(0)
		if len(m.Aux) == 0 {
			dir.WriteByte(0)
		} else {
			dir.WriteByte(1)
		}
		for i, aux := range m.Aux {
			dir.Write(binary.LittleEndian.AppendUint16(nil, uint16(i)))
			dir.WriteByte(uint8(len(aux)))
			dir.WriteString(aux)
			dir.WriteByte(0)
			if i == len(m.Aux)-1 {
				dir.WriteByte(0)
			} else {
				dir.WriteByte(1)
			}
		}
		data.Write(m.Data)
	}

	var b bytes.Buffer
	b.Write(binary.LittleEndian.AppendUint32(nil, 0x0242494C))
	b.Write(binary.LittleEndian.AppendUint32(nil, uint32(header+data.Len())))
	b.Write(binary.LittleEndian.AppendUint32(nil, uint32(dir.Len())))
	b.Write(data.Bytes())
	b.Write(dir.Bytes())
	return b.Bytes()
}
