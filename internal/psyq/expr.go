package psyq

import (
	"fmt"
	"strconv"
	"strings"

	"objdis/internal/binio"
)

// Op is the operator of an expression node.
type Op uint8

const (
	OpConstant Op = iota
	OpSectBase
	OpSectEnd
	OpSectSize
	OpSymbol
	OpAdd
	OpSub
	OpMul
	OpDiv
)

var opNames = [...]string{
	OpConstant: "constant",
	OpSectBase: "sectbase",
	OpSectEnd:  "sectend",
	OpSectSize: "sectsize",
	OpSymbol:   "symbol",
	OpAdd:      "add",
	OpSub:      "sub",
	OpMul:      "mul",
	OpDiv:      "div",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Binary reports whether the operator takes two operands.
func (o Op) Binary() bool {
	return o >= OpAdd
}

// Expr is a relocation expression. Leaf nodes carry Value (a literal, a
// section id or a symbol number); binary nodes carry Left and Right.
// Expressions are never modified after construction.
type Expr struct {
	Op    Op
	Value int32
	Left  *Expr
	Right *Expr
}

func Const(v int32) *Expr            { return &Expr{Op: OpConstant, Value: v} }
func SectBase(id uint16) *Expr       { return &Expr{Op: OpSectBase, Value: int32(id)} }
func SectEnd(id uint16) *Expr        { return &Expr{Op: OpSectEnd, Value: int32(id)} }
func SectSize(id uint16) *Expr       { return &Expr{Op: OpSectSize, Value: int32(id)} }
func SymbolAddr(n uint32) *Expr      { return &Expr{Op: OpSymbol, Value: int32(n)} }
func Add(l, r *Expr) *Expr           { return &Expr{Op: OpAdd, Left: l, Right: r} }
func Sub(l, r *Expr) *Expr           { return &Expr{Op: OpSub, Left: l, Right: r} }
func Mul(l, r *Expr) *Expr           { return &Expr{Op: OpMul, Left: l, Right: r} }
func Div(l, r *Expr) *Expr           { return &Expr{Op: OpDiv, Left: l, Right: r} }
func binary(op Op, l, r *Expr) *Expr { return &Expr{Op: op, Left: l, Right: r} }

// SectStart is sectend(id) - sectsize(id); the format has no primitive for it.
func SectStart(id uint16) *Expr {
	return Sub(SectEnd(id), SectSize(id))
}

// Equal reports whether two trees have the same operators and values.
func (e *Expr) Equal(o *Expr) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Op != o.Op {
		return false
	}
	if e.Op.Binary() {
		return e.Left.Equal(o.Left) && e.Right.Equal(o.Right)
	}
	return e.Value == o.Value
}

// Expression tags as stored in patch records.
const (
	tagConstant  = 0x00
	tagSymbol    = 0x02
	tagSectBase  = 0x04
	tagSectStart = 0x0C
	tagSectEnd   = 0x16
	tagAdd       = 0x2C
	tagSub       = 0x2E
	tagMul       = 0x30
	tagDiv       = 0x32
	tagAddAlt    = 0x36
)

// ReadExpr decodes one prefix-encoded expression.
func ReadExpr(r *binio.Reader) (*Expr, error) {
	start := r.Offset()
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagConstant:
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		return Const(int32(v)), nil
	case tagSymbol, tagSectBase, tagSectStart, tagSectEnd:
		id, err := r.U16()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagSymbol:
			return SymbolAddr(uint32(id)), nil
		case tagSectBase:
			return SectBase(id), nil
		case tagSectStart:
			return SectStart(id), nil
		default:
			return SectEnd(id), nil
		}
	case tagAdd, tagAddAlt, tagSub, tagMul, tagDiv:
		left, err := ReadExpr(r)
		if err != nil {
			return nil, err
		}
		right, err := ReadExpr(r)
		if err != nil {
			return nil, err
		}
		var op Op
		switch tag {
		case tagSub:
			op = OpSub
		case tagMul:
			op = OpMul
		case tagDiv:
			op = OpDiv
		default:
			op = OpAdd
		}
		return binary(op, left, right), nil
	}
	return nil, formatErr(ErrUnsupportedOperator, start, "tag 0x%02X", tag)
}

// Namer resolves the ids stored in leaf nodes for display.
type Namer interface {
	SectionName(id uint16) string
	SymbolName(number uint32) string
}

// Format renders e as fully parenthesised infix text.
func (e *Expr) Format(n Namer) string {
	var sb strings.Builder
	e.format(&sb, n)
	return sb.String()
}

func (e *Expr) String() string {
	return e.Format(nil)
}

func (e *Expr) format(sb *strings.Builder, n Namer) {
	switch e.Op {
	case OpConstant:
		fmt.Fprintf(sb, "$%X", uint32(e.Value))
	case OpSectBase, OpSectEnd, OpSectSize:
		fmt.Fprintf(sb, "%s(%s)", e.Op, sectionName(n, uint16(e.Value)))
	case OpSymbol:
		if n != nil {
			if name := n.SymbolName(uint32(e.Value)); name != "" {
				sb.WriteString(name)
				return
			}
		}
		fmt.Fprintf(sb, "sym%d", uint32(e.Value))
	default:
		sb.WriteByte('(')
		e.Left.format(sb, n)
		sb.WriteByte(opSymbols[e.Op])
		e.Right.format(sb, n)
		sb.WriteByte(')')
	}
}

var opSymbols = map[Op]byte{OpAdd: '+', OpSub: '-', OpMul: '*', OpDiv: '/'}

func sectionName(n Namer, id uint16) string {
	if n != nil {
		if name := n.SectionName(id); name != "" {
			return name
		}
	}
	return fmt.Sprintf("sect%d", id)
}

// ParseExpr parses the infix text produced by Format for trees built only
// from constants and arithmetic operators. Constants are $HEX or decimal.
func ParseExpr(s string) (*Expr, error) {
	p := &exprParser{s: s}
	e, err := p.sum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("unexpected %q at %d", p.s[p.pos:], p.pos)
	}
	return e, nil
}

type exprParser struct {
	s   string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

func (p *exprParser) sum() (*Expr, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for {
		c := p.peek()
		if c != '+' && c != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		if c == '+' {
			left = Add(left, right)
		} else {
			left = Sub(left, right)
		}
	}
}

func (p *exprParser) product() (*Expr, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	for {
		c := p.peek()
		if c != '*' && c != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		if c == '*' {
			left = Mul(left, right)
		} else {
			left = Div(left, right)
		}
	}
}

func (p *exprParser) operand() (*Expr, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		e, err := p.sum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("missing ')' at %d", p.pos)
		}
		p.pos++
		return e, nil
	case c == '$':
		p.pos++
		return p.number(16)
	case c >= '0' && c <= '9':
		return p.number(10)
	case c == 0:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at %d", c, p.pos)
	}
}

func (p *exprParser) number(base int) (*Expr, error) {
	start := p.pos
	for p.pos < len(p.s) && isDigit(p.s[p.pos], base) {
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("expected number at %d", start)
	}
	v, err := strconv.ParseUint(p.s[start:p.pos], base, 32)
	if err != nil {
		return nil, fmt.Errorf("bad constant %q: %w", p.s[start:p.pos], err)
	}
	return Const(int32(uint32(v))), nil
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16 && (c >= 'A' && c <= 'F' || c >= 'a' && c <= 'f'):
		return true
	}
	return false
}
