// Package mips classifies R3000 code words by their primary opcode fields.
// It decides which bytes of a word a relocation can rewrite and which words
// are PC-relative branches. It does not disassemble.
package mips

import (
	"encoding/binary"
	"fmt"
)

// Class groups opcodes by the field a relocation patches.
type Class uint8

const (
	// ClassPlain words carry no relocatable field.
	ClassPlain Class = iota
	// ClassJump words carry a 26-bit target in their low three bytes.
	ClassJump
	// ClassImmediate words carry a 16-bit immediate in their low two bytes.
	ClassImmediate
)

func (c Class) String() string {
	switch c {
	case ClassPlain:
		return "plain"
	case ClassJump:
		return "jump"
	case ClassImmediate:
		return "imm16"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// MaskedBytes is the number of low-order bytes a patch on a word of this
// class replaces.
func (c Class) MaskedBytes() int {
	switch c {
	case ClassJump:
		return 3
	case ClassImmediate:
		return 2
	}
	return 0
}

// Fields returns bits 31-29 and 28-26 of word.
func Fields(word uint32) (hi, lo uint32) {
	return (word >> 29) & 7, (word >> 26) & 7
}

// Classify returns the class of word. j and jal are jumps; every opcode in
// the immediate arithmetic, load and store rows takes a 16-bit immediate.
// Special, regimm, branches and coprocessor operations are plain.
func Classify(word uint32) Class {
	hi, lo := Fields(word)
	switch hi {
	case 0:
		if lo == 2 || lo == 3 {
			return ClassJump
		}
	case 1, 4, 5, 6, 7:
		return ClassImmediate
	}
	return ClassPlain
}

// IsRelativeBranch reports whether word is a conditional branch with a 16-bit
// word displacement: beq, bne, blez, bgtz, their branch-likely forms, and
// the regimm bltz, bgez, bltzl, bgezl.
func IsRelativeBranch(word uint32) bool {
	hi, lo := Fields(word)
	switch hi {
	case 0:
		switch lo {
		case 1:
			sel := (word >> 19) & 3
			rt := (word >> 16) & 7
			return sel == 0 && rt <= 3
		case 4, 5, 6, 7:
			return true
		}
	case 2:
		return lo >= 4
	}
	return false
}

// BranchTarget returns the offset a branch at pc transfers to. The
// displacement counts words from the delay slot.
func BranchTarget(pc, word uint32) uint32 {
	disp := int32(int16(word)) << 2
	return pc + 4 + uint32(disp)
}

// Word decodes the little-endian word at the start of b.
func Word(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
