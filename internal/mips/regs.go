package mips

import "fmt"

var gprNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "s8", "ra",
}

var cop0Names = [32]string{
	"inx", "rand", "tlblo", "bpc", "ctxt", "bda", "pidmask", "dcic",
	"badvaddr", "bdam", "tlbhi", "bpcm", "sr", "cause", "epc", "prid",
	"erreg", "r17", "r18", "r19", "r20", "r21", "r22", "r23",
	"r24", "r25", "r26", "r27", "r28", "r29", "r30", "r31",
}

// GTE register names as the Psy-Q assembler spells them.
var psyqDataNames = [32]string{
	"vxy0", "vz0", "vxy1", "vz1", "vxy2", "vz2", "rgb", "otz",
	"ir0", "ir1", "ir2", "ir3", "sxy0", "sxy1", "sxy2", "sxyp",
	"sz0", "sz1", "sz2", "sz3", "rgb0", "rgb1", "rgb2", "r23",
	"mac0", "mac1", "mac2", "mac3", "irgb", "orgb", "lzcs", "lzcr",
}

var psyqControlNames = [32]string{
	"r11r12", "r13r21", "r22r23", "r31r32", "r33", "trx", "try", "trz",
	"l11l12", "l13l21", "l22l23", "l31l32", "l33", "rbk", "gbk", "bbk",
	"lr1lr2", "lr3lg1", "lg2lg3", "lb1lb2", "lb3", "rfc", "gfc", "bfc",
	"ofx", "ofy", "h", "dqa", "dqb", "zsf3", "zsf4", "flag",
}

// GTE register names as the CodeWarrior assembler spells them.
var cwDataNames = [32]string{
	"C2_VXY0", "C2_VZ0", "C2_VXY1", "C2_VZ1", "C2_VXY2", "C2_VZ2", "C2_RGB", "C2_OTZ",
	"C2_IR0", "C2_IR1", "C2_IR2", "C2_IR3", "C2_SXY0", "C2_SXY1", "C2_SXY2", "C2_SXYP",
	"C2_SZ0", "C2_SZ1", "C2_SZ2", "C2_SZ3", "C2_RGB0", "C2_RGB1", "C2_RGB2", "r23",
	"C2_MAC0", "C2_MAC1", "C2_MAC2", "C2_MAC3", "C2_IRGB", "C2_ORGB", "C2_LZCS", "C2_LZCR",
}

var cwControlNames = [32]string{
	"C2_R11R12", "C2_R13R21", "C2_R22R23", "C2_R31R32", "C2_R33", "C2_TRX", "C2_TRY", "C2_TRZ",
	"C2_L11L12", "C2_L13L21", "C2_L22L23", "C2_L31L32", "C2_L33", "C2_RBK", "C2_GBK", "C2_BBK",
	"C2_LR1LR2", "C2_LR3LG1", "C2_LG2LG3", "C2_LB1LB2", "C2_LB3", "C2_RFC", "C2_GFC", "C2_BFC",
	"C2_OFX", "C2_OFY", "C2_H", "C2_DQA", "C2_DQB", "C2_ZSF3", "C2_ZSF4", "C2_FLAG",
}

// Cop2DataNames returns the GTE data register names; alt selects the
// CodeWarrior spelling.
func Cop2DataNames(alt bool) [32]string {
	if alt {
		return cwDataNames
	}
	return psyqDataNames
}

// Cop2ControlNames returns the GTE control register names.
func Cop2ControlNames(alt bool) [32]string {
	if alt {
		return cwControlNames
	}
	return psyqControlNames
}

const (
	opCop0 = 0x10
	opCop2 = 0x12
	opLwc2 = 0x32
	opSwc2 = 0x3A
)

// Annotate describes the fields of word that matter when reading a dump:
// its class, the displacement of a branch, or the coprocessor register a
// move touches. It never names the operation.
func Annotate(word uint32, alt bool) string {
	op := word >> 26
	rs := (word >> 21) & 31
	rt := (word >> 16) & 31
	rd := (word >> 11) & 31

	switch {
	case IsRelativeBranch(word):
		return fmt.Sprintf("branch *%+d", int32(int16(word))<<2)
	case op == opCop2 && rs&0x10 != 0:
		return fmt.Sprintf("gte command $%07X", word&0x1FFFFFF)
	case op == opCop2 && (rs == 0 || rs == 4):
		return fmt.Sprintf("gte data %s <> %s", Cop2DataNames(alt)[rd], gprNames[rt])
	case op == opCop2 && (rs == 2 || rs == 6):
		return fmt.Sprintf("gte control %s <> %s", Cop2ControlNames(alt)[rd], gprNames[rt])
	case op == opLwc2 || op == opSwc2:
		return fmt.Sprintf("gte data %s <> %d(%s)", Cop2DataNames(alt)[rt], int16(word), gprNames[rs])
	case op == opCop0 && (rs == 0 || rs == 4):
		return fmt.Sprintf("cop0 %s <> %s", cop0Names[rd], gprNames[rt])
	}

	switch Classify(word) {
	case ClassJump:
		return fmt.Sprintf("jump $%08X", (word&0x03FFFFFF)<<2)
	case ClassImmediate:
		return fmt.Sprintf("imm16 $%04X", word&0xFFFF)
	}
	return ""
}
