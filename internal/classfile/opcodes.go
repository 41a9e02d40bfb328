package classfile

import "fmt"

// JVM opcodes, see https://docs.oracle.com/javase/specs/jvms/se21/html/jvms-6.html
const (
	NOP             = 0x00
	ACONST_NULL     = 0x01
	ICONST_M1       = 0x02
	ICONST_0        = 0x03
	ICONST_1        = 0x04
	ICONST_2        = 0x05
	ICONST_3        = 0x06
	ICONST_4        = 0x07
	ICONST_5        = 0x08
	LCONST_0        = 0x09
	LCONST_1        = 0x0a
	FCONST_0        = 0x0b
	FCONST_1        = 0x0c
	FCONST_2        = 0x0d
	DCONST_0        = 0x0e
	DCONST_1        = 0x0f
	BIPUSH          = 0x10
	SIPUSH          = 0x11
	LDC             = 0x12
	LDC_W           = 0x13
	LDC2_W          = 0x14
	ILOAD           = 0x15
	LLOAD           = 0x16
	FLOAD           = 0x17
	DLOAD           = 0x18
	ALOAD           = 0x19
	ILOAD_0         = 0x1a
	ALOAD_3         = 0x2d
	IALOAD          = 0x2e
	SALOAD          = 0x35
	ISTORE          = 0x36
	LSTORE          = 0x37
	FSTORE          = 0x38
	DSTORE          = 0x39
	ASTORE          = 0x3a
	ISTORE_0        = 0x3b
	ASTORE_3        = 0x4e
	IASTORE         = 0x4f
	POP             = 0x57
	DUP             = 0x59
	IADD            = 0x60
	IINC            = 0x84
	IFEQ            = 0x99
	IF_ACMPNE       = 0xa6
	GOTO            = 0xa7
	JSR             = 0xa8
	RET             = 0xa9
	TABLESWITCH     = 0xaa
	LOOKUPSWITCH    = 0xab
	IRETURN         = 0xac
	ARETURN         = 0xb0
	RETURN          = 0xb1
	GETSTATIC       = 0xb2
	PUTSTATIC       = 0xb3
	GETFIELD        = 0xb4
	PUTFIELD        = 0xb5
	INVOKEVIRTUAL   = 0xb6
	INVOKESPECIAL   = 0xb7
	INVOKESTATIC    = 0xb8
	INVOKEINTERFACE = 0xb9
	INVOKEDYNAMIC   = 0xba
	NEW             = 0xbb
	NEWARRAY        = 0xbc
	ANEWARRAY       = 0xbd
	ARRAYLENGTH     = 0xbe
	ATHROW          = 0xbf
	CHECKCAST       = 0xc0
	INSTANCEOF      = 0xc1
	MONITORENTER    = 0xc2
	MONITOREXIT     = 0xc3
	WIDE            = 0xc4
	MULTIANEWARRAY  = 0xc5
	IFNULL          = 0xc6
	IFNONNULL       = 0xc7
	GOTO_W          = 0xc8
	JSR_W           = 0xc9
)

// PseudoOpcode marks instructions that do not exist in the code array,
// such as line numbers recovered from the LineNumberTable.
const PseudoOpcode = -1

var opcodeNames = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4",
	"iconst_5", "lconst_0", "lconst_1", "fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1",
	"bipush", "sipush", "ldc", "ldc_w", "ldc2_w", "iload", "lload", "fload",
	"dload", "aload", "iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1",
	"lload_2", "lload_3", "fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1",
	"dload_2", "dload_3", "aload_0", "aload_1", "aload_2", "aload_3", "iaload", "laload",
	"faload", "daload", "aaload", "baload", "caload", "saload", "istore", "lstore",
	"fstore", "dstore", "astore", "istore_0", "istore_1", "istore_2", "istore_3", "lstore_0",
	"lstore_1", "lstore_2", "lstore_3", "fstore_0", "fstore_1", "fstore_2", "fstore_3", "dstore_0",
	"dstore_1", "dstore_2", "dstore_3", "astore_0", "astore_1", "astore_2", "astore_3", "iastore",
	"lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore", "pop",
	"pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land",
	"ior", "lor", "ixor", "lxor", "iinc", "i2l", "i2f", "i2d",
	"l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l",
	"d2f", "i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl",
	"dcmpg", "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle", "if_icmpeq",
	"if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne", "goto",
	"jsr", "ret", "tableswitch", "lookupswitch", "ireturn", "lreturn", "freturn", "dreturn",
	"areturn", "return", "getstatic", "putstatic", "getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new", "newarray", "anewarray", "arraylength", "athrow",
	"checkcast", "instanceof", "monitorenter", "monitorexit", "wide", "multianewarray", "ifnull", "ifnonnull",
	"goto_w", "jsr_w",
}

// OpcodeName returns the mnemonic of an opcode
func OpcodeName(op int) string {
	if op < 0 {
		return "pseudo"
	}
	if op < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode_0x%02x", op)
}

// isLoadShortForm reports xload_<n> opcodes (iload_0 .. aload_3)
func isLoadShortForm(op int) bool {
	return op >= ILOAD_0 && op <= ALOAD_3
}

// isStoreShortForm reports xstore_<n> opcodes (istore_0 .. astore_3)
func isStoreShortForm(op int) bool {
	return op >= ISTORE_0 && op <= ASTORE_3
}

// isJump reports branch instructions carrying a signed 16-bit offset
func isJump(op int) bool {
	return (op >= IFEQ && op <= JSR) || op == IFNULL || op == IFNONNULL
}
