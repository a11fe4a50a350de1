package bytecode

import "fmt"

// Opcode is a JVM instruction opcode. The low byte is the opcode as it
// appears in a class file; wide forms of the local variable instructions
// carry the wide prefix in the high byte (see Wide).
type Opcode uint16

// 0x00 range - constants.
const (
	NOP         Opcode = 0x00
	ACONST_NULL Opcode = 0x01
	ICONST_M1   Opcode = 0x02
	ICONST_0    Opcode = 0x03
	ICONST_1    Opcode = 0x04
	ICONST_2    Opcode = 0x05
	ICONST_3    Opcode = 0x06
	ICONST_4    Opcode = 0x07
	ICONST_5    Opcode = 0x08
	LCONST_0    Opcode = 0x09
	LCONST_1    Opcode = 0x0a
	FCONST_0    Opcode = 0x0b
	FCONST_1    Opcode = 0x0c
	FCONST_2    Opcode = 0x0d
	DCONST_0    Opcode = 0x0e
	DCONST_1    Opcode = 0x0f
	BIPUSH      Opcode = 0x10
	SIPUSH      Opcode = 0x11
	LDC         Opcode = 0x12
	LDC_W       Opcode = 0x13
	LDC2_W      Opcode = 0x14
)

// 0x15 range - loads.
const (
	ILOAD   Opcode = 0x15
	LLOAD   Opcode = 0x16
	FLOAD   Opcode = 0x17
	DLOAD   Opcode = 0x18
	ALOAD   Opcode = 0x19
	ILOAD_0 Opcode = 0x1a
	ILOAD_1 Opcode = 0x1b
	ILOAD_2 Opcode = 0x1c
	ILOAD_3 Opcode = 0x1d
	LLOAD_0 Opcode = 0x1e
	LLOAD_1 Opcode = 0x1f
	LLOAD_2 Opcode = 0x20
	LLOAD_3 Opcode = 0x21
	FLOAD_0 Opcode = 0x22
	FLOAD_1 Opcode = 0x23
	FLOAD_2 Opcode = 0x24
	FLOAD_3 Opcode = 0x25
	DLOAD_0 Opcode = 0x26
	DLOAD_1 Opcode = 0x27
	DLOAD_2 Opcode = 0x28
	DLOAD_3 Opcode = 0x29
	ALOAD_0 Opcode = 0x2a
	ALOAD_1 Opcode = 0x2b
	ALOAD_2 Opcode = 0x2c
	ALOAD_3 Opcode = 0x2d
	IALOAD  Opcode = 0x2e
	LALOAD  Opcode = 0x2f
	FALOAD  Opcode = 0x30
	DALOAD  Opcode = 0x31
	AALOAD  Opcode = 0x32
	BALOAD  Opcode = 0x33
	CALOAD  Opcode = 0x34
	SALOAD  Opcode = 0x35
)

// 0x36 range - stores.
const (
	ISTORE   Opcode = 0x36
	LSTORE   Opcode = 0x37
	FSTORE   Opcode = 0x38
	DSTORE   Opcode = 0x39
	ASTORE   Opcode = 0x3a
	ISTORE_0 Opcode = 0x3b
	ISTORE_1 Opcode = 0x3c
	ISTORE_2 Opcode = 0x3d
	ISTORE_3 Opcode = 0x3e
	LSTORE_0 Opcode = 0x3f
	LSTORE_1 Opcode = 0x40
	LSTORE_2 Opcode = 0x41
	LSTORE_3 Opcode = 0x42
	FSTORE_0 Opcode = 0x43
	FSTORE_1 Opcode = 0x44
	FSTORE_2 Opcode = 0x45
	FSTORE_3 Opcode = 0x46
	DSTORE_0 Opcode = 0x47
	DSTORE_1 Opcode = 0x48
	DSTORE_2 Opcode = 0x49
	DSTORE_3 Opcode = 0x4a
	ASTORE_0 Opcode = 0x4b
	ASTORE_1 Opcode = 0x4c
	ASTORE_2 Opcode = 0x4d
	ASTORE_3 Opcode = 0x4e
	IASTORE  Opcode = 0x4f
	LASTORE  Opcode = 0x50
	FASTORE  Opcode = 0x51
	DASTORE  Opcode = 0x52
	AASTORE  Opcode = 0x53
	BASTORE  Opcode = 0x54
	CASTORE  Opcode = 0x55
	SASTORE  Opcode = 0x56
)

// 0x57 range - stack.
const (
	POP     Opcode = 0x57
	POP2    Opcode = 0x58
	DUP     Opcode = 0x59
	DUP_X1  Opcode = 0x5a
	DUP_X2  Opcode = 0x5b
	DUP2    Opcode = 0x5c
	DUP2_X1 Opcode = 0x5d
	DUP2_X2 Opcode = 0x5e
	SWAP    Opcode = 0x5f
)

// 0x60 range - math.
const (
	IADD  Opcode = 0x60
	LADD  Opcode = 0x61
	FADD  Opcode = 0x62
	DADD  Opcode = 0x63
	ISUB  Opcode = 0x64
	LSUB  Opcode = 0x65
	FSUB  Opcode = 0x66
	DSUB  Opcode = 0x67
	IMUL  Opcode = 0x68
	LMUL  Opcode = 0x69
	FMUL  Opcode = 0x6a
	DMUL  Opcode = 0x6b
	IDIV  Opcode = 0x6c
	LDIV  Opcode = 0x6d
	FDIV  Opcode = 0x6e
	DDIV  Opcode = 0x6f
	IREM  Opcode = 0x70
	LREM  Opcode = 0x71
	FREM  Opcode = 0x72
	DREM  Opcode = 0x73
	INEG  Opcode = 0x74
	LNEG  Opcode = 0x75
	FNEG  Opcode = 0x76
	DNEG  Opcode = 0x77
	ISHL  Opcode = 0x78
	LSHL  Opcode = 0x79
	ISHR  Opcode = 0x7a
	LSHR  Opcode = 0x7b
	IUSHR Opcode = 0x7c
	LUSHR Opcode = 0x7d
	IAND  Opcode = 0x7e
	LAND  Opcode = 0x7f
	IOR   Opcode = 0x80
	LOR   Opcode = 0x81
	IXOR  Opcode = 0x82
	LXOR  Opcode = 0x83
	IINC  Opcode = 0x84
)

// 0x85 range - conversions and comparisons.
const (
	I2L   Opcode = 0x85
	I2F   Opcode = 0x86
	I2D   Opcode = 0x87
	L2I   Opcode = 0x88
	L2F   Opcode = 0x89
	L2D   Opcode = 0x8a
	F2I   Opcode = 0x8b
	F2L   Opcode = 0x8c
	F2D   Opcode = 0x8d
	D2I   Opcode = 0x8e
	D2L   Opcode = 0x8f
	D2F   Opcode = 0x90
	I2B   Opcode = 0x91
	I2C   Opcode = 0x92
	I2S   Opcode = 0x93
	LCMP  Opcode = 0x94
	FCMPL Opcode = 0x95
	FCMPG Opcode = 0x96
	DCMPL Opcode = 0x97
	DCMPG Opcode = 0x98
)

// 0x99 range - control.
const (
	IFEQ         Opcode = 0x99
	IFNE         Opcode = 0x9a
	IFLT         Opcode = 0x9b
	IFGE         Opcode = 0x9c
	IFGT         Opcode = 0x9d
	IFLE         Opcode = 0x9e
	IF_ICMPEQ    Opcode = 0x9f
	IF_ICMPNE    Opcode = 0xa0
	IF_ICMPLT    Opcode = 0xa1
	IF_ICMPGE    Opcode = 0xa2
	IF_ICMPGT    Opcode = 0xa3
	IF_ICMPLE    Opcode = 0xa4
	IF_ACMPEQ    Opcode = 0xa5
	IF_ACMPNE    Opcode = 0xa6
	GOTO         Opcode = 0xa7
	JSR          Opcode = 0xa8
	RET          Opcode = 0xa9
	TABLESWITCH  Opcode = 0xaa
	LOOKUPSWITCH Opcode = 0xab
	IRETURN      Opcode = 0xac
	LRETURN      Opcode = 0xad
	FRETURN      Opcode = 0xae
	DRETURN      Opcode = 0xaf
	ARETURN      Opcode = 0xb0
	RETURN       Opcode = 0xb1
)

// 0xb2 range - references.
const (
	GETSTATIC       Opcode = 0xb2
	PUTSTATIC       Opcode = 0xb3
	GETFIELD        Opcode = 0xb4
	PUTFIELD        Opcode = 0xb5
	INVOKEVIRTUAL   Opcode = 0xb6
	INVOKESPECIAL   Opcode = 0xb7
	INVOKESTATIC    Opcode = 0xb8
	INVOKEINTERFACE Opcode = 0xb9
	INVOKEDYNAMIC   Opcode = 0xba
	NEW             Opcode = 0xbb
	NEWARRAY        Opcode = 0xbc
	ANEWARRAY       Opcode = 0xbd
	ARRAYLENGTH     Opcode = 0xbe
	ATHROW          Opcode = 0xbf
	CHECKCAST       Opcode = 0xc0
	INSTANCEOF      Opcode = 0xc1
	MONITORENTER    Opcode = 0xc2
	MONITOREXIT     Opcode = 0xc3
)

// 0xc4 range - extended.
const (
	WIDE           Opcode = 0xc4
	MULTIANEWARRAY Opcode = 0xc5
	IFNULL         Opcode = 0xc6
	IFNONNULL      Opcode = 0xc7
	GOTO_W         Opcode = 0xc8
	JSR_W          Opcode = 0xc9
)

// Wide returns the two-byte wide form of a local variable opcode.
func Wide(op Opcode) Opcode {
	return Opcode(WIDE)<<8 | op&0xff
}

// IsWide reports whether op is a wide form.
func (op Opcode) IsWide() bool {
	return op>>8 == WIDE
}

// Base strips the wide prefix.
func (op Opcode) Base() Opcode {
	if op.IsWide() {
		return op & 0xff
	}
	return op
}

func (op Opcode) String() string {
	if info, err := Lookup(op); err == nil {
		return info.Name
	}
	return fmt.Sprintf("opcode %#x not defined", uint16(op))
}
