package bytecode

import (
	"golang.org/x/exp/slices"
)

// Kind classifies how an instruction transfers control.
type Kind byte

const (
	KindNormal      Kind = iota // falls through to the next entry
	KindJump                    // unconditional jump
	KindConditional             // jump or fall through
	KindSubroutine              // jsr: jump, returning to the next entry
	KindSwitch                  // multi-way jump
	KindReturn
	KindThrow
	KindRet    // return from subroutine
	KindPrefix // wide, only valid fused into another opcode
)

var kindNames = [...]string{
	KindNormal:      "normal",
	KindJump:        "jump",
	KindConditional: "conditional",
	KindSubroutine:  "subroutine",
	KindSwitch:      "switch",
	KindReturn:      "return",
	KindThrow:       "throw",
	KindRet:         "ret",
	KindPrefix:      "prefix",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsJump reports whether the instruction always transfers to its label.
func (k Kind) IsJump() bool { return k == KindJump || k == KindSubroutine }

func (k Kind) IsConditionalBranch() bool { return k == KindConditional }
func (k Kind) IsSwitch() bool            { return k == KindSwitch }
func (k Kind) IsReturn() bool            { return k == KindReturn }
func (k Kind) IsThrow() bool             { return k == KindThrow }
func (k Kind) IsSubroutine() bool        { return k == KindSubroutine }

// Branches reports whether the instruction names explicit targets.
func (k Kind) Branches() bool {
	return k == KindJump || k == KindConditional || k == KindSubroutine || k == KindSwitch
}

// Terminates reports whether control never continues past the instruction
// within the method body.
func (k Kind) Terminates() bool {
	return k == KindReturn || k == KindThrow || k == KindRet
}

// Rule selects how the stack delta of an opcode is computed.
type Rule byte

const (
	RuleFixed          Rule = iota // Pushes - Pops
	RuleLdc                        // width of the constant
	RuleLdc2                       // long or double constant
	RuleGetStatic                  // +w(field)
	RulePutStatic                  // -w(field)
	RuleGetField                   // w(field) - 1
	RulePutField                   // -w(field) - 1
	RuleInvoke                     // w(ret) - w(args) - 1
	RuleInvokeStatic               // w(ret) - w(args)
	RuleInvokeDynamic              // w(ret) - w(args)
	RuleMultiANewArray             // 1 - dims
)

var ruleNames = [...]string{
	RuleFixed:          "fixed",
	RuleLdc:            "constant",
	RuleLdc2:           "wide constant",
	RuleGetStatic:      "+field",
	RulePutStatic:      "-field",
	RuleGetField:       "field-1",
	RulePutField:       "-field-1",
	RuleInvoke:         "ret-args-1",
	RuleInvokeStatic:   "ret-args",
	RuleInvokeDynamic:  "ret-args",
	RuleMultiANewArray: "1-dims",
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "unknown"
}

// Info describes one opcode.
type Info struct {
	Op   Opcode
	Name string

	// Operands lists the operand kinds an instruction must carry, in order.
	// Variadic opcodes accept any further operands.
	Operands []OperandKind
	Variadic bool

	// Pops and Pushes are the operand stack words consumed and produced.
	// They are meaningful for RuleFixed only.
	Pops, Pushes int
	Rule         Rule
	Kind         Kind

	// VarWidth is non-zero for instructions touching a local variable.
	// The index is the first operand, unless ImplicitVar is non-negative.
	VarWidth    int
	ImplicitVar int
}

// IsLocalVarAccess reports whether the opcode reads or writes a local.
func (info *Info) IsLocalVarAccess() bool { return info.VarWidth > 0 }

var (
	shapeInt    = []OperandKind{OperandInt}
	shapeIinc   = []OperandKind{OperandInt, OperandInt}
	shapeConst  = []OperandKind{OperandConst}
	shapeLabel  = []OperandKind{OperandLabel}
	shapeSwitch = []OperandKind{OperandSwitch}
	shapeClass  = []OperandKind{OperandString}
	shapeMember = []OperandKind{OperandString, OperandString, OperandDesc}
	shapeIndy   = []OperandKind{OperandString, OperandDesc}
	shapeMulti  = []OperandKind{OperandDesc, OperandInt}
)

func fixed(name string, pops, pushes int) *Info {
	return &Info{Name: name, Pops: pops, Pushes: pushes, ImplicitVar: -1}
}

func operand(name string, pops, pushes int, shape []OperandKind) *Info {
	info := fixed(name, pops, pushes)
	info.Operands = shape
	return info
}

func ruled(name string, rule Rule, shape []OperandKind) *Info {
	return &Info{Name: name, Rule: rule, Operands: shape, ImplicitVar: -1}
}

func control(name string, kind Kind, pops, pushes int, shape []OperandKind) *Info {
	info := operand(name, pops, pushes, shape)
	info.Kind = kind
	return info
}

func load(name string, width int) *Info {
	info := operand(name, 0, width, shapeInt)
	info.VarWidth = width
	return info
}

func loadN(name string, width, slot int) *Info {
	info := fixed(name, 0, width)
	info.VarWidth, info.ImplicitVar = width, slot
	return info
}

func store(name string, width int) *Info {
	info := operand(name, width, 0, shapeInt)
	info.VarWidth = width
	return info
}

func storeN(name string, width, slot int) *Info {
	info := fixed(name, width, 0)
	info.VarWidth, info.ImplicitVar = width, slot
	return info
}

// catalog is the authoritative opcode table. Stack effects follow JVMS
// chapter 6, counted in words.
var catalog = [256]*Info{
	NOP:         fixed("nop", 0, 0),
	ACONST_NULL: fixed("aconst_null", 0, 1),
	ICONST_M1:   fixed("iconst_m1", 0, 1),
	ICONST_0:    fixed("iconst_0", 0, 1),
	ICONST_1:    fixed("iconst_1", 0, 1),
	ICONST_2:    fixed("iconst_2", 0, 1),
	ICONST_3:    fixed("iconst_3", 0, 1),
	ICONST_4:    fixed("iconst_4", 0, 1),
	ICONST_5:    fixed("iconst_5", 0, 1),
	LCONST_0:    fixed("lconst_0", 0, 2),
	LCONST_1:    fixed("lconst_1", 0, 2),
	FCONST_0:    fixed("fconst_0", 0, 1),
	FCONST_1:    fixed("fconst_1", 0, 1),
	FCONST_2:    fixed("fconst_2", 0, 1),
	DCONST_0:    fixed("dconst_0", 0, 2),
	DCONST_1:    fixed("dconst_1", 0, 2),
	BIPUSH:      operand("bipush", 0, 1, shapeInt),
	SIPUSH:      operand("sipush", 0, 1, shapeInt),
	LDC:         ruled("ldc", RuleLdc, shapeConst),
	LDC_W:       ruled("ldc_w", RuleLdc, shapeConst),
	LDC2_W:      ruled("ldc2_w", RuleLdc2, shapeConst),

	ILOAD:   load("iload", 1),
	LLOAD:   load("lload", 2),
	FLOAD:   load("fload", 1),
	DLOAD:   load("dload", 2),
	ALOAD:   load("aload", 1),
	ILOAD_0: loadN("iload_0", 1, 0),
	ILOAD_1: loadN("iload_1", 1, 1),
	ILOAD_2: loadN("iload_2", 1, 2),
	ILOAD_3: loadN("iload_3", 1, 3),
	LLOAD_0: loadN("lload_0", 2, 0),
	LLOAD_1: loadN("lload_1", 2, 1),
	LLOAD_2: loadN("lload_2", 2, 2),
	LLOAD_3: loadN("lload_3", 2, 3),
	FLOAD_0: loadN("fload_0", 1, 0),
	FLOAD_1: loadN("fload_1", 1, 1),
	FLOAD_2: loadN("fload_2", 1, 2),
	FLOAD_3: loadN("fload_3", 1, 3),
	DLOAD_0: loadN("dload_0", 2, 0),
	DLOAD_1: loadN("dload_1", 2, 1),
	DLOAD_2: loadN("dload_2", 2, 2),
	DLOAD_3: loadN("dload_3", 2, 3),
	ALOAD_0: loadN("aload_0", 1, 0),
	ALOAD_1: loadN("aload_1", 1, 1),
	ALOAD_2: loadN("aload_2", 1, 2),
	ALOAD_3: loadN("aload_3", 1, 3),
	IALOAD:  fixed("iaload", 2, 1),
	LALOAD:  fixed("laload", 2, 2),
	FALOAD:  fixed("faload", 2, 1),
	DALOAD:  fixed("daload", 2, 2),
	AALOAD:  fixed("aaload", 2, 1),
	BALOAD:  fixed("baload", 2, 1),
	CALOAD:  fixed("caload", 2, 1),
	SALOAD:  fixed("saload", 2, 1),

	ISTORE:   store("istore", 1),
	LSTORE:   store("lstore", 2),
	FSTORE:   store("fstore", 1),
	DSTORE:   store("dstore", 2),
	ASTORE:   store("astore", 1),
	ISTORE_0: storeN("istore_0", 1, 0),
	ISTORE_1: storeN("istore_1", 1, 1),
	ISTORE_2: storeN("istore_2", 1, 2),
	ISTORE_3: storeN("istore_3", 1, 3),
	LSTORE_0: storeN("lstore_0", 2, 0),
	LSTORE_1: storeN("lstore_1", 2, 1),
	LSTORE_2: storeN("lstore_2", 2, 2),
	LSTORE_3: storeN("lstore_3", 2, 3),
	FSTORE_0: storeN("fstore_0", 1, 0),
	FSTORE_1: storeN("fstore_1", 1, 1),
	FSTORE_2: storeN("fstore_2", 1, 2),
	FSTORE_3: storeN("fstore_3", 1, 3),
	DSTORE_0: storeN("dstore_0", 2, 0),
	DSTORE_1: storeN("dstore_1", 2, 1),
	DSTORE_2: storeN("dstore_2", 2, 2),
	DSTORE_3: storeN("dstore_3", 2, 3),
	ASTORE_0: storeN("astore_0", 1, 0),
	ASTORE_1: storeN("astore_1", 1, 1),
	ASTORE_2: storeN("astore_2", 1, 2),
	ASTORE_3: storeN("astore_3", 1, 3),
	IASTORE:  fixed("iastore", 3, 0),
	LASTORE:  fixed("lastore", 4, 0),
	FASTORE:  fixed("fastore", 3, 0),
	DASTORE:  fixed("dastore", 4, 0),
	AASTORE:  fixed("aastore", 3, 0),
	BASTORE:  fixed("bastore", 3, 0),
	CASTORE:  fixed("castore", 3, 0),
	SASTORE:  fixed("sastore", 3, 0),

	POP:     fixed("pop", 1, 0),
	POP2:    fixed("pop2", 2, 0),
	DUP:     fixed("dup", 1, 2),
	DUP_X1:  fixed("dup_x1", 2, 3),
	DUP_X2:  fixed("dup_x2", 3, 4),
	DUP2:    fixed("dup2", 2, 4),
	DUP2_X1: fixed("dup2_x1", 3, 5),
	DUP2_X2: fixed("dup2_x2", 4, 6),
	SWAP:    fixed("swap", 2, 2),

	IADD:  fixed("iadd", 2, 1),
	LADD:  fixed("ladd", 4, 2),
	FADD:  fixed("fadd", 2, 1),
	DADD:  fixed("dadd", 4, 2),
	ISUB:  fixed("isub", 2, 1),
	LSUB:  fixed("lsub", 4, 2),
	FSUB:  fixed("fsub", 2, 1),
	DSUB:  fixed("dsub", 4, 2),
	IMUL:  fixed("imul", 2, 1),
	LMUL:  fixed("lmul", 4, 2),
	FMUL:  fixed("fmul", 2, 1),
	DMUL:  fixed("dmul", 4, 2),
	IDIV:  fixed("idiv", 2, 1),
	LDIV:  fixed("ldiv", 4, 2),
	FDIV:  fixed("fdiv", 2, 1),
	DDIV:  fixed("ddiv", 4, 2),
	IREM:  fixed("irem", 2, 1),
	LREM:  fixed("lrem", 4, 2),
	FREM:  fixed("frem", 2, 1),
	DREM:  fixed("drem", 4, 2),
	INEG:  fixed("ineg", 1, 1),
	LNEG:  fixed("lneg", 2, 2),
	FNEG:  fixed("fneg", 1, 1),
	DNEG:  fixed("dneg", 2, 2),
	ISHL:  fixed("ishl", 2, 1),
	LSHL:  fixed("lshl", 3, 2),
	ISHR:  fixed("ishr", 2, 1),
	LSHR:  fixed("lshr", 3, 2),
	IUSHR: fixed("iushr", 2, 1),
	LUSHR: fixed("lushr", 3, 2),
	IAND:  fixed("iand", 2, 1),
	LAND:  fixed("land", 4, 2),
	IOR:   fixed("ior", 2, 1),
	LOR:   fixed("lor", 4, 2),
	IXOR:  fixed("ixor", 2, 1),
	LXOR:  fixed("lxor", 4, 2),
	IINC:  {Name: "iinc", Operands: shapeIinc, VarWidth: 1, ImplicitVar: -1},

	I2L:   fixed("i2l", 1, 2),
	I2F:   fixed("i2f", 1, 1),
	I2D:   fixed("i2d", 1, 2),
	L2I:   fixed("l2i", 2, 1),
	L2F:   fixed("l2f", 2, 1),
	L2D:   fixed("l2d", 2, 2),
	F2I:   fixed("f2i", 1, 1),
	F2L:   fixed("f2l", 1, 2),
	F2D:   fixed("f2d", 1, 2),
	D2I:   fixed("d2i", 2, 1),
	D2L:   fixed("d2l", 2, 2),
	D2F:   fixed("d2f", 2, 1),
	I2B:   fixed("i2b", 1, 1),
	I2C:   fixed("i2c", 1, 1),
	I2S:   fixed("i2s", 1, 1),
	LCMP:  fixed("lcmp", 4, 1),
	FCMPL: fixed("fcmpl", 2, 1),
	FCMPG: fixed("fcmpg", 2, 1),
	DCMPL: fixed("dcmpl", 4, 1),
	DCMPG: fixed("dcmpg", 4, 1),

	IFEQ:         control("ifeq", KindConditional, 1, 0, shapeLabel),
	IFNE:         control("ifne", KindConditional, 1, 0, shapeLabel),
	IFLT:         control("iflt", KindConditional, 1, 0, shapeLabel),
	IFGE:         control("ifge", KindConditional, 1, 0, shapeLabel),
	IFGT:         control("ifgt", KindConditional, 1, 0, shapeLabel),
	IFLE:         control("ifle", KindConditional, 1, 0, shapeLabel),
	IF_ICMPEQ:    control("if_icmpeq", KindConditional, 2, 0, shapeLabel),
	IF_ICMPNE:    control("if_icmpne", KindConditional, 2, 0, shapeLabel),
	IF_ICMPLT:    control("if_icmplt", KindConditional, 2, 0, shapeLabel),
	IF_ICMPGE:    control("if_icmpge", KindConditional, 2, 0, shapeLabel),
	IF_ICMPGT:    control("if_icmpgt", KindConditional, 2, 0, shapeLabel),
	IF_ICMPLE:    control("if_icmple", KindConditional, 2, 0, shapeLabel),
	IF_ACMPEQ:    control("if_acmpeq", KindConditional, 2, 0, shapeLabel),
	IF_ACMPNE:    control("if_acmpne", KindConditional, 2, 0, shapeLabel),
	GOTO:         control("goto", KindJump, 0, 0, shapeLabel),
	JSR:          control("jsr", KindSubroutine, 0, 1, shapeLabel),
	RET:          {Name: "ret", Kind: KindRet, Operands: shapeInt, VarWidth: 1, ImplicitVar: -1},
	TABLESWITCH:  control("tableswitch", KindSwitch, 1, 0, shapeSwitch),
	LOOKUPSWITCH: control("lookupswitch", KindSwitch, 1, 0, shapeSwitch),
	IRETURN:      control("ireturn", KindReturn, 1, 0, nil),
	LRETURN:      control("lreturn", KindReturn, 2, 0, nil),
	FRETURN:      control("freturn", KindReturn, 1, 0, nil),
	DRETURN:      control("dreturn", KindReturn, 2, 0, nil),
	ARETURN:      control("areturn", KindReturn, 1, 0, nil),
	RETURN:       control("return", KindReturn, 0, 0, nil),

	GETSTATIC:       ruled("getstatic", RuleGetStatic, shapeMember),
	PUTSTATIC:       ruled("putstatic", RulePutStatic, shapeMember),
	GETFIELD:        ruled("getfield", RuleGetField, shapeMember),
	PUTFIELD:        ruled("putfield", RulePutField, shapeMember),
	INVOKEVIRTUAL:   ruled("invokevirtual", RuleInvoke, shapeMember),
	INVOKESPECIAL:   ruled("invokespecial", RuleInvoke, shapeMember),
	INVOKESTATIC:    ruled("invokestatic", RuleInvokeStatic, shapeMember),
	INVOKEINTERFACE: ruled("invokeinterface", RuleInvoke, shapeMember),
	INVOKEDYNAMIC:   {Name: "invokedynamic", Rule: RuleInvokeDynamic, Operands: shapeIndy, Variadic: true, ImplicitVar: -1},
	NEW:             operand("new", 0, 1, shapeClass),
	NEWARRAY:        operand("newarray", 1, 1, shapeInt),
	ANEWARRAY:       operand("anewarray", 1, 1, shapeClass),
	ARRAYLENGTH:     fixed("arraylength", 1, 1),
	ATHROW:          control("athrow", KindThrow, 1, 0, nil),
	CHECKCAST:       operand("checkcast", 1, 1, shapeClass),
	INSTANCEOF:      operand("instanceof", 1, 1, shapeClass),
	MONITORENTER:    fixed("monitorenter", 1, 0),
	MONITOREXIT:     fixed("monitorexit", 1, 0),

	WIDE:           control("wide", KindPrefix, 0, 0, nil),
	MULTIANEWARRAY: ruled("multianewarray", RuleMultiANewArray, shapeMulti),
	IFNULL:         control("ifnull", KindConditional, 1, 0, shapeLabel),
	IFNONNULL:      control("ifnonnull", KindConditional, 1, 0, shapeLabel),
	GOTO_W:         control("goto_w", KindJump, 0, 0, shapeLabel),
	JSR_W:          control("jsr_w", KindSubroutine, 0, 1, shapeLabel),
}

var (
	wideCatalog = make(map[Opcode]*Info)
	byName      = make(map[string]Opcode)
)

func init() {
	for i, info := range catalog {
		if info == nil {
			continue
		}
		info.Op = Opcode(i)
		byName[info.Name] = info.Op
		if info.IsLocalVarAccess() && info.ImplicitVar < 0 {
			wide := *info
			wide.Op = Wide(info.Op)
			wide.Name = "wide " + info.Name
			wideCatalog[wide.Op] = &wide
		}
	}
}

// Lookup returns the catalog entry of op.
func Lookup(op Opcode) (*Info, error) {
	if op.IsWide() {
		if info, ok := wideCatalog[op]; ok {
			return info, nil
		}
		return nil, &OpcodeError{Op: op}
	}
	if op > 0xff || catalog[op] == nil {
		return nil, &OpcodeError{Op: op}
	}
	return catalog[op], nil
}

// Classify returns the control transfer kind of op.
func Classify(op Opcode) (Kind, error) {
	info, err := Lookup(op)
	if err != nil {
		return KindNormal, err
	}
	return info.Kind, nil
}

// ByName finds an opcode by its mnemonic, e.g. "iload" or "wide iinc".
func ByName(name string) (Opcode, bool) {
	if op, ok := byName[name]; ok {
		return op, true
	}
	for op, info := range wideCatalog {
		if info.Name == name {
			return op, true
		}
	}
	return 0, false
}

// StackCounts returns the words popped and pushed by an opcode whose effect
// does not depend on its operands. ok is false for operand dependent or
// unknown opcodes.
func StackCounts(op Opcode) (pops, pushes int, ok bool) {
	info, err := Lookup(op)
	if err != nil || info.Rule != RuleFixed {
		return 0, 0, false
	}
	return info.Pops, info.Pushes, true
}

// Opcodes lists every single-byte opcode in the catalog in ascending order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, 256)
	for i, info := range catalog {
		if info != nil {
			ops = append(ops, Opcode(i))
		}
	}
	return ops
}

// WideOpcodes lists the wide forms in ascending order.
func WideOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(wideCatalog))
	for op := range wideCatalog {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}
