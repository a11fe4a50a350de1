package bytecode

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// MaxLocalIndex is the largest local variable index an instruction can name.
// Indexes above MaxShortLocalIndex need the wide form.
const (
	MaxLocalIndex      = 0xffff
	MaxShortLocalIndex = 0xff
)

// Entry is one element of a method body: an instruction, a label or a
// marker.
type Entry interface {
	Executable() bool
	String() string
}

// Instruction is an opcode with its operands. It is immutable once built.
type Instruction struct {
	op       Opcode
	operands []Operand
}

// NewInstruction creates an instruction. Operands are not checked until
// Validate.
func NewInstruction(op Opcode, operands ...Operand) *Instruction {
	return &Instruction{op: op, operands: slices.Clone(operands)}
}

func (ins *Instruction) Op() Opcode { return ins.op }

// Operands returns a copy of the operand list.
func (ins *Instruction) Operands() []Operand { return slices.Clone(ins.operands) }

// Operand returns the operand at pos, or nil when absent.
func (ins *Instruction) Operand(pos int) Operand {
	if pos < 0 || pos >= len(ins.operands) {
		return nil
	}
	return ins.operands[pos]
}

func (ins *Instruction) NumOperands() int { return len(ins.operands) }

func (ins *Instruction) Executable() bool { return true }

func (ins *Instruction) Info() (*Info, error) { return Lookup(ins.op) }

func (ins *Instruction) invalid(pos int, format string, args ...interface{}) error {
	return &OperandError{Op: ins.op, Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the operands against the catalog entry of the opcode.
func (ins *Instruction) Validate() error {
	info, err := Lookup(ins.op)
	if err != nil {
		return err
	}
	if info.Kind == KindPrefix {
		return ins.invalid(-1, "wide must be fused into a local variable instruction")
	}
	want, have := len(info.Operands), len(ins.operands)
	if have < want || (have > want && !info.Variadic) {
		return ins.invalid(-1, "want %d operands, have %d", want, have)
	}
	for pos, kind := range info.Operands {
		o := ins.operands[pos]
		if o == nil {
			return ins.invalid(pos, "missing %v", kind)
		}
		if o.Kind() != kind {
			return ins.invalid(pos, "want %v, have %v", kind, o.Kind())
		}
		if err := ins.validateOperand(info, pos, o); err != nil {
			return err
		}
	}
	for pos := want; pos < have; pos++ {
		if ins.operands[pos] == nil {
			return ins.invalid(pos, "nil operand")
		}
	}
	return nil
}

func (ins *Instruction) validateOperand(info *Info, pos int, o Operand) error {
	switch v := o.(type) {
	case Int:
		lo, hi, what := int64(-1<<31), int64(1<<31-1), "value"
		switch {
		case info.IsLocalVarAccess() && pos == 0:
			lo, hi, what = 0, MaxShortLocalIndex, "local index"
			if info.Op.IsWide() {
				hi = MaxLocalIndex
			}
		case info.Op == IINC && pos == 1:
			lo, hi, what = -1<<7, 1<<7-1, "increment"
		case info.Op == Wide(IINC) && pos == 1:
			lo, hi, what = -1<<15, 1<<15-1, "increment"
		case info.Op == BIPUSH:
			lo, hi = -1<<7, 1<<7-1
		case info.Op == SIPUSH:
			lo, hi = -1<<15, 1<<15-1
		case info.Op == NEWARRAY:
			lo, hi, what = 4, 11, "array type"
		case info.Op == MULTIANEWARRAY:
			lo, hi, what = 1, 255, "dimensions"
		}
		if int64(v) < lo || int64(v) > hi {
			return ins.invalid(pos, "%s %d out of range [%d, %d]", what, int64(v), lo, hi)
		}
	case Str:
		if v == "" {
			return ins.invalid(pos, "empty name")
		}
	case Desc:
		if v == "" {
			return ins.invalid(pos, "empty descriptor")
		}
	case Label:
		if v.IsZero() {
			return ins.invalid(pos, "unbound label")
		}
	case *Switch:
		if v == nil || v.Default.IsZero() {
			return ins.invalid(pos, "switch without default")
		}
		if len(v.Keys) != len(v.Targets) {
			return ins.invalid(pos, "%d keys for %d targets", len(v.Keys), len(v.Targets))
		}
		for _, target := range v.Targets {
			if target.IsZero() {
				return ins.invalid(pos, "unbound switch target")
			}
		}
	case *Const:
		if v == nil {
			return ins.invalid(pos, "nil constant")
		}
		if _, ok := constKindNames[v.Type]; !ok {
			return ins.invalid(pos, "unknown constant type %d", v.Type)
		}
		if v.Type == ConstDynamic && v.Descriptor == "" {
			return ins.invalid(pos, "dynamic constant without descriptor")
		}
		if info.Rule == RuleLdc2 && !v.Wide() && v.Type != ConstDynamic {
			return ins.invalid(pos, "%v constant needs ldc, not %s", v.Type, info.Name)
		}
	}
	return nil
}

// LocalVar returns the local variable slot an instruction reads or writes
// and its width in words.
func (ins *Instruction) LocalVar() (index, width int, ok bool) {
	info, err := Lookup(ins.op)
	if err != nil || !info.IsLocalVarAccess() {
		return 0, 0, false
	}
	if info.ImplicitVar >= 0 {
		return info.ImplicitVar, info.VarWidth, true
	}
	idx, isInt := ins.Operand(0).(Int)
	if !isInt {
		return 0, 0, false
	}
	return int(idx), info.VarWidth, true
}

// Targets lists the labels the instruction may jump to, in operand order.
func (ins *Instruction) Targets() []Label {
	var targets []Label
	for _, o := range ins.operands {
		switch v := o.(type) {
		case Label:
			targets = append(targets, v)
		case *Switch:
			if v == nil {
				continue
			}
			targets = append(targets, v.Default)
			targets = append(targets, v.Targets...)
		}
	}
	return targets
}

func (ins *Instruction) String() string {
	var b strings.Builder
	b.WriteString(ins.op.String())
	for _, o := range ins.operands {
		b.WriteByte(' ')
		if o == nil {
			b.WriteString("<nil>")
			continue
		}
		b.WriteString(o.String())
	}
	return b.String()
}
