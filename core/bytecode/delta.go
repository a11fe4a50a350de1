package bytecode

import (
	"fmt"

	"github.com/jvmflow/jflow/core/descriptor"
)

// StackDelta returns the net change of the operand stack, in words, caused
// by executing ins. Operand dependent rules consult descs for descriptor
// widths.
func StackDelta(ins *Instruction, descs descriptor.Parser) (int, error) {
	pops, pushes, err := StackEffect(ins, descs)
	if err != nil {
		return 0, err
	}
	return pushes - pops, nil
}

// StackEffect returns the words ins pops and then pushes. For operand
// dependent rules the counts come from the constant, field or method
// descriptor and the dimension count.
func StackEffect(ins *Instruction, descs descriptor.Parser) (pops, pushes int, err error) {
	info, err := Lookup(ins.op)
	if err != nil {
		return 0, 0, err
	}
	switch info.Rule {
	case RuleFixed:
		return info.Pops, info.Pushes, nil

	case RuleLdc, RuleLdc2:
		c, ok := ins.Operand(0).(*Const)
		if !ok || c == nil {
			return 0, 0, ins.invalid(0, "want constant")
		}
		if c.Type == ConstDynamic {
			t, err := descs.Field(c.Descriptor)
			if err != nil {
				return 0, 0, fmt.Errorf("%s: %w", info.Name, err)
			}
			if info.Rule == RuleLdc2 && t.Size() != 2 {
				return 0, 0, ins.invalid(0, "dynamic constant %s needs ldc, not %s", c.Descriptor, info.Name)
			}
			return 0, t.Size(), nil
		}
		if c.Wide() {
			return 0, 2, nil
		}
		if info.Rule == RuleLdc2 {
			return 0, 0, ins.invalid(0, "%v constant needs ldc, not %s", c.Type, info.Name)
		}
		return 0, 1, nil

	case RuleGetStatic, RulePutStatic, RuleGetField, RulePutField:
		t, err := ins.fieldType(descs, 2)
		if err != nil {
			return 0, 0, err
		}
		w := t.Size()
		switch info.Rule {
		case RuleGetStatic:
			return 0, w, nil
		case RulePutStatic:
			return w, 0, nil
		case RuleGetField:
			return 1, w, nil
		default:
			return w + 1, 0, nil
		}

	case RuleInvoke, RuleInvokeStatic:
		m, err := ins.methodType(descs, 2)
		if err != nil {
			return 0, 0, err
		}
		if info.Rule == RuleInvoke {
			return m.ArgumentsSize() + 1, m.Return.Size(), nil
		}
		return m.ArgumentsSize(), m.Return.Size(), nil

	case RuleInvokeDynamic:
		m, err := ins.methodType(descs, 1)
		if err != nil {
			return 0, 0, err
		}
		return m.ArgumentsSize(), m.Return.Size(), nil

	case RuleMultiANewArray:
		dims, ok := ins.Operand(1).(Int)
		if !ok {
			return 0, 0, ins.invalid(1, "want dimensions")
		}
		if dims < 1 || dims > 255 {
			return 0, 0, ins.invalid(1, "dimensions %d out of range [1, 255]", int64(dims))
		}
		t, err := ins.fieldType(descs, 0)
		if err != nil {
			return 0, 0, err
		}
		if t.Kind != descriptor.Array || t.Dims < int(dims) {
			return 0, 0, ins.invalid(1, "%d dimensions for type %s", int64(dims), t)
		}
		return int(dims), 1, nil
	}
	return 0, 0, ins.invalid(-1, "unknown stack rule %d", info.Rule)
}

func (ins *Instruction) descAt(pos int) (string, error) {
	d, ok := ins.Operand(pos).(Desc)
	if !ok || d == "" {
		return "", ins.invalid(pos, "want descriptor")
	}
	return string(d), nil
}

func (ins *Instruction) fieldType(descs descriptor.Parser, pos int) (descriptor.Type, error) {
	d, err := ins.descAt(pos)
	if err != nil {
		return descriptor.Type{}, err
	}
	t, err := descs.Field(d)
	if err != nil {
		return descriptor.Type{}, fmt.Errorf("%v: %w", ins.op, err)
	}
	return t, nil
}

func (ins *Instruction) methodType(descs descriptor.Parser, pos int) (descriptor.MethodType, error) {
	d, err := ins.descAt(pos)
	if err != nil {
		return descriptor.MethodType{}, err
	}
	m, err := descs.Method(d)
	if err != nil {
		return descriptor.MethodType{}, fmt.Errorf("%v: %w", ins.op, err)
	}
	return m, nil
}
