package bytecode

import (
	"strconv"
	"strings"
)

// OperandKind is the sort of value an instruction operand holds.
type OperandKind byte

const (
	OperandInt OperandKind = iota + 1
	OperandString
	OperandDesc
	OperandLabel
	OperandSwitch
	OperandConst
)

var operandKindNames = map[OperandKind]string{
	OperandInt:    "int",
	OperandString: "string",
	OperandDesc:   "descriptor",
	OperandLabel:  "label",
	OperandSwitch: "switch",
	OperandConst:  "constant",
}

func (k OperandKind) String() string {
	if name, ok := operandKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Operand is one argument of an instruction. Label is an Operand too.
type Operand interface {
	Kind() OperandKind
	String() string
}

// Int is an integer literal: a local index, an increment, a push value, an
// array type code or a dimension count.
type Int int64

func (Int) Kind() OperandKind { return OperandInt }
func (i Int) String() string  { return strconv.FormatInt(int64(i), 10) }

// Str is a class internal name, member owner or member name.
type Str string

func (Str) Kind() OperandKind { return OperandString }
func (s Str) String() string  { return string(s) }

// Desc is a field or method descriptor.
type Desc string

func (Desc) Kind() OperandKind { return OperandDesc }
func (d Desc) String() string  { return string(d) }

// Switch holds the targets of tableswitch and lookupswitch. Keys[i] jumps
// to Targets[i]; any other key jumps to Default.
type Switch struct {
	Default Label
	Keys    []int32
	Targets []Label
}

func (*Switch) Kind() OperandKind { return OperandSwitch }

func (s *Switch) String() string {
	var b strings.Builder
	b.WriteString("default=")
	b.WriteString(s.Default.String())
	for i, key := range s.Keys {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(int64(key), 10))
		b.WriteByte(':')
		if i < len(s.Targets) {
			b.WriteString(s.Targets[i].String())
		}
	}
	return b.String()
}

// ConstKind is the type of an ldc constant.
type ConstKind byte

const (
	ConstInt ConstKind = iota + 1
	ConstFloat
	ConstLong
	ConstDouble
	ConstString
	ConstClass
	ConstMethodType
	ConstHandle
	ConstDynamic
)

var constKindNames = map[ConstKind]string{
	ConstInt:        "int",
	ConstFloat:      "float",
	ConstLong:       "long",
	ConstDouble:     "double",
	ConstString:     "string",
	ConstClass:      "class",
	ConstMethodType: "methodtype",
	ConstHandle:     "handle",
	ConstDynamic:    "dynamic",
}

func (k ConstKind) String() string {
	if name, ok := constKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func constKindByName(name string) (ConstKind, bool) {
	for k, n := range constKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Const is a loadable constant. Value is its textual form; Descriptor is
// set for dynamically computed constants only.
type Const struct {
	Type       ConstKind
	Value      string
	Descriptor string
}

func (*Const) Kind() OperandKind { return OperandConst }

func (c *Const) String() string {
	if c.Type == ConstDynamic {
		return c.Type.String() + " " + c.Value + " " + c.Descriptor
	}
	return c.Type.String() + " " + c.Value
}

// Wide reports whether the constant occupies two stack words, as long and
// double do, without looking at dynamic constant descriptors.
func (c *Const) Wide() bool {
	return c.Type == ConstLong || c.Type == ConstDouble
}
