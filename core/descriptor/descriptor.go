package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptor is returned when a field or method descriptor is
// malformed.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// Error describes where a descriptor failed to parse.
type Error struct {
	Descriptor string
	Pos        int
	Reason     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid descriptor %q at offset %d: %s", e.Descriptor, e.Pos, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalidDescriptor }

// Kind is the sort of a JVM type.
type Kind byte

const (
	Void Kind = iota
	Boolean
	Byte
	Char
	Short
	Int
	Float
	Long
	Double
	Object
	Array
)

var kindNames = [...]string{
	Void:    "void",
	Boolean: "boolean",
	Byte:    "byte",
	Char:    "char",
	Short:   "short",
	Int:     "int",
	Float:   "float",
	Long:    "long",
	Double:  "double",
	Object:  "object",
	Array:   "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// Type is a parsed field type (or void, as a method return type).
type Type struct {
	Kind Kind
	// Class is the internal name for objects ("java/lang/String").
	Class string
	// Dims and Elem describe arrays; Elem is the innermost element type.
	Dims int
	Elem *Type
}

// Size is the number of operand stack or local variable words the type
// occupies: 2 for long and double, 0 for void, 1 otherwise.
func (t Type) Size() int {
	switch t.Kind {
	case Void:
		return 0
	case Long, Double:
		return 2
	default:
		return 1
	}
}

func (t Type) String() string {
	switch t.Kind {
	case Object:
		return "L" + t.Class + ";"
	case Array:
		return strings.Repeat("[", t.Dims) + t.Elem.String()
	case Void:
		return "V"
	}
	return string(primitiveCodes[t.Kind])
}

var primitiveCodes = map[Kind]byte{
	Boolean: 'Z',
	Byte:    'B',
	Char:    'C',
	Short:   'S',
	Int:     'I',
	Float:   'F',
	Long:    'J',
	Double:  'D',
}

var primitiveKinds = map[byte]Kind{
	'Z': Boolean,
	'B': Byte,
	'C': Char,
	'S': Short,
	'I': Int,
	'F': Float,
	'J': Long,
	'D': Double,
}

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []Type
	Return Type
}

// ArgumentsSize is the summed word width of all parameters.
func (m MethodType) ArgumentsSize() int {
	size := 0
	for _, p := range m.Params {
		size += p.Size()
	}
	return size
}

// Delta is the operand stack change of a call that pops the arguments and
// pushes the result, not counting any receiver.
func (m MethodType) Delta() int {
	return m.Return.Size() - m.ArgumentsSize()
}

func (m MethodType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range m.Params {
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	b.WriteString(m.Return.String())
	return b.String()
}

// ParseField parses a field descriptor such as "J" or "[Ljava/lang/String;".
func ParseField(desc string) (Type, error) {
	p := parser{src: desc}
	t, err := p.fieldType()
	if err != nil {
		return Type{}, err
	}
	if p.pos != len(desc) {
		return Type{}, p.fail("trailing characters")
	}
	return t, nil
}

// ParseMethod parses a method descriptor such as "(IJ)Ljava/lang/Object;".
func ParseMethod(desc string) (MethodType, error) {
	p := parser{src: desc}
	if !p.accept('(') {
		return MethodType{}, p.fail("expected '('")
	}
	var m MethodType
	for !p.accept(')') {
		if p.eof() {
			return MethodType{}, p.fail("unterminated parameter list")
		}
		t, err := p.fieldType()
		if err != nil {
			return MethodType{}, err
		}
		m.Params = append(m.Params, t)
	}
	if p.accept('V') {
		m.Return = Type{Kind: Void}
	} else {
		t, err := p.fieldType()
		if err != nil {
			return MethodType{}, err
		}
		m.Return = t
	}
	if !p.eof() {
		return MethodType{}, p.fail("trailing characters")
	}
	return m, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) accept(c byte) bool {
	if !p.eof() && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) fail(reason string) error {
	return &Error{Descriptor: p.src, Pos: p.pos, Reason: reason}
}

func (p *parser) fieldType() (Type, error) {
	if p.eof() {
		return Type{}, p.fail("unexpected end")
	}
	c := p.src[p.pos]
	if k, ok := primitiveKinds[c]; ok {
		p.pos++
		return Type{Kind: k}, nil
	}
	switch c {
	case 'L':
		end := strings.IndexByte(p.src[p.pos:], ';')
		if end < 0 {
			return Type{}, p.fail("unterminated class name")
		}
		name := p.src[p.pos+1 : p.pos+end]
		if name == "" || strings.ContainsAny(name, ".[(") {
			return Type{}, p.fail("bad class name")
		}
		p.pos += end + 1
		return Type{Kind: Object, Class: name}, nil
	case '[':
		dims := 0
		for p.accept('[') {
			dims++
		}
		if dims > 255 {
			return Type{}, p.fail("too many array dimensions")
		}
		elem, err := p.fieldType()
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: Array, Dims: dims, Elem: &elem}, nil
	}
	return Type{}, p.fail(fmt.Sprintf("unexpected %q", c))
}
