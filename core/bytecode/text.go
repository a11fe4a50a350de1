package bytecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned for entries that cannot be read.
var ErrSyntax = errors.New("syntax error")

type syntaxError struct {
	line   string
	reason string
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q: %s", e.line, e.reason)
}

func (e *syntaxError) Unwrap() error { return ErrSyntax }

// ParseEntry reads one entry in the listing syntax:
//
//	label NAME
//	line 12
//	frame same
//	iload 3
//	wide iinc 300 -1
//	invokestatic java/lang/Math max (II)I
//	ldc string hello world
//	lookupswitch default=L0 1:L1 10:L2
//
// Label names are interned in labels.
func ParseEntry(line string, labels *Labels) (Entry, error) {
	line = strings.TrimSpace(line)
	head, rest := cut(line)
	fail := func(format string, args ...interface{}) (Entry, error) {
		return nil, &syntaxError{line: line, reason: fmt.Sprintf(format, args...)}
	}
	switch head {
	case "":
		return fail("empty entry")
	case "label":
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return fail("want one label name")
		}
		return labels.Get(rest), nil
	case "line":
		if _, err := strconv.Atoi(rest); err != nil {
			return fail("bad line number")
		}
		return Marker{Kind: MarkerLine, Text: rest}, nil
	case "frame":
		return Marker{Kind: MarkerFrame, Text: rest}, nil
	case "marker":
		return Marker{Kind: MarkerOther, Text: rest}, nil
	}
	name := head
	if head == "wide" {
		name, rest = cut(rest)
		name = "wide " + name
	}
	op, ok := ByName(name)
	if !ok {
		return fail("unknown mnemonic %q", name)
	}
	info, _ := Lookup(op)
	operands, err := parseOperands(info, strings.Fields(rest), labels)
	if err != nil {
		return fail("%v", err)
	}
	ins := NewInstruction(op, operands...)
	if err := ins.Validate(); err != nil {
		return nil, err
	}
	return ins, nil
}

// MustParse builds a method body from listing lines and panics on error.
func MustParse(labels *Labels, lines ...string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e, err := ParseEntry(line, labels)
		if err != nil {
			panic(err)
		}
		entries = append(entries, e)
	}
	return entries
}

func cut(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

func parseOperands(info *Info, tokens []string, labels *Labels) ([]Operand, error) {
	var operands []Operand
	i := 0
	for _, kind := range info.Operands {
		if i >= len(tokens) {
			return nil, fmt.Errorf("missing %v operand", kind)
		}
		tok := tokens[i]
		i++
		switch kind {
		case OperandInt:
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad integer %q", tok)
			}
			operands = append(operands, Int(v))
		case OperandString:
			operands = append(operands, Str(tok))
		case OperandDesc:
			operands = append(operands, Desc(tok))
		case OperandLabel:
			operands = append(operands, labels.Get(tok))
		case OperandSwitch:
			sw, err := parseSwitch(tokens[i-1:], labels)
			if err != nil {
				return nil, err
			}
			operands = append(operands, sw)
			i = len(tokens)
		case OperandConst:
			c, err := parseConst(tokens[i-1:])
			if err != nil {
				return nil, err
			}
			operands = append(operands, c)
			i = len(tokens)
		}
	}
	for ; i < len(tokens); i++ {
		if !info.Variadic {
			return nil, fmt.Errorf("unexpected operand %q", tokens[i])
		}
		operands = append(operands, Str(tokens[i]))
	}
	return operands, nil
}

func parseSwitch(tokens []string, labels *Labels) (*Switch, error) {
	sw := new(Switch)
	for _, tok := range tokens {
		if target, ok := strings.CutPrefix(tok, "default="); ok {
			sw.Default = labels.Get(target)
			continue
		}
		key, target, ok := strings.Cut(tok, ":")
		if !ok || target == "" {
			return nil, fmt.Errorf("bad switch case %q", tok)
		}
		k, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad switch key %q", key)
		}
		sw.Keys = append(sw.Keys, int32(k))
		sw.Targets = append(sw.Targets, labels.Get(target))
	}
	if sw.Default.IsZero() {
		return nil, errors.New("switch without default")
	}
	return sw, nil
}

func parseConst(tokens []string) (*Const, error) {
	kind, ok := constKindByName(tokens[0])
	if !ok {
		return nil, fmt.Errorf("unknown constant type %q", tokens[0])
	}
	rest := tokens[1:]
	if kind == ConstDynamic {
		if len(rest) != 2 {
			return nil, errors.New("dynamic constant wants a name and a descriptor")
		}
		return &Const{Type: kind, Value: rest[0], Descriptor: rest[1]}, nil
	}
	if len(rest) == 0 && kind != ConstString {
		return nil, fmt.Errorf("%v constant without value", kind)
	}
	c := &Const{Type: kind, Value: strings.Join(rest, " ")}
	switch kind {
	case ConstInt:
		if _, err := strconv.ParseInt(c.Value, 0, 32); err != nil {
			return nil, fmt.Errorf("bad int constant %q", c.Value)
		}
	case ConstLong:
		if _, err := strconv.ParseInt(c.Value, 0, 64); err != nil {
			return nil, fmt.Errorf("bad long constant %q", c.Value)
		}
	case ConstFloat:
		if _, err := strconv.ParseFloat(c.Value, 32); err != nil {
			return nil, fmt.Errorf("bad float constant %q", c.Value)
		}
	case ConstDouble:
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			return nil, fmt.Errorf("bad double constant %q", c.Value)
		}
	}
	return c, nil
}
