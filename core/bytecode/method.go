package bytecode

import (
	"fmt"
	"strings"
)

// MarkerKind names a non-executable entry other than a label.
type MarkerKind byte

const (
	MarkerLine MarkerKind = iota + 1
	MarkerFrame
	MarkerOther
)

// Marker is a line number, stack map frame or other annotation interleaved
// with the instructions. It has no effect on the analysis.
type Marker struct {
	Kind MarkerKind
	Text string
}

func (Marker) Executable() bool { return false }

func (m Marker) String() string {
	switch m.Kind {
	case MarkerLine:
		return "line " + m.Text
	case MarkerFrame:
		return strings.TrimSpace("frame " + m.Text)
	}
	return strings.TrimSpace("marker " + m.Text)
}

// ExceptionRange is a try/catch entry: exceptions thrown between Start and
// End transfer to Handler. An empty Type catches everything.
type ExceptionRange struct {
	Start   Label
	End     Label
	Handler Label
	Type    string
}

func (r ExceptionRange) String() string {
	typ := r.Type
	if typ == "" {
		typ = "any"
	}
	return fmt.Sprintf("try %s %s %s %s", r.Start, r.End, r.Handler, typ)
}

// Maxs are the operand stack depth and local variable count a method needs.
type Maxs struct {
	Stack  int
	Locals int
}

func (m Maxs) String() string {
	return fmt.Sprintf("stack=%d locals=%d", m.Stack, m.Locals)
}

// Method is one method body as handed over by the class reader.
type Method struct {
	Name       string
	Descriptor string
	Static     bool
	Entries    []Entry
	Handlers   []ExceptionRange

	// Declared holds maxs already known for the method, if any.
	Declared *Maxs
}

// Instructions counts the executable entries.
func (m *Method) Instructions() int {
	n := 0
	for _, e := range m.Entries {
		if e.Executable() {
			n++
		}
	}
	return n
}

// Listing renders the body one entry per line, in the syntax ParseEntry
// accepts.
func (m *Method) Listing() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", m.Name, m.Descriptor)
	for i, e := range m.Entries {
		text, indent := e.String(), "    "
		if l, ok := e.(Label); ok {
			text, indent = "label "+l.String(), "  "
		} else if !e.Executable() {
			indent = "  "
		}
		fmt.Fprintf(&b, "%4d%s%s\n", i, indent, text)
	}
	for _, h := range m.Handlers {
		fmt.Fprintf(&b, "      %s\n", h)
	}
	return b.String()
}
