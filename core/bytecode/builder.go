package bytecode

// MethodBuilder assembles a Method entry by entry. The first error is kept
// and returned by Build; later calls are ignored.
type MethodBuilder struct {
	m      Method
	labels *Labels
	err    error
}

// NewMethod starts a method with its own label arena.
func NewMethod(name, desc string, static bool) *MethodBuilder {
	return &MethodBuilder{
		m:      Method{Name: name, Descriptor: desc, Static: static},
		labels: NewLabels(),
	}
}

// Labels exposes the arena the builder interns label names in.
func (b *MethodBuilder) Labels() *Labels { return b.labels }

// L returns the label named uid.
func (b *MethodBuilder) L(uid string) Label { return b.labels.Get(uid) }

// Op appends an instruction.
func (b *MethodBuilder) Op(op Opcode, operands ...Operand) *MethodBuilder {
	if b.err == nil {
		b.m.Entries = append(b.m.Entries, NewInstruction(op, operands...))
	}
	return b
}

// Label places the label named uid at the current position.
func (b *MethodBuilder) Label(uid string) *MethodBuilder {
	if b.err == nil {
		b.m.Entries = append(b.m.Entries, b.labels.Get(uid))
	}
	return b
}

// Asm appends entries written in the listing syntax.
func (b *MethodBuilder) Asm(lines ...string) *MethodBuilder {
	for _, line := range lines {
		if b.err != nil {
			break
		}
		e, err := ParseEntry(line, b.labels)
		if err != nil {
			b.err = err
			break
		}
		b.m.Entries = append(b.m.Entries, e)
	}
	return b
}

// Try adds an exception range. An empty typ catches everything.
func (b *MethodBuilder) Try(start, end, handler, typ string) *MethodBuilder {
	b.m.Handlers = append(b.m.Handlers, ExceptionRange{
		Start:   b.labels.Get(start),
		End:     b.labels.Get(end),
		Handler: b.labels.Get(handler),
		Type:    typ,
	})
	return b
}

// Declare records maxs that are already known.
func (b *MethodBuilder) Declare(maxs Maxs) *MethodBuilder {
	b.m.Declared = &maxs
	return b
}

func (b *MethodBuilder) Build() (*Method, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := b.m
	return &m, nil
}
