// Package maxs computes the max_stack and max_locals values of a method from
// its instructions, descriptor and exception handlers.
package maxs

import (
	"github.com/pkg/errors"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/descriptor"
	"github.com/jvmflow/jflow/core/flow"
)

type options struct {
	recompute bool
	descs     descriptor.Parser
}

// Option configures Compute and Analyze.
type Option func(*options)

// WithRecompute ignores declared maxs and always runs the analyses.
func WithRecompute() Option {
	return func(o *options) { o.recompute = true }
}

// WithDescriptors resolves descriptors through p, typically a
// descriptor.Cache shared by the methods of one program.
func WithDescriptors(p descriptor.Parser) Option {
	return func(o *options) { o.descs = p }
}

// Report is the outcome of analyzing one method.
type Report struct {
	Maxs bytecode.Maxs
	// Declared is set when Maxs was taken from the method unchanged.
	Declared bool
	// Visits counts instruction transfers over both analyses.
	Visits int
	// Blocks is the number of basic blocks, zero when Declared.
	Blocks int
}

// Compute returns the maxs of m: the declared ones when present, otherwise
// the analyzed ones.
func Compute(m *bytecode.Method, opts ...Option) (bytecode.Maxs, error) {
	r, err := Analyze(m, opts...)
	if err != nil {
		return bytecode.Maxs{}, err
	}
	return r.Maxs, nil
}

// Analyze is Compute with the bookkeeping the program analyzer reports.
func Analyze(m *bytecode.Method, opts ...Option) (*Report, error) {
	o := options{descs: descriptor.Direct}
	for _, opt := range opts {
		opt(&o)
	}
	if m.Declared != nil && !o.recompute {
		return &Report{Maxs: *m.Declared, Declared: true}, nil
	}
	g, err := flow.Resolve(m)
	if err != nil {
		return nil, errors.Wrapf(err, "method %s%s", m.Name, m.Descriptor)
	}
	flows, err := Solve(g, o.descs)
	if err != nil {
		return nil, errors.Wrapf(err, "method %s%s", m.Name, m.Descriptor)
	}
	return &Report{
		Maxs:   bytecode.Maxs{Stack: flows.Stack.Max, Locals: flows.Locals.Max},
		Visits: flows.Stack.Visits + flows.Locals.Visits,
		Blocks: len(g.Blocks()),
	}, nil
}

// Flows holds the per-entry states of both analyses over one graph.
type Flows struct {
	Stack  *flow.Result[StackDepth]
	Locals *flow.Result[LocalSlots]
}

// Solve runs the stack and local analyses over g. A nil descs parses
// descriptors directly.
func Solve(g *flow.Graph, descs descriptor.Parser) (*Flows, error) {
	if descs == nil {
		descs = descriptor.Direct
	}
	stack, err := flow.Fixpoint(g, NewStackDepth(descs))
	if err != nil {
		return nil, errors.Wrap(err, "max stack")
	}
	locals, err := maxLocals(g, descs)
	if err != nil {
		return nil, errors.Wrap(err, "max locals")
	}
	return &Flows{Stack: stack, Locals: locals}, nil
}
