package flow

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/jvmflow/jflow/core/bytecode"
)

// Graph is the control flow of one method body over entry indexes. It is
// built once per analysis by Resolve and is read-only afterwards.
type Graph struct {
	method   *bytecode.Method
	kinds    []bytecode.Kind
	succs    [][]int
	handlers [][]int
	labels   map[bytecode.Label]int
}

// Resolve validates the instructions of m, resolves every label it refers to
// and computes successor and handler edges.
func Resolve(m *bytecode.Method) (*Graph, error) {
	n := len(m.Entries)
	g := &Graph{
		method:   m,
		kinds:    make([]bytecode.Kind, n),
		succs:    make([][]int, n),
		handlers: make([][]int, n),
		labels:   make(map[bytecode.Label]int),
	}
	// Label positions
	for i, e := range m.Entries {
		l, ok := e.(bytecode.Label)
		if !ok {
			continue
		}
		if l.IsZero() {
			return nil, errors.Wrapf(&bytecode.LabelError{Label: l, Err: bytecode.ErrLabelNotFound}, "entry %d", i)
		}
		if _, dup := g.labels[l]; dup {
			return nil, errors.Wrapf(&bytecode.LabelError{Label: l, Err: bytecode.ErrDuplicateLabel}, "entry %d", i)
		}
		g.labels[l] = i
	}
	for i, e := range m.Entries {
		if err := g.link(i, e); err != nil {
			return nil, err
		}
	}
	if err := g.linkHandlers(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) position(l bytecode.Label) (int, error) {
	if pos, ok := g.labels[l]; ok {
		return pos, nil
	}
	return 0, &bytecode.LabelError{Label: l, Err: bytecode.ErrLabelNotFound}
}

func (g *Graph) fallThrough(i int) []int {
	if i+1 < len(g.kinds) {
		return []int{i + 1}
	}
	return nil
}

func (g *Graph) link(i int, e bytecode.Entry) error {
	ins, ok := e.(*bytecode.Instruction)
	if !ok {
		if e == nil || e.Executable() {
			return errors.Errorf("entry %d: unsupported entry %T", i, e)
		}
		g.succs[i] = g.fallThrough(i)
		return nil
	}
	if err := ins.Validate(); err != nil {
		return errors.Wrapf(err, "entry %d", i)
	}
	info, _ := ins.Info()
	g.kinds[i] = info.Kind

	var targets []int
	for _, l := range ins.Targets() {
		pos, err := g.position(l)
		if err != nil {
			return errors.Wrapf(err, "entry %d (%v)", i, ins.Op())
		}
		targets = append(targets, pos)
	}
	switch info.Kind {
	case bytecode.KindJump:
		g.succs[i] = targets
	case bytecode.KindConditional, bytecode.KindSubroutine, bytecode.KindSwitch:
		set := mapset.NewThreadUnsafeSet[int](targets...)
		if info.Kind != bytecode.KindSwitch {
			for _, next := range g.fallThrough(i) {
				set.Add(next)
			}
		}
		succs := set.ToSlice()
		slices.Sort(succs)
		g.succs[i] = succs
	case bytecode.KindReturn, bytecode.KindThrow, bytecode.KindRet:
	default:
		g.succs[i] = g.fallThrough(i)
	}
	return nil
}

func (g *Graph) linkHandlers() error {
	covering := make([]mapset.Set[int], len(g.kinds))
	for n, r := range g.method.Handlers {
		start, err := g.position(r.Start)
		if err != nil {
			return errors.Wrapf(err, "exception range %d start", n)
		}
		end, err := g.position(r.End)
		if err != nil {
			return errors.Wrapf(err, "exception range %d end", n)
		}
		handler, err := g.position(r.Handler)
		if err != nil {
			return errors.Wrapf(err, "exception range %d handler", n)
		}
		for i := start; i <= end; i++ {
			if covering[i] == nil {
				covering[i] = mapset.NewThreadUnsafeSet[int]()
			}
			covering[i].Add(handler)
		}
	}
	for i, set := range covering {
		if set == nil {
			continue
		}
		hs := set.ToSlice()
		slices.Sort(hs)
		g.handlers[i] = hs
	}
	return nil
}

// Method is the method the graph was built from.
func (g *Graph) Method() *bytecode.Method { return g.method }

// Len is the number of entries, executable or not.
func (g *Graph) Len() int { return len(g.kinds) }

func (g *Graph) Entry(i int) bytecode.Entry { return g.method.Entries[i] }

// Instruction returns the instruction at i, or false for labels and markers.
func (g *Graph) Instruction(i int) (*bytecode.Instruction, bool) {
	ins, ok := g.method.Entries[i].(*bytecode.Instruction)
	return ins, ok
}

// Kind is the control transfer kind at i; non-executable entries are
// KindNormal.
func (g *Graph) Kind(i int) bytecode.Kind { return g.kinds[i] }

// Successors lists the entry indexes control may reach directly after i,
// ascending and without duplicates. Falling off the end of the body is not
// an edge.
func (g *Graph) Successors(i int) []int { return g.succs[i] }

// HandlersCovering lists the handler entry indexes of every exception range
// whose start index <= i <= end index.
func (g *Graph) HandlersCovering(i int) []int { return g.handlers[i] }

// Position is the entry index of a placed label.
func (g *Graph) Position(l bytecode.Label) (int, bool) {
	pos, ok := g.labels[l]
	return pos, ok
}

// Edges counts successor edges, for diagnostics.
func (g *Graph) Edges() int {
	n := 0
	for _, s := range g.succs {
		n += len(s)
	}
	return n
}
