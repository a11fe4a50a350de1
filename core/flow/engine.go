package flow

import (
	"github.com/pkg/errors"

	"github.com/jvmflow/jflow/core/bytecode"
)

// Value is an abstract state carried along the graph. Values are immutable;
// every method returns a fresh value. Merge must be a join: commutative,
// associative, idempotent and never smaller than either side.
type Value[V any] interface {
	Merge(other V) V
	Transfer(ins *bytecode.Instruction) (V, error)
	EnterHandler() V
	Equal(other V) bool
	Size() int
}

// Result is the outcome of a Fixpoint run.
type Result[V Value[V]] struct {
	// Value is the join of every state seen.
	Value V
	// Max is the largest Size of any state seen, before or after an
	// instruction.
	Max int
	// Visits counts instruction transfers.
	Visits int

	entry map[int]V
}

// At returns the state on entry to index i, if i was reached.
func (r *Result[V]) At(i int) (V, bool) {
	v, ok := r.entry[i]
	return v, ok
}

// Reached is the number of entries the analysis reached.
func (r *Result[V]) Reached() int { return len(r.entry) }

// Fixpoint propagates initial from entry 0 through g until no entry state
// grows any more. An entry is processed again only when the merged incoming
// state is strictly larger than the state recorded for it.
func Fixpoint[V Value[V]](g *Graph, initial V) (*Result[V], error) {
	res := &Result[V]{
		Value: initial,
		Max:   initial.Size(),
		entry: make(map[int]V),
	}
	if g.Len() == 0 {
		return res, nil
	}
	var (
		worklist = []int{0}
		pending  = map[int]V{0: initial}
	)
	enqueue := func(i int, v V) {
		if p, ok := pending[i]; ok {
			pending[i] = p.Merge(v)
			return
		}
		pending[i] = v
		worklist = append(worklist, i)
	}
	observe := func(v V) {
		res.Value = res.Value.Merge(v)
		if s := v.Size(); s > res.Max {
			res.Max = s
		}
	}

	for len(worklist) > 0 {
		i := worklist[0]
		worklist = worklist[1:]
		current := pending[i]
		delete(pending, i)

		for i < g.Len() {
			if prev, seen := res.entry[i]; seen {
				merged := prev.Merge(current)
				if merged.Equal(prev) {
					break
				}
				current = merged
			}
			res.entry[i] = current
			observe(current)

			ins, ok := g.Instruction(i)
			if !ok {
				i++
				continue
			}
			before := current
			next, err := current.Transfer(ins)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d (%v)", i, ins.Op())
			}
			current = next
			res.Visits++
			observe(current)

			for _, h := range g.HandlersCovering(i) {
				enqueue(h, current.EnterHandler())
			}
			kind := g.Kind(i)
			if kind.Branches() {
				target := -1
				if kind.IsSubroutine() {
					target, _ = g.Position(ins.Targets()[0])
				}
				for _, s := range g.Successors(i) {
					// A subroutine returns to the next entry with the
					// stack it was called with.
					if kind.IsSubroutine() && s == i+1 {
						enqueue(s, before)
						if s != target {
							continue
						}
					}
					enqueue(s, current)
				}
				break
			}
			if kind.Terminates() {
				break
			}
			i++
		}
	}
	return res, nil
}
