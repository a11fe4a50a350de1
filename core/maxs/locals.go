package maxs

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/descriptor"
	"github.com/jvmflow/jflow/core/flow"
)

// MaxLocalsLimit is the largest local variable array a class file can
// declare.
const MaxLocalsLimit = 0xffff

var ErrLocalsLimit = errors.New("local variable limit exceeded")

// LocalSlots is the set of local variable slots written or read so far,
// keyed by slot with the width of the widest access at that slot.
type LocalSlots struct {
	slots map[int]int
	size  int
}

// NewLocalSlots returns the slots occupied on method entry: the receiver
// when the method is not static, then each parameter.
func NewLocalSlots(static bool, mt descriptor.MethodType) LocalSlots {
	s := LocalSlots{slots: make(map[int]int, len(mt.Params)+1)}
	next := 0
	if !static {
		s.slots[0] = 1
		next = 1
	}
	for _, p := range mt.Params {
		s.slots[next] = p.Size()
		next += p.Size()
	}
	s.size = next
	return s
}

func (s LocalSlots) with(idx, width int) LocalSlots {
	if w, ok := s.slots[idx]; ok && w >= width {
		return s
	}
	out := s.clone()
	out.set(idx, width)
	return out
}

func (s LocalSlots) clone() LocalSlots {
	slots := make(map[int]int, len(s.slots)+1)
	maps.Copy(slots, s.slots)
	return LocalSlots{slots: slots, size: s.size}
}

func (s *LocalSlots) set(idx, width int) {
	s.slots[idx] = width
	if idx+width > s.size {
		s.size = idx + width
	}
}

// Width returns the recorded width of slot idx.
func (s LocalSlots) Width(idx int) (int, bool) {
	w, ok := s.slots[idx]
	return w, ok
}

func (s LocalSlots) Len() int { return len(s.slots) }

func (s LocalSlots) Merge(other LocalSlots) LocalSlots {
	out, copied := s, false
	for idx, w := range other.slots {
		if cur, ok := s.slots[idx]; ok && cur >= w {
			continue
		}
		if !copied {
			out, copied = s.clone(), true
		}
		out.set(idx, w)
	}
	return out
}

func (s LocalSlots) Transfer(ins *bytecode.Instruction) (LocalSlots, error) {
	idx, width, ok := ins.LocalVar()
	if !ok {
		return s, nil
	}
	if idx < 0 || idx+width > MaxLocalsLimit {
		return s, fmt.Errorf("%w: %v uses slot %d width %d", ErrLocalsLimit, ins.Op(), idx, width)
	}
	return s.with(idx, width), nil
}

func (s LocalSlots) EnterHandler() LocalSlots { return s }

func (s LocalSlots) Equal(other LocalSlots) bool {
	return s.size == other.size && maps.Equal(s.slots, other.slots)
}

// Size is one past the highest slot in use.
func (s LocalSlots) Size() int { return s.size }

var _ flow.Value[LocalSlots] = LocalSlots{}

// MaxLocals returns the size of the local variable array the method of g
// needs: its receiver and parameters plus every slot an instruction touches.
func MaxLocals(g *flow.Graph, descs descriptor.Parser) (int, error) {
	res, err := maxLocals(g, descs)
	if err != nil {
		return 0, err
	}
	return res.Max, nil
}

func maxLocals(g *flow.Graph, descs descriptor.Parser) (*flow.Result[LocalSlots], error) {
	if descs == nil {
		descs = descriptor.Direct
	}
	m := g.Method()
	mt, err := descs.Method(m.Descriptor)
	if err != nil {
		return nil, err
	}
	initial := NewLocalSlots(m.Static, mt)
	if initial.Size() > MaxLocalsLimit {
		return nil, fmt.Errorf("%w: parameters need %d slots", ErrLocalsLimit, initial.Size())
	}
	return flow.Fixpoint(g, initial)
}
