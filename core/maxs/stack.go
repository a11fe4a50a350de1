package maxs

import (
	"errors"
	"fmt"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/descriptor"
	"github.com/jvmflow/jflow/core/flow"
)

// MaxStackLimit is the deepest operand stack a class file can declare.
const MaxStackLimit = 0xffff

var (
	ErrStackUnderflow = errors.New("operand stack underflow")
	ErrStackLimit     = errors.New("operand stack limit exceeded")
)

// StackError reports an instruction that takes the operand stack below zero
// or above MaxStackLimit.
type StackError struct {
	Op    bytecode.Opcode
	Depth int // depth before the instruction
	Delta int
	Err   error
}

func (e *StackError) Error() string {
	return fmt.Sprintf("%v: %v (depth %d, delta %+d)", e.Err, e.Op, e.Depth, e.Delta)
}

func (e *StackError) Unwrap() error { return e.Err }

// StackDepth is the operand stack height in words. Joins take the deeper
// stack.
type StackDepth struct {
	depth int
	descs descriptor.Parser
}

// NewStackDepth returns an empty stack resolving descriptors through descs.
func NewStackDepth(descs descriptor.Parser) StackDepth {
	if descs == nil {
		descs = descriptor.Direct
	}
	return StackDepth{descs: descs}
}

func (s StackDepth) Depth() int { return s.depth }

func (s StackDepth) Merge(other StackDepth) StackDepth {
	if other.depth > s.depth {
		s.depth = other.depth
	}
	return s
}

func (s StackDepth) Transfer(ins *bytecode.Instruction) (StackDepth, error) {
	pops, pushes, err := bytecode.StackEffect(ins, s.descs)
	if err != nil {
		return s, err
	}
	delta := pushes - pops
	if pops > s.depth {
		return s, &StackError{Op: ins.Op(), Depth: s.depth, Delta: delta, Err: ErrStackUnderflow}
	}
	next := s.depth + delta
	if next > MaxStackLimit {
		return s, &StackError{Op: ins.Op(), Depth: s.depth, Delta: delta, Err: ErrStackLimit}
	}
	s.depth = next
	return s, nil
}

// EnterHandler leaves only the thrown exception on the stack.
func (s StackDepth) EnterHandler() StackDepth {
	s.depth = 1
	return s
}

func (s StackDepth) Equal(other StackDepth) bool { return s.depth == other.depth }

func (s StackDepth) Size() int { return s.depth }

var _ flow.Value[StackDepth] = StackDepth{}

// MaxStack returns the deepest operand stack reachable in g.
func MaxStack(g *flow.Graph, descs descriptor.Parser) (int, error) {
	res, err := flow.Fixpoint(g, NewStackDepth(descs))
	if err != nil {
		return 0, err
	}
	return res.Max, nil
}
