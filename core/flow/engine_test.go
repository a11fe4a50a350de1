package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/descriptor"
)

// depth is a minimal stack height lattice for exercising the engine.
type depth int

var errTooDeep = errors.New("too deep")

func (d depth) Merge(o depth) depth {
	if o > d {
		return o
	}
	return d
}

func (d depth) Transfer(ins *bytecode.Instruction) (depth, error) {
	delta, err := bytecode.StackDelta(ins, descriptor.Direct)
	if err != nil {
		return 0, err
	}
	if d+depth(delta) > 100 {
		return 0, errTooDeep
	}
	return d + depth(delta), nil
}

func (depth) EnterHandler() depth  { return 1 }
func (d depth) Equal(o depth) bool { return d == o }
func (d depth) Size() int          { return int(d) }

func run(t *testing.T, b *bytecode.MethodBuilder) *Result[depth] {
	t.Helper()
	g, err := Resolve(build(t, b))
	require.NoError(t, err)
	res, err := Fixpoint[depth](g, 0)
	require.NoError(t, err)
	return res
}

func TestFixpointStraightLine(t *testing.T) {
	res := run(t, bytecode.NewMethod("f", "()I", true).Asm(
		"iconst_1",
		"iconst_2",
		"iadd",
		"ireturn",
	))
	assert.Equal(t, 2, res.Max)
	assert.Equal(t, 4, res.Visits)
	at, ok := res.At(2)
	require.True(t, ok)
	assert.Equal(t, depth(2), at)
}

func TestFixpointBranchesTakeMaximum(t *testing.T) {
	res := run(t, bytecode.NewMethod("f", "(I)I", true).Asm(
		"iload_0",
		"ifeq small",
		"iconst_1",
		"iconst_2",
		"iconst_3",
		"iadd",
		"iadd",
		"ireturn",
		"label small",
		"iconst_0",
		"ireturn",
	))
	assert.Equal(t, 3, res.Max)
}

func TestFixpointLoopTerminates(t *testing.T) {
	res := run(t, bytecode.NewMethod("f", "(I)V", true).Asm(
		"label start",
		"iload_0",
		"ifle end",
		"iload_0",
		"iconst_1",
		"isub",
		"istore_0",
		"goto start",
		"label end",
		"return",
	))
	assert.Equal(t, 2, res.Max)
	assert.Equal(t, 10, res.Reached())
}

func TestFixpointLoopUnderOverlappingHandlers(t *testing.T) {
	// Every handler jumps back to the loop head.
	res := run(t, bytecode.NewMethod("retry", "(I)V", true).Asm(
		"label top",
		"iload_0",
		"ifle done",
		"label a",
		"iload_0",
		"istore_1",
		"label b",
		"iinc 0 -1",
		"iconst_1",
		"iconst_2",
		"pop2",
		"label c",
		"aconst_null",
		"athrow",
		"label d",
		"label h1",
		"astore_2",
		"goto top",
		"label h2",
		"astore_3",
		"goto top",
		"label h3",
		"astore 4",
		"goto top",
		"label done",
		"return",
	).
		Try("a", "c", "h1", "").
		Try("b", "d", "h2", "java/lang/RuntimeException").
		Try("c", "d", "h3", "java/lang/Exception"))
	assert.Equal(t, 2, res.Max)
	// Only the label after athrow is never reached.
	assert.Equal(t, 25, res.Reached())
	_, ok := res.At(14)
	assert.False(t, ok)
	for _, h := range []int{15, 18, 21} {
		at, ok := res.At(h)
		require.True(t, ok, "handler %d", h)
		assert.Equal(t, depth(1), at, "handler %d", h)
	}
	top, _ := res.At(0)
	assert.Equal(t, depth(0), top)
}

func TestFixpointHandlerEntersWithOne(t *testing.T) {
	res := run(t, bytecode.NewMethod("f", "()V", true).Asm(
		"label start",
		"iconst_1",
		"iconst_2",
		"iconst_3",
		"athrow",
		"label end",
		"label handler",
		"pop",
		"return",
	).Try("start", "end", "handler", "java/lang/Exception"))
	assert.Equal(t, 3, res.Max)
	at, ok := res.At(6)
	require.True(t, ok)
	assert.Equal(t, depth(1), at)
}

func TestFixpointSubroutineReturnPoint(t *testing.T) {
	res := run(t, bytecode.NewMethod("f", "()V", true).Asm(
		"iconst_0",  // 0
		"jsr sub",   // 1
		"pop",       // 2
		"return",    // 3
		"label sub", // 4
		"astore_0",  // 5
		"ret 0",     // 6
	))
	// The return address is on the stack inside the subroutine only.
	sub, _ := res.At(4)
	assert.Equal(t, depth(2), sub)
	back, _ := res.At(2)
	assert.Equal(t, depth(1), back)
	assert.Equal(t, 2, res.Max)
}

func TestFixpointSkipsUnreachable(t *testing.T) {
	res := run(t, bytecode.NewMethod("f", "()V", true).Asm(
		"return",
		"iconst_1",
		"iconst_1",
		"iconst_1",
		"return",
	))
	assert.Equal(t, 0, res.Max)
	assert.Equal(t, 1, res.Reached())
	_, ok := res.At(1)
	assert.False(t, ok)
}

func TestFixpointErrors(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "()V", true).Asm(
		"invokestatic A m (Q)V",
		"return",
	))
	g, err := Resolve(m)
	require.NoError(t, err)
	_, err = Fixpoint[depth](g, 0)
	assert.ErrorIs(t, err, descriptor.ErrInvalidDescriptor)
	assert.Contains(t, err.Error(), "entry 0")

	// A loop that grows the stack on every turn is cut off by the value.
	grow := build(t, bytecode.NewMethod("f", "()V", true).Asm(
		"label top",
		"iconst_1",
		"goto top",
	))
	g, err = Resolve(grow)
	require.NoError(t, err)
	_, err = Fixpoint[depth](g, 0)
	assert.ErrorIs(t, err, errTooDeep)
}

func TestFixpointEmpty(t *testing.T) {
	g, err := Resolve(&bytecode.Method{Name: "f", Descriptor: "()V", Static: true})
	require.NoError(t, err)
	res, err := Fixpoint[depth](g, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Max)
	assert.Equal(t, 0, res.Visits)
}

func TestFixpointDeterministic(t *testing.T) {
	b := func() *bytecode.MethodBuilder {
		return bytecode.NewMethod("f", "(I)I", true).Asm(
			"iload_0",
			"tableswitch default=d 0:a 1:b 2:c",
			"label a",
			"iconst_1",
			"goto d",
			"label b",
			"iconst_1",
			"iconst_1",
			"pop2",
			"goto d",
			"label c",
			"lconst_1",
			"lconst_1",
			"pop2",
			"pop2",
			"label d",
			"iconst_0",
			"ireturn",
		)
	}
	first := run(t, b())
	for i := 0; i < 5; i++ {
		again := run(t, b())
		assert.Equal(t, first.Max, again.Max)
		assert.Equal(t, first.Visits, again.Visits)
	}
	// Switch cases are alternatives: the deepest case wins, they do not add up.
	assert.Equal(t, 4, first.Max)
}
