package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmflow/jflow/core/bytecode"
)

func build(t *testing.T, b *bytecode.MethodBuilder) *bytecode.Method {
	t.Helper()
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestSuccessors(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "(I)I", true).Asm(
		"iload_0",                        // 0
		"ifeq zero",                      // 1
		"iload_0",                        // 2
		"lookupswitch default=d 1:a 2:a", // 3
		"label a",                        // 4
		"iconst_1",                       // 5
		"goto d",                         // 6
		"label zero",                     // 7
		"iconst_0",                       // 8
		"ireturn",                        // 9
		"label d",                        // 10
		"iconst_m1",                      // 11
		"athrow",                         // 12
	))
	g, err := Resolve(m)
	require.NoError(t, err)
	assert.Equal(t, 13, g.Len())

	assert.Equal(t, []int{1}, g.Successors(0))
	assert.Equal(t, []int{2, 7}, g.Successors(1))
	// Duplicate switch targets collapse; no fallthrough for switches.
	assert.Equal(t, []int{4, 10}, g.Successors(3))
	assert.Equal(t, []int{5}, g.Successors(4))
	assert.Equal(t, []int{10}, g.Successors(6))
	assert.Empty(t, g.Successors(9))
	assert.Empty(t, g.Successors(12))

	assert.Equal(t, bytecode.KindSwitch, g.Kind(3))
	assert.Equal(t, bytecode.KindNormal, g.Kind(4))
	pos, ok := g.Position(m.Entries[7].(bytecode.Label))
	assert.True(t, ok)
	assert.Equal(t, 7, pos)
	assert.Equal(t, 13, g.Edges())
}

func TestSuccessorsAtEnd(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "()V", true).Asm(
		"label top",
		"iconst_0",
		"ifeq top",
	))
	g, err := Resolve(m)
	require.NoError(t, err)
	// Falling off the end is not an edge.
	assert.Equal(t, []int{0}, g.Successors(2))
	assert.Empty(t, g.HandlersCovering(1))
}

func TestConditionalToNextEntry(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "()V", true).Asm(
		"iconst_0",
		"ifeq next",
		"label next",
		"return",
	))
	g, err := Resolve(m)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, g.Successors(1))
}

func TestSubroutineSuccessors(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "()V", true).Asm(
		"jsr sub",   // 0
		"return",    // 1
		"label sub", // 2
		"astore_0",  // 3
		"ret 0",     // 4
	))
	g, err := Resolve(m)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, g.Successors(0))
	assert.Empty(t, g.Successors(4))
}

func TestHandlersCovering(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "()V", true).Asm(
		"label s1", // 0
		"iconst_1", // 1
		"label s2", // 2
		"pop",      // 3
		"label e1", // 4
		"return",   // 5
		"label e2", // 6
		"label h",  // 7
		"athrow",   // 8
		"label h2", // 9
		"athrow",   // 10
	).
		Try("s1", "e1", "h", "java/lang/Exception").
		Try("s2", "e2", "h", "").
		Try("s2", "e1", "h2", "java/lang/Error"))
	g, err := Resolve(m)
	require.NoError(t, err)

	assert.Equal(t, []int{7}, g.HandlersCovering(0))
	assert.Equal(t, []int{7}, g.HandlersCovering(1))
	assert.Equal(t, []int{7, 9}, g.HandlersCovering(3))
	// Both bounds are inclusive.
	assert.Equal(t, []int{7, 9}, g.HandlersCovering(4))
	assert.Equal(t, []int{7}, g.HandlersCovering(6))
	assert.Empty(t, g.HandlersCovering(8))
}

func TestResolveErrors(t *testing.T) {
	labels := bytecode.NewLabels()
	missing := &bytecode.Method{Name: "f", Descriptor: "()V", Static: true, Entries: []bytecode.Entry{
		bytecode.NewInstruction(bytecode.GOTO, labels.Get("nowhere")),
	}}
	_, err := Resolve(missing)
	assert.ErrorIs(t, err, bytecode.ErrLabelNotFound)
	assert.Contains(t, err.Error(), "nowhere")

	dup := build(t, bytecode.NewMethod("f", "()V", true).Asm("label a", "label a", "return"))
	_, err = Resolve(dup)
	assert.ErrorIs(t, err, bytecode.ErrDuplicateLabel)

	badHandler := build(t, bytecode.NewMethod("f", "()V", true).Asm("label a", "return").Try("a", "a", "h", ""))
	_, err = Resolve(badHandler)
	assert.ErrorIs(t, err, bytecode.ErrLabelNotFound)

	unknown := &bytecode.Method{Entries: []bytecode.Entry{bytecode.NewInstruction(0xfe)}}
	_, err = Resolve(unknown)
	assert.ErrorIs(t, err, bytecode.ErrUnrecognizedOpcode)

	badOperand := &bytecode.Method{Entries: []bytecode.Entry{bytecode.NewInstruction(bytecode.ILOAD)}}
	_, err = Resolve(badOperand)
	assert.ErrorIs(t, err, bytecode.ErrInvalidOperand)

	// Labels from another method's arena never resolve.
	other := bytecode.NewLabels()
	foreign := &bytecode.Method{Entries: []bytecode.Entry{
		labels.Get("x"),
		bytecode.NewInstruction(bytecode.GOTO, other.Get("x")),
	}}
	_, err = Resolve(foreign)
	assert.ErrorIs(t, err, bytecode.ErrLabelNotFound)
}

func TestBlocks(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "(I)I", true).Asm(
		"label try",  // 0  block 0
		"iload_0",    // 1
		"ifeq zero",  // 2
		"iconst_1",   // 3  block 1
		"ireturn",    // 4
		"label zero", // 5  block 2
		"label end",  // 6
		"iconst_0",   // 7
		"ireturn",    // 8
		"label h",    // 9  block 3
		"athrow",     // 10
	).Try("try", "end", "h", ""))
	g, err := Resolve(m)
	require.NoError(t, err)

	blocks := g.Blocks()
	require.Len(t, blocks, 4)
	assert.Equal(t, 0, blocks[0].First())
	assert.Equal(t, 2, blocks[0].Last())
	assert.Equal(t, 3, blocks[1].First())
	assert.Equal(t, 5, blocks[2].First())
	assert.Equal(t, 8, blocks[2].Last())
	assert.Equal(t, 4, blocks[2].Size())
	assert.True(t, blocks[3].IsHandler())

	require.Len(t, blocks[0].Children(), 2)
	assert.Equal(t, 1, blocks[0].Children()[0].Num())
	assert.Equal(t, 2, blocks[0].Children()[1].Num())
	assert.Empty(t, blocks[1].Children())
	require.Len(t, blocks[2].Parents(), 1)
	assert.Equal(t, 0, blocks[2].Parents()[0].Num())

	require.Len(t, blocks[0].Catchers(), 1)
	assert.Equal(t, 3, blocks[0].Catchers()[0].Num())
	require.Len(t, blocks[2].Catchers(), 1)
	assert.Empty(t, blocks[3].Catchers())
}

func TestBlocksEmpty(t *testing.T) {
	g, err := Resolve(&bytecode.Method{Name: "f", Descriptor: "()V"})
	require.NoError(t, err)
	assert.Nil(t, g.Blocks())
	assert.Equal(t, 0, g.Len())
}
