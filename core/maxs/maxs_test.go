package maxs

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/descriptor"
	"github.com/jvmflow/jflow/core/flow"
)

func build(t *testing.T, b *bytecode.MethodBuilder) *bytecode.Method {
	t.Helper()
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func compute(t *testing.T, b *bytecode.MethodBuilder) bytecode.Maxs {
	t.Helper()
	maxs, err := Compute(build(t, b))
	require.NoError(t, err)
	return maxs
}

func TestComputeScenarios(t *testing.T) {
	tests := []struct {
		name string
		b    *bytecode.MethodBuilder
		want bytecode.Maxs
	}{
		{
			name: "straight line",
			b: bytecode.NewMethod("sum", "()I", true).Asm(
				"iconst_1",
				"iconst_2",
				"iadd",
				"ireturn",
			),
			want: bytecode.Maxs{Stack: 2, Locals: 0},
		},
		{
			name: "loop",
			b: bytecode.NewMethod("countdown", "(I)V", true).Asm(
				"label start",
				"iload 0",
				"ifle end",
				"iload 0",
				"iconst_1",
				"isub",
				"istore 0",
				"goto start",
				"label end",
				"return",
			),
			want: bytecode.Maxs{Stack: 2, Locals: 1},
		},
		{
			name: "exception handler",
			b: bytecode.NewMethod("fail", "()V", true).Asm(
				"label start",
				"iconst_1",
				"iconst_2",
				"iconst_3",
				"athrow",
				"label end",
				"label handler",
				"astore_0",
				"return",
			).Try("start", "end", "handler", "java/lang/Exception"),
			want: bytecode.Maxs{Stack: 3, Locals: 1},
		},
		{
			name: "switch takes the deepest case",
			b: bytecode.NewMethod("pick", "(I)V", true).Asm(
				"iload_0",
				"tableswitch default=done 0:one 1:two 2:three",
				"label one",
				"iconst_1",
				"pop",
				"goto done",
				"label two",
				"iconst_1",
				"iconst_1",
				"pop2",
				"goto done",
				"label three",
				"iconst_1",
				"iconst_1",
				"iconst_1",
				"pop2",
				"pop",
				"label done",
				"return",
			),
			want: bytecode.Maxs{Stack: 3, Locals: 1},
		},
		{
			name: "static call with wide arguments",
			b: bytecode.NewMethod("call", "()F", true).Asm(
				"lconst_0",
				"dconst_0",
				"invokestatic A m (JD)F",
				"freturn",
			),
			want: bytecode.Maxs{Stack: 4, Locals: 0},
		},
		{
			name: "virtual call with wide arguments",
			b: bytecode.NewMethod("call", "()F", false).Asm(
				"aload_0",
				"lconst_0",
				"dconst_0",
				"invokevirtual A m (JD)F",
				"freturn",
			),
			want: bytecode.Maxs{Stack: 5, Locals: 1},
		},
		{
			name: "receiver and wide parameters",
			b: bytecode.NewMethod("params", "(JD)V", false).Asm(
				"return",
			),
			want: bytecode.Maxs{Stack: 0, Locals: 5},
		},
		{
			name: "wide store past parameters",
			b: bytecode.NewMethod("spill", "(I)V", true).Asm(
				"dconst_1",
				"dstore 7",
				"return",
			),
			want: bytecode.Maxs{Stack: 2, Locals: 9},
		},
		{
			name: "iinc and wide forms",
			b: bytecode.NewMethod("far", "()V", true).Asm(
				"iinc 4 1",
				"lconst_0",
				"wide lstore 300",
				"return",
			),
			want: bytecode.Maxs{Stack: 2, Locals: 302},
		},
		{
			name: "unreachable code is ignored",
			b: bytecode.NewMethod("dead", "()V", true).Asm(
				"return",
				"iconst_1",
				"iconst_1",
				"istore 40",
				"return",
			),
			want: bytecode.Maxs{Stack: 0, Locals: 0},
		},
		{
			name: "subroutine",
			b: bytecode.NewMethod("finally", "()V", true).Asm(
				"jsr sub",
				"return",
				"label sub",
				"astore_0",
				"ret 0",
			),
			want: bytecode.Maxs{Stack: 1, Locals: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compute(t, tt.b))
		})
	}
}

func TestComputeLoopUnderOverlappingHandlers(t *testing.T) {
	got := compute(t, bytecode.NewMethod("retry", "(I)V", true).Asm(
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
	assert.Equal(t, bytecode.Maxs{Stack: 2, Locals: 5}, got)
}

func TestComputeHandlerOnly(t *testing.T) {
	// Local writes inside the try region reach the handler.
	got := compute(t, bytecode.NewMethod("f", "()V", true).Asm(
		"label start",
		"iconst_0",
		"istore 6",
		"aconst_null",
		"athrow",
		"label end",
		"label handler",
		"pop",
		"return",
	).Try("start", "end", "handler", ""))
	assert.Equal(t, bytecode.Maxs{Stack: 1, Locals: 7}, got)
}

func TestComputeDeclared(t *testing.T) {
	b := func() *bytecode.MethodBuilder {
		return bytecode.NewMethod("f", "()I", true).Asm(
			"iconst_1",
			"ireturn",
		).Declare(bytecode.Maxs{Stack: 9, Locals: 9})
	}
	assert.Equal(t, bytecode.Maxs{Stack: 9, Locals: 9}, compute(t, b()))

	r, err := Analyze(build(t, b()), WithRecompute())
	require.NoError(t, err)
	assert.False(t, r.Declared)
	assert.Equal(t, bytecode.Maxs{Stack: 1, Locals: 0}, r.Maxs)
	assert.Equal(t, 1, r.Blocks)
	assert.Equal(t, 4, r.Visits)
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name string
		b    *bytecode.MethodBuilder
		want error
	}{
		{
			name: "pop on empty stack",
			b:    bytecode.NewMethod("f", "()V", true).Asm("pop", "return"),
			want: ErrStackUnderflow,
		},
		{
			name: "call without arguments",
			b:    bytecode.NewMethod("f", "()V", true).Asm("invokestatic A m (I)V", "return"),
			want: ErrStackUnderflow,
		},
		{
			name: "stack grows without bound",
			b:    bytecode.NewMethod("f", "()V", true).Asm("label top", "iconst_1", "goto top"),
			want: ErrStackLimit,
		},
		{
			name: "last local slot",
			b:    bytecode.NewMethod("f", "()V", true).Asm("iconst_0", "wide istore 65535", "return"),
			want: ErrLocalsLimit,
		},
		{
			name: "missing label",
			b:    bytecode.NewMethod("f", "()V", true).Asm("goto nowhere"),
			want: bytecode.ErrLabelNotFound,
		},
		{
			name: "bad call descriptor",
			b:    bytecode.NewMethod("f", "()V", true).Asm("invokestatic A m (V)V", "return"),
			want: descriptor.ErrInvalidDescriptor,
		},
		{
			name: "bad method descriptor",
			b:    bytecode.NewMethod("f", "(I", true).Asm("return"),
			want: descriptor.ErrInvalidDescriptor,
		},
		{
			name: "long constant through ldc2_w only",
			b: bytecode.NewMethod("f", "()V", true).Op(bytecode.LDC2_W,
				&bytecode.Const{Type: bytecode.ConstInt, Value: "1"}).Asm("pop", "return"),
			want: bytecode.ErrInvalidOperand,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(build(t, tt.b))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "method f")
		})
	}
}

func TestStackErrorContext(t *testing.T) {
	_, err := Compute(build(t, bytecode.NewMethod("f", "()V", true).Asm("iconst_1", "pop2", "return")))
	var se *StackError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, bytecode.POP2, se.Op)
	assert.Equal(t, 1, se.Depth)
	assert.Equal(t, -2, se.Delta)
}

func TestUnderflowAtOperandDependentInstruction(t *testing.T) {
	tests := []struct {
		lines []string
		entry string
		op    bytecode.Opcode
		delta int
	}{
		{[]string{"invokevirtual A m ()I", "ireturn"}, "entry 0 (invokevirtual)", bytecode.INVOKEVIRTUAL, 0},
		{[]string{"getfield A f I", "ireturn"}, "entry 0 (getfield)", bytecode.GETFIELD, 0},
		{[]string{"iconst_1", "putfield A f I", "return"}, "entry 1 (putfield)", bytecode.PUTFIELD, -2},
		{[]string{"iconst_1", "invokestatic A m (II)V", "return"}, "entry 1 (invokestatic)", bytecode.INVOKESTATIC, -2},
		{[]string{"iconst_1", "multianewarray [[I 2", "areturn"}, "entry 1 (multianewarray)", bytecode.MULTIANEWARRAY, -1},
	}
	for _, tt := range tests {
		_, err := Compute(build(t, bytecode.NewMethod("f", "()I", true).Asm(tt.lines...)))
		require.ErrorIs(t, err, ErrStackUnderflow, tt.entry)
		assert.Contains(t, err.Error(), tt.entry)

		var se *StackError
		require.True(t, errors.As(err, &se), tt.entry)
		assert.Equal(t, tt.op, se.Op)
		assert.Equal(t, tt.delta, se.Delta)
	}
}

func TestMaxStackAndLocalsShareGraph(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "(J)J", false).Asm(
		"lload_1",
		"lconst_1",
		"ladd",
		"lreturn",
	))
	g, err := flow.Resolve(m)
	require.NoError(t, err)

	cache := descriptor.NewCache(8)
	stack, err := MaxStack(g, cache)
	require.NoError(t, err)
	locals, err := MaxLocals(g, cache)
	require.NoError(t, err)
	assert.Equal(t, 4, stack)
	assert.Equal(t, 3, locals)
	assert.Equal(t, 1, cache.Len())
}

func TestSolveStates(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "(IJ)V", true).Asm(
		"iload_0",
		"ifle skip",
		"lload_1",
		"lstore_3",
		"label skip",
		"return",
	))
	g, err := flow.Resolve(m)
	require.NoError(t, err)

	flows, err := Solve(g, nil)
	require.NoError(t, err)
	want, err := Compute(m)
	require.NoError(t, err)
	assert.Equal(t, want, bytecode.Maxs{Stack: flows.Stack.Max, Locals: flows.Locals.Max})

	s, ok := flows.Stack.At(0)
	require.True(t, ok)
	assert.Equal(t, 0, s.Size())
	l, ok := flows.Locals.At(0)
	require.True(t, ok)
	assert.Equal(t, 3, l.Size())
	s, ok = flows.Stack.At(1)
	require.True(t, ok)
	assert.Equal(t, 1, s.Size())
}

func TestSolveErrors(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "(Q)V", true).Asm("return"))
	g, err := flow.Resolve(m)
	require.NoError(t, err)
	_, err = Solve(g, nil)
	assert.ErrorIs(t, err, descriptor.ErrInvalidDescriptor)
	assert.ErrorContains(t, err, "max locals")

	m = build(t, bytecode.NewMethod("f", "("+strings.Repeat("J", 32768)+")V", true).Asm("return"))
	g, err = flow.Resolve(m)
	require.NoError(t, err)
	_, err = Solve(g, descriptor.NewCache(1))
	assert.ErrorIs(t, err, ErrLocalsLimit)
	assert.ErrorContains(t, err, "max locals")
}

func TestComputeDeterministic(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "(II)I", true).Asm(
		"label loop",
		"iload_0",
		"lookupswitch default=out 1:a 5:b",
		"label a",
		"iload_1",
		"iload_1",
		"iadd",
		"istore_1",
		"goto loop",
		"label b",
		"iinc 0 -1",
		"goto loop",
		"label out",
		"iload_1",
		"ireturn",
	))
	first, err := Compute(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Compute(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, bytecode.Maxs{Stack: 2, Locals: 2}, first)
}
