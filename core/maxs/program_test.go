package maxs

import (
	"context"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/metrics"
)

func program(t *testing.T, n int, broken ...int) []*bytecode.Method {
	t.Helper()
	bad := make(map[int]bool)
	for _, i := range broken {
		bad[i] = true
	}
	methods := make([]*bytecode.Method, n)
	for i := range methods {
		b := bytecode.NewMethod(fmt.Sprintf("m%d", i), "(I)I", true)
		if bad[i] {
			b.Asm("pop", "iload_0", "ireturn")
		} else {
			b.Asm("iload_0", "iconst_1", "iadd", "ireturn")
		}
		methods[i] = build(t, b)
	}
	return methods
}

func TestAnalyzeProgram(t *testing.T) {
	r := metrics.NewRegistry()
	a := NewAnalyzer(Config{Workers: 4, Registry: r})
	results, err := a.AnalyzeProgram(context.Background(), program(t, 50))
	require.NoError(t, err)
	require.Len(t, results, 50)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("m%d", i), res.Method.Name)
		assert.Equal(t, bytecode.Maxs{Stack: 2, Locals: 1}, res.Report.Maxs)
	}
	assert.Equal(t, int64(50), metrics.GetOrRegisterCounter("maxs/methods", r).Snapshot().Count())
	assert.Equal(t, int64(0), metrics.GetOrRegisterCounter("maxs/failed", r).Snapshot().Count())
	assert.Equal(t, 50, metrics.GetOrRegisterLabel("maxs/run", r).Snapshot().Value()["methods"])
	// Every method shares one descriptor.
	assert.Equal(t, 1, a.Descriptors().Len())
}

func TestAnalyzeProgramPartialFailure(t *testing.T) {
	r := metrics.NewRegistry()
	a := NewAnalyzer(Config{Workers: 3, Registry: r})
	results, err := a.AnalyzeProgram(context.Background(), program(t, 10, 2, 7))
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, err, ErrStackUnderflow)

	for i, res := range results {
		if i == 2 || i == 7 {
			assert.ErrorIs(t, res.Err, ErrStackUnderflow)
			assert.Contains(t, res.Err.Error(), fmt.Sprintf("method m%d", i))
			assert.Nil(t, res.Report)
			continue
		}
		require.NoError(t, res.Err)
		assert.Equal(t, 2, res.Report.Maxs.Stack)
	}
	assert.Equal(t, int64(2), metrics.GetOrRegisterCounter("maxs/failed", r).Snapshot().Count())
}

func TestAnalyzeProgramFailFast(t *testing.T) {
	a := NewAnalyzer(Config{Workers: 1, FailFast: true, Registry: metrics.NewRegistry()})
	results, err := a.AnalyzeProgram(context.Background(), program(t, 200, 0))
	require.Error(t, err)
	assert.ErrorIs(t, results[0].Err, ErrStackUnderflow)

	// With one worker the failure cancels the run long before the end.
	assert.ErrorIs(t, results[199].Err, context.Canceled)
}

func TestAnalyzeProgramCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAnalyzer(Config{Registry: metrics.NewRegistry()})
	results, err := a.AnalyzeProgram(ctx, program(t, 5))
	require.Error(t, err)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestAnalyzeProgramDeclared(t *testing.T) {
	m := build(t, bytecode.NewMethod("f", "()V", true).Asm("return").Declare(bytecode.Maxs{Stack: 4, Locals: 4}))

	r := metrics.NewRegistry()
	results, err := NewAnalyzer(Config{Registry: r}).AnalyzeProgram(context.Background(), []*bytecode.Method{m})
	require.NoError(t, err)
	assert.True(t, results[0].Report.Declared)
	assert.Equal(t, bytecode.Maxs{Stack: 4, Locals: 4}, results[0].Report.Maxs)
	assert.Equal(t, int64(1), metrics.GetOrRegisterCounter("maxs/declared", r).Snapshot().Count())

	results, err = NewAnalyzer(Config{Recompute: true, Registry: metrics.NewRegistry()}).
		AnalyzeProgram(context.Background(), []*bytecode.Method{m})
	require.NoError(t, err)
	assert.False(t, results[0].Report.Declared)
	assert.Equal(t, bytecode.Maxs{}, results[0].Report.Maxs)
}

func TestAnalyzeProgramEmpty(t *testing.T) {
	results, err := NewAnalyzer(Config{Registry: metrics.NewRegistry()}).AnalyzeProgram(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
