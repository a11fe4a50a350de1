package descriptor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldSizes(t *testing.T) {
	tests := []struct {
		desc string
		kind Kind
		size int
	}{
		{"I", Int, 1},
		{"Z", Boolean, 1},
		{"J", Long, 2},
		{"D", Double, 2},
		{"F", Float, 1},
		{"Ljava/lang/String;", Object, 1},
		{"[J", Array, 1},
		{"[[Ljava/lang/Object;", Array, 1},
	}
	for _, tt := range tests {
		typ, err := ParseField(tt.desc)
		require.NoError(t, err, tt.desc)
		assert.Equal(t, tt.kind, typ.Kind, tt.desc)
		assert.Equal(t, tt.size, typ.Size(), tt.desc)
		assert.Equal(t, tt.desc, typ.String())
	}
}

func TestParseArray(t *testing.T) {
	typ, err := ParseField("[[Ljava/util/List;")
	require.NoError(t, err)
	assert.Equal(t, 2, typ.Dims)
	require.NotNil(t, typ.Elem)
	assert.Equal(t, "java/util/List", typ.Elem.Class)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("(JD)F")
	require.NoError(t, err)
	assert.Len(t, m.Params, 2)
	assert.Equal(t, 4, m.ArgumentsSize())
	assert.Equal(t, -3, m.Delta())

	m, err = ParseMethod("()V")
	require.NoError(t, err)
	assert.Empty(t, m.Params)
	assert.Equal(t, 0, m.Delta())

	m, err = ParseMethod("(I[JLjava/lang/String;)J")
	require.NoError(t, err)
	assert.Equal(t, 3, m.ArgumentsSize())
	assert.Equal(t, -1, m.Delta())
	assert.Equal(t, "(I[JLjava/lang/String;)J", m.String())
}

func TestParseInvalid(t *testing.T) {
	for _, desc := range []string{"", "V", "Q", "L;", "Ljava/lang/String", "II", "[", "[V"} {
		_, err := ParseField(desc)
		assert.True(t, errors.Is(err, ErrInvalidDescriptor), "field %q", desc)
	}
	for _, desc := range []string{"", "I", "(I", "(V)V", "()", "()VV", "(I)X", "(Ljava/lang/Object)V"} {
		_, err := ParseMethod(desc)
		assert.True(t, errors.Is(err, ErrInvalidDescriptor), "method %q", desc)
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := ParseMethod("(IQ)V")
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 2, derr.Pos)
	assert.Equal(t, "(IQ)V", derr.Descriptor)
}

func TestCache(t *testing.T) {
	c := NewCache(2)
	m1, err := c.Method("(JJ)J")
	require.NoError(t, err)
	m2, err := c.Method("(JJ)J")
	require.NoError(t, err)
	assert.Equal(t, m1, m2)

	f, err := c.Field("D")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Size())
	assert.Equal(t, 2, c.Len())

	_, err = c.Method("(")
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
	assert.Equal(t, 2, c.Len())

	// The cache never exceeds its bound.
	for _, d := range []string{"()I", "()J", "()D"} {
		_, err := c.Method(d)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Len())
}

func TestDirectParser(t *testing.T) {
	m, err := Direct.Method("(Ljava/lang/Object;)D")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Delta())
}
