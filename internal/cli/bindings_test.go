package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartmake/internal/model"
)

// TestParseBindings_Single maps one --set per parameter to one binding.
func TestParseBindings_Single(t *testing.T) {
	bindings, err := ParseBindings([]string{"a=1", "b=2", "c=3"})
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, model.Binding{"a": "1", "b": "2", "c": "3"}, bindings[0])
}

// TestParseBindings_CrossProduct expands repeated names into every
// combination, in a deterministic order.
func TestParseBindings_CrossProduct(t *testing.T) {
	bindings, err := ParseBindings([]string{"a=1", "a=2", "b=x", "b=y", "c=0"})
	require.NoError(t, err)
	require.Len(t, bindings, 4)
	assert.Equal(t, []model.Binding{
		{"a": "1", "b": "x", "c": "0"},
		{"a": "1", "b": "y", "c": "0"},
		{"a": "2", "b": "x", "c": "0"},
		{"a": "2", "b": "y", "c": "0"},
	}, bindings)
}

// TestParseBindings_Empty yields one empty binding so unparameterized specs
// build without flags.
func TestParseBindings_Empty(t *testing.T) {
	bindings, err := ParseBindings(nil)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Empty(t, bindings[0])
}

// TestParseBindings_ValueMayContainEquals splits on the first equals only.
func TestParseBindings_ValueMayContainEquals(t *testing.T) {
	bindings, err := ParseBindings([]string{"flags=-x=1"})
	require.NoError(t, err)
	assert.Equal(t, "-x=1", bindings[0]["flags"])
}

// TestParseBindings_Malformed rejects flags without a name=value shape.
func TestParseBindings_Malformed(t *testing.T) {
	for _, bad := range []string{"a", "=1", ""} {
		_, err := ParseBindings([]string{bad})
		assert.Error(t, err, bad)
	}
}
