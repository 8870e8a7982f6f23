package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExpandTemplate_Substitutes tests basic placeholder substitution.
func TestExpandTemplate_Substitutes(t *testing.T) {
	out, err := ExpandTemplate("task T", "train.py --lr {lr} --seed {seed}",
		Binding{"lr": "0.01", "seed": "7"})
	require.NoError(t, err)
	assert.Equal(t, "train.py --lr 0.01 --seed 7", out)
}

// TestExpandTemplate_NoPlaceholders passes templates through unchanged.
func TestExpandTemplate_NoPlaceholders(t *testing.T) {
	out, err := ExpandTemplate("task T", "echo hello", Binding{"unused": "1"})
	require.NoError(t, err)
	assert.Equal(t, "echo hello", out)
}

// TestExpandTemplate_RepeatedPlaceholder substitutes every occurrence.
func TestExpandTemplate_RepeatedPlaceholder(t *testing.T) {
	out, err := ExpandTemplate("file f", "{a}/{a}.txt", Binding{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x/x.txt", out)
}

// TestExpandTemplate_MissingReportsAll reports the full set of unbound
// names, deduplicated and sorted, so a request can be fixed in one pass.
func TestExpandTemplate_MissingReportsAll(t *testing.T) {
	_, err := ExpandTemplate("task T", "run {b} {a} {b}", Binding{})
	require.Error(t, err)

	var tErr *TemplateError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "task T", tErr.Context)
	assert.Equal(t, []string{"a", "b"}, tErr.Missing)
	assert.Contains(t, err.Error(), "task T")
}

// TestTemplateParams extracts sorted, deduplicated placeholder names.
func TestTemplateParams(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, TemplateParams("f_{b}_{a}_{b}.txt"))
	assert.Empty(t, TemplateParams("no placeholders"))
}
