package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Terminal(t *testing.T) {
	assert.False(t, Pending.Terminal())
	assert.False(t, Ready.Terminal())
	assert.False(t, Running.Terminal())
	assert.True(t, Succeeded.Terminal())
	assert.True(t, Failed.Terminal())
	assert.True(t, SkippedFresh.Terminal())
	assert.True(t, SkippedFailed.Terminal())
}

func TestState_SatisfiesDependents(t *testing.T) {
	assert.True(t, Succeeded.satisfiesDependents())
	assert.True(t, SkippedFresh.satisfiesDependents())
	assert.False(t, Failed.satisfiesDependents())
	assert.False(t, SkippedFailed.satisfiesDependents())
	assert.False(t, Running.satisfiesDependents())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "skipped-failed", SkippedFailed.String())
}
