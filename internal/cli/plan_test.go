package cli

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPlanCommand_Golden renders the full experiment plan against a
// committed fixture root, so resolved paths are stable.
func TestPlanCommand_Golden(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"plan", "h_abc",
		"-f", "testdata/planroot/smartmake.yaml",
		"--root", "testdata/planroot",
		"--set", "a=1", "--set", "b=2", "--set", "c=3",
	})
	require.NoError(t, cmd.Execute())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plan", out.Bytes())
}

// TestPlanCommand_UnknownTarget surfaces the graph error as a command error.
func TestPlanCommand_UnknownTarget(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		"plan", "nonsense",
		"-f", "testdata/planroot/smartmake.yaml",
		"--root", "testdata/planroot",
	})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
