package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateCommand_OK reports the section counts of a valid document.
func TestValidateCommand_OK(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"validate", "-f", "testdata/planroot/smartmake.yaml"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "is valid")
	assert.Contains(t, out.String(), "3 task(s)")
}

// TestValidateCommand_Invalid exits with the command-error code, matching
// how the other commands report spec-loading problems.
func TestValidateCommand_Invalid(t *testing.T) {
	specPath := writeSpec(t, "spec.yaml", `
files:
  out: out.bin
tasks:
  - name: A
    command: a
    generates: [out]
  - name: B
    command: b
    generates: [out]
`)
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate", "-f", specPath})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// TestTargetsCommand lists every alias with its producing task.
func TestTargetsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"targets",
		"-f", "testdata/planroot/smartmake.yaml",
		"--root", "testdata/planroot",
	})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "h_abc")
	assert.Contains(t, out.String(), "Together")
	assert.Contains(t, out.String(), "(leaf)")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flags")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "inner")
}
