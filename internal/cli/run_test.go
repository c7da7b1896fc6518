package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: add_one
description: "Adds a single item"
steps:
  - action: add
    item: "2"
`

const failingScenario = `name: wrong_expectation
description: "Expects an error that never happens"
steps:
  - action: add
    item: "2"
    expect_error: cart/unknown-item
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeCommand(args ...string) (string, error) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunCommand_Pass(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "add_one.yaml", passingScenario)

	out, err := executeCommand("run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario add_one")
	assert.Contains(t, out, "0001 cart.add item=2 qty=1")
	assert.Contains(t, out, "cart count=1 total=")
	assert.NotContains(t, out, "FAIL")
}

func TestRunCommand_Fail(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "wrong.yaml", failingScenario)

	out, err := executeCommand("run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario wrong_expectation failed")
	assert.Contains(t, out, "FAIL steps[0] add: expected error cart/unknown-item, got success")
}

func TestRunCommand_MissingFile(t *testing.T) {
	_, err := executeCommand("run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRunCommand_InvalidScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "bad.yaml", "name: bad\nsteps:\n  - action: fly\n")

	_, err := executeCommand("run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_JSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "add_one.yaml", passingScenario)

	out, err := executeCommand("run", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Name  string   `json:"name"`
			Pass  bool     `json:"pass"`
			Trace []string `json:"trace"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "add_one", resp.Data.Name)
	assert.True(t, resp.Data.Pass)
	require.NotEmpty(t, resp.Data.Trace)
	assert.Equal(t, "0001 cart.add item=2 qty=1", resp.Data.Trace[0])
}

func TestRunCommand_RequiresOneArg(t *testing.T) {
	_, err := executeCommand("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
