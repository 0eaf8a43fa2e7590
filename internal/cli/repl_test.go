package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplCommand_EvaluatesPipedInput(t *testing.T) {
	opts, compiler := testOptions(t)
	cmd := NewReplCommand(opts)
	cmd.SetIn(strings.NewReader("Answer()\n:quit\n"))

	out, _, err := runCommand(cmd, "--history-file", "")
	require.NoError(t, err)

	assert.Contains(t, out, "> ")
	assert.Contains(t, out, `"Answer()"`)
	require.Len(t, compiler.Contexts(), 1)
}

func TestReplCommand_LoadsScriptWithArgs(t *testing.T) {
	opts, compiler := testOptions(t)
	writeFile(t, opts.Dir, "setup.csx", "Setup()\n")
	cmd := NewReplCommand(opts)
	cmd.SetIn(strings.NewReader(":quit\n"))

	_, _, err := runCommand(cmd, "--history-file", "", "setup.csx", "one")
	require.NoError(t, err)

	live := compiler.Contexts()[0]
	assert.Equal(t, []string{"one"}, live.Options.Host.Args)
	require.NotEmpty(t, live.Submissions)
	assert.Contains(t, live.Submissions[0].Code, "Setup()")
}

func TestReplCommand_LogFile(t *testing.T) {
	opts, _ := testOptions(t)
	logPath := filepath.Join(opts.Dir, "session.log")
	cmd := NewReplCommand(opts)
	cmd.SetIn(strings.NewReader("Answer()\n"))

	_, _, err := runCommand(cmd, "--history-file", "", "--log-file", logPath)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "> Answer()\n")
	assert.Contains(t, string(data), `"Answer()"`)
}
