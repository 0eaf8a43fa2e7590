package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/testutil"
)

// fakeExecutor returns scripted results and records every script.
type fakeExecutor struct {
	scripts []string
	args    [][]string
	results map[string]*engine.Result
	err     error
}

func (f *fakeExecutor) ExecuteScript(_ context.Context, script string, args ...string) (*engine.Result, error) {
	f.scripts = append(f.scripts, script)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[script]; ok {
		return r, nil
	}
	return &engine.Result{}, nil
}

func (f *fakeExecutor) References() []string { return []string{"stdlib"} }
func (f *fakeExecutor) Namespaces() []string { return []string{"fmt", "strings"} }

// scriptedConsole replays lines and errors, and records output.
type scriptedConsole struct {
	inputs  []any // string or error
	prompts []string
	out     bytes.Buffer
	history []string
}

func (c *scriptedConsole) ReadLine(prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if len(c.inputs) == 0 {
		return "", io.EOF
	}
	next := c.inputs[0]
	c.inputs = c.inputs[1:]
	if err, ok := next.(error); ok {
		return "", err
	}
	return next.(string), nil
}

func (c *scriptedConsole) Write(s string)             { c.out.WriteString(s) }
func (c *scriptedConsole) WriteLine(s string)         { c.out.WriteString(s + "\n") }
func (c *scriptedConsole) Close() error               { return nil }
func (c *scriptedConsole) AppendHistory(entry string) { c.history = append(c.history, entry) }

func newRepl(exec Executor, console Console, opts ...Option) *Repl {
	return New(exec, console, append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)...)
}

func TestRepl_BuffersUntilBalanced(t *testing.T) {
	exec := &fakeExecutor{}
	console := &scriptedConsole{inputs: []any{
		"func add(a, b int) int {",
		"\treturn a + b",
		"}",
		"add(1, 2)",
	}}
	r := newRepl(exec, console, WithArgs("x"))

	require.NoError(t, r.Run(context.Background(), ""))

	assert.Equal(t, []string{
		"func add(a, b int) int {\n\treturn a + b\n}",
		"add(1, 2)",
	}, exec.scripts)
	assert.Equal(t, []string{Prompt, ContinuationPrompt, ContinuationPrompt, Prompt, Prompt}, console.prompts)
	assert.Equal(t, []string{"x"}, exec.args[0])
	assert.Equal(t, []string{"func add(a, b int) int { \treturn a + b }", "add(1, 2)"}, console.history)
}

func TestRepl_PrintsResults(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*engine.Result{
		"value":   {ReturnValue: map[string]any{"a": 1}},
		"broken":  {CompilationError: engine.NewUnresolvedNamespace("Bogus", nil)},
		"runtime": {ExecutionError: &engine.ExecutionError{Value: "boom"}},
	}}
	console := &scriptedConsole{inputs: []any{"value", "broken", "runtime", "nothing"}}

	require.NoError(t, newRepl(exec, console).Run(context.Background(), ""))

	out := console.out.String()
	assert.Contains(t, out, `{"a":1}`)
	assert.Contains(t, out, `namespace "Bogus" could not be found`)
	assert.Contains(t, out, "execution failed: boom")
	assert.Len(t, exec.scripts, 4, "session continues after failures")
}

func TestRepl_InfrastructureErrorIsPrinted(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("preprocess script: load /x: missing")}
	console := &scriptedConsole{inputs: []any{"x"}}

	require.NoError(t, newRepl(exec, console).Run(context.Background(), ""))
	assert.Contains(t, console.out.String(), "missing")
}

func TestRepl_MetaCommands(t *testing.T) {
	exec := &fakeExecutor{}
	console := &scriptedConsole{inputs: []any{":references", ":namespaces", ":help", ":bogus", ":quit", "never"}}

	require.NoError(t, newRepl(exec, console).Run(context.Background(), ""))

	out := console.out.String()
	assert.Contains(t, out, "stdlib\n")
	assert.Contains(t, out, "fmt\nstrings\n")
	assert.Contains(t, out, ":quit")
	assert.Contains(t, out, "unknown command :bogus")
	assert.Empty(t, exec.scripts)
}

func TestRepl_SkipsBlankLines(t *testing.T) {
	exec := &fakeExecutor{}
	console := &scriptedConsole{inputs: []any{"", "   ", "x"}}

	require.NoError(t, newRepl(exec, console).Run(context.Background(), ""))
	assert.Equal(t, []string{"x"}, exec.scripts)
}

func TestRepl_LoadsInitialScript(t *testing.T) {
	exec := &fakeExecutor{}
	console := &scriptedConsole{}

	require.NoError(t, newRepl(exec, console).Run(context.Background(), "setup.csx"))
	assert.Equal(t, []string{"#load setup.csx"}, exec.scripts)
}

func TestRepl_DoubleInterruptQuits(t *testing.T) {
	exec := &fakeExecutor{}
	console := &scriptedConsole{inputs: []any{"func f() {", ErrInterrupted, ErrInterrupted, "never"}}
	r := newRepl(exec, console)

	require.NoError(t, r.Run(context.Background(), ""))

	assert.Contains(t, console.out.String(), "(^C again to quit)")
	assert.Empty(t, exec.scripts)
	assert.Empty(t, r.Buffer(), "interrupt discards the pending buffer")
}

func TestRepl_InterruptResetsAfterInput(t *testing.T) {
	exec := &fakeExecutor{}
	console := &scriptedConsole{inputs: []any{ErrInterrupted, "x", ErrInterrupted, "y"}}

	require.NoError(t, newRepl(exec, console).Run(context.Background(), ""))
	assert.Equal(t, []string{"x", "y"}, exec.scripts)
}

func TestRepl_ReadErrorStops(t *testing.T) {
	boom := errors.New("tty gone")
	console := &scriptedConsole{inputs: []any{boom}}

	err := newRepl(&fakeExecutor{}, console).Run(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}

func TestRepl_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	quit, err := newRepl(&fakeExecutor{}, &scriptedConsole{}).Execute(ctx, "x")
	assert.True(t, quit)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { New(nil, &scriptedConsole{}) })
	assert.Panics(t, func() { New(&fakeExecutor{}, nil) })
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"x := 1", true},
		{"func f() {", false},
		{"func f() {\n}", true},
		{`s := "{"`, true},
		{"// {", true},
		{"fmt.Println(", false},
		{"s := `multi", false},
		{"s := `multi\nline`", true},
		{"/* open", false},
		{"}", true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(tt.code))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, `"hi"`, FormatValue("hi"))
	assert.Equal(t, `[1,2]`, FormatValue([]int{1, 2}))
	assert.Equal(t, "(1+2i)", FormatValue(complex(1, 2)))
}

func TestPlainConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewPlainConsole(strings.NewReader("one\r\ntwo\n"), &out)

	line, err := c.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "one", line)
	line, err = c.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "two", line)
	_, err = c.ReadLine("> ")
	assert.ErrorIs(t, err, io.EOF)

	c.WriteLine("done")
	assert.Equal(t, "> > > done\n", out.String())
}

func TestFileConsole_TeesIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	var out bytes.Buffer
	inner := NewPlainConsole(strings.NewReader("x := 1\n"), &out)

	c, err := NewFileConsole(path, inner)
	require.NoError(t, err)

	_, err = c.ReadLine("> ")
	require.NoError(t, err)
	c.WriteLine("1")
	c.Write("partial")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "> x := 1\n1\npartial", string(data))
	assert.Equal(t, "> 1\npartial", out.String())
}

func TestFileConsole_PanicsOnNilInner(t *testing.T) {
	assert.Panics(t, func() { _, _ = NewFileConsole(filepath.Join(t.TempDir(), "x"), nil) })
}
