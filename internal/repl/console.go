package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// ErrInterrupted is returned by ReadLine when the user presses Ctrl-C.
var ErrInterrupted = errors.New("interrupted")

// Console is the REPL's terminal.
type Console interface {
	// ReadLine shows prompt and reads one line. It returns io.EOF at end of
	// input and ErrInterrupted on Ctrl-C.
	ReadLine(prompt string) (string, error)
	Write(s string)
	WriteLine(s string)
	Close() error
}

// historian is implemented by consoles that keep line history.
type historian interface {
	AppendHistory(entry string)
}

// NewConsole returns a LinerConsole when both in and out are terminals,
// otherwise a PlainConsole.
func NewConsole(in, out *os.File, historyPath string) Console {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return NewLinerConsole(historyPath)
	}
	return NewPlainConsole(in, out)
}

// LinerConsole is an interactive console with line editing and history.
type LinerConsole struct {
	state       *liner.State
	historyPath string
}

// NewLinerConsole takes over the terminal. History is read from and saved to
// historyPath when it is non-empty.
func NewLinerConsole(historyPath string) *LinerConsole {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return &LinerConsole{state: state, historyPath: historyPath}
}

func (c *LinerConsole) ReadLine(prompt string) (string, error) {
	line, err := c.state.Prompt(prompt)
	switch {
	case errors.Is(err, liner.ErrPromptAborted):
		return "", ErrInterrupted
	case err != nil:
		return "", err
	}
	return line, nil
}

func (c *LinerConsole) Write(s string)     { fmt.Print(s) }
func (c *LinerConsole) WriteLine(s string) { fmt.Println(s) }

func (c *LinerConsole) AppendHistory(entry string) {
	c.state.AppendHistory(entry)
}

// Close saves history and restores the terminal.
func (c *LinerConsole) Close() error {
	if c.historyPath != "" {
		if f, err := os.Create(c.historyPath); err == nil {
			_, _ = c.state.WriteHistory(f)
			_ = f.Close()
		}
	}
	return c.state.Close()
}

// PlainConsole reads lines from any reader. Used for pipes and tests.
type PlainConsole struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewPlainConsole(in io.Reader, out io.Writer) *PlainConsole {
	return &PlainConsole{scanner: bufio.NewScanner(in), out: out}
}

func (c *PlainConsole) ReadLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSuffix(c.scanner.Text(), "\r"), nil
}

func (c *PlainConsole) Write(s string)     { fmt.Fprint(c.out, s) }
func (c *PlainConsole) WriteLine(s string) { fmt.Fprintln(c.out, s) }
func (c *PlainConsole) Close() error       { return nil }

// FileConsole copies everything written to and read from an inner console
// into a log file.
type FileConsole struct {
	inner Console
	mu    sync.Mutex
	file  *os.File
}

// NewFileConsole appends to path, creating it if needed.
func NewFileConsole(path string, inner Console) (*FileConsole, error) {
	if inner == nil {
		panic("repl.NewFileConsole: inner console is nil")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open console log: %w", err)
	}
	return &FileConsole{inner: inner, file: f}, nil
}

func (c *FileConsole) ReadLine(prompt string) (string, error) {
	line, err := c.inner.ReadLine(prompt)
	if err == nil {
		c.append(prompt + line + "\n")
	}
	return line, err
}

func (c *FileConsole) Write(s string) {
	c.inner.Write(s)
	c.append(s)
}

func (c *FileConsole) WriteLine(s string) {
	c.inner.WriteLine(s)
	c.append(s + "\n")
}

func (c *FileConsole) AppendHistory(entry string) {
	if h, ok := c.inner.(historian); ok {
		h.AppendHistory(entry)
	}
}

func (c *FileConsole) Close() error {
	c.mu.Lock()
	ferr := c.file.Close()
	c.mu.Unlock()
	if err := c.inner.Close(); err != nil {
		return err
	}
	return ferr
}

func (c *FileConsole) append(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.file.WriteString(s)
}
