// Package repl implements the interactive loop over a warm session.
//
// Input is buffered until brackets balance, so a function body can be typed
// across several lines. Each complete buffer is one submission; failures are
// printed and the session carries on.
package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/scripthost/internal/engine"
)

const (
	Prompt             = "> "
	ContinuationPrompt = "* "
)

// Executor runs script text in a warm session. Implemented by
// executor.Coordinator.
type Executor interface {
	ExecuteScript(ctx context.Context, script string, args ...string) (*engine.Result, error)
	References() []string
	Namespaces() []string
}

// Repl reads, submits and prints.
type Repl struct {
	exec    Executor
	console Console
	args    []string
	logger  *slog.Logger
	buffer  []string
}

// Option configures a Repl.
type Option func(*Repl)

// WithArgs sets the arguments every submission sees.
func WithArgs(args ...string) Option {
	return func(r *Repl) { r.args = args }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repl) { r.logger = l }
}

// New creates a Repl. Panics if exec or console is nil.
func New(exec Executor, console Console, opts ...Option) *Repl {
	if exec == nil {
		panic("repl.New: executor is nil")
	}
	if console == nil {
		panic("repl.New: console is nil")
	}
	r := &Repl{exec: exec, console: console}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Buffer returns the pending multi-line input.
func (r *Repl) Buffer() string {
	return strings.Join(r.buffer, "\n")
}

// Prompt returns the prompt for the next line.
func (r *Repl) Prompt() string {
	if strings.TrimSpace(r.Buffer()) == "" {
		return Prompt
	}
	return ContinuationPrompt
}

// Run loads script (if any) and then loops until :quit, end of input or a
// second consecutive Ctrl-C.
func (r *Repl) Run(ctx context.Context, script string) error {
	if script != "" {
		r.logger.Info("loading script", "script", script)
		if _, err := r.Execute(ctx, "#load "+script); err != nil {
			return err
		}
	}

	interrupted := false
	for {
		line, err := r.console.ReadLine(r.Prompt())
		switch {
		case errors.Is(err, ErrInterrupted):
			if interrupted {
				return nil
			}
			interrupted = true
			r.buffer = nil
			r.console.WriteLine("\n(^C again to quit)")
			continue
		case errors.Is(err, io.EOF):
			r.console.WriteLine("")
			return nil
		case err != nil:
			return err
		}

		if strings.TrimSpace(line) == "" && len(r.buffer) == 0 {
			continue
		}
		quit, err := r.Execute(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		interrupted = false
	}
}

// Execute handles one line of input. It returns true when the user asked
// to quit. The error return is reserved for context cancellation;
// submission failures are printed.
func (r *Repl) Execute(ctx context.Context, line string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}

	if len(r.buffer) == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
		return r.command(strings.TrimSpace(line)), nil
	}

	r.buffer = append(r.buffer, line)
	code := r.Buffer()
	if !IsComplete(code) {
		return false, nil
	}
	r.buffer = nil

	if h, ok := r.console.(historian); ok {
		h.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	result, err := r.exec.ExecuteScript(ctx, code, r.args...)
	if err != nil {
		r.console.WriteLine(err.Error())
		return false, nil
	}
	r.print(result)
	return false, nil
}

func (r *Repl) command(cmd string) bool {
	fields := strings.Fields(cmd)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":exit":
		return true
	case ":references":
		for _, ref := range r.exec.References() {
			r.console.WriteLine(ref)
		}
	case ":namespaces":
		for _, ns := range r.exec.Namespaces() {
			r.console.WriteLine(ns)
		}
	case ":help":
		r.console.WriteLine(helpText)
	default:
		r.console.WriteLine(fmt.Sprintf("unknown command %s. Type :help for a list.", fields[0]))
	}
	return false
}

const helpText = `:references  list default references
:namespaces  list default namespaces
:help        show this help
:quit        leave the REPL`

func (r *Repl) print(result *engine.Result) {
	if err := result.Err(); err != nil {
		r.console.WriteLine(err.Error())
		return
	}
	if result.ReturnValue == nil {
		return
	}
	r.console.WriteLine(FormatValue(result.ReturnValue))
}

// FormatValue renders a return value as JSON, falling back to %v for values
// JSON cannot represent.
func FormatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// IsComplete reports whether code has balanced brackets and no unterminated
// raw string, using the Go scanner so brackets in strings and comments are
// ignored.
func IsComplete(code string) bool {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(code))

	incomplete := false
	var s scanner.Scanner
	s.Init(file, []byte(code), func(_ token.Position, msg string) {
		if strings.HasPrefix(msg, "raw string literal not terminated") || strings.HasPrefix(msg, "comment not terminated") {
			incomplete = true
		}
	}, scanner.ScanComments)

	depth := 0
	for {
		_, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		switch tok {
		case token.LBRACE, token.LPAREN, token.LBRACK:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACK:
			depth--
		}
	}
	return depth <= 0 && !incomplete
}
