// Package gointerp is the live compilation context backed by the yaegi Go
// interpreter.
//
// References:
//   - "stdlib" loads the interpreter's standard library symbols.
//   - anything else is a Go source file or directory evaluated with EvalPath,
//     relative paths joined with the session's base directory.
//
// Namespaces are Go import paths. The binding object is importable as
// "scripthost/host" and exposes Args and Require.
package gointerp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/roach88/scripthost/internal/engine"
)

// StdlibReference is the symbolic reference for the standard library.
const StdlibReference = "stdlib"

// Compiler creates yaegi-backed live contexts.
type Compiler struct {
	goPath string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithGoPath sets the GOPATH the interpreter imports source packages from.
func WithGoPath(path string) Option {
	return func(c *Compiler) { c.goPath = path }
}

// WithIO sets the standard streams scripts see.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(c *Compiler) {
		c.stdin = stdin
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

func New(opts ...Option) *Compiler {
	c := &Compiler{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// NewSession creates an interpreter with the host binding installed.
func (c *Compiler) NewSession(ctx context.Context, opts engine.SessionOptions) (engine.LiveContext, error) {
	var args []string
	if opts.Host != nil {
		args = opts.Host.Args
	}
	i := interp.New(interp.Options{
		GoPath: c.goPath,
		Stdin:  c.stdin,
		Stdout: c.stdout,
		Stderr: c.stderr,
		Args:   args,
	})
	if opts.Host != nil {
		if err := i.Use(hostExports(opts.Host)); err != nil {
			return nil, fmt.Errorf("install host binding: %w", err)
		}
		if _, err := i.EvalWithContext(ctx, fmt.Sprintf("import %q", HostImportPath)); err != nil {
			return nil, fmt.Errorf("import host binding: %w", err)
		}
	}
	return &Context{
		interp:  i,
		baseDir: opts.BaseDirectory,
		imports: map[string]bool{},
		logger:  c.logger,
	}, nil
}

// Context is one interpreter instance.
type Context struct {
	interp  *interp.Interpreter
	baseDir string
	imports map[string]bool
	logger  *slog.Logger
}

// AddReference loads stdlib symbols or evaluates a Go source path.
func (c *Context) AddReference(ctx context.Context, reference string) error {
	if reference == StdlibReference {
		return c.interp.Use(stdlib.Symbols)
	}
	path := reference
	if !filepath.IsAbs(path) && c.baseDir != "" {
		path = filepath.Join(c.baseDir, path)
	}
	c.logger.Debug("evaluating reference", "path", path)
	if _, err := c.interp.EvalPath(path); err != nil {
		return err
	}
	return nil
}

// Submit applies pending imports, compiles every chunk of the code, and only
// then runs the compiled chunks in order. A compile error in any chunk means
// nothing of the submission runs. The value of the last statement chunk is
// returned.
//
// Declarations from chunks compiled before a failing chunk stay known to the
// interpreter; yaegi has no way to drop them.
func (c *Context) Submit(ctx context.Context, sub engine.Submission) (any, error) {
	for _, ns := range sub.Imports {
		if c.imports[ns] {
			continue
		}
		if _, err := c.interp.EvalWithContext(ctx, fmt.Sprintf("import %q", ns)); err != nil {
			return nil, engine.NewUnresolvedNamespace(ns, err)
		}
		c.imports[ns] = true
	}

	chunks := Split(Lower(sub.Code))
	programs := make([]*interp.Program, len(chunks))
	for i, chunk := range chunks {
		prog, err := c.compile(chunk.Code)
		if err != nil {
			return nil, compileError(err)
		}
		programs[i] = prog
	}

	var result any
	for i, prog := range programs {
		// comment-only chunks compile to nothing
		if prog == nil {
			continue
		}
		v, err := c.interp.ExecuteWithContext(ctx, prog)
		if err != nil {
			return nil, runError(err)
		}
		if chunks[i].Decl {
			continue
		}
		result = valueOf(v)
	}
	return result, nil
}

// compile turns an interpreter panic during compilation into an error.
func (c *Context) compile(src string) (prog *interp.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compile: %v", r)
		}
	}()
	return c.interp.Compile(src)
}

func compileError(err error) error {
	return &engine.CompilationError{Diagnostics: []engine.Diagnostic{{
		Code:    engine.CodeCompile,
		Message: err.Error(),
	}}}
}

// runError wraps a failure of an already compiled chunk. Everything that
// fails at this point is a runtime failure.
func runError(err error) error {
	var p interp.Panic
	if errors.As(err, &p) {
		return &engine.ExecutionError{Value: panicValue(p.Value), Stack: string(p.Stack)}
	}
	return &engine.ExecutionError{Value: err}
}

// panicValue unwraps the reflect.Value yaegi panics with for interpreted
// panic calls.
func panicValue(v any) any {
	if rv, ok := v.(reflect.Value); ok {
		return valueOf(rv)
	}
	return v
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
