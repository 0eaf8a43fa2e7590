package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/pack"
)

// Scripted code forms understood by FakeContext.Submit.
const (
	// PanicPrefix makes Submit panic with the rest of the code as value.
	PanicPrefix = "panic:"

	// FailPrefix makes Submit return a runtime error.
	FailPrefix = "fail:"

	// SyntaxErrorPrefix makes Submit return a COMPILE diagnostic.
	SyntaxErrorPrefix = "syntax:"
)

// FakeCompiler is an engine.Compiler that records every call.
//
// Namespaces listed as unknown fail to import with an unresolved-namespace
// diagnostic; references listed as unknown fail AddReference. Code is
// returned as the submission's value unless it carries a scripted prefix.
type FakeCompiler struct {
	mu                sync.Mutex
	unknownNamespaces map[string]bool
	unknownReferences map[string]bool
	newSessionErr     error
	contexts          []*FakeContext
}

func NewFakeCompiler() *FakeCompiler {
	return &FakeCompiler{
		unknownNamespaces: map[string]bool{},
		unknownReferences: map[string]bool{},
	}
}

// WithUnknownNamespaces marks namespaces that fail to import.
func (c *FakeCompiler) WithUnknownNamespaces(namespaces ...string) *FakeCompiler {
	for _, ns := range namespaces {
		c.unknownNamespaces[ns] = true
	}
	return c
}

// WithUnknownReferences marks references that fail to apply.
func (c *FakeCompiler) WithUnknownReferences(refs ...string) *FakeCompiler {
	for _, ref := range refs {
		c.unknownReferences[ref] = true
	}
	return c
}

// WithNewSessionError makes NewSession fail.
func (c *FakeCompiler) WithNewSessionError(err error) *FakeCompiler {
	c.newSessionErr = err
	return c
}

func (c *FakeCompiler) NewSession(_ context.Context, opts engine.SessionOptions) (engine.LiveContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.newSessionErr != nil {
		return nil, c.newSessionErr
	}
	fc := &FakeContext{Options: opts, compiler: c}
	c.contexts = append(c.contexts, fc)
	return fc, nil
}

// Contexts returns every live context created so far.
func (c *FakeCompiler) Contexts() []*FakeContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*FakeContext(nil), c.contexts...)
}

// FakeContext is the live context FakeCompiler hands out.
type FakeContext struct {
	Options engine.SessionOptions

	// References lists AddReference calls that succeeded, in order.
	References []string

	// Imported lists namespaces actually applied, in order.
	Imported []string

	// ImportsPerSubmit lists the namespaces newly applied by each Submit.
	ImportsPerSubmit [][]string

	// Submissions lists every Submit call.
	Submissions []engine.Submission

	compiler *FakeCompiler
}

func (f *FakeContext) AddReference(_ context.Context, ref string) error {
	if f.compiler.unknownReferences[ref] {
		return errors.New("no such file")
	}
	f.References = append(f.References, ref)
	return nil
}

func (f *FakeContext) Submit(_ context.Context, sub engine.Submission) (any, error) {
	f.Submissions = append(f.Submissions, sub)

	applied := []string{}
	defer func() { f.ImportsPerSubmit = append(f.ImportsPerSubmit, applied) }()

	for _, ns := range sub.Imports {
		if f.hasImported(ns) {
			continue
		}
		if f.compiler.unknownNamespaces[ns] {
			return nil, engine.NewUnresolvedNamespace(ns, nil)
		}
		f.Imported = append(f.Imported, ns)
		applied = append(applied, ns)
	}

	body := scriptBody(sub.Code)
	switch {
	case strings.HasPrefix(body, PanicPrefix):
		panic(strings.TrimPrefix(body, PanicPrefix))
	case strings.HasPrefix(body, FailPrefix):
		return nil, errors.New(strings.TrimPrefix(body, FailPrefix))
	case strings.HasPrefix(body, SyntaxErrorPrefix):
		return nil, &engine.CompilationError{Diagnostics: []engine.Diagnostic{{
			Code:    engine.CodeCompile,
			Message: strings.TrimPrefix(body, SyntaxErrorPrefix),
		}}}
	}
	return sub.Code, nil
}

// scriptBody drops the import block and #line markers the preprocessor
// puts in front of a file's code, so scripted prefixes work for files too.
func scriptBody(code string) string {
	lines := strings.Split(code, "\n")
	for len(lines) > 0 {
		trimmed := strings.TrimSpace(lines[0])
		if trimmed != "" && !strings.HasPrefix(trimmed, "#line ") &&
			!(strings.HasPrefix(trimmed, "using ") && strings.HasSuffix(trimmed, ";")) {
			break
		}
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// AppliedCount is the total number of AddReference and import applications.
func (f *FakeContext) AppliedCount() int {
	return len(f.References) + len(f.Imported)
}

func (f *FakeContext) hasImported(ns string) bool {
	for _, have := range f.Imported {
		if have == ns {
			return true
		}
	}
	return false
}

// NewPackSession creates a pack.Session with a fixed ID and a discarded log.
func NewPackSession(id string, packs ...pack.ScriptPack) *pack.Session {
	return pack.NewSession(packs,
		pack.WithIDGenerator(pack.NewFixedGenerator(id)),
		pack.WithLogger(DiscardLogger()),
	)
}
