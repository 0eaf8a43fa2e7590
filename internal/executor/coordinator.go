// Package executor implements the execution coordinator.
//
// The Coordinator owns the process-lifetime default references and
// namespaces, runs scripts through the preprocessor, merges what the script
// declared with the defaults, and hands the bundle to the engine together
// with the pack session created by Initialize.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/fsys"
	"github.com/roach88/scripthost/internal/pack"
	"github.com/roach88/scripthost/internal/preprocess"
)

// BinDirectory is the engine base directory, relative to the working
// directory at Initialize time.
const BinDirectory = "bin"

// ErrNotInitialized is returned by Execute before Initialize succeeds.
var ErrNotInitialized = errors.New("executor: Initialize has not been called")

// DefaultReferences seeds every Coordinator.
var DefaultReferences = []string{"stdlib"}

// DefaultNamespaces seeds every Coordinator.
var DefaultNamespaces = []string{"fmt", "strings", "os", "errors", "time", "path/filepath"}

// ScriptProcessor turns scripts into assembled units.
// Implemented by preprocess.Processor.
type ScriptProcessor interface {
	ProcessFile(path string) (*preprocess.Result, error)
	ProcessScript(script string) (*preprocess.Result, error)
}

// ScriptEngine runs assembled units. Implemented by engine.Engine.
type ScriptEngine interface {
	Execute(ctx context.Context, req engine.Request) (*engine.Result, error)
	SetBaseDirectory(dir string)
}

// Coordinator wires preprocessing to execution.
//
// Not safe for concurrent use.
type Coordinator struct {
	fs          fsys.FileSystem
	processor   ScriptProcessor
	engine      ScriptEngine
	logger      *slog.Logger
	sessionOpts []pack.SessionOption

	references []string
	namespaces []string
	session    *pack.Session
	lastUnit   *preprocess.Result
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithSessionOptions passes options to the pack session Initialize creates.
func WithSessionOptions(opts ...pack.SessionOption) Option {
	return func(c *Coordinator) {
		c.sessionOpts = append(c.sessionOpts, opts...)
	}
}

// New creates a Coordinator seeded with DefaultReferences and
// DefaultNamespaces. Panics if any collaborator is nil.
func New(fs fsys.FileSystem, processor ScriptProcessor, eng ScriptEngine, opts ...Option) *Coordinator {
	if fs == nil {
		panic("executor.New: file system is nil")
	}
	if processor == nil {
		panic("executor.New: processor is nil")
	}
	if eng == nil {
		panic("executor.New: engine is nil")
	}
	c := &Coordinator{
		fs:         fs,
		processor:  processor,
		engine:     eng,
		references: append([]string{}, DefaultReferences...),
		namespaces: append([]string{}, DefaultNamespaces...),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// AddReferences appends references. Duplicates are not filtered.
func (c *Coordinator) AddReferences(refs ...string) {
	c.references = append(c.references, refs...)
}

// RemoveReferences drops every occurrence of each reference.
func (c *Coordinator) RemoveReferences(refs ...string) {
	c.references = without(c.references, refs)
}

// ImportNamespaces appends namespaces. Duplicates are not filtered.
func (c *Coordinator) ImportNamespaces(namespaces ...string) {
	c.namespaces = append(c.namespaces, namespaces...)
}

// RemoveNamespaces drops every occurrence of each namespace.
func (c *Coordinator) RemoveNamespaces(namespaces ...string) {
	c.namespaces = without(c.namespaces, namespaces)
}

// References returns a copy of the default references.
func (c *Coordinator) References() []string {
	return append([]string{}, c.references...)
}

// Namespaces returns a copy of the default namespaces.
func (c *Coordinator) Namespaces() []string {
	return append([]string{}, c.namespaces...)
}

// Session returns the pack session, or nil before Initialize.
func (c *Coordinator) Session() *pack.Session {
	return c.session
}

// LastUnit returns the assembled unit of the most recent Execute or
// ExecuteScript call, or nil.
func (c *Coordinator) LastUnit() *preprocess.Result {
	return c.lastUnit
}

// Initialize adds referencePaths, points the engine at <cwd>/bin, creates
// the pack session and initializes every pack.
func (c *Coordinator) Initialize(referencePaths []string, packs []pack.ScriptPack) error {
	c.AddReferences(referencePaths...)

	baseDir := filepath.Join(c.fs.CurrentDirectory(), BinDirectory)
	c.engine.SetBaseDirectory(baseDir)

	session := pack.NewSession(packs, append([]pack.SessionOption{pack.WithLogger(c.logger)}, c.sessionOpts...)...)
	c.logger.Debug("initializing packs", "session", session.ID(), "packs", len(packs), "base_directory", baseDir)
	if err := session.InitializePacks(); err != nil {
		return err
	}
	c.session = session
	return nil
}

// Execute preprocesses the script file at path and runs it. A relative path
// is rooted at the file system's current directory.
func (c *Coordinator) Execute(ctx context.Context, path string, args ...string) (*engine.Result, error) {
	if c.session == nil {
		return nil, ErrNotInitialized
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.fs.CurrentDirectory(), path)
	}

	c.logger.Debug("preprocessing script", "path", path)
	unit, err := c.processor.ProcessFile(path)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", path, err)
	}
	return c.run(ctx, unit, args)
}

// ExecuteScript preprocesses text as an anonymous script and runs it.
func (c *Coordinator) ExecuteScript(ctx context.Context, script string, args ...string) (*engine.Result, error) {
	if c.session == nil {
		return nil, ErrNotInitialized
	}
	unit, err := c.processor.ProcessScript(script)
	if err != nil {
		return nil, fmt.Errorf("preprocess script: %w", err)
	}
	return c.run(ctx, unit, args)
}

func (c *Coordinator) run(ctx context.Context, unit *preprocess.Result, args []string) (*engine.Result, error) {
	c.lastUnit = unit
	return c.engine.Execute(ctx, engine.Request{
		Code:       unit.Code,
		Args:       args,
		References: union(c.references, unit.References),
		Namespaces: union(c.namespaces, unit.Namespaces),
		Session:    c.session,
	})
}

// Terminate tears down every pack, best-effort.
func (c *Coordinator) Terminate() {
	if c.session == nil {
		return
	}
	c.session.TerminatePacks()
}

// union concatenates a and b, keeping the first occurrence of each entry.
func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, item := range list {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func without(list, drop []string) []string {
	remove := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		remove[d] = struct{}{}
	}
	out := list[:0]
	for _, item := range list {
		if _, ok := remove[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}
