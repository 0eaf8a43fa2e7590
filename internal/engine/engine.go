package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/scripthost/internal/digest"
	"github.com/roach88/scripthost/internal/pack"
)

// Compiler creates live compilation contexts.
// Implemented by gointerp.Compiler (production) and testutil.FakeCompiler (tests).
type Compiler interface {
	NewSession(ctx context.Context, opts SessionOptions) (LiveContext, error)
}

// SessionOptions seeds a new live context.
type SessionOptions struct {
	// Host is the binding object exposed to every submission.
	Host *pack.Host

	// BaseDirectory anchors relative references.
	BaseDirectory string
}

// LiveContext is an append-only compilation session.
//
// Submit must treat imports it has already applied as no-ops. A failing
// import must be reported as a CompilationError built with
// NewUnresolvedNamespace. Any other compile failure must be a
// CompilationError; anything else returned as an error is a runtime failure.
type LiveContext interface {
	AddReference(ctx context.Context, reference string) error
	Submit(ctx context.Context, sub Submission) (any, error)
}

// Submission is one unit handed to a LiveContext.
type Submission struct {
	Seq     int64
	Imports []string
	Code    string
}

// Request is everything the coordinator hands the engine for one submission.
type Request struct {
	Code       string
	Args       []string
	References []string
	Namespaces []string
	Session    *pack.Session
}

// SubmissionRecord is what a Recorder journals per submission.
type SubmissionRecord struct {
	ID          string   `json:"id"`
	SessionID   string   `json:"session_id"`
	Seq         int64    `json:"seq"`
	ScriptHash  string   `json:"script_hash"`
	Code        string   `json:"code"`
	References  []string `json:"references"` // applied by this submission
	Namespaces  []string `json:"namespaces"` // queued by this submission
	Status      Status   `json:"status"`
	ReturnValue string   `json:"return_value,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Recorder journals submissions. Implemented by store.Store.
type Recorder interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
}

// Engine executes submissions against per-session live contexts.
type Engine struct {
	compiler      Compiler
	hostFactory   pack.HostFactory
	recorder      Recorder
	logger        *slog.Logger
	baseDirectory string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder journals every submission. Recorder failures are logged,
// never returned.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithHostFactory overrides how the binding object is built.
// Default is pack.DefaultHostFactory.
func WithHostFactory(f pack.HostFactory) Option {
	return func(e *Engine) {
		e.hostFactory = f
	}
}

// New creates an Engine. Panics if compiler is nil.
func New(compiler Compiler, opts ...Option) *Engine {
	if compiler == nil {
		panic("engine.New: compiler is nil")
	}
	e := &Engine{
		compiler:    compiler,
		hostFactory: pack.DefaultHostFactory,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// SetBaseDirectory sets the directory new live contexts resolve relative
// references against. Existing sessions keep the directory they were
// created with.
func (e *Engine) SetBaseDirectory(dir string) {
	e.baseDirectory = dir
}

// BaseDirectory returns the configured base directory.
func (e *Engine) BaseDirectory() string {
	return e.baseDirectory
}

// Execute runs one submission against the session's live context, creating
// it on first use.
//
// The returned error is non-nil only for a nil session or a failure to
// create the live context. Compilation and runtime failures are reported in
// the Result.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Session == nil {
		return nil, ErrNilSession
	}

	state, first, err := e.sessionState(ctx, req)
	if err != nil {
		return nil, err
	}

	requiredRefs := union(req.References, req.Session.References())
	requiredNamespaces := req.Namespaces
	if first {
		requiredNamespaces = union(req.Namespaces, req.Session.Namespaces())
	}

	seq := state.clock.Next()
	id, err := digest.SubmissionID(req.Session.ID(), seq, req.Code)
	if err != nil {
		return nil, err
	}
	result := &Result{
		SubmissionID: id,
		SessionID:    req.Session.ID(),
		Seq:          seq,
	}

	appliedRefs, refErr := e.applyReferences(ctx, state, requiredRefs)
	if refErr != nil {
		result.CompilationError = refErr
		e.record(ctx, req, result, appliedRefs, nil)
		return result, nil
	}

	queued := state.namespaces.missing(requiredNamespaces)
	for _, ns := range queued {
		e.logger.Debug("importing namespace", "namespace", ns, "session", req.Session.ID())
		state.namespaces.add(ns)
		state.pending.add(ns)
	}

	value, submitErr := e.submit(ctx, state.live, Submission{
		Seq:     seq,
		Imports: state.pending.values(),
		Code:    req.Code,
	})

	var ce *CompilationError
	var ee *ExecutionError
	switch {
	case submitErr == nil:
		result.ReturnValue = value
		state.pending = newOrderedSet()
	case errors.As(submitErr, &ce):
		result.CompilationError = ce
		for _, ns := range ce.InvalidNamespaces() {
			state.pending.remove(ns)
			state.namespaces.remove(ns)
			result.InvalidNamespaces = append(result.InvalidNamespaces, ns)
			e.logger.Debug("removed unresolved namespace", "namespace", ns, "session", req.Session.ID())
		}
	case errors.As(submitErr, &ee):
		result.ExecutionError = ee
		state.pending = newOrderedSet()
	default:
		result.ExecutionError = &ExecutionError{Value: submitErr}
		state.pending = newOrderedSet()
	}

	e.record(ctx, req, result, appliedRefs, queued)
	return result, nil
}

// sessionState returns the engine state for the request's session, creating
// the live context on first use.
func (e *Engine) sessionState(ctx context.Context, req Request) (*sessionState, bool, error) {
	if state, ok := req.Session.State[SessionKey].(*sessionState); ok {
		return state, false, nil
	}

	e.logger.Debug("creating live context", "session", req.Session.ID(), "base_directory", e.baseDirectory)
	host := e.hostFactory(req.Session.Manager(), req.Args)
	live, err := e.compiler.NewSession(ctx, SessionOptions{
		Host:          host,
		BaseDirectory: e.baseDirectory,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create live context: %w", err)
	}

	state := newSessionState(live)
	req.Session.State[SessionKey] = state
	return state, true, nil
}

// applyReferences adds the delta to the live context and returns what was
// applied. A rejected reference stops the loop; earlier ones stay applied.
func (e *Engine) applyReferences(ctx context.Context, state *sessionState, required []string) ([]string, *CompilationError) {
	var applied []string
	for _, ref := range state.references.missing(required) {
		e.logger.Debug("adding reference", "reference", ref)
		if err := state.live.AddReference(ctx, ref); err != nil {
			return applied, NewUnresolvedReference(ref, err)
		}
		state.references.add(ref)
		applied = append(applied, ref)
	}
	return applied, nil
}

// submit calls the live context, converting panics into ExecutionError.
func (e *Engine) submit(ctx context.Context, live LiveContext, sub Submission) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &ExecutionError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return live.Submit(ctx, sub)
}

func (e *Engine) record(ctx context.Context, req Request, result *Result, refs, namespaces []string) {
	if e.recorder == nil {
		return
	}
	rec := SubmissionRecord{
		ID:         result.SubmissionID,
		SessionID:  result.SessionID,
		Seq:        result.Seq,
		ScriptHash: digest.ScriptHash(req.Code),
		Code:       req.Code,
		References: refs,
		Namespaces: namespaces,
		Status:     result.Status(),
	}
	if result.ReturnValue != nil {
		rec.ReturnValue = fmt.Sprintf("%v", result.ReturnValue)
	}
	if err := result.Err(); err != nil {
		rec.Error = err.Error()
	}
	if err := e.recorder.RecordSubmission(ctx, rec); err != nil {
		e.logger.Error("failed to record submission", "submission", result.SubmissionID, "error", err)
	}
}

// union concatenates the lists, dropping repeats, preserving first-seen order.
func union(lists ...[]string) []string {
	set := newOrderedSet()
	for _, list := range lists {
		for _, item := range list {
			set.add(item)
		}
	}
	return set.values()
}
