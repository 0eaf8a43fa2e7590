package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/executor"
	"github.com/roach88/scripthost/internal/pack"
	"github.com/roach88/scripthost/internal/preprocess"
	"github.com/roach88/scripthost/internal/store"
	"github.com/roach88/scripthost/internal/testutil"
)

// Harness holds the collaborators of one scenario run.
type Harness struct {
	store       *store.Store
	fs          *testutil.MemFS
	compiler    *testutil.FakeCompiler
	coordinator *executor.Coordinator
	sessionID   string
	logger      *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and file system.
//
// Execution flow:
// 1. Build the in-memory file tree and history store
// 2. Initialize the coordinator with a fixed pack session ID
// 3. Execute steps, validating expect clauses
// 4. Evaluate assertions
//
// The returned error is reserved for infrastructure failures, such as a
// script file that cannot be read. Expectation failures are reported in the
// Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := newHarness(scenario, st)
	if err := h.coordinator.Initialize(scenario.References, nil); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	defer h.coordinator.Terminate()

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.executeStep(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.AddTrace(event)
		for _, msg := range checkExpect(i, step.Expect, event) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{
		Store:     st,
		SessionID: h.sessionID,
		Ctx:       ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(scenario *Scenario, st *store.Store) *Harness {
	logger := testutil.DiscardLogger()

	wd := scenario.WorkingDirectory
	if wd == "" {
		wd = DefaultWorkingDirectory
	}
	fs := testutil.NewMemFS(nil)
	fs.SetCurrentDirectory(wd)
	for path, content := range scenario.Files {
		fs.WriteFile(path, content)
	}

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	compiler := testutil.NewFakeCompiler().
		WithUnknownNamespaces(scenario.Compiler.UnknownNamespaces...).
		WithUnknownReferences(scenario.Compiler.UnknownReferences...)

	eng := engine.New(compiler, engine.WithRecorder(st), engine.WithLogger(logger))
	processor := preprocess.New(fs, preprocess.WithLogger(logger), preprocess.WithEnvLookup(func(string) (string, bool) {
		return "", false
	}))
	coordinator := executor.New(fs, processor, eng,
		executor.WithLogger(logger),
		executor.WithSessionOptions(pack.WithIDGenerator(pack.NewFixedGenerator(sessionID))),
	)

	return &Harness{
		store:       st,
		fs:          fs,
		compiler:    compiler,
		coordinator: coordinator,
		sessionID:   sessionID,
		logger:      logger,
	}
}

// executeStep runs one step and measures what the live context newly
// received by diffing its call log around the submission.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) (TraceEvent, error) {
	refsBefore, importsBefore := h.applied()

	var result *engine.Result
	var err error
	source := step.Code
	if step.Script != "" {
		source = step.Script
		result, err = h.coordinator.Execute(ctx, step.Script, step.Args...)
	} else {
		result, err = h.coordinator.ExecuteScript(ctx, step.Code, step.Args...)
	}
	if err != nil {
		return TraceEvent{}, err
	}

	refsAfter, importsAfter := h.applied()
	event := TraceEvent{
		Step:              index,
		Seq:               result.Seq,
		Source:            source,
		Status:            string(result.Status()),
		References:        refsAfter[len(refsBefore):],
		Namespaces:        importsAfter[len(importsBefore):],
		InvalidNamespaces: result.InvalidNamespaces,
	}
	if step.Script != "" {
		event.LoadedScripts = h.coordinator.LastUnit().LoadedScripts
	}
	if result.ReturnValue != nil {
		event.ReturnValue = fmt.Sprintf("%v", result.ReturnValue)
	}
	if failure := result.Err(); failure != nil {
		event.Error = failure.Error()
	}
	return event, nil
}

// applied returns copies of the references and namespaces the live context
// has absorbed so far.
func (h *Harness) applied() ([]string, []string) {
	contexts := h.compiler.Contexts()
	if len(contexts) == 0 {
		return nil, nil
	}
	live := contexts[0]
	return append([]string(nil), live.References...), append([]string(nil), live.Imported...)
}

func checkExpect(index int, expect *ExpectClause, event TraceEvent) []string {
	if expect == nil {
		return nil
	}
	var errs []string
	if event.Status != expect.Status {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected status %s, got %s (%s)", index, expect.Status, event.Status, event.Error))
	}
	if expect.ReturnValue != nil && event.ReturnValue != *expect.ReturnValue {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected return value %q, got %q", index, *expect.ReturnValue, event.ReturnValue))
	}
	if expect.InvalidNamespaces != nil && !sameList(expect.InvalidNamespaces, event.InvalidNamespaces) {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected invalid namespaces %v, got %v", index, expect.InvalidNamespaces, event.InvalidNamespaces))
	}
	if expect.ErrorContains != "" && !strings.Contains(event.Error, expect.ErrorContains) {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected error containing %q, got %q", index, expect.ErrorContains, event.Error))
	}
	return errs
}
