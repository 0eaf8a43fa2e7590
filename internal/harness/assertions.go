package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/scripthost/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Step, event.Status, event.Source)
		}
	}

	return buf.String()
}

// assertApplied checks what one step newly forwarded to the live context.
// Both lists are compared exactly, including order.
func assertApplied(trace []TraceEvent, assertion Assertion) error {
	event := trace[assertion.Step-1]
	if sameList(assertion.References, event.References) && sameList(assertion.Namespaces, event.Namespaces) {
		return nil
	}
	return &AssertionError{
		Type:     "applied",
		Expected: fmt.Sprintf("step %d applies references %v and namespaces %v", assertion.Step, assertion.References, assertion.Namespaces),
		Actual:   fmt.Sprintf("references %v and namespaces %v", event.References, event.Namespaces),
		Trace:    trace,
	}
}

// assertLoadedScripts checks the scripts one step assembled, in load order.
func assertLoadedScripts(trace []TraceEvent, assertion Assertion) error {
	event := trace[assertion.Step-1]
	if sameList(assertion.Scripts, event.LoadedScripts) {
		return nil
	}
	return &AssertionError{
		Type:     "loaded_scripts",
		Expected: fmt.Sprintf("step %d loads %v", assertion.Step, assertion.Scripts),
		Actual:   fmt.Sprintf("%v", event.LoadedScripts),
		Trace:    trace,
	}
}

// assertStatusCount checks how many steps ended with a status.
func assertStatusCount(result *Result, assertion Assertion) error {
	actual := result.CountStatus(assertion.Status)
	if actual == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     "status_count",
		Expected: fmt.Sprintf("%d steps with status %s", assertion.Count, assertion.Status),
		Actual:   fmt.Sprintf("%d", actual),
		Trace:    result.Trace,
	}
}

// assertHistoryCount checks how many submissions the store journaled for
// the scenario's session.
func assertHistoryCount(ctx context.Context, st *store.Store, sessionID string, assertion Assertion) error {
	records, err := st.History(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	if len(records) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     "history_count",
		Expected: fmt.Sprintf("%d journaled submissions", assertion.Count),
		Actual:   fmt.Sprintf("%d", len(records)),
	}
}

// sameList treats nil and empty as equal.
func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store     *store.Store
	SessionID string
	Ctx       context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for history_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertApplied, AssertLoadedScripts:
			if assertion.Step < 1 || assertion.Step > len(result.Trace) {
				err = fmt.Errorf("assertion[%d]: step %d out of range", i, assertion.Step)
			} else if assertion.Type == AssertApplied {
				err = assertApplied(result.Trace, assertion)
			} else {
				err = assertLoadedScripts(result.Trace, assertion)
			}
		case AssertStatusCount:
			err = assertStatusCount(result, assertion)
		case AssertHistoryCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: history_count requires database context", i)
			} else {
				err = assertHistoryCount(actx.Ctx, actx.Store, actx.SessionID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
