package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNilSession is returned when Execute is called without a pack session.
var ErrNilSession = errors.New("engine: pack session is required")

// DiagnosticCode categorizes compilation diagnostics.
type DiagnosticCode string

const (
	// CodeUnresolvedNamespace marks a namespace the live context could not
	// import. It is the one failure the engine recovers from.
	CodeUnresolvedNamespace DiagnosticCode = "UNRESOLVED_NAMESPACE"

	// CodeUnresolvedReference marks a reference the live context rejected.
	CodeUnresolvedReference DiagnosticCode = "UNRESOLVED_REFERENCE"

	// CodeCompile is any other compile-time diagnostic.
	CodeCompile DiagnosticCode = "COMPILE"
)

// Diagnostic is one compiler message.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Message string         `json:"message"`
	File    string         `json:"file,omitempty"`
	Line    int            `json:"line,omitempty"`

	// Namespace names the failed import of an UNRESOLVED_NAMESPACE diagnostic.
	Namespace string `json:"namespace,omitempty"`
}

func (d Diagnostic) String() string {
	switch {
	case d.File != "" && d.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Code, d.Message)
	case d.File != "":
		return fmt.Sprintf("%s: %s: %s", d.File, d.Code, d.Message)
	default:
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
}

// CompilationError reports that a submission did not compile.
type CompilationError struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (e *CompilationError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "compilation failed"
	}
	parts := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		parts = append(parts, d.String())
	}
	return "compilation failed: " + strings.Join(parts, "; ")
}

// InvalidNamespaces returns the namespaces named by unresolved-namespace
// diagnostics, in diagnostic order.
func (e *CompilationError) InvalidNamespaces() []string {
	var names []string
	for _, d := range e.Diagnostics {
		if d.Code == CodeUnresolvedNamespace && d.Namespace != "" {
			names = append(names, d.Namespace)
		}
	}
	return names
}

// NewUnresolvedNamespace creates the diagnostic a live context returns when
// an import fails.
func NewUnresolvedNamespace(namespace string, cause error) *CompilationError {
	msg := fmt.Sprintf("namespace %q could not be found", namespace)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &CompilationError{Diagnostics: []Diagnostic{{
		Code:      CodeUnresolvedNamespace,
		Message:   msg,
		Namespace: namespace,
	}}}
}

// NewUnresolvedReference creates the diagnostic for a rejected reference.
func NewUnresolvedReference(reference string, cause error) *CompilationError {
	msg := fmt.Sprintf("reference %q could not be added", reference)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &CompilationError{Diagnostics: []Diagnostic{{
		Code:    CodeUnresolvedReference,
		Message: msg,
	}}}
}

// ExecutionError reports that submitted code failed while running.
type ExecutionError struct {
	// Value is what the code raised: an error, or a recovered panic value.
	Value any `json:"value"`

	// Stack is set when the failure was a panic.
	Stack string `json:"stack,omitempty"`
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %v", e.Value)
}

// Unwrap exposes Value when it is an error.
func (e *ExecutionError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsUnresolvedNamespace returns true if err carries an unresolved-namespace
// diagnostic. Uses errors.As to handle wrapped errors.
func IsUnresolvedNamespace(err error) bool {
	var ce *CompilationError
	if errors.As(err, &ce) {
		return len(ce.InvalidNamespaces()) > 0
	}
	return false
}

// IsCompilationError returns true if err is or wraps a CompilationError.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}
