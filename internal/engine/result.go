package engine

// Status summarizes a Result.
type Status string

const (
	StatusSuccess           Status = "success"
	StatusCompilationFailed Status = "compilation_failed"
	StatusExecutionFailed   Status = "execution_failed"
)

// Result is the outcome of one submission.
//
// At most one of CompilationError and ExecutionError is set.
type Result struct {
	SubmissionID      string            `json:"submission_id"`
	SessionID         string            `json:"session_id"`
	Seq               int64             `json:"seq"`
	ReturnValue       any               `json:"return_value,omitempty"`
	CompilationError  *CompilationError `json:"compilation_error,omitempty"`
	ExecutionError    *ExecutionError   `json:"execution_error,omitempty"`
	InvalidNamespaces []string          `json:"invalid_namespaces,omitempty"`
}

// Status reports which of the three outcomes this is.
func (r *Result) Status() Status {
	switch {
	case r.CompilationError != nil:
		return StatusCompilationFailed
	case r.ExecutionError != nil:
		return StatusExecutionFailed
	default:
		return StatusSuccess
	}
}

// Succeeded is shorthand for Status() == StatusSuccess.
func (r *Result) Succeeded() bool {
	return r.Status() == StatusSuccess
}

// Err returns the failure as an error, or nil on success.
func (r *Result) Err() error {
	switch {
	case r.CompilationError != nil:
		return r.CompilationError
	case r.ExecutionError != nil:
		return r.ExecutionError
	default:
		return nil
	}
}
