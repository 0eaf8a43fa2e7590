package harness

// TraceEvent records one step of a scenario.
type TraceEvent struct {
	Step              int      `json:"step"`
	Seq               int64    `json:"seq"`
	Source            string   `json:"source"` // script path or inline code
	Status            string   `json:"status"`
	References        []string `json:"references,omitempty"` // newly applied
	Namespaces        []string `json:"namespaces,omitempty"` // newly applied
	LoadedScripts     []string `json:"loaded_scripts,omitempty"`
	InvalidNamespaces []string `json:"invalid_namespaces,omitempty"`
	ReturnValue       string   `json:"return_value,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}

// CountStatus returns how many steps ended with status.
func (r *Result) CountStatus(status string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Status == status {
			n++
		}
	}
	return n
}
