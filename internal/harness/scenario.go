package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scripthost/internal/engine"
)

// DefaultSessionID is used when a scenario does not set session_id.
const DefaultSessionID = "test-session-default"

// DefaultWorkingDirectory is used when a scenario does not set
// working_directory.
const DefaultWorkingDirectory = "/work"

// Scenario defines an end-to-end script host scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// WorkingDirectory is the in-memory current directory. Relative file
	// keys and script paths are rooted here.
	WorkingDirectory string `yaml:"working_directory,omitempty"`

	// Files maps paths to contents in the in-memory file system.
	Files map[string]string `yaml:"files,omitempty"`

	// References are passed to Coordinator.Initialize.
	References []string `yaml:"references,omitempty"`

	// Compiler scripts the fake compiler's failures.
	Compiler CompilerSetup `yaml:"compiler,omitempty"`

	// Steps are submitted in order against one warm session.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and history.
	// Supported types: applied, status_count, history_count, loaded_scripts
	Assertions []Assertion `yaml:"assertions"`

	// SessionID is the fixed pack session ID.
	SessionID string `yaml:"session_id,omitempty"`
}

// CompilerSetup lists what the fake compiler rejects.
type CompilerSetup struct {
	UnknownNamespaces []string `yaml:"unknown_namespaces,omitempty"`
	UnknownReferences []string `yaml:"unknown_references,omitempty"`
}

// Step is one submission. Exactly one of Script and Code is set.
type Step struct {
	// Script is a script file path, run with Coordinator.Execute.
	Script string `yaml:"script,omitempty"`

	// Code is inline script text, run with Coordinator.ExecuteScript.
	Code string `yaml:"code,omitempty"`

	// Args are the script arguments.
	Args []string `yaml:"args,omitempty"`

	// Expect specifies the expected outcome. If nil, any outcome passes.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Status is success, compilation_failed or execution_failed.
	Status string `yaml:"status"`

	// ReturnValue, when set, must equal the formatted return value.
	ReturnValue *string `yaml:"return_value,omitempty"`

	// InvalidNamespaces, when set, must equal the result's list.
	InvalidNamespaces []string `yaml:"invalid_namespaces,omitempty"`

	// ErrorContains, when set, must be a substring of the failure message.
	ErrorContains string `yaml:"error_contains,omitempty"`
}

// Assertion validates the trace or the history store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "applied": newly applied references and namespaces of one step
	// - "status_count": number of steps with a given status
	// - "history_count": number of journaled submissions
	// - "loaded_scripts": scripts assembled by one step
	Type string `yaml:"type"`

	// Step is the 1-based step index (used by applied, loaded_scripts).
	Step int `yaml:"step,omitempty"`

	// References are the expected newly applied references (used by applied).
	References []string `yaml:"references,omitempty"`

	// Namespaces are the expected newly applied namespaces (used by applied).
	Namespaces []string `yaml:"namespaces,omitempty"`

	// Scripts are the expected loaded scripts (used by loaded_scripts).
	Scripts []string `yaml:"scripts,omitempty"`

	// Status is the counted status (used by status_count).
	Status string `yaml:"status,omitempty"`

	// Count is the expected count (used by status_count, history_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertApplied       = "applied"
	AssertStatusCount   = "status_count"
	AssertHistoryCount  = "history_count"
	AssertLoadedScripts = "loaded_scripts"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.WorkingDirectory != "" && !filepath.IsAbs(s.WorkingDirectory) {
		return fmt.Errorf("working_directory must be absolute: %s", s.WorkingDirectory)
	}

	for i, step := range s.Steps {
		if (step.Script == "") == (step.Code == "") {
			return fmt.Errorf("steps[%d]: exactly one of script and code is required", i)
		}
		if step.Expect != nil {
			if err := validateStatus(step.Expect.Status); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

func validateStatus(status string) error {
	switch engine.Status(status) {
	case engine.StatusSuccess, engine.StatusCompilationFailed, engine.StatusExecutionFailed:
		return nil
	case "":
		return fmt.Errorf("status is required")
	default:
		return fmt.Errorf("unknown status %q", status)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertApplied, AssertLoadedScripts:
		if a.Step < 1 || a.Step > steps {
			return fmt.Errorf("assertions[%d]: step must be between 1 and %d for %s", index, steps, a.Type)
		}
	case AssertStatusCount:
		if err := validateStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for status_count", index)
		}
	case AssertHistoryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
