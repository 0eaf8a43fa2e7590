package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Steps:       []Step{{Code: "x"}},
		Assertions:  []Assertion{{Type: AssertHistoryCount, Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "success", result.Trace[0].Status)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, "x", result.Trace[0].ReturnValue)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	want := "y"
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Expectations that do not hold",
		Steps: []Step{{
			Code:   "x",
			Expect: &ExpectClause{Status: "execution_failed", ReturnValue: &want, ErrorContains: "nope"},
		}},
		Assertions: []Assertion{{Type: AssertStatusCount, Status: "success", Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected status execution_failed, got success")
	assert.Contains(t, result.Errors[1], `expected return value "y", got "x"`)
	assert.Contains(t, result.Errors[2], `expected error containing "nope"`)
}

func TestRun_AssertionFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_delta",
		Description: "Applied assertion that does not hold",
		Steps:       []Step{{Code: "x"}, {Code: "y"}},
		Assertions: []Assertion{
			{Type: AssertApplied, Step: 2, Namespaces: []string{"fmt"}},
			{Type: AssertHistoryCount, Count: 5},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: applied")
	assert.Contains(t, result.Errors[0], "[2] success y")
	assert.Contains(t, result.Errors[1], "Assertion failed: history_count")
}

func TestRun_MissingScriptIsAnError(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "Script file not present",
		Steps:       []Step{{Script: "nope.csx"}},
		Assertions:  []Assertion{{Type: AssertHistoryCount, Count: 0}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
	assert.Contains(t, err.Error(), "/work/nope.csx")
}

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: ok
description: d
steps:
  - code: x
assertions:
  - type: history_count
    count: 1
`))
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	assert.Equal(t, "x", s.Steps[0].Code)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: a\ndescription: d\nstep: []\n", "field step not found"},
		{"missing name", "description: d\n", "name is required"},
		{"missing description", "name: a\n", "description is required"},
		{"no steps", "name: a\ndescription: d\n", "steps list is required"},
		{"no assertions", "name: a\ndescription: d\nsteps: [{code: x}]\n", "assertions list is required"},
		{"relative working directory", "name: a\ndescription: d\nworking_directory: rel\nsteps: [{code: x}]\nassertions: [{type: history_count}]\n", "working_directory must be absolute"},
		{"script and code", "name: a\ndescription: d\nsteps: [{code: x, script: y}]\nassertions: [{type: history_count}]\n", "exactly one of script and code"},
		{"neither script nor code", "name: a\ndescription: d\nsteps: [{args: [x]}]\nassertions: [{type: history_count}]\n", "exactly one of script and code"},
		{"bad status", "name: a\ndescription: d\nsteps: [{code: x, expect: {status: fine}}]\nassertions: [{type: history_count}]\n", `unknown status "fine"`},
		{"missing status", "name: a\ndescription: d\nsteps: [{code: x, expect: {return_value: x}}]\nassertions: [{type: history_count}]\n", "status is required"},
		{"step out of range", "name: a\ndescription: d\nsteps: [{code: x}]\nassertions: [{type: applied, step: 2}]\n", "step must be between 1 and 1"},
		{"unknown assertion", "name: a\ndescription: d\nsteps: [{code: x}]\nassertions: [{type: trace_order}]\n", `unknown assertion type "trace_order"`},
		{"missing assertion type", "name: a\ndescription: d\nsteps: [{code: x}]\nassertions: [{count: 1}]\n", "type is required"},
		{"negative count", "name: a\ndescription: d\nsteps: [{code: x}]\nassertions: [{type: history_count, count: -1}]\n", "count must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestMarshalTrace_OmitsEmptyFields(t *testing.T) {
	data, err := MarshalTrace("s", "id", []TraceEvent{{Step: 1, Seq: 1, Source: "x", Status: "success", References: []string{}}})
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"s","session_id":"id","trace":[{"seq":1,"source":"x","status":"success","step":1}]}`, string(data))
}

func TestSameList(t *testing.T) {
	assert.True(t, sameList(nil, []string{}))
	assert.True(t, sameList([]string{"a"}, []string{"a"}))
	assert.False(t, sameList([]string{"a", "b"}, []string{"b", "a"}))
}
