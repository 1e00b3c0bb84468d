package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace with the matching golden file.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario := flightScenario("assert_golden")
	scenario.Cases = []Case{{
		Name:      "gate_four",
		EntitySet: "flights",
		Filter:    "gate eq 4",
		Select:    []string{"id"},
	}}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NoError(t, AssertGolden(t, "assert_golden", result))
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	rows := 2
	snapshot := TraceSnapshot{
		ScenarioName: "determinism",
		Trace: []TraceEvent{
			{
				Case:      "by_gate",
				EntitySet: "flights",
				RequestID: "r-1",
				Seq:       1,
				SQL:       "SELECT id FROM flights WHERE gate > ? AND gate < ? ORDER BY id ASC",
				Params:    []any{int64(1), int64(5)},
				RowCount:  &rows,
			},
		},
	}

	first, err := marshalSnapshot(snapshot)
	require.NoError(t, err)
	second, err := marshalSnapshot(snapshot)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarshalSnapshot_Format(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "format",
		Trace: []TraceEvent{
			{Case: "ok", EntitySet: "flights", SQL: "SELECT id FROM flights WHERE gate > ? ORDER BY id ASC", Params: []any{int64(3)}},
			{Case: "bad", EntitySet: "flights", Error: "PARSE_ERROR"},
		},
	}

	data, err := marshalSnapshot(snapshot)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `"scenario_name": "format"`)
	assert.Contains(t, out, `WHERE gate > ?`, "comparison operators must not be HTML-escaped")
	assert.NotContains(t, out, `\u003e`)
	assert.Contains(t, out, `"error": "PARSE_ERROR"`)
	assert.NotContains(t, out, `"request_id"`)
	assert.NotContains(t, out, `"rows"`)
}

func TestGoldenFilesHaveScenarios(t *testing.T) {
	goldens, err := filepath.Glob(filepath.Join("testdata", "golden", "*.golden"))
	require.NoError(t, err)

	for _, g := range goldens {
		name := strings.TrimSuffix(filepath.Base(g), ".golden")
		if name == "assert_golden" {
			continue
		}
		_, err := os.Stat(filepath.Join("testdata", "scenarios", name+".yaml"))
		assert.NoError(t, err, "golden file %s has no scenario", g)
	}
}
