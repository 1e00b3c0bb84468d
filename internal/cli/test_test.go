package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")

// writeScenarioFile writes a scenario over the flight schema into dir.
func writeScenarioFile(t *testing.T, dir, name, expectWhere string) {
	t.Helper()
	schema, err := filepath.Abs(schemaDir)
	require.NoError(t, err)

	content := `name: ` + name + `
description: "CLI test scenario"
schema: ` + schema + `
request_id: cli
fixtures:
  flights:
    - { id: 1, code: lhr, gate: 4 }
cases:
  - name: by_gate
    entity_set: flights
    filter: "gate gt 3"
    expect:
      where: "` + expectWhere + `"
      count: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0644))
}

func TestTestCommandPasses(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ flights_query")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand, "json", scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, resp.Data.Total, resp.Data.Passed)
	assert.Zero(t, resp.Data.Failed)
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeScenarioFile(t, dir, "good", "gate > ?")
	writeScenarioFile(t, dir, "bad", "gate >= ?")

	out, err := execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ good")
	assert.Contains(t, out, "✗ bad")
	assert.Contains(t, out, "where mismatch")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeScenarioFile(t, dir, "good", "gate > ?")
	writeScenarioFile(t, dir, "bad", "gate >= ?")

	out, err := execute(t, NewTestCommand, "text", dir, "--filter", "go*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandUpdateAndCompareGolden(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeScenarioFile(t, dir, "good", "gate > ?")

	out, err := execute(t, NewTestCommand, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ good (golden updated)")

	goldenPath := filepath.Join(root, "golden", "good.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id": "cli-1"`)

	_, err = execute(t, NewTestCommand, "text", dir)
	require.NoError(t, err)

	// A stale golden file fails the scenario
	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	out, err = execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, err := execute(t, NewTestCommand, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
