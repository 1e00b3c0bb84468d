package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario loads a schema, inserts fixture rows, then compiles or
// executes a list of requests and checks each against its expectation.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the directory of CUE schema files.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// RequestID is an optional prefix for the sequential request IDs.
	// If empty, IDs are "test-request-1", "test-request-2", ...
	RequestID string `yaml:"request_id,omitempty"`

	// MaxRows is an optional page size limit passed to the engine.
	MaxRows int64 `yaml:"max_rows,omitempty"`

	// Fixtures maps entity set names to rows keyed by property name.
	// Sets are filled in name order, rows in listed order.
	Fixtures map[string][]map[string]any `yaml:"fixtures,omitempty"`

	// Cases are the requests, run in order.
	Cases []Case `yaml:"cases"`

	// Assertions validate the query log and stored tables after all
	// cases have run.
	// Supported types: log_contains, log_order, log_count, table_row
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Case is a single request and its expected outcome.
type Case struct {
	// Name identifies the case in the trace and in failures.
	Name string `yaml:"name"`

	// EntitySet is the set the request addresses.
	EntitySet string `yaml:"entity_set"`

	// Query is a raw query string ("$filter=...&$top=2"). It is exclusive
	// with the individual option fields below.
	Query string `yaml:"query,omitempty"`

	Filter  string   `yaml:"filter,omitempty"`
	OrderBy string   `yaml:"orderby,omitempty"`
	Select  []string `yaml:"select,omitempty"`
	Top     *int64   `yaml:"top,omitempty"`
	Skip    *int64   `yaml:"skip,omitempty"`

	// CompileOnly compiles the request without executing it. Needed for
	// SQL the test database cannot run, e.g. "= ANY (subquery)" on SQLite.
	CompileOnly bool `yaml:"compile_only,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the case only has to succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a case. Only the fields that
// are set are checked.
type Expect struct {
	// Error is the expected error code, e.g. "PARSE_ERROR".
	Error string `yaml:"error,omitempty"`

	// SQL is the full expected statement.
	SQL string `yaml:"sql,omitempty"`

	// Where is the expected translated $filter.
	Where string `yaml:"where,omitempty"`

	// Params are the expected bound parameters of the full statement.
	Params []any `yaml:"params,omitempty"`

	// Rows are the expected result rows, in order. Each row is a subset
	// match: only the listed properties are compared.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Count is the expected number of result rows.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates the query log or a stored table.
type Assertion struct {
	// Type specifies the assertion type:
	// - "log_contains": A logged request on EntitySet whose SQL contains SQL
	// - "log_order": Cases were logged in the listed order
	// - "log_count": EntitySet was queried exactly Count times
	// - "table_row": Query Table and verify expected values
	Type string `yaml:"type"`

	// EntitySet filters logged requests (log_contains, log_count).
	// Empty matches every set.
	EntitySet string `yaml:"entity_set,omitempty"`

	// SQL is a substring of the logged statement (log_contains).
	SQL string `yaml:"sql,omitempty"`

	// Cases is the expected case order (log_order).
	Cases []string `yaml:"cases,omitempty"`

	// Count is the expected number of logged requests (log_count).
	Count int `yaml:"count,omitempty"`

	// Table is the table name (table_row).
	Table string `yaml:"table,omitempty"`

	// Where specifies column filters (table_row).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (table_row).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertLogContains = "log_contains"
	AssertLogOrder    = "log_order"
	AssertLogCount    = "log_count"
	AssertTableRow    = "table_row"
)

// LoadScenario reads and parses a scenario YAML file.
// The schema path is resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := parseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve schema path relative to base path BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "case:" vs "cases:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, c := range s.Cases {
		if err := validateCase(i, &c); err != nil {
			return err
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateCase(index int, c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("cases[%d]: name is required", index)
	}
	if c.EntitySet == "" {
		return fmt.Errorf("cases[%d]: entity_set is required", index)
	}
	if c.Query != "" && (c.Filter != "" || c.OrderBy != "" || c.Select != nil || c.Top != nil || c.Skip != nil) {
		return fmt.Errorf("cases[%d]: query cannot be combined with filter, orderby, select, top or skip", index)
	}

	e := c.Expect
	if e == nil {
		return nil
	}
	if e.Error != "" && (e.SQL != "" || e.Where != "" || e.Params != nil || e.Rows != nil || e.Count != nil) {
		return fmt.Errorf("cases[%d].expect: error cannot be combined with other expectations", index)
	}
	if c.CompileOnly && (e.Rows != nil || e.Count != nil) {
		return fmt.Errorf("cases[%d].expect: rows and count need an executed case", index)
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("cases[%d].expect: count must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLogContains:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for log_contains", index)
		}
	case AssertLogOrder:
		if len(a.Cases) == 0 {
			return fmt.Errorf("assertions[%d]: cases list is required for log_order", index)
		}
	case AssertLogCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
	case AssertTableRow:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for table_row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for table_row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
