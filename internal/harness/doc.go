// Package harness provides conformance testing for query translation.
//
// The harness loads a CUE schema, fills an in-memory database with
// fixtures, runs a list of requests through the engine, and checks the
// SQL, parameters, errors and rows each one produces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../../testdata/schema
//	request_id: flights
//	fixtures:
//	  flights:
//	    - { id: 1, code: lhr, gate: 4 }
//	cases:
//	  - name: by_code
//	    entity_set: flights
//	    filter: "code eq 'lhr'"
//	    expect:
//	      where: "code = ?"
//	      params: [lhr]
//	      rows: [{ id: 1 }]
//	  - name: lambda
//	    entity_set: flights
//	    filter: "passengers/any(p: p/age gt 60)"
//	    compile_only: true
//	    expect:
//	      where: "( id = ANY ( SELECT flight_id FROM passengers AS s1 WHERE age > ? ) )"
//	assertions:
//	  - type: log_count
//	    entity_set: flights
//	    count: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - log_contains: A logged request's SQL contains a fragment
//   - log_order: Cases were logged in the specified order
//   - log_count: A set was queried exactly N times
//   - table_row: Queries a table and verifies expected values
//
// # Deterministic Testing
//
// The harness uses:
//   - Sequential request IDs (testutil.SequentialRequestIDs)
//   - The engine's logical clock, fresh per scenario
//   - In-memory SQLite database (isolated per scenario)
//
// This ensures identical traces across runs for golden file comparison.
package harness
