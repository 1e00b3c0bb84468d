package testutil

import "fmt"

// SequentialRequestIDs generates "prefix-1", "prefix-2", ... request IDs.
//
// The same scenario run with a fresh generator produces byte-identical
// query logs and golden snapshots. Numbering comes from a
// DeterministicClock, so Reset starts the sequence over.
//
// Thread-safety: safe for concurrent use; the clock serializes access.
type SequentialRequestIDs struct {
	prefix string
	clock  *DeterministicClock
}

// NewSequentialRequestIDs creates a generator with the given prefix.
//
// The prefix is typically set in the scenario YAML:
//
//	request_id: "flights-req"
//
// If prefix is empty, IDs start with "test-request".
func NewSequentialRequestIDs(prefix string) *SequentialRequestIDs {
	if prefix == "" {
		prefix = "test-request"
	}
	return &SequentialRequestIDs{prefix: prefix, clock: NewDeterministicClock()}
}

// Generate returns the next request ID.
//
// Implements engine.RequestIDGenerator.
func (g *SequentialRequestIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.clock.Next())
}

// Reset restarts numbering at 1.
func (g *SequentialRequestIDs) Reset() {
	g.clock.Reset()
}
