package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/odataql/internal/model"
	"github.com/roach88/odataql/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createFlightStore bootstraps the flight model and inserts three flights
// and two passengers.
func createFlightStore(t *testing.T) (*Store, *model.Model) {
	t.Helper()
	s := createTestStore(t)
	m := testutil.FlightModel()
	ctx := context.Background()

	if err := s.Bootstrap(ctx, m); err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}

	flights := []map[string]any{
		{"id": 1, "code": "lhr", "origin": "lhr", "destination": "jfk", "gate": 4},
		{"id": 2, "code": "lhr", "origin": "lhr", "destination": "sfo", "gate": 0},
		{"id": 3, "code": "sfo", "origin": "sfo", "destination": "lhr", "gate": 2},
	}
	for _, row := range flights {
		if err := s.Insert(ctx, m.Set("flights"), row); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	passengers := []map[string]any{
		{"id": 10, "flight_id": 1, "name": "Ada", "age": 36},
		{"id": 11, "flight_id": 3, "name": "Grace", "age": 85},
	}
	for _, row := range passengers {
		if err := s.Insert(ctx, m.Set("passengers"), row); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}
	return s, m
}
