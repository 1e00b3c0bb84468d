package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataql/internal/schema"
	"github.com/roach88/odataql/internal/store"
)

// schemaDir is the shared flight schema.
var schemaDir = filepath.Join("..", "..", "testdata", "schema")

// execute runs the command built by newCmd with args and returns its
// standard output.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	return executeWith(t, newCmd(&RootOptions{Format: format}), args...)
}

// seedDatabase creates a sqlite database with the flight tables and three
// flights, and returns its path.
func seedDatabase(t *testing.T) string {
	t.Helper()

	loaded, errs := schema.Load(schemaDir, schema.LoadModeFailFast)
	require.Empty(t, errs)

	path := filepath.Join(t.TempDir(), "flights.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Bootstrap(ctx, loaded.Model))

	flights := loaded.Model.Set("flights")
	for _, row := range []map[string]any{
		{"id": 1, "code": "lhr", "origin": "lhr", "destination": "jfk", "gate": 4},
		{"id": 2, "code": "lhr", "origin": "lhr", "destination": "sfo", "gate": 0},
		{"id": 3, "code": "sfo", "origin": "sfo", "destination": "lhr", "gate": 2},
	} {
		require.NoError(t, st.Insert(ctx, flights, row))
	}
	return path
}

// executeWith runs an already built command with args.
func executeWith(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
