package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedLog runs three requests against a seeded database and returns its path.
func seedLog(t *testing.T) string {
	t.Helper()
	db := seedDatabase(t)
	runQueryJSON(t, db, "--set", "flights", "--filter", "gate gt 1")
	runQueryJSON(t, db, "--bootstrap", "--set", "airports")
	runQueryJSON(t, db, "--set", "flights", "--top", "1")
	return db
}

func TestLogText(t *testing.T) {
	db := seedLog(t)

	out, err := execute(t, NewLogCommand, "text", "--db", db)
	require.NoError(t, err)

	assert.Contains(t, out, "Query log: 3 request(s), 3 row(s)")
	assert.Contains(t, out, "[1] ")
	assert.Contains(t, out, "SELECT id, code, origin, destination, gate FROM flights WHERE gate > ? ORDER BY id ASC")
	assert.Contains(t, out, "[3] ")
}

func TestLogJSONFilteredBySet(t *testing.T) {
	db := seedLog(t)

	out, err := execute(t, NewLogCommand, "json", "--db", db, "--set", "flights")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, int64(1), resp.Data.Entries[0].Seq)
	assert.Equal(t, int64(3), resp.Data.Entries[1].Seq)
	assert.Equal(t, []any{float64(1)}, resp.Data.Entries[0].Params)
	assert.Equal(t, 2, resp.Data.Stats.Requests)
	assert.Equal(t, int64(3), resp.Data.Stats.Rows)
	assert.Equal(t, map[string]int{"flights": 2}, resp.Data.Stats.BySet)
}

func TestLogSingleRequest(t *testing.T) {
	db := seedDatabase(t)
	resp := runQueryJSON(t, db, "--set", "flights")

	out, err := execute(t, NewLogCommand, "json", "--db", db, "--request", resp.Data.RequestID)
	require.NoError(t, err)

	var logResp struct {
		Data LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &logResp))
	require.Len(t, logResp.Data.Entries, 1)
	assert.Equal(t, resp.Data.RequestID, logResp.Data.Entries[0].RequestID)
	assert.Equal(t, int64(3), logResp.Data.Entries[0].Rows)
}

func TestLogUnknownRequest(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, NewLogCommand, "text", "--db", db, "--request", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "No requests found in query log.")
}

func TestLogVerboseParams(t *testing.T) {
	db := seedLog(t)

	cmd := NewLogCommand(&RootOptions{Format: "text", Verbose: true})
	out, err := executeWith(t, cmd, "--db", db, "--set", "flights")
	require.NoError(t, err)
	assert.Contains(t, out, "$1=1")
}
