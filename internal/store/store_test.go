package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", s.Driver(), DriverSQLite)
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM query_log").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", "query_log").Scan(&name)
	if err != nil {
		t.Errorf("query_log not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpenDriver_UnsupportedDriver(t *testing.T) {
	_, err := OpenDriver("oracle", "whatever")
	if err == nil {
		t.Error("expected error for unsupported driver, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	_ = s.Close()
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT id FROM flights WHERE gate > ? AND code LIKE ? ESCAPE '!' LIMIT ?"
	tests := []struct {
		driver string
		want   string
	}{
		{DriverSQLite, query},
		{DriverMySQL, query},
		{DriverPostgres, "SELECT id FROM flights WHERE gate > $1 AND code LIKE $2 ESCAPE '!' LIMIT $3"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s := &Store{driver: tt.driver}
			if got := s.Rebind(query); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	script := "-- heading\nCREATE TABLE a (x INT);\n\n-- second\nCREATE TABLE b (y INT);\n"
	got := splitStatements(script)
	if len(got) != 2 {
		t.Fatalf("splitStatements() returned %d statements, want 2: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x INT)" || got[1] != "CREATE TABLE b (y INT)" {
		t.Errorf("splitStatements() = %q", got)
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)
	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Schema tests

func TestSchema_QueryLogTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "query_log")
	for _, col := range []string{"request_id", "seq", "entity_set", "sql_text", "params", "param_types", "row_count"} {
		if !contains(columns, col) {
			t.Errorf("query_log missing column %q, got %v", col, columns)
		}
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_V1SeqIndexExists(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "query_log")
	if !contains(indexes, "idx_query_log_seq") {
		t.Errorf("query_log missing seq index, indexes: %v", indexes)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}
	if !contains(getTableIndexes(t, s.db, "query_log"), "idx_query_log_seq") {
		t.Error("expected seq index after migration")
	}
}

func TestMigration_UpgradeFromV1AddsParamTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	v1 := `CREATE TABLE query_log (
		request_id VARCHAR(64) NOT NULL PRIMARY KEY,
		seq BIGINT NOT NULL,
		entity_set VARCHAR(255) NOT NULL,
		sql_text TEXT NOT NULL,
		params TEXT NOT NULL,
		row_count BIGINT NOT NULL
	)`
	for _, stmt := range []string{
		v1,
		`INSERT INTO query_log VALUES ('old-1', 1, 'flights', 'SELECT id FROM flights WHERE gate > ?', '[3]', 2)`,
		"PRAGMA user_version = 1",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to prepare v1 database: %v", err)
		}
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if !contains(getTableColumns(t, s.db, "query_log"), "param_types") {
		t.Fatal("expected param_types column after migration")
	}
	e, err := s.ReadQueryLogEntry(context.Background(), "old-1")
	if err != nil {
		t.Fatalf("ReadQueryLogEntry() failed: %v", err)
	}
	if len(e.ParamTypes) != 0 {
		t.Errorf("ParamTypes = %v, want empty for entries logged before v2", e.ParamTypes)
	}
	params, err := e.BindParams()
	if err != nil {
		t.Fatalf("BindParams() failed: %v", err)
	}
	if len(params) != 1 || params[0] != int64(3) {
		t.Errorf("BindParams() = %#v, want [int64(3)]", params)
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
