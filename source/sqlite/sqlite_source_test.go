package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imtaco/db2csv/source"
)

var _ source.SourceDB = (*SQLiteSource)(nil)

func createDB(t *testing.T, stmts ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func connect(t *testing.T, path string) *SQLiteSource {
	t.Helper()

	s := New()
	require.NoError(t, s.Connect(context.Background(), path))
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestConnectMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	err := New().Connect(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDatabaseNotFound))
	assert.NoFileExists(t, path)
}

func TestConnectDirectory(t *testing.T) {
	err := New().Connect(context.Background(), t.TempDir())
	require.Error(t, err)
}

func TestPingRejectsNonDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("plain text, not a database\n", 40)), 0o644))

	s := New()
	require.NoError(t, s.Connect(context.Background(), path))
	defer s.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestPingWithoutConnect(t *testing.T) {
	assert.Error(t, New().Ping(context.Background()))
	assert.NoError(t, New().Close())
}

func TestListTablesCatalogOrder(t *testing.T) {
	s := connect(t, createDB(t,
		"CREATE TABLE zebra (id INTEGER)",
		"CREATE TABLE apple (id INTEGER PRIMARY KEY AUTOINCREMENT)",
		"CREATE INDEX apple_idx ON apple (id)",
		"CREATE VIEW apple_view AS SELECT * FROM apple",
		"CREATE TABLE mango (id INTEGER)",
	))

	tables, err := s.ListTables(context.Background())
	require.NoError(t, err)
	// sqlite_sequence is created by AUTOINCREMENT and is a table in the catalog
	assert.Equal(t, []string{"zebra", "apple", "sqlite_sequence", "mango"}, tables)
}

func TestListTablesEmpty(t *testing.T) {
	s := connect(t, createDB(t))

	tables, err := s.ListTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestGetTableDependencies(t *testing.T) {
	s := connect(t, createDB(t,
		"CREATE TABLE Orders (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES Users(id), parent_id INTEGER REFERENCES Orders(id))",
		"CREATE TABLE Users (id INTEGER PRIMARY KEY)",
		"CREATE TABLE audit (id INTEGER, ref INTEGER REFERENCES gone(id))",
	))

	tables, deps, err := s.GetTableDependencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders", "Users", "audit"}, tables)
	assert.Equal(t, map[string][]string{
		"orders": {"users"},
		"users":  {},
		"audit":  {},
	}, deps)
}

func TestQueryRowsQuotesTableName(t *testing.T) {
	s := connect(t, createDB(t,
		`CREATE TABLE "select" ("from" TEXT, "a""b" INTEGER)`,
		`INSERT INTO "select" VALUES ('x', 1)`,
	))

	rows, err := s.QueryRows(context.Background(), "select")
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"from", `a"b`}, cols)

	require.True(t, rows.Next())
	var from string
	var ab int64
	require.NoError(t, rows.Scan(&from, &ab))
	assert.Equal(t, "x", from)
	assert.Equal(t, int64(1), ab)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Err())
}

func TestQueryRowsKeepsDateText(t *testing.T) {
	s := connect(t, createDB(t,
		`CREATE TABLE events (id INTEGER, day DATE, "at time" DATETIME, ts timestamp, flag BOOLEAN)`,
		`INSERT INTO events VALUES (1, '2020-01-05', '2020-01-05 10:11:12', '2021-03-04T05:06:07Z', 1)`,
		`INSERT INTO events VALUES (2, NULL, 'not a date', 1700000000, 0)`,
	))

	rows, err := s.QueryRows(context.Background(), "events")
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "day", "at time", "ts", "flag"}, cols)

	var got [][]string
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = s.ConvertValueForCSV(v, "")
		}
		got = append(got, record)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, [][]string{
		{"1", "2020-01-05", "2020-01-05 10:11:12", "2021-03-04T05:06:07Z", "1"},
		{"2", "", "not a date", "1700000000", "0"},
	}, got)
}

func TestConvertValueForCSV(t *testing.T) {
	s := New()
	assert.Equal(t, "", s.ConvertValueForCSV(nil, "TEXT"))
	assert.Equal(t, "12", s.ConvertValueForCSV(int64(12), "INTEGER"))
	assert.Equal(t, "9.99", s.ConvertValueForCSV(9.99, "REAL"))
	assert.Equal(t, "\\x00ff", s.ConvertValueForCSV([]byte{0x00, 0xff}, "BLOB"))
}
