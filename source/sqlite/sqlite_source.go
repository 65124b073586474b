package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/imtaco/db2csv/source"
)

// ErrDatabaseNotFound is returned by Connect when the database file does not exist.
var ErrDatabaseNotFound = errors.New("database file not found")

// SQLiteSource implements the SourceDB interface for a local SQLite database file
type SQLiteSource struct {
	db *sql.DB
}

// New creates a new SQLite source database instance
func New() *SQLiteSource {
	return &SQLiteSource{}
}

// Connect opens the SQLite database file at path. The file must already exist;
// the driver would otherwise create an empty database.
func (s *SQLiteSource) Connect(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return fmt.Errorf("failed to stat SQLite database: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("SQLite database path %s is a directory", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	// One connection keeps every read on the same snapshot of the file.
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Ping verifies the connection and that the file is a readable SQLite database
func (s *SQLiteSource) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not connected")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("not a valid SQLite database: %w", err)
	}
	return nil
}

// ListTables returns every sqlite_master entry of type table, in catalog order
func (s *SQLiteSource) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}
	return tables, nil
}

// GetTableDependencies returns all tables and the tables each one references
// through a foreign key. Keys of the dependency map are lower-cased.
func (s *SQLiteSource) GetTableDependencies(ctx context.Context) ([]string, map[string][]string, error) {
	allTableList, err := s.ListTables(ctx)
	if err != nil {
		return nil, nil, err
	}

	dependencies := make(map[string][]string)
	for _, table := range allTableList {
		dependencies[strings.ToLower(table)] = []string{}
	}

	fkRows, err := s.db.QueryContext(ctx, `
		SELECT m.name, p."table"
		FROM sqlite_master m
		JOIN pragma_foreign_key_list(m.name) p
		WHERE m.type = 'table'
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var dependent, referenced string
		if err := fkRows.Scan(&dependent, &referenced); err != nil {
			return nil, nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		depLower := strings.ToLower(dependent)
		refLower := strings.ToLower(referenced)

		// Skip self-references and references to tables that do not exist
		if _, ok := dependencies[refLower]; !ok || depLower == refLower {
			continue
		}
		dependencies[depLower] = append(dependencies[depLower], refLower)
	}
	if err := fkRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate foreign keys: %w", err)
	}

	return allTableList, dependencies, nil
}

// timeDeclTypes are the declared column types the driver parses into time.Time
var timeDeclTypes = map[string]bool{
	"DATE":      true,
	"DATETIME":  true,
	"TIMESTAMP": true,
}

// QueryRows selects every column and row of a table. Columns declared with a
// date type are selected through a unary plus so their stored text is returned
// unchanged instead of being parsed into a time.
func (s *SQLiteSource) QueryRows(ctx context.Context, tableName string) (*sql.Rows, error) {
	columns, err := s.selectList(ctx, tableName)
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, "SELECT "+columns+" FROM "+source.QuoteIdentifier(tableName))
}

// selectList builds the column list for QueryRows, in the same order as SELECT *
func (s *SQLiteSource) selectList(ctx context.Context, tableName string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, type FROM pragma_table_xinfo(?) WHERE hidden <> 1 ORDER BY cid", tableName)
	if err != nil {
		return "", fmt.Errorf("failed to get columns of %s: %w", tableName, err)
	}
	defer rows.Close()

	var exprs []string
	rewritten := false
	for rows.Next() {
		var name, declType string
		if err := rows.Scan(&name, &declType); err != nil {
			return "", fmt.Errorf("failed to scan column info: %w", err)
		}
		quoted := source.QuoteIdentifier(name)
		if timeDeclTypes[strings.ToUpper(strings.TrimSpace(declType))] {
			exprs = append(exprs, "+"+quoted+" AS "+quoted)
			rewritten = true
			continue
		}
		exprs = append(exprs, quoted)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate column info: %w", err)
	}

	if !rewritten {
		return "*", nil
	}
	return strings.Join(exprs, ", "), nil
}

// ConvertValueForCSV converts SQLite values (INTEGER, REAL, TEXT, BLOB, NULL) to text
func (s *SQLiteSource) ConvertValueForCSV(value any, dataType string) string {
	return source.FormatValue(value)
}
