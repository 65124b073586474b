package postgres

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/imtaco/db2csv/source"
)

// DefaultSchema is the schema exported when none is configured
const DefaultSchema = "public"

// PostgresSource implements the SourceDB interface for PostgreSQL.
// Regular reads go through database/sql with lib/pq; CopyTable uses a
// dedicated pgx connection to stream COPY output.
type PostgresSource struct {
	db      *sql.DB
	connStr string
	schema  string
}

// New creates a new PostgreSQL source reading tables of the given schema
func New(schema string) *PostgresSource {
	if schema == "" {
		schema = DefaultSchema
	}
	return &PostgresSource{schema: schema}
}

// Connect establishes a connection to the PostgreSQL database
func (p *PostgresSource) Connect(ctx context.Context, connStr string) error {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	p.db = db
	p.connStr = connStr
	return nil
}

// Close closes the database connection
func (p *PostgresSource) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Ping verifies the connection to the database
func (p *PostgresSource) Ping(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("database not connected")
	}
	return p.db.PingContext(ctx)
}

// ListTables returns the base tables of the configured schema
func (p *PostgresSource) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}
	return tables, nil
}

// GetTableDependencies returns all tables and their foreign key dependencies
func (p *PostgresSource) GetTableDependencies(ctx context.Context) ([]string, map[string][]string, error) {
	allTableList, err := p.ListTables(ctx)
	if err != nil {
		return nil, nil, err
	}

	fkQuery := `
		SELECT
			tc.table_name AS dependent_table,
			ccu.table_name AS referenced_table
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.constraint_schema = ccu.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND ccu.table_schema = $1
	`
	fkRows, err := p.db.QueryContext(ctx, fkQuery, p.schema)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer fkRows.Close()

	dependencies := make(map[string][]string)
	for _, table := range allTableList {
		dependencies[strings.ToLower(table)] = []string{}
	}

	for fkRows.Next() {
		var dependent, referenced string
		if err := fkRows.Scan(&dependent, &referenced); err != nil {
			return nil, nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		depLower := strings.ToLower(dependent)
		refLower := strings.ToLower(referenced)

		if depLower != refLower {
			dependencies[depLower] = append(dependencies[depLower], refLower)
		}
	}
	if err := fkRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate foreign keys: %w", err)
	}

	return allTableList, dependencies, nil
}

// QueryRows selects every column and row of a table
func (p *PostgresSource) QueryRows(ctx context.Context, tableName string) (*sql.Rows, error) {
	query := "SELECT * FROM " + pq.QuoteIdentifier(p.schema) + "." + pq.QuoteIdentifier(tableName)
	return p.db.QueryContext(ctx, query)
}

// CopyTable streams the table as CSV with a header row using COPY TO STDOUT.
// It returns the number of rows copied.
func (p *PostgresSource) CopyTable(ctx context.Context, tableName string, w io.Writer) (int64, error) {
	conn, err := pgx.Connect(ctx, p.connStr)
	if err != nil {
		return 0, fmt.Errorf("failed to open COPY connection: %w", err)
	}
	defer conn.Close(ctx)

	copySQL := fmt.Sprintf("COPY (SELECT * FROM %s) TO STDOUT WITH (FORMAT csv, HEADER true, ENCODING 'UTF8')",
		pgx.Identifier{p.schema, tableName}.Sanitize())

	tag, err := conn.PgConn().CopyTo(ctx, w, copySQL)
	if err != nil {
		return 0, fmt.Errorf("failed to copy table %s: %w", tableName, err)
	}
	return tag.RowsAffected(), nil
}

// ConvertValueForCSV converts PostgreSQL values to CSV text
func (p *PostgresSource) ConvertValueForCSV(value any, dataType string) string {
	// bytea is rendered the way PostgreSQL prints it in hex output mode
	if b, ok := value.([]byte); ok && strings.EqualFold(dataType, "BYTEA") {
		return "\\x" + hex.EncodeToString(b)
	}
	return source.FormatValue(value)
}
