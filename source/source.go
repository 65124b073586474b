package source

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceDB defines the interface for source database operations
type SourceDB interface {
	// Connect establishes a connection to the source database
	Connect(ctx context.Context, connStr string) error

	// Close closes the database connection
	Close() error

	// Ping verifies the connection to the database
	Ping(ctx context.Context) error

	// ListTables returns the table names from the database catalog, in catalog order
	ListTables(ctx context.Context) ([]string, error)

	// GetTableDependencies returns all tables and their foreign key dependencies
	GetTableDependencies(ctx context.Context) ([]string, map[string][]string, error)

	// QueryRows executes an unfiltered read of all columns and rows of a table
	QueryRows(ctx context.Context, tableName string) (*sql.Rows, error)

	// ConvertValueForCSV converts a scanned value to its textual CSV representation
	ConvertValueForCSV(value any, dataType string) string
}

// TableCopier is implemented by sources that can stream a whole table as CSV
// (header included) on their own, bypassing row scanning.
type TableCopier interface {
	CopyTable(ctx context.Context, tableName string, w io.Writer) (int64, error)
}

// ColumnInfo describes a result column as reported by the driver
type ColumnInfo struct {
	Name     string
	DataType string
}

// QuoteIdentifier quotes a table or column name with double quotes,
// doubling any embedded quote.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// FormatValue renders the value types common to database/sql drivers.
// NULL becomes an empty field.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return "\\x" + hex.EncodeToString(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
