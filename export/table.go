package export

import (
	"context"
	"fmt"

	"github.com/imtaco/db2csv/source"
)

// Table is an in-memory snapshot of one table: its result columns, in query
// order, and every row with values in the same order.
type Table struct {
	Name    string
	Columns []source.ColumnInfo
	Rows    [][]any
}

// ColumnNames returns the column names in query order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Record returns row i as a mapping from column name to value
func (t *Table) Record(i int) map[string]any {
	record := make(map[string]any, len(t.Columns))
	for j, col := range t.Columns {
		record[col.Name] = t.Rows[i][j]
	}
	return record
}

// readTable performs an unfiltered read of every column and row of a table
func readTable(ctx context.Context, sourceDB source.SourceDB, tableName string) (*Table, error) {
	rows, err := sourceDB.QueryRows(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	table := &Table{
		Name:    tableName,
		Columns: make([]source.ColumnInfo, len(colTypes)),
	}
	for i, ct := range colTypes {
		table.Columns[i] = source.ColumnInfo{Name: ct.Name(), DataType: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]any, len(colTypes))
		valuePtrs := make([]any, len(colTypes))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		// Drivers may reuse byte slices between rows
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return table, nil
}
