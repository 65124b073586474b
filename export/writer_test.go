package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imtaco/db2csv/source"
)

func TestNewWriter(t *testing.T) {
	for format, ext := range map[Format]string{"": "csv", "csv": "csv", "CSV": "csv", "json": "json", "xlsx": "xlsx"} {
		w, err := NewWriter(format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, w.Extension())
	}

	_, err := NewWriter("parquet")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindFromError(err))
}

func TestCSVWriterUsesHeaderLabels(t *testing.T) {
	table := &Table{
		Name:    "t",
		Columns: []source.ColumnInfo{{Name: "a", DataType: "INTEGER"}, {Name: "b", DataType: "TEXT"}},
		Rows:    [][]any{{int64(1), "line\nbreak"}, {nil, "x"}},
	}

	var buf bytes.Buffer
	err := CSVWriter{}.Write(&buf, table, []string{"A", "B"}, func(v any, _ string) string {
		return source.FormatValue(v)
	})
	require.NoError(t, err)
	assert.Equal(t, "A,B\n1,\"line\nbreak\"\n,x\n", buf.String())
}

func TestTableRecord(t *testing.T) {
	table := &Table{
		Columns: []source.ColumnInfo{{Name: "id"}, {Name: "name"}},
		Rows:    [][]any{{int64(1), "Alice"}},
	}

	assert.Equal(t, []string{"id", "name"}, table.ColumnNames())
	assert.Equal(t, map[string]any{"id": int64(1), "name": "Alice"}, table.Record(0))
}

func TestSheetNameFor(t *testing.T) {
	assert.Equal(t, "users", sheetNameFor("users"))
	assert.Equal(t, "a_b_c_d", sheetNameFor("a/b:c?d"))
	assert.Equal(t, strings.Repeat("x", 31), sheetNameFor(strings.Repeat("x", 40)))
	assert.Equal(t, defaultSheetName, sheetNameFor("''"))
}
