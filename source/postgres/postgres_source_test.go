package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imtaco/db2csv/source"
)

var (
	_ source.SourceDB    = (*PostgresSource)(nil)
	_ source.TableCopier = (*PostgresSource)(nil)
)

func TestNewDefaultsSchema(t *testing.T) {
	assert.Equal(t, DefaultSchema, New("").schema)
	assert.Equal(t, "sales", New("sales").schema)
}

func TestPingWithoutConnect(t *testing.T) {
	assert.Error(t, New("").Ping(context.Background()))
	assert.NoError(t, New("").Close())
}

func TestConvertValueForCSV(t *testing.T) {
	p := New("")

	assert.Equal(t, "", p.ConvertValueForCSV(nil, "TEXT"))
	assert.Equal(t, "\\xdead", p.ConvertValueForCSV([]byte{0xde, 0xad}, "BYTEA"))
	assert.Equal(t, "12.50", p.ConvertValueForCSV([]byte("12.50"), "NUMERIC"))
	assert.Equal(t, "f", p.ConvertValueForCSV("f", "TEXT"))
	assert.Equal(t, "false", p.ConvertValueForCSV(false, "BOOL"))
}
