package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type upperName string

func (u upperName) String() string { return "NAME:" + string(u) }

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"null", nil, ""},
		{"string", "Alice", "Alice"},
		{"string with comma", "a,b", "a,b"},
		{"int64", int64(-42), "-42"},
		{"int", 7, "7"},
		{"float64", 9.99, "9.99"},
		{"whole float64", 2.0, "2"},
		{"small float64", 0.000001, "0.000001"},
		{"float32", float32(1.5), "1.5"},
		{"bool", true, "true"},
		{"utf8 bytes", []byte("héllo"), "héllo"},
		{"binary bytes", []byte{0x00, 0xff}, "\\x00ff"},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
		{"stringer", upperName("x"), "NAME:x"},
		{"other", struct{ A int }{1}, "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdentifier("users"))
	assert.Equal(t, `"my table"`, QuoteIdentifier("my table"))
	assert.Equal(t, `"a""b"`, QuoteIdentifier(`a"b`))
}
