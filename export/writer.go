package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Format names an output serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ValueConverter renders one scanned value as text given the column's database type.
type ValueConverter func(value any, dataType string) string

// Writer serializes one table snapshot.
type Writer interface {
	// Extension is the file extension, without the dot
	Extension() string

	// Write serializes the table to w using headers as the header labels
	Write(w io.Writer, table *Table, headers []string, convert ValueConverter) error
}

// NewWriter returns the writer for a format; the empty format means CSV.
func NewWriter(format Format) (Writer, error) {
	switch Format(strings.ToLower(string(format))) {
	case "", FormatCSV:
		return CSVWriter{}, nil
	case FormatJSON:
		return JSONWriter{}, nil
	case FormatXLSX:
		return XLSXWriter{}, nil
	default:
		return nil, NewError(KindConfig, fmt.Sprintf("unsupported output format %q", format), nil)
	}
}

// CSVWriter writes a header line and one comma-separated line per row.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return string(FormatCSV) }

func (CSVWriter) Write(w io.Writer, table *Table, headers []string, convert ValueConverter) error {
	writer := csv.NewWriter(w)
	writer.Comma = ','

	if err := writer.Write(headers); err != nil {
		return err
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, value := range row {
			record[i] = convert(value, table.Columns[i].DataType)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// JSONWriter writes an array of objects whose keys keep the column order.
// NULL stays null; every other value is written as its text form.
type JSONWriter struct{}

func (JSONWriter) Extension() string { return string(FormatJSON) }

func (JSONWriter) Write(w io.Writer, table *Table, headers []string, convert ValueConverter) error {
	keys := make([][]byte, len(headers))
	for i, h := range headers {
		key, err := json.Marshal(h)
		if err != nil {
			return err
		}
		keys[i] = key
	}

	var buf bytes.Buffer
	buf.WriteString("[")
	for r, row := range table.Rows {
		if r > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for i, value := range row {
			if i > 0 {
				buf.WriteString(",")
			}
			buf.Write(keys[i])
			buf.WriteString(":")
			if value == nil {
				buf.WriteString("null")
				continue
			}
			encoded, err := json.Marshal(convert(value, table.Columns[i].DataType))
			if err != nil {
				return err
			}
			buf.Write(encoded)
		}
		buf.WriteString("}")
	}
	if len(table.Rows) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")

	_, err := w.Write(buf.Bytes())
	return err
}

const (
	excelMaxRows      = 1048576
	excelMaxSheetName = 31
	defaultSheetName  = "Sheet1"
)

// XLSXWriter writes a workbook with one sheet named after the table.
type XLSXWriter struct{}

func (XLSXWriter) Extension() string { return string(FormatXLSX) }

func (XLSXWriter) Write(w io.Writer, table *Table, headers []string, convert ValueConverter) error {
	if len(table.Rows)+1 > excelMaxRows {
		return fmt.Errorf("xlsx row limit exceeded: %d rows", len(table.Rows))
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	sheetName := sheetNameFor(table.Name)
	if defaultSheet := file.GetSheetName(0); defaultSheet != sheetName {
		file.SetSheetName(defaultSheet, sheetName)
	}

	stream, err := file.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	headerID, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = excelize.Cell{StyleID: headerID, Value: h}
	}
	if err := stream.SetRow("A1", headerCells); err != nil {
		return err
	}

	for r, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for i, value := range row {
			cells[i] = xlsxCellValue(value, table.Columns[i].DataType, convert)
		}
		if err := stream.SetRow(fmt.Sprintf("A%d", r+2), cells); err != nil {
			return err
		}
	}

	if err := stream.Flush(); err != nil {
		return err
	}

	_, err = file.WriteTo(w)
	return err
}

func xlsxCellValue(value any, dataType string, convert ValueConverter) interface{} {
	switch v := value.(type) {
	case nil:
		return ""
	case int64, int32, int, float64, float32, bool:
		return v
	default:
		return convert(value, dataType)
	}
}

// sheetNameFor maps a table name to a valid worksheet name
func sheetNameFor(tableName string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, tableName)
	name = strings.Trim(name, "'")

	if utf8.RuneCountInString(name) > excelMaxSheetName {
		name = string([]rune(name)[:excelMaxSheetName])
	}
	if name == "" {
		return defaultSheetName
	}
	return name
}
