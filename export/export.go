package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imtaco/db2csv/mapper"
	"github.com/imtaco/db2csv/source"
)

// CompletionMessage is printed once every table has been exported
const CompletionMessage = "Export complete"

// Config holds all configuration for an export run
type Config struct {
	SourceConnStr   string
	OutputDir       string
	Format          Format
	Order           Order
	ContinueOnError bool
	NativeCopy      bool
	SourceDB        source.SourceDB
	NameMapper      mapper.NameMapper

	// Out receives the progress and completion lines; defaults to os.Stdout
	Out io.Writer
}

// Result summarizes an export run
type Result struct {
	Tables  int
	Rows    int64
	Files   []string
	Failed  []string
	Elapsed time.Duration
}

// Run exports every table of the source database to its own file in the
// output directory. Files written before a failure are left in place.
func Run(ctx context.Context, config *Config) (*Result, error) {
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	nameMapper := config.NameMapper
	if nameMapper == nil {
		nameMapper = mapper.NewDefaultNameMapper()
	}

	writer, err := NewWriter(config.Format)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return nil, NewError(KindWrite, "failed to create output directory", err)
	}

	if err := config.SourceDB.Connect(ctx, config.SourceConnStr); err != nil {
		return nil, NewError(KindConnection, "failed to connect to source database", err)
	}
	defer func() {
		if err := config.SourceDB.Close(); err != nil {
			log.Printf("WARNING: Failed to close source database: %v", err)
		}
	}()

	if err := config.SourceDB.Ping(ctx); err != nil {
		return nil, NewError(KindConnection, "failed to ping source database", err)
	}

	tables, err := config.SourceDB.ListTables(ctx)
	if err != nil {
		return nil, NewError(KindQuery, "failed to list tables", err)
	}
	tables, err = orderTables(ctx, config.SourceDB, tables, config.Order)
	if err != nil {
		var exportErr *ExportError
		if errors.As(err, &exportErr) {
			return nil, err
		}
		return nil, NewError(KindQuery, "failed to get table dependencies", err)
	}

	log.Printf("Found %d tables", len(tables))

	copier, canCopy := config.SourceDB.(source.TableCopier)
	useCopy := config.NativeCopy && canCopy && writer.Extension() == string(FormatCSV)
	if config.NativeCopy && !useCopy {
		log.Printf("WARNING: Native copy unavailable for this source or format, reading rows instead")
	}

	paths, err := outputPaths(tables, config.OutputDir, writer.Extension(), nameMapper)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var failures []error
	totalStart := time.Now()

	for i, tableName := range tables {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fmt.Fprintf(out, "Exporting table: %s\n", tableName)

		path := paths[i]

		start := time.Now()
		var rowCount int64
		if useCopy {
			rowCount, err = copyTable(ctx, copier, tableName, path)
		} else {
			rowCount, err = exportTable(ctx, config.SourceDB, writer, nameMapper, tableName, path)
		}
		if err != nil {
			if !config.ContinueOnError {
				return result, err
			}
			log.Printf("ERROR: %v", err)
			failures = append(failures, err)
			result.Failed = append(result.Failed, tableName)
			continue
		}

		result.Tables++
		result.Rows += rowCount
		result.Files = append(result.Files, path)
		log.Printf("Table %s exported: %d rows in %.2f seconds", tableName, rowCount, time.Since(start).Seconds())
	}

	result.Elapsed = time.Since(totalStart)
	if len(failures) > 0 {
		return result, errors.Join(failures...)
	}

	fmt.Fprintln(out, CompletionMessage)
	return result, nil
}

// outputPaths returns the target file of each table. Two tables mapping to
// the same file, compared case-insensitively, is a configuration error.
func outputPaths(tables []string, outputDir, extension string, nameMapper mapper.NameMapper) ([]string, error) {
	paths := make([]string, len(tables))
	owners := make(map[string]string, len(tables))
	for i, tableName := range tables {
		path := filepath.Join(outputDir, mapper.SanitizeFileName(nameMapper.MapTableName(tableName))+"."+extension)
		key := strings.ToLower(path)
		if other, exists := owners[key]; exists {
			return nil, newTableError(KindConfig, tableName,
				fmt.Sprintf("output file %s is also the target of table %s", path, other), nil)
		}
		owners[key] = tableName
		paths[i] = path
	}
	return paths, nil
}

// exportTable reads one table into memory and writes it to path
func exportTable(
	ctx context.Context,
	sourceDB source.SourceDB,
	writer Writer,
	nameMapper mapper.NameMapper,
	tableName string,
	path string,
) (int64, error) {
	table, err := readTable(ctx, sourceDB, tableName)
	if err != nil {
		return 0, newTableError(KindQuery, tableName, "failed to read table", err)
	}

	headers := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		headers[i] = nameMapper.MapColumnName(tableName, col.Name)
	}

	err = writeFile(path, func(w io.Writer) error {
		return writer.Write(w, table, headers, sourceDB.ConvertValueForCSV)
	})
	if err != nil {
		return 0, newTableError(KindWrite, tableName, "failed to write "+path, err)
	}

	return int64(len(table.Rows)), nil
}

// copyTable lets the database stream the table straight into path
func copyTable(ctx context.Context, copier source.TableCopier, tableName string, path string) (int64, error) {
	var rowCount int64
	err := writeFile(path, func(w io.Writer) error {
		n, err := copier.CopyTable(ctx, tableName, w)
		rowCount = n
		return err
	})
	if err != nil {
		return 0, newTableError(KindQuery, tableName, "failed to copy table to "+path, err)
	}
	return rowCount, nil
}

// writeFile creates or truncates path and hands a buffered writer to fn
func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
