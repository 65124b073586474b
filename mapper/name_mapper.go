package mapper

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// NameMapper defines the interface for mapping table and column names
// to export file names and header labels
type NameMapper interface {
	// MapTableName maps a source table name to the base name of its export file
	MapTableName(sourceTableName string) string

	// MapColumnName maps a source column name to its header label for a specific table
	MapColumnName(tableName string, sourceColumnName string) string
}

// DefaultNameMapper provides a default implementation that doesn't change names
type DefaultNameMapper struct{}

// NewDefaultNameMapper creates a new default name mapper
func NewDefaultNameMapper() *DefaultNameMapper {
	return &DefaultNameMapper{}
}

// MapTableName returns the table name unchanged
func (m *DefaultNameMapper) MapTableName(sourceTableName string) string {
	return sourceTableName
}

// MapColumnName returns the column name unchanged
func (m *DefaultNameMapper) MapColumnName(tableName string, sourceColumnName string) string {
	return sourceColumnName
}

// CustomNameMapper allows users to define custom mappings for tables and columns
type CustomNameMapper struct {
	// TableMappings maps source table names to export file base names
	TableMappings map[string]string

	// ColumnMappings maps table names to their header label mappings
	// Format: map[tableName]map[sourceColumnName]headerLabel
	ColumnMappings map[string]map[string]string

	// TableNameTransformer is an optional function to transform table names
	// Applied after checking TableMappings
	TableNameTransformer func(string) string

	// ColumnNameTransformer is an optional function to transform column names
	// Applied after checking ColumnMappings
	ColumnNameTransformer func(tableName, columnName string) string
}

// NewCustomNameMapper creates a new custom name mapper
func NewCustomNameMapper() *CustomNameMapper {
	return &CustomNameMapper{
		TableMappings:  make(map[string]string),
		ColumnMappings: make(map[string]map[string]string),
	}
}

// MapTableName maps a source table name to an export file base name
func (m *CustomNameMapper) MapTableName(sourceTableName string) string {
	// Check explicit mapping first; config loaders may have lower-cased the keys
	if mapped, ok := m.TableMappings[sourceTableName]; ok {
		return mapped
	}
	if mapped, ok := m.TableMappings[strings.ToLower(sourceTableName)]; ok {
		return mapped
	}

	// Apply transformer if available
	if m.TableNameTransformer != nil {
		return m.TableNameTransformer(sourceTableName)
	}

	// Return original name
	return sourceTableName
}

// MapColumnName maps a source column name to a header label for a specific table
func (m *CustomNameMapper) MapColumnName(tableName string, sourceColumnName string) string {
	// Check table-specific column mapping first
	tableMappings, ok := m.ColumnMappings[tableName]
	if !ok {
		tableMappings = m.ColumnMappings[strings.ToLower(tableName)]
	}
	if mapped, ok := tableMappings[sourceColumnName]; ok {
		return mapped
	}
	if mapped, ok := tableMappings[strings.ToLower(sourceColumnName)]; ok {
		return mapped
	}

	// Apply transformer if available
	if m.ColumnNameTransformer != nil {
		return m.ColumnNameTransformer(tableName, sourceColumnName)
	}

	// Return original name
	return sourceColumnName
}

// AddTableMapping adds a table name mapping
func (m *CustomNameMapper) AddTableMapping(source, target string) {
	m.TableMappings[source] = target
}

// AddColumnMapping adds a column name mapping for a specific table
func (m *CustomNameMapper) AddColumnMapping(tableName, sourceColumn, targetColumn string) {
	if m.ColumnMappings[tableName] == nil {
		m.ColumnMappings[tableName] = make(map[string]string)
	}
	m.ColumnMappings[tableName][sourceColumn] = targetColumn
}

// SetTableNameTransformer sets a function to transform all table names
func (m *CustomNameMapper) SetTableNameTransformer(transformer func(string) string) {
	m.TableNameTransformer = transformer
}

// SetColumnNameTransformer sets a function to transform all column names
func (m *CustomNameMapper) SetColumnNameTransformer(transformer func(tableName, columnName string) string) {
	m.ColumnNameTransformer = transformer
}

// Common transformers that can be used

// ToLowerCaseTransformer converts names to lowercase
func ToLowerCaseTransformer(name string) string {
	return strings.ToLower(name)
}

// ToUpperCaseTransformer converts names to uppercase
func ToUpperCaseTransformer(name string) string {
	return strings.ToUpper(name)
}

// ToSnakeCaseTransformer converts PascalCase/camelCase to snake_case
// Uses the strcase library for proper conversion
func ToSnakeCaseTransformer(name string) string {
	return strcase.ToSnake(name)
}

// ToCamelCaseTransformer converts names to camelCase
func ToCamelCaseTransformer(name string) string {
	return strcase.ToLowerCamel(name)
}

// ToPascalCaseTransformer converts names to PascalCase
func ToPascalCaseTransformer(name string) string {
	return strcase.ToCamel(name)
}

// ToKebabCaseTransformer converts names to kebab-case
func ToKebabCaseTransformer(name string) string {
	return strcase.ToKebab(name)
}

// TransformerByName returns the named case transformer. "" and "original"
// return nil, meaning names are kept as they are.
func TransformerByName(name string) (func(string) string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "original":
		return nil, nil
	case "lower":
		return ToLowerCaseTransformer, nil
	case "upper":
		return ToUpperCaseTransformer, nil
	case "snake":
		return ToSnakeCaseTransformer, nil
	case "camel":
		return ToCamelCaseTransformer, nil
	case "pascal":
		return ToPascalCaseTransformer, nil
	case "kebab":
		return ToKebabCaseTransformer, nil
	default:
		return nil, fmt.Errorf("unknown naming transformer %q", name)
	}
}

// SanitizeFileName turns a mapped table name into a file name that stays
// inside the export directory. Path separators and NUL become underscores and
// the special names "." and ".." are prefixed.
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)

	switch name {
	case "":
		return "_"
	case ".", "..":
		return "_" + name
	}
	return name
}
