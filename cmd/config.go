package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/imtaco/db2csv/mapper"
	"github.com/imtaco/db2csv/source/postgres"
)

// Defaults used when nothing else is configured
const (
	defaultSourceType = "sqlite"
	defaultDBPath     = "database/gtd.db"
	defaultOutputDir  = "exports"
	defaultFormat     = "csv"
	defaultOrder      = "catalog"
)

// Config holds all application configuration
type Config struct {
	Source struct {
		Type    string `mapstructure:"type"`
		ConnStr string `mapstructure:"conn_str"`
		Schema  string `mapstructure:"schema"`
	} `mapstructure:"source"`

	Output struct {
		Dir    string `mapstructure:"dir"`
		Format string `mapstructure:"format"`
	} `mapstructure:"output"`

	Naming struct {
		Files   string `mapstructure:"files"`
		Headers string `mapstructure:"headers"`
	} `mapstructure:"naming"`

	Order           string                       `mapstructure:"order"`
	ContinueOnError bool                         `mapstructure:"continue_on_error"`
	NativeCopy      bool                         `mapstructure:"native_copy"`
	TableMappings   map[string]string            `mapstructure:"table_mappings"`
	ColumnMappings  map[string]map[string]string `mapstructure:"column_mappings"`
}

// newViper returns a viper instance with defaults and environment bindings.
// Precedence: flags > environment > config file > defaults.
func newViper() *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("source.type", defaultSourceType)
	v.SetDefault("source.conn_str", defaultDBPath)
	v.SetDefault("source.schema", postgres.DefaultSchema)
	v.SetDefault("output.dir", defaultOutputDir)
	v.SetDefault("output.format", defaultFormat)
	v.SetDefault("order", defaultOrder)
	v.SetDefault("continue_on_error", false)
	v.SetDefault("native_copy", false)

	// Enable environment variable reading
	v.SetEnvPrefix("DB2CSV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases for the two paths
	_ = v.BindEnv("source.conn_str", "DB2CSV_SOURCE_CONN_STR", "DB_PATH")
	_ = v.BindEnv("output.dir", "DB2CSV_OUTPUT_DIR", "EXPORT_DIR")

	return v
}

// LoadConfig loads configuration from the optional config file and the
// values already bound on v (environment, flags). An explicit configFile
// must exist; otherwise db2csv.yaml in the working directory is used when present.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("db2csv")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Source.ConnStr == "" {
		return fmt.Errorf("database path is required (set --database or DB2CSV_SOURCE_CONN_STR)")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output directory is required (set --output or DB2CSV_OUTPUT_DIR)")
	}
	switch strings.ToLower(c.Source.Type) {
	case "sqlite", "mssql", "postgres":
	default:
		return fmt.Errorf("unsupported source database type: %s", c.Source.Type)
	}
	if _, err := mapper.TransformerByName(c.Naming.Files); err != nil {
		return fmt.Errorf("naming.files: %w", err)
	}
	if _, err := mapper.TransformerByName(c.Naming.Headers); err != nil {
		return fmt.Errorf("naming.headers: %w", err)
	}
	if c.NativeCopy && (len(c.ColumnMappings) > 0 || !isOriginal(c.Naming.Headers)) {
		return fmt.Errorf("native_copy writes the database's own headers and cannot be combined with header naming or column mappings")
	}
	return nil
}

// NameMapper builds the mapper for file names and header labels
func (c *Config) NameMapper() (mapper.NameMapper, error) {
	if len(c.TableMappings) == 0 && len(c.ColumnMappings) == 0 &&
		isOriginal(c.Naming.Files) && isOriginal(c.Naming.Headers) {
		return mapper.NewDefaultNameMapper(), nil
	}

	m := mapper.NewCustomNameMapper()
	for table, target := range c.TableMappings {
		m.AddTableMapping(table, target)
	}
	for table, columns := range c.ColumnMappings {
		for column, label := range columns {
			m.AddColumnMapping(table, column, label)
		}
	}

	fileTransformer, err := mapper.TransformerByName(c.Naming.Files)
	if err != nil {
		return nil, err
	}
	if fileTransformer != nil {
		m.SetTableNameTransformer(fileTransformer)
	}

	headerTransformer, err := mapper.TransformerByName(c.Naming.Headers)
	if err != nil {
		return nil, err
	}
	if headerTransformer != nil {
		m.SetColumnNameTransformer(func(tableName, columnName string) string {
			return headerTransformer(columnName)
		})
	}

	return m, nil
}

func isOriginal(naming string) bool {
	n := strings.ToLower(strings.TrimSpace(naming))
	return n == "" || n == "original"
}
