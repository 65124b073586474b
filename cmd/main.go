package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imtaco/db2csv/export"
	"github.com/imtaco/db2csv/source"
	"github.com/imtaco/db2csv/source/mssql"
	"github.com/imtaco/db2csv/source/postgres"
	"github.com/imtaco/db2csv/source/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newViper()).ExecuteContext(ctx); err != nil {
		if ge := export.AsGoError(err); ge != nil {
			fmt.Fprintf(os.Stderr, "Export failed [%s]: %v\n", ge.TextCode, err)
		}
		stop()
		os.Exit(1)
	}
}

// newRootCmd creates the db2csv command with its flags bound to v
func newRootCmd(v *viper.Viper) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "db2csv",
		Short: "Export every table of a database to its own CSV file",
		Long: `db2csv opens a database, lists its tables and writes each table to
<output>/<table>.csv with a header row of column names.

With no configuration it reads the SQLite file database/gtd.db and writes to exports/.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(v, configFile)
			if err != nil {
				return export.NewError(export.KindConfig, "failed to load configuration", err)
			}
			if err := config.Validate(); err != nil {
				return export.NewError(export.KindConfig, "invalid configuration", err)
			}
			return runExport(cmd.Context(), cmd, config)
		},
	}

	flags := root.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./db2csv.yaml if present)")
	flags.StringP("database", "d", defaultDBPath, "database file path or connection string")
	flags.StringP("output", "o", defaultOutputDir, "directory to write export files to")
	flags.StringP("type", "t", defaultSourceType, "source database type: sqlite, mssql, postgres")
	flags.StringP("format", "f", defaultFormat, "output format: csv, json, xlsx")
	flags.String("order", defaultOrder, "table order: catalog, dependency")
	flags.Bool("continue-on-error", false, "keep exporting the remaining tables when one table fails")

	_ = v.BindPFlag("source.conn_str", flags.Lookup("database"))
	_ = v.BindPFlag("output.dir", flags.Lookup("output"))
	_ = v.BindPFlag("source.type", flags.Lookup("type"))
	_ = v.BindPFlag("output.format", flags.Lookup("format"))
	_ = v.BindPFlag("order", flags.Lookup("order"))
	_ = v.BindPFlag("continue_on_error", flags.Lookup("continue-on-error"))

	return root
}

func runExport(ctx context.Context, cmd *cobra.Command, config *Config) error {
	// Initialize source database based on type
	var sourceDB source.SourceDB
	switch strings.ToLower(config.Source.Type) {
	case "sqlite":
		sourceDB = sqlite.New()
	case "mssql":
		sourceDB = mssql.New()
	case "postgres":
		sourceDB = postgres.New(config.Source.Schema)
	default:
		return export.NewError(export.KindConfig, "unsupported source database type: "+config.Source.Type, nil)
	}

	nameMapper, err := config.NameMapper()
	if err != nil {
		return export.NewError(export.KindConfig, "invalid naming configuration", err)
	}

	exportConfig := &export.Config{
		SourceConnStr:   config.Source.ConnStr,
		OutputDir:       config.Output.Dir,
		Format:          export.Format(config.Output.Format),
		Order:           export.Order(strings.ToLower(config.Order)),
		ContinueOnError: config.ContinueOnError,
		NativeCopy:      config.NativeCopy,
		SourceDB:        sourceDB,
		NameMapper:      nameMapper,
		Out:             cmd.OutOrStdout(),
	}

	result, err := export.Run(ctx, exportConfig)
	if err != nil {
		return err
	}

	log.Printf("Exported %d tables (%d rows) to %s in %.2f seconds",
		result.Tables, result.Rows, config.Output.Dir, result.Elapsed.Seconds())
	return nil
}
