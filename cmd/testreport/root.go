package testreport

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/testreport/internal/config"
	"github.com/kamilpajak/testreport/internal/logging"
	"github.com/kamilpajak/testreport/internal/parser"
	"github.com/kamilpajak/testreport/internal/report"
)

var (
	configFile string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "testreport",
	Short: "Normalize JavaScript test reports",
	Long: `testreport decodes mochawesome and Playwright JSON reports into a
normalized tree of suites, groups and tests, locates failures in your
sources and renders a markdown summary.

Reports can be read from local files and globs or downloaded from
GitHub Actions artifacts, and optionally stored in PostgreSQL.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "Config file (default "+config.ProjectConfigFile+" if present)")
	pf.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	pf.String("log-file", "", "Also write logs to this file, rotated")
	pf.String("database-url", "", "PostgreSQL connection URL for the run store")

	pf.String("reporter", parser.ReporterMochawesomeJSON, fmt.Sprintf("Report format %v", parser.Reporters()))
	pf.Bool("parse-errors", true, "Resolve failures to a source file and line")
	pf.String("work-dir", "", "Directory report paths are relative to (inferred when empty)")
	pf.StringSlice("tracked-files", nil, "Source files of the repository (default: git ls-files)")
	pf.Bool("strict", false, "Validate reports against the JSON schema before decoding")

	pf.String("title", "", "Report title")
	pf.StringP("format", "f", config.FormatMarkdown, "Output format (markdown, json, yaml)")
	pf.String("list-suites", report.ListAll, "Suites to list (all, failed)")
	pf.String("list-tests", report.ListAll, "Tests to list (all, failed, none)")
	pf.Bool("only-summary", false, "Render only the runs summary table")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and attaches the logger to the command context
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cmd.Context(), configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = loaded

	logger, closer, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	logCloser = closer

	cmd.SetContext(logger.WithContext(cmd.Context()))
	logger.Debug().
		Str("command", cmd.Name()).
		Str("reporter", cfg.Reporter).
		Int("tracked_files", len(cfg.TrackedFiles)).
		Msg("starting")
	return nil
}
