package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kamilpajak/testreport/internal/parser"
	"github.com/kamilpajak/testreport/internal/report"
)

// ProjectConfigFile is looked up in the working directory when no --config is given
const ProjectConfigFile = ".testreport.yaml"

// EnvPrefix is the prefix for environment overrides, e.g. TESTREPORT_PARSE_ERRORS
const EnvPrefix = "TESTREPORT"

// Output formats
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// FlagKeys maps command line flag names to configuration keys
var FlagKeys = map[string]string{
	"reporter":      "reporter",
	"parse-errors":  "parse_errors",
	"work-dir":      "work_dir",
	"tracked-files": "tracked_files",
	"strict":        "strict",
	"title":         "report.title",
	"format":        "report.format",
	"list-suites":   "report.list_suites",
	"list-tests":    "report.list_tests",
	"only-summary":  "report.only_summary",
	"fail-on-error": "report.fail_on_error",
	"database-url":  "database.url",
	"log-level":     "log.level",
	"log-file":      "log.file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reporter", parser.ReporterMochawesomeJSON)
	v.SetDefault("parse_errors", true)
	v.SetDefault("work_dir", "")
	v.SetDefault("tracked_files", []string{})
	v.SetDefault("strict", false)

	v.SetDefault("report.title", "")
	v.SetDefault("report.format", FormatMarkdown)
	v.SetDefault("report.list_suites", report.ListAll)
	v.SetDefault("report.list_tests", report.ListAll)
	v.SetDefault("report.only_summary", false)
	v.SetDefault("report.fail_on_error", false)

	v.SetDefault("database.url", "")

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.requests_per_second", 5.0)
	v.SetDefault("github.timeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GITHUB_TOKEN is what Actions exposes to steps
	_ = v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	return v
}

// Load reads configuration with the following precedence (highest first):
//  1. Flags explicitly set on the command line
//  2. TESTREPORT_* environment variables
//  3. The config file (configFile, or .testreport.yaml if present)
//  4. Built-in defaults
//
// A missing explicit configFile is an error; a missing project file is not.
func Load(ctx context.Context, configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := newViperInstance()

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("reporter", cfg.Reporter).
		Bool("parse_errors", cfg.ParseErrors).
		Int("tracked_files", len(cfg.TrackedFiles)).
		Str("config_file", v.ConfigFileUsed()).
		Msg("configuration loaded")

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile == "" {
		if _, err := os.Stat(ProjectConfigFile); err != nil {
			return nil
		}
		configFile = ProjectConfigFile
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) || stderrors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", configFile)
		}
		return fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	return nil
}

// viperDecoderOption decodes durations and comma separated lists from strings,
// which is how they arrive from environment variables.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}
