// Package config loads testreport settings from defaults, a project config file,
// TESTREPORT_* environment variables and command line flags.
package config

import (
	"errors"
	"time"

	"github.com/kamilpajak/testreport/internal/parser"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full testreport configuration
type Config struct {
	Reporter     string   `mapstructure:"reporter"`
	ParseErrors  bool     `mapstructure:"parse_errors"`
	WorkDir      string   `mapstructure:"work_dir"`
	TrackedFiles []string `mapstructure:"tracked_files"`
	Strict       bool     `mapstructure:"strict"`

	Report   ReportConfig   `mapstructure:"report"`
	Database DatabaseConfig `mapstructure:"database"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Log      LogConfig      `mapstructure:"log"`
}

// ReportConfig controls rendering of the parsed results
type ReportConfig struct {
	Title       string `mapstructure:"title"`
	Format      string `mapstructure:"format"`
	ListSuites  string `mapstructure:"list_suites"`
	ListTests   string `mapstructure:"list_tests"`
	OnlySummary bool   `mapstructure:"only_summary"`
	FailOnError bool   `mapstructure:"fail_on_error"`
}

// DatabaseConfig configures the optional run store
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// GitHubConfig configures artifact downloads
type GitHubConfig struct {
	Token             string        `mapstructure:"token"`
	APIURL            string        `mapstructure:"api_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ParseOptions converts the parsing settings into parser options
func (c *Config) ParseOptions() parser.ParseOptions {
	opts := parser.ParseOptions{
		ParseErrors:  c.ParseErrors,
		TrackedFiles: c.TrackedFiles,
		Strict:       c.Strict,
	}
	if c.WorkDir != "" {
		wd := c.WorkDir
		opts.WorkDir = &wd
	}
	return opts
}
