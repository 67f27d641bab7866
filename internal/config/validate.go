package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kamilpajak/testreport/internal/parser"
	"github.com/kamilpajak/testreport/internal/report"
)

// Validate checks the configuration and returns the first problem found,
// wrapped in ErrInvalidConfig.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if !slices.Contains(parser.Reporters(), cfg.Reporter) {
		return fmt.Errorf("%w: reporter must be one of %s, got %q",
			ErrInvalidConfig, strings.Join(parser.Reporters(), ", "), cfg.Reporter)
	}

	if err := oneOf("report.format", cfg.Report.Format, FormatMarkdown, FormatJSON, FormatYAML); err != nil {
		return err
	}
	if err := oneOf("report.list_suites", cfg.Report.ListSuites, report.ListAll, report.ListFailed); err != nil {
		return err
	}
	if err := oneOf("report.list_tests", cfg.Report.ListTests, report.ListAll, report.ListFailed, report.ListNone); err != nil {
		return err
	}

	if cfg.GitHub.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: github.requests_per_second must be positive, got %v",
			ErrInvalidConfig, cfg.GitHub.RequestsPerSecond)
	}
	if cfg.GitHub.Timeout <= 0 {
		return fmt.Errorf("%w: github.timeout must be positive, got %s", ErrInvalidConfig, cfg.GitHub.Timeout)
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}

	return nil
}

func oneOf(key, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: %s must be one of %s, got %q",
		ErrInvalidConfig, key, strings.Join(allowed, ", "), value)
}
