package testreport

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamilpajak/testreport/internal/config"
	"github.com/kamilpajak/testreport/internal/database"
	"github.com/kamilpajak/testreport/internal/report"
	"github.com/kamilpajak/testreport/pkg/models"
)

func reportOptions(c *config.Config) report.Options {
	opts := report.DefaultOptions()
	opts.Title = c.Report.Title
	opts.ListSuites = c.Report.ListSuites
	opts.ListTests = c.Report.ListTests
	opts.OnlySummary = c.Report.OnlySummary
	return opts
}

// writeOutput renders runs to --output or stdout. Markdown on a terminal is
// rendered with glamour.
func writeOutput(cmd *cobra.Command, runs []*models.TestRunResult) error {
	if parseOutput != "" {
		f, err := os.Create(parseOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := renderRuns(f, runs, cfg, false); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	out := cmd.OutOrStdout()
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd())
	}
	return renderRuns(out, runs, cfg, tty)
}

func renderRuns(w io.Writer, runs []*models.TestRunResult, c *config.Config, tty bool) error {
	switch c.Report.Format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(runs); err != nil {
			return err
		}
		return enc.Close()
	default:
		md := report.GetReport(runs, reportOptions(c))
		if tty {
			md = renderTerminal(md)
		}
		_, err := io.WriteString(w, md)
		return err
	}
}

// renderTerminal falls back to the raw markdown when glamour cannot render it
func renderTerminal(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func printSummary(w io.Writer, runs []*models.TestRunResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	for _, r := range runs {
		status, c := "PASS", green
		if r.HasFailures() {
			status, c = "FAIL", red
		}
		_, _ = c.Fprintf(w, "%s ", status)
		fmt.Fprintf(w, "%s ", r.Path)
		_, _ = dim.Fprintf(w, "(%d passed, %d failed, %d skipped in %s)\n",
			r.Passed(), r.Failed(), r.Skipped(), report.FormatTime(r.Time()))

		for _, tc := range r.FailedTestCases() {
			fmt.Fprintf(w, "  %s %s\n", red.Sprint("✗"), tc.Name)
			if tc.Error.HasLocation() {
				_, _ = dim.Fprintf(w, "    at %s:%d\n", tc.Error.Path, tc.Error.Line)
			}
		}
	}
}

func printRunList(w io.Writer, runs []database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return
	}

	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	_, _ = bold.Fprintf(w, "%-36s  %-19s  %6s  %6s  %7s  %s\n", "ID", "CREATED", "PASSED", "FAILED", "SKIPPED", "REPORT")
	for _, r := range runs {
		failed := fmt.Sprintf("%6d", r.Failed)
		if r.Failed > 0 {
			failed = red.Sprint(failed)
		}
		name := r.Path
		if r.Source != "" {
			name = r.Source + " " + name
		}
		fmt.Fprintf(w, "%s  %s  %6d  %s  %7d  %s\n",
			r.ID, dim.Sprint(r.CreatedAt.Local().Format("2006-01-02 15:04:05")),
			r.Passed, failed, r.Skipped, strings.TrimSpace(name))
	}
}
