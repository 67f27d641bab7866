// Package report renders normalized test runs as a GitHub-flavored markdown report.
package report

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kamilpajak/testreport/pkg/models"
)

// List filters for suites and tests
const (
	ListAll    = "all"
	ListFailed = "failed"
	ListNone   = "none"
)

const (
	iconSuccess = "✅"
	iconFailed  = "❌"
	iconSkipped = "⚪"
)

// Options controls which parts of the report are rendered
type Options struct {
	Title       string
	ListSuites  string // all, failed
	ListTests   string // all, failed, none
	OnlySummary bool
	BadgeTitle  string
}

// DefaultOptions lists every suite and test
func DefaultOptions() Options {
	return Options{ListSuites: ListAll, ListTests: ListAll, BadgeTitle: "tests"}
}

// GetReport renders all runs into a single markdown document
func GetReport(results []*models.TestRunResult, opts Options) string {
	var b strings.Builder

	if opts.Title != "" {
		fmt.Fprintf(&b, "# %s\n", opts.Title)
	}
	b.WriteString(badge(results, opts.BadgeTitle))
	b.WriteString("\n")

	if len(results) > 1 || opts.OnlySummary {
		writeRunsSummary(&b, results)
	}
	if opts.OnlySummary {
		return b.String()
	}

	for i, run := range results {
		writeRun(&b, i, run, opts)
	}

	return b.String()
}

func badge(results []*models.TestRunResult, title string) string {
	if title == "" {
		title = "tests"
	}
	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		passed += r.Passed()
		failed += r.Failed()
		skipped += r.Skipped()
	}

	var parts []string
	if passed > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", passed))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}

	message := "none"
	if len(parts) > 0 {
		message = strings.Join(parts, ", ")
	}

	color := "success"
	hint := "Tests passed successfully"
	switch {
	case failed > 0:
		color, hint = "critical", "Tests failed"
	case passed == 0 && skipped == 0:
		color, hint = "yellow", "No tests found"
	}

	uri := fmt.Sprintf("https://img.shields.io/badge/%s-%s-%s",
		badgeEscape(title), badgeEscape(message), color)
	return fmt.Sprintf("![%s](%s)\n", hint, uri)
}

// badgeEscape escapes text for a shields.io static badge path segment
func badgeEscape(s string) string {
	s = strings.ReplaceAll(s, "-", "--")
	s = strings.ReplaceAll(s, "_", "__")
	return url.PathEscape(s)
}

func writeRunsSummary(b *strings.Builder, results []*models.TestRunResult) {
	b.WriteString("|Report|Passed|Failed|Skipped|Time|\n")
	b.WriteString("|:---|---:|---:|---:|---:|\n")
	for i, r := range results {
		fmt.Fprintf(b, "|[%s](#%s)|%s|%s|%s|%s|\n",
			escapeCell(r.Path), runAnchor(i),
			count(r.Passed(), iconSuccess), count(r.Failed(), iconFailed), count(r.Skipped(), iconSkipped),
			FormatTime(r.Time()))
	}
	b.WriteString("\n")
}

func writeRun(b *strings.Builder, index int, run *models.TestRunResult, opts Options) {
	anchor := runAnchor(index)
	fmt.Fprintf(b, "## %s <a id=\"%s\" href=\"#%s\">%s</a>\n", resultIcon(run.Result()), anchor, anchor, run.Path)
	fmt.Fprintf(b, "**%d** tests were completed in **%s** with **%d** passed, **%d** failed and **%d** skipped.\n",
		run.Tests(), FormatTime(run.Time()), run.Passed(), run.Failed(), run.Skipped())

	suites := run.Suites
	if opts.ListSuites == ListFailed {
		suites = run.FailedSuites()
	}
	if len(suites) == 0 {
		b.WriteString("\n")
		return
	}

	b.WriteString("|Test suite|Passed|Failed|Skipped|Time|\n")
	b.WriteString("|:---|---:|---:|---:|---:|\n")
	for _, s := range suites {
		fmt.Fprintf(b, "|[%s](#%s)|%s|%s|%s|%s|\n",
			escapeCell(s.Name), suiteAnchor(index, run.Suites, s),
			count(s.Passed(), iconSuccess), count(s.Failed(), iconFailed), count(s.Skipped(), iconSkipped),
			FormatTime(s.Time()))
	}
	b.WriteString("\n")

	if opts.ListTests == ListNone {
		return
	}
	for _, s := range suites {
		if opts.ListTests == ListFailed && s.Result() != models.ResultFailed {
			continue
		}
		writeSuiteTests(b, index, run.Suites, s, opts)
	}
}

func writeSuiteTests(b *strings.Builder, runIndex int, all []*models.TestSuiteResult, s *models.TestSuiteResult, opts Options) {
	anchor := suiteAnchor(runIndex, all, s)
	fmt.Fprintf(b, "### %s <a id=\"%s\" href=\"#%s\">%s</a>\n", resultIcon(s.Result()), anchor, anchor, s.Name)
	b.WriteString("```\n")
	for _, g := range s.Groups {
		if opts.ListTests == ListFailed && g.Result() != models.ResultFailed {
			continue
		}
		indent := ""
		if g.Name != nil {
			b.WriteString(*g.Name + "\n")
			indent = "  "
		}
		for _, tc := range g.Tests {
			if opts.ListTests == ListFailed && tc.Result != models.ResultFailed {
				continue
			}
			fmt.Fprintf(b, "%s%s %s\n", indent, resultIcon(tc.Result), tc.Name)
			if tc.Error != nil {
				writeError(b, indent+"\t", tc.Error)
			}
		}
	}
	b.WriteString("```\n")
}

func writeError(b *strings.Builder, indent string, e *models.TestCaseError) {
	for _, line := range strings.Split(strings.TrimSpace(e.Message), "\n") {
		if line != "" {
			fmt.Fprintf(b, "%s%s\n", indent, line)
		}
	}
	if e.HasLocation() {
		fmt.Fprintf(b, "%sat %s:%d\n", indent, e.Path, e.Line)
	}
}

func resultIcon(r models.TestExecutionResult) string {
	switch r {
	case models.ResultSuccess:
		return iconSuccess
	case models.ResultFailed:
		return iconFailed
	default:
		return iconSkipped
	}
}

func count(n int, icon string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", n, icon)
}

func runAnchor(i int) string {
	return fmt.Sprintf("r%d", i)
}

func suiteAnchor(runIndex int, all []*models.TestSuiteResult, s *models.TestSuiteResult) string {
	for i, candidate := range all {
		if candidate == s {
			return fmt.Sprintf("r%ds%d", runIndex, i)
		}
	}
	return runAnchor(runIndex)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// FormatTime renders a duration given in milliseconds
func FormatTime(ms float64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", int64(ms+0.5))
	case ms < 60_000:
		return fmt.Sprintf("%.1fs", ms/1000)
	default:
		total := int64(ms/1000 + 0.5)
		return fmt.Sprintf("%dm %ds", total/60, total%60)
	}
}
