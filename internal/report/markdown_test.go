package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kamilpajak/testreport/pkg/models"
)

func strPtr(s string) *string { return &s }

func sampleRun(path string) *models.TestRunResult {
	main := models.NewTestSuiteResult("test/main.test.js")
	main.Group(nil).Tests = []models.TestCaseResult{
		{Name: "Timeout test", Result: models.ResultFailed, Time: 2,
			Error: &models.TestCaseError{Path: "test/main.test.js", Line: 4, Message: "Error: Timeout of 1ms exceeded."}},
	}
	main.Group(strPtr("Test 1")).Tests = []models.TestCaseResult{
		{Name: "Passing test", Result: models.ResultSuccess, Time: 1},
		{Name: "Skipped test", Result: models.ResultSkipped},
	}

	second := models.NewTestSuiteResult("test/second.test.js")
	second.Group(strPtr("Test 2")).Tests = []models.TestCaseResult{
		{Name: "Passing test", Result: models.ResultSuccess, Time: 18},
	}

	total := 21.0
	return &models.TestRunResult{Path: path, Suites: []*models.TestSuiteResult{main, second}, TotalTime: &total}
}

func TestGetReport_SingleRun(t *testing.T) {
	out := GetReport([]*models.TestRunResult{sampleRun("mocha.json")}, DefaultOptions())

	assert.Contains(t, out, "![Tests failed](https://img.shields.io/badge/tests-2%20passed%2C%201%20skipped%2C%201%20failed-critical)")
	assert.NotContains(t, out, "|Report|", "single run has no runs table")
	assert.Contains(t, out, `## ❌ <a id="r0" href="#r0">mocha.json</a>`)
	assert.Contains(t, out, "**4** tests were completed in **21ms** with **2** passed, **1** failed and **1** skipped.")
	assert.Contains(t, out, "|[test/main.test.js](#r0s0)|1 ✅|1 ❌|1 ⚪|3ms|")
	assert.Contains(t, out, "|[test/second.test.js](#r0s1)|1 ✅|||18ms|")
	assert.Contains(t, out, "❌ Timeout test\n\tError: Timeout of 1ms exceeded.\n\tat test/main.test.js:4\n")
	assert.Contains(t, out, "Test 1\n  ✅ Passing test\n  ⚪ Skipped test\n")
}

func TestGetReport_FailedOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.ListSuites = ListFailed
	opts.ListTests = ListFailed

	out := GetReport([]*models.TestRunResult{sampleRun("mocha.json")}, opts)

	assert.NotContains(t, out, "test/second.test.js")
	assert.NotContains(t, out, "Passing test")
	assert.Contains(t, out, "Timeout test")
}

func TestGetReport_ListTestsNone(t *testing.T) {
	opts := DefaultOptions()
	opts.ListTests = ListNone

	out := GetReport([]*models.TestRunResult{sampleRun("mocha.json")}, opts)

	assert.Contains(t, out, "|Test suite|")
	assert.NotContains(t, out, "```")
}

func TestGetReport_MultipleRunsAndSummary(t *testing.T) {
	runs := []*models.TestRunResult{sampleRun("a.json"), {Path: "empty|b.json"}}

	out := GetReport(runs, DefaultOptions())
	assert.Contains(t, out, "|Report|Passed|Failed|Skipped|Time|")
	assert.Contains(t, out, `|[empty\|b.json](#r1)||||0ms|`)
	assert.Contains(t, out, `## ✅ <a id="r1" href="#r1">empty|b.json</a>`)

	opts := DefaultOptions()
	opts.OnlySummary = true
	opts.Title = "Mocha results"
	summary := GetReport(runs, opts)
	assert.True(t, strings.HasPrefix(summary, "# Mocha results\n"))
	assert.Contains(t, summary, "|[a.json](#r0)|2 ✅|1 ❌|1 ⚪|21ms|")
	assert.NotContains(t, summary, "## ")
}

func TestGetReport_NoTests(t *testing.T) {
	out := GetReport([]*models.TestRunResult{{Path: "empty.json"}}, DefaultOptions())

	assert.Contains(t, out, "![No tests found](https://img.shields.io/badge/tests-none-yellow)")
	assert.Contains(t, out, "**0** tests were completed")
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "0ms"},
		{21.4, "21ms"},
		{999, "999ms"},
		{1500, "1.5s"},
		{59_000, "59.0s"},
		{61_000, "1m 1s"},
		{3_600_000, "60m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.ms))
		})
	}
}
