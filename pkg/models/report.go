package models

import (
	"sort"
	"strings"
)

// TestExecutionResult represents the outcome of a single test case
type TestExecutionResult string

const (
	ResultSuccess TestExecutionResult = "success"
	ResultFailed  TestExecutionResult = "failed"
	ResultSkipped TestExecutionResult = "skipped"
)

// TestCaseError describes why a test case failed and, when known, where
type TestCaseError struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

// HasLocation reports whether the error was resolved to a source file
func (e *TestCaseError) HasLocation() bool {
	return e != nil && e.Path != ""
}

// TestCaseResult represents a single normalized test outcome
type TestCaseResult struct {
	Name   string              `json:"name" yaml:"name"`
	Result TestExecutionResult `json:"result" yaml:"result"`
	Time   float64             `json:"time" yaml:"time"`
	Error  *TestCaseError      `json:"error,omitempty" yaml:"error,omitempty"`
}

// TestGroupResult is a named subdivision of a suite. A nil Name is the ungrouped bucket.
type TestGroupResult struct {
	Name  *string          `json:"name" yaml:"name"`
	Tests []TestCaseResult `json:"tests" yaml:"tests"`
}

// NewTestGroupResult creates an empty group
func NewTestGroupResult(name *string) *TestGroupResult {
	return &TestGroupResult{Name: name, Tests: make([]TestCaseResult, 0)}
}

// DisplayName returns the group name or an empty string for the ungrouped bucket
func (g *TestGroupResult) DisplayName() string {
	if g.Name == nil {
		return ""
	}
	return *g.Name
}

// HasName reports whether g is named name. A nil name matches only the ungrouped bucket.
func (g *TestGroupResult) HasName(name *string) bool {
	if g.Name == nil || name == nil {
		return g.Name == nil && name == nil
	}
	return *g.Name == *name
}

func (g *TestGroupResult) Passed() int  { return g.count(ResultSuccess) }
func (g *TestGroupResult) Failed() int  { return g.count(ResultFailed) }
func (g *TestGroupResult) Skipped() int { return g.count(ResultSkipped) }

func (g *TestGroupResult) count(r TestExecutionResult) int {
	n := 0
	for _, t := range g.Tests {
		if t.Result == r {
			n++
		}
	}
	return n
}

// Time returns the sum of test durations in milliseconds
func (g *TestGroupResult) Time() float64 {
	var total float64
	for _, t := range g.Tests {
		total += t.Time
	}
	return total
}

// Result is failed when any test in the group failed
func (g *TestGroupResult) Result() TestExecutionResult {
	if g.Failed() > 0 {
		return ResultFailed
	}
	return ResultSuccess
}

// Sort orders tests by name
func (g *TestGroupResult) Sort() {
	sort.SliceStable(g.Tests, func(i, j int) bool {
		return g.Tests[i].Name < g.Tests[j].Name
	})
}

// TestSuiteResult represents one test file and its groups
type TestSuiteResult struct {
	Name      string             `json:"name" yaml:"name"`
	Groups    []*TestGroupResult `json:"groups" yaml:"groups"`
	TotalTime *float64           `json:"total_time,omitempty" yaml:"total_time,omitempty"`
}

// NewTestSuiteResult creates an empty suite
func NewTestSuiteResult(name string) *TestSuiteResult {
	return &TestSuiteResult{Name: name, Groups: make([]*TestGroupResult, 0)}
}

// Group returns the group with the given name, creating it if needed
func (s *TestSuiteResult) Group(name *string) *TestGroupResult {
	for _, g := range s.Groups {
		if g.HasName(name) {
			return g
		}
	}
	g := NewTestGroupResult(name)
	s.Groups = append(s.Groups, g)
	return g
}

func (s *TestSuiteResult) Tests() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Tests)
	}
	return n
}

func (s *TestSuiteResult) Passed() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Passed()
	}
	return n
}

func (s *TestSuiteResult) Failed() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Failed()
	}
	return n
}

func (s *TestSuiteResult) Skipped() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Skipped()
	}
	return n
}

// Time returns TotalTime when the reporter supplied one, otherwise the sum of group times
func (s *TestSuiteResult) Time() float64 {
	if s.TotalTime != nil {
		return *s.TotalTime
	}
	var total float64
	for _, g := range s.Groups {
		total += g.Time()
	}
	return total
}

// Result is failed when any group failed
func (s *TestSuiteResult) Result() TestExecutionResult {
	for _, g := range s.Groups {
		if g.Result() == ResultFailed {
			return ResultFailed
		}
	}
	return ResultSuccess
}

// FailedGroups returns groups containing at least one failed test
func (s *TestSuiteResult) FailedGroups() []*TestGroupResult {
	var failed []*TestGroupResult
	for _, g := range s.Groups {
		if g.Result() == ResultFailed {
			failed = append(failed, g)
		}
	}
	return failed
}

// Sort orders groups by name, ungrouped first. With deep set, tests are sorted too.
func (s *TestSuiteResult) Sort(deep bool) {
	sort.SliceStable(s.Groups, func(i, j int) bool {
		return strings.Compare(s.Groups[i].DisplayName(), s.Groups[j].DisplayName()) < 0
	})
	if deep {
		for _, g := range s.Groups {
			g.Sort()
		}
	}
}

// TestRunResult represents one parsed report file
type TestRunResult struct {
	Path      string             `json:"path" yaml:"path"`
	Suites    []*TestSuiteResult `json:"suites" yaml:"suites"`
	TotalTime *float64           `json:"total_time,omitempty" yaml:"total_time,omitempty"`
}

func (r *TestRunResult) Tests() int {
	n := 0
	for _, s := range r.Suites {
		n += s.Tests()
	}
	return n
}

func (r *TestRunResult) Passed() int {
	n := 0
	for _, s := range r.Suites {
		n += s.Passed()
	}
	return n
}

func (r *TestRunResult) Failed() int {
	n := 0
	for _, s := range r.Suites {
		n += s.Failed()
	}
	return n
}

func (r *TestRunResult) Skipped() int {
	n := 0
	for _, s := range r.Suites {
		n += s.Skipped()
	}
	return n
}

// Time returns TotalTime when present, otherwise the sum of suite times
func (r *TestRunResult) Time() float64 {
	if r.TotalTime != nil {
		return *r.TotalTime
	}
	var total float64
	for _, s := range r.Suites {
		total += s.Time()
	}
	return total
}

// Result is success unless a suite failed. An empty run is a success.
func (r *TestRunResult) Result() TestExecutionResult {
	for _, s := range r.Suites {
		if s.Result() == ResultFailed {
			return ResultFailed
		}
	}
	return ResultSuccess
}

// HasFailures returns true if the run contains any failures
func (r *TestRunResult) HasFailures() bool {
	return r.Result() == ResultFailed
}

// FailedSuites returns suites with at least one failed test
func (r *TestRunResult) FailedSuites() []*TestSuiteResult {
	var failed []*TestSuiteResult
	for _, s := range r.Suites {
		if s.Result() == ResultFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// FailedTestCases returns all failed test cases from the run
func (r *TestRunResult) FailedTestCases() []TestCaseResult {
	var failed []TestCaseResult
	for _, s := range r.Suites {
		for _, g := range s.Groups {
			for _, t := range g.Tests {
				if t.Result == ResultFailed {
					failed = append(failed, t)
				}
			}
		}
	}
	return failed
}

// Sort orders suites by name. With deep set, groups and tests are sorted too.
func (r *TestRunResult) Sort(deep bool) {
	sort.SliceStable(r.Suites, func(i, j int) bool {
		return r.Suites[i].Name < r.Suites[j].Name
	})
	if deep {
		for _, s := range r.Suites {
			s.Sort(deep)
		}
	}
}
