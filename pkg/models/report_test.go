package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleRun() *TestRunResult {
	math := NewTestSuiteResult("test/math.test.js")
	add := math.Group(strPtr("Math add"))
	add.Tests = append(add.Tests,
		TestCaseResult{Name: "returns 2", Result: ResultSuccess, Time: 5},
		TestCaseResult{Name: "handles NaN", Result: ResultFailed, Time: 3, Error: &TestCaseError{Message: "boom"}},
	)
	math.Group(nil).Tests = append(math.Group(nil).Tests,
		TestCaseResult{Name: "top level", Result: ResultSkipped},
	)

	str := NewTestSuiteResult("test/a.test.js")
	str.Group(strPtr("Strings")).Tests = append(str.Group(strPtr("Strings")).Tests,
		TestCaseResult{Name: "concat", Result: ResultSuccess, Time: 1},
	)

	return &TestRunResult{Path: "report.json", Suites: []*TestSuiteResult{math, str}}
}

func TestTestSuiteResult_GroupFindOrCreate(t *testing.T) {
	s := NewTestSuiteResult("x")

	a := s.Group(strPtr("A"))
	again := s.Group(strPtr("A"))
	ungrouped := s.Group(nil)
	empty := s.Group(strPtr(""))

	assert.Same(t, a, again)
	assert.NotSame(t, ungrouped, empty, "nil and empty-string groups are distinct")
	assert.Len(t, s.Groups, 3)
	assert.Same(t, ungrouped, s.Group(nil))
}

func TestTestRunResult_Counts(t *testing.T) {
	r := sampleRun()

	assert.Equal(t, 4, r.Tests())
	assert.Equal(t, 2, r.Passed())
	assert.Equal(t, 1, r.Failed())
	assert.Equal(t, 1, r.Skipped())
	assert.InDelta(t, 9.0, r.Time(), 0.001)
	assert.Equal(t, ResultFailed, r.Result())
	assert.True(t, r.HasFailures())

	failed := r.FailedSuites()
	require.Len(t, failed, 1)
	assert.Equal(t, "test/math.test.js", failed[0].Name)

	cases := r.FailedTestCases()
	require.Len(t, cases, 1)
	assert.Equal(t, "handles NaN", cases[0].Name)
	assert.Len(t, failed[0].FailedGroups(), 1)
}

func TestTestRunResult_TotalTimeOverridesSum(t *testing.T) {
	r := sampleRun()
	total := 1234.0
	r.TotalTime = &total

	assert.InDelta(t, 1234.0, r.Time(), 0.001)
}

func TestTestRunResult_EmptyIsSuccess(t *testing.T) {
	r := &TestRunResult{Path: "empty.json"}

	assert.Equal(t, 0, r.Tests())
	assert.Equal(t, ResultSuccess, r.Result())
	assert.False(t, r.HasFailures())
}

func TestTestRunResult_SortDeep(t *testing.T) {
	r := sampleRun()
	r.Sort(true)

	assert.Equal(t, "test/a.test.js", r.Suites[0].Name)
	math := r.Suites[1]
	assert.Nil(t, math.Groups[0].Name, "ungrouped sorts first")
	assert.Equal(t, "Math add", math.Groups[1].DisplayName())
	assert.Equal(t, "handles NaN", math.Groups[1].Tests[0].Name)
}

func TestTestCaseError_HasLocation(t *testing.T) {
	var nilErr *TestCaseError
	assert.False(t, nilErr.HasLocation())
	assert.False(t, (&TestCaseError{Message: "x"}).HasLocation())
	assert.True(t, (&TestCaseError{Path: "lib/main.js", Line: 10}).HasLocation())
}
