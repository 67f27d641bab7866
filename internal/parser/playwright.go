package parser

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kamilpajak/testreport/internal/pathutil"
	"github.com/kamilpajak/testreport/internal/stacktrace"
	"github.com/kamilpajak/testreport/pkg/models"
)

// PlaywrightParser parses Playwright JSON reports
type PlaywrightParser struct {
	options     ParseOptions
	relativizer *pathutil.Relativizer
}

// NewPlaywrightParser creates a parser for a single report
func NewPlaywrightParser(opts ParseOptions) *PlaywrightParser {
	return &PlaywrightParser{
		options:     opts,
		relativizer: pathutil.NewRelativizer(opts.WorkDir, opts.TrackedFiles),
	}
}

// playwrightReport represents the raw Playwright JSON structure
type playwrightReport struct {
	Suites []playwrightSuite `json:"suites"`
	Stats  playwrightStats   `json:"stats"`
}

type playwrightStats struct {
	Duration *float64 `json:"duration"`
}

type playwrightSuite struct {
	Title  string            `json:"title"`
	File   string            `json:"file"`
	Specs  []playwrightSpec  `json:"specs"`
	Suites []playwrightSuite `json:"suites"`
}

type playwrightSpec struct {
	Title string           `json:"title"`
	File  string           `json:"file"`
	Line  int              `json:"line"`
	Tests []playwrightTest `json:"tests"`
}

type playwrightTest struct {
	Status  string             `json:"status"`
	Results []playwrightResult `json:"results"`
}

type playwrightResult struct {
	Status   string            `json:"status"`
	Duration float64           `json:"duration"`
	Errors   []playwrightError `json:"errors"`
}

type playwrightError struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

// Parse decodes a Playwright JSON report. Each top-level suite is a spec file;
// nested describe blocks become groups named by their joined titles.
func (p *PlaywrightParser) Parse(ctx context.Context, path string, content []byte) (*models.TestRunResult, error) {
	var raw playwrightReport
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, &MalformedInputError{Path: path, Err: err}
	}

	return p.normalize(ctx, path, raw), nil
}

// pendingSuite is a describe block waiting to be visited, with the titles of its
// enclosing describe blocks.
type pendingSuite struct {
	suite  *playwrightSuite
	titles []string
}

func (p *PlaywrightParser) normalize(ctx context.Context, path string, raw playwrightReport) *models.TestRunResult {
	logger := zerolog.Ctx(ctx).With().Str("component", "parser").Str("report", path).Logger()
	registry := newSuiteRegistry()

	for i := range raw.Suites {
		file := &raw.Suites[i]
		name := file.File
		if name == "" {
			name = file.Title
		}
		suite, _ := registry.get(p.relativizer.Relativize(name))

		stack := []pendingSuite{{suite: file}}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			var group *string
			if len(current.titles) > 0 {
				g := strings.Join(current.titles, " ")
				group = &g
			}
			for _, spec := range current.suite.Specs {
				if tc := p.normalizeSpec(&logger, spec); tc != nil {
					g := suite.Group(group)
					g.Tests = append(g.Tests, *tc)
				}
			}

			for j := len(current.suite.Suites) - 1; j >= 0; j-- {
				child := &current.suite.Suites[j]
				titles := append(append([]string(nil), current.titles...), child.Title)
				stack = append(stack, pendingSuite{suite: child, titles: titles})
			}
		}
	}

	result := &models.TestRunResult{Path: path, Suites: registry.order}
	if result.Suites == nil {
		result.Suites = make([]*models.TestSuiteResult, 0)
	}
	if raw.Stats.Duration != nil {
		total := *raw.Stats.Duration
		result.TotalTime = &total
	}
	return result
}

func (p *PlaywrightParser) normalizeSpec(logger *zerolog.Logger, spec playwrightSpec) *models.TestCaseResult {
	if len(spec.Tests) == 0 {
		return nil
	}

	test := spec.Tests[0]
	if len(test.Results) == 0 {
		if test.Status == "skipped" {
			return &models.TestCaseResult{Name: spec.Title, Result: models.ResultSkipped}
		}
		return nil
	}

	// The last attempt decides the outcome of retried tests
	result := test.Results[len(test.Results)-1]

	tc := &models.TestCaseResult{
		Name: spec.Title,
		Time: result.Duration,
	}

	switch result.Status {
	case "passed":
		tc.Result = models.ResultSuccess
	case "skipped":
		tc.Result = models.ResultSkipped
	default:
		tc.Result = models.ResultFailed
	}

	if tc.Result == models.ResultFailed && len(result.Errors) > 0 {
		tc.Error = p.testCaseError(logger, spec, result.Errors[0])
	}

	return tc
}

func (p *PlaywrightParser) testCaseError(logger *zerolog.Logger, spec playwrightSpec, e playwrightError) *models.TestCaseError {
	tcErr := &models.TestCaseError{Message: e.Message}
	if !p.options.ParseErrors {
		return tcErr
	}

	tcErr.Details = e.Stack
	if src := stacktrace.GetExceptionSource(e.Stack, p.options.TrackedFiles, p.relativizer.Relativize); src != nil {
		tcErr.Path = src.Path
		tcErr.Line = src.Line
		return tcErr
	}

	// Fall back to the spec declaration
	if spec.File != "" {
		tcErr.Path = p.relativizer.Relativize(spec.File)
		tcErr.Line = spec.Line
	}
	logger.Debug().Str("test", spec.Title).Msg("failure location taken from spec declaration")
	return tcErr
}
