package parser

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/kamilpajak/testreport/internal/pathutil"
	"github.com/kamilpajak/testreport/internal/stacktrace"
	"github.com/kamilpajak/testreport/pkg/models"
)

// MochawesomeParser parses mochawesome JSON reports
type MochawesomeParser struct {
	options     ParseOptions
	relativizer *pathutil.Relativizer
}

// NewMochawesomeParser creates a parser for a single report
func NewMochawesomeParser(opts ParseOptions) *MochawesomeParser {
	return &MochawesomeParser{
		options:     opts,
		relativizer: pathutil.NewRelativizer(opts.WorkDir, opts.TrackedFiles),
	}
}

// Parse decodes content and normalizes it into a TestRunResult. Suites are returned
// in the order their files were first seen.
func (p *MochawesomeParser) Parse(ctx context.Context, path string, content []byte) (*models.TestRunResult, error) {
	raw, err := p.decode(path, content)
	if err != nil {
		return nil, err
	}
	return p.normalize(ctx, path, raw), nil
}

func (p *MochawesomeParser) decode(path string, content []byte) (*mochawesomeReport, error) {
	if p.options.Strict {
		if err := validateMochawesome(content); err != nil {
			return nil, &MalformedInputError{Path: path, Err: err}
		}
	}

	var raw mochawesomeReport
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, &MalformedInputError{Path: path, Err: err}
	}
	return &raw, nil
}

// suiteRegistry de-duplicates suites by file key while keeping insertion order
type suiteRegistry struct {
	byKey map[string]*models.TestSuiteResult
	order []*models.TestSuiteResult
}

func newSuiteRegistry() *suiteRegistry {
	return &suiteRegistry{byKey: make(map[string]*models.TestSuiteResult)}
}

func (r *suiteRegistry) get(key string) (*models.TestSuiteResult, bool) {
	if s, ok := r.byKey[key]; ok {
		return s, false
	}
	s := models.NewTestSuiteResult(key)
	r.byKey[key] = s
	r.order = append(r.order, s)
	return s, true
}

func (p *MochawesomeParser) normalize(ctx context.Context, path string, raw *mochawesomeReport) *models.TestRunResult {
	logger := zerolog.Ctx(ctx).With().Str("component", "parser").Str("report", path).Logger()
	registry := newSuiteRegistry()

	for i := range raw.Results {
		entry := &raw.Results[i]
		key := p.suiteKey(entry)

		var suite *models.TestSuiteResult
		owner := func() *models.TestSuiteResult {
			if suite == nil {
				var created bool
				suite, created = registry.get(key)
				if !created {
					logger.Debug().Str("suite", key).Msg("merging result into existing suite")
				}
			}
			return suite
		}

		p.processTests(&logger, owner, entry.Tests)

		// Explicit stack instead of recursion; children are pushed in reverse so
		// suites are visited depth-first in declaration order.
		stack := make([]*mochawesomeSuite, 0, len(entry.Suites))
		for j := len(entry.Suites) - 1; j >= 0; j-- {
			stack = append(stack, &entry.Suites[j])
		}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			p.processTests(&logger, owner, current.Tests)
			for j := len(current.Suites) - 1; j >= 0; j-- {
				stack = append(stack, &current.Suites[j])
			}
		}
	}

	result := &models.TestRunResult{
		Path:   path,
		Suites: registry.order,
	}
	if result.Suites == nil {
		result.Suites = make([]*models.TestSuiteResult, 0)
	}

	var total float64
	if raw.Stats != nil && raw.Stats.Duration != nil {
		total = *raw.Stats.Duration
	}
	result.TotalTime = &total

	logger.Debug().Int("suites", len(result.Suites)).Int("tests", result.Tests()).Msg("report normalized")
	return result
}

// suiteKey identifies the suite a result entry belongs to: its relativized file,
// then its title, then the empty string.
func (p *MochawesomeParser) suiteKey(entry *mochawesomeResult) string {
	if entry.FullFile != nil && strings.TrimSpace(*entry.FullFile) != "" {
		return p.relativizer.Relativize(*entry.FullFile)
	}
	if entry.Title != nil {
		return *entry.Title
	}
	return ""
}

func (p *MochawesomeParser) processTests(logger *zerolog.Logger, owner func() *models.TestSuiteResult, tests []mochawesomeTest) {
	for i := range tests {
		test := &tests[i]
		result, ok := classify(test)
		if !ok {
			logger.Debug().Str("test", test.FullTitle).Msg("test has no status flag, ignoring")
			continue
		}

		tc := models.TestCaseResult{
			Name:   test.Title,
			Result: result,
			Error:  p.testCaseError(logger, test),
		}
		if test.Duration != nil {
			tc.Time = *test.Duration
		}

		group := owner().Group(groupName(test))
		group.Tests = append(group.Tests, tc)
	}
}

// classify maps status flags to a result. pass wins over fail, fail over skipped.
func classify(test *mochawesomeTest) (models.TestExecutionResult, bool) {
	switch {
	case test.Pass:
		return models.ResultSuccess, true
	case test.Fail:
		return models.ResultFailed, true
	case test.Pending || test.Skipped:
		return models.ResultSkipped, true
	default:
		return "", false
	}
}

// groupName is fullTitle without the trailing title. Tests whose fullTitle equals
// their title belong to the ungrouped (nil) group.
func groupName(test *mochawesomeTest) *string {
	if test.FullTitle == test.Title || !strings.HasSuffix(test.FullTitle, test.Title) {
		return nil
	}
	name := strings.TrimRightFunc(test.FullTitle[:len(test.FullTitle)-len(test.Title)], unicode.IsSpace)
	if name == "" {
		return nil
	}
	return &name
}

func (p *MochawesomeParser) testCaseError(logger *zerolog.Logger, test *mochawesomeTest) *models.TestCaseError {
	if test.Err == nil || test.Err.EStack == nil || *test.Err.EStack == "" {
		return nil
	}

	tcErr := &models.TestCaseError{}
	if test.Err.Message != nil {
		tcErr.Message = *test.Err.Message
	}
	if !p.options.ParseErrors {
		return tcErr
	}

	tcErr.Details = *test.Err.EStack
	src := stacktrace.GetExceptionSource(tcErr.Details, p.options.TrackedFiles, p.relativizer.Relativize)
	if src != nil {
		tcErr.Path = src.Path
		tcErr.Line = src.Line
	} else {
		logger.Debug().Str("test", test.FullTitle).Msg("failure location not found in stack trace")
	}
	return tcErr
}
