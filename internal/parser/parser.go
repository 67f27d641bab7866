// Package parser decodes JavaScript test framework reports into the normalized
// result model.
package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kamilpajak/testreport/pkg/models"
)

// Reporter names accepted by New
const (
	ReporterMochawesomeJSON = "mochawesome-json"
	ReporterPlaywrightJSON  = "playwright-json"
)

// ErrUnknownReporter is returned by New for an unsupported reporter name
var ErrUnknownReporter = errors.New("unknown reporter")

// ParseOptions configures how reports are normalized
type ParseOptions struct {
	// ParseErrors enables resolving failures to a source file and line.
	ParseErrors bool
	// TrackedFiles is the list of source files known to the repository. It is used
	// to infer the working directory and to match stack trace frames.
	TrackedFiles []string
	// WorkDir, when set, overrides working directory inference.
	WorkDir *string
	// Strict validates the report against the reporter's JSON schema before decoding.
	Strict bool
}

// TestParser converts a single report into a TestRunResult. Implementations keep
// per-report state, so a new parser must be created for every report.
type TestParser interface {
	Parse(ctx context.Context, path string, content []byte) (*models.TestRunResult, error)
}

var constructors = map[string]func(ParseOptions) TestParser{
	ReporterMochawesomeJSON: func(o ParseOptions) TestParser { return NewMochawesomeParser(o) },
	ReporterPlaywrightJSON:  func(o ParseOptions) TestParser { return NewPlaywrightParser(o) },
}

// New returns a fresh parser for the named reporter
func New(reporter string, opts ParseOptions) (TestParser, error) {
	ctor, ok := constructors[reporter]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownReporter, reporter, Reporters())
	}
	return ctor(opts), nil
}

// Reporters lists the supported reporter names
func Reporters() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
