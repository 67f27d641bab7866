// Package ingest turns report paths and glob patterns into normalized test runs.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kamilpajak/testreport/internal/parser"
	"github.com/kamilpajak/testreport/pkg/models"
)

// ErrNoReports is returned when the given patterns match no files
var ErrNoReports = errors.New("no report files found")

// ExpandPatterns resolves literal paths and doublestar globs (e.g. reports/**/*.json)
// into a list of files. The first occurrence of each file wins its position.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("report %s: %w", pattern, err)
			}
			if info.IsDir() {
				return nil, fmt.Errorf("report %s is a directory", pattern)
			}
			add(pattern)
			continue
		}

		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", pattern, err)
		}
		for _, m := range matches {
			add(m)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoReports
	}
	return files, nil
}

func hasMeta(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// TrackedFiles lists the files git tracks under dir, relative to the repository root
func TrackedFiles(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z")
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return splitNul(out), nil
}

func splitNul(out []byte) []string {
	var files []string
	for _, f := range bytes.Split(out, []byte{0}) {
		if len(f) > 0 {
			files = append(files, string(f))
		}
	}
	return files
}

// Ingester parses report files concurrently
type Ingester struct {
	Reporter    string
	Options     parser.ParseOptions
	Concurrency int
}

// ParseFiles parses every file with a fresh parser and returns the runs in input
// order with suites, groups and tests sorted. The first error cancels the rest.
func (in *Ingester) ParseFiles(ctx context.Context, paths []string) ([]*models.TestRunResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("component", "ingest").Str("reporter", in.Reporter).Logger()

	// fail fast on an unknown reporter before spawning workers
	if _, err := parser.New(in.Reporter, in.Options); err != nil {
		return nil, err
	}

	limit := in.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]*models.TestRunResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			run, err := in.parseFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = run
			logger.Debug().
				Str("path", path).
				Int("suites", len(run.Suites)).
				Int("tests", run.Tests()).
				Msg("report parsed")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (in *Ingester) parseFile(ctx context.Context, path string) (*models.TestRunResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return in.Parse(ctx, path, content)
}

// Parse normalizes an in-memory report with a fresh parser
func (in *Ingester) Parse(ctx context.Context, path string, content []byte) (*models.TestRunResult, error) {
	p, err := parser.New(in.Reporter, in.Options)
	if err != nil {
		return nil, err
	}
	run, err := p.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}
	run.Sort(true)
	return run, nil
}
