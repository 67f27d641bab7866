package ingest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/testreport/internal/parser"
	"github.com/kamilpajak/testreport/pkg/models"
)

const reportJSON = `{
  "stats": {"duration": 7},
  "results": [
    {
      "fullFile": "/ci/app/test/b.test.js",
      "tests": [],
      "suites": [
        {
          "title": "B",
          "tests": [
            {"title": "second", "fullTitle": "B second", "duration": 3, "pass": true},
            {"title": "first", "fullTitle": "B first", "duration": 4, "pass": true}
          ],
          "suites": []
        }
      ]
    },
    {
      "fullFile": "/ci/app/test/a.test.js",
      "tests": [{"title": "only", "fullTitle": "only", "pending": true}],
      "suites": []
    }
  ]
}`

func writeReport(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	a := writeReport(t, filepath.Join(dir, "a.json"), "{}")
	b := writeReport(t, filepath.Join(dir, "nested", "deep", "b.json"), "{}")
	writeReport(t, filepath.Join(dir, "nested", "notes.txt"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty.json"), 0o750))

	files, err := ExpandPatterns([]string{b, filepath.Join(dir, "**", "*.json")})
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, files, "literal first, duplicates dropped, directories skipped")
}

func TestExpandPatterns_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ExpandPatterns([]string{filepath.Join(dir, "missing.json")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ExpandPatterns([]string{dir})
	assert.ErrorContains(t, err, "is a directory")

	_, err = ExpandPatterns([]string{filepath.Join(dir, "*.json")})
	assert.ErrorIs(t, err, ErrNoReports)

	_, err = ExpandPatterns([]string{filepath.Join(dir, "[.json")})
	assert.Error(t, err)
}

func TestSplitNul(t *testing.T) {
	assert.Equal(t, []string{"a.js", "dir/b c.js"}, splitNul([]byte("a.js\x00dir/b c.js\x00")))
	assert.Empty(t, splitNul(nil))
}

func TestTrackedFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	writeReport(t, filepath.Join(dir, "test", "main.test.js"), "")
	writeReport(t, filepath.Join(dir, "untracked.js"), "")

	for _, args := range [][]string{{"init", "-q"}, {"add", "test/main.test.js"}} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	files, err := TrackedFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"test/main.test.js"}, files)
}

func TestTrackedFiles_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())

	_, err := TrackedFiles(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "git ls-files")
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeReport(t, filepath.Join(dir, "one.json"), reportJSON),
		writeReport(t, filepath.Join(dir, "two.json"), `{"results": []}`),
		writeReport(t, filepath.Join(dir, "three.json"), reportJSON),
	}

	in := &Ingester{
		Reporter:    parser.ReporterMochawesomeJSON,
		Options:     parser.ParseOptions{TrackedFiles: []string{"test/a.test.js", "test/b.test.js"}},
		Concurrency: 2,
	}
	runs, err := in.ParseFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	for i, run := range runs {
		assert.Equal(t, paths[i], run.Path, "runs keep input order")
	}
	assert.Empty(t, runs[1].Suites)

	first := runs[0]
	require.Len(t, first.Suites, 2)
	assert.Equal(t, "test/a.test.js", first.Suites[0].Name, "suites are sorted")
	assert.Equal(t, "test/b.test.js", first.Suites[1].Name)

	tests := first.Suites[1].Groups[0].Tests
	require.Len(t, tests, 2)
	assert.Equal(t, "first", tests[0].Name, "tests are sorted")
	assert.Equal(t, models.ResultSkipped, first.Suites[0].Result())
	assert.Equal(t, runs[0].Tests(), runs[2].Tests(), "each file gets a fresh parser")
}

func TestParseFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeReport(t, filepath.Join(dir, "good.json"), reportJSON)
	bad := writeReport(t, filepath.Join(dir, "bad.json"), "{not json")

	in := &Ingester{Reporter: parser.ReporterMochawesomeJSON}
	_, err := in.ParseFiles(context.Background(), []string{good, bad})
	var malformed *parser.MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, bad, malformed.Path)

	_, err = in.ParseFiles(context.Background(), []string{filepath.Join(dir, "missing.json")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	unknown := &Ingester{Reporter: "junit"}
	_, err = unknown.ParseFiles(context.Background(), []string{good})
	assert.ErrorIs(t, err, parser.ErrUnknownReporter)
}
