// Package stacktrace resolves the source location of a failure from a Node.js (V8)
// stack trace.
package stacktrace

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kamilpajak/testreport/internal/pathutil"
)

// Location is a file and 1-based line number
type Location struct {
	Path string
	Line int
}

// Matches "at fn (file:line:col)" and "at file:line:col".
var frameRe = regexp.MustCompile(`^\s*at (?:.*\((.+?):(\d+):\d+\)|(.+?):(\d+):\d+)\s*$`)

// GetExceptionSource returns the first stack frame that points into a tracked file.
// Frame paths are normalized and passed through relativize before matching; a frame
// matches when its path equals a tracked file or one ends with the other on a path
// segment boundary. The returned path is the tracked file's path.
func GetExceptionSource(stack string, trackedFiles []string, relativize func(string) string) *Location {
	if stack == "" || len(trackedFiles) == 0 {
		return nil
	}

	for _, line := range strings.Split(stack, "\n") {
		file, lineNo, ok := parseFrame(strings.TrimRight(line, "\r"))
		if !ok || isRuntimeFrame(file) {
			continue
		}

		path := pathutil.NormalizeFilePath(file)
		if relativize != nil {
			path = relativize(path)
		}
		if path == "" {
			continue
		}

		if tracked, ok := matchTracked(path, trackedFiles); ok {
			return &Location{Path: tracked, Line: lineNo}
		}
	}

	return nil
}

func parseFrame(line string) (string, int, bool) {
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}

	file, lineStr := m[1], m[2]
	if file == "" {
		file, lineStr = m[3], m[4]
	}
	file = strings.TrimPrefix(file, "file://")

	n, err := strconv.Atoi(lineStr)
	if err != nil {
		return "", 0, false
	}
	return file, n, true
}

func isRuntimeFrame(file string) bool {
	return strings.HasPrefix(file, "node:") ||
		strings.HasPrefix(file, "internal/") ||
		strings.Contains(file, "/node_modules/") ||
		strings.Contains(file, `\node_modules\`)
}

func matchTracked(path string, trackedFiles []string) (string, bool) {
	if slices.Contains(trackedFiles, path) {
		return path, true
	}
	for _, tracked := range trackedFiles {
		if pathutil.HasPathSuffix(path, tracked) || pathutil.HasPathSuffix(tracked, path) {
			return tracked, true
		}
	}
	return "", false
}
