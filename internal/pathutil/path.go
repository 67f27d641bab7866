// Package pathutil normalizes report file paths and strips the working directory
// the test run was executed in.
package pathutil

import (
	"slices"
	"strings"
)

// NormalizeFilePath trims whitespace and converts backslashes to forward slashes
func NormalizeFilePath(p string) string {
	return strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
}

// NormalizeDirPath normalizes p and optionally ensures a trailing slash
func NormalizeDirPath(p string, trailingSlash bool) string {
	p = NormalizeFilePath(p)
	if trailingSlash && p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// GetBasePath infers the directory prefix p was reported under by finding the
// longest tracked file that p ends with. It returns "" when p is itself tracked and
// false when no tracked file matches.
func GetBasePath(p string, trackedFiles []string) (string, bool) {
	if slices.Contains(trackedFiles, p) {
		return "", true
	}

	longest := ""
	for _, file := range trackedFiles {
		if len(file) > len(longest) && HasPathSuffix(p, file) {
			longest = file
		}
	}
	if longest == "" {
		return "", false
	}
	return p[:len(p)-len(longest)], true
}

// HasPathSuffix reports whether p ends with suffix on a path segment boundary
func HasPathSuffix(p, suffix string) bool {
	if suffix == "" || !strings.HasSuffix(p, suffix) {
		return false
	}
	if len(p) == len(suffix) {
		return true
	}
	return p[len(p)-len(suffix)-1] == '/' || strings.HasPrefix(suffix, "/")
}

// Relativizer strips the working directory from paths found in a single report.
// The inferred working directory is computed at most once per Relativizer, so a
// fresh one must be used for every report.
type Relativizer struct {
	workDir      *string
	trackedFiles []string

	inferred bool
	assumed  string
	found    bool
}

// NewRelativizer creates a Relativizer. A non-nil workDir disables inference.
func NewRelativizer(workDir *string, trackedFiles []string) *Relativizer {
	r := &Relativizer{trackedFiles: trackedFiles}
	if workDir != nil {
		wd := NormalizeDirPath(*workDir, true)
		r.workDir = &wd
	}
	return r
}

// WorkDir returns the configured or inferred working directory
func (r *Relativizer) WorkDir() (string, bool) {
	if r.workDir != nil {
		return *r.workDir, true
	}
	return r.assumed, r.found
}

// Relativize normalizes p and removes the working directory prefix if p starts with it
func (r *Relativizer) Relativize(p string) string {
	p = NormalizeFilePath(p)
	workDir, ok := r.resolveWorkDir(p)
	if ok && workDir != "" && strings.HasPrefix(p, workDir) {
		p = p[len(workDir):]
	}
	return p
}

func (r *Relativizer) resolveWorkDir(p string) (string, bool) {
	if r.workDir != nil {
		return *r.workDir, true
	}
	if !r.inferred {
		r.inferred = true
		r.assumed, r.found = GetBasePath(p, r.trackedFiles)
	}
	return r.assumed, r.found
}
