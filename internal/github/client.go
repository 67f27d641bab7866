// Package github downloads test report artifacts from GitHub Actions workflow runs.
package github

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.github.com"
	// maxEntrySize caps a single extracted report file
	maxEntrySize = 256 << 20
)

// ErrNoArtifacts is returned when a run has no usable artifacts
var ErrNoArtifacts = errors.New("no matching artifacts")

// Options configures a Client
type Options struct {
	Token             string
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client handles GitHub API interactions
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a new GitHub client
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		token:      opts.Token,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// ParseRepo splits "owner/repo"
func ParseRepo(s string) (owner, repo string, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format %q, use: owner/repo", s)
	}
	return parts[0], parts[1], nil
}

// WorkflowRun represents a GitHub Actions workflow run
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
	HeadBranch string `json:"head_branch"`
	HeadSHA    string `json:"head_sha"`
	RunNumber  int    `json:"run_number"`
}

// Artifact represents a GitHub Actions artifact
type Artifact struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_in_bytes"`
	Expired   bool   `json:"expired"`
}

// ExtractedFile represents a file extracted from an artifact
type ExtractedFile struct {
	Artifact string
	Name     string
	Content  []byte
}

// Path identifies the file by artifact and entry name
func (f ExtractedFile) Path() string {
	return f.Artifact + "/" + f.Name
}

// ListWorkflowRuns fetches recent completed workflow runs, newest first
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo string) ([]WorkflowRun, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/runs?per_page=10&status=completed", c.baseURL, owner, repo)

	var result struct {
		WorkflowRuns []WorkflowRun `json:"workflow_runs"`
	}
	if err := c.doRequest(ctx, url, &result); err != nil {
		return nil, err
	}
	return result.WorkflowRuns, nil
}

// LatestRunID returns the most recent completed run
func (c *Client) LatestRunID(ctx context.Context, owner, repo string) (int64, error) {
	runs, err := c.ListWorkflowRuns(ctx, owner, repo)
	if err != nil {
		return 0, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return 0, fmt.Errorf("no completed workflow runs found for %s/%s", owner, repo)
	}
	return runs[0].ID, nil
}

// ListArtifacts fetches artifacts for a workflow run
func (c *Client) ListArtifacts(ctx context.Context, owner, repo string, runID int64) ([]Artifact, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%d/artifacts?per_page=100", c.baseURL, owner, repo, runID)

	var result struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := c.doRequest(ctx, url, &result); err != nil {
		return nil, err
	}
	return result.Artifacts, nil
}

// DownloadArtifact downloads an artifact and returns the raw zip bytes
func (c *Client) DownloadArtifact(ctx context.Context, owner, repo string, artifactID int64) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/artifacts/%d/zip", c.baseURL, owner, repo, artifactID)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download artifact %d: %s", artifactID, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// ExtractArtifact downloads an artifact and returns the files matching patterns
func (c *Client) ExtractArtifact(ctx context.Context, owner, repo string, artifact Artifact, patterns []string) ([]ExtractedFile, error) {
	zipData, err := c.DownloadArtifact(ctx, owner, repo, artifact.ID)
	if err != nil {
		return nil, err
	}
	return extractZipFiles(artifact.Name, zipData, patterns)
}

// FetchReports extracts matching files from every live artifact of a run whose
// name matches artifactPattern. An empty artifactPattern selects all artifacts.
func (c *Client) FetchReports(ctx context.Context, owner, repo string, runID int64, artifactPattern string, filePatterns []string) ([]ExtractedFile, error) {
	logger := zerolog.Ctx(ctx).With().Str("component", "github").Int64("run_id", runID).Logger()

	artifacts, err := c.ListArtifacts(ctx, owner, repo, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var files []ExtractedFile
	for _, a := range SelectArtifacts(artifacts, artifactPattern) {
		extracted, err := c.ExtractArtifact(ctx, owner, repo, a, filePatterns)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("artifact", a.Name).Int("files", len(extracted)).Msg("artifact extracted")
		files = append(files, extracted...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in run %d", ErrNoArtifacts, runID)
	}
	return files, nil
}

// SelectArtifacts drops expired artifacts and those not matching pattern
func SelectArtifacts(artifacts []Artifact, pattern string) []Artifact {
	var selected []Artifact
	for _, a := range artifacts {
		if a.Expired {
			continue
		}
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, a.Name); !ok {
				continue
			}
		}
		selected = append(selected, a)
	}
	return selected
}

// extractZipFiles extracts files from zip data matching given patterns
func extractZipFiles(artifactName string, zipData []byte, patterns []string) ([]ExtractedFile, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip: %w", err)
	}

	var files []ExtractedFile
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || !matchesAnyPattern(f.Name, patterns) {
			continue
		}
		if f.UncompressedSize64 > maxEntrySize {
			return nil, fmt.Errorf("zip entry %s exceeds %d bytes", f.Name, maxEntrySize)
		}

		content, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read zip entry %s: %w", f.Name, err)
		}
		files = append(files, ExtractedFile{Artifact: artifactName, Name: f.Name, Content: content})
	}
	return files, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntrySize))
}

// matchesAnyPattern checks the entry's full path and base name against doublestar patterns
func matchesAnyPattern(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	base := path.Base(name)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (c *Client) newAPIRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return req, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := c.newAPIRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) doRequest(ctx context.Context, url string, result any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GitHub API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
