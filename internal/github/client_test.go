package github

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(Options{Token: "test-token", BaseURL: srv.URL + "/"})
	c.httpClient = srv.Client()
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient(Options{})
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.NotNil(t, c.limiter)

	c = NewClient(Options{BaseURL: "https://ghe.example.com/api/v3/", RequestsPerSecond: 2, Timeout: time.Second})
	assert.Equal(t, "https://ghe.example.com/api/v3", c.baseURL)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

func TestParseRepo(t *testing.T) {
	owner, repo, err := ParseRepo("kamilpajak/testreport")
	require.NoError(t, err)
	assert.Equal(t, "kamilpajak", owner)
	assert.Equal(t, "testreport", repo)

	for _, bad := range []string{"", "noslash", "a/b/c", "/repo", "owner/"} {
		_, _, err := ParseRepo(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewAPIRequest(t *testing.T) {
	c := &Client{token: "test-token"}
	req, err := c.newAPIRequest(context.Background(), "https://api.github.com/test")

	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", req.Header.Get("Accept"))
}

func TestNewAPIRequestNoToken(t *testing.T) {
	c := &Client{}
	req, err := c.newAPIRequest(context.Background(), "https://api.github.com/test")

	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestSelectArtifacts(t *testing.T) {
	artifacts := []Artifact{
		{ID: 1, Name: "mochawesome-report"},
		{ID: 2, Name: "mochawesome-old", Expired: true},
		{ID: 3, Name: "coverage"},
	}

	assert.Len(t, SelectArtifacts(artifacts, ""), 2)

	selected := SelectArtifacts(artifacts, "mochawesome-*")
	require.Len(t, selected, 1)
	assert.Equal(t, int64(1), selected[0].ID)

	assert.Empty(t, SelectArtifacts(nil, "*"))
}

func TestMatchesAnyPattern(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		patterns []string
		want     bool
	}{
		{"no patterns", "anything.txt", nil, true},
		{"base name", "reports/mochawesome.json", []string{"*.json"}, true},
		{"globstar", "reports/nested/mochawesome.json", []string{"reports/**/*.json"}, true},
		{"no match", "reports/index.html", []string{"*.json"}, false},
		{"alternation", "results.yml", []string{"*.{json,yml}"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesAnyPattern(tt.file, tt.patterns))
		})
	}
}

func TestExtractZipFiles(t *testing.T) {
	zipData := buildZip(t, map[string][]byte{
		"mochawesome.json":        []byte(`{"results":[]}`),
		"assets/app.js":           []byte("js"),
		"nested/mochawesome.json": []byte(`{}`),
	})

	files, err := extractZipFiles("report", zipData, []string{"*.json"})
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Equal(t, "report", f.Artifact)
		assert.Contains(t, f.Path(), "report/")
	}

	_, err = extractZipFiles("report", []byte("not a zip"), nil)
	assert.ErrorContains(t, err, "failed to read zip")
}

func TestFetchReports(t *testing.T) {
	zipData := buildZip(t, map[string][]byte{"mochawesome.json": []byte(`{"results":[]}`)})

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/actions/runs/42/artifacts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"artifacts":[
			{"id":7,"name":"mochawesome","size_in_bytes":10},
			{"id":8,"name":"mochawesome-expired","expired":true},
			{"id":9,"name":"screenshots"}]}`)
	})
	mux.HandleFunc("/repos/o/r/actions/artifacts/7/zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipData)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	files, err := newTestClient(srv).FetchReports(context.Background(), "o", "r", 42, "mochawesome*", []string{"*.json"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "mochawesome/mochawesome.json", files[0].Path())
	assert.JSONEq(t, `{"results":[]}`, string(files[0].Content))
}

func TestFetchReports_NoMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"artifacts":[]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchReports(context.Background(), "o", "r", 1, "", nil)
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestDownloadArtifact_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).DownloadArtifact(context.Background(), "o", "r", 5)
	assert.ErrorContains(t, err, "410")
}

func TestLatestRunID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "completed", r.URL.Query().Get("status"))
		fmt.Fprint(w, `{"workflow_runs":[{"id":300,"conclusion":"failure"},{"id":200}]}`)
	}))
	defer srv.Close()

	id, err := newTestClient(srv).LatestRunID(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.Equal(t, int64(300), id)
}

func TestDoRequest_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListArtifacts(context.Background(), "o", "r", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestRateLimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"artifacts":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSecond: 0.001})
	c.httpClient = srv.Client()

	_, err := c.ListArtifacts(context.Background(), "o", "r", 1)
	require.NoError(t, err, "first request uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.ListArtifacts(ctx, "o", "r", 1)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
