package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v50/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashnth19/codeql-health-scanner/pkg/exclusion"
	"github.com/prashnth19/codeql-health-scanner/pkg/models"
)

const (
	testOrg     = "test-org"
	apiV3Prefix = "/api/v3"
)

// getAPIPath returns the full API path for a given endpoint
func getAPIPath(endpoint string) string {
	return apiV3Prefix + endpoint
}

// getRepoPath returns the full repository API path
func getRepoPath(repo, endpoint string) string {
	return getAPIPath(fmt.Sprintf("/repos/%s/%s%s", testOrg, repo, endpoint))
}

func newTestScanner(t *testing.T, serverURL string, exclusions *exclusion.Set) *Scanner {
	t.Helper()

	client := github.NewClient(&http.Client{})
	baseURL, err := url.Parse(serverURL + apiV3Prefix + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	return &Scanner{
		client:          client,
		concurrentScans: 3,
		runWindow:       10,
		requestTimeout:  5 * time.Second,
		exclusions:      exclusions,
		classifierMode:  ClassifierByName,
	}
}

func encodeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
}

// setupTestServer mocks the GitHub API for an org with five
// repositories: one healthy, one failing, one without CodeQL, one
// excluded and one archived.
func setupTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc(getAPIPath("/orgs/"+testOrg+"/repos"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, []*github.Repository{
			{Name: github.String("api-server")},
			{Name: github.String("archived-repo"), Archived: github.Bool(true)},
			{Name: github.String("billing")},
			{Name: github.String("legacy")},
			{Name: github.String("website")},
		})
	})

	mux.HandleFunc(getRepoPath("api-server", "/actions/workflows"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.Workflows{
			TotalCount: github.Int(2),
			Workflows: []*github.Workflow{
				{ID: github.Int64(10), Name: github.String("CI"), Path: github.String(".github/workflows/ci.yml")},
				{ID: github.Int64(11), Name: github.String("CodeQL"), Path: github.String(".github/workflows/codeql.yml")},
			},
		})
	})
	mux.HandleFunc(getRepoPath("api-server", "/actions/workflows/11/runs"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.WorkflowRuns{
			TotalCount: github.Int(2),
			WorkflowRuns: []*github.WorkflowRun{
				{Status: github.String("in_progress"), HTMLURL: github.String("https://example.com/api-server/runs/2")},
				{Status: github.String("completed"), Conclusion: github.String("success"), HTMLURL: github.String("https://example.com/api-server/runs/1")},
			},
		})
	})

	mux.HandleFunc(getRepoPath("billing", "/actions/workflows"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.Workflows{
			TotalCount: github.Int(2),
			Workflows: []*github.Workflow{
				{ID: github.Int64(20), Name: github.String("Security Scan (CodeQL-Extended)"), Path: github.String(".github/workflows/security.yml")},
				{ID: github.Int64(21), Name: github.String("Nightly"), Path: github.String("ci/codeql/nightly.yml")},
			},
		})
	})
	mux.HandleFunc(getRepoPath("billing", "/actions/workflows/20/runs"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.WorkflowRuns{
			TotalCount: github.Int(1),
			WorkflowRuns: []*github.WorkflowRun{
				{Status: github.String("completed"), Conclusion: github.String("failure"), HTMLURL: github.String("https://example.com/billing/runs/9")},
			},
		})
	})
	mux.HandleFunc(getRepoPath("billing", "/actions/workflows/21/runs"), func(w http.ResponseWriter, r *http.Request) {
		// Triggered but never completed.
		encodeJSON(t, w, &github.WorkflowRuns{
			TotalCount:   github.Int(0),
			WorkflowRuns: []*github.WorkflowRun{},
		})
	})

	mux.HandleFunc(getRepoPath("legacy", "/actions/workflows"), func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("workflows must not be fetched for excluded repository %q", "legacy")
	})

	mux.HandleFunc(getRepoPath("website", "/actions/workflows"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.Workflows{
			TotalCount: github.Int(1),
			Workflows: []*github.Workflow{
				{ID: github.Int64(30), Name: github.String("Deploy"), Path: github.String(".github/workflows/deploy.yml")},
			},
		})
	})
	mux.HandleFunc(getRepoPath("website", "/actions/workflows/30/runs"), func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("runs must not be fetched for non-CodeQL workflow in %q", "website")
	})

	return server
}

func TestScanOrganization(t *testing.T) {
	server := setupTestServer(t)
	scanner := newTestScanner(t, server.URL, exclusion.NewSet([]string{"legacy"}))

	result, err := scanner.ScanOrganization(context.Background(), testOrg)
	require.NoError(t, err)

	// Archived repo never reaches the core; listing order is preserved.
	require.Len(t, result.Repositories, 4)
	assert.Equal(t, testOrg, result.Organization)

	want := []models.RepoResult{
		{RepoName: "api-server", Status: models.StatusOK, CodeQLWorkflows: 1},
		{
			RepoName:         "billing",
			Status:           models.StatusFailing,
			CodeQLWorkflows:  2,
			FailingWorkflows: 2,
			FailureURL:       "https://example.com/billing/runs/9",
		},
		{RepoName: "legacy", Status: models.StatusExcluded},
		{RepoName: "website", Status: models.StatusNoCodeQL},
	}
	assert.Equal(t, want, result.Repositories)

	assert.Equal(t, models.ScanSummary{
		TotalRepos:    4,
		ScannedRepos:  3,
		ExcludedRepos: 1,
		OKRepos:       1,
		FailingRepos:  1,
		NoCodeQLRepos: 1,
	}, result.Summary)
	assert.True(t, result.HasFailures())
}

func TestScanOrganizationIdempotent(t *testing.T) {
	server := setupTestServer(t)
	scanner := newTestScanner(t, server.URL, exclusion.NewSet([]string{"legacy"}))

	first, err := scanner.ScanOrganization(context.Background(), testOrg)
	require.NoError(t, err)
	second, err := scanner.ScanOrganization(context.Background(), testOrg)
	require.NoError(t, err)

	assert.Equal(t, first.Repositories, second.Repositories)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestScanRepositoryWorkflowListFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc(getRepoPath("broken", "/actions/workflows"), func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	})

	scanner := newTestScanner(t, server.URL, nil)
	result := scanner.scanRepository(context.Background(), testOrg, "broken")

	// No workflow data reads as no CodeQL coverage; the scan goes on.
	assert.Equal(t, models.RepoResult{
		RepoName: "broken",
		Status:   models.StatusNoCodeQL,
	}, result)
}

func TestScanRepositoryRunListFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc(getRepoPath("flaky", "/actions/workflows"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.Workflows{
			TotalCount: github.Int(1),
			Workflows: []*github.Workflow{
				{ID: github.Int64(40), Name: github.String("CodeQL"), Path: github.String(".github/workflows/codeql.yml")},
			},
		})
	})
	mux.HandleFunc(getRepoPath("flaky", "/actions/workflows/40/runs"), func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusBadGateway)
	})

	scanner := newTestScanner(t, server.URL, nil)
	result := scanner.scanRepository(context.Background(), testOrg, "flaky")

	// Unreachable run history fails closed with no reference URL.
	assert.Equal(t, models.RepoResult{
		RepoName:         "flaky",
		Status:           models.StatusFailing,
		CodeQLWorkflows:  1,
		FailingWorkflows: 1,
	}, result)
}

func TestScanRepositoryContentClassifier(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	workflowYAML := `name: Static Analysis
jobs:
  analyze:
    steps:
      - uses: actions/checkout@v4
      - uses: github/codeql-action/init@v3
      - uses: github/codeql-action/analyze@v3
`

	mux.HandleFunc(getRepoPath("stealth", "/actions/workflows"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.Workflows{
			TotalCount: github.Int(1),
			Workflows: []*github.Workflow{
				// Name and path give no hint of CodeQL.
				{ID: github.Int64(50), Name: github.String("Static Analysis"), Path: github.String(".github/workflows/analysis.yml")},
			},
		})
	})
	mux.HandleFunc(getRepoPath("stealth", "/contents/.github/workflows/analysis.yml"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.RepositoryContent{
			Type:     github.String("file"),
			Encoding: github.String(""),
			Name:     github.String("analysis.yml"),
			Path:     github.String(".github/workflows/analysis.yml"),
			Content:  github.String(workflowYAML),
		})
	})
	mux.HandleFunc(getRepoPath("stealth", "/actions/workflows/50/runs"), func(w http.ResponseWriter, r *http.Request) {
		encodeJSON(t, w, &github.WorkflowRuns{
			TotalCount: github.Int(1),
			WorkflowRuns: []*github.WorkflowRun{
				{Status: github.String("completed"), Conclusion: github.String("success"), HTMLURL: github.String("https://example.com/stealth/runs/1")},
			},
		})
	})

	scanner := newTestScanner(t, server.URL, nil)
	scanner.classifierMode = ClassifierByContent

	result := scanner.scanRepository(context.Background(), testOrg, "stealth")
	assert.Equal(t, models.RepoResult{
		RepoName:        "stealth",
		Status:          models.StatusOK,
		CodeQLWorkflows: 1,
	}, result)
}
