package models

import "time"

// RepoStatus is the resolved CodeQL health status of one repository.
type RepoStatus string

const (
	StatusOK       RepoStatus = "OK"
	StatusFailing  RepoStatus = "FAILING"
	StatusNoCodeQL RepoStatus = "NO_CODEQL"
	StatusExcluded RepoStatus = "EXCLUDED"
)

// Workflow run lifecycle statuses as reported by the Actions API.
const (
	RunStatusCompleted  = "completed"
	RunStatusInProgress = "in_progress"
	RunStatusQueued     = "queued"
	RunStatusWaiting    = "waiting"
)

// ConclusionSuccess is the only run conclusion counted as passing.
// Everything else (failure, cancelled, timed_out, action_required,
// stale, skipped, neutral) counts as failing.
const ConclusionSuccess = "success"

// WorkflowDefinition is one workflow file registered in a repository.
type WorkflowDefinition struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// WorkflowRun is one execution of a workflow. Conclusion is only
// meaningful when Status is "completed".
type WorkflowRun struct {
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
}

// WorkflowVerdict is the evaluated health of one CodeQL workflow.
// FailureURL points at the run that decided a failing verdict; it is
// empty when no completed run could be found.
type WorkflowVerdict struct {
	WorkflowID   int64  `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	Failing      bool   `json:"failing"`
	FailureURL   string `json:"failure_url,omitempty"`
}

// RepoResult is the per-repository outcome of one scan.
type RepoResult struct {
	RepoName         string     `json:"repo_name"`
	Status           RepoStatus `json:"status"`
	CodeQLWorkflows  int        `json:"codeql_workflows"`
	FailingWorkflows int        `json:"failing_workflows"`
	FailureURL       string     `json:"failure_url,omitempty"`
}

// ScanSummary aggregates one full organization scan.
// Invariants: TotalRepos = ScannedRepos + ExcludedRepos and
// ScannedRepos = OKRepos + FailingRepos + NoCodeQLRepos.
type ScanSummary struct {
	TotalRepos    int `json:"total_repos"`
	ScannedRepos  int `json:"scanned_repos"`
	ExcludedRepos int `json:"excluded_repos"`
	OKRepos       int `json:"ok_repos"`
	FailingRepos  int `json:"failing_repos"`
	NoCodeQLRepos int `json:"no_codeql_repos"`
}

// ScanResult is the full output of one scan, in org listing order.
type ScanResult struct {
	Organization string        `json:"organization"`
	Repositories []RepoResult  `json:"repositories"`
	Summary      ScanSummary   `json:"summary"`
	ScanDuration time.Duration `json:"scan_duration_ns"`
}

// HasFailures reports whether any repository resolved to FAILING.
// Publishers that only fire on failures key off this.
func (r *ScanResult) HasFailures() bool {
	return r.Summary.FailingRepos > 0
}
