package scanner

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v50/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/prashnth19/codeql-health-scanner/pkg/classifier"
	"github.com/prashnth19/codeql-health-scanner/pkg/evaluator"
	"github.com/prashnth19/codeql-health-scanner/pkg/exclusion"
	"github.com/prashnth19/codeql-health-scanner/pkg/models"
	"github.com/prashnth19/codeql-health-scanner/pkg/reporter"
	"github.com/prashnth19/codeql-health-scanner/pkg/resolver"
)

// Classifier modes accepted by NewScanner.
const (
	ClassifierByName    = "name"
	ClassifierByContent = "content"
)

const (
	maxRetries     = 3
	initialBackoff = 2 * time.Second
	backoffFactor  = 2
)

// Scanner walks an organization's repositories and resolves a CodeQL
// health status for each one.
type Scanner struct {
	client          *github.Client
	concurrentScans int
	runWindow       int
	requestTimeout  time.Duration
	exclusions      *exclusion.Set
	classifierMode  string
}

// Options configures a Scanner.
type Options struct {
	// Token is the GitHub personal access token.
	Token string

	// BaseURL selects a GitHub Enterprise Server API root. Empty means
	// github.com.
	BaseURL string

	// ConcurrentScans caps how many repositories are scanned at once.
	ConcurrentScans int

	// RunWindow is how many recent runs to inspect per workflow.
	RunWindow int

	// RequestTimeout bounds every individual API call.
	RequestTimeout time.Duration

	// Exclusions is the repository skip-list. May be nil.
	Exclusions *exclusion.Set

	// ClassifierMode is ClassifierByName or ClassifierByContent.
	ClassifierMode string
}

// NewScanner creates a Scanner from opts.
func NewScanner(opts Options) (*Scanner, error) {
	client, err := newGitHubClient(opts.Token, opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if opts.ConcurrentScans <= 0 {
		opts.ConcurrentScans = 5
	}
	if opts.RunWindow <= 0 {
		opts.RunWindow = evaluator.DefaultRunWindow
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.ClassifierMode == "" {
		opts.ClassifierMode = ClassifierByName
	}

	return &Scanner{
		client:          client,
		concurrentScans: opts.ConcurrentScans,
		runWindow:       opts.RunWindow,
		requestTimeout:  opts.RequestTimeout,
		exclusions:      opts.Exclusions,
		classifierMode:  opts.ClassifierMode,
	}, nil
}

// newGitHubClient creates an authenticated client for github.com or a
// GitHub Enterprise Server base URL.
func newGitHubClient(token, baseURL string) (*github.Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	if baseURL == "" {
		return github.NewClient(tc), nil
	}
	client, err := github.NewEnterpriseClient(baseURL, baseURL, tc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return client, nil
}

// ScanOrganization resolves a CodeQL health status for every
// non-archived repository in org. Repositories are scanned with
// bounded concurrency; one repository's fetch errors never abort the
// others. The returned results follow the org listing order.
func (s *Scanner) ScanOrganization(ctx context.Context, org string) (*models.ScanResult, error) {
	start := time.Now()
	maxRoutines := int32(0)
	activeRoutines := int32(0)

	repos, err := s.listRepositories(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	results := make([]models.RepoResult, len(repos))
	sem := make(chan struct{}, s.concurrentScans)
	var wg sync.WaitGroup

	for i, name := range repos {
		logrus.WithFields(logrus.Fields{
			"repo":     name,
			"progress": fmt.Sprintf("%d/%d", i+1, len(repos)),
		}).Debug("Scanning repository")

		wg.Add(1)
		sem <- struct{}{}

		go func(i int, name string) {
			atomic.AddInt32(&activeRoutines, 1)
			atomic.CompareAndSwapInt32(&maxRoutines, atomic.LoadInt32(&activeRoutines)-1, atomic.LoadInt32(&activeRoutines))

			defer func() {
				atomic.AddInt32(&activeRoutines, -1)
				wg.Done()
				<-sem
			}()

			results[i] = s.scanRepository(ctx, org, name)
		}(i, name)
	}

	wg.Wait()
	logrus.WithFields(logrus.Fields{
		"repos":         len(repos),
		"duration":      time.Since(start).String(),
		"maxGoroutines": maxRoutines,
	}).Info("Scan completed")

	return &models.ScanResult{
		Organization: org,
		Repositories: results,
		Summary:      reporter.Aggregate(results),
		ScanDuration: time.Since(start),
	}, nil
}

// listRepositories returns the names of all non-archived repositories
// in org, in listing order.
func (s *Scanner) listRepositories(ctx context.Context, org string) ([]string, error) {
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
		Sort:        "full_name",
		Direction:   "asc",
	}

	var names []string
	for {
		var (
			repos []*github.Repository
			resp  *github.Response
		)
		err := s.withBackoff(ctx, "list repositories", func(ctx context.Context) (*github.Response, error) {
			var err error
			repos, resp, err = s.client.Repositories.ListByOrg(ctx, org, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, repo := range repos {
			if repo.GetArchived() {
				continue
			}
			names = append(names, repo.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// scanRepository resolves one repository. Fetch errors resolve fail
// closed instead of propagating: a failed workflow listing reads as no
// CodeQL coverage, a failed run listing reads as a failing workflow.
func (s *Scanner) scanRepository(ctx context.Context, org, repoName string) models.RepoResult {
	if s.exclusions.Contains(repoName) {
		return resolver.Resolve(repoName, true, nil)
	}

	workflows, err := s.listWorkflows(ctx, org, repoName)
	if err != nil {
		logrus.WithError(err).WithField("repo", repoName).Warn("Failed to list workflows, treating as no CodeQL coverage")
		return resolver.Resolve(repoName, false, nil)
	}

	matched := s.matchWorkflows(ctx, org, repoName, workflows)
	if len(matched) == 0 {
		// No run fetches for repositories without CodeQL.
		return resolver.Resolve(repoName, false, nil)
	}

	verdicts := make([]models.WorkflowVerdict, 0, len(matched))
	for _, wf := range matched {
		runs, err := s.listWorkflowRuns(ctx, org, repoName, wf.ID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"repo":     repoName,
				"workflow": wf.Name,
			}).Warn("Failed to list workflow runs, treating workflow as failing")
			verdicts = append(verdicts, evaluator.Unreachable(wf))
			continue
		}
		verdicts = append(verdicts, evaluator.Evaluate(wf, runs))
	}

	return resolver.Resolve(repoName, false, verdicts)
}

// matchWorkflows returns the CodeQL subset of workflows in listing
// order, using the configured classifier mode.
func (s *Scanner) matchWorkflows(ctx context.Context, org, repoName string, workflows []models.WorkflowDefinition) []models.WorkflowDefinition {
	if s.classifierMode != ClassifierByContent {
		return classifier.Filter(workflows, classifier.ByNameOrPath)
	}

	var matched []models.WorkflowDefinition
	for _, wf := range workflows {
		ok, err := s.workflowUsesCodeQL(ctx, org, repoName, wf)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"repo":     repoName,
				"workflow": wf.Path,
			}).Warn("Failed to inspect workflow content, falling back to name match")
			ok = classifier.ByNameOrPath(wf)
		}
		if ok {
			matched = append(matched, wf)
		}
	}
	return matched
}

// workflowUsesCodeQL fetches the workflow file and checks it for a
// github/codeql-action step.
func (s *Scanner) workflowUsesCodeQL(ctx context.Context, org, repoName string, wf models.WorkflowDefinition) (bool, error) {
	var fileContent *github.RepositoryContent
	err := s.withBackoff(ctx, "get workflow content", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		fileContent, _, resp, err = s.client.Repositories.GetContents(ctx, org, repoName, wf.Path, nil)
		return resp, err
	})
	if err != nil {
		return false, fmt.Errorf("failed to get contents for %s: %w", wf.Path, err)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return false, fmt.Errorf("failed to decode content for %s: %w", wf.Path, err)
	}
	return classifier.UsesCodeQLAction([]byte(content))
}

func (s *Scanner) listWorkflows(ctx context.Context, org, repoName string) ([]models.WorkflowDefinition, error) {
	opts := &github.ListOptions{PerPage: 100}

	var defs []models.WorkflowDefinition
	for {
		var (
			workflows *github.Workflows
			resp      *github.Response
		)
		err := s.withBackoff(ctx, "list workflows", func(ctx context.Context) (*github.Response, error) {
			var err error
			workflows, resp, err = s.client.Actions.ListWorkflows(ctx, org, repoName, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows for %s: %w", repoName, err)
		}

		for _, wf := range workflows.Workflows {
			defs = append(defs, models.WorkflowDefinition{
				ID:   wf.GetID(),
				Name: wf.GetName(),
				Path: wf.GetPath(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return defs, nil
}

// listWorkflowRuns fetches the most recent runs for one workflow,
// bounded by the configured window.
func (s *Scanner) listWorkflowRuns(ctx context.Context, org, repoName string, workflowID int64) ([]models.WorkflowRun, error) {
	opts := &github.ListWorkflowRunsOptions{
		ListOptions: github.ListOptions{PerPage: s.runWindow},
	}

	var runs *github.WorkflowRuns
	err := s.withBackoff(ctx, "list workflow runs", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		runs, resp, err = s.client.Actions.ListWorkflowRunsByID(ctx, org, repoName, workflowID, opts)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for workflow %d in %s: %w", workflowID, repoName, err)
	}

	out := make([]models.WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		out = append(out, models.WorkflowRun{
			Status:     run.GetStatus(),
			Conclusion: run.GetConclusion(),
			HTMLURL:    run.GetHTMLURL(),
		})
	}
	return out, nil
}

// withBackoff runs one API call, retrying with exponential backoff
// when the API throttles (primary or secondary rate limits, HTTP
// 403/429). Other errors return immediately.
func (s *Scanner) withBackoff(ctx context.Context, op string, fn func(ctx context.Context) (*github.Response, error)) error {
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
		resp, err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		wait := backoff
		switch e := err.(type) {
		case *github.RateLimitError:
			wait = time.Until(e.Rate.Reset.Time)
			if wait <= 0 {
				wait = backoff
			}
		case *github.AbuseRateLimitError:
			if e.RetryAfter != nil {
				wait = *e.RetryAfter
			}
		default:
			if resp == nil || (resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests) {
				return err
			}
		}

		if attempt == maxRetries {
			break
		}

		logrus.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt + 1,
			"retryIn":   wait.String(),
		}).Warn("GitHub API throttled, backing off")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= backoffFactor
	}
	return lastErr
}
