package resolver

import "github.com/prashnth19/codeql-health-scanner/pkg/models"

// Resolve maps one repository's classification and workflow verdicts
// onto a single status. The decision table is evaluated in order and
// is exhaustive:
//
//	excluded                       -> EXCLUDED
//	zero matched CodeQL workflows  -> NO_CODEQL
//	any failing workflow verdict   -> FAILING
//	otherwise                      -> OK
//
// For FAILING the representative URL is the first failing workflow's
// URL in listing order, not the most severe or most recent.
func Resolve(repoName string, excluded bool, verdicts []models.WorkflowVerdict) models.RepoResult {
	result := models.RepoResult{RepoName: repoName}

	if excluded {
		result.Status = models.StatusExcluded
		return result
	}

	if len(verdicts) == 0 {
		result.Status = models.StatusNoCodeQL
		return result
	}

	result.CodeQLWorkflows = len(verdicts)
	for _, v := range verdicts {
		if !v.Failing {
			continue
		}
		result.FailingWorkflows++
		if result.FailureURL == "" {
			result.FailureURL = v.FailureURL
		}
	}

	if result.FailingWorkflows > 0 {
		result.Status = models.StatusFailing
	} else {
		result.Status = models.StatusOK
	}
	return result
}
