package evaluator

import "github.com/prashnth19/codeql-health-scanner/pkg/models"

// DefaultRunWindow is how many recent runs the scanner fetches per
// workflow. Older history is irrelevant to current health.
const DefaultRunWindow = 10

// Evaluate derives a verdict for one workflow from its recent runs,
// ordered most-recent-first. The most recent completed run decides:
// any newer in-progress or queued runs are skipped. A workflow without
// a completed run in the window is failing with no reference URL, the
// same as a workflow whose runs could not be fetched at all.
func Evaluate(wf models.WorkflowDefinition, runs []models.WorkflowRun) models.WorkflowVerdict {
	verdict := models.WorkflowVerdict{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
	}

	for _, run := range runs {
		if run.Status != models.RunStatusCompleted {
			continue
		}
		if run.Conclusion != models.ConclusionSuccess {
			verdict.Failing = true
			verdict.FailureURL = run.HTMLURL
		}
		return verdict
	}

	// No completed run in the window: triggered but never finished.
	verdict.Failing = true
	return verdict
}

// Unreachable marks a workflow whose run history could not be fetched.
// Unreachable and broken are indistinguishable for health monitoring.
func Unreachable(wf models.WorkflowDefinition) models.WorkflowVerdict {
	return models.WorkflowVerdict{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Failing:      true,
	}
}
