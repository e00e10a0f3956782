package classifier

import (
	"fmt"
	"strings"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
	"gopkg.in/yaml.v3"
)

// Predicate decides whether one workflow definition counts as a CodeQL
// workflow. Swapping the predicate changes classification without
// touching the evaluator or resolver.
type Predicate func(wf models.WorkflowDefinition) bool

// ByNameOrPath matches when the display name or the file path contains
// "codeql", case-insensitive and unanchored. This is the default
// heuristic: ".github/workflows/my-codeql-extra.yml" matches, as does
// a workflow named "Security Scan (CodeQL-Extended)".
func ByNameOrPath(wf models.WorkflowDefinition) bool {
	return strings.Contains(strings.ToLower(wf.Name), "codeql") ||
		strings.Contains(strings.ToLower(wf.Path), "codeql")
}

// Filter returns the workflows matching pred, preserving input order.
func Filter(workflows []models.WorkflowDefinition, pred Predicate) []models.WorkflowDefinition {
	var matched []models.WorkflowDefinition
	for _, wf := range workflows {
		if pred(wf) {
			matched = append(matched, wf)
		}
	}
	return matched
}

// UsesCodeQLAction reports whether the workflow file content contains a
// step that uses the github/codeql-action suite. It is a stricter
// alternative to ByNameOrPath for orgs whose CodeQL workflows carry
// unrelated names.
func UsesCodeQLAction(content []byte) (bool, error) {
	var workflow struct {
		Jobs map[string]struct {
			Steps []struct {
				Uses string `yaml:"uses"`
			} `yaml:"steps"`
		} `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(content, &workflow); err != nil {
		return false, fmt.Errorf("failed to parse workflow: %w", err)
	}

	for _, job := range workflow.Jobs {
		for _, step := range job.Steps {
			if strings.HasPrefix(strings.ToLower(step.Uses), "github/codeql-action/") {
				return true, nil
			}
		}
	}
	return false, nil
}
