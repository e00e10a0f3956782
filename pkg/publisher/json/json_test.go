package json

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
)

func TestJSONPublisher_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	publisher := NewJSONPublisher(path)

	result := &models.ScanResult{
		Organization: "acme",
		Repositories: []models.RepoResult{
			{
				RepoName:         "billing",
				Status:           models.StatusFailing,
				CodeQLWorkflows:  1,
				FailingWorkflows: 1,
				FailureURL:       "https://github.com/acme/billing/actions/runs/7",
			},
		},
		Summary: models.ScanSummary{TotalRepos: 1, ScannedRepos: 1, FailingRepos: 1},
	}

	require.NoError(t, publisher.PublishScanResult(result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded models.ScanResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result.Organization, decoded.Organization)
	assert.Equal(t, result.Repositories, decoded.Repositories)
	assert.Equal(t, result.Summary, decoded.Summary)
}

func TestJSONPublisher_NilResult(t *testing.T) {
	publisher := NewJSONPublisher("")
	assert.Error(t, publisher.PublishScanResult(nil))
	assert.Equal(t, "json", publisher.GetName())
}
