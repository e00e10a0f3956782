package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sirupsen/logrus"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
	"github.com/prashnth19/codeql-health-scanner/pkg/version"
)

// Aggregate folds per-repository results into a ScanSummary. Pure and
// deterministic: the same input sequence always yields the same
// summary, regardless of how the results were produced.
func Aggregate(repos []models.RepoResult) models.ScanSummary {
	summary := models.ScanSummary{TotalRepos: len(repos)}
	for _, repo := range repos {
		switch repo.Status {
		case models.StatusExcluded:
			summary.ExcludedRepos++
		case models.StatusOK:
			summary.ScannedRepos++
			summary.OKRepos++
		case models.StatusFailing:
			summary.ScannedRepos++
			summary.FailingRepos++
		case models.StatusNoCodeQL:
			summary.ScannedRepos++
			summary.NoCodeQLRepos++
		}
	}
	return summary
}

type ReportFormatter interface {
	FormatReport(*models.ScanResult) string
}

type ConsoleFormatter struct{}

var statusColors = map[models.RepoStatus]*color.Color{
	models.StatusOK:       color.New(color.FgGreen),
	models.StatusFailing:  color.New(color.FgRed),
	models.StatusNoCodeQL: color.New(color.FgYellow),
	models.StatusExcluded: color.New(color.Faint),
}

func colorStatus(status models.RepoStatus) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(string(status))
	}
	return string(status)
}

// FormatReport renders the scan as a human-readable table followed by
// the aggregate summary.
func (f *ConsoleFormatter) FormatReport(result *models.ScanResult) string {
	if result == nil {
		logrus.Error("Received nil result in console formatter")
		return "No scan results\n"
	}

	buildInfo := version.Get()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CodeQL Health Scanner: Version=%s, Commit=%s, Built=%s, Go=%s\n\n",
		buildInfo.Version, buildInfo.GitCommit, buildInfo.BuildDate, buildInfo.GoVersion))
	sb.WriteString(fmt.Sprintf("CodeQL coverage for organization %q:\n", result.Organization))

	table := tablewriter.NewWriter(&sb)
	table.Header([]string{"Repository", "Status", "CodeQL Workflows", "Failing", "Failure URL"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, repo := range result.Repositories {
		data = append(data, []string{
			repo.RepoName,
			colorStatus(repo.Status),
			fmt.Sprintf("%d", repo.CodeQLWorkflows),
			fmt.Sprintf("%d", repo.FailingWorkflows),
			repo.FailureURL,
		})
	}
	if err := table.Bulk(data); err != nil {
		logrus.WithError(err).Error("Failed to populate report table")
	}
	if err := table.Render(); err != nil {
		logrus.WithError(err).Error("Failed to render report table")
	}

	s := result.Summary
	sb.WriteString(fmt.Sprintf("\nTotal: %d | Scanned: %d | Excluded: %d\n",
		s.TotalRepos, s.ScannedRepos, s.ExcludedRepos))
	sb.WriteString(fmt.Sprintf("OK: %d | Failing: %d | No CodeQL: %d\n",
		s.OKRepos, s.FailingRepos, s.NoCodeQLRepos))
	sb.WriteString(fmt.Sprintf("Scan completed in %v\n", result.ScanDuration.Round(time.Millisecond)))
	return sb.String()
}
