package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
)

// CSVPublisher writes the machine-tabular rendering to a file, or to
// stdout when no output path is configured.
type CSVPublisher struct {
	outputPath string
}

func NewCSVPublisher(outputPath string) *CSVPublisher {
	return &CSVPublisher{
		outputPath: outputPath,
	}
}

func (p *CSVPublisher) PublishScanResult(result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("cannot publish nil scan result")
	}

	if p.outputPath == "" {
		return p.write(os.Stdout, result)
	}

	f, err := os.Create(p.outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	if err := p.write(f, result); err != nil {
		return fmt.Errorf("failed to write CSV to %s: %w", p.outputPath, err)
	}
	return nil
}

func (p *CSVPublisher) write(w io.Writer, result *models.ScanResult) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	header := []string{"repository", "status", "codeql_workflows", "failing_workflows", "failure_url"}
	if err := csvWriter.Write(header); err != nil {
		return err
	}

	for _, repo := range result.Repositories {
		record := []string{
			repo.RepoName,
			string(repo.Status),
			strconv.Itoa(repo.CodeQLWorkflows),
			strconv.Itoa(repo.FailingWorkflows),
			repo.FailureURL,
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (p *CSVPublisher) GetName() string {
	return "csv"
}
