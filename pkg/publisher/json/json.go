package json

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
)

// JSONPublisher writes the structured scan result to a file, or to
// stdout when no output path is configured.
type JSONPublisher struct {
	outputPath string
}

func NewJSONPublisher(outputPath string) *JSONPublisher {
	return &JSONPublisher{
		outputPath: outputPath,
	}
}

func (p *JSONPublisher) PublishScanResult(result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("cannot publish nil scan result")
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scan result to JSON: %w", err)
	}

	if p.outputPath == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(p.outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON to file: %w", err)
	}
	return nil
}

func (p *JSONPublisher) GetName() string {
	return "json"
}
