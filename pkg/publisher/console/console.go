package console

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
	"github.com/prashnth19/codeql-health-scanner/pkg/reporter"
)

// ConsolePublisher writes the human-readable report to stdout.
type ConsolePublisher struct {
	formatter reporter.ReportFormatter
}

func NewConsolePublisher() *ConsolePublisher {
	return &ConsolePublisher{
		formatter: &reporter.ConsoleFormatter{},
	}
}

func (c *ConsolePublisher) PublishScanResult(result *models.ScanResult) error {
	logrus.Info("Publishing scan results to console")

	if result == nil {
		return fmt.Errorf("cannot publish nil scan result")
	}

	formatted := c.formatter.FormatReport(result)
	fmt.Print(formatted)

	logrus.Info("Successfully published scan results to console")
	return nil
}

func (c *ConsolePublisher) GetName() string {
	return "console"
}
