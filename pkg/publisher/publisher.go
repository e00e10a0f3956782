package publisher

import (
	"fmt"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
	"github.com/prashnth19/codeql-health-scanner/pkg/publisher/console"
	"github.com/prashnth19/codeql-health-scanner/pkg/publisher/csv"
	"github.com/prashnth19/codeql-health-scanner/pkg/publisher/json"
	"github.com/prashnth19/codeql-health-scanner/pkg/publisher/slack"
)

// Publisher renders one scan result to a destination.
type Publisher interface {
	// PublishScanResult renders the scan result and returns an error
	// if delivery fails.
	PublishScanResult(*models.ScanResult) error

	// GetName identifies the publisher in logs.
	GetName() string
}

// Factory creates publishers by type name.
type Factory struct{}

func NewPublisherFactory() *Factory {
	return &Factory{}
}

// CreatePublisher builds the publisher for publisherType using the
// relevant keys from config.
func (f *Factory) CreatePublisher(publisherType string, config map[string]string) (Publisher, error) {
	switch publisherType {
	case "console":
		return console.NewConsolePublisher(), nil
	case "json":
		return json.NewJSONPublisher(
			config["jsonOutputPath"],
		), nil
	case "csv":
		return csv.NewCSVPublisher(
			config["csvOutputPath"],
		), nil
	case "slack-webhook":
		return slack.NewWebhookPublisher(
			config["slackWebhookURL"],
			config["githubOrganization"],
		), nil
	default:
		return nil, fmt.Errorf("unknown publisher type: %s", publisherType)
	}
}
