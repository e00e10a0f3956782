package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prashnth19/codeql-health-scanner/internal/config"
	"github.com/prashnth19/codeql-health-scanner/pkg/connectivity"
	"github.com/prashnth19/codeql-health-scanner/pkg/exclusion"
	"github.com/prashnth19/codeql-health-scanner/pkg/logger"
	"github.com/prashnth19/codeql-health-scanner/pkg/models"
	"github.com/prashnth19/codeql-health-scanner/pkg/publisher"
	"github.com/prashnth19/codeql-health-scanner/pkg/scanner"
)

func main() {
	cfg, err := initializeConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	checker := connectivity.NewChecker(connectivity.Config{BaseURL: cfg.GitHubBaseURL})
	if err := checker.VerifyConnectivity(); err != nil {
		log.Fatalf("GitHub API is not reachable: %v", err)
	}

	s, err := initializeScanner(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize scanner: %v", err)
	}

	result, err := s.ScanOrganization(context.Background(), cfg.GitHubOrganization)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	// A failing sink is an operator problem, not a scan problem: the
	// remaining publishers still get the in-memory result, and finding
	// FAILING repositories is never a program error.
	publishAll(cfg, result)

	logrus.WithFields(logrus.Fields{
		"failing": result.Summary.FailingRepos,
		"total":   result.Summary.TotalRepos,
	}).Info("CodeQL coverage scan completed")
	os.Exit(0)
}

func initializeConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initializeScanner(cfg *config.Config) (*scanner.Scanner, error) {
	var exclusions *exclusion.Set
	if cfg.ExclusionFile != "" {
		var err error
		exclusions, err = exclusion.LoadFile(cfg.ExclusionFile)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"file":  cfg.ExclusionFile,
			"count": exclusions.Len(),
		}).Info("Loaded repository exclusion list")
	}

	return scanner.NewScanner(scanner.Options{
		Token:           cfg.GitHubToken,
		BaseURL:         cfg.GitHubBaseURL,
		ConcurrentScans: cfg.ConcurrentScans,
		RunWindow:       cfg.RunWindow,
		RequestTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
		Exclusions:      exclusions,
		ClassifierMode:  cfg.ClassifierMode,
	})
}

func publishAll(cfg *config.Config, result *models.ScanResult) {
	factory := publisher.NewPublisherFactory()
	publisherConfig := map[string]string{
		"jsonOutputPath":     cfg.JSONOutputPath,
		"csvOutputPath":      cfg.CSVOutputPath,
		"slackWebhookURL":    cfg.SlackWebhookURL,
		"githubOrganization": cfg.GitHubOrganization,
	}

	for _, name := range cfg.Publishers {
		p, err := factory.CreatePublisher(name, publisherConfig)
		if err != nil {
			logrus.WithError(err).WithField("publisher", name).Error("Failed to create publisher")
			continue
		}
		if err := p.PublishScanResult(result); err != nil {
			logrus.WithError(err).WithField("publisher", p.GetName()).Error("Failed to publish scan result")
		}
	}
}
