package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	GitHubToken        string
	GitHubOrganization string
	GitHubBaseURL      string
	LogLevel           string
	RequestTimeout     int
	ConcurrentScans    int
	RunWindow          int
	ClassifierMode     string
	ExclusionFile      string
	Publishers         []string
	JSONOutputPath     string
	CSVOutputPath      string
	SlackWebhookURL    string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	var err error

	cfg.GitHubToken, err = getEnv("GITHUB_TOKEN", true)
	if err != nil {
		return nil, err
	}

	cfg.GitHubOrganization, err = getEnv("GITHUB_ORGANIZATION", true)
	if err != nil {
		return nil, err
	}

	// Empty base URL means github.com. GHES URLs are normalized to
	// their /api/v3 root.
	if baseURL := os.Getenv("GITHUB_BASE_URL"); baseURL != "" {
		if !strings.HasSuffix(baseURL, "/api/v3") {
			baseURL = strings.TrimSuffix(baseURL, "/") + "/api/v3"
		}
		cfg.GitHubBaseURL = baseURL
	}

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getIntEnvWithDefault("REQUEST_TIMEOUT", 30)
	cfg.ConcurrentScans = getIntEnvWithDefault("CONCURRENT_SCANS", 5)
	cfg.RunWindow = getIntEnvWithDefault("RUN_WINDOW", 10)

	cfg.ClassifierMode = getEnvWithDefault("CLASSIFIER_MODE", "name")
	if cfg.ClassifierMode != "name" && cfg.ClassifierMode != "content" {
		return nil, fmt.Errorf("CLASSIFIER_MODE must be \"name\" or \"content\", got %q", cfg.ClassifierMode)
	}

	cfg.ExclusionFile = os.Getenv("EXCLUDE_FILE")

	for _, p := range strings.Split(getEnvWithDefault("PUBLISHERS", "console"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Publishers = append(cfg.Publishers, p)
		}
	}
	if len(cfg.Publishers) == 0 {
		return nil, fmt.Errorf("PUBLISHERS must name at least one publisher")
	}

	cfg.JSONOutputPath = os.Getenv("JSON_OUTPUT_PATH")
	cfg.CSVOutputPath = os.Getenv("CSV_OUTPUT_PATH")
	cfg.SlackWebhookURL = os.Getenv("SLACK_WEBHOOK_URL")

	return cfg, nil
}

func getEnv(key string, required bool) (string, error) {
	value := os.Getenv(key)
	if value == "" && required {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
			return value
		}
	}
	return defaultValue
}
