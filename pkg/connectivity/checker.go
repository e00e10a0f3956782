package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds configuration for the connectivity checker
type Config struct {
	// BaseURL is the GitHub API root to check. Empty means github.com.
	BaseURL string

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// RetryInterval is the duration to wait between retries in seconds
	RetryInterval int

	// Timeout is the timeout for each connection attempt in seconds
	Timeout int
}

// Checker verifies that the GitHub API is reachable before a scan
// starts. An unreachable API is a fatal condition for the host
// program, unlike per-repository fetch errors during the scan.
type Checker struct {
	config Config
	client *http.Client
}

// NewChecker creates a new connectivity checker with the provided configuration
func NewChecker(config Config) *Checker {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 5
	}

	return &Checker{
		config: config,
		client: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}
}

// metaURL returns the meta endpoint for the configured API root:
// api.github.com/meta for github.com, <host>/api/v3/meta for GHES.
func (c *Checker) metaURL() (string, error) {
	if c.config.BaseURL == "" {
		return "https://api.github.com/meta", nil
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid GitHub base URL: %w", err)
	}
	if strings.HasSuffix(baseURL.Path, "/api/v3") {
		return fmt.Sprintf("%s://%s%s/meta", baseURL.Scheme, baseURL.Host, baseURL.Path), nil
	}
	return fmt.Sprintf("%s://%s/api/v3/meta", baseURL.Scheme, baseURL.Host), nil
}

// VerifyConnectivity checks if the GitHub API is reachable
// Returns nil if connectivity is successful, otherwise returns an error
func (c *Checker) VerifyConnectivity() error {
	logrus.Info("Starting GitHub API connectivity check")

	apiURL, err := c.metaURL()
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"url":     apiURL,
		}).Debug("Attempting to connect to GitHub API")

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.config.Timeout)*time.Second)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		cancel()
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				logrus.Info("Successfully connected to GitHub API")
				return nil
			}
			logrus.WithField("statusCode", resp.StatusCode).Warn("Received non-success status code")
		} else {
			logrus.WithError(err).Warn("Connection attempt failed")
		}

		if attempt < c.config.MaxRetries {
			sleepDuration := time.Duration(c.config.RetryInterval) * time.Second
			logrus.WithField("retryIn", sleepDuration.String()).Debug("Retrying connection")
			time.Sleep(sleepDuration)
		}
	}

	return fmt.Errorf("failed to connect to GitHub API after %d attempts", c.config.MaxRetries)
}
