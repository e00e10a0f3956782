package slack

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/prashnth19/codeql-health-scanner/pkg/models"
)

// Slack allows at most 50 blocks per message; the failing list is
// capped below that to leave room for the header and summary.
const maxFailingBlocks = 40

// WebhookPublisher notifies a Slack channel about failing CodeQL
// scans. It only delivers when at least one repository resolved to
// FAILING; a healthy scan publishes nothing.
type WebhookPublisher struct {
	webhookURL   string
	organization string
	postWebhook  func(url string, msg *slack.WebhookMessage) error
}

func NewWebhookPublisher(webhookURL, organization string) *WebhookPublisher {
	return &WebhookPublisher{
		webhookURL:   webhookURL,
		organization: organization,
		postWebhook:  slack.PostWebhook,
	}
}

func (p *WebhookPublisher) PublishScanResult(result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("cannot publish nil scan result")
	}
	if p.webhookURL == "" {
		return fmt.Errorf("invalid configuration: missing Slack webhook URL")
	}

	if !result.HasFailures() {
		logrus.WithField("organization", p.organization).Info("No failing repositories, skipping Slack notification")
		return nil
	}

	msg := &slack.WebhookMessage{
		Text:   fmt.Sprintf("CodeQL scan failures in %s", p.organization),
		Blocks: &slack.Blocks{BlockSet: p.createMessageBlocks(result)},
	}

	if err := p.postWebhook(p.webhookURL, msg); err != nil {
		return fmt.Errorf("failed to send Slack webhook: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"organization": p.organization,
		"failing":      result.Summary.FailingRepos,
	}).Info("Sent Slack notification for failing repositories")
	return nil
}

func (p *WebhookPublisher) createMessageBlocks(result *models.ScanResult) []slack.Block {
	s := result.Summary

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text",
			fmt.Sprintf("CodeQL Health: %s", p.organization), false, false)),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Scan Summary*\n"+
					"• Total Repositories: %d\n"+
					"• Scanned: %d (OK %d, Failing %d, No CodeQL %d)\n"+
					"• Excluded: %d",
					s.TotalRepos, s.ScannedRepos, s.OKRepos, s.FailingRepos, s.NoCodeQLRepos, s.ExcludedRepos),
				false, false),
			nil, nil,
		),
		slack.NewDividerBlock(),
	}

	added := 0
	for _, repo := range result.Repositories {
		if repo.Status != models.StatusFailing {
			continue
		}
		if added == maxFailingBlocks {
			blocks = append(blocks, slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType,
					fmt.Sprintf("…and %d more failing repositories", s.FailingRepos-added), false, false),
				nil, nil,
			))
			break
		}
		blocks = append(blocks, p.createFailingRow(repo))
		added++
	}

	return blocks
}

func (p *WebhookPublisher) createFailingRow(repo models.RepoResult) slack.Block {
	var mdText strings.Builder
	mdText.WriteString(fmt.Sprintf("*%s* — %d of %d CodeQL workflows failing", repo.RepoName, repo.FailingWorkflows, repo.CodeQLWorkflows))
	if repo.FailureURL != "" {
		mdText.WriteString(fmt.Sprintf("\n<%s|View failing run>", repo.FailureURL))
	}

	return slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, mdText.String(), false, false),
		nil, nil,
	)
}

func (p *WebhookPublisher) GetName() string {
	return "slack-webhook"
}
