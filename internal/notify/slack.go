// Package notify delivers comparison outcomes to Slack incoming webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/config"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Slack rejects messages with more than 50 blocks.
const maxDetailBlocks = 40

// SlackNotifier posts reports to a Slack incoming webhook.
type SlackNotifier struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        config.SlackConfig
	retryOpts  common.RetryOptions
}

// NewSlackNotifier creates a notifier from the slack configuration.
func NewSlackNotifier(cfg config.SlackConfig, logger *slog.Logger) (*SlackNotifier, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("%w: notifications.slack.webhook_url", common.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SlackNotifier{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryOpts: common.RetryOptions{
			Logger:       logger,
			MaxAttempts:  cfg.MaxRetries + 1,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// ShouldNotify decides whether report is worth a message under the
// configured rules.
func (n *SlackNotifier) ShouldNotify(report *model.ComparisonReport) bool {
	if report == nil {
		return false
	}

	if n.cfg.NotifyMissingItems && report.Count(model.KindMissingItem) > 0 {
		return true
	}

	quantityIssues := report.Count(model.KindQuantityMismatch) + report.Count(model.KindPartialDelivery)
	if n.cfg.NotifyQuantityMismatches && quantityIssues > 0 &&
		report.Summary.TotalQuantityDifference.GreaterThanOrEqual(n.cfg.QuantityThreshold) {
		return true
	}

	if n.cfg.NotifyPriceDiscrepancies && report.Count(model.KindPriceMismatch) > 0 &&
		report.Summary.TotalPriceDifference.GreaterThanOrEqual(n.cfg.PriceThreshold) {
		return true
	}

	if n.cfg.NotifyExtraItems && len(report.Extras) > 0 {
		return true
	}

	return n.cfg.NotifySuccessfulComparisons && !report.HasDiscrepancies()
}

// Notify posts report if the rules ask for it. It reports whether a message
// was sent.
func (n *SlackNotifier) Notify(ctx context.Context, report *model.ComparisonReport) (bool, error) {
	if report == nil {
		return false, nil
	}
	if !n.ShouldNotify(report) {
		n.logger.Debug("No notification needed", "report_id", report.ID)
		return false, nil
	}

	if err := n.post(ctx, n.reportMessage(report)); err != nil {
		return false, fmt.Errorf("failed to send comparison results: %w", err)
	}

	n.logger.Info("Sent comparison results to Slack", "report_id", report.ID, "offer_id", report.OfferID)
	return true, nil
}

// NotifyError posts an error alert. Details are shown as a code block.
func (n *SlackNotifier) NotifyError(ctx context.Context, message, details string) error {
	blocks := []block{
		header("❌ Error Alert"),
		section("*Error:* " + message),
	}
	if details != "" {
		blocks = append(blocks, section("*Details:*\n```"+details+"```"))
	}

	if err := n.post(ctx, slackMessage{Channel: n.cfg.Channel, Text: "Error: " + message, Blocks: blocks}); err != nil {
		return fmt.Errorf("failed to send error notification: %w", err)
	}
	return nil
}

func (n *SlackNotifier) post(ctx context.Context, msg slackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return common.WithRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return common.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return common.Permanent(err)
			}
			return common.Transient(fmt.Errorf("%w: %w", common.ErrWebhookFailed, err), 0)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		failure := fmt.Errorf("%w (status %d): %s", common.ErrWebhookFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return common.Transient(fmt.Errorf("%w: %w", failure, common.ErrRateLimit), retryAfter(resp.Header))
		case resp.StatusCode >= http.StatusInternalServerError:
			return common.Transient(failure, 0)
		default:
			return common.Permanent(failure)
		}
	}, n.retryOpts)
}

// retryAfter reads a Retry-After header given in seconds. Slack does not
// send the HTTP-date form.
func retryAfter(h http.Header) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
