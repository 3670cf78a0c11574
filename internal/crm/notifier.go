package crm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/config"
)

// StatusPendingConfirmation marks a run paused on the review page waiting
// for the upstream proceed/abort decision.
const StatusPendingConfirmation schemas.RunStatus = "Pending Confirmation"

// Notifier posts completion and review notices to the CRM callback
// endpoint with bounded retries. Delivery failures are reported to the
// caller but are expected to be logged, not to change the run outcome.
type Notifier struct {
	cfg    config.CallbackConfig
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewNotifier builds a notifier over a retrying HTTP client.
func NewNotifier(cfg config.CallbackConfig, logger *zap.Logger) *Notifier {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil
	return &Notifier{cfg: cfg, client: client, logger: logger}
}

// Enabled reports whether a callback endpoint is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.URL != ""
}

func (n *Notifier) post(ctx context.Context, notice schemas.CompletionNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode completion notice: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("callback endpoint returned %s", resp.Status)
	}
	return nil
}

// NotifyCompletion reports the terminal status of a run.
func (n *Notifier) NotifyCompletion(ctx context.Context, result schemas.RunResult) error {
	if !n.Enabled() {
		return nil
	}
	notice := schemas.CompletionNotice{
		FormID:     result.RecordID,
		Status:     result.Status,
		Message:    result.Message,
		Screenshot: result.Screenshot,
		ReportedAt: time.Now().UTC(),
	}
	if err := n.post(ctx, notice); err != nil {
		return err
	}
	n.logger.Info("Completion notice delivered.",
		zap.String("record_id", result.RecordID), zap.String("status", string(result.Status)))
	return nil
}

// NotifyReview transmits the pre-submit review screenshot so a human can
// issue the confirmation decision. Satisfies the wizard's ReviewNotifier.
func (n *Notifier) NotifyReview(ctx context.Context, recordID string, screenshot []byte) error {
	if !n.Enabled() {
		return nil
	}
	notice := schemas.CompletionNotice{
		FormID:     recordID,
		Status:     StatusPendingConfirmation,
		Message:    "Application is on the final review page awaiting confirmation",
		Screenshot: base64.StdEncoding.EncodeToString(screenshot),
		ReportedAt: time.Now().UTC(),
	}
	return n.post(ctx, notice)
}
