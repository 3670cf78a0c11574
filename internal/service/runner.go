// Package service hosts the HTTP API and orchestrates wizard runs: one
// browser session per request, driven serially and torn down before the
// response returns.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/browser"
	"github.com/entityops/einfiler/internal/config"
	"github.com/entityops/einfiler/internal/extract"
	"github.com/entityops/einfiler/internal/wizard"
)

// SessionFactory opens a fresh browser session and returns its control
// surface plus a teardown func. Swapped out in tests.
type SessionFactory func(ctx context.Context) (wizard.Controls, func(), error)

// ChromeSessionFactory launches a real Chrome per run.
func ChromeSessionFactory(cfg config.BrowserConfig, logger *zap.Logger) SessionFactory {
	return func(ctx context.Context) (wizard.Controls, func(), error) {
		session, err := browser.NewSession(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		controls := browser.NewControls(browser.NewCDPExecutor(), cfg, logger)
		return sessionControls{Controls: controls, ctx: session.Context()}, session.Close, nil
	}
}

// sessionControls pins every primitive to the session's chromedp context;
// the request context still bounds each step via the step timeout.
type sessionControls struct {
	*browser.Controls
	ctx context.Context
}

func (s sessionControls) Navigate(_ context.Context, url string) error {
	return s.Controls.Navigate(s.ctx, url)
}
func (s sessionControls) SuppressPopups(context.Context) { s.Controls.SuppressPopups(s.ctx) }
func (s sessionControls) Fill(_ context.Context, sel, value, label string) error {
	return s.Controls.Fill(s.ctx, sel, value, label)
}
func (s sessionControls) Click(_ context.Context, sel, label string) error {
	return s.Controls.Click(s.ctx, sel, label)
}
func (s sessionControls) SelectRadio(_ context.Context, id, label string) error {
	return s.Controls.SelectRadio(s.ctx, id, label)
}
func (s sessionControls) SelectOption(_ context.Context, sel, value, label string) error {
	return s.Controls.SelectOption(s.ctx, sel, value, label)
}
func (s sessionControls) Blur(_ context.Context, sel string) { s.Controls.Blur(s.ctx, sel) }
func (s sessionControls) Screenshot(context.Context) ([]byte, error) {
	return s.Controls.Screenshot(s.ctx)
}
func (s sessionControls) WaitVisible(_ context.Context, sel string) error {
	return s.Controls.WaitVisible(s.ctx, sel)
}

// CompletionNotifier reports run outcomes upstream.
type CompletionNotifier interface {
	wizard.ReviewNotifier
	NotifyCompletion(ctx context.Context, result schemas.RunResult) error
}

// Artifact writes the per-run debug export.
type Artifact interface {
	Export(f extract.Fields) (string, error)
}

// RunStore persists run history; nil disables persistence.
type RunStore interface {
	SaveRun(ctx context.Context, result schemas.RunResult) error
}

// Runner executes one wizard traversal per case record.
type Runner struct {
	cfg       *config.Config
	logger    *zap.Logger
	sessions  SessionFactory
	confirmer wizard.Confirmer
	notifier  CompletionNotifier
	artifact  Artifact
	history   RunStore
}

// NewRunner wires the run pipeline. confirmer, notifier, artifact, and
// history may each be nil when the matching feature is disabled.
func NewRunner(cfg *config.Config, logger *zap.Logger, sessions SessionFactory,
	confirmer wizard.Confirmer, notifier CompletionNotifier, artifact Artifact, history RunStore) *Runner {
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		confirmer: confirmer,
		notifier:  notifier,
		artifact:  artifact,
		history:   history,
	}
}

// Execute runs the wizard for one record. It always returns a terminal
// RunResult; failures are encoded in its status, never panics or partial
// states.
func (r *Runner) Execute(ctx context.Context, record schemas.CaseRecord) schemas.RunResult {
	result := schemas.RunResult{
		RunID:     uuid.NewString(),
		RecordID:  record.RecordID,
		StartedAt: time.Now().UTC(),
	}
	logger := r.logger.With(zap.String("run_id", result.RunID), zap.String("record_id", record.RecordID))

	fields := extract.Resolve(record, logger)

	if r.artifact != nil {
		if _, err := r.artifact.Export(fields); err != nil {
			logger.Warn("Failed to write debug artifact.", zap.Error(err))
		}
	}

	controls, closeSession, err := r.sessions(ctx)
	if err != nil {
		logger.Error("Failed to start browser session.", zap.Error(err))
		r.finish(ctx, &result, schemas.StatusFailed, "failed to start browser: "+err.Error(), logger)
		return result
	}
	defer closeSession()

	var reviewNotifier wizard.ReviewNotifier
	if r.notifier != nil {
		reviewNotifier = r.notifier
	}
	driver := wizard.NewDriver(controls, r.cfg.Wizard, logger, r.confirmer, reviewNotifier)

	outcome, err := driver.Run(ctx, fields)
	switch {
	case err == nil:
		if len(outcome.Screenshot) > 0 {
			result.Screenshot = base64.StdEncoding.EncodeToString(outcome.Screenshot)
		}
		r.finish(ctx, &result, schemas.StatusCompleted, outcome.Message, logger)
	case errors.Is(err, wizard.ErrConfirmationTimeout):
		r.finish(ctx, &result, schemas.StatusTimedOut, err.Error(), logger)
	default:
		r.finish(ctx, &result, schemas.StatusFailed, err.Error(), logger)
	}

	return result
}

// finish stamps the terminal state and fans it out to the callback and the
// run store. A failing fan-out does not change the already-determined
// outcome, with one exception: in confirmation mode the upstream depends on
// the status callback to act, so a delivery failure fails the run.
func (r *Runner) finish(ctx context.Context, result *schemas.RunResult, status schemas.RunStatus, message string, logger *zap.Logger) {
	result.Status = status
	result.Message = message
	result.FinishedAt = time.Now().UTC()

	logger.Info("Run finished.",
		zap.String("status", string(status)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))

	if r.notifier != nil {
		if err := r.notifier.NotifyCompletion(ctx, *result); err != nil {
			logger.Error("Failed to deliver completion notice.", zap.Error(err))
			if r.cfg.Wizard.ConfirmationEnabled {
				result.Status = schemas.StatusFailed
				result.Message = "failed to deliver completion notice: " + err.Error()
			}
		}
	}
	if r.history != nil {
		if err := r.history.SaveRun(ctx, *result); err != nil {
			logger.Error("Failed to persist run history.", zap.Error(err))
		}
	}
}
