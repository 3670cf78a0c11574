package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/internal/config"
)

// Session owns one Chrome process and the chromedp contexts bound to it.
// A session serves exactly one wizard run and is closed afterwards.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	logger  *zap.Logger
}

// NewSession launches Chrome with the flags the government site tolerates
// and returns a session whose context drives all executor calls.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch failures surface here rather
	// than on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Info("Browser session started.",
		zap.Bool("headless", cfg.Headless),
		zap.Int("width", cfg.WindowWidth),
		zap.Int("height", cfg.WindowHeight))

	return &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		logger:  logger,
	}, nil
}

// Context returns the chromedp context executor calls must run under.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Close tears the browser down. Cancelling the chromedp context terminates
// Chrome; the allocator cancel reaps the process if termination hangs.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.logger.Info("Browser session closed.")
}
