// Package browser wraps chromedp behind a small executor interface and
// builds the retrying form-control primitives the wizard driver uses.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Executor defines the contract for external browser interactions,
// allowing for mocking during tests. Selectors are CSS.
type Executor interface {
	// Navigate loads a URL and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, sel string) error

	// Click dispatches a click on the first matching element.
	Click(ctx context.Context, sel string) error

	// Clear empties the value of the first matching input.
	Clear(ctx context.Context, sel string) error

	// SendKeys types the value into the first matching input.
	SendKeys(ctx context.Context, sel, value string) error

	// Value reads back the current value of the first matching input.
	Value(ctx context.Context, sel string) (string, error)

	// Evaluate runs a JavaScript expression; res may be nil when the
	// result is irrelevant.
	Evaluate(ctx context.Context, expr string, res any) error

	// Screenshot captures the full page as PNG bytes, including content
	// below the fold.
	Screenshot(ctx context.Context) ([]byte, error)

	// Sleep pauses execution for a given duration (context-aware).
	Sleep(ctx context.Context, d time.Duration) error
}

// CDPExecutor is the production implementation of the Executor interface.
// It wraps the real chromedp library calls.
type CDPExecutor struct{}

// NewCDPExecutor creates a new production-ready executor.
func NewCDPExecutor() *CDPExecutor {
	return &CDPExecutor{}
}

func (e *CDPExecutor) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (e *CDPExecutor) WaitVisible(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (e *CDPExecutor) Click(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

func (e *CDPExecutor) Clear(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.Clear(sel, chromedp.ByQuery))
}

func (e *CDPExecutor) SendKeys(ctx context.Context, sel, value string) error {
	return chromedp.Run(ctx, chromedp.SendKeys(sel, value, chromedp.ByQuery))
}

func (e *CDPExecutor) Value(ctx context.Context, sel string) (string, error) {
	var value string
	err := chromedp.Run(ctx, chromedp.Value(sel, &value, chromedp.ByQuery))
	return value, err
}

func (e *CDPExecutor) Evaluate(ctx context.Context, expr string, res any) error {
	return chromedp.Run(ctx, chromedp.Evaluate(expr, res))
}

func (e *CDPExecutor) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		// The review page is taller than the viewport; capture all of it so
		// the reviewer sees every entered value.
		b, err := page.CaptureScreenshot().WithCaptureBeyondViewport(true).Do(ctx)
		if err != nil {
			return err
		}
		buf = b
		return nil
	}))
	return buf, err
}

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return chromedp.Run(ctx, chromedp.Sleep(d))
}
