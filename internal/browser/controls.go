package browser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/entityops/einfiler/internal/config"
)

// suppressDialogsJS replaces the four native dialog producers with no-ops.
// A dialog in headless mode blocks the tab forever, so any answer is
// better than waiting for one.
const suppressDialogsJS = `
window.alert = function() { return true; };
window.confirm = function() { return true; };
window.prompt = function() { return null; };
window.open = function() { return null; };
`

// noThanksJS clicks a "No thanks" survey invitation if one is showing.
// Returns whether a button was found.
const noThanksJS = `(function() {
	var buttons = document.querySelectorAll('button');
	for (var i = 0; i < buttons.length; i++) {
		if (buttons[i].textContent.indexOf('No thanks') !== -1) {
			buttons[i].click();
			return true;
		}
	}
	return false;
})()`

// Controls bundles the executor with the pacing knobs and exposes the
// idempotent form primitives the wizard driver is written in terms of.
type Controls struct {
	exec   Executor
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// NewControls builds the primitive set over an executor.
func NewControls(exec Executor, cfg config.BrowserConfig, logger *zap.Logger) *Controls {
	return &Controls{exec: exec, cfg: cfg, logger: logger}
}

// Navigate loads the URL and immediately neutralizes any dialogs the new
// document may raise.
func (c *Controls) Navigate(ctx context.Context, url string) error {
	if err := c.exec.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	c.SuppressPopups(ctx)
	return nil
}

// SuppressPopups dismisses any pending native dialog, clicks a "No thanks"
// prompt when present, and overrides the dialog functions so later ones
// cannot block. Safe to call redundantly at every page boundary.
func (c *Controls) SuppressPopups(ctx context.Context) {
	var clicked bool
	if err := c.exec.Evaluate(ctx, noThanksJS, &clicked); err == nil && clicked {
		c.logger.Debug("Dismissed a 'No thanks' prompt.")
	}
	if err := c.exec.Evaluate(ctx, suppressDialogsJS, nil); err != nil {
		c.logger.Debug("Failed to install dialog overrides.", zap.Error(err))
	}
}

// scrollIntoView centers the first selector match in the viewport so a
// subsequent click lands inside it.
func (c *Controls) scrollIntoView(ctx context.Context, sel string) {
	expr := fmt.Sprintf(
		`(function() { var el = document.querySelector(%q); if (el) el.scrollIntoView({behavior: 'auto', block: 'center'}); })()`, sel)
	if err := c.exec.Evaluate(ctx, expr, nil); err != nil {
		c.logger.Debug("Failed to scroll element into view.", zap.String("selector", sel), zap.Error(err))
	}
}

// Fill sets an input's value by clicking, clearing, and typing, then reads
// the value back for the log. The read-back is diagnostic only; a mismatch
// does not fail the step.
func (c *Controls) Fill(ctx context.Context, sel, value, label string) error {
	c.logger.Info("Filling field.", zap.String("label", label), zap.String("value", value))

	if err := c.exec.WaitVisible(ctx, sel); err != nil {
		return fmt.Errorf("field %s (%s) not visible: %w", label, sel, err)
	}
	c.scrollIntoView(ctx, sel)
	_ = c.exec.Sleep(ctx, c.cfg.StepPause)

	if err := c.exec.Click(ctx, sel); err != nil {
		return fmt.Errorf("failed to focus %s: %w", label, err)
	}
	if err := c.exec.Clear(ctx, sel); err != nil {
		return fmt.Errorf("failed to clear %s: %w", label, err)
	}
	if err := c.exec.SendKeys(ctx, sel, value); err != nil {
		return fmt.Errorf("failed to type into %s: %w", label, err)
	}

	if filled, err := c.exec.Value(ctx, sel); err == nil {
		c.logger.Info("Field verified.", zap.String("label", label), zap.String("value", filled))
	}
	return nil
}

// Click presses a button, retrying transient non-interactability. Each
// successful click is followed by a settle pause and popup suppression.
func (c *Controls) Click(ctx context.Context, sel, label string) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.ClickRetries; attempt++ {
		if attempt > 0 {
			_ = c.exec.Sleep(ctx, c.cfg.ClickRetryPause)
		}
		if err := c.exec.WaitVisible(ctx, sel); err != nil {
			lastErr = err
			continue
		}
		c.scrollIntoView(ctx, sel)
		_ = c.exec.Sleep(ctx, c.cfg.StepPause)
		if err := c.exec.Click(ctx, sel); err != nil {
			lastErr = err
			continue
		}
		c.logger.Info("Clicked.", zap.String("label", label))
		_ = c.exec.Sleep(ctx, c.cfg.ClickRetryPause)
		c.SuppressPopups(ctx)
		return nil
	}
	return fmt.Errorf("failed to click %s (%s) after %d attempts: %w",
		label, sel, c.cfg.ClickRetries+1, lastErr)
}

// SelectRadio checks a radio input by id, scripted first and verified, with
// a real click as fallback when the scripted check does not stick.
func (c *Controls) SelectRadio(ctx context.Context, id, label string) error {
	set := fmt.Sprintf(`(function() { var el = document.getElementById(%q); if (el) el.checked = true; })()`, id)
	if err := c.exec.Evaluate(ctx, set, nil); err == nil {
		var checked bool
		verify := fmt.Sprintf(`(function() { var el = document.getElementById(%q); return !!(el && el.checked); })()`, id)
		if err := c.exec.Evaluate(ctx, verify, &checked); err == nil && checked {
			c.logger.Info("Selected radio via script.", zap.String("label", label))
			_ = c.exec.Sleep(ctx, c.cfg.StepPause)
			c.SuppressPopups(ctx)
			return nil
		}
	}

	sel := "#" + id
	if err := c.exec.WaitVisible(ctx, sel); err != nil {
		return fmt.Errorf("radio %s (%s) not visible: %w", label, id, err)
	}
	c.scrollIntoView(ctx, sel)
	if err := c.exec.Click(ctx, sel); err != nil {
		return fmt.Errorf("failed to select radio %s: %w", label, err)
	}
	c.logger.Info("Selected radio by clicking.", zap.String("label", label))
	_ = c.exec.Sleep(ctx, c.cfg.ClickRetryPause)
	c.SuppressPopups(ctx)
	return nil
}

// SelectOption picks a dropdown entry by option value, then by visible
// text, then by a scripted assignment that fires the change event the
// page listens for.
func (c *Controls) SelectOption(ctx context.Context, sel, value, label string) error {
	if err := c.exec.WaitVisible(ctx, sel); err != nil {
		return fmt.Errorf("select %s (%s) not visible: %w", label, sel, err)
	}
	c.scrollIntoView(ctx, sel)
	_ = c.exec.Sleep(ctx, c.cfg.StepPause)

	expr := fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		if (!el) return false;
		var pick = function(i) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		};
		for (var i = 0; i < el.options.length; i++) {
			if (el.options[i].value === %q) return pick(i);
		}
		for (var i = 0; i < el.options.length; i++) {
			if (el.options[i].text.trim() === %q) return pick(i);
		}
		el.value = %q;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return el.value === %q;
	})()`, sel, value, value, value, value)

	var selected bool
	if err := c.exec.Evaluate(ctx, expr, &selected); err != nil {
		return fmt.Errorf("failed to select option %q for %s: %w", value, label, err)
	}
	if !selected {
		return fmt.Errorf("option %q not present in %s (%s)", value, label, sel)
	}
	c.logger.Info("Selected option.", zap.String("label", label), zap.String("value", value))
	c.SuppressPopups(ctx)
	return nil
}

// Blur removes focus from an input, committing values the page validates
// on blur (the formation-year field does this).
func (c *Controls) Blur(ctx context.Context, sel string) {
	expr := fmt.Sprintf(`(function() { var el = document.querySelector(%q); if (el) el.blur(); })()`, sel)
	if err := c.exec.Evaluate(ctx, expr, nil); err != nil {
		c.logger.Debug("Failed to blur element.", zap.String("selector", sel), zap.Error(err))
	}
}

// Screenshot captures the current page for the run result.
func (c *Controls) Screenshot(ctx context.Context) ([]byte, error) {
	return c.exec.Screenshot(ctx)
}

// WaitVisible exposes the executor's visibility wait for page anchors.
func (c *Controls) WaitVisible(ctx context.Context, sel string) error {
	return c.exec.WaitVisible(ctx, sel)
}

// StepTimeout bounds one wizard step.
func (c *Controls) StepTimeout() time.Duration {
	return c.cfg.StepTimeout
}
