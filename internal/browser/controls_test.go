package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/internal/config"
)

// fakeExecutor records calls and serves scripted responses; it never
// touches a real browser.
type fakeExecutor struct {
	calls []string

	values     map[string]string // Value responses per selector
	evalBools  map[string]bool   // Evaluate responses keyed by expr substring
	failClicks int               // first n Click calls fail
	failWait   bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{values: map[string]string{}, evalBools: map[string]bool{}}
}

func (f *fakeExecutor) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeExecutor) Navigate(_ context.Context, url string) error {
	f.record("navigate " + url)
	return nil
}

func (f *fakeExecutor) WaitVisible(_ context.Context, sel string) error {
	f.record("wait " + sel)
	if f.failWait {
		return errors.New("not visible")
	}
	return nil
}

func (f *fakeExecutor) Click(_ context.Context, sel string) error {
	f.record("click " + sel)
	if f.failClicks > 0 {
		f.failClicks--
		return errors.New("element not interactable")
	}
	return nil
}

func (f *fakeExecutor) Clear(_ context.Context, sel string) error {
	f.record("clear " + sel)
	return nil
}

func (f *fakeExecutor) SendKeys(_ context.Context, sel, value string) error {
	f.record("type " + sel + "=" + value)
	f.values[sel] = value
	return nil
}

func (f *fakeExecutor) Value(_ context.Context, sel string) (string, error) {
	f.record("value " + sel)
	return f.values[sel], nil
}

func (f *fakeExecutor) Evaluate(_ context.Context, expr string, res any) error {
	f.record("eval")
	if b, ok := res.(*bool); ok {
		for substr, v := range f.evalBools {
			if strings.Contains(expr, substr) {
				*b = v
				return nil
			}
		}
		*b = false
	}
	return nil
}

func (f *fakeExecutor) Screenshot(context.Context) ([]byte, error) {
	f.record("screenshot")
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (f *fakeExecutor) Sleep(context.Context, time.Duration) error { return nil }

func (f *fakeExecutor) clickCount(sel string) int {
	n := 0
	for _, c := range f.calls {
		if c == "click "+sel {
			n++
		}
	}
	return n
}

func testControls(exec Executor) *Controls {
	cfg := config.BrowserConfig{
		StepPause:       time.Millisecond,
		ClickRetries:    2,
		ClickRetryPause: time.Millisecond,
		StepTimeout:     5 * time.Second,
	}
	return NewControls(exec, cfg, zap.NewNop())
}

func TestFillTypesAndVerifies(t *testing.T) {
	exec := newFakeExecutor()
	c := testControls(exec)

	err := c.Fill(context.Background(), "#numbermem", "2", "LLC Members")
	require.NoError(t, err)

	assert.Contains(t, exec.calls, "wait #numbermem")
	assert.Contains(t, exec.calls, "click #numbermem")
	assert.Contains(t, exec.calls, "clear #numbermem")
	assert.Contains(t, exec.calls, "type #numbermem=2")
	assert.Contains(t, exec.calls, "value #numbermem")
}

func TestFillFailsWhenFieldNotVisible(t *testing.T) {
	exec := newFakeExecutor()
	exec.failWait = true
	c := testControls(exec)

	err := c.Fill(context.Background(), "#missing", "x", "Missing")
	assert.Error(t, err)
}

func TestClickRetriesThenSucceeds(t *testing.T) {
	exec := newFakeExecutor()
	exec.failClicks = 2
	c := testControls(exec)

	err := c.Click(context.Background(), "input[value='Continue >>']", "Continue")
	require.NoError(t, err)
	assert.Equal(t, 3, exec.clickCount("input[value='Continue >>']"))
}

func TestClickExhaustsRetries(t *testing.T) {
	exec := newFakeExecutor()
	exec.failClicks = 10
	c := testControls(exec)

	err := c.Click(context.Background(), "#btn", "Button")
	assert.Error(t, err)
	// ClickRetries=2 means three attempts total.
	assert.Equal(t, 3, exec.clickCount("#btn"))
}

func TestSelectRadioScriptedPathSkipsClick(t *testing.T) {
	exec := newFakeExecutor()
	exec.evalBools["el.checked"] = true
	c := testControls(exec)

	err := c.SelectRadio(context.Background(), "radio_n", "radio_n option")
	require.NoError(t, err)
	assert.Zero(t, exec.clickCount("#radio_n"))
}

func TestSelectRadioFallsBackToClick(t *testing.T) {
	exec := newFakeExecutor()
	// Scripted verification reports unchecked, forcing the click path.
	c := testControls(exec)

	err := c.SelectRadio(context.Background(), "iamsole", "iamsole option")
	require.NoError(t, err)
	assert.Equal(t, 1, exec.clickCount("#iamsole"))
}

func TestSelectOption(t *testing.T) {
	exec := newFakeExecutor()
	exec.evalBools["el.options.length"] = true
	c := testControls(exec)

	err := c.SelectOption(context.Background(), "#state", "TX", "State")
	require.NoError(t, err)
}

func TestSelectOptionMissingValue(t *testing.T) {
	exec := newFakeExecutor()
	c := testControls(exec)

	err := c.SelectOption(context.Background(), "#state", "ZZ", "State")
	assert.Error(t, err)
}

func TestNavigateSuppressesPopups(t *testing.T) {
	exec := newFakeExecutor()
	c := testControls(exec)

	require.NoError(t, c.Navigate(context.Background(), "https://example.gov/wizard"))
	assert.Equal(t, "navigate https://example.gov/wizard", exec.calls[0])
	assert.Contains(t, exec.calls, "eval")
}
