package fill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrunner/internal/browser"
	"formrunner/internal/form"
)

var placeholders = []string{"select", "choose", "--", "please"}

func opts(texts ...string) []form.Option {
	out := make([]form.Option, len(texts))
	for i, t := range texts {
		out[i] = form.Option{Value: t, Text: t, Index: i}
	}
	return out
}

func TestChooseOptionTierOrder(t *testing.T) {
	options := []form.Option{
		{Value: "us", Text: "United States", Index: 0},
		{Value: "United States", Text: "us", Index: 1},
	}
	// Tier 1 exact value match beats the later tiers even when a text
	// match exists earlier by position.
	opt, tier, ok := ChooseOption(options, "United States", false, placeholders)
	require.True(t, ok)
	assert.Equal(t, TierExactValue, tier)
	assert.Equal(t, 1, opt.Index)
}

func TestChooseOptionCaseInsensitiveText(t *testing.T) {
	options := opts("", "USA", "Canada")
	opt, tier, ok := ChooseOption(options, "usa", false, placeholders)
	require.True(t, ok)
	assert.Equal(t, TierExactText, tier)
	assert.Equal(t, "USA", opt.Text)
}

func TestChooseOptionPartialMatch(t *testing.T) {
	options := opts("Please select", "United Kingdom", "United States of America")
	opt, tier, ok := ChooseOption(options, "United States", false, placeholders)
	require.True(t, ok)
	assert.Equal(t, TierPartial, tier)
	assert.Equal(t, "United States of America", opt.Text)
}

func TestChooseOptionPositionalFallback(t *testing.T) {
	options := opts("", "USA", "Canada")
	// No tier 1-3 match; required controls fall back to the first
	// non-placeholder option.
	opt, tier, ok := ChooseOption(options, "United States", true, placeholders)
	require.True(t, ok)
	assert.Equal(t, TierPositional, tier)
	assert.Equal(t, "USA", opt.Text)

	// Not required: leave at default.
	_, _, ok = ChooseOption(options, "United States", false, placeholders)
	assert.False(t, ok)
}

func TestChooseOptionSkipsPlaceholders(t *testing.T) {
	options := opts("-- Please choose --", "First Real")
	opt, tier, ok := ChooseOption(options, "", true, placeholders)
	require.True(t, ok)
	assert.Equal(t, TierPositional, tier)
	assert.Equal(t, "First Real", opt.Text)
}

func TestChooseOptionEmpty(t *testing.T) {
	_, _, ok := ChooseOption(nil, "x", true, placeholders)
	assert.False(t, ok)
}

// fakeController records dispatched actions; only the methods the
// dispatcher exercises do anything.
type fakeController struct {
	browser.Controller
	filled   map[string]string
	selected map[string]string
	checked  []string
	failFill bool
}

func newFakeController() *fakeController {
	return &fakeController{
		filled:   map[string]string{},
		selected: map[string]string{},
	}
}

func (f *fakeController) FillText(ctx context.Context, selector, value string, keyDelay time.Duration) error {
	if f.failFill {
		return errors.New("element detached")
	}
	f.filled[selector] = value
	return nil
}

func (f *fakeController) SelectValue(ctx context.Context, selector, value string) error {
	f.selected[selector] = value
	return nil
}

func (f *fakeController) CheckOption(ctx context.Context, selector string) error {
	f.checked = append(f.checked, selector)
	return nil
}

func newDispatcher(ctrl browser.Controller) *Dispatcher {
	return NewDispatcher(ctrl, placeholders, 0, zerolog.Nop())
}

func TestDispatcherFillText(t *testing.T) {
	fc := newFakeController()
	d := newDispatcher(fc)

	out := d.Fill(context.Background(), form.Control{
		Type: form.ControlEmail, Selector: "#email",
	}, form.KindEmail, "john@example.com")

	assert.Equal(t, form.StatusFilled, out.Status)
	assert.Equal(t, "john@example.com", fc.filled["#email"])
}

func TestDispatcherContainsControlFailure(t *testing.T) {
	fc := newFakeController()
	fc.failFill = true
	d := newDispatcher(fc)

	out := d.Fill(context.Background(), form.Control{
		Type: form.ControlText, Selector: "#name",
	}, form.KindFullName, "John Smith")

	assert.Equal(t, form.StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "detached")
}

func TestDispatcherSkipsUnknownAndEmpty(t *testing.T) {
	fc := newFakeController()
	d := newDispatcher(fc)

	out := d.Fill(context.Background(), form.Control{Type: form.ControlText, Selector: "#x"}, form.KindUnknown, "v")
	assert.Equal(t, form.StatusSkipped, out.Status)

	out = d.Fill(context.Background(), form.Control{Type: form.ControlText, Selector: "#y"}, form.KindCity, "")
	assert.Equal(t, form.StatusSkipped, out.Status)
	assert.Empty(t, fc.filled)
}

func TestDispatcherSelect(t *testing.T) {
	fc := newFakeController()
	d := newDispatcher(fc)

	ctrl := form.Control{
		Type:     form.ControlSelect,
		Selector: "select[name=\"country\"]",
		Options:  opts("Please select", "India", "Canada"),
	}
	out := d.Fill(context.Background(), ctrl, form.KindCountry, "india")
	assert.Equal(t, form.StatusFilled, out.Status)
	assert.Equal(t, "India", out.Value)
	assert.Equal(t, "India", fc.selected[ctrl.Selector])
}

func TestDispatcherRadioGroup(t *testing.T) {
	fc := newFakeController()
	d := newDispatcher(fc)

	group := form.Control{
		Type: form.ControlRadio, Name: "plan", Required: true,
		Options: []form.Option{
			{Value: "basic", Text: "Basic", Index: 0},
			{Value: "pro", Text: "Pro", Index: 1},
		},
	}
	out := d.Fill(context.Background(), group, form.KindUnknown, "pro")
	assert.Equal(t, form.StatusFilled, out.Status)
	require.Len(t, fc.checked, 1)
	assert.Contains(t, fc.checked[0], `value="pro"`)
}
