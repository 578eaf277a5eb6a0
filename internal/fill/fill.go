// Package fill applies kind-appropriate fill strategies to classified
// controls. Option matching is a pure tiered function; only the dispatch
// itself touches the page. Dropdown option sets in the wild are
// unpredictable, so a strict match would abandon most real forms — hence
// the tier ladder.
package fill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"formrunner/internal/browser"
	"formrunner/internal/form"
)

// ControlInteractionError marks a single control that could not be read
// or written. It is contained to that field and never fails the attempt.
type ControlInteractionError struct {
	Selector string
	Err      error
}

func (e *ControlInteractionError) Error() string {
	return fmt.Sprintf("control %s: %v", e.Selector, e.Err)
}

func (e *ControlInteractionError) Unwrap() error { return e.Err }

// Tier identifies which strategy level selected an option.
type Tier int

const (
	TierNone       Tier = 0
	TierExactValue Tier = 1
	TierExactText  Tier = 2
	TierPartial    Tier = 3
	TierPositional Tier = 4
)

// ChooseOption walks the strategy ladder in strict order: exact value
// match, case-insensitive exact text, partial text, then — only for
// required controls — the first non-placeholder option. Returns ok=false
// when every tier passes, which callers record as a skipped outcome.
func ChooseOption(options []form.Option, candidate string, required bool, placeholders []string) (form.Option, Tier, bool) {
	if len(options) == 0 {
		return form.Option{}, TierNone, false
	}

	if candidate != "" {
		for _, opt := range options {
			if opt.Value != "" && opt.Value == candidate {
				return opt, TierExactValue, true
			}
		}
		for _, opt := range options {
			if opt.Text != "" && strings.EqualFold(opt.Text, candidate) {
				return opt, TierExactText, true
			}
		}
		lower := strings.ToLower(candidate)
		for _, opt := range options {
			text := strings.ToLower(opt.Text)
			if text == "" || isPlaceholder(opt, placeholders) {
				continue
			}
			if strings.Contains(text, lower) || strings.Contains(lower, text) {
				return opt, TierPartial, true
			}
		}
	}

	if required {
		for _, opt := range options {
			if !isPlaceholder(opt, placeholders) {
				return opt, TierPositional, true
			}
		}
	}
	return form.Option{}, TierNone, false
}

func isPlaceholder(opt form.Option, placeholders []string) bool {
	if strings.TrimSpace(opt.Text) == "" {
		return true
	}
	text := strings.ToLower(opt.Text)
	for _, p := range placeholders {
		if p != "" && strings.Contains(text, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Dispatcher applies one fill per control and reports exactly one
// outcome for it, whether filled, skipped or failed.
type Dispatcher struct {
	ctrl         browser.Controller
	placeholders []string
	keyDelay     time.Duration
	logger       zerolog.Logger
}

func NewDispatcher(ctrl browser.Controller, placeholders []string, keyDelay time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		ctrl:         ctrl,
		placeholders: placeholders,
		keyDelay:     keyDelay,
		logger:       logger,
	}
}

// Fill dispatches by control type. Unknown kinds are left untouched.
func (d *Dispatcher) Fill(ctx context.Context, c form.Control, kind form.Kind, value string) form.Outcome {
	out := form.Outcome{Control: c.Type, Kind: kind}

	if kind == form.KindUnknown && c.Type != form.ControlSelect && c.Type != form.ControlRadio && c.Type != form.ControlCheckbox {
		out.Status = form.StatusSkipped
		out.Reason = "unclassified control left untouched"
		return out
	}

	switch c.Type {
	case form.ControlText, form.ControlEmail, form.ControlTel, form.ControlTextarea:
		return d.fillText(ctx, c, out, value)
	case form.ControlSelect:
		return d.fillSelect(ctx, c, out, value)
	case form.ControlRadio, form.ControlCheckbox:
		return d.fillChoice(ctx, c, out, value)
	default:
		out.Status = form.StatusSkipped
		out.Reason = fmt.Sprintf("unsupported control type %s", c.Type)
		return out
	}
}

func (d *Dispatcher) fillText(ctx context.Context, c form.Control, out form.Outcome, value string) form.Outcome {
	if value == "" {
		out.Status = form.StatusSkipped
		out.Reason = "no value for kind"
		return out
	}
	if err := d.ctrl.FillText(ctx, c.Selector, value, d.keyDelay); err != nil {
		ierr := &ControlInteractionError{Selector: c.Selector, Err: err}
		d.logger.Warn().Err(ierr).Str("kind", string(out.Kind)).Msg("text fill failed")
		out.Status = form.StatusFailed
		out.Reason = ierr.Error()
		return out
	}
	out.Status = form.StatusFilled
	out.Value = value
	return out
}

func (d *Dispatcher) fillSelect(ctx context.Context, c form.Control, out form.Outcome, value string) form.Outcome {
	opt, tier, ok := ChooseOption(c.Options, value, c.Required, d.placeholders)
	if !ok {
		out.Status = form.StatusSkipped
		out.Reason = "no matching option, left at default"
		return out
	}
	if err := d.ctrl.SelectValue(ctx, c.Selector, opt.Value); err != nil {
		ierr := &ControlInteractionError{Selector: c.Selector, Err: err}
		d.logger.Warn().Err(ierr).Msg("select fill failed")
		out.Status = form.StatusFailed
		out.Reason = ierr.Error()
		return out
	}
	out.Status = form.StatusFilled
	out.Value = opt.Text
	out.Reason = fmt.Sprintf("matched at tier %d", tier)
	return out
}

func (d *Dispatcher) fillChoice(ctx context.Context, c form.Control, out form.Outcome, value string) form.Outcome {
	opt, tier, ok := ChooseOption(c.Options, value, c.Required, d.placeholders)
	if !ok {
		out.Status = form.StatusSkipped
		out.Reason = "no matching choice"
		return out
	}
	selector := c.Selector
	if c.Type == form.ControlRadio {
		selector = browser.RadioSelector(c, opt)
	}
	if err := d.ctrl.CheckOption(ctx, selector); err != nil {
		ierr := &ControlInteractionError{Selector: selector, Err: err}
		d.logger.Warn().Err(ierr).Msg("choice fill failed")
		out.Status = form.StatusFailed
		out.Reason = ierr.Error()
		return out
	}
	out.Status = form.StatusFilled
	out.Value = opt.Text
	out.Reason = fmt.Sprintf("matched at tier %d", tier)
	return out
}
