// Package attempt runs one end-to-end try at one site: navigate, clear
// overlays, classify and fill every discovered control, gate on CAPTCHA,
// submit, verify. A single control failure never aborts the attempt;
// most forms remain submittable with a partial fill.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"formrunner/internal/browser"
	"formrunner/internal/captcha"
	"formrunner/internal/catalog"
	"formrunner/internal/classify"
	"formrunner/internal/fill"
	"formrunner/internal/form"
	"formrunner/internal/obstruct"
	"formrunner/internal/record"
)

// NavigationError marks a page that failed to load. Retryable.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string { return fmt.Sprintf("navigate %s: %v", e.URL, e.Err) }
func (e *NavigationError) Unwrap() error { return e.Err }

// SubmissionError marks a submit action that failed. Retryable.
type SubmissionError struct {
	Selector string
	Err      error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("submit via %s: %v", e.Selector, e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

// Outcome is the terminal classification of one attempt.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeFailure        Outcome = "failure"
	OutcomeCaptchaTimeout Outcome = "captcha-timeout"
	OutcomeNavigation     Outcome = "navigation-error"
)

// state names the orchestrator's position for logs.
type state string

const (
	stateNavigating state = "NAVIGATING"
	stateDeobstruct state = "DEOBSTRUCTING"
	stateFilling    state = "CLASSIFYING_AND_FILLING"
	stateCaptcha    state = "CAPTCHA_CHECK"
	stateSubmitting state = "SUBMITTING"
	stateVerifying  state = "VERIFYING"
)

// Result is one AttemptResult fed back to the run aggregator.
type Result struct {
	Website      string
	Try          int
	Outcome      Outcome
	Verified     bool
	Elapsed      time.Duration
	FieldsFilled int
	Error        string
	FillLog      []form.Outcome
}

// Retryable reports whether the outcome is worth another try. Success is
// final and validation problems never reach an attempt.
func (r Result) Retryable() bool {
	return r.Outcome != OutcomeSuccess
}

// Config bounds the attempt's waits.
type Config struct {
	PageLoadTimeout time.Duration
	FieldDelay      time.Duration
	KeyDelay        time.Duration
	CaptchaWait     time.Duration
}

// Runner executes attempts against a browser controller.
type Runner struct {
	cfg        Config
	cat        *catalog.Catalog
	classifier *classify.Classifier
	remover    *obstruct.Remover
	gate       *captcha.Gate
	logger     zerolog.Logger
}

func NewRunner(cfg Config, cat *catalog.Catalog, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		cat:        cat,
		classifier: classify.New(cat),
		remover:    obstruct.NewRemover(cat, logger.With().Str("comp", "obstruct").Logger()),
		gate:       captcha.NewGate(cat, logger.With().Str("comp", "captcha").Logger()),
		logger:     logger,
	}
}

// Run drives the state machine for one record on one fresh page. The
// control set is re-resolved from scratch because a retry reloads the
// page.
func (r *Runner) Run(ctx context.Context, ctrl browser.Controller, rec record.ContactRecord) Result {
	start := time.Now()
	res := Result{Website: rec.Website}

	finish := func(outcome Outcome, err error) Result {
		res.Outcome = outcome
		res.Elapsed = time.Since(start)
		if err != nil {
			res.Error = err.Error()
		}
		return res
	}

	r.step(stateNavigating, rec.Website)
	if err := ctrl.Navigate(ctx, rec.Website, r.cfg.PageLoadTimeout); err != nil {
		if ctx.Err() != nil {
			return finish(OutcomeFailure, ctx.Err())
		}
		return finish(OutcomeNavigation, &NavigationError{URL: rec.Website, Err: err})
	}
	_ = ctrl.WaitSettled(ctx, 2*time.Second)

	r.openContactPage(ctx, ctrl)

	r.step(stateDeobstruct, rec.Website)
	r.remover.Remove(ctx, ctrl)

	r.step(stateFilling, rec.Website)
	controls, err := ctrl.EnumerateControls(ctx)
	if err != nil {
		return finish(OutcomeFailure, fmt.Errorf("enumerate controls: %w", err))
	}
	if len(controls) == 0 {
		return finish(OutcomeFailure, errors.New("no form controls found"))
	}

	dispatcher := fill.NewDispatcher(ctrl, r.cat.Placeholders, r.cfg.KeyDelay, r.logger.With().Str("comp", "fill").Logger())
	kinds := r.classifier.ClassifyAll(controls)
	for i, ctl := range controls {
		value := rec.ValueFor(kinds[i], r.cat)
		out := dispatcher.Fill(ctx, ctl, kinds[i], value)
		out.Website = rec.Website
		res.FillLog = append(res.FillLog, out)
		if out.Status == form.StatusFilled {
			res.FieldsFilled++
			if err := sleepCtx(ctx, r.cfg.FieldDelay); err != nil {
				return finish(OutcomeFailure, err)
			}
		}
	}
	if res.FieldsFilled == 0 {
		return finish(OutcomeFailure, errors.New("no fields could be filled"))
	}

	r.step(stateCaptcha, rec.Website)
	if err := r.gate.WaitOut(ctx, ctrl, r.cfg.CaptchaWait); err != nil {
		var terr *captcha.TimeoutError
		if errors.As(err, &terr) {
			return finish(OutcomeCaptchaTimeout, terr)
		}
		return finish(OutcomeFailure, err)
	}

	pre, _ := ctrl.State(ctx)

	r.step(stateSubmitting, rec.Website)
	submitted, err := r.submit(ctx, ctrl)
	if err != nil {
		return finish(OutcomeFailure, err)
	}
	if !submitted {
		// Filled but nothing to click. Counts as a completed fill; it
		// can never be a verified success.
		res.Verified = false
		res.Error = "no submit control found"
		return finish(OutcomeSuccess, nil)
	}

	r.step(stateVerifying, rec.Website)
	_ = ctrl.WaitSettled(ctx, 3*time.Second)
	post, _ := ctrl.State(ctx)
	res.Verified = verified(pre, post)
	return finish(OutcomeSuccess, nil)
}

// openContactPage follows a contact-style link when the landing page has
// one. Best effort; a miss means the landing page itself is the target.
func (r *Runner) openContactPage(ctx context.Context, ctrl browser.Controller) {
	for _, name := range r.cat.ContactLinks {
		if ctx.Err() != nil {
			return
		}
		if err := ctrl.ClickLinkByName(ctx, name); err == nil {
			r.logger.Debug().Str("link", name).Msg("contact page opened")
			_ = ctrl.WaitSettled(ctx, 2*time.Second)
			return
		}
	}
}

func (r *Runner) submit(ctx context.Context, ctrl browser.Controller) (bool, error) {
	for _, sel := range r.cat.SubmitSelectors {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		count, err := ctrl.CountVisible(ctx, sel)
		if err != nil || count == 0 {
			continue
		}
		if err := ctrl.Click(ctx, sel); err != nil {
			return false, &SubmissionError{Selector: sel, Err: err}
		}
		return true, nil
	}
	return false, nil
}

// Post-submit confirmation vocabulary.
var confirmationPhrases = []string{
	"thank you", "thanks for", "message has been sent", "successfully sent",
	"we will get back", "we'll get back", "submission received", "your message has been received",
}

// verified looks for a clear post-submit signal: the URL changed,
// confirmation text appeared, or the form disappeared. Absence of all
// three is ambiguous success, reported with Verified=false so the
// success rate is not overstated.
func verified(pre, post browser.PageState) bool {
	if pre.URL != "" && post.URL != "" && pre.URL != post.URL {
		return true
	}
	body := strings.ToLower(post.BodyText)
	preBody := strings.ToLower(pre.BodyText)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(body, phrase) && !strings.Contains(preBody, phrase) {
			return true
		}
	}
	if pre.ControlCount > 0 && post.ControlCount == 0 {
		return true
	}
	return false
}

func (r *Runner) step(s state, website string) {
	r.logger.Debug().Str("state", string(s)).Str("website", website).Msg("attempt state")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
