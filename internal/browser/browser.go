// Package browser owns the playwright lifecycle and exposes the narrow
// set of page capabilities the form engine needs. Everything above this
// package works against the Controller interface, so the heuristics stay
// testable without a live browser.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"formrunner/internal/form"
)

const (
	defaultNavTimeout  = 25 * time.Second
	defaultActionTime  = 5 * time.Second
	defaultElementTime = 1200 * time.Millisecond
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// PageState is the snapshot used for post-submit verification.
type PageState struct {
	URL          string
	BodyText     string
	ControlCount int
}

// Controller exposes the browser actions the engine dispatches.
type Controller interface {
	Close() error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	URL() string
	ClickLinkByName(ctx context.Context, name string) error
	WaitSettled(ctx context.Context, timeout time.Duration) error
	EnumerateControls(ctx context.Context) ([]form.Control, error)
	FillText(ctx context.Context, selector, value string, keyDelay time.Duration) error
	SelectValue(ctx context.Context, selector, value string) error
	CheckOption(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	RemoveNodes(ctx context.Context, selector string) (int, error)
	HideNodes(ctx context.Context, selector string) (int, error)
	CountVisible(ctx context.Context, selector string) (int, error)
	State(ctx context.Context) (PageState, error)
}

// Options configure the launched chromium instance.
type Options struct {
	Headless bool
	SlowMo   time.Duration
}

// Launcher owns the playwright lifecycle. One launcher serves one run;
// sessions are scoped resources released on every exit path.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewLauncher(ctx context.Context, opts Options) (*Launcher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Launcher{pw: pw, browser: browser}, nil
}

// NewController opens a fresh context and page.
func (l *Launcher) NewController(ctx context.Context) (Controller, error) {
	bctx, err := l.browser.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
		UserAgent:         playwright.String(userAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(defaultNavTimeout.Milliseconds()))
	return &controller{context: bctx, page: page}, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

type controller struct {
	context playwright.BrowserContext
	page    playwright.Page
}

func (c *controller) Close() error {
	if c.page != nil {
		_ = c.page.Close()
	}
	if c.context != nil {
		return c.context.Close()
	}
	return nil
}

func (c *controller) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = defaultNavTimeout
	}
	_, err := c.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return wrap(err)
}

func (c *controller) URL() string {
	return c.page.URL()
}

// ClickLinkByName clicks the first visible link whose accessible name
// contains name. Used for contact-page discovery on landing pages.
func (c *controller) ClickLinkByName(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := c.page.GetByRole(*playwright.AriaRoleLink, playwright.PageGetByRoleOptions{
		Name:  name,
		Exact: playwright.Bool(false),
	})
	first := loc.First()
	if err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(defaultElementTime.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	return wrap(first.Click())
}

func (c *controller) WaitSettled(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if err := c.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		_ = c.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: playwright.Float(1000),
		})
	}
	return nil
}

// controlScan walks the page for visible form controls and reports their
// raw attributes plus a stable selector. Select options are captured
// inline so classification and option matching stay off the live page.
const controlScan = `() => {
	function labelFor(el) {
		if (el.labels && el.labels.length > 0) {
			return (el.labels[0].textContent || "").trim();
		}
		const wrap = el.closest("label");
		if (wrap) return (wrap.textContent || "").trim();
		if (el.id) {
			const lab = document.querySelector('label[for="' + el.id + '"]');
			if (lab) return (lab.textContent || "").trim();
		}
		return "";
	}
	function selectorFor(el) {
		if (el.id) return "#" + CSS.escape(el.id);
		if (el.name) {
			return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
		}
		const tag = el.tagName.toLowerCase();
		const siblings = Array.from(document.querySelectorAll(tag));
		const idx = siblings.indexOf(el);
		return tag + ":nth-of-type(" + (idx + 1) + ")";
	}
	function visible(el) {
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}
	const out = [];
	const nodes = document.querySelectorAll(
		"input:not([type='hidden']):not([type='submit']):not([type='button']):not([type='image']), textarea, select");
	let index = 0;
	for (const el of nodes) {
		if (!visible(el)) continue;
		const tag = el.tagName.toLowerCase();
		let type = tag === "textarea" ? "textarea" : tag === "select" ? "select" : (el.type || "text");
		if (!["text","email","tel","textarea","select","radio","checkbox"].includes(type)) {
			// search, url, number and friends behave like text inputs.
			type = "text";
		}
		const ctl = {
			index: index++,
			type: type,
			name: el.name || "",
			id: el.id || "",
			placeholder: el.placeholder || "",
			ariaLabel: el.getAttribute("aria-label") || "",
			label: labelFor(el).slice(0, 120),
			value: (el.value || "").slice(0, 120),
			required: !!el.required,
			selector: selectorFor(el),
			options: []
		};
		if (tag === "select") {
			ctl.options = Array.from(el.options).map((opt, i) => ({
				value: opt.value, text: (opt.text || "").trim(), index: i
			}));
		}
		out.push(ctl);
	}
	return out;
}`

func (c *controller) EnumerateControls(ctx context.Context) ([]form.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := c.page.Evaluate(controlScan)
	if err != nil {
		return nil, wrap(err)
	}
	ctrls, err := decodeControls(val)
	if err != nil {
		return nil, err
	}
	return GroupChoices(ctrls), nil
}

func (c *controller) FillText(ctx context.Context, selector, value string, keyDelay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := c.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(defaultElementTime.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		// The click below retries visibility on its own.
		_ = err
	}
	if err := loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(defaultElementTime.Milliseconds())),
		Force:   playwright.Bool(true),
	}); err != nil {
		return wrap(err)
	}
	if _, err := loc.Evaluate(`el => el.value = ""`, nil); err != nil {
		return wrap(err)
	}
	if err := loc.Type(value, playwright.LocatorTypeOptions{
		Delay: playwright.Float(float64(keyDelay.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	// Frameworks listening for synthetic events need these to register
	// the new value.
	_, err := loc.Evaluate(`el => ["input","change","blur"].forEach(evt => el.dispatchEvent(new Event(evt, {bubbles: true})))`, nil)
	return wrap(err)
}

func (c *controller) SelectValue(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := c.page.Locator(selector).First()
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		_ = err
	}
	_, err := loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}})
	return wrap(err)
}

func (c *controller) CheckOption(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := c.page.Locator(selector).First()
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		_ = err
	}
	return wrap(loc.Check(playwright.LocatorCheckOptions{
		Timeout: playwright.Float(float64(defaultElementTime.Milliseconds())),
	}))
}

func (c *controller) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := c.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(defaultActionTime.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		_ = err
	}
	return wrap(loc.Click())
}

func (c *controller) RemoveNodes(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	val, err := c.page.Evaluate(`sel => {
		const nodes = document.querySelectorAll(sel);
		let n = 0;
		for (const el of nodes) { el.remove(); n++; }
		return n;
	}`, selector)
	if err != nil {
		return 0, wrap(err)
	}
	return toInt(val), nil
}

func (c *controller) HideNodes(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	val, err := c.page.Evaluate(`sel => {
		const nodes = document.querySelectorAll(sel);
		let n = 0;
		for (const el of nodes) {
			el.style.setProperty("display", "none", "important");
			el.style.setProperty("visibility", "hidden", "important");
			el.style.setProperty("pointer-events", "none", "important");
			n++;
		}
		return n;
	}`, selector)
	if err != nil {
		return 0, wrap(err)
	}
	return toInt(val), nil
}

// CountVisible counts matches with a meaningful bounding box. A 10px
// floor filters the zero-size tracker nodes CAPTCHA providers leave
// behind.
func (c *controller) CountVisible(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	val, err := c.page.Evaluate(`sel => {
		let n = 0;
		for (const el of document.querySelectorAll(sel)) {
			const rect = el.getBoundingClientRect();
			if (rect.width > 10 && rect.height > 10) n++;
		}
		return n;
	}`, selector)
	if err != nil {
		return 0, wrap(err)
	}
	return toInt(val), nil
}

func (c *controller) State(ctx context.Context) (PageState, error) {
	if err := ctx.Err(); err != nil {
		return PageState{}, err
	}
	text, _ := c.page.InnerText("body")
	if len(text) > 4000 {
		text = text[:4000]
	}
	count, err := c.CountVisible(ctx, "form input, form textarea, form select")
	if err != nil {
		count = 0
	}
	return PageState{
		URL:          c.page.URL(),
		BodyText:     strings.TrimSpace(text),
		ControlCount: count,
	}, nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}

func toInt(val interface{}) int {
	switch v := val.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
