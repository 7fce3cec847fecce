package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/stevehaigh/browser-auth-helper/pkg/session"
)

// LaunchOptions configures the interactive capture browser.
type LaunchOptions struct {
	// Headless runs the browser without a window. Manual login needs a
	// visible window, so this defaults to false.
	Headless bool

	// UserAgent overrides the browser's user agent string.
	UserAgent string

	// SkipInstall skips the Playwright driver/browser download, for hosts
	// that provision browsers themselves.
	SkipInstall bool
}

// PlaywrightBrowser drives a real Chromium window through Playwright and
// implements Browser for the capture flow.
type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	log     *slog.Logger
}

// Launch starts Chromium and navigates it to loginURL so the user can
// complete the login by hand. Every partially acquired resource is released
// if a later step fails.
func Launch(loginURL string, opts LaunchOptions) (*PlaywrightBrowser, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if !opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("capture: install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("capture: start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("capture: launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = &opts.UserAgent
	}
	browserCtx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("capture: create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("capture: create page: %w", err)
	}

	if _, err := page.Goto(loginURL); err != nil {
		page.Close()
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("capture: open login url: %w", err)
	}

	b := &PlaywrightBrowser{
		pw:      pw,
		browser: browser,
		context: browserCtx,
		page:    page,
		log:     slog.Default(),
	}
	b.log.Info("browser opened for manual login", "url", loginURL)
	return b, nil
}

// CurrentURL returns the URL of the active page.
func (b *PlaywrightBrowser) CurrentURL() (string, error) {
	return b.page.URL(), nil
}

// Cookies returns every cookie in the browser context, preserving the order
// the browser reports.
func (b *PlaywrightBrowser) Cookies() ([]session.Cookie, error) {
	raw, err := b.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("capture: read cookies: %w", err)
	}
	cookies := make([]session.Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if c.Expires > 0 {
			expiry := c.Expires
			cookie.Expiry = &expiry
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

// LocalStorage reads window.localStorage from the page.
func (b *PlaywrightBrowser) LocalStorage() (map[string]string, error) {
	return b.evaluateStorage("() => Object.assign({}, window.localStorage)", "localStorage")
}

// SessionStorage reads window.sessionStorage from the page.
func (b *PlaywrightBrowser) SessionStorage() (map[string]string, error) {
	return b.evaluateStorage("() => Object.assign({}, window.sessionStorage)", "sessionStorage")
}

// evaluateStorage pulls a storage object out of the page. Some pages block
// storage access entirely; that degrades to an empty map rather than
// failing the whole capture.
func (b *PlaywrightBrowser) evaluateStorage(script, kind string) (map[string]string, error) {
	result, err := b.page.Evaluate(script)
	if err != nil {
		b.log.Warn("could not access storage", "kind", kind, "error", err)
		return map[string]string{}, nil
	}
	out := make(map[string]string)
	if m, ok := result.(map[string]any); ok {
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out, nil
}

// WaitForSelector waits for an element matching selector to be present,
// passing the selector through to Playwright untranslated.
func (b *PlaywrightBrowser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms := float64(timeout.Milliseconds())
	_, err := b.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: &ms,
	})
	if err != nil {
		return fmt.Errorf("capture: selector %q not found: %w", selector, err)
	}
	return nil
}

// Close releases the page, context, browser, and the Playwright driver.
// Individual close failures do not stop the teardown.
func (b *PlaywrightBrowser) Close() error {
	var errs []error
	if err := b.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("capture: close browser: %v", errs)
	}
	b.log.Info("browser closed")
	return nil
}
