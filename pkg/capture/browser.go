// Package capture extracts authentication state from an interactive browser
// session after a manual login. The browser is a host-controlled resource
// modeled behind the narrow Browser interface so the capture flow is
// testable with a fake implementation.
package capture

import (
	"context"
	"time"

	"github.com/stevehaigh/browser-auth-helper/pkg/session"
)

// Browser is the capability the capture flow needs from an open interactive
// browser session. Implementations own the underlying browser process and
// must release it in Close on every exit path.
type Browser interface {
	// CurrentURL returns the full URL of the page the browser is on.
	CurrentURL() (string, error)

	// Cookies returns all cookies held by the browser context, in the
	// order the browser reports them.
	Cookies() ([]session.Cookie, error)

	// LocalStorage returns the page's localStorage. Pages that block
	// storage access yield an empty map, not an error.
	LocalStorage() (map[string]string, error)

	// SessionStorage returns the page's sessionStorage, with the same
	// tolerance as LocalStorage.
	SessionStorage() (map[string]string, error)

	// WaitForSelector blocks until an element matching selector is
	// present or the timeout elapses. The selector syntax is whatever the
	// implementation's engine accepts; no query language is assumed here.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// Close releases the browser and every resource behind it.
	Close() error
}
