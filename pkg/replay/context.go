// Package replay rebuilds an authenticated HTTP client context from a
// captured session bundle and issues requests through it. The bundle itself
// is never mutated; a Context is an ephemeral per-use configuration that
// belongs to one logical session lifetime.
package replay

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/stevehaigh/browser-auth-helper/pkg/session"
)

// DefaultTimeout bounds each replayed request.
const DefaultTimeout = 30 * time.Second

// defaultHeaders matches the browser profile the capture browser presents,
// so replayed requests look like the session that set the cookies.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
	"Connection":      "keep-alive",
}

// Options configures context construction.
type Options struct {
	// Headers overrides or extends the default browser-profile headers.
	Headers map[string]string

	// Timeout bounds each request. Zero selects DefaultTimeout.
	Timeout time.Duration

	// Transport replaces the default http.Transport, mainly for tests.
	Transport http.RoundTripper
}

// Context is an authenticated HTTP client configuration built from one
// bundle: a cookie jar scoped to the bundle's domain, default headers, and
// capture metadata kept for diagnostics. The jar is read-mostly after
// construction; the context never writes back into the bundle.
type Context struct {
	domain     string
	capturedAt string
	client     *http.Client
	headers    map[string]string

	// Browser-only state carried for inspection. localStorage and
	// sessionStorage cannot be transmitted over plain HTTP, so they are
	// preserved here but never attached to a request.
	localStorage   map[string]string
	sessionStorage map[string]string

	appliedCookies int
	log            *slog.Logger
}

// BuildContext validates the bundle and constructs a replay context. Only
// cookies whose domain equals the bundle's domain, or is a subdomain of it,
// enter the jar; a cookie scoped wider than the bundle never does. When two
// cookies share a name and an overlapping scope the later one in the
// bundle's sequence wins, matching standard cookie-jar semantics.
func BuildContext(b *session.Bundle, opts Options) (*Context, error) {
	if err := session.ValidateBundle(b); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	log := slog.Default()
	applied := 0
	for _, c := range b.Cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		if host == "" {
			host = b.Domain
		}
		if !domainInScope(host, b.Domain) {
			log.Debug("cookie outside session scope, skipped",
				"cookie", c.Name, "cookie_domain", c.Domain, "scope", b.Domain)
			continue
		}

		path := c.Path
		if path == "" {
			path = "/"
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		// A leading dot in the captured domain marks a domain cookie that
		// also applies to subdomains; anything else stays host-only. The
		// recorded expiry stays in the artifact only: cookies enter the
		// jar as session cookies (expiry policy note in DESIGN.md).
		if strings.HasPrefix(c.Domain, ".") {
			hc.Domain = host
		}
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: path}, []*http.Cookie{hc})
		applied++
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Jar: jar, Timeout: timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}

	headers := make(map[string]string, len(defaultHeaders)+len(opts.Headers))
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	log.Info("replay context built",
		"domain", b.Domain,
		"captured", b.Timestamp,
		"cookies_applied", applied,
		"cookies_total", len(b.Cookies))

	return &Context{
		domain:         b.Domain,
		capturedAt:     b.Timestamp,
		client:         client,
		headers:        headers,
		localStorage:   copyMap(b.LocalStorage),
		sessionStorage: copyMap(b.SessionStorage),
		appliedCookies: applied,
		log:            log,
	}, nil
}

// Domain returns the scope the context was built for.
func (c *Context) Domain() string {
	return c.domain
}

// CapturedAt returns the bundle's capture timestamp, for diagnostics only.
func (c *Context) CapturedAt() string {
	return c.capturedAt
}

// AppliedCookies returns how many captured cookies made it into the jar.
func (c *Context) AppliedCookies() int {
	return c.appliedCookies
}

// LocalStorage returns a copy of the captured localStorage. Informational
// only; this state is browser-held and is never sent with a request.
func (c *Context) LocalStorage() map[string]string {
	return copyMap(c.localStorage)
}

// SessionStorage returns a copy of the captured sessionStorage.
func (c *Context) SessionStorage() map[string]string {
	return copyMap(c.sessionStorage)
}

// CookiesFor returns the cookies the jar would send to the given URL.
func (c *Context) CookiesFor(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return c.client.Jar.Cookies(u)
}

// domainInScope reports whether host equals the scope domain or is a
// subdomain of it. The reverse never holds: a jar scoped to
// "sub.example.com" does not admit a cookie for "example.com"'s siblings.
func domainInScope(host, scope string) bool {
	return host == scope || strings.HasSuffix(host, "."+scope)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
