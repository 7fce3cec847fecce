package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// maxProbeBody caps how much of a probe response is read for predicate
// evaluation.
const maxProbeBody = 4 << 20

// RequestError wraps a transport-level failure during replay, carrying the
// URL that failed so callers can decide whether to retry. A non-2xx status
// is not a RequestError; the caller inspects the response instead.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("replay: request to %s failed: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Request issues an HTTP request through the context's cookie jar with the
// context's default headers applied. A URL outside the session's domain
// scope is still issued; the jar simply contributes no cookies for it.
func (c *Context) Request(ctx context.Context, method, rawURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}
	c.log.Debug("replayed request",
		"method", method, "url", rawURL, "status", resp.StatusCode)
	return resp, nil
}

// Get issues a GET through the context.
func (c *Context) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.Request(ctx, http.MethodGet, rawURL, nil)
}

// Predicate decides whether a probe response indicates an authenticated
// session. What "authenticated" means is site-specific, so the check is a
// caller-supplied collaborator rather than a built-in rule.
type Predicate func(resp *http.Response, body []byte) bool

// ErrNilPredicate is returned when VerifyAuthenticated is called without a
// predicate; there is deliberately no default.
var ErrNilPredicate = errors.New("replay: authentication predicate is required")

// VerifyAuthenticated performs a best-effort check by requesting probeURL
// and applying the predicate to the response and (bounded) body. Transport
// failures surface as *RequestError; a false predicate result does not.
func (c *Context) VerifyAuthenticated(ctx context.Context, probeURL string, pred Predicate) (bool, error) {
	if pred == nil {
		return false, ErrNilPredicate
	}
	resp, err := c.Get(ctx, probeURL)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return false, &RequestError{URL: probeURL, Err: err}
	}

	ok := pred(resp, body)
	c.log.Info("authentication probe",
		"url", probeURL, "status", resp.StatusCode, "authenticated", ok)
	return ok, nil
}

// DefaultLoginMarkers are body fragments that commonly indicate a
// login-required page.
var DefaultLoginMarkers = []string{
	"login",
	"sign in",
	"unauthorized",
	"access denied",
	"please log in",
	"authentication required",
	"session expired",
}

// LoginMarkers builds a predicate that treats a response as authenticated
// when its status is not 401/403 and its body contains none of the given
// markers (matched case-insensitively).
func LoginMarkers(markers ...string) Predicate {
	return func(resp *http.Response, body []byte) bool {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return false
		}
		content := strings.ToLower(string(body))
		for _, marker := range markers {
			if strings.Contains(content, strings.ToLower(marker)) {
				return false
			}
		}
		return true
	}
}

// Download performs a GET through the context and streams the body verbatim
// to dest, returning the number of bytes written. A failed write leaves
// whatever bytes were flushed; downloads make no atomicity promise. A
// non-2xx status is logged but still written, matching Request semantics.
func (c *Context) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("downloading non-2xx response body",
			"url", rawURL, "status", resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("replay: create download file %s: %w", dest, err)
	}

	written, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, &RequestError{URL: rawURL, Err: err}
	}

	c.log.Info("download complete", "url", rawURL, "dest", dest, "bytes", written)
	return written, nil
}
