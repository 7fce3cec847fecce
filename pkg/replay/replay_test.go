package replay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevehaigh/browser-auth-helper/pkg/session"
)

func cookieNames(cookies []*http.Cookie) []string {
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	return names
}

func bundleFor(domain string, cookies ...session.Cookie) *session.Bundle {
	return &session.Bundle{
		Domain:     domain,
		CurrentURL: "https://" + domain + "/home",
		Timestamp:  "2024-01-01 12:00:00",
		Cookies:    cookies,
	}
}

func TestBuildContextDomainScoping(t *testing.T) {
	t.Run("includes exact-domain and subdomain cookies", func(t *testing.T) {
		ctx, err := BuildContext(bundleFor("example.com",
			session.Cookie{Name: "root", Value: "1", Domain: "example.com"},
			session.Cookie{Name: "sub", Value: "2", Domain: "sub.example.com"},
			session.Cookie{Name: "dotted", Value: "3", Domain: ".example.com"},
		), Options{})
		require.NoError(t, err)
		assert.Equal(t, 3, ctx.AppliedCookies())

		sub := ctx.CookiesFor("https://sub.example.com/")
		names := cookieNames(sub)
		assert.Contains(t, names, "sub")
		assert.Contains(t, names, "dotted")
	})

	t.Run("excludes cookies for unrelated domains", func(t *testing.T) {
		ctx, err := BuildContext(bundleFor("example.com",
			session.Cookie{Name: "sid", Value: "abc", Domain: "example.com"},
			session.Cookie{Name: "foreign", Value: "x", Domain: "other.com"},
			session.Cookie{Name: "lookalike", Value: "y", Domain: "notexample.com"},
		), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, ctx.AppliedCookies())
	})

	t.Run("never widens scope from a subdomain bundle", func(t *testing.T) {
		ctx, err := BuildContext(bundleFor("sub.example.com",
			session.Cookie{Name: "parent", Value: "1", Domain: "example.com"},
			session.Cookie{Name: "own", Value: "2", Domain: "sub.example.com"},
		), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, ctx.AppliedCookies())
	})

	t.Run("cookie with empty domain defaults to the bundle domain", func(t *testing.T) {
		ctx, err := BuildContext(bundleFor("example.com",
			session.Cookie{Name: "sid", Value: "abc"},
		), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, ctx.AppliedCookies())
	})
}

func TestBuildContextLastWriteWins(t *testing.T) {
	ctx, err := BuildContext(bundleFor("example.com",
		session.Cookie{Name: "sid", Value: "old", Domain: "example.com", Path: "/"},
		session.Cookie{Name: "sid", Value: "new", Domain: "example.com", Path: "/"},
	), Options{})
	require.NoError(t, err)

	cookies := ctx.CookiesFor("https://example.com/")
	require.Len(t, cookies, 1)
	assert.Equal(t, "new", cookies[0].Value)
}

func TestBuildContextRejectsInvalidBundle(t *testing.T) {
	_, err := BuildContext(&session.Bundle{Domain: "example.com"}, Options{})
	var verr *session.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestBuildContextPreservesStorageForInspection(t *testing.T) {
	b := bundleFor("example.com")
	b.LocalStorage = map[string]string{"token": "tok"}
	b.SessionStorage = map[string]string{"csrf": "xyz"}

	ctx, err := BuildContext(b, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"token": "tok"}, ctx.LocalStorage())
	assert.Equal(t, map[string]string{"csrf": "xyz"}, ctx.SessionStorage())

	// Returned maps are copies; mutating one must not leak back.
	ctx.LocalStorage()["token"] = "tampered"
	assert.Equal(t, "tok", ctx.LocalStorage()["token"])
}

func TestRequestSendsSessionCookies(t *testing.T) {
	var gotCookie, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("welcome to your dashboard"))
	}))
	defer srv.Close()

	host := hostOf(t, srv.URL)
	ctx, err := BuildContext(bundleFor(host,
		session.Cookie{Name: "sid", Value: "abc", Domain: host, Path: "/"},
	), Options{})
	require.NoError(t, err)

	resp, err := ctx.Request(context.Background(), http.MethodGet, srv.URL+"/protected", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, gotCookie, "sid=abc")
	assert.Contains(t, gotUA, "Chrome")
}

func TestRequestFailsOpenOutsideScope(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	// Context scoped to a domain unrelated to the test server.
	ctx, err := BuildContext(bundleFor("example.com",
		session.Cookie{Name: "sid", Value: "abc", Domain: "example.com"},
	), Options{})
	require.NoError(t, err)

	resp, err := ctx.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotCookie)
}

func TestRequestNon2xxIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := mustContext(t, hostOf(t, srv.URL))
	resp, err := ctx.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRequestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	ctx := mustContext(t, "example.com")
	_, err := ctx.Get(context.Background(), target)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, target, reqErr.URL)
}

func TestVerifyAuthenticated(t *testing.T) {
	t.Run("requires a predicate", func(t *testing.T) {
		ctx := mustContext(t, "example.com")
		_, err := ctx.VerifyAuthenticated(context.Background(), "https://example.com", nil)
		assert.ErrorIs(t, err, ErrNilPredicate)
	})

	t.Run("login marker in body fails the check", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>Please log in to continue</html>"))
		}))
		defer srv.Close()

		ctx := mustContext(t, hostOf(t, srv.URL))
		ok, err := ctx.VerifyAuthenticated(context.Background(), srv.URL,
			LoginMarkers(DefaultLoginMarkers...))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clean body passes the check", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>Welcome back, your dashboard awaits</html>"))
		}))
		defer srv.Close()

		ctx := mustContext(t, hostOf(t, srv.URL))
		ok, err := ctx.VerifyAuthenticated(context.Background(), srv.URL,
			LoginMarkers(DefaultLoginMarkers...))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("401 and 403 fail regardless of body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("nothing suspicious here"))
		}))
		defer srv.Close()

		ctx := mustContext(t, hostOf(t, srv.URL))
		ok, err := ctx.VerifyAuthenticated(context.Background(), srv.URL,
			LoginMarkers(DefaultLoginMarkers...))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("custom predicate is honored", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Authenticated", "yes")
		}))
		defer srv.Close()

		ctx := mustContext(t, hostOf(t, srv.URL))
		ok, err := ctx.VerifyAuthenticated(context.Background(), srv.URL,
			func(resp *http.Response, body []byte) bool {
				return resp.Header.Get("X-Authenticated") == "yes"
			})
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestDownload(t *testing.T) {
	content := "<html><body>protected content</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer srv.Close()

	ctx := mustContext(t, hostOf(t, srv.URL))
	dest := filepath.Join(t.TempDir(), "page.html")

	written, err := ctx.Download(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), written)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestDownloadTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	ctx := mustContext(t, "example.com")
	_, err := ctx.Download(context.Background(), target, filepath.Join(t.TempDir(), "page.html"))

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
}

// End-to-end: capture-shaped raw state through validation, context build, and
// an authenticated request carrying the captured cookie.
func TestEndToEndCookieReplay(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()
	host := hostOf(t, srv.URL)

	raw := map[string]any{
		"domain":      host,
		"current_url": srv.URL + "/home",
		"timestamp":   "2024-01-01 12:00:00",
		"cookies": []any{
			map[string]any{"name": "sid", "value": "abc"},
		},
	}
	bundle, err := session.Validate(raw)
	require.NoError(t, err)

	ctx, err := BuildContext(bundle, Options{})
	require.NoError(t, err)

	resp, err := ctx.Request(context.Background(), http.MethodGet, srv.URL+"/protected", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, gotCookie, "sid=abc")
}

func mustContext(t *testing.T, domain string) *Context {
	t.Helper()
	ctx, err := BuildContext(bundleFor(domain,
		session.Cookie{Name: "sid", Value: "abc", Domain: domain},
	), Options{})
	require.NoError(t, err)
	return ctx
}

func hostOf(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Hostname()
}
