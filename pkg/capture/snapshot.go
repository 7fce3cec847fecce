package capture

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/stevehaigh/browser-auth-helper/pkg/session"
)

// Snapshot reads the authentication state out of an open, manually
// authenticated browser session and returns it as a validated bundle. The
// bundle's domain is derived from the host of the page the browser is on.
//
// Cookies are mandatory capture state; storage reads are best effort and
// degrade to empty maps, mirroring how browsers can deny storage access on
// some pages.
func Snapshot(b Browser) (*session.Bundle, error) {
	captureID := uuid.NewString()
	log := slog.Default().With("capture_id", captureID)

	currentURL, err := b.CurrentURL()
	if err != nil {
		return nil, fmt.Errorf("capture: read current url: %w", err)
	}
	parsed, err := url.Parse(currentURL)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("capture: cannot derive domain from %q", currentURL)
	}

	cookies, err := b.Cookies()
	if err != nil {
		return nil, err
	}

	localStorage, err := b.LocalStorage()
	if err != nil {
		log.Warn("could not read localStorage", "error", err)
		localStorage = map[string]string{}
	}
	sessionStorage, err := b.SessionStorage()
	if err != nil {
		log.Warn("could not read sessionStorage", "error", err)
		sessionStorage = map[string]string{}
	}

	bundle := &session.Bundle{
		Domain:         parsed.Hostname(),
		CurrentURL:     currentURL,
		Timestamp:      time.Now().Format(session.TimeFormat),
		Cookies:        session.FilterCookies(cookies),
		LocalStorage:   localStorage,
		SessionStorage: sessionStorage,
	}
	if err := session.ValidateBundle(bundle); err != nil {
		return nil, err
	}

	log.Info("captured session state",
		"domain", bundle.Domain,
		"cookies", len(bundle.Cookies),
		"local_storage_keys", len(bundle.LocalStorage),
		"session_storage_keys", len(bundle.SessionStorage))
	return bundle, nil
}
