// Package session defines the in-memory representation of captured browser
// authentication state and the rules for validating and normalizing it.
// The package performs no I/O; persistence lives in pkg/store and replay in
// pkg/replay.
package session

// TimeFormat is the fixed human-readable layout used for the capture
// timestamp stored in a bundle.
const TimeFormat = "2006-01-02 15:04:05"

// Cookie is a single browser cookie captured at login time.
type Cookie struct {
	// Name and Value are mandatory; a cookie missing either is dropped
	// during normalization.
	Name  string `json:"name"`
	Value string `json:"value"`

	// Domain the browser recorded for the cookie. May carry a leading dot.
	Domain string `json:"domain"`

	// Path the cookie applies to. Empty means "/".
	Path string `json:"path"`

	Secure   bool `json:"secure"`
	HTTPOnly bool `json:"http_only"`

	// Expiry is seconds since the Unix epoch, or nil for a session cookie.
	Expiry *float64 `json:"expiry"`
}

// Bundle is a validated snapshot of browser-held authentication state for a
// single domain. Bundles are immutable once built: replay only reads from
// them and the store writes them whole.
type Bundle struct {
	// Domain is the host the session applies to, e.g. "app.example.com".
	Domain string `json:"domain"`

	// CurrentURL is the full URL the browser was on at capture time.
	CurrentURL string `json:"current_url"`

	// Timestamp is the capture time in TimeFormat.
	Timestamp string `json:"timestamp"`

	// Cookies preserves the browser's cookie order. It may be empty but
	// never nil in a valid bundle.
	Cookies []Cookie `json:"cookies"`

	LocalStorage   map[string]string `json:"local_storage"`
	SessionStorage map[string]string `json:"session_storage"`
}

// requiredFields is the fixed validation order. Error messages name the
// first missing field in this order so failures are reproducible.
var requiredFields = []string{"domain", "current_url", "timestamp", "cookies"}
