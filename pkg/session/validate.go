package session

import "fmt"

// ValidationError reports the first mandatory field found missing from a raw
// bundle, in the fixed order domain, current_url, timestamp, cookies.
type ValidationError struct {
	MissingField string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: missing required field %q", e.MissingField)
}

// Validate checks a raw decoded mapping (for example the result of
// unmarshalling a session artifact) against the bundle shape and returns the
// typed bundle. Mandatory fields must be present and non-null; local_storage
// and session_storage default to empty maps. Cookies are normalized with
// NormalizeCookies.
func Validate(raw map[string]any) (*Bundle, error) {
	for _, field := range requiredFields {
		if v, ok := raw[field]; !ok || v == nil {
			return nil, &ValidationError{MissingField: field}
		}
	}

	b := &Bundle{}
	var ok bool
	if b.Domain, ok = raw["domain"].(string); !ok || b.Domain == "" {
		return nil, &ValidationError{MissingField: "domain"}
	}
	if b.CurrentURL, ok = raw["current_url"].(string); !ok || b.CurrentURL == "" {
		return nil, &ValidationError{MissingField: "current_url"}
	}
	if b.Timestamp, ok = raw["timestamp"].(string); !ok || b.Timestamp == "" {
		return nil, &ValidationError{MissingField: "timestamp"}
	}

	rawCookies, ok := raw["cookies"].([]any)
	if !ok {
		return nil, &ValidationError{MissingField: "cookies"}
	}
	b.Cookies = NormalizeCookies(rawCookies)

	b.LocalStorage = stringMap(raw["local_storage"])
	b.SessionStorage = stringMap(raw["session_storage"])
	return b, nil
}

// ValidateBundle applies the same mandatory-field rules to an already typed
// bundle. Used by the store before a save and by the replay client before a
// context is built.
func ValidateBundle(b *Bundle) error {
	if b == nil || b.Domain == "" {
		return &ValidationError{MissingField: "domain"}
	}
	if b.CurrentURL == "" {
		return &ValidationError{MissingField: "current_url"}
	}
	if b.Timestamp == "" {
		return &ValidationError{MissingField: "timestamp"}
	}
	if b.Cookies == nil {
		return &ValidationError{MissingField: "cookies"}
	}
	return nil
}

// NormalizeCookies converts raw cookie entries into typed cookies, dropping
// any entry missing a name or a value. Input order is preserved for the
// survivors and same-name cookies are never deduplicated here; which of two
// overlapping cookies wins is replay policy, not a model concern.
func NormalizeCookies(raw []any) []Cookie {
	cookies := make([]Cookie, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		value, _ := m["value"].(string)
		if name == "" || value == "" {
			continue
		}
		c := Cookie{Name: name, Value: value}
		c.Domain, _ = m["domain"].(string)
		c.Path, _ = m["path"].(string)
		c.Secure, _ = m["secure"].(bool)
		c.HTTPOnly, _ = m["http_only"].(bool)
		if exp, ok := m["expiry"].(float64); ok {
			c.Expiry = &exp
		}
		cookies = append(cookies, c)
	}
	return cookies
}

// FilterCookies drops typed cookies missing a name or value, preserving the
// order of the remainder. It is the typed counterpart of NormalizeCookies,
// used when cookies arrive from a live browser rather than a decoded
// artifact.
func FilterCookies(cookies []Cookie) []Cookie {
	kept := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" || c.Value == "" {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func stringMap(v any) map[string]string {
	out := make(map[string]string)
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
