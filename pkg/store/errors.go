package store

import "fmt"

// LoadReason classifies why loading a session artifact failed.
type LoadReason string

const (
	// ReasonNotFound means no artifact exists at the store's path.
	ReasonNotFound LoadReason = "not_found"

	// ReasonParse means the artifact exists but is not syntactically valid.
	ReasonParse LoadReason = "parse_error"

	// ReasonInvalid means the artifact parsed but failed bundle validation;
	// Err wraps the underlying *session.ValidationError.
	ReasonInvalid LoadReason = "invalid_bundle"
)

// LoadError reports a failed artifact load together with its reason.
type LoadError struct {
	Reason LoadReason
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: load failed (%s)", e.Reason)
	}
	return fmt.Sprintf("store: load failed (%s): %v", e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// WriteVerificationError means a save appeared to succeed but re-reading the
// artifact failed or did not round-trip. Surfaced distinctly from validation
// failures so automation can retry the save instead of silently trusting a
// corrupt artifact.
type WriteVerificationError struct {
	Path string
	Err  error
}

func (e *WriteVerificationError) Error() string {
	return fmt.Sprintf("store: write verification failed for %s: %v", e.Path, e.Err)
}

func (e *WriteVerificationError) Unwrap() error {
	return e.Err
}
