// Package store persists session bundles as a JSON artifact on disk with
// write-then-verify semantics: a save only succeeds once the artifact has
// been re-read and re-validated from its final location.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stevehaigh/browser-auth-helper/pkg/session"
)

// DefaultArtifactName is used when no destination path is configured.
const DefaultArtifactName = "session_cookies.json"

// FileStore reads and writes one session artifact at a fixed path. Saves
// always overwrite the whole file; there is no merge or in-place update.
type FileStore struct {
	path string
	log  *slog.Logger
}

// New creates a store for the given artifact path. An empty path selects
// DefaultArtifactName in the working directory.
func New(path string) *FileStore {
	if path == "" {
		path = DefaultArtifactName
	}
	return &FileStore{path: path, log: slog.Default()}
}

// Path returns the artifact path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// Save validates the bundle, writes it to the artifact path, then re-reads
// and re-validates the written file. The temp-file + rename means no partial
// artifact is ever visible at the destination, even on interrupt mid-write.
//
// A nil return means both the write and the verification succeeded. A shape
// problem surfaces as *session.ValidationError, a readback problem as
// *WriteVerificationError; the two stay distinguishable with errors.As so
// callers can re-capture versus retry the save.
func (s *FileStore) Save(b *session.Bundle) error {
	if err := session.ValidateBundle(b); err != nil {
		s.log.Warn("refusing to save invalid session bundle", "error", err)
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("store: create artifact directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("store: create temp artifact: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(b); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("store: encode session bundle: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("store: close temp artifact: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("store: rename temp artifact: %w", err)
	}

	// Verification step: trust only what can be read back.
	written, err := s.Load()
	if err != nil {
		return &WriteVerificationError{Path: s.path, Err: err}
	}
	if !roundTrips(b, written) {
		return &WriteVerificationError{
			Path: s.path,
			Err:  fmt.Errorf("re-read bundle does not match saved bundle"),
		}
	}

	s.log.Info("session artifact saved",
		"path", s.path,
		"domain", b.Domain,
		"cookies", len(b.Cookies))
	return nil
}

// Load reads the artifact, parses it, and re-runs model validation. Failures
// carry a *LoadError whose Reason distinguishes a missing file from a
// malformed one from a semantically incomplete one, so callers can decide
// between a fresh interactive capture and treating the file as corrupt.
func (s *FileStore) Load() (*session.Bundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Reason: ReasonNotFound, Err: err}
		}
		return nil, fmt.Errorf("store: read artifact %s: %w", s.path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Reason: ReasonParse, Err: err}
	}

	bundle, err := session.Validate(raw)
	if err != nil {
		return nil, &LoadError{Reason: ReasonInvalid, Err: err}
	}

	s.log.Debug("session artifact loaded",
		"path", s.path,
		"domain", bundle.Domain,
		"captured", bundle.Timestamp,
		"cookies", len(bundle.Cookies))
	return bundle, nil
}

// roundTrips reports whether the re-read bundle preserves the mandatory
// fields and the normalized cookies of the saved one.
func roundTrips(saved, written *session.Bundle) bool {
	if saved.Domain != written.Domain ||
		saved.CurrentURL != written.CurrentURL ||
		saved.Timestamp != written.Timestamp ||
		len(saved.Cookies) != len(written.Cookies) {
		return false
	}
	for i := range saved.Cookies {
		if saved.Cookies[i].Name != written.Cookies[i].Name ||
			saved.Cookies[i].Value != written.Cookies[i].Value {
			return false
		}
	}
	return true
}
