package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "session_cookies.json", cfg.ArtifactPath)
	assert.Equal(t, "downloaded_page.html", cfg.OutputFile)
	assert.Equal(t, 5*time.Minute, cfg.LoginTimeout())
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	assert.False(t, cfg.Headless)
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "browser-auth.yaml")
		content := `
target_url: https://example.com/account
artifact_path: /tmp/sessions/example.json
login:
  timeout_seconds: 120
  selector: "#dashboard"
logging:
  level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/account", cfg.TargetURL)
		assert.Equal(t, "/tmp/sessions/example.json", cfg.ArtifactPath)
		assert.Equal(t, 2*time.Minute, cfg.LoginTimeout())
		assert.Equal(t, "#dashboard", cfg.Login.Selector)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// Untouched fields keep their defaults.
		assert.Equal(t, "downloaded_page.html", cfg.OutputFile)
		assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("target_url: [unclosed"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("login:\n  timeout_seconds: -5\n"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
