package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "CODEMENTOR_MODEL", "CODEMENTOR_ADDR", "CODEMENTOR_LOG_FILE",
		"CODEMENTOR_LOG_LEVEL", "CODEMENTOR_TEMPERATURE", "CODEMENTOR_AUTO_SUGGEST",
		"CODEMENTOR_MIN_INTERVAL", "CODEMENTOR_CONFIG", "CODEMENTOR_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Model)
	assert.Equal(t, int64(100000), cfg.Scan.MaxFileSize)
	assert.Equal(t, 100, cfg.Context.TruncateAbove)
	assert.Equal(t, 50, cfg.Context.HeadTail)
	assert.Equal(t, 2*time.Second, cfg.Completion.MinInterval)
	assert.Equal(t, 100, cfg.Completion.CacheSize)
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.Source)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	yml := `
api_key: from-file
model: gemini-2.5-pro
temperature: 0.3
scan:
  respect_gitignore: true
  ignore: [node_modules, .git, vendor]
completion:
  min_interval: 500ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(yml), 0o644))
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, cfg.Source)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	assert.True(t, cfg.Scan.RespectGitignore)
	assert.Equal(t, []string{"node_modules", ".git", "vendor"}, cfg.Scan.IgnoreNames)
	assert.Equal(t, 500*time.Millisecond, cfg.Completion.MinInterval)
	// Unset keys keep their defaults.
	assert.Equal(t, 100, cfg.Context.TruncateAbove)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CODEMENTOR_AUTO_SUGGEST", "maybe")
	_, err := Load("")
	assert.ErrorContains(t, err, "CODEMENTOR_AUTO_SUGGEST")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	hot := float32(3)
	cfg.Temperature = &hot
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Context.HeadTail = 60
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Model = " "
	assert.Error(t, cfg.Validate())
}

func TestLoad_AllowedOrigins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile),
		[]byte("allowed_origins:\n  - https://panel.example\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://panel.example"}, cfg.AllowedOrigins)

	t.Setenv("CODEMENTOR_ALLOWED_ORIGINS", " https://a.example, ,https://b.example ")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
