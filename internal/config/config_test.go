package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, 50, cfg.MaxOccurrences)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
timezone: Asia/Kolkata
week_start: Monday
max_occurrences: -3
ics:
  - url: https://example.com/holidays.ics
    name: holidays
    type: Holiday
basic_auth:
  username: admin
  password: ""
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, 50, cfg.MaxOccurrences)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "holidays", cfg.ICS[0].ID)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: 0.0.0.0:9000\n"), 0o600))

	t.Setenv("PEOPLEPULSE_LISTEN", "0.0.0.0:7000")
	t.Setenv("PEOPLEPULSE_MAX_OCCURRENCES", "10")
	t.Setenv("PEOPLEPULSE_BASIC_AUTH_USERNAME", "hr")
	t.Setenv("PEOPLEPULSE_BASIC_AUTH_PASSWORD", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Listen)
	assert.Equal(t, 10, cfg.MaxOccurrences)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "hr", cfg.BasicAuth.Username)
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load("")
	assert.True(t, errors.Is(err, ErrEmptyPath))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ViewerID = "emp-7"
	cfg.Dataset = "/var/lib/peoplepulse/hr.json"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	assert.True(t, errors.Is(Save(path, nil), ErrNilConfig))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PEOPLEPULSE_TEST_MARKER=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PEOPLEPULSE_TEST_MARKER") })

	n, err := LoadEnvFiles(envFile, filepath.Join(dir, ".env.local"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "loaded", os.Getenv("PEOPLEPULSE_TEST_MARKER"))
}

func TestLocationAndSources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Kolkata"
	cfg.ICS = []ICSConfig{
		{URL: "https://example.com/a.ics", ID: "a", Type: "Holiday", Color: "#123456"},
		{ID: "no-url"},
	}

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	sources := cfg.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "a", sources[0].ID)
	assert.Equal(t, "Holiday", sources[0].Type)

	cfg.Timezone = "Mars/Olympus"
	_, err = cfg.Location()
	assert.Error(t, err)
}
