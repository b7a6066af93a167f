package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// validEnv pins every variable so a developer's own environment cannot leak in.
func validEnv() map[string]string {
	return map[string]string{
		"REELGEN_SERVICE_URL":        "http://localhost:8000",
		"REELGEN_SERVICE_TOKEN":      "",
		"REELGEN_REQUEST_TIMEOUT":    "",
		"REELGEN_POLL_INTERVAL":      "",
		"REELGEN_HISTORY_URL":        "memory://",
		"REELGEN_PORT":               "",
		"REELGEN_ENV":                "",
		"REELGEN_LOG_LEVEL":          "",
		"REELGEN_LOG_FORMAT":         "",
		"REELGEN_API_KEY_HASH":       "",
		"REELGEN_RATE_LIMIT_PER_MIN": "",
	}
}

// inTempDir runs the test from an empty directory so no stray .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	setEnv(t, validEnv())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Service.URL)
	assert.Equal(t, 30*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Service.PollInterval)
	assert.Equal(t, "memory://", cfg.History.URL)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 10, cfg.Server.RateLimitPerMin)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DefaultHistoryIsSQLite(t *testing.T) {
	inTempDir(t)
	env := validEnv()
	env["REELGEN_HISTORY_URL"] = ""
	setEnv(t, env)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cfg.History.URL, "sqlite://"), cfg.History.URL)
	assert.True(t, strings.HasSuffix(cfg.History.URL, filepath.Join("reelgen", "history.db")), cfg.History.URL)
}

func TestLoad_CustomValues(t *testing.T) {
	inTempDir(t)
	env := validEnv()
	env["REELGEN_SERVICE_URL"] = "https://gpu.example.com"
	env["REELGEN_REQUEST_TIMEOUT"] = "10s"
	env["REELGEN_POLL_INTERVAL"] = "2s"
	env["REELGEN_PORT"] = "9090"
	env["REELGEN_LOG_LEVEL"] = "DEBUG"
	env["REELGEN_LOG_FORMAT"] = "text"
	setEnv(t, env)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://gpu.example.com", cfg.Service.URL)
	assert.Equal(t, 10*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Service.PollInterval)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"REELGEN_SERVICE_URL", "localhost:8000", "REELGEN_SERVICE_URL"},
		{"REELGEN_POLL_INTERVAL", "500ms", "REELGEN_POLL_INTERVAL"},
		{"REELGEN_REQUEST_TIMEOUT", "-1s", "REELGEN_REQUEST_TIMEOUT"},
		{"REELGEN_HISTORY_URL", "mongodb://db", "REELGEN_HISTORY_URL"},
		{"REELGEN_PORT", "70000", "REELGEN_PORT"},
		{"REELGEN_RATE_LIMIT_PER_MIN", "-3", "REELGEN_RATE_LIMIT_PER_MIN"},
		{"REELGEN_API_KEY_HASH", "plaintext", "REELGEN_API_KEY_HASH"},
		{"REELGEN_LOG_LEVEL", "verbose", "REELGEN_LOG_LEVEL"},
		{"REELGEN_LOG_FORMAT", "xml", "REELGEN_LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			inTempDir(t)
			env := validEnv()
			env[tt.key] = tt.value
			setEnv(t, env)

			_, err := config.Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_UnparseableNumbersFallBackToDefaults(t *testing.T) {
	inTempDir(t)
	env := validEnv()
	env["REELGEN_PORT"] = "abc"
	env["REELGEN_POLL_INTERVAL"] = "soon"
	setEnv(t, env)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Service.PollInterval)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := inTempDir(t)
	env := validEnv()
	delete(env, "REELGEN_PORT")
	setEnv(t, env)
	t.Setenv("REELGEN_PORT", "")
	os.Unsetenv("REELGEN_PORT")

	path := filepath.Join(dir, "reelgen.env")
	require.NoError(t, os.WriteFile(path, []byte("REELGEN_PORT=7001\nREELGEN_SERVICE_URL=http://ignored:1\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Service.URL, "real environment wins over the file")
}

func TestLoad_MissingEnvFile(t *testing.T) {
	inTempDir(t)
	setEnv(t, validEnv())

	_, err := config.Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestLoad_OptionalDotenv(t *testing.T) {
	dir := inTempDir(t)
	env := validEnv()
	setEnv(t, env)
	t.Setenv("REELGEN_ENV", "")
	os.Unsetenv("REELGEN_ENV")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REELGEN_ENV=staging\n"), 0o600))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Server.Env)
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", config.LogConfig{Level: "debug"}.SlogLevel().String())
	assert.Equal(t, "WARN", config.LogConfig{Level: "warn"}.SlogLevel().String())
}
