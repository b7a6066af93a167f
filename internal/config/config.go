package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the reelgen CLI and local API.
type Config struct {
	Service ServiceConfig
	History HistoryConfig
	Server  ServerConfig
	Log     LogConfig
}

// ServiceConfig points at the remote generation service.
type ServiceConfig struct {
	URL          string
	Token        string
	Timeout      time.Duration
	PollInterval time.Duration
}

type HistoryConfig struct {
	URL string
}

type ServerConfig struct {
	Port            int
	Env             string
	APIKeyHash      string
	RateLimitPerMin int
}

type LogConfig struct {
	Level  string
	Format string
}

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var validHistorySchemes = map[string]bool{
	"memory":     true,
	"redis":      true,
	"rediss":     true,
	"postgres":   true,
	"postgresql": true,
	"sqlite":     true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Variables from envFile are loaded first without overriding the real
// environment; an empty envFile means an optional ./.env.
func Load(envFile string) (*Config, error) {
	if err := loadDotenv(envFile); err != nil {
		return nil, err
	}

	cfg := &Config{
		Service: ServiceConfig{
			URL:          envString("REELGEN_SERVICE_URL", "http://localhost:8000"),
			Token:        os.Getenv("REELGEN_SERVICE_TOKEN"),
			Timeout:      envDuration("REELGEN_REQUEST_TIMEOUT", 30*time.Second),
			PollInterval: envDuration("REELGEN_POLL_INTERVAL", 5*time.Second),
		},
		History: HistoryConfig{
			URL: envString("REELGEN_HISTORY_URL", defaultHistoryURL()),
		},
		Server: ServerConfig{
			Port:            envInt("REELGEN_PORT", 8090),
			Env:             envString("REELGEN_ENV", "development"),
			APIKeyHash:      os.Getenv("REELGEN_API_KEY_HASH"),
			RateLimitPerMin: envInt("REELGEN_RATE_LIMIT_PER_MIN", 10),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envString("REELGEN_LOG_LEVEL", "info")),
			Format: strings.ToLower(envString("REELGEN_LOG_FORMAT", "json")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Service.URL, "http://") && !strings.HasPrefix(c.Service.URL, "https://") {
		return fmt.Errorf("REELGEN_SERVICE_URL must start with http:// or https://, got %q", c.Service.URL)
	}
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("REELGEN_REQUEST_TIMEOUT must be positive, got %s", c.Service.Timeout)
	}
	if c.Service.PollInterval < time.Second {
		return fmt.Errorf("REELGEN_POLL_INTERVAL must be at least 1s, got %s", c.Service.PollInterval)
	}

	u, err := url.Parse(c.History.URL)
	if err != nil || !validHistorySchemes[u.Scheme] {
		return fmt.Errorf("REELGEN_HISTORY_URL must be a memory://, redis://, postgres:// or sqlite:// url; got %q", c.History.URL)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("REELGEN_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("REELGEN_RATE_LIMIT_PER_MIN must not be negative, got %d", c.Server.RateLimitPerMin)
	}
	if c.Server.APIKeyHash != "" && !strings.HasPrefix(c.Server.APIKeyHash, "$2") {
		return fmt.Errorf("REELGEN_API_KEY_HASH must be a bcrypt hash")
	}

	if _, ok := validLogLevels[c.Log.Level]; !ok {
		return fmt.Errorf("REELGEN_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("REELGEN_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// SlogLevel returns the configured level. Load has already validated it.
func (l LogConfig) SlogLevel() slog.Level {
	return validLogLevels[l.Level]
}

func loadDotenv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func defaultHistoryURL() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "memory://"
	}
	return "sqlite://" + filepath.Join(dir, "reelgen", "history.db")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
