package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything the console needs to reach the API and tune its cache.
type Config struct {
	APIBaseURL        string
	RequestTimeout    time.Duration
	StaleAfter        time.Duration
	GCAfter           time.Duration
	Retry             int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	RequestsPerSecond float64
	Burst             int
	RefreshInterval   time.Duration
	Session           SessionConfig
}

// SessionConfig selects where the session is persisted.
type SessionConfig struct {
	Backend string
	Path    string
}

const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

const (
	defaultConfigPath      = "~/.config/frontdesk/config.toml"
	defaultAPIBaseURL      = "http://localhost:8080"
	defaultRequestTimeout  = 10 * time.Second
	defaultStaleAfter      = time.Minute
	defaultGCAfter         = 5 * time.Minute
	defaultRetry           = 1
	defaultRetryDelay      = time.Second
	defaultMaxRetryDelay   = 30 * time.Second
	defaultRequestsPerSec  = 10
	defaultBurst           = 20
	defaultRefreshInterval = 15 * time.Second
	defaultSessionFile     = "~/.local/share/frontdesk/session.toml"
	defaultSessionBolt     = "~/.local/share/frontdesk/session.db"

	envAPIURL  = "FRONTDESK_API_URL"
	envTimeout = "FRONTDESK_TIMEOUT"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIBaseURL:        defaultAPIBaseURL,
		RequestTimeout:    defaultRequestTimeout,
		StaleAfter:        defaultStaleAfter,
		GCAfter:           defaultGCAfter,
		Retry:             defaultRetry,
		RetryDelay:        defaultRetryDelay,
		MaxRetryDelay:     defaultMaxRetryDelay,
		RequestsPerSecond: defaultRequestsPerSec,
		Burst:             defaultBurst,
		RefreshInterval:   defaultRefreshInterval,
		Session: SessionConfig{
			Backend: BackendFile,
			Path:    mustExpand(defaultSessionFile),
		},
	}
}

type rawConfig struct {
	APIBaseURL        string   `toml:"api_base_url"`
	RequestTimeout    string   `toml:"request_timeout"`
	StaleAfter        string   `toml:"stale_after"`
	GCAfter           string   `toml:"gc_after"`
	Retry             *int     `toml:"retry"`
	RetryDelay        string   `toml:"retry_delay"`
	MaxRetryDelay     string   `toml:"max_retry_delay"`
	RequestsPerSecond *float64 `toml:"requests_per_second"`
	Burst             *int     `toml:"burst"`
	RefreshInterval   string   `toml:"refresh_interval"`
	Session           struct {
		Backend string `toml:"backend"`
		Path    string `toml:"path"`
	} `toml:"session"`
}

// Load reads the config at path (or the default path), applies environment
// overrides and fills defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw rawConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.merge(raw); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(raw rawConfig) error {
	if v := strings.TrimSpace(raw.APIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	durations := []struct {
		key   string
		value string
		dest  *time.Duration
	}{
		{"request_timeout", raw.RequestTimeout, &c.RequestTimeout},
		{"stale_after", raw.StaleAfter, &c.StaleAfter},
		{"gc_after", raw.GCAfter, &c.GCAfter},
		{"retry_delay", raw.RetryDelay, &c.RetryDelay},
		{"max_retry_delay", raw.MaxRetryDelay, &c.MaxRetryDelay},
		{"refresh_interval", raw.RefreshInterval, &c.RefreshInterval},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := parseDuration(d.key, d.value)
		if err != nil {
			return err
		}
		*d.dest = parsed
	}
	if raw.Retry != nil {
		if *raw.Retry < 0 {
			return fmt.Errorf("config retry: must not be negative")
		}
		c.Retry = *raw.Retry
	}
	if raw.RequestsPerSecond != nil {
		c.RequestsPerSecond = *raw.RequestsPerSecond
	}
	if raw.Burst != nil {
		c.Burst = *raw.Burst
	}

	backend := strings.ToLower(strings.TrimSpace(raw.Session.Backend))
	switch backend {
	case "", BackendFile:
		c.Session.Backend = BackendFile
	case BackendBolt:
		c.Session.Backend = BackendBolt
		c.Session.Path = mustExpand(defaultSessionBolt)
	default:
		return fmt.Errorf("config session.backend: unknown backend %q", raw.Session.Backend)
	}
	if p := strings.TrimSpace(raw.Session.Path); p != "" {
		expanded, err := expandPath(p)
		if err != nil {
			return fmt.Errorf("config session.path: %w", err)
		}
		c.Session.Path = expanded
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		c.APIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envTimeout)); v != "" {
		d, err := parseDuration(envTimeout, v)
		if err != nil {
			return err
		}
		c.RequestTimeout = d
	}
	return nil
}

// parseDuration accepts Go duration strings and bare milliseconds.
func parseDuration(key, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("config %s: must not be negative", key)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config %s: must not be negative", key)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
