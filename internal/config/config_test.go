package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envAPIURL, "")
	t.Setenv(envTimeout, "")

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, defaultAPIBaseURL)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.StaleAfter != time.Minute || cfg.GCAfter != 5*time.Minute || cfg.Retry != 1 {
		t.Fatalf("cache defaults = %v/%v/%d, want 1m/5m/1", cfg.StaleAfter, cfg.GCAfter, cfg.Retry)
	}
	if cfg.Session.Backend != BackendFile {
		t.Fatalf("Session.Backend = %q, want %q", cfg.Session.Backend, BackendFile)
	}
	want := filepath.Join(home, ".local", "share", "frontdesk", "session.toml")
	if cfg.Session.Path != want {
		t.Fatalf("Session.Path = %q, want %q", cfg.Session.Path, want)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envAPIURL, "")
	t.Setenv(envTimeout, "")

	path := writeConfig(t, `
api_base_url = "  https://api.example.com  "
request_timeout = "5s"
stale_after = "30s"
retry = 0
retry_delay = "500"
requests_per_second = 2.5
refresh_interval = "1m"

[session]
backend = "bolt"
path = "  ~/.frontdesk/session.db  "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.StaleAfter != 30*time.Second {
		t.Fatalf("durations = %v/%v", cfg.RequestTimeout, cfg.StaleAfter)
	}
	if cfg.Retry != 0 {
		t.Fatalf("Retry = %d, want 0", cfg.Retry)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Fatalf("RetryDelay = %v, want 500ms", cfg.RetryDelay)
	}
	if cfg.RequestsPerSecond != 2.5 || cfg.Burst != defaultBurst {
		t.Fatalf("rate = %v/%d", cfg.RequestsPerSecond, cfg.Burst)
	}
	if cfg.RefreshInterval != time.Minute {
		t.Fatalf("RefreshInterval = %v, want 1m", cfg.RefreshInterval)
	}
	if cfg.Session.Backend != BackendBolt {
		t.Fatalf("Session.Backend = %q", cfg.Session.Backend)
	}
	if !strings.HasPrefix(cfg.Session.Path, home) || !strings.HasSuffix(cfg.Session.Path, "session.db") {
		t.Fatalf("Session.Path = %q, want it under HOME %q", cfg.Session.Path, home)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envAPIURL, "http://10.0.0.5:9000")
	t.Setenv(envTimeout, "2500")

	cfg, err := Load(writeConfig(t, `api_base_url = "http://ignored"`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != "http://10.0.0.5:9000" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 2500*time.Millisecond {
		t.Fatalf("RequestTimeout = %v, want 2.5s", cfg.RequestTimeout)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envAPIURL, "")
	t.Setenv(envTimeout, "")

	cases := map[string]string{
		"invalid toml":     "api_base_url = ",
		"bad duration":     `stale_after = "soon"`,
		"negative retry":   `retry = -1`,
		"unknown backend":  "[session]\nbackend = \"redis\"",
		"negative timeout": `request_timeout = "-1s"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("Load(%q) returned nil error", body)
			}
		})
	}
}

func TestLoad_InvalidTOMLMentionsParse(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(writeConfig(t, "api_base_url = "))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("err = %v, want parse config error", err)
	}
}
