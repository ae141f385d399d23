package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.URL != "http://127.0.0.1:8787" {
		t.Fatalf("Server.URL = %q, want default", cfg.Server.URL)
	}
	if len(cfg.Channels) != 2 || cfg.Channels[0].ID != "amazon" || cfg.Channels[1].ID != "rakuten" {
		t.Fatalf("Channels = %+v, want amazon and rakuten", cfg.Channels)
	}
	for _, ch := range cfg.Channels {
		if !ch.BulkRunEnabled() || !ch.CompletionEnabled() {
			t.Fatalf("channel %q capabilities = %v/%v, want both enabled by default",
				ch.ID, ch.BulkRunEnabled(), ch.CompletionEnabled())
		}
	}
	if cfg.Timeout() != 15*time.Second {
		t.Fatalf("Timeout = %v, want 15s", cfg.Timeout())
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval())
	}
}

func TestLoad_ExplicitMissingPathFallsBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.URL != "http://127.0.0.1:8787" {
		t.Fatalf("Server.URL = %q, want default", cfg.Server.URL)
	}
}

func TestLoad_ParsesYAMLAndExpandsPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := `
server:
  url: "https://ledger.internal:9443"
  token_file: "~/.config/platen/token"
  timeout_seconds: 30
  poll_seconds: 10
period: "2026-02"
channels:
  - id: amazon
    label: Amazon JP
    bulk_run: false
  - id: base
    completion: false
logging:
  file: "~/logs/platen.log"
  level: DEBUG
cache:
  file: "~/cache/platen.db"
`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.URL != "https://ledger.internal:9443" {
		t.Fatalf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Timeout() != 30*time.Second || cfg.PollInterval() != 10*time.Second {
		t.Fatalf("durations = %v/%v, want 30s/10s", cfg.Timeout(), cfg.PollInterval())
	}
	if cfg.Period != "2026-02" {
		t.Fatalf("Period = %q, want 2026-02", cfg.Period)
	}
	if len(cfg.Channels) != 2 {
		t.Fatalf("Channels = %+v, want the two from the file", cfg.Channels)
	}

	amazon := cfg.Channels[0]
	if amazon.DisplayName() != "Amazon JP" || amazon.BulkRunEnabled() || !amazon.CompletionEnabled() {
		t.Fatalf("amazon channel = %+v, want label and bulk_run disabled", amazon)
	}
	base := cfg.Channels[1]
	if base.DisplayName() != "Base" || !base.BulkRunEnabled() || base.CompletionEnabled() {
		t.Fatalf("base channel = %+v, want fallback name and completion disabled", base)
	}

	if !strings.HasPrefix(cfg.Logging.File, home) {
		t.Fatalf("Logging.File = %q, want expanded under HOME %q", cfg.Logging.File, home)
	}
	if !strings.HasPrefix(cfg.Server.TokenFile, home) {
		t.Fatalf("Server.TokenFile = %q, want expanded under HOME", cfg.Server.TokenFile)
	}
	if !strings.HasPrefix(cfg.Cache.File, home) {
		t.Fatalf("Cache.File = %q, want expanded under HOME", cfg.Cache.File)
	}
}

func TestLoad_EnvOverridesServerURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PLATEN_SERVER_URL", "http://10.1.1.1:9000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.URL != "http://10.1.1.1:9000" {
		t.Fatalf("Server.URL = %q, want the environment override", cfg.Server.URL)
	}
}

func TestLoad_RejectsBadChannelSets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	dup := filepath.Join(dir, "dup.yaml")
	if err := os.WriteFile(dup, []byte(`
channels:
  - id: amazon
  - id: amazon
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(dup); err == nil || !strings.Contains(err.Error(), "duplicate channel") {
		t.Fatalf("Load(dup) error = %v, want duplicate channel", err)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte(`
channels:
  - label: nameless
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(empty); err == nil || !strings.Contains(err.Error(), "empty id") {
		t.Fatalf("Load(empty id) error = %v, want empty id", err)
	}
}

func TestFindChannel_SuggestsClosest(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	ch, err := cfg.FindChannel("rakuten")
	if err != nil {
		t.Fatalf("FindChannel returned error: %v", err)
	}
	if ch.DisplayName() != "Rakuten" {
		t.Fatalf("DisplayName = %q, want Rakuten", ch.DisplayName())
	}

	_, err = cfg.FindChannel("amazn")
	if err == nil || !strings.Contains(err.Error(), `"amazon"`) {
		t.Fatalf("FindChannel(amazn) error = %v, want a suggestion for amazon", err)
	}

	_, err = cfg.FindChannel("zzz")
	if err == nil {
		t.Fatalf("FindChannel(zzz) = nil error, want unknown channel")
	}
}
