package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
trust_list:
  feed_url: https://feeds.example.com/origins
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "phishguard" {
		t.Errorf("service name = %q", cfg.Service.Name)
	}
	if cfg.Service.Port != 8085 {
		t.Errorf("port = %d, want 8085", cfg.Service.Port)
	}
	if cfg.TrustList.FeedURL != "https://feeds.example.com/origins" {
		t.Errorf("trust feed = %q", cfg.TrustList.FeedURL)
	}
	if cfg.TrustList.MaxAgeDays != 30 {
		t.Errorf("trust max age = %d, want 30", cfg.TrustList.MaxAgeDays)
	}
	if cfg.BlockList.MaxEntries != 1000 {
		t.Errorf("block max entries = %d, want 1000", cfg.BlockList.MaxEntries)
	}
	if cfg.Personal.Capacity != 30 {
		t.Errorf("personal capacity = %d, want 30", cfg.Personal.Capacity)
	}
	if cfg.Models.Ollama.Timeout != 60*time.Second {
		t.Errorf("ollama timeout = %v, want 60s", cfg.Models.Ollama.Timeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadYAMLValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
service:
  port: 9090
  shutdown_timeout: 5s
trust_list:
  feed_url: https://feeds.example.com/origins
  top_n: 5000
block_list:
  max_entries: 250
models:
  ollama:
    model: llava:13b
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Service.Port)
	}
	if cfg.Service.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want 5s", cfg.Service.ShutdownTimeout)
	}
	if cfg.TrustList.TopN != 5000 {
		t.Errorf("top_n = %d, want 5000", cfg.TrustList.TopN)
	}
	if cfg.BlockList.MaxEntries != 250 {
		t.Errorf("block max entries = %d, want 250", cfg.BlockList.MaxEntries)
	}
	if cfg.Models.Ollama.Model != "llava:13b" {
		t.Errorf("ollama model = %q", cfg.Models.Ollama.Model)
	}
}

func TestLoadEnvOverridesWin(t *testing.T) {
	t.Setenv("PHISHGUARD_PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, `
service:
  port: 9090
logging:
  level: warn
trust_list:
  feed_url: https://feeds.example.com/origins
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Service.Port)
	}
	if cfg.Models.Gemini.APIKey != "test-key" {
		t.Errorf("gemini api key = %q", cfg.Models.Gemini.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want env override debug", cfg.Logging.Level)
	}
}

func TestLoadRequiresTrustFeed(t *testing.T) {
	if _, err := Load(writeConfig(t, "service:\n  port: 8085\n")); err == nil {
		t.Fatal("expected error for missing trust_list.feed_url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
