package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FIRECRAWL_API_KEY", "FIRECRAWL_API_URL", "ANTHROPIC_API_KEY",
		"LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY", "LANGFUSE_HOST",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Crawl.Limit != 200 {
		t.Errorf("Crawl.Limit = %d, want 200", cfg.Crawl.Limit)
	}
	if cfg.Crawl.PollInterval != 5*time.Second {
		t.Errorf("Crawl.PollInterval = %s, want 5s", cfg.Crawl.PollInterval)
	}
	if len(cfg.Crawl.Formats) != 1 || cfg.Crawl.Formats[0] != "html" {
		t.Errorf("Crawl.Formats = %v, want [html]", cfg.Crawl.Formats)
	}
	if cfg.LLM.DefaultModel != DefaultModel {
		t.Errorf("LLM.DefaultModel = %q, want %q", cfg.LLM.DefaultModel, DefaultModel)
	}
	if cfg.Tracing.Enabled() {
		t.Error("Tracing.Enabled() = true without credentials")
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LANGFUSE_HOST", "https://trace.example.com")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: crawls
pretrim: true
crawl:
  limit: 10
  poll_interval: 2s
llm:
  default_model: claude-test
  max_retries: 2
signatures:
  extractor: tuned/extractor.yaml
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "crawls" {
		t.Errorf("DataDir = %q, want crawls", cfg.DataDir)
	}
	if !cfg.Pretrim {
		t.Error("Pretrim = false, want true")
	}
	if cfg.Crawl.Limit != 10 || cfg.Crawl.PollInterval != 2*time.Second {
		t.Errorf("Crawl = %+v", cfg.Crawl)
	}
	if cfg.LLM.DefaultModel != "claude-test" || cfg.LLM.MaxRetries != 2 {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("LLM.APIKey = %q, want from env", cfg.LLM.APIKey)
	}
	if !cfg.Tracing.Enabled() {
		t.Error("Tracing.Enabled() = false with env credentials")
	}
	if cfg.Signatures.Extractor != "tuned/extractor.yaml" {
		t.Errorf("Signatures.Extractor = %q", cfg.Signatures.Extractor)
	}
	// Untouched keys keep their defaults.
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch.Timeout = %s, want 30s", cfg.Fetch.Timeout)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"zero limit", "crawl:\n  limit: -1\n"},
		{"negative retries", "llm:\n  max_retries: -3\n"},
		{"bad yaml", "crawl: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig() expected error")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("FIRECRAWL_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "already-set")

	path := filepath.Join(t.TempDir(), "local.env")
	content := "FIRECRAWL_API_KEY=fc-from-file\nANTHROPIC_API_KEY=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("ANTHROPIC_API_KEY"); got != "already-set" {
		t.Errorf("ANTHROPIC_API_KEY = %q, existing value should win", got)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadEnvFile() on missing file error = %v", err)
	}
}
