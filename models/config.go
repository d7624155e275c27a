// Package models defines data structures for configuration and the event
// extraction pipeline.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultEnvFile    = "local.env"
	DefaultDataDir    = "data"
	DefaultDBName     = "llm-event-parser.db"

	DefaultModel        = "claude-3-5-haiku-20241022"
	DefaultCrawlLimit   = 200
	DefaultPollInterval = 5 * time.Second
	DefaultCrawlAPIURL  = "https://api.firecrawl.dev"
	ProjectTag          = "pragmatic_dspy"
)

// Config is process-wide configuration. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
	Pretrim bool   `yaml:"pretrim"`

	Fetch      FetchConfig      `yaml:"fetch"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	LLM        LLMConfig        `yaml:"llm"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Signatures SignaturesConfig `yaml:"signatures"`
}

// FetchConfig controls the direct HTML fetcher.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	// CacheTTL keeps fetched documents under <data_dir>/.cache; 0 disables reuse.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// CrawlConfig controls the external crawling service.
type CrawlConfig struct {
	APIURL       string        `yaml:"api_url"`
	APIKey       string        `yaml:"-"`
	Limit        int           `yaml:"limit"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Formats      []string      `yaml:"formats"`
}

// LLMConfig controls the inference backend.
type LLMConfig struct {
	APIKey       string `yaml:"-"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
	MaxTokens    int64  `yaml:"max_tokens"`
	MaxRetries   int    `yaml:"max_retries"`
}

// TracingConfig controls the trace exporters.
type TracingConfig struct {
	Host      string `yaml:"host"`
	PublicKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Project   string `yaml:"project"`
	// Store also writes spans into the local catalog.
	Store bool `yaml:"store"`
}

// Enabled reports whether the OTLP exporter has enough configuration to send.
func (t TracingConfig) Enabled() bool {
	return t.Host != "" && t.PublicKey != "" && t.SecretKey != ""
}

// SignaturesConfig points at optional optimised prompt configurations.
type SignaturesConfig struct {
	Extractor string `yaml:"extractor"`
	Evaluator string `yaml:"evaluator"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir,
		DBPath:  DefaultDBName,
		Fetch: FetchConfig{
			UserAgent: "llm-event-parser/1.0",
			Timeout:   30 * time.Second,
			CacheTTL:  24 * time.Hour,
		},
		Crawl: CrawlConfig{
			APIURL:       DefaultCrawlAPIURL,
			Limit:        DefaultCrawlLimit,
			PollInterval: DefaultPollInterval,
			Formats:      []string{"html"},
		},
		LLM: LLMConfig{
			DefaultModel: DefaultModel,
			MaxTokens:    4096,
		},
		Tracing: TracingConfig{
			Project: ProjectTag,
		},
	}
}

// LoadConfig reads a YAML config file on top of the defaults and then
// applies secrets from the environment. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a local override file into the
// process environment. Variables already set are not overwritten.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv copies credentials and endpoints from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FIRECRAWL_API_KEY"); v != "" {
		c.Crawl.APIKey = v
	}
	if v := os.Getenv("FIRECRAWL_API_URL"); v != "" {
		c.Crawl.APIURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LANGFUSE_PUBLIC_KEY"); v != "" {
		c.Tracing.PublicKey = v
	}
	if v := os.Getenv("LANGFUSE_SECRET_KEY"); v != "" {
		c.Tracing.SecretKey = v
	}
	if v := os.Getenv("LANGFUSE_HOST"); v != "" {
		c.Tracing.Host = v
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Crawl.Limit <= 0 {
		return fmt.Errorf("crawl.limit must be positive, got %d", c.Crawl.Limit)
	}
	if c.Crawl.PollInterval <= 0 {
		return fmt.Errorf("crawl.poll_interval must be positive, got %s", c.Crawl.PollInterval)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}
