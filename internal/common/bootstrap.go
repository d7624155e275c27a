package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/db"
	"github.com/dtnitsch/llm-event-parser/pkg/llm"
	"github.com/dtnitsch/llm-event-parser/pkg/storage"
	"github.com/dtnitsch/llm-event-parser/pkg/tracing"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

const flushTimeout = 10 * time.Second

// Env holds everything an action needs. Close it when the action returns.
type Env struct {
	Config  *models.Config
	Logger  *slog.Logger
	Catalog *db.DB
	Tracer  *tracing.Tracer

	logOut io.Closer
}

// NewLogger builds the JSON logger for an action. --quiet keeps errors only,
// --verbose adds debug output, --log-file sends logs to a rotated file.
func NewLogger(c *cli.Context) (*slog.Logger, io.Closer) {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer
	)
	if path := c.String("log-file"); path != "" {
		rotated := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		out, closer = rotated, rotated
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: logLevel})), closer
}

// LoadConfig reads the env file and config file named by the global flags.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	if err := models.LoadEnvFile(c.String("env-file")); err != nil {
		return nil, err
	}
	return models.LoadConfig(c.String("config"))
}

// Setup loads configuration, opens the catalog and starts the tracer.
func Setup(c *cli.Context) (*Env, error) {
	logger, logOut := NewLogger(c)

	cfg, err := LoadConfig(c)
	if err != nil {
		closeQuietly(logOut)
		return nil, err
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}

	catalog, err := db.Open(CatalogPath(cfg))
	if err != nil {
		closeQuietly(logOut)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var exporters []sdktrace.SpanExporter
	if cfg.Tracing.Enabled() {
		exp, err := tracing.NewHTTPExporter(c.Context, cfg.Tracing.Host, cfg.Tracing.PublicKey, cfg.Tracing.SecretKey)
		if err != nil {
			catalog.Close()
			closeQuietly(logOut)
			return nil, err
		}
		exporters = append(exporters, exp)
	}
	if cfg.Tracing.Store {
		exporters = append(exporters, db.NewTraceSink(catalog))
	}
	logger.Debug("configuration loaded", "data_dir", cfg.DataDir, "db", catalog.Path(), "trace_exporters", len(exporters))

	return &Env{
		Config:  cfg,
		Logger:  logger,
		Catalog: catalog,
		Tracer:  tracing.New(cfg.Tracing.Project, logger, exporters...),
		logOut:  logOut,
	}, nil
}

// CatalogPath resolves the database location. Relative paths live under
// the data directory.
func CatalogPath(cfg *models.Config) string {
	if cfg.DBPath == ":memory:" || filepath.IsAbs(cfg.DBPath) {
		return cfg.DBPath
	}
	return filepath.Join(cfg.DataDir, cfg.DBPath)
}

// Store returns the crawl record store rooted at the data directory.
func (e *Env) Store() *storage.CrawlStore {
	return storage.NewCrawlStore(e.Config.DataDir)
}

// Inferer builds the model backend. The model flag, when set, replaces
// the configured default.
func (e *Env) Inferer(c *cli.Context) (llm.Inferer, error) {
	return llm.NewAnthropicClient(llm.AnthropicOptions{
		APIKey:       e.Config.LLM.APIKey,
		BaseURL:      e.Config.LLM.BaseURL,
		DefaultModel: e.Model(c),
		MaxTokens:    e.Config.LLM.MaxTokens,
		MaxRetries:   e.Config.LLM.MaxRetries,
	})
}

// Model returns the --model flag or the configured default.
func (e *Env) Model(c *cli.Context) string {
	if m := c.String("model"); m != "" {
		return m
	}
	return e.Config.LLM.DefaultModel
}

// Close flushes the tracer and releases the catalog and log file.
func (e *Env) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := e.Tracer.Close(ctx); err != nil {
		e.Logger.Warn("trace flush failed", "error", err)
	}
	if err := e.Catalog.Close(); err != nil {
		e.Logger.Warn("failed to close database", "error", err)
	}
	closeQuietly(e.logOut)
}

// RunID returns --run-id, or a fresh identifier when the flag is empty.
func RunID(c *cli.Context) string {
	if id := c.String("run-id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
