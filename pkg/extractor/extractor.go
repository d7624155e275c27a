package extractor

import (
	"context"
	"log/slog"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/llm"
	"github.com/dtnitsch/llm-event-parser/pkg/signature"
	"github.com/dtnitsch/llm-event-parser/pkg/tracing"
)

// Options configure a component at construction.
type Options struct {
	// ConfigPath points at a saved, optimised prompt configuration.
	// Empty means default prompting.
	ConfigPath string
	// DefaultModel serves calls that do not name a model.
	DefaultModel string
	Logger       *slog.Logger
}

func (o Options) model() string {
	if o.DefaultModel == "" {
		return models.DefaultModel
	}
	return o.DefaultModel
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) loadConfig() (*signature.Config, error) {
	if o.ConfigPath == "" {
		return nil, nil
	}
	return signature.LoadConfig(o.ConfigPath)
}

// Extractor turns an event page into an ExtractionResult.
type Extractor struct {
	inf    llm.Inferer
	tracer *tracing.Tracer
	cfg    *signature.Config
	model  string
	logger *slog.Logger
}

// NewExtractor loads the optional optimised configuration up front; a bad
// config path fails construction.
func NewExtractor(inf llm.Inferer, tracer *tracing.Tracer, opts Options) (*Extractor, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		inf:    inf,
		tracer: tracer,
		cfg:    cfg,
		model:  opts.model(),
		logger: opts.logger(),
	}, nil
}

// Optimised reports whether a saved configuration was loaded.
func (e *Extractor) Optimised() bool {
	return e.cfg != nil
}

// Extract runs one inference call with model, or the default model when
// empty. runID only tags the trace.
func (e *Extractor) Extract(ctx context.Context, html, url, model, runID string) (models.ExtractionResult, error) {
	model = llm.NormalizeModel(model, e.model)

	span := e.tracer.Start("extract", runID, map[string]any{
		"url":        url,
		"html_bytes": len(html),
		"optimised":  e.Optimised(),
	})
	span.SetModel(model)

	pred, err := llm.Predict(ctx, e.inf, ExtractorSignature, e.cfg, signature.Values{"url": url, "html": html}, model)
	if err != nil {
		span.End(responseOf(pred), err)
		e.logger.Warn("extraction failed", "url", url, "model", model, "error", err)
		return models.ExtractionResult{}, err
	}

	result := models.ExtractionResult{
		Title:       pred.Outputs.String("title"),
		Description: pred.Outputs.String("description"),
		Location:    pred.Outputs.String("location"),
		StartTime:   pred.Outputs.OptString("start_time"),
		EndTime:     pred.Outputs.OptString("end_time"),
	}
	span.End(result, nil)

	e.logger.Debug("extracted event", "url", url, "model", model, "title", result.Title)
	return result, nil
}

// responseOf keeps the raw reply of a failed call for the trace.
func responseOf(pred *llm.Prediction) any {
	if pred == nil || pred.Response == "" {
		return nil
	}
	return map[string]string{"raw": pred.Response}
}
