package extractor

import (
	"context"
	"log/slog"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/llm"
	"github.com/dtnitsch/llm-event-parser/pkg/signature"
	"github.com/dtnitsch/llm-event-parser/pkg/tracing"
)

// EvaluationInput is an extraction paired with the page it came from.
type EvaluationInput struct {
	URL         string
	HTML        string
	Title       string
	Description string
	Location    string
	StartTime   *string
	EndTime     *string
	// Model overrides the evaluator's default for this call.
	Model string
}

// InputFor builds an EvaluationInput from an extraction.
func InputFor(url, html string, r models.ExtractionResult) EvaluationInput {
	return EvaluationInput{
		URL:         url,
		HTML:        html,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

func (in EvaluationInput) values() signature.Values {
	return signature.Values{
		"url":         in.URL,
		"html":        in.HTML,
		"title":       in.Title,
		"description": in.Description,
		"location":    in.Location,
		"start_time":  optional(in.StartTime),
		"end_time":    optional(in.EndTime),
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Evaluator scores extractions against the source HTML. Details the
// extraction invents are penalised more than details it leaves out.
type Evaluator struct {
	inf    llm.Inferer
	tracer *tracing.Tracer
	cfg    *signature.Config
	model  string
	logger *slog.Logger
}

func NewEvaluator(inf llm.Inferer, tracer *tracing.Tracer, opts Options) (*Evaluator, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		inf:    inf,
		tracer: tracer,
		cfg:    cfg,
		model:  opts.model(),
		logger: opts.logger(),
	}, nil
}

// Optimised reports whether a saved configuration was loaded.
func (e *Evaluator) Optimised() bool {
	return e.cfg != nil
}

// Evaluate makes one inference call. A score outside [0,1] is a
// *signature.SchemaViolation.
func (e *Evaluator) Evaluate(ctx context.Context, in EvaluationInput, runID string) (models.EvaluationResult, error) {
	model := llm.NormalizeModel(in.Model, e.model)

	span := e.tracer.Start("evaluate", runID, map[string]any{
		"url":         in.URL,
		"title":       in.Title,
		"description": in.Description,
		"location":    in.Location,
		"start_time":  optional(in.StartTime),
		"end_time":    optional(in.EndTime),
		"optimised":   e.Optimised(),
	})
	span.SetModel(model)

	pred, err := llm.Predict(ctx, e.inf, GroundTruthSignature, e.cfg, in.values(), model)
	if err != nil {
		span.End(responseOf(pred), err)
		e.logger.Warn("evaluation failed", "url", in.URL, "model", model, "error", err)
		return models.EvaluationResult{}, err
	}

	result := models.EvaluationResult{
		Score:     models.ClampScore(pred.Outputs.Float("score")),
		Reasoning: pred.Outputs.String("reasoning"),
	}
	span.End(result, nil)

	e.logger.Debug("evaluated extraction", "url", in.URL, "score", result.Score)
	return result, nil
}
