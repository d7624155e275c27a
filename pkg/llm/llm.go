// Package llm is the boundary to the model provider. Components depend on the
// Inferer interface so the backend can be swapped.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dtnitsch/llm-event-parser/pkg/signature"
)

const systemPrompt = "You extract and judge structured information from web pages. " +
	"Always answer with exactly one JSON object matching the requested keys."

// Request is a single inference round trip. Model is scoped to this call.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Inferer performs one blocking inference call.
type Inferer interface {
	Infer(ctx context.Context, req Request) (string, error)
}

// InferFunc adapts a function to Inferer.
type InferFunc func(ctx context.Context, req Request) (string, error)

func (f InferFunc) Infer(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Prediction is the outcome of Predict: the validated outputs plus the raw
// exchange for tracing.
type Prediction struct {
	Outputs  signature.Values
	Prompt   string
	Response string
	Model    string
}

// Predict renders sig with inputs, calls the model and validates the reply.
// Malformed replies surface as *signature.SchemaViolation.
func Predict(ctx context.Context, inf Inferer, sig signature.Signature, cfg *signature.Config, inputs signature.Values, model string) (*Prediction, error) {
	prompt, err := sig.Render(inputs, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	pred := &Prediction{Prompt: prompt, Model: model}
	pred.Response, err = inf.Infer(ctx, Request{Model: model, System: systemPrompt, Prompt: prompt})
	if err != nil {
		return pred, fmt.Errorf("%s inference failed: %w", sig.Name, err)
	}

	pred.Outputs, err = sig.Parse(pred.Response)
	if err != nil {
		return pred, err
	}
	return pred, nil
}

// NormalizeModel strips a provider prefix ("anthropic/claude-...") and falls
// back to def when model is empty.
func NormalizeModel(model, def string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return def
	}
	if provider, name, ok := strings.Cut(model, "/"); ok && provider == "anthropic" {
		return name
	}
	return model
}
