// Package tracing records one trace per extraction or evaluation call and
// exports them through OpenTelemetry span exporters.
//
// The Tracer is created once at process start and closed at exit:
//
//	tracer := tracing.New(models.ProjectTag, logger, exporters...)
//	defer tracer.Close(ctx)
//
// Components receive the tracer explicitly. A nil *Tracer is valid and
// records nothing.
package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes understood by Langfuse's OTLP endpoint and the local
// trace store.
const (
	AttrTraceName = attribute.Key("langfuse.trace.name")
	AttrTags      = attribute.Key("langfuse.trace.tags")
	AttrSessionID = attribute.Key("langfuse.session.id")
	AttrInput     = attribute.Key("langfuse.observation.input")
	AttrOutput    = attribute.Key("langfuse.observation.output")
	AttrModel     = attribute.Key("gen_ai.request.model")
	AttrRunID     = attribute.Key("lep.run_id")
)

const instrumentationName = "github.com/dtnitsch/llm-event-parser/pkg/tracing"

// Span is a single traced call.
type Span struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tags      []string  `json:"tags"`
	RunID     string    `json:"run_id,omitempty"`
	Model     string    `json:"model,omitempty"`
	Input     any       `json:"input,omitempty"`
	Output    any       `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	span   trace.Span
	tracer *Tracer
	ended  bool
}

// Tracer owns the span pipeline: one batch processor per exporter.
type Tracer struct {
	mu         sync.Mutex
	project    string
	provider   *sdktrace.TracerProvider
	tracer     trace.Tracer
	processors []sdktrace.SpanProcessor
	logger     *slog.Logger
	finished   []Span
	closed     bool
	now        func() time.Time
}

// New creates a Tracer tagging every span with project.
func New(project string, logger *slog.Logger, exporters ...sdktrace.SpanExporter) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", project))),
	}
	var processors []sdktrace.SpanProcessor
	for _, exp := range exporters {
		bsp := sdktrace.NewBatchSpanProcessor(exp)
		processors = append(processors, bsp)
		opts = append(opts, sdktrace.WithSpanProcessor(bsp))
	}
	provider := sdktrace.NewTracerProvider(opts...)

	return &Tracer{
		project:    project,
		provider:   provider,
		tracer:     provider.Tracer(instrumentationName),
		processors: processors,
		logger:     logger,
		now:        time.Now,
	}
}

// Tags returns the tag set for a call: the project, plus the run id if set.
func Tags(project, runID string) []string {
	if runID == "" {
		return []string{project}
	}
	return []string{project, runID}
}

// Start opens a span. The returned span must be ended with End.
func (t *Tracer) Start(name, runID string, input any) *Span {
	if t == nil {
		return &Span{Name: name, RunID: runID}
	}

	s := &Span{
		Name:      name,
		Tags:      Tags(t.project, runID),
		RunID:     runID,
		Input:     input,
		StartedAt: t.now(),
		tracer:    t,
	}
	attrs := []attribute.KeyValue{
		AttrTraceName.String(name),
		AttrTags.StringSlice(s.Tags),
	}
	if runID != "" {
		attrs = append(attrs, AttrRunID.String(runID), AttrSessionID.String(runID))
	}
	if v, ok := encode(input); ok {
		attrs = append(attrs, AttrInput.String(v))
	}

	_, s.span = t.tracer.Start(context.Background(), name,
		trace.WithTimestamp(s.StartedAt),
		trace.WithAttributes(attrs...),
	)
	s.ID = s.span.SpanContext().SpanID().String()
	return s
}

// SetModel records the model that served the call.
func (s *Span) SetModel(model string) {
	s.Model = model
	if s.span != nil {
		s.span.SetAttributes(AttrModel.String(model))
	}
}

// End closes the span with its output or error. Calling End twice is a no-op.
func (s *Span) End(output any, err error) {
	if s.ended {
		return
	}
	s.ended = true
	s.Output = output
	if err != nil {
		s.Error = err.Error()
	}
	if s.tracer == nil {
		return
	}
	s.tracer.record(s)
}

func (t *Tracer) record(s *Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.EndedAt = t.now()

	if t.closed {
		t.logger.Warn("span ended after tracer closed", "span", s.Name, "span_id", s.ID)
		return
	}

	if v, ok := encode(s.Output); ok {
		s.span.SetAttributes(AttrOutput.String(v))
	}
	if s.Error != "" {
		s.span.SetStatus(codes.Error, s.Error)
	}
	s.span.End(trace.WithTimestamp(s.EndedAt))

	finished := *s
	finished.span, finished.tracer = nil, nil
	t.finished = append(t.finished, finished)
}

// Spans returns every span recorded so far, flushed or not.
func (t *Tracer) Spans() []Span {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Span, len(t.finished))
	copy(out, t.finished)
	return out
}

// Flush exports ended spans through every exporter. Exporter failures are
// logged and returned joined; the spans are not re-queued.
func (t *Tracer) Flush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for _, p := range t.processors {
		if err := p.ForceFlush(ctx); err != nil {
			t.logger.Warn("failed to export spans", "error", err)
			errs = append(errs, err)
		}
	}
	t.logger.Debug("flushed spans", "exporters", len(t.processors))
	return errors.Join(errs...)
}

// Close flushes and shuts the exporters down. Spans ended afterwards are
// dropped.
func (t *Tracer) Close(ctx context.Context) error {
	if t == nil {
		return nil
	}
	err := t.Flush(ctx)

	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	if shutdownErr := t.provider.Shutdown(ctx); shutdownErr != nil {
		err = errors.Join(err, shutdownErr)
	}
	return err
}

// encode renders a span payload as JSON for an attribute value.
func encode(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}
