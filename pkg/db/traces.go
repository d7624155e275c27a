package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dtnitsch/llm-event-parser/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TraceSink is a span exporter that stores spans in the traces table.
type TraceSink struct {
	db *DB
}

// NewTraceSink returns an exporter backed by db.
func NewTraceSink(db *DB) *TraceSink {
	return &TraceSink{db: db}
}

// ExportSpans writes spans in one transaction. A span id seen twice is
// replaced.
func (s *TraceSink) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trace transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO traces (span_id, name, run_id, tags, model, input, output, error, started_at, ended_at)
		VALUES (?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for _, span := range spans {
		attrs := map[attribute.Key]attribute.Value{}
		for _, kv := range span.Attributes() {
			attrs[kv.Key] = kv.Value
		}

		tags, err := json.Marshal(attrs[tracing.AttrTags].AsStringSlice())
		if err != nil {
			return fmt.Errorf("failed to marshal span tags: %w", err)
		}
		var spanErr string
		if span.Status().Code == codes.Error {
			spanErr = span.Status().Description
		}

		spanID := span.SpanContext().SpanID().String()
		if _, err := stmt.ExecContext(ctx, spanID, span.Name(), attrs[tracing.AttrRunID].AsString(), string(tags),
			attrs[tracing.AttrModel].AsString(), optional(attrs[tracing.AttrInput]), optional(attrs[tracing.AttrOutput]),
			spanErr, span.StartTime(), span.EndTime()); err != nil {
			return fmt.Errorf("failed to insert span %s: %w", spanID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit traces: %w", err)
	}
	return nil
}

// Shutdown is a no-op; the catalog is closed by its owner.
func (s *TraceSink) Shutdown(ctx context.Context) error {
	return nil
}

// TraceRow is a stored span.
type TraceRow struct {
	SpanID string
	Name   string
	RunID  string
	Tags   []string
	Model  string
	Error  string
}

// ListTraces returns stored spans for runID in start order.
func (db *DB) ListTraces(runID string) ([]TraceRow, error) {
	rows, err := db.Query(`
		SELECT span_id, name, COALESCE(run_id, ''), tags, COALESCE(model, ''), COALESCE(error, '')
		FROM traces
		WHERE COALESCE(run_id, '') = ?
		ORDER BY started_at, rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	defer rows.Close()

	var out []TraceRow
	for rows.Next() {
		var r TraceRow
		var tags string
		if err := rows.Scan(&r.SpanID, &r.Name, &r.RunID, &tags, &r.Model, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode trace tags: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func optional(v attribute.Value) any {
	if v.Type() != attribute.STRING {
		return nil
	}
	return v.AsString()
}
