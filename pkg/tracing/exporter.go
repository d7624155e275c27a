package tracing

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// OTLPPath is Langfuse's OTLP/HTTP trace endpoint.
const OTLPPath = "/api/public/otel/v1/traces"

// NewHTTPExporter creates an OTLP/HTTP exporter for a Langfuse host,
// authenticated with the public/secret key pair.
func NewHTTPExporter(ctx context.Context, host, publicKey, secretKey string) (sdktrace.SpanExporter, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(publicKey + ":" + secretKey))
	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(strings.TrimRight(host, "/")+OTLPPath),
		otlptracehttp.WithHeaders(map[string]string{"Authorization": "Basic " + auth}),
		otlptracehttp.WithTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return exp, nil
}
