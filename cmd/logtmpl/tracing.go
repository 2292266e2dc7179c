package main

import (
	"context"
	"io"

	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing installs the global tracer provider the classifier picks up.
// The returned func flushes and stops it; it is nil when tracing is off.
func setupTracing(w io.Writer, target string) (func(context.Context) error, error) {
	switch target {
	case "", "none":
		return nil, nil
	case "stderr":
	default:
		return nil, errors.Errorf("unknown trace target %q, want stderr or none", target)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, errors.Errorf("creating stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "logtmpl"))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
