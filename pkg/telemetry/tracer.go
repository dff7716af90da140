// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the default tracer name for the application
	TracerName = "github.com/researchd/researchd"
)

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name and returns the context and span.
// The caller is responsible for calling span.End() when the operation is complete.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from the context.
// If no span is found, a no-op span is returned.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// SetSpanError records an error on the span and sets its status to error
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanOK sets the span status to OK
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttributes sets attributes on the span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// Common attribute keys for consistent naming
var (
	// Research run attributes
	AttrResearchID       = attribute.Key("research.id")
	AttrResearchQuestion = attribute.Key("research.question")
	AttrIteration        = attribute.Key("research.iteration")

	// Provider attributes
	AttrProviderModel   = attribute.Key("provider.model")
	AttrProviderAttempt = attribute.Key("provider.attempt")

	// Report attributes
	AttrChapterID    = attribute.Key("report.chapter_id")
	AttrSectionID    = attribute.Key("report.section_id")
	AttrChapterCount = attribute.Key("report.chapter_count")
	AttrWordCount    = attribute.Key("report.word_count")

	// Result attributes
	AttrCitationCount = attribute.Key("citations.count")
	AttrDurationMs    = attribute.Key("duration.ms")
)

// WithResearchAttributes returns span start options with research run attributes
func WithResearchAttributes(researchID, question string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrResearchID.String(researchID),
		AttrResearchQuestion.String(question),
	)
}

// WithIterationAttributes returns span start options with iteration attributes
func WithIterationAttributes(researchID string, iteration int) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrResearchID.String(researchID),
		AttrIteration.Int(iteration),
	)
}
