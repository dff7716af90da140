// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/researchd/researchd/pkg/logger"
)

// MeterName is the default meter name for the application.
const MeterName = "github.com/researchd/researchd"

// Metrics holds all application metrics.
type Metrics struct {
	// Research run metrics
	ResearchRunsTotal       metric.Int64Counter
	ResearchDuration        metric.Float64Histogram
	ActiveResearch          metric.Int64UpDownCounter
	ResearchIterationsTotal metric.Int64Counter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Provider metrics
	ProviderCallsTotal   metric.Int64Counter
	ProviderRetriesTotal metric.Int64Counter

	// Report metrics
	SectionsGeneratedTotal metric.Int64Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if
// necessary. Instruments are no-ops until a meter provider is installed.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			// Empty metrics avoid nil-pointer panics at record sites
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

// initMetrics initializes all application metrics.
func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	var err error

	m.ResearchRunsTotal, err = meter.Int64Counter(
		"researchd_research_runs_total",
		metric.WithDescription("Total number of research runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.ResearchDuration, err = meter.Float64Histogram(
		"researchd_research_duration_seconds",
		metric.WithDescription("Duration of research runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1800),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveResearch, err = meter.Int64UpDownCounter(
		"researchd_active_research",
		metric.WithDescription("Number of currently running research requests"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.ResearchIterationsTotal, err = meter.Int64Counter(
		"researchd_research_iterations_total",
		metric.WithDescription("Total number of denoising iterations executed"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"researchd_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"researchd_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.ProviderCallsTotal, err = meter.Int64Counter(
		"researchd_provider_calls_total",
		metric.WithDescription("Total number of provider API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.ProviderRetriesTotal, err = meter.Int64Counter(
		"researchd_provider_retries_total",
		metric.WithDescription("Total number of provider call retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	m.SectionsGeneratedTotal, err = meter.Int64Counter(
		"researchd_report_sections_total",
		metric.WithDescription("Total number of report sections generated"),
		metric.WithUnit("{section}"),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics initialized successfully")
	return m, nil
}

// RecordResearchStarted records that a research run has started.
func (m *Metrics) RecordResearchStarted(ctx context.Context, mode string) {
	if m.ResearchRunsTotal != nil {
		m.ResearchRunsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("mode", mode)),
		)
	}
	if m.ActiveResearch != nil {
		m.ActiveResearch.Add(ctx, 1)
	}
}

// RecordResearchCompleted records that a research run has finished.
func (m *Metrics) RecordResearchCompleted(ctx context.Context, status string, durationSeconds float64) {
	if m.ActiveResearch != nil {
		m.ActiveResearch.Add(ctx, -1)
	}
	if m.ResearchDuration != nil {
		m.ResearchDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(attribute.String("status", status)),
		)
	}
}

// RecordIteration records one completed denoising iteration.
func (m *Metrics) RecordIteration(ctx context.Context) {
	if m.ResearchIterationsTotal == nil {
		return
	}
	m.ResearchIterationsTotal.Add(ctx, 1)
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}

// RecordProviderCall records a provider API call and its outcome.
func (m *Metrics) RecordProviderCall(ctx context.Context, op string, success bool) {
	if m.ProviderCallsTotal == nil {
		return
	}
	m.ProviderCallsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.Bool("success", success),
		),
	)
}

// RecordProviderRetry records one retry of a provider call.
func (m *Metrics) RecordProviderRetry(ctx context.Context, op, reason string) {
	if m.ProviderRetriesTotal == nil {
		return
	}
	m.ProviderRetriesTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("reason", reason),
		),
	)
}

// RecordSectionGenerated records a generated report section and whether
// it passed quality validation.
func (m *Metrics) RecordSectionGenerated(ctx context.Context, valid bool) {
	if m.SectionsGeneratedTotal == nil {
		return
	}
	m.SectionsGeneratedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("valid", valid)),
	)
}
