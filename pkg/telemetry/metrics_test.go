package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// installManualReader swaps in a meter provider whose measurements can
// be collected synchronously by the test.
func installManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	return reader
}

func collectedNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := make(map[string]bool)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestInitMetricsCreatesAllInstruments(t *testing.T) {
	m, err := initMetrics()
	require.NoError(t, err)

	assert.NotNil(t, m.ResearchRunsTotal)
	assert.NotNil(t, m.ResearchDuration)
	assert.NotNil(t, m.ActiveResearch)
	assert.NotNil(t, m.ResearchIterationsTotal)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.ProviderCallsTotal)
	assert.NotNil(t, m.ProviderRetriesTotal)
	assert.NotNil(t, m.SectionsGeneratedTotal)
}

func TestRecordHelpersExportMeasurements(t *testing.T) {
	reader := installManualReader(t)

	m, err := initMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordResearchStarted(ctx, "grounded")
	m.RecordResearchCompleted(ctx, "completed", 12.5)
	m.RecordIteration(ctx)
	m.RecordHTTPRequest(ctx, "POST", "/run", 200, 0.05)
	m.RecordProviderCall(ctx, "generate", true)
	m.RecordProviderRetry(ctx, "generate", "transient")
	m.RecordSectionGenerated(ctx, true)

	names := collectedNames(t, reader)
	for _, want := range []string{
		"researchd_research_runs_total",
		"researchd_research_duration_seconds",
		"researchd_active_research",
		"researchd_research_iterations_total",
		"researchd_http_requests_total",
		"researchd_http_request_duration_seconds",
		"researchd_provider_calls_total",
		"researchd_provider_retries_total",
		"researchd_report_sections_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestRecordHelpersNilSafe(t *testing.T) {
	// Empty instance mirrors the initMetrics failure path; record calls
	// must not panic.
	m := &Metrics{}

	ctx := context.Background()
	m.RecordResearchStarted(ctx, "grounded")
	m.RecordResearchCompleted(ctx, "failed", 1)
	m.RecordIteration(ctx)
	m.RecordHTTPRequest(ctx, "GET", "/health", 200, 0.001)
	m.RecordProviderCall(ctx, "search", false)
	m.RecordProviderRetry(ctx, "search", "rate_limit")
	m.RecordSectionGenerated(ctx, false)
}

func TestGetMetricsSingleton(t *testing.T) {
	first := GetMetrics()
	require.NotNil(t, first)
	assert.Same(t, first, GetMetrics())
}
