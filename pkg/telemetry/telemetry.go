// Package telemetry wires OpenTelemetry tracing and metrics for the
// application, exporting spans to an OTLP collector and metrics to
// Prometheus when configured.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.uber.org/zap"

	"github.com/researchd/researchd/consts"
	"github.com/researchd/researchd/pkg/logger"
)

const (
	exporterDialTimeout   = 10 * time.Second
	metricsServerTimeout  = 10 * time.Second
	defaultPrometheusPort = 9090
)

// Config holds the telemetry configuration.
type Config struct {
	// Enabled turns telemetry on
	Enabled bool `yaml:"enabled"`
	// ServiceName identifies this service in exported data
	ServiceName string `yaml:"service_name"`
	// OTLP configures span export
	OTLP OTLPConfig `yaml:"otlp"`
	// Prometheus configures metrics export
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// OTLPConfig holds OTLP exporter configuration.
type OTLPConfig struct {
	// Enabled turns span export on
	Enabled bool `yaml:"enabled"`
	// Endpoint is the collector address, e.g. "localhost:4317"
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS on the exporter connection
	Insecure bool `yaml:"insecure"`
}

// PrometheusConfig holds Prometheus metrics configuration.
type PrometheusConfig struct {
	// Enabled turns the /metrics endpoint on
	Enabled bool `yaml:"enabled"`
	// Port is the port for the metrics HTTP server
	Port int `yaml:"port"`
}

// Telemetry owns the tracer and meter provider lifecycle.
type Telemetry struct {
	enabled       bool
	provider      *sdktrace.TracerProvider
	meterProvider *sdkmetric.MeterProvider
	metricsServer *http.Server
}

// New installs global tracer and meter providers per cfg. With telemetry
// disabled it returns an inert Telemetry whose Shutdown is a no-op, so
// callers can defer Shutdown unconditionally.
func New(cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		logger.Info("Telemetry is disabled")
		return &Telemetry{}, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = consts.ServiceName
	}
	if cfg.Prometheus.Port == 0 {
		cfg.Prometheus.Port = defaultPrometheusPort
	}

	// resource.New instead of resource.Default avoids schema URL
	// conflicts between semconv versions.
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{enabled: true}
	if err := t.initTracerProvider(cfg, res); err != nil {
		return nil, err
	}
	if err := t.initMeterProvider(cfg, res); err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry initialized",
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("otlp_enabled", cfg.OTLP.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
	)

	return t, nil
}

// initTracerProvider installs the global tracer provider, exporting over
// OTLP when an endpoint is configured.
func (t *Telemetry) initTracerProvider(cfg Config, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTLP.Enabled && cfg.OTLP.Endpoint != "" {
		exporter, err := newOTLPExporter(cfg.OTLP)
		if err != nil {
			return err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("OTLP trace exporter initialized", zap.String("endpoint", cfg.OTLP.Endpoint))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	t.provider = provider
	return nil
}

// initMeterProvider installs the global meter provider. With Prometheus
// enabled, metrics are served on a dedicated /metrics HTTP server.
func (t *Telemetry) initMeterProvider(cfg Config, res *resource.Resource) error {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Prometheus.Enabled {
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		t.metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Prometheus.Port),
			Handler:      mux,
			ReadTimeout:  metricsServerTimeout,
			WriteTimeout: metricsServerTimeout,
		}

		go func() {
			logger.Info("Starting Prometheus metrics server", zap.Int("port", cfg.Prometheus.Port))
			if err := t.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Prometheus metrics server error", zap.Error(err))
			}
		}()
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	t.meterProvider = mp
	return nil
}

func newOTLPExporter(cfg OTLPConfig) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), exporterDialTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// Shutdown flushes and stops the providers and the metrics server.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.enabled {
		return nil
	}

	logger.Info("Shutting down telemetry")

	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown meter provider", zap.Error(err))
		}
	}
	if t.metricsServer != nil {
		if err := t.metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown metrics server", zap.Error(err))
		}
	}

	return nil
}

// IsEnabled reports whether telemetry was turned on at construction.
func (t *Telemetry) IsEnabled() bool {
	return t.enabled
}
