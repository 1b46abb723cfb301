package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/provisioner/logger"
	"github.com/kbukum/provisioner/version"
)

// Dispatch modes.
const (
	ModeBuffered = "buffered"
	ModeStream   = "stream"
)

// Dispatch outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeProtocolError  = "protocol_error"
	OutcomeTransportError = "transport_error"
	OutcomeReadError      = "read_error"
	// OutcomeCancelled is a stream closed by the caller before it settled.
	OutcomeCancelled = "cancelled"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for local development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetShortVersion(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global MeterProvider exporting over OTLP/HTTP.
// Shut it down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the dispatcher's instruments.
type Metrics struct {
	dispatchTotal    metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	dispatchActive   metric.Int64UpDownCounter
	decodeFailures   metric.Int64Counter
}

// NewMetrics creates the dispatcher instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	dispatchTotal, err := meter.Int64Counter("provisioner.dispatch.total",
		metric.WithDescription("Dispatched requests by method, mode and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provisioner.dispatch.total counter: %w", err)
	}

	dispatchDuration, err := meter.Float64Histogram("provisioner.dispatch.duration",
		metric.WithDescription("Time from dispatch to classification"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provisioner.dispatch.duration histogram: %w", err)
	}

	dispatchActive, err := meter.Int64UpDownCounter("provisioner.dispatch.active",
		metric.WithDescription("Requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provisioner.dispatch.active gauge: %w", err)
	}

	decodeFailures, err := meter.Int64Counter("provisioner.decode.failures",
		metric.WithDescription("Response bodies that were not valid JSON"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provisioner.decode.failures counter: %w", err)
	}

	return &Metrics{
		dispatchTotal:    dispatchTotal,
		dispatchDuration: dispatchDuration,
		dispatchActive:   dispatchActive,
		decodeFailures:   decodeFailures,
	}, nil
}

// RecordDispatchStart increments the in-flight count.
func (m *Metrics) RecordDispatchStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.dispatchActive.Add(ctx, 1)
}

// RecordDispatchEnd decrements the in-flight count and records the outcome.
// status is 0 when no response was received.
func (m *Metrics) RecordDispatchEnd(ctx context.Context, method, mode, outcome string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatchActive.Add(ctx, -1)
	m.dispatchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
		attribute.Int("status", status),
	))
	m.dispatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("mode", mode),
	))
}

// RecordDecodeFailure counts a body that could not be decoded as JSON.
func (m *Metrics) RecordDecodeFailure(ctx context.Context, method string, status int) {
	if m == nil {
		return
	}
	m.decodeFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status", status),
	))
}
