package dispatcher

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/provisioner/logger"
	"github.com/kbukum/provisioner/observability"
)

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	logger    *logger.Logger
	observers []Observer
	transport http.RoundTripper
	tracer    trace.Tracer
	metrics   *observability.Metrics
}

// WithLogger sets the logger. Defaults to the global "dispatcher" logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver subscribes fn to diagnostic events.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

// WithTransport replaces the transport built from the connection. Proxy and
// TLS settings are then the caller's responsibility.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTracer sets the tracer for dispatch spans. Defaults to the global
// provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMetrics sets the metric instruments. Defaults to instruments on the
// global meter provider.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
