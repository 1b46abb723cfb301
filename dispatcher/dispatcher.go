package dispatcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/provisioner/config"
	"github.com/kbukum/provisioner/logger"
	"github.com/kbukum/provisioner/observability"
	"github.com/kbukum/provisioner/version"
)

// HeaderRequestID carries the per-call id.
const HeaderRequestID = "X-Request-Id"

// FailureFunc receives a *TransportError or *ProtocolError.
type FailureFunc func(err error)

// SuccessFunc receives the response and its decoded JSON body, which is nil
// when the body was empty or not JSON.
type SuccessFunc func(resp *Response, result any)

// Response is a classified response. Body and Result are empty for streams.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Result     any
}

// Dispatcher sends requests to one provisioning service.
type Dispatcher struct {
	src     config.Getter
	conn    *config.Connection
	baseURI string
	auth    *authMemo
	client  *http.Client
	log     *logger.Logger
	bus     bus
	tracer  trace.Tracer
	metrics *observability.Metrics
}

// New builds a Dispatcher from src, which may be a *config.Connection, a
// config.Map, a *viper.Viper or any other config.Getter. The connection is
// snapshotted here; only credentials are looked up again later, until they
// are first found.
func New(src config.Getter, opts ...Option) (*Dispatcher, error) {
	if src == nil {
		src = config.Map{}
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get("dispatcher")
	}
	if o.tracer == nil {
		o.tracer = observability.Tracer(observability.InstrumentationName)
	}
	if o.metrics == nil {
		m, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
		if err != nil {
			o.logger.Warn("metrics disabled", logger.ErrorFields("new_metrics", err))
		}
		o.metrics = m
	}

	conn := config.FromGetter(src)
	conn.ApplyDefaults()
	if err := conn.Validate(); err != nil {
		return nil, err
	}

	rt := o.transport
	if rt == nil {
		t, err := newTransport(conn, o.logger)
		if err != nil {
			return nil, err
		}
		rt = t
	}

	d := &Dispatcher{
		src:     src,
		conn:    conn,
		baseURI: conn.BaseURI(),
		auth:    newAuthMemo(src),
		client:  &http.Client{Transport: rt, CheckRedirect: noRedirect},
		log:     o.logger,
		tracer:  o.tracer,
		metrics: o.metrics,
	}
	d.bus.subscribe(logObserver(o.logger))
	for _, fn := range o.observers {
		d.bus.subscribe(fn)
	}
	return d, nil
}

// noRedirect hands 3xx responses back to classification, which passes them
// through as successes.
func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// RemoteURI returns scheme://host:port.
func (d *Dispatcher) RemoteURI() string {
	return d.baseURI
}

// Connection returns a copy of the resolved connection.
func (d *Dispatcher) Connection() *config.Connection {
	return d.conn.Clone()
}

// Subscribe registers fn for diagnostic events and returns a function that
// removes it.
func (d *Dispatcher) Subscribe(fn Observer) (unsubscribe func()) {
	return d.bus.subscribe(fn)
}

// CloseIdleConnections closes idle keep-alive connections.
func (d *Dispatcher) CloseIdleConnections() {
	d.client.CloseIdleConnections()
}

// Do sends src and reads the whole response. On a failure status it returns
// both the response and a *ProtocolError.
func (d *Dispatcher) Do(ctx context.Context, src Source) (*Response, error) {
	c, err := d.prepare(ctx, resolve(src), nil, observability.ModeBuffered)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(c.req)
	if err != nil {
		return nil, d.finish(c, c.transportError("send", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, d.finish(c, c.transportError("read", err), resp.StatusCode)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if perr, decodeErr := classify(resp.StatusCode, body); perr != nil {
		d.responded(c, resp.StatusCode, perr.Result, body, decodeErr)
		return out, d.finish(c, perr, resp.StatusCode)
	}

	result, decodeErr := decodeJSON(body)
	out.Result = result
	d.responded(c, resp.StatusCode, result, body, decodeErr)
	d.finish(c, nil, resp.StatusCode)
	return out, nil
}

// DispatchBuffered runs Do on its own goroutine and hands the outcome to
// exactly one of onFailure or onSuccess. The returned channel is closed
// after that continuation returns.
func (d *Dispatcher) DispatchBuffered(ctx context.Context, src Source, onFailure FailureFunc, onSuccess SuccessFunc) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := d.Do(ctx, src)
		if err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(resp, resp.Result)
		}
	}()
	return done
}

// call is the per-request state shared by both modes.
type call struct {
	id     string
	method string
	uri    string
	mode   string
	start  time.Time
	ctx    context.Context
	span   trace.Span
	req    *http.Request
}

func (c *call) transportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Method: c.method, URI: c.uri, Err: err}
}

// prepare assembles the request. upload, when non-nil, replaces the body.
func (d *Dispatcher) prepare(ctx context.Context, spec Spec, upload io.Reader, mode string) (*call, error) {
	c := &call{
		id:     uuid.NewString(),
		method: spec.Method,
		uri:    d.baseURI + spec.Path,
		mode:   mode,
		start:  time.Now(),
	}

	header := make(http.Header, len(spec.Headers)+4)
	for k, v := range spec.Headers {
		header.Set(k, v)
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", ContentTypeJSON)
	}
	if auth := d.auth.Header(); auth != "" {
		header.Set("Authorization", auth)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", version.UserAgent())
	}
	header.Set(HeaderRequestID, c.id)

	c.ctx, c.span = d.tracer.Start(ctx, observability.SpanDispatch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.DispatchAttributes(c.id, c.method, c.uri, mode)...),
	)
	d.metrics.RecordDispatchStart(c.ctx)

	body := upload
	if body == nil {
		var err error
		body, err = encodeBody(header.Get("Content-Type"), spec.Body)
		if err != nil {
			return nil, d.finish(c, c.transportError("encode", err), 0)
		}
	}

	req, err := http.NewRequestWithContext(c.ctx, c.method, c.uri, body)
	if err != nil {
		return nil, d.finish(c, c.transportError("encode", err), 0)
	}
	req.Header = header
	otel.GetTextMapPropagator().Inject(c.ctx, propagation.HeaderCarrier(req.Header))
	c.req = req

	d.bus.emit(Event{
		Name:      EventRequest,
		RequestID: c.id,
		Method:    c.method,
		URI:       c.uri,
		Headers:   redactHeaders(header),
		Body:      eventBody(spec.Body),
	})
	return c, nil
}

// responded emits the response event and counts decode failures.
func (d *Dispatcher) responded(c *call, status int, result any, raw []byte, decodeErr error) {
	if decodeErr != nil {
		d.metrics.RecordDecodeFailure(c.ctx, c.method, status)
		c.span.SetAttributes(attribute.Bool(observability.AttrDecodeFail, true))
	}
	d.bus.emit(Event{
		Name:       EventResponse,
		RequestID:  c.id,
		Method:     c.method,
		URI:        c.uri,
		StatusCode: status,
		Result:     result,
		Raw:        raw,
		DecodeErr:  decodeErr,
	})
}

// finish ends the span, records metrics and logs the outcome. It returns
// err so callers can write `return nil, d.finish(c, err, status)`.
func (d *Dispatcher) finish(c *call, err error, status int) error {
	return d.record(c, err, status, outcomeOf(err))
}

// record is finish with an explicit outcome.
func (d *Dispatcher) record(c *call, err error, status int, outcome string) error {
	elapsed := time.Since(c.start)

	if status > 0 {
		c.span.SetAttributes(observability.StatusAttribute(status))
	}
	c.span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}
	c.span.End()
	d.metrics.RecordDispatchEnd(c.ctx, c.method, c.mode, outcome, status, elapsed)

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldRequestID, c.id,
		logger.FieldMethod, c.method,
		logger.FieldURI, c.uri,
		logger.FieldStatus, status,
	), elapsed)
	if err != nil {
		d.log.WithError(err).Debug("dispatch failed", fields)
	} else {
		d.log.Debug("dispatch complete", fields)
	}
	return err
}

func outcomeOf(err error) string {
	switch e := err.(type) {
	case nil:
		return observability.OutcomeSuccess
	case *ProtocolError:
		return observability.OutcomeProtocolError
	case *TransportError:
		if e.Op == "read" {
			return observability.OutcomeReadError
		}
	}
	return observability.OutcomeTransportError
}
