package dispatcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/kbukum/provisioner/observability"
)

// ErrNoUpload is returned by Stream.Write when the request body came from
// the Spec or the method carries no body.
var ErrNoUpload = errors.New("dispatcher: stream has no upload body")

// Stream is a live request/response exchange. Read returns the response
// body once headers arrive. When the Spec had no body and the method is
// POST, PUT or PATCH, Write and CloseWrite feed the request body.
//
// The first terminal event settles the stream: transport error, protocol
// error, body read error, end of body, or Close. Later events are ignored.
type Stream struct {
	d         *Dispatcher
	c         *call
	cancel    context.CancelFunc
	onFailure FailureFunc
	upload    *io.PipeWriter

	ready chan struct{} // closed once resp/body are set or the call failed
	resp  *Response
	body  io.ReadCloser

	settled atomic.Bool
	done    chan struct{}
	err     error
}

// DispatchStream starts the request on its own goroutine and returns the
// stream at once. onFailure, if non-nil, receives the first failure.
func (d *Dispatcher) DispatchStream(ctx context.Context, src Source, onFailure FailureFunc) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		d:         d,
		cancel:    cancel,
		onFailure: onFailure,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}

	spec := resolve(src)
	var upload io.Reader
	if spec.Body == nil && carriesBody(spec.Method) {
		pr, pw := io.Pipe()
		upload, s.upload = pr, pw
	}

	c, err := d.prepare(ctx, spec, upload, observability.ModeStream)
	if err != nil {
		// prepare has already recorded the outcome.
		s.closeUpload(err)
		s.latch(err)
		close(s.ready)
		cancel()
		go s.notify(err)
		return s
	}
	s.c = c

	go s.run()
	return s
}

func (s *Stream) run() {
	resp, err := s.d.client.Do(s.c.req)
	if err != nil {
		terr := s.c.transportError("send", err)
		s.closeUpload(terr)
		s.fail(terr, 0)
		return
	}

	if IsFailure(resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		perr, decodeErr := classify(resp.StatusCode, body)
		s.d.responded(s.c, resp.StatusCode, perr.Result, body, decodeErr)
		s.resp = &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body, Result: perr.Result}
		s.closeUpload(perr)
		s.fail(perr, resp.StatusCode)
		return
	}

	s.d.responded(s.c, resp.StatusCode, nil, nil, nil)
	s.resp = &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	s.body = resp.Body
	close(s.ready)

	// Closed before the response arrived.
	if s.settled.Load() {
		_ = resp.Body.Close()
	}
}

// fail settles a call that produced no readable body. ready is closed
// before onFailure runs so the callback may use Read, Response or Close.
func (s *Stream) fail(err error, status int) {
	won := s.latch(err)
	close(s.ready)
	if won {
		s.d.finish(s.c, err, status)
		s.notify(err)
	}
}

// Write sends p as part of the request body.
func (s *Stream) Write(p []byte) (int, error) {
	if s.upload == nil {
		return 0, ErrNoUpload
	}
	return s.upload.Write(p)
}

// CloseWrite ends the request body.
func (s *Stream) CloseWrite() error {
	if s.upload == nil {
		return nil
	}
	return s.upload.Close()
}

// Read reads the response body, blocking until headers arrive. It returns
// the settlement error once the stream has failed.
func (s *Stream) Read(p []byte) (int, error) {
	<-s.ready
	if s.body == nil {
		if err := s.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	n, err := s.body.Read(p)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.complete(nil)
	default:
		if s.complete(s.c.transportError("read", err)) {
			return n, s.Err()
		}
	}
	return n, err
}

// Response waits for the response headers. It returns nil when no response
// was received.
func (s *Stream) Response() *Response {
	<-s.ready
	return s.resp
}

// Done is closed when the stream settles.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the settlement error; nil while unsettled or after a clean
// end.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close aborts the exchange if it is still running and releases the body.
// Closing an unsettled stream settles it without error and records the
// call as cancelled. Always Close a stream, even after reading to EOF.
func (s *Stream) Close() error {
	s.abort()
	s.cancel()
	<-s.ready
	s.closeUpload(io.ErrClosedPipe)
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}

// complete settles and records the outcome with the response status.
func (s *Stream) complete(err error) bool {
	if !s.latch(err) {
		return false
	}
	status := 0
	select {
	case <-s.ready:
		if s.resp != nil {
			status = s.resp.StatusCode
		}
	default:
	}
	if s.c != nil {
		s.d.finish(s.c, err, status)
	}
	s.notify(err)
	return true
}

// abort settles a stream the caller closed before it ended.
func (s *Stream) abort() {
	if !s.latch(nil) {
		return
	}
	status := 0
	select {
	case <-s.ready:
		if s.resp != nil {
			status = s.resp.StatusCode
		}
	default:
	}
	if s.c != nil {
		s.d.record(s.c, nil, status, observability.OutcomeCancelled)
	}
}

// latch records the terminal outcome once and reports whether this call
// won. Only the winner finishes the call and notifies onFailure.
func (s *Stream) latch(err error) bool {
	if !s.settled.CompareAndSwap(false, true) {
		return false
	}
	s.err = err
	close(s.done)
	return true
}

func (s *Stream) notify(err error) {
	if err != nil && s.onFailure != nil {
		s.onFailure(err)
	}
}

func (s *Stream) closeUpload(err error) {
	if s.upload != nil {
		_ = s.upload.CloseWithError(err)
	}
}

var _ io.ReadWriteCloser = (*Stream)(nil)

// Header is a convenience for Response().Header.
func (s *Stream) Header() http.Header {
	if r := s.Response(); r != nil {
		return r.Header
	}
	return nil
}
