// Package dispatcher issues requests against a provisioning service and
// classifies the responses.
//
// A Dispatcher is built once from a connection configuration and is safe
// for concurrent use. Every call goes through the same assembly steps:
// the path is resolved against scheme://host:port, content-type defaults
// to application/json, the Basic Authorization header is attached when
// credentials are known, and JSON bodies are serialized.
//
// Responses are classified by status code. 400, 401, 403, 404, 409 and 500
// produce a *ProtocolError; any other status is a success, including 204
// and 3xx. A request that never gets a response produces a
// *TransportError. Bodies that are not valid JSON are never an error; the
// decoded value is simply nil.
//
// # Buffered calls
//
//	resp, err := d.Do(ctx, dispatcher.Path("/servers"))
//
//	done := d.DispatchBuffered(ctx, dispatcher.Get("/servers"),
//	    func(err error) { ... },
//	    func(resp *dispatcher.Response, result any) { ... },
//	)
//	<-done
//
// # Streaming calls
//
//	s := d.DispatchStream(ctx, dispatcher.Get("/systems/app/1.0.0"), onFailure)
//	defer s.Close()
//	_, err := io.Copy(w, s)
//
// A stream settles exactly once, on the first of transport error, protocol
// error, body read error, end of body or Close. onFailure runs at most once.
//
// # Diagnostics
//
// Each call emits a "debug::request" Event before sending and a
// "debug::response" Event once a status is known. Subscribe with
// WithObserver or Dispatcher.Subscribe. Authorization values are redacted.
package dispatcher
