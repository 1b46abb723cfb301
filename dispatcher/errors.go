package dispatcher

import (
	"errors"
	"fmt"
)

// ErrorPrefix opens every ProtocolError message. It matches the wording
// existing clients of the service match on.
const ErrorPrefix = "composer"

// FailureCodes maps the statuses treated as failures to their labels.
var FailureCodes = map[int]string{
	400: "Bad Request",
	401: "Not authorized",
	403: "Forbidden",
	404: "Item not found",
	409: "Conflict",
	500: "Internal Server Error",
}

// SuccessCodes maps the expected success statuses to their labels. Statuses
// in neither table are also treated as success.
var SuccessCodes = map[int]string{
	200: "OK",
	201: "Created",
}

// IsFailure reports whether status is in FailureCodes.
func IsFailure(status int) bool {
	_, ok := FailureCodes[status]
	return ok
}

// TransportError means no response was obtained: DNS, refused connection,
// TLS handshake, cancelled context, a broken body, or a request that could
// not be built.
type TransportError struct {
	Op     string // "encode", "send" or "read"
	Method string
	URI    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s %s: %v", ErrorPrefix, e.Op, e.Method, e.URI, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned for a status in FailureCodes.
type ProtocolError struct {
	Status int
	Label  string
	// Result is the decoded JSON body, nil when the body was empty or not JSON.
	Result any
	Body   []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s Error (%d): %s", ErrorPrefix, e.Status, e.Label)
}

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsProtocol reports whether err is a *ProtocolError.
func IsProtocol(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *ProtocolError
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsNotFound reports a 404 ProtocolError.
func IsNotFound(err error) bool {
	return StatusOf(err) == 404
}

// IsConflict reports a 409 ProtocolError.
func IsConflict(err error) bool {
	return StatusOf(err) == 409
}

// IsUnauthorized reports a 401 or 403 ProtocolError.
func IsUnauthorized(err error) bool {
	s := StatusOf(err)
	return s == 401 || s == 403
}

// classify returns a *ProtocolError for failure statuses, nil otherwise.
// The body is decoded on a best-effort basis; decodeErr is for diagnostics.
func classify(status int, body []byte) (perr *ProtocolError, decodeErr error) {
	label, failed := FailureCodes[status]
	if !failed {
		return nil, nil
	}
	perr = &ProtocolError{Status: status, Label: label, Body: body}
	perr.Result, decodeErr = decodeJSON(body)
	return perr, decodeErr
}
