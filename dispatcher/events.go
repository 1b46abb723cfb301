package dispatcher

import (
	"net/http"
	"strings"
	"sync"

	"github.com/kbukum/provisioner/logger"
)

// Diagnostic event names.
const (
	EventRequest  = "debug::request"
	EventResponse = "debug::response"
)

const redacted = "[REDACTED]"

// Event is a diagnostic record of one side of a call.
type Event struct {
	Name      string
	RequestID string
	Method    string
	URI       string
	// Headers are the request headers with Authorization redacted.
	Headers map[string]string
	// Body is the request body before serialization.
	Body any

	StatusCode int
	// Result is the decoded response body.
	Result any
	// Raw is the response body as received. Empty for streams.
	Raw []byte
	// DecodeErr is set when a non-empty response body was not valid JSON.
	DecodeErr error
}

// Observer receives diagnostic events. It runs on the dispatching
// goroutine and should return quickly.
type Observer func(Event)

type bus struct {
	mu        sync.RWMutex
	nextID    uint64
	observers []subscription
}

type subscription struct {
	id uint64
	fn Observer
}

func (b *bus) subscribe(fn Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.observers {
			if s.id == id {
				b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

func (b *bus) emit(e Event) {
	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()
	for _, s := range observers {
		s.fn(e)
	}
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		if strings.EqualFold(k, "Authorization") {
			scheme, _, _ := strings.Cut(v[0], " ")
			out[k] = scheme + " " + redacted
			continue
		}
		out[k] = v[0]
	}
	return out
}

// logObserver writes events to log at debug level.
func logObserver(log *logger.Logger) Observer {
	return func(e Event) {
		if !log.DebugEnabled() {
			return
		}
		fields := logger.Fields(
			logger.FieldEvent, e.Name,
			logger.FieldRequestID, e.RequestID,
			logger.FieldMethod, e.Method,
			logger.FieldURI, e.URI,
		)
		if e.Name == EventResponse {
			fields[logger.FieldStatus] = e.StatusCode
			if e.DecodeErr != nil {
				fields["decode_error"] = e.DecodeErr.Error()
			}
		}
		log.Debug(e.Name, fields)
	}
}
