package dispatcher

import (
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/kbukum/provisioner/config"
	"github.com/kbukum/provisioner/logger"
)

// endpoint turns an httptest URL into connection keys.
func endpoint(t *testing.T, rawURL string) config.Map {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return config.Map{
		"host":   u.Hostname(),
		"port":   u.Port(),
		"scheme": u.Scheme,
	}
}

func newTestDispatcher(t *testing.T, src config.Getter, opts ...Option) *Dispatcher {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	d, err := New(src, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.CloseIdleConnections)
	return d
}

// recorder collects diagnostic events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
