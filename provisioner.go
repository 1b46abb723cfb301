package provisioner

import (
	"context"
	"errors"

	"github.com/kbukum/provisioner/config"
	"github.com/kbukum/provisioner/dispatcher"
	"github.com/kbukum/provisioner/observability"
	"github.com/kbukum/provisioner/resilience"
)

var (
	// ErrNameRequired is returned when a resource has no name to address
	// it by.
	ErrNameRequired = errors.New("provisioner: name is required")
	// ErrUsernameRequired is returned by Users.Servers without a username.
	ErrUsernameRequired = errors.New("provisioner: username is required")
)

// Client groups the resource facades over one dispatcher.
type Client struct {
	Config  *Configs
	Systems *Systems
	Users   *Users

	d *dispatcher.Dispatcher
}

// Option configures a Client.
type Option func(*options)

type options struct {
	dispatcherOpts []dispatcher.Option
	retry          *resilience.RetryConfig
}

// WithDispatcherOptions passes opts to dispatcher.New.
func WithDispatcherOptions(opts ...dispatcher.Option) Option {
	return func(o *options) { o.dispatcherOpts = append(o.dispatcherOpts, opts...) }
}

// WithRetry retries GET requests that fail with a transport error.
// Protocol errors and other methods are never retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *options) { o.retry = &cfg }
}

// New builds a dispatcher from src and returns a Client over it.
func New(src config.Getter, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	d, err := dispatcher.New(src, o.dispatcherOpts...)
	if err != nil {
		return nil, err
	}
	return newClient(d, o), nil
}

// NewFromDispatcher returns a Client over an existing dispatcher.
// Dispatcher options passed here are ignored.
func NewFromDispatcher(d *dispatcher.Dispatcher, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return newClient(d, o)
}

func newClient(d *dispatcher.Dispatcher, o *options) *Client {
	r := resource{d: d, retry: o.retry}
	return &Client{
		Config:  &Configs{r},
		Systems: &Systems{r},
		Users:   &Users{r},
		d:       d,
	}
}

// Dispatcher returns the shared dispatcher.
func (c *Client) Dispatcher() *dispatcher.Dispatcher {
	return c.d
}

// Close releases idle connections.
func (c *Client) Close() {
	c.d.CloseIdleConnections()
}

// CheckHealth probes /auth. A protocol error means the service answered
// but refused the credentials, which is reported as degraded.
func (c *Client) CheckHealth(ctx context.Context) observability.Health {
	_, err := c.Users.Auth(ctx)
	return observability.HealthFromError("provisioner", err, dispatcher.IsProtocol(err),
		map[string]string{"uri": c.d.RemoteURI()})
}

var _ observability.HealthChecker = (*Client)(nil)
