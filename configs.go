package provisioner

import (
	"context"
	"strings"

	"github.com/kbukum/provisioner/dispatcher"
)

// Configs manages named environments under /config.
type Configs struct {
	resource
}

// NewConfigs returns a Configs facade over d.
func NewConfigs(d *dispatcher.Dispatcher) *Configs {
	return &Configs{resource{d: d}}
}

// Create creates the environment name with the given settings. A nil env
// creates an empty one.
func (c *Configs) Create(ctx context.Context, name string, env Document) (Document, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if env == nil {
		env = Document{}
	}
	return c.document(ctx, dispatcher.Post(resourcePath("config", name), env))
}

// Get returns the environment name.
func (c *Configs) Get(ctx context.Context, name string) (Document, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	return field[Document](ctx, c.resource, dispatcher.Get(resourcePath("config", name)), "config")
}

// List returns every environment.
func (c *Configs) List(ctx context.Context) ([]Document, error) {
	return field[[]Document](ctx, c.resource, dispatcher.Get("/config"), "config")
}

// Destroy deletes the environment name.
func (c *Configs) Destroy(ctx context.Context, name string) (Document, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	return c.document(ctx, dispatcher.Delete(resourcePath("config", name)))
}

// Set stores value under key in the environment name. A key containing
// "/" addresses a nested setting, one path segment per part.
func (c *Configs) Set(ctx context.Context, name, key string, value any) (Document, error) {
	if name == "" || key == "" {
		return nil, ErrNameRequired
	}
	return c.document(ctx, dispatcher.Put(keyedPath(name, key), value))
}

// Clear removes key from the environment name. Nested keys work as in Set.
func (c *Configs) Clear(ctx context.Context, name, key string) (Document, error) {
	if name == "" || key == "" {
		return nil, ErrNameRequired
	}
	return c.document(ctx, dispatcher.Delete(keyedPath(name, key)))
}

// Servers returns the server configuration, for one group when group is
// not empty.
func (c *Configs) Servers(ctx context.Context, group string) (Document, error) {
	return c.document(ctx, dispatcher.Get(resourcePath("config", "servers", group)))
}

// keyedPath is /config/<name>/<key>, keeping the slashes inside key as
// segment separators.
func keyedPath(name, key string) string {
	return resourcePath(append([]string{"config", name}, strings.Split(key, "/")...)...)
}
