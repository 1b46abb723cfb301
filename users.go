package provisioner

import (
	"context"

	"github.com/kbukum/provisioner/dispatcher"
)

// DefaultKeyName is the key addressed when no key name is given.
const DefaultKeyName = "publicKey"

// Users manages accounts and their SSH keys.
type Users struct {
	resource
}

// NewUsers returns a Users facade over d.
func NewUsers(d *dispatcher.Dispatcher) *Users {
	return &Users{resource{d: d}}
}

// Auth checks the configured credentials. It reports true on any success
// response.
func (u *Users) Auth(ctx context.Context) (bool, error) {
	if _, err := u.do(ctx, dispatcher.Get("/auth")); err != nil {
		return false, err
	}
	return true, nil
}

// Create registers user, which must carry a "username".
func (u *Users) Create(ctx context.Context, user Document) (Document, error) {
	name := user.String("username")
	if name == "" {
		return nil, ErrUsernameRequired
	}
	return u.document(ctx, dispatcher.Post(resourcePath("users", name), user))
}

// Get returns the user name.
func (u *Users) Get(ctx context.Context, name string) (Document, error) {
	if name == "" {
		return nil, ErrUsernameRequired
	}
	return field[Document](ctx, u.resource, dispatcher.Get(resourcePath("users", name)), "user")
}

// List returns every user.
func (u *Users) List(ctx context.Context) ([]Document, error) {
	return field[[]Document](ctx, u.resource, dispatcher.Get("/users"), "users")
}

// Update changes user, addressed by its "_id" or else its "username".
func (u *Users) Update(ctx context.Context, user Document) (Document, error) {
	id := identity(user, "_id", "username")
	if id == "" {
		return nil, ErrUsernameRequired
	}
	return u.document(ctx, dispatcher.Put(resourcePath("users", id), user))
}

// Destroy deletes the user name.
func (u *Users) Destroy(ctx context.Context, name string) (Document, error) {
	if name == "" {
		return nil, ErrUsernameRequired
	}
	return u.document(ctx, dispatcher.Delete(resourcePath("users", name)))
}

// Available reports on whether username can still be registered.
func (u *Users) Available(ctx context.Context, username string) (Document, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	return u.document(ctx, dispatcher.Get(resourcePath("users", username, "available")))
}

// Forgot requests a password reset for username. params may carry the
// reset token and new password; nil sends an empty object.
func (u *Users) Forgot(ctx context.Context, username string, params Document) (Document, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if params == nil {
		params = Document{}
	}
	return u.document(ctx, dispatcher.Post(resourcePath("users", username, "forgot"), params))
}

// AddKey stores data as the key keyname of user name. An empty keyname
// means DefaultKeyName.
func (u *Users) AddKey(ctx context.Context, name, keyname, data string) error {
	if name == "" {
		return ErrUsernameRequired
	}
	_, err := u.do(ctx, dispatcher.Put(keyPath(name, keyname), Document{"key": data}))
	return err
}

// UpdateKey is AddKey; the service treats both the same.
func (u *Users) UpdateKey(ctx context.Context, name, keyname, data string) error {
	return u.AddKey(ctx, name, keyname, data)
}

// GetKey returns the key keyname of user name.
func (u *Users) GetKey(ctx context.Context, name, keyname string) (string, error) {
	if name == "" {
		return "", ErrUsernameRequired
	}
	return field[string](ctx, u.resource, dispatcher.Get(keyPath(name, keyname)), "key")
}

// GetKeys returns the keys of user name, or of every user when name is
// empty. The shape of the value is defined by the service.
func (u *Users) GetKeys(ctx context.Context, name string) (any, error) {
	return field[any](ctx, u.resource, dispatcher.Get(resourcePath("keys", name)), "keys")
}

// Servers returns the servers created by user name. The result is never
// nil on success.
func (u *Users) Servers(ctx context.Context, name string) ([]Document, error) {
	if name == "" {
		return nil, ErrUsernameRequired
	}
	servers, err := field[[]Document](ctx, u.resource, dispatcher.Get(resourcePath("users", name, "servers")), "servers")
	if err != nil {
		return nil, err
	}
	if servers == nil {
		servers = []Document{}
	}
	return servers, nil
}

func keyPath(name, keyname string) string {
	if keyname == "" {
		keyname = DefaultKeyName
	}
	return resourcePath("users", name, "keys", keyname)
}
