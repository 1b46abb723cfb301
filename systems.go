package provisioner

import (
	"context"
	"io"
	"net/http"

	"github.com/kbukum/provisioner/dispatcher"
)

// Systems manages deployable systems and their versioned tarballs.
type Systems struct {
	resource
}

// NewSystems returns a Systems facade over d.
func NewSystems(d *dispatcher.Dispatcher) *Systems {
	return &Systems{resource{d: d}}
}

// Create registers system, which must carry a "name".
func (s *Systems) Create(ctx context.Context, system Document) (Document, error) {
	name := system.String("name")
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.document(ctx, dispatcher.Post(resourcePath("systems", name), system))
}

// Get returns the system name.
func (s *Systems) Get(ctx context.Context, name string) (Document, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	return field[Document](ctx, s.resource, dispatcher.Get(resourcePath("systems", name)), "system")
}

// List returns every system.
func (s *Systems) List(ctx context.Context) ([]Document, error) {
	return field[[]Document](ctx, s.resource, dispatcher.Get("/systems"), "systems")
}

// Destroy deletes the system name with all its versions.
func (s *Systems) Destroy(ctx context.Context, name string) (Document, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.document(ctx, dispatcher.Delete(resourcePath("systems", name)))
}

// RemoveVersion deletes one version of the system name.
func (s *Systems) RemoveVersion(ctx context.Context, name, version string) (Document, error) {
	if name == "" || version == "" {
		return nil, ErrNameRequired
	}
	return s.document(ctx, dispatcher.Delete(resourcePath("systems", name, version)))
}

// AddVersion adds the version described by system. The system is
// addressed by its "_id", falling back to "name".
func (s *Systems) AddVersion(ctx context.Context, system Document) (Document, error) {
	id := identity(system, "_id", "name")
	if id == "" {
		return nil, ErrNameRequired
	}
	return s.document(ctx, dispatcher.Put(resourcePath("systems", id), system))
}

// AddOwner grants owners access to the system name.
func (s *Systems) AddOwner(ctx context.Context, name string, owners ...string) (Document, error) {
	return s.owners(ctx, dispatcher.Put, name, owners)
}

// RemoveOwner revokes access to the system name.
func (s *Systems) RemoveOwner(ctx context.Context, name string, owners ...string) (Document, error) {
	return s.owners(ctx, func(path string, body any) dispatcher.Spec {
		spec := dispatcher.Delete(path)
		spec.Body = body
		return spec
	}, name, owners)
}

func (s *Systems) owners(ctx context.Context, build func(string, any) dispatcher.Spec, name string, owners []string) (Document, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if owners == nil {
		owners = []string{}
	}
	return s.document(ctx, build(resourcePath("systems", name, "owners"), owners))
}

// UploadStream opens a tarball upload for name@version. Write the tarball
// to the stream, call CloseWrite, then read the response.
func (s *Systems) UploadStream(ctx context.Context, name, version string, onFailure dispatcher.FailureFunc) *dispatcher.Stream {
	spec := dispatcher.Spec{Method: http.MethodPut, Path: resourcePath("systems", name, version)}.
		WithHeader("Content-Type", dispatcher.ContentTypeTarGz)
	return s.d.DispatchStream(ctx, spec, onFailure)
}

// Upload streams the tarball from r as name@version and returns the
// service's reply.
func (s *Systems) Upload(ctx context.Context, name, version string, r io.Reader) (Document, error) {
	if name == "" || version == "" {
		return nil, ErrNameRequired
	}
	st := s.UploadStream(ctx, name, version, nil)
	defer func() { _ = st.Close() }()

	if _, err := io.Copy(st, r); err != nil {
		if serr := st.Err(); serr != nil {
			return nil, serr
		}
		return nil, err
	}
	if err := st.CloseWrite(); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(st)
	if err != nil {
		return nil, err
	}
	resp := st.Response()
	if resp == nil {
		return nil, st.Err()
	}
	return project[Document](&dispatcher.Response{StatusCode: resp.StatusCode, Body: body}, "@this")
}

// DownloadStream opens the tarball of name@version for reading.
func (s *Systems) DownloadStream(ctx context.Context, name, version string, onFailure dispatcher.FailureFunc) *dispatcher.Stream {
	return s.d.DispatchStream(ctx, dispatcher.Get(resourcePath("systems", name, version)), onFailure)
}

// Download copies the tarball of name@version to w.
func (s *Systems) Download(ctx context.Context, name, version string, w io.Writer) (int64, error) {
	if name == "" || version == "" {
		return 0, ErrNameRequired
	}
	st := s.DownloadStream(ctx, name, version, nil)
	defer func() { _ = st.Close() }()

	n, err := io.Copy(w, st)
	if err != nil {
		return n, err
	}
	return n, st.Err()
}
