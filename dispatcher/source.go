package dispatcher

import (
	"net/http"
	"strings"
)

// Source describes a request: a bare Path or a full Spec.
type Source interface {
	spec() Spec
}

// Path is a relative path fetched with GET.
type Path string

func (p Path) spec() Spec { return Spec{Path: string(p)} }

// Spec is a fully specified request.
type Spec struct {
	// Method defaults to GET.
	Method string
	// Path is relative to the dispatcher's remote URI and should start
	// with "/".
	Path    string
	Headers map[string]string
	// Body is serialized as JSON when the content-type is application/json.
	// Otherwise it must be an io.Reader, []byte or string and is sent as is.
	Body any
}

func (s Spec) spec() Spec { return s }

// Get returns a GET Spec for path.
func Get(path string) Spec {
	return Spec{Method: http.MethodGet, Path: path}
}

// Post returns a POST Spec for path with a JSON body.
func Post(path string, body any) Spec {
	return Spec{Method: http.MethodPost, Path: path, Body: body}
}

// Put returns a PUT Spec for path with a JSON body.
func Put(path string, body any) Spec {
	return Spec{Method: http.MethodPut, Path: path, Body: body}
}

// Delete returns a DELETE Spec for path.
func Delete(path string) Spec {
	return Spec{Method: http.MethodDelete, Path: path}
}

// WithHeader returns a copy of s with header name set to value.
func (s Spec) WithHeader(name, value string) Spec {
	headers := make(map[string]string, len(s.Headers)+1)
	for k, v := range s.Headers {
		headers[k] = v
	}
	headers[name] = value
	s.Headers = headers
	return s
}

// resolve normalizes src. A nil Source is a GET of the remote URI.
func resolve(src Source) Spec {
	var s Spec
	if src != nil {
		s = src.spec()
	}
	s.Method = strings.ToUpper(s.Method)
	if s.Method == "" {
		s.Method = http.MethodGet
	}
	return s
}

// carriesBody reports whether method normally has a request body.
func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
