package provisionertest

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/provisioner/config"
	"github.com/kbukum/provisioner/logger"
	"github.com/kbukum/provisioner/security/tlstest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Request is what the server saw of one incoming request.
type Request struct {
	Method        string
	Path          string
	RequestID     string
	Authorization string
	ContentType   string
	UserAgent     string
}

// Server is a fake provisioning service on an httptest.Server.
type Server struct {
	srv    *httptest.Server
	engine *gin.Engine
	log    *logger.Logger

	username string
	password string
	certs    *tlstest.Certs
	clientCA tls.ClientAuthType

	mu       sync.Mutex
	configs  map[string]map[string]any
	systems  map[string]map[string]any
	tarballs map[string][]byte
	users    map[string]map[string]any
	keys     map[string]map[string]string
	servers  []map[string]any
	faults   map[string]int
	requests []Request
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials requires HTTP Basic auth on every route.
func WithCredentials(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithTLS serves HTTPS with certs; auth selects client certificate policy.
func WithTLS(certs *tlstest.Certs, auth tls.ClientAuthType) Option {
	return func(s *Server) {
		s.certs = certs
		s.clientCA = auth
	}
}

// WithLogger logs every request at debug level.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New starts a Server and closes it when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		log:      logger.Nop(),
		configs:  make(map[string]map[string]any),
		systems:  make(map[string]map[string]any),
		tarballs: make(map[string][]byte),
		users:    make(map[string]map[string]any),
		keys:     make(map[string]map[string]string),
		faults:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.record(), s.fault())
	if s.username != "" {
		s.engine.Use(gin.BasicAuth(gin.Accounts{s.username: s.password}))
	}
	s.routes()

	s.srv = httptest.NewUnstartedServer(s.engine)
	if s.certs != nil {
		s.srv.TLS = s.certs.ServerConfig(s.clientCA)
		s.srv.StartTLS()
	} else {
		s.srv.Start()
	}
	t.Cleanup(s.Close)
	return s
}

// URL returns the base URL, e.g. "http://127.0.0.1:PORT".
func (s *Server) URL() string {
	return s.srv.URL
}

// Getter returns connection settings pointing at the server, including
// credentials when the server requires them. With TLS the host is
// "localhost" so the test certificate verifies.
func (s *Server) Getter() config.Map {
	u, _ := url.Parse(s.srv.URL)
	m := config.Map{
		"host":   u.Hostname(),
		"port":   u.Port(),
		"scheme": u.Scheme,
	}
	if s.certs != nil {
		m["host"] = "localhost"
	}
	if s.username != "" {
		m[config.KeyUsername] = s.username
		m[config.KeyPassword] = s.password
	}
	return m
}

// Handler returns the gin engine for use without a listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Fail makes method+path answer status until Recover is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = status
}

// Recover removes every injected failure.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]int)
}

// Requests returns a copy of the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// AddServer seeds a server record in group, created by owner.
func (s *Server) AddServer(group, owner, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = append(s.servers, map[string]any{"name": name, "group": group, "owner": owner})
}

// Tarball returns the stored upload of name@version.
func (s *Server) Tarball(name, version string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.tarballs[name+"@"+version]
	return b, ok
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-Id")
		if id != "" {
			c.Header("X-Request-Id", id)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			RequestID:     id,
			Authorization: c.GetHeader("Authorization"),
			ContentType:   c.GetHeader("Content-Type"),
			UserAgent:     c.GetHeader("User-Agent"),
		})
		s.mu.Unlock()

		c.Next()

		s.log.Debug("provisionertest request", logger.Fields(
			logger.FieldMethod, c.Request.Method,
			logger.FieldURI, c.Request.URL.Path,
			logger.FieldStatus, c.Writer.Status(),
			logger.FieldRequestID, id,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}
}

func (s *Server) fault() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		status, ok := s.faults[c.Request.Method+" "+c.Request.URL.Path]
		s.mu.Unlock()
		if ok {
			abort(c, status, http.StatusText(status))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// sortedValues returns the documents of m ordered by key.
func sortedValues(m map[string]map[string]any) []map[string]any {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, m[name])
	}
	return out
}
