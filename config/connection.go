package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/provisioner/security"
	"github.com/kbukum/provisioner/validation"
)

// Recognized configuration keys.
const (
	KeyHost               = "host"
	KeyPort               = "port"
	KeyScheme             = "scheme"
	KeyProtocol           = "protocol" // alias of scheme
	KeyRejectUnauthorized = "reject_unauthorized"
	KeyProxyURL           = "proxy_url"
	KeyProxy              = "proxy" // alias of proxy_url
	KeyUsername           = "auth.username"
	KeyPassword           = "auth.password"
	KeyTLSCert            = "tls.cert"
	KeyTLSKey             = "tls.key"
	KeyTLSCertFile        = "tls.cert_file"
	KeyTLSKeyFile         = "tls.key_file"
	KeyTLSCAFile          = "tls.ca_file"
)

// Defaults applied to an empty Connection.
const (
	DefaultHost   = "localhost"
	DefaultPort   = 9000
	DefaultScheme = "http"
)

// Getter looks up a configuration value by dotted key. It returns nil for
// unknown or unset keys. *viper.Viper satisfies it.
type Getter interface {
	Get(key string) any
}

// BasicAuth holds HTTP Basic credentials. A pair with one half missing is
// valid and sends no header until the other half is known.
type BasicAuth struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Complete reports whether both username and password are set.
func (a *BasicAuth) Complete() bool {
	return a != nil && a.Username != "" && a.Password != ""
}

// Connection describes one provisioning service endpoint.
type Connection struct {
	Host   string `yaml:"host" mapstructure:"host" validate:"required"`
	Port   int    `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	Scheme string `yaml:"scheme" mapstructure:"scheme" validate:"oneof=http https"`

	// RejectUnauthorized is three-state; nil leaves certificate
	// verification to the transport default.
	RejectUnauthorized *bool `yaml:"reject_unauthorized" mapstructure:"reject_unauthorized"`

	ProxyURL string `yaml:"proxy_url" mapstructure:"proxy_url" validate:"omitempty,url"`

	Auth *BasicAuth          `yaml:"auth" mapstructure:"auth"`
	TLS  *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills host, port and scheme when unset.
func (c *Connection) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	c.Scheme = strings.TrimSuffix(strings.ToLower(c.Scheme), ":")
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
}

// Validate checks the struct tags and the TLS material. Host names are
// not checked; an unresolvable host fails at dial time.
func (c *Connection) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	v := validation.New()
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			v.AddError("tls", err.Error())
		}
	}
	if err := v.Err(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// BaseURI returns scheme://host:port.
func (c *Connection) BaseURI() string {
	return c.Scheme + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLSConfig merges RejectUnauthorized into the TLS material. It returns nil
// when neither is configured.
func (c *Connection) TLSConfig() *security.TLSConfig {
	if c.TLS == nil && c.RejectUnauthorized == nil {
		return nil
	}
	var out security.TLSConfig
	if c.TLS != nil {
		out = *c.TLS
	}
	out.RejectUnauthorized = c.RejectUnauthorized
	return &out
}

// Get implements Getter over the struct fields.
func (c *Connection) Get(key string) any {
	if c == nil {
		return nil
	}
	switch key {
	case KeyHost:
		return nonEmpty(c.Host)
	case KeyPort:
		if c.Port == 0 {
			return nil
		}
		return c.Port
	case KeyScheme, KeyProtocol:
		return nonEmpty(c.Scheme)
	case KeyRejectUnauthorized:
		if c.RejectUnauthorized == nil {
			return nil
		}
		return *c.RejectUnauthorized
	case KeyProxyURL, KeyProxy:
		return nonEmpty(c.ProxyURL)
	case KeyUsername:
		if c.Auth == nil {
			return nil
		}
		return nonEmpty(c.Auth.Username)
	case KeyPassword:
		if c.Auth == nil {
			return nil
		}
		return nonEmpty(c.Auth.Password)
	}

	if c.TLS == nil {
		return nil
	}
	switch key {
	case KeyTLSCert:
		return nonEmptyBytes(c.TLS.Cert)
	case KeyTLSKey:
		return nonEmptyBytes(c.TLS.Key)
	case KeyTLSCertFile:
		return nonEmpty(c.TLS.CertFile)
	case KeyTLSKeyFile:
		return nonEmpty(c.TLS.KeyFile)
	case KeyTLSCAFile:
		return nonEmpty(c.TLS.CAFile)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Connection) Clone() *Connection {
	out := *c
	if c.RejectUnauthorized != nil {
		out.RejectUnauthorized = security.Bool(*c.RejectUnauthorized)
	}
	if c.Auth != nil {
		auth := *c.Auth
		out.Auth = &auth
	}
	if c.TLS != nil {
		t := *c.TLS
		t.Cert = append([]byte(nil), c.TLS.Cert...)
		t.Key = append([]byte(nil), c.TLS.Key...)
		out.TLS = &t
	}
	return &out
}

// FromGetter snapshots g into a Connection. Values are coerced with cast, so
// strings from the environment ("8443", "false") are accepted. Defaults are
// not applied.
func FromGetter(g Getter) *Connection {
	if c, ok := g.(*Connection); ok {
		if c == nil {
			return &Connection{}
		}
		return c.Clone()
	}

	c := &Connection{
		Host:     cast.ToString(g.Get(KeyHost)),
		Port:     cast.ToInt(g.Get(KeyPort)),
		Scheme:   firstString(g, KeyScheme, KeyProtocol),
		ProxyURL: firstString(g, KeyProxyURL, KeyProxy),
	}
	if v := g.Get(KeyRejectUnauthorized); v != nil {
		if b, err := cast.ToBoolE(v); err == nil {
			c.RejectUnauthorized = &b
		}
	}

	if username, password := Credentials(g); username != "" || password != "" {
		c.Auth = &BasicAuth{Username: username, Password: password}
	}

	t := &security.TLSConfig{
		Cert:     toBytes(g.Get(KeyTLSCert)),
		Key:      toBytes(g.Get(KeyTLSKey)),
		CertFile: cast.ToString(g.Get(KeyTLSCertFile)),
		KeyFile:  cast.ToString(g.Get(KeyTLSKeyFile)),
		CAFile:   cast.ToString(g.Get(KeyTLSCAFile)),
	}
	if t.IsEnabled() {
		c.TLS = t
	}
	return c
}

// Credentials reads the Basic-auth username and password from g.
func Credentials(g Getter) (username, password string) {
	if g == nil {
		return "", ""
	}
	return cast.ToString(g.Get(KeyUsername)), cast.ToString(g.Get(KeyPassword))
}

func firstString(g Getter, keys ...string) string {
	for _, k := range keys {
		if s := cast.ToString(g.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

func toBytes(v any) []byte {
	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		return b
	default:
		s := cast.ToString(v)
		if s == "" {
			return nil
		}
		return []byte(s)
	}
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonEmptyBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
