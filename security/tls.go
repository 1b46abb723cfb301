package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig describes the client side of a (mutual) TLS connection.
type TLSConfig struct {
	// Cert and Key are the client certificate and private key in PEM form.
	Cert []byte `yaml:"cert" mapstructure:"cert"`
	Key  []byte `yaml:"key" mapstructure:"key"`

	// CertFile and KeyFile are used when Cert/Key are empty.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// CAFile adds a CA bundle for verifying the server.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// ServerName overrides the server name used for certificate verification.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// RejectUnauthorized is three-state: nil keeps the transport default,
	// false disables server certificate verification, true forces it.
	RejectUnauthorized *bool `yaml:"-" mapstructure:"-"`

	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// Bool returns a pointer to b, for RejectUnauthorized.
func Bool(b bool) *bool {
	return &b
}

// Build creates a *tls.Config. It returns nil when nothing is configured,
// leaving the transport on its defaults.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}

	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}

	cfg := &tls.Config{
		ServerName: c.ServerName,
		MinVersion: minVersion,
	}
	if c.RejectUnauthorized != nil {
		cfg.InsecureSkipVerify = !*c.RejectUnauthorized // nolint:gosec
	}

	if err := c.loadCA(cfg); err != nil {
		return nil, err
	}
	if err := c.loadClientCert(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a certificate given both inline and as a file.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if len(c.Cert) > 0 && c.CertFile != "" {
		return fmt.Errorf("security/tls: cert and cert_file are mutually exclusive")
	}
	if len(c.Key) > 0 && c.KeyFile != "" {
		return fmt.Errorf("security/tls: key and key_file are mutually exclusive")
	}
	return nil
}

// IsEnabled returns true if any TLS setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.RejectUnauthorized != nil || c.CAFile != "" || c.ServerName != "" ||
		c.hasCert() || c.hasKey()
}

// HasClientCert reports whether both halves of the client key pair are set.
// A lone certificate or key is ignored.
func (c *TLSConfig) HasClientCert() bool {
	return c != nil && c.hasCert() && c.hasKey()
}

func (c *TLSConfig) hasCert() bool { return len(c.Cert) > 0 || c.CertFile != "" }
func (c *TLSConfig) hasKey() bool  { return len(c.Key) > 0 || c.KeyFile != "" }

func (c *TLSConfig) loadCA(cfg *tls.Config) error {
	if c.CAFile == "" {
		return nil
	}
	ca, err := os.ReadFile(c.CAFile)
	if err != nil {
		return fmt.Errorf("security/tls: failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return fmt.Errorf("security/tls: failed to parse CA certificate")
	}
	cfg.RootCAs = pool
	return nil
}

func (c *TLSConfig) loadClientCert(cfg *tls.Config) error {
	if !c.HasClientCert() {
		return nil
	}
	certPEM, err := readPEM(c.Cert, c.CertFile)
	if err != nil {
		return fmt.Errorf("security/tls: failed to read client certificate: %w", err)
	}
	keyPEM, err := readPEM(c.Key, c.KeyFile)
	if err != nil {
		return fmt.Errorf("security/tls: failed to read client key: %w", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return fmt.Errorf("security/tls: failed to load client certificate: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}

func readPEM(inline []byte, path string) ([]byte, error) {
	if len(inline) > 0 {
		return inline, nil
	}
	return os.ReadFile(path)
}
