package security

import (
	"crypto/tls"
	"testing"

	"github.com/kbukum/provisioner/security/tlstest"
)

func TestTLSConfig_Build_NilConfig(t *testing.T) {
	var cfg *TLSConfig
	result, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatal("expected nil for nil config")
	}
}

func TestTLSConfig_Build_ZeroValue(t *testing.T) {
	result, err := (&TLSConfig{}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatal("expected nil for zero-value config")
	}
}

func TestTLSConfig_Build_RejectUnauthorized(t *testing.T) {
	tests := []struct {
		name       string
		reject     *bool
		wantConfig bool
		wantSkip   bool
	}{
		{"unset keeps transport default", nil, false, false},
		{"false skips verification", Bool(false), true, true},
		{"true forces verification", Bool(true), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := (&TLSConfig{RejectUnauthorized: tt.reject}).Build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (result != nil) != tt.wantConfig {
				t.Fatalf("expected config=%v, got %v", tt.wantConfig, result)
			}
			if result != nil && result.InsecureSkipVerify != tt.wantSkip {
				t.Errorf("InsecureSkipVerify = %v, want %v", result.InsecureSkipVerify, tt.wantSkip)
			}
		})
	}
}

func TestTLSConfig_Build_DefaultMinVersion(t *testing.T) {
	result, err := (&TLSConfig{ServerName: "example.com"}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected MinVersion=TLS12, got %d", result.MinVersion)
	}
	if result.ServerName != "example.com" {
		t.Errorf("expected ServerName=example.com, got %s", result.ServerName)
	}
}

func TestTLSConfig_Build_InlinePEM(t *testing.T) {
	certs := tlstest.Generate(t)
	cfg := &TLSConfig{Cert: certs.Client.CertPEM, Key: certs.Client.KeyPEM}
	result, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Certificates) != 1 {
		t.Errorf("expected 1 certificate, got %d", len(result.Certificates))
	}
}

func TestTLSConfig_Build_Files(t *testing.T) {
	certs := tlstest.Generate(t)
	cfg := &TLSConfig{
		CAFile:   certs.CAFile,
		CertFile: certs.Client.CertFile,
		KeyFile:  certs.Client.KeyFile,
	}
	result, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RootCAs == nil {
		t.Error("expected RootCAs to be set")
	}
	if len(result.Certificates) != 1 {
		t.Errorf("expected 1 certificate, got %d", len(result.Certificates))
	}
}

func TestTLSConfig_Build_HalfPairIgnored(t *testing.T) {
	certs := tlstest.Generate(t)
	result, err := (&TLSConfig{Cert: certs.Client.CertPEM}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Certificates) != 0 {
		t.Errorf("a certificate without a key must not be attached")
	}
}

func TestTLSConfig_Build_MismatchedPair(t *testing.T) {
	certs := tlstest.Generate(t)
	cfg := &TLSConfig{Cert: certs.Client.CertPEM, Key: certs.Server.KeyPEM}
	if _, err := cfg.Build(); err == nil {
		t.Fatal("expected error for mismatched key pair")
	}
}

func TestTLSConfig_Build_InvalidCAFile(t *testing.T) {
	if _, err := (&TLSConfig{CAFile: "/nonexistent/ca.pem"}).Build(); err == nil {
		t.Fatal("expected error for nonexistent CA file")
	}
}

func TestTLSConfig_Build_InvalidCAContent(t *testing.T) {
	caFile := tlstest.WriteInvalidPEM(t, "bad-ca.pem")
	if _, err := (&TLSConfig{CAFile: caFile}).Build(); err == nil {
		t.Fatal("expected error for invalid CA PEM content")
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr bool
	}{
		{"nil", nil, false},
		{"files", &TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}, false},
		{"inline", &TLSConfig{Cert: []byte("c"), Key: []byte("k")}, false},
		{"cert twice", &TLSConfig{Cert: []byte("c"), CertFile: "c.pem"}, true},
		{"key twice", &TLSConfig{Key: []byte("k"), KeyFile: "k.pem"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTLSConfig_HasClientCert(t *testing.T) {
	if (&TLSConfig{CertFile: "c"}).HasClientCert() {
		t.Error("half pair should not count")
	}
	if !(&TLSConfig{CertFile: "c", Key: []byte("k")}).HasClientCert() {
		t.Error("mixed inline/file pair should count")
	}
	var nilCfg *TLSConfig
	if nilCfg.HasClientCert() {
		t.Error("nil config has no client cert")
	}
}
