// Package security holds the TLS material a dispatcher presents to the
// provisioning service.
//
// Client certificates may be given inline as PEM (the form credentials
// usually take once resolved from a secret store) or as file paths:
//
//	cfg := security.TLSConfig{
//	    Cert: certPEM,
//	    Key:  keyPEM,
//	    RejectUnauthorized: security.Bool(false),
//	}
//	tlsConfig, err := cfg.Build()
package security
