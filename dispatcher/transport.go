package dispatcher

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"github.com/kbukum/provisioner/config"
	"github.com/kbukum/provisioner/logger"
)

// HTTP/2 connection health checking.
const (
	h2ReadIdleTimeout = 30 * time.Second
	h2PingTimeout     = 15 * time.Second
)

// newTransport builds the transport for conn: proxy, client certificate,
// verification override and HTTP/2 over TLS with health pings. No overall
// request timeout is set; callers bound requests with their context.
func newTransport(conn *config.Connection, log *logger.Logger) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if conn.ProxyURL != "" {
		proxy, err := url.Parse(conn.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: invalid proxy_url: %w", err)
		}
		t.Proxy = http.ProxyURL(proxy)
	}

	tlsSettings := conn.TLSConfig()
	if tlsSettings != nil && !tlsSettings.HasClientCert() &&
		(len(tlsSettings.Cert) > 0 || tlsSettings.CertFile != "" || len(tlsSettings.Key) > 0 || tlsSettings.KeyFile != "") {
		log.Warn("client certificate needs both cert and key; ignoring the half that was given")
	}
	tlsCfg, err := tlsSettings.Build()
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	if tlsCfg != nil {
		t.TLSClientConfig = tlsCfg
	}

	h2, err := http2.ConfigureTransports(t)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: configure http2: %w", err)
	}
	h2.ReadIdleTimeout = h2ReadIdleTimeout
	h2.PingTimeout = h2PingTimeout

	return t, nil
}
