package dispatcher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/kbukum/provisioner/config"
	"github.com/kbukum/provisioner/security/tlstest"
)

func newTLSServer(t *testing.T, certs *tlstest.Certs, auth tls.ClientAuthType) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth == tls.RequireAnyClientCert && (r.TLS == nil || len(r.TLS.PeerCertificates) == 0) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/servers" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", ContentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"servers": []map[string]string{{"name": "slave-a0"}},
		})
	}))
	srv.TLS = certs.ServerConfig(auth)
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

// tlsEndpoint addresses the server as localhost so the certificate SAN
// matches.
func tlsEndpoint(t *testing.T, srv *httptest.Server) config.Map {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return config.Map{
		"host":   "localhost",
		"port":   u.Port(),
		"scheme": "https",
	}
}

func TestMutualTLS_Servers(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := newTLSServer(t, certs, tls.RequireAnyClientCert)

	src := tlsEndpoint(t, srv)
	src["reject_unauthorized"] = false
	src["tls"] = config.Map{
		"cert": string(certs.Client.CertPEM),
		"key":  string(certs.Client.KeyPEM),
	}
	d := newTestDispatcher(t, src)

	resp, err := d.Do(context.Background(), Path("/servers"))
	if err != nil {
		t.Fatalf("GET /servers: %v", err)
	}
	want := map[string]any{
		"servers": []any{map[string]any{"name": "slave-a0"}},
	}
	if !reflect.DeepEqual(resp.Result, want) {
		t.Errorf("expected %v, got %v", want, resp.Result)
	}
}

func TestMutualTLS_ClientCertFiles(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := newTLSServer(t, certs, tls.RequireAnyClientCert)

	src := tlsEndpoint(t, srv)
	src["tls.cert_file"] = certs.Client.CertFile
	src["tls.key_file"] = certs.Client.KeyFile
	src["tls.ca_file"] = certs.CAFile
	d := newTestDispatcher(t, src)

	done := d.DispatchBuffered(context.Background(), Path("/servers"),
		func(err error) { t.Errorf("unexpected failure: %v", err) },
		func(resp *Response, result any) {
			if resp.StatusCode != http.StatusOK || result == nil {
				t.Errorf("unexpected success %d %v", resp.StatusCode, result)
			}
		})
	<-done
}

func TestMutualTLS_MissingClientCert(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := newTLSServer(t, certs, tls.RequireAnyClientCert)

	src := tlsEndpoint(t, srv)
	src["reject_unauthorized"] = false
	d := newTestDispatcher(t, src)

	_, err := d.Do(context.Background(), Path("/servers"))
	if !IsTransport(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestTLS_Verification(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := newTLSServer(t, certs, tls.NoClientCert)

	tests := []struct {
		name    string
		extra   config.Map
		wantErr bool
	}{
		{name: "unknown authority", extra: config.Map{}, wantErr: true},
		{name: "verification disabled", extra: config.Map{"reject_unauthorized": false}},
		{name: "trusted ca file", extra: config.Map{"tls.ca_file": certs.CAFile}},
		{name: "explicitly enabled with ca", extra: config.Map{"reject_unauthorized": true, "tls.ca_file": certs.CAFile}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tlsEndpoint(t, srv)
			for k, v := range tt.extra {
				src[k] = v
			}
			d := newTestDispatcher(t, src)

			_, err := d.Do(context.Background(), Path("/servers"))
			if tt.wantErr {
				if !IsTransport(err) {
					t.Errorf("expected TransportError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
