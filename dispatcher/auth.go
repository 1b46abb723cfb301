package dispatcher

import (
	"encoding/base64"
	"sync/atomic"

	"github.com/kbukum/provisioner/config"
)

// BasicAuthHeader returns "Basic " + base64(username:password).
func BasicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// authMemo caches the Authorization header. Until credentials are found it
// re-reads them from the source on every call; once set it never changes.
type authMemo struct {
	src    config.Getter
	header atomic.Pointer[string]
}

func newAuthMemo(src config.Getter) *authMemo {
	m := &authMemo{src: src}
	m.derive()
	return m
}

// Header returns the cached value, deriving it if needed. "" means no
// credentials are configured yet.
func (m *authMemo) Header() string {
	if h := m.header.Load(); h != nil {
		return *h
	}
	return m.derive()
}

func (m *authMemo) derive() string {
	username, password := config.Credentials(m.src)
	if username == "" || password == "" {
		return ""
	}
	h := BasicAuthHeader(username, password)
	m.header.CompareAndSwap(nil, &h)
	return *m.header.Load()
}
