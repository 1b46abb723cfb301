package provisioner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/kbukum/provisioner/dispatcher"
	"github.com/kbukum/provisioner/resilience"
)

// Document is a JSON object as sent to or returned by the service.
type Document map[string]any

// String returns the value at key as a string, or "" when absent.
func (d Document) String(key string) string {
	return cast.ToString(d[key])
}

// resource is embedded by every facade.
type resource struct {
	d     *dispatcher.Dispatcher
	retry *resilience.RetryConfig
}

func (r resource) do(ctx context.Context, spec dispatcher.Spec) (*dispatcher.Response, error) {
	if r.retry == nil || (spec.Method != "" && spec.Method != http.MethodGet) {
		return r.d.Do(ctx, spec)
	}

	cfg := *r.retry
	retryIf := cfg.RetryIf
	cfg.RetryIf = func(err error) bool {
		return dispatcher.IsTransport(err) && (retryIf == nil || retryIf(err))
	}
	return resilience.Retry(ctx, cfg, func(ctx context.Context, _ int) (*dispatcher.Response, error) {
		return r.d.Do(ctx, spec)
	})
}

// document sends spec and returns the whole response body as a Document.
func (r resource) document(ctx context.Context, spec dispatcher.Spec) (Document, error) {
	resp, err := r.do(ctx, spec)
	if err != nil {
		return nil, err
	}
	return project[Document](resp, "@this")
}

// field sends spec and returns the value at path in the response body.
func field[T any](ctx context.Context, r resource, spec dispatcher.Spec, path string) (T, error) {
	resp, err := r.do(ctx, spec)
	if err != nil {
		var zero T
		return zero, err
	}
	return project[T](resp, path)
}

// project decodes the value at the gjson path. A missing value, a null or
// a body that is not JSON yields the zero T.
func project[T any](resp *dispatcher.Response, path string) (T, error) {
	var out T
	if resp == nil || !gjson.ValidBytes(resp.Body) {
		return out, nil
	}
	res := gjson.GetBytes(resp.Body, path)
	if !res.Exists() || res.Type == gjson.Null {
		return out, nil
	}
	if err := json.Unmarshal([]byte(res.Raw), &out); err != nil {
		return out, fmt.Errorf("provisioner: decode %s: %w", path, err)
	}
	return out, nil
}

// resourcePath joins escaped segments, skipping empty ones.
func resourcePath(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// identity returns the first non-empty value among keys.
func identity(doc Document, keys ...string) string {
	for _, k := range keys {
		if v := doc.String(k); v != "" {
			return v
		}
	}
	return ""
}
