// Package resilience retries idempotent provisioning calls with exponential
// backoff and jitter.
//
//	cfg := resilience.DefaultRetryConfig()
//	cfg.RetryIf = dispatcher.IsTransport
//	servers, err := resilience.Retry(ctx, cfg, func(ctx context.Context, attempt int) ([]Server, error) {
//	    return users.Servers(ctx, "alice")
//	})
//
// The dispatcher itself never retries.
package resilience
