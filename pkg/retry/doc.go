// Package retry provides exponential backoff and retry logic for calls to
// the photo service.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return client.call(ctx, method, params, &out)
//	}, retry.FromConfig(cfg.Retry, log))
//
// Typed errors from pkg/errors decide retryability: transport and rate limit
// failures are retried, malformed responses and auth failures are not.
package retry
