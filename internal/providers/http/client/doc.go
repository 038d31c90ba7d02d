// Package client fetches wiki pages politely.
//
// Built on go-resty/resty over the pooled transport from
// hashicorp/go-retryablehttp, with:
//   - a token bucket spacing requests at least Delay apart
//   - a random jitter pause before every attempt
//   - a fixed number of attempts with a pause after transport errors
//   - challenge-page detection that stops retrying immediately
//   - a circuit breaker that fails fast while the site is down
//
// Callers only distinguish success from ErrNoResponse:
//
//	resp, err := c.Get(ctx, url)
//	if errors.Is(err, client.ErrNoResponse) {
//		// try again with fresh credentials
//	}
package client
