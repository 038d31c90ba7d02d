// Package middleware provides gin middleware for the local API: CORS for
// browser front ends and per-client rate limiting.
package middleware
