// Package fetch resolves a tag to a wiki record: cache lookup, validation,
// a single background page fetch with one credential refresh, extraction
// and persistence. Progress is reported as a stream of Events.
package fetch
