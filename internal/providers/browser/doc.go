// Package browser harvests site credentials from a locally installed browser.
//
// When the plain HTTP client is turned away by an anti-bot interstitial,
// the fetcher asks a Harvester to open the page in a headless browser with
// a throwaway profile. A small script prints the browser's user agent and
// cookies, which are then replayed by the HTTP client for the rest of the
// session.
//
// Browser discovery checks, in order: the configured path, the default
// Chrome and Edge install locations, then well-known command names on PATH.
package browser
