// Package main is the danwiki command: a local cache of booru wiki tag
// pages with offline search, spelling suggestions, and a small API server.
//
// Usage:
//
//	danwiki fetch cat_ears            # cache hit or fetch from the wiki
//	danwiki search "cat ears"         # substring search over cached tags
//	danwiki show cat_ears             # print one cached record
//	danwiki translate --tag-translation "猫耳" cat_ears
//	danwiki suggest cat_ear           # best-effort alternate page
//	danwiki export --out tags.json.zst
//	danwiki import tags.json.zst      # merge an export back in
//	danwiki serve                     # JSON API, WebSocket events, /metrics
//
// Configuration:
//   - Environment variables (DANWIKI_SITE, DANWIKI_STORE, LOG_LEVEL, ...)
//   - Global flags override the environment
//
// Logs go to stderr; command output goes to stdout.
package main
