// Package http exposes the tag cache over a local JSON API for browser
// front ends.
//
// Routes:
//   - GET  /health, GET /api/stats
//   - GET  /api/tags?q=, GET /api/tags/:tag
//   - POST /api/fetch, PUT /api/tags/:tag/translation
//   - GET  /api/site, PUT /api/site
//   - GET  /api/suggest/:tag, GET /api/complete?prefix=
//   - GET  /api/export?format=json|yaml|toml
package http
