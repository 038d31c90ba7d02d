// Package scraper turns Danbooru-family wiki pages into structured text.
//
// This package is organized into three stages:
//   - normalize: renders a markup fragment as indentation-aware plain text
//   - segment: splits a wiki body into a meaning block and titled sections
//   - page: locates the wiki body, alternate names, and post count in a page
//
// Built on specialized libraries:
//   - goquery: CSS selectors for the wiki body and alternate names
//   - htmlquery: XPath lookup of the posts sub-navigation entry
//   - bluemonday: sanitization of free-standing fragments
//   - chardet: character encoding detection before parsing
//
// Example Usage:
//
//	z := scraper.NewNormalizer()
//	page, err := z.ParseWikiPage(body)
//	if errors.Is(err, scraper.ErrNoWikiBody) {
//		// page exists but has no wiki content
//	}
package scraper
