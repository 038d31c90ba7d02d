package suggest

import (
	"net/url"
	"strings"

	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
)

// Suggestion sources.
const (
	SourceStore    = "store"
	SourceIndex    = "index"
	SourceRule     = "rule"
	SourceFallback = "fallback"
)

// Suggestion is a best-effort alternate for a tag that could not be fetched.
type Suggestion struct {
	Tag    string `json:"tag,omitempty"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Known reports whether a candidate tag is already cached.
type Known interface {
	Contains(tag string) bool
}

// Suggester combines rule-based variants with the spelling index.
type Suggester struct {
	known Known
	index *Index
}

// NewSuggester creates a suggester over a record store and its index.
func NewSuggester(known Known, index *Index) *Suggester {
	return &Suggester{known: known, index: index}
}

// Candidates returns rule-based variants followed by the closest indexed
// spelling when one qualifies.
func (s *Suggester) Candidates(tag string) []string {
	tag = tags.NormalizeTag(tag)
	candidates := RuleBased(tag)

	if match, ok := s.index.FindClosestMatch(tag); ok && !strings.EqualFold(match, tag) {
		dup := false
		for _, c := range candidates {
			if c == match {
				dup = true
				break
			}
		}
		if !dup {
			candidates = append(candidates, match)
		}
	}
	return candidates
}

// Suggest picks the first candidate that is cached or indexed, else the first
// candidate, else the bare wiki index under base. The URL is never empty.
func (s *Suggester) Suggest(base, tag string) Suggestion {
	base = strings.TrimRight(base, "/")
	candidates := s.Candidates(tag)

	for _, c := range candidates {
		if s.known != nil && s.known.Contains(c) {
			return Suggestion{Tag: c, URL: PageURL(base, c), Source: SourceStore}
		}
		if s.index.Contains(c) {
			return Suggestion{Tag: c, URL: PageURL(base, c), Source: SourceIndex}
		}
	}
	if len(candidates) > 0 {
		return Suggestion{Tag: candidates[0], URL: PageURL(base, candidates[0]), Source: SourceRule}
	}
	return Suggestion{URL: base + "/wiki_pages", Source: SourceFallback}
}

// PageURL formats the wiki page address for tag under base.
func PageURL(base, tag string) string {
	return strings.TrimRight(base, "/") + "/wiki_pages/" + tags.NormalizeTag(tag)
}

// TagFromURL recovers the tag from a wiki page URL, or "" for the bare index
// and for anything that is not a wiki page address.
func TagFromURL(pageURL string) string {
	i := strings.LastIndex(pageURL, "/wiki_pages/")
	if i < 0 {
		return ""
	}
	rest := pageURL[i+len("/wiki_pages/"):]
	if j := strings.IndexAny(rest, "?#"); j >= 0 {
		rest = rest[:j]
	}
	if tag, err := url.PathUnescape(rest); err == nil {
		rest = tag
	}
	return strings.Trim(rest, "/")
}
