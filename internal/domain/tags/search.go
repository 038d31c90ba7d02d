package tags

import "strings"

// Search returns records whose tag, translation, or synonyms contain query.
// Matching ignores case and treats spaces and underscores alike on the tag.
// Results keep insertion order.
func (s *Store) Search(query string) []Record {
	q := strings.ToLower(NormalizeTag(query))
	spaced := strings.ReplaceAll(q, "_", " ")

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, key := range s.order {
		rec := s.records[key]
		if matches(rec, q, spaced) {
			out = append(out, rec.clone())
		}
	}
	return out
}

func matches(rec Record, q, spaced string) bool {
	tag := strings.ToLower(rec.Tag)
	tagSpaced := strings.ReplaceAll(tag, "_", " ")
	if strings.Contains(tag, q) || strings.Contains(tag, spaced) ||
		strings.Contains(tagSpaced, q) || strings.Contains(tagSpaced, spaced) {
		return true
	}

	if strings.Contains(strings.ToLower(rec.TagTranslation), q) {
		return true
	}

	synonyms := strings.ReplaceAll(strings.ToLower(rec.Synonyms), " ", "_")
	return strings.Contains(synonyms, q)
}

// LookupResult is the outcome of a local-first lookup.
type LookupResult struct {
	// Exact is set when the only match is the queried tag itself.
	Exact *Record
	// Matches lists every local hit in insertion order.
	Matches []Record
}

// Lookup searches locally and reports whether the query resolved to exactly
// one record named by the query. An empty result means the caller should
// fetch online.
func (s *Store) Lookup(query string) LookupResult {
	matches := s.Search(query)
	res := LookupResult{Matches: matches}
	if len(matches) == 1 && matches[0].Tag == NormalizeTag(query) {
		res.Exact = &matches[0]
	}
	return res
}
