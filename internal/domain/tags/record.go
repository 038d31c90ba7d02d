package tags

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a tag has no stored record.
var ErrNotFound = errors.New("tag not found")

// Record is the persisted unit for one tag.
type Record struct {
	Tag                string            `json:"tag" yaml:"tag" toml:"tag"`
	TagTranslation     string            `json:"tag_translation" yaml:"tag_translation" toml:"tag_translation"`
	Synonyms           string            `json:"synonyms" yaml:"synonyms" toml:"synonyms"`
	Meaning            string            `json:"meaning" yaml:"meaning" toml:"meaning"`
	MeaningTranslation string            `json:"meaning_translation" yaml:"meaning_translation" toml:"meaning_translation"`
	Sections           map[string]string `json:"sections" yaml:"sections" toml:"sections"`
	Posts              int               `json:"posts" yaml:"posts" toml:"posts"`
}

// NormalizeTag converts a user-entered tag to its storage key.
func NormalizeTag(tag string) string {
	return strings.ReplaceAll(strings.TrimSpace(tag), " ", "_")
}

// JoinSynonyms renders an ordered synonym list the way records store it.
func JoinSynonyms(names []string) string {
	return strings.Join(names, ", ")
}

// SynonymList splits the stored synonym string back into names.
func (r Record) SynonymList() []string {
	if strings.TrimSpace(r.Synonyms) == "" {
		return nil
	}
	parts := strings.Split(r.Synonyms, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// clone returns a copy that shares no mutable state with r.
func (r Record) clone() Record {
	if r.Sections != nil {
		sections := make(map[string]string, len(r.Sections))
		for k, v := range r.Sections {
			sections[k] = v
		}
		r.Sections = sections
	}
	return r
}
