package suggest

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
	"github.com/hbollon/go-edlib"
	"github.com/tchap/go-patricia/v2/patricia"
)

// MinTokenLength is the exclusive lower bound on indexed token length.
const MinTokenLength = 3

// MaxDistance caps the edit distance of a spelling suggestion.
const MaxDistance = 3

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Index is the spelling index: lowercase tokens longer than MinTokenLength
// runes taken from every record's tag, synonyms, meaning, and sections,
// with occurrence counts. It is derived state and is rebuilt wholesale.
type Index struct {
	mu   sync.RWMutex
	trie *patricia.Trie
	size int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{trie: patricia.NewTrie()}
}

// Tokenize splits text into lowercase index tokens.
func Tokenize(text string) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(tok) > MinTokenLength {
			out = append(out, tok)
		}
	}
	return out
}

// Rebuild replaces the index contents with tokens from records.
func (ix *Index) Rebuild(records []tags.Record) {
	trie := patricia.NewTrie()
	size := 0

	add := func(text string) {
		for _, tok := range Tokenize(text) {
			key := patricia.Prefix(tok)
			if item := trie.Get(key); item != nil {
				trie.Set(key, item.(int)+1)
				continue
			}
			trie.Insert(key, 1)
			size++
		}
	}

	for _, rec := range records {
		add(rec.Tag)
		add(rec.Synonyms)
		add(rec.Meaning)
		for _, body := range rec.Sections {
			add(body)
		}
	}

	ix.mu.Lock()
	ix.trie, ix.size = trie, size
	ix.mu.Unlock()
}

// Len returns the number of distinct tokens.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

// Contains reports whether word (case-insensitive) is an indexed token.
func (ix *Index) Contains(word string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.trie.Get(patricia.Prefix(strings.ToLower(word))) != nil
}

// Tokens returns every token in lexicographic order.
func (ix *Index) Tokens() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]string, 0, ix.size)
	_ = ix.trie.Visit(func(p patricia.Prefix, _ patricia.Item) error {
		out = append(out, string(p))
		return nil
	})
	sort.Strings(out)
	return out
}

// Completion is a token and how often it occurs across the cache.
type Completion struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Complete returns up to limit tokens starting with prefix, most frequent
// first and then alphabetical. A limit of zero or less returns all.
func (ix *Index) Complete(prefix string, limit int) []Completion {
	ix.mu.RLock()
	var out []Completion
	_ = ix.trie.VisitSubtree(patricia.Prefix(strings.ToLower(prefix)), func(p patricia.Prefix, item patricia.Item) error {
		out = append(out, Completion{Token: string(p), Count: item.(int)})
		return nil
	})
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Distance is the Levenshtein edit distance over runes; insertions,
// deletions and substitutions each cost one.
func Distance(a, b string) int {
	return edlib.LevenshteinDistance(a, b)
}

// FindClosestMatch returns the indexed token nearest to word. A word that is
// already indexed is returned as is. Tokens that contain word, or are
// contained in it, are skipped as plural forms rather than misspellings.
// The best distance must not exceed min(MaxDistance, len(word)/2); ties go
// to the alphabetically first token.
func (ix *Index) FindClosestMatch(word string) (string, bool) {
	word = strings.ToLower(word)
	if word == "" {
		return "", false
	}
	if ix.Contains(word) {
		return word, true
	}

	limit := utf8.RuneCountInString(word) / 2
	if limit > MaxDistance {
		limit = MaxDistance
	}

	best, bestDist := "", -1
	for _, cand := range ix.Tokens() {
		if strings.Contains(word, cand) || strings.Contains(cand, word) {
			continue
		}
		d := Distance(word, cand)
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}

	if bestDist < 0 || bestDist > limit {
		return "", false
	}
	return best, true
}
