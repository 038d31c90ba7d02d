package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, s.Upsert(Record{Tag: "cat_ears", TagTranslation: "猫耳", Synonyms: "nekomimi, kemonomimi"}))
	require.NoError(t, s.Upsert(Record{Tag: "dog_ears", TagTranslation: "Dog Ears CN"}))
	require.NoError(t, s.Upsert(Record{Tag: "cat", Synonyms: "neko"}))
	return s
}

func TestSearchCaseAndSeparatorInsensitive(t *testing.T) {
	s := seededStore(t)

	for _, q := range []string{"Cat Ears", "cat ears", "CAT_EARS", "cat_ears"} {
		t.Run(q, func(t *testing.T) {
			assert.Equal(t, []string{"cat_ears"}, tagsOf(s.Search(q)))
		})
	}
}

func TestSearchFields(t *testing.T) {
	s := seededStore(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"cat", []string{"cat_ears", "cat"}},
		{"ears", []string{"cat_ears", "dog_ears"}},
		{"猫", []string{"cat_ears"}},
		{"dog ears cn", nil},
		{"dog", []string{"dog_ears"}},
		{"neko", []string{"cat_ears", "cat"}},
		{"kemonomimi", []string{"cat_ears"}},
		{"horse", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := s.Search(tt.query)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, tagsOf(got))
		})
	}
}

func TestLookup(t *testing.T) {
	s := seededStore(t)

	t.Run("single exact hit", func(t *testing.T) {
		res := s.Lookup("cat ears")
		require.NotNil(t, res.Exact)
		assert.Equal(t, "cat_ears", res.Exact.Tag)
	})

	t.Run("several hits", func(t *testing.T) {
		res := s.Lookup("cat")
		assert.Nil(t, res.Exact)
		assert.Len(t, res.Matches, 2)
	})

	t.Run("partial single hit is not exact", func(t *testing.T) {
		res := s.Lookup("dog")
		assert.Nil(t, res.Exact)
		assert.Len(t, res.Matches, 1)
	})

	t.Run("no hits", func(t *testing.T) {
		res := s.Lookup("horse")
		assert.Nil(t, res.Exact)
		assert.Empty(t, res.Matches)
	})
}

func TestSynonymList(t *testing.T) {
	assert.Equal(t, []string{"a", "b_c"}, Record{Synonyms: "a, b_c"}.SynonymList())
	assert.Nil(t, Record{}.SynonymList())
	assert.Equal(t, "a, b", JoinSynonyms([]string{"a", "b"}))
}
