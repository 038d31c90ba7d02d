package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

const (
	wikiBodySelector  = "#wiki-page-body"
	otherNameSelector = ".wiki-other-name"
	postsXPath        = "//*[@id='subnav-posts']"
)

var postsPattern = regexp.MustCompile(`Posts\s*\(\s*([\d,]+)\s*\)`)

// WikiPage is everything extracted from one wiki page.
type WikiPage struct {
	Synonyms []string
	Meaning  string
	Sections map[string]string
	Posts    int
}

// ParseWikiPage extracts synonyms, meaning, sections, and post count from a
// full wiki page. ErrNoWikiBody is returned when the content container is missing.
func (z *Normalizer) ParseWikiPage(body []byte) (*WikiPage, error) {
	doc, err := LoadHTML(body)
	if err != nil {
		return nil, err
	}
	root := doc.Nodes[0]

	wiki := doc.Find(wikiBodySelector).First()
	if wiki.Length() == 0 {
		return nil, ErrNoWikiBody
	}

	segments := z.Segment(wiki.Get(0))
	return &WikiPage{
		Synonyms: Synonyms(doc),
		Meaning:  segments.Meaning,
		Sections: segments.Sections,
		Posts:    PostCount(root),
	}, nil
}

// Synonyms returns the alternate wiki names in document order with spaces
// turned into underscores. Duplicates are kept.
func Synonyms(doc *goquery.Document) []string {
	var names []string
	doc.Find(otherNameSelector).Each(func(_ int, s *goquery.Selection) {
		names = append(names, strings.ReplaceAll(strings.TrimSpace(s.Text()), " ", "_"))
	})
	return names
}

// PostCount reads "Posts (N)" from the posts sub-navigation entry. Missing or
// unparseable counts are 0.
func PostCount(root *html.Node) int {
	node, err := htmlquery.Query(root, postsXPath)
	if err != nil || node == nil {
		return 0
	}

	m := postsPattern.FindStringSubmatch(htmlquery.InnerText(node))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
