package scraper

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// nodeKind classifies a node for rendering.
type nodeKind int

const (
	kindOther nodeKind = iota
	kindText
	kindHeading
	kindBlock
	kindBreak
	kindList
	kindListItem
	kindLink
	kindSkip
)

func classify(n *html.Node) nodeKind {
	switch n.Type {
	case html.TextNode:
		return kindText
	case html.ElementNode:
	default:
		return kindSkip
	}

	switch n.DataAtom {
	case atom.H4, atom.H5, atom.H6:
		return kindHeading
	case atom.P, atom.Div:
		return kindBlock
	case atom.Br:
		return kindBreak
	case atom.Ul, atom.Ol:
		return kindList
	case atom.Li:
		return kindListItem
	case atom.A:
		return kindLink
	case atom.Script, atom.Style:
		return kindSkip
	}
	return kindOther
}

const indentUnit = "  "

var (
	innerSpaces = regexp.MustCompile(`(\S) {2,}`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// Normalizer renders wiki markup as indentation-aware plain text.
type Normalizer struct {
	sanitizer *bluemonday.Policy
}

// NewNormalizer creates a normalizer whose string entry point sanitizes input first.
func NewNormalizer() *Normalizer {
	return &Normalizer{sanitizer: bluemonday.UGCPolicy()}
}

// Normalize renders n and its descendants. A nil node yields "".
func (z *Normalizer) Normalize(n *html.Node) string {
	if n == nil {
		return ""
	}
	return tidy(render(n, 0))
}

// NormalizeHTML parses and renders a markup fragment such as a single <p> or <ul>.
// Malformed or empty input yields "".
func (z *Normalizer) NormalizeHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	clean := z.sanitizer.Sanitize(fragment)
	nodes, err := html.ParseFragment(strings.NewReader(clean), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return ""
	}

	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, render(n, 0))
	}
	return tidy(strings.Join(parts, ""))
}

// render walks n. depth is the list nesting level applied to <li> indentation.
func render(n *html.Node, depth int) string {
	switch classify(n) {
	case kindText:
		return n.Data
	case kindSkip:
		return ""
	case kindHeading, kindBlock:
		return "\n\n" + joinChildren(n, depth, " ") + "\n\n"
	case kindBreak:
		return "\n"
	case kindList:
		return renderList(n, depth)
	case kindListItem:
		return renderItem(n, depth)
	case kindLink:
		if containsImage(n) {
			return ""
		}
		return ExtractText(n)
	default:
		return joinChildren(n, depth, " ")
	}
}

// renderList renders only the <li> children of a list container.
func renderList(n *html.Node, depth int) string {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if classify(c) == kindListItem {
			items = append(items, renderItem(c, depth))
		}
	}
	return strings.Join(items, "\n")
}

func renderItem(n *html.Node, depth int) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch classify(c) {
		case kindList:
			// nested lists start on their own line one level deeper
			parts = append(parts, "\n"+renderList(c, depth+1))
		case kindText:
			// source formatting around nested lists is not content
			parts = append(parts, NormalizeWhitespace(c.Data))
		default:
			parts = append(parts, render(c, depth+1))
		}
	}
	return strings.Repeat(indentUnit, depth) + joinParts(parts, " ")
}

func joinChildren(n *html.Node, depth int, sep string) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parts = append(parts, render(c, depth))
	}
	return joinParts(parts, sep)
}

// joinParts joins non-empty parts with sep, leaving out the separator next to a line break.
func joinParts(parts []string, sep string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 && !strings.HasPrefix(p, "\n") && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString(sep)
		}
		b.WriteString(p)
	}
	return b.String()
}

func containsImage(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Img {
			return true
		}
		if containsImage(c) {
			return true
		}
	}
	return false
}

// tidy trims the result, strips trailing spaces per line, collapses repeated
// spaces after the indentation, and squeezes blank line runs to one blank line.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			line = ""
		}
		lines[i] = innerSpaces.ReplaceAllString(line, "$1 ")
	}
	out := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}
