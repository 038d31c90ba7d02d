package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// MaxHTMLSize limits HTML input to 10MB to prevent memory exhaustion
const MaxHTMLSize = 10 * 1024 * 1024

var (
	// ErrNoWikiBody is returned when a page parses but has no wiki content container.
	ErrNoWikiBody = errors.New("wiki page body not found")
	// ErrEmptyHTML is returned for empty input.
	ErrEmptyHTML = errors.New("html content required")
)

// ValidateHTML checks HTML size and returns error if too large
func ValidateHTML(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyHTML
	}
	if len(data) > MaxHTMLSize {
		return fmt.Errorf("html exceeds maximum size of %d bytes", MaxHTMLSize)
	}
	return nil
}

// DetectCharset detects and returns charset from HTML bytes
func DetectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	detector := chardet.NewHtmlDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// LoadHTMLNode parses a page into an xpath-compatible tree, converting to UTF-8 first.
func LoadHTMLNode(data []byte) (*html.Node, error) {
	if err := ValidateHTML(data); err != nil {
		return nil, err
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(data), "text/html; charset="+DetectCharset(data))
	if err != nil {
		return htmlquery.Parse(bytes.NewReader(data))
	}
	return htmlquery.Parse(utf8Reader)
}

// LoadHTML parses a page into a goquery document sharing the same tree as LoadHTMLNode.
func LoadHTML(data []byte) (*goquery.Document, error) {
	root, err := LoadHTMLNode(data)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ExtractText concatenates every text node below n.
func ExtractText(n *html.Node) string {
	var buf strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return buf.String()
}

// NormalizeWhitespace collapses multiple spaces into one
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
