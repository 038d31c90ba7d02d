package scraper

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Segments is the structured content of a wiki body.
type Segments struct {
	Meaning  string
	Sections map[string]string
}

// Segment splits the direct children of a wiki body into an introductory
// meaning and titled sections. Any section whose title mentions "example"
// is dropped along with everything up to the next heading. A repeated title
// keeps the later section.
func (z *Normalizer) Segment(root *html.Node) Segments {
	out := Segments{Sections: map[string]string{}}
	if root == nil {
		return out
	}

	var (
		meaning    []string
		seenHead   bool
		title      string
		open       bool
		suppressed bool
		buf        []string
	)

	commit := func() {
		if open {
			out.Sections[title] = strings.Join(buf, "\n")
		}
		open, buf = false, nil
	}

	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}

		switch c.DataAtom {
		case atom.H4, atom.H5, atom.H6:
			seenHead = true
			heading := NormalizeWhitespace(ExtractText(c))
			commit()
			if strings.Contains(strings.ToLower(heading), "example") {
				suppressed = true
				continue
			}
			suppressed = false
			// an untitled heading collects nothing
			title, open = heading, heading != ""

		case atom.P:
			if !seenHead {
				if text := z.Normalize(c); text != "" {
					meaning = append(meaning, text)
				}
				continue
			}
			z.collect(c, open && !suppressed, &buf)

		case atom.Ul, atom.Ol:
			z.collect(c, open && !suppressed, &buf)
		}
	}

	if open && len(buf) > 0 {
		commit()
	}

	out.Meaning = strings.Join(meaning, "\n\n")
	return out
}

func (z *Normalizer) collect(n *html.Node, active bool, buf *[]string) {
	if !active {
		return
	}
	if text := z.Normalize(n); text != "" {
		*buf = append(*buf, text)
	}
}
