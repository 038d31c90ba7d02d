package suggest

import "strings"

// pluralForms maps singular word endings to their irregular or common
// plural forms. Order is the order candidates are produced in.
var pluralForms = []struct {
	singular string
	plural   string
}{
	{"girl", "girls"},
	{"boy", "boys"},
	{"woman", "women"},
	{"man", "men"},
	{"child", "children"},
	{"foot", "feet"},
	{"tooth", "teeth"},
	{"goose", "geese"},
	{"mouse", "mice"},
	{"person", "people"},
	{"wolf", "wolves"},
	{"knife", "knives"},
	{"leaf", "leaves"},
	{"wife", "wives"},
	{"life", "lives"},
	{"half", "halves"},
	{"elf", "elves"},
	{"thief", "thieves"},
	{"cactus", "cacti"},
	{"fungus", "fungi"},
}

// RuleBased returns de-duplicated spelling variants of tag: a trailing "s"
// or "es" stripped, otherwise "s" and "es" appended, followed by the plural
// table applied to the tag's ending. The tag itself is never returned.
func RuleBased(tag string) []string {
	var out []string
	seen := map[string]bool{tag: true}
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	if strings.HasSuffix(tag, "s") {
		add(strings.TrimSuffix(tag, "s"))
		if strings.HasSuffix(tag, "es") {
			add(strings.TrimSuffix(tag, "es"))
		}
	} else {
		add(tag + "s")
		add(tag + "es")
	}

	for _, f := range pluralForms {
		if strings.HasSuffix(tag, f.singular) {
			add(strings.TrimSuffix(tag, f.singular) + f.plural)
		}
	}
	return out
}
