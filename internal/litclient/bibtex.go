package litclient

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// bibtexKey derives the "<FirstAuthorLastName><year>" citation key for c.
func bibtexKey(c Citation) string {
	last := "unknown"
	if len(c.Authors) > 0 {
		last = lastName(c.Authors[0])
	}
	year := "nd"
	if c.Year > 0 {
		year = fmt.Sprintf("%d", c.Year)
	}
	return nonAlnumRe.ReplaceAllString(last, "") + year
}

func lastName(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return "unknown"
	}
	if idx := strings.LastIndex(author, " "); idx >= 0 {
		return author[idx+1:]
	}
	return author
}

// toBibtexEntry renders one Citation as a @misc BibTeX entry under key.
func toBibtexEntry(c Citation, key string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@misc{%s,\n", key)
	fmt.Fprintf(&b, "  title = {%s},\n", c.Title)
	if len(c.Authors) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(c.Authors, " and "))
	}
	if c.Year > 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", c.Year)
	}
	if c.Journal != "" {
		fmt.Fprintf(&b, "  journal = {%s},\n", c.Journal)
	}
	if c.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", c.DOI)
	}
	if c.URL != "" {
		fmt.Fprintf(&b, "  url = {%s},\n", c.URL)
	}
	b.WriteString("}\n")
	return b.String()
}

// ToBibtex renders every citation in r as a single .bib document, assigning
// each a base key of "<FirstAuthorLastName><year>" and resolving collisions
// by appending 'a', 'b', 'c', ... in encounter order.
func (r Result) ToBibtex() string {
	counts := make(map[string]int)
	var out strings.Builder
	for _, c := range r.Citations {
		base := bibtexKey(c)
		n := counts[base]
		counts[base] = n + 1
		key := base
		if n > 0 {
			key = base + string(rune('a'+n-1))
		}
		out.WriteString(toBibtexEntry(c, key))
		out.WriteString("\n")
	}
	return out.String()
}

// ToBibtex renders a single Citation under its own derived key, with no
// collision suffix since there is nothing to collide with.
func (c Citation) ToBibtex() string {
	return toBibtexEntry(c, bibtexKey(c))
}
