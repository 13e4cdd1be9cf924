package biblio

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mkhale/researchctl/internal/store"
)

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func bibtexKey(rec store.CitationRecord) string {
	last := "unknown"
	if len(rec.Authors) > 0 {
		last = lastName(rec.Authors[0])
	}
	year := "nd"
	if rec.Year > 0 {
		year = fmt.Sprintf("%d", rec.Year)
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

// Render builds a .bib document from records, which must already be
// deduplicated by DOI, assigning collision suffixes a, b, c... in
// encounter order when two records share the same base key.
func Render(records []store.CitationRecord) string {
	counts := make(map[string]int)
	var out strings.Builder
	for _, rec := range records {
		base := bibtexKey(rec)
		n := counts[base]
		counts[base] = n + 1
		key := base
		if n > 0 {
			key = base + string(rune('a'+n-1))
		}
		out.WriteString(renderEntry(rec, key))
		out.WriteString("\n")
	}
	return out.String()
}

func renderEntry(rec store.CitationRecord, key string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@misc{%s,\n", key)
	fmt.Fprintf(&b, "  title = {%s},\n", rec.Title)
	if len(rec.Authors) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(rec.Authors, " and "))
	}
	if rec.Year > 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", rec.Year)
	}
	if rec.Identifiers.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", rec.Identifiers.DOI)
	}
	if rec.Identifiers.URL != "" {
		fmt.Fprintf(&b, "  url = {%s},\n", rec.Identifiers.URL)
	}
	b.WriteString("}\n")
	return b.String()
}
