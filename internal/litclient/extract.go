package litclient

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minTitleLengthForSplit = 20
	titleDedupKeyLength    = 50
)

var (
	referencesHeaderRe = regexp.MustCompile(`(?is)\bReferences\b[:\s]*\n`)
	entryStartRe        = regexp.MustCompile(`(?m)^\d+\.\s`)
	doiRe               = regexp.MustCompile(`(?i)doi:\s*(10\.[^\s,]+)`)
	urlRe               = regexp.MustCompile(`(?i)URL:\s*(https?://[^\s,]+)`)
	yearRe              = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	leadingNumberRe     = regexp.MustCompile(`^\d+\.\s*`)
)

// extractCitationsFromText finds a "References" section in text and parses
// each numbered entry into a Citation, deduplicating by normalized DOI, then
// by lowercased title prefix when DOI is absent.
func extractCitationsFromText(text string) []Citation {
	loc := referencesHeaderRe.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	section := text[loc[1]:]

	// Each entry starts at a line that begins with "N. ".
	var entries []string
	prev := 0
	for _, loc := range entryStartRe.FindAllStringIndex(section, -1) {
		entries = append(entries, section[prev:loc[0]])
		prev = loc[0]
	}
	entries = append(entries, section[prev:])

	var out []Citation
	seenDOI := make(map[string]bool)
	seenTitle := make(map[string]bool)

	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		c := parseReferenceEntry(entry)
		if c.Title == "" {
			continue
		}

		if c.DOI != "" {
			if seenDOI[c.DOI] {
				continue
			}
			seenDOI[c.DOI] = true
		} else {
			key := titleDedupKey(c.Title)
			if seenTitle[key] {
				continue
			}
			seenTitle[key] = true
		}

		out = append(out, c)
	}
	return out
}

func titleDedupKey(title string) string {
	t := strings.ToLower(title)
	if len(t) > titleDedupKeyLength {
		t = t[:titleDedupKeyLength]
	}
	return t
}

// parseReferenceEntry parses one numbered reference entry of the shape
// "N. Authors. Title. Journal, Date. URL: …, doi:…." into a Citation.
func parseReferenceEntry(entry string) Citation {
	var c Citation

	if m := doiRe.FindStringSubmatch(entry); m != nil {
		c.DOI = strings.TrimRight(m[1], ".")
	}
	if m := urlRe.FindStringSubmatch(entry); m != nil {
		c.URL = strings.TrimRight(m[1], ",")
	}
	if m := yearRe.FindString(entry); m != "" {
		if y, err := strconv.Atoi(m); err == nil {
			c.Year = y
		}
	}

	body := leadingNumberRe.ReplaceAllString(entry, "")
	parts := splitOnSentenceBoundary(body)

	switch {
	case len(parts) >= 3:
		c.Authors = splitAuthors(parts[0])
		c.Title = strings.TrimSpace(parts[1])
		c.Journal = strings.TrimSpace(parts[2])
	case len(parts) == 2:
		c.Authors = splitAuthors(parts[0])
		c.Title = strings.TrimSpace(parts[1])
	case len(parts) == 1:
		c.Title = strings.TrimSpace(parts[0])
	}

	return c
}

func splitAuthors(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// splitOnSentenceBoundary splits body on ". " boundaries, except where the
// character(s) preceding the period form a single uppercase letter (an
// author initial like "J." rather than the end of a sentence), and except
// for fragments shorter than minTitleLengthForSplit which are merged back
// into the following fragment.
func splitOnSentenceBoundary(body string) []string {
	var raw []string
	start := 0
	for i := 0; i < len(body)-1; i++ {
		if body[i] != '.' || body[i+1] != ' ' {
			continue
		}
		if isAuthorInitialBoundary(body, i) {
			continue
		}
		raw = append(raw, body[start:i])
		start = i + 2
	}
	raw = append(raw, body[start:])

	var merged []string
	buf := ""
	for _, frag := range raw {
		if buf != "" {
			buf += ". " + frag
		} else {
			buf = frag
		}
		if len(strings.TrimSpace(buf)) >= minTitleLengthForSplit || frag == raw[len(raw)-1] {
			merged = append(merged, strings.TrimSpace(buf))
			buf = ""
		}
	}
	if buf != "" {
		merged = append(merged, strings.TrimSpace(buf))
	}
	return merged
}

// isAuthorInitialBoundary reports whether the period at body[idx] is
// preceded by a single uppercase letter that is itself preceded by a
// non-letter (start of word) — i.e. an author initial like "J." rather than
// a sentence end.
func isAuthorInitialBoundary(body string, idx int) bool {
	if idx == 0 {
		return false
	}
	letter := body[idx-1]
	if letter < 'A' || letter > 'Z' {
		return false
	}
	if idx-2 >= 0 {
		prev := body[idx-2]
		if (prev >= 'a' && prev <= 'z') || (prev >= 'A' && prev <= 'Z') {
			return false
		}
	}
	return true
}
