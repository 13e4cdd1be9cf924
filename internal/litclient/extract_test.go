package litclient

import "testing"

func TestExtractCitationsFromTextParsesNumberedEntries(t *testing.T) {
	text := `Some narrative summary text.

References:
1. Smith J, Doe A. Deep learning for citation extraction. Journal of AI, 2021. URL: https://example.com/paper1, doi:10.1234/abcd
2. Lee K. Another study on benchmarks. Conf Proceedings, 2019. doi:10.5678/efgh
`
	citations := extractCitationsFromText(text)
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d: %+v", len(citations), citations)
	}
	if citations[0].DOI != "10.1234/abcd" {
		t.Fatalf("expected doi 10.1234/abcd, got %q", citations[0].DOI)
	}
	if citations[0].Year != 2021 {
		t.Fatalf("expected year 2021, got %d", citations[0].Year)
	}
	if citations[0].URL != "https://example.com/paper1" {
		t.Fatalf("expected url parsed, got %q", citations[0].URL)
	}
}

func TestExtractCitationsFromTextDedupsByDOI(t *testing.T) {
	text := `References:
1. Smith J. A title here that is reasonably long. Journal, 2020. doi:10.1111/aaaa
2. Smith J. A title here that is reasonably long. Journal, 2020. doi:10.1111/aaaa
`
	citations := extractCitationsFromText(text)
	if len(citations) != 1 {
		t.Fatalf("expected dedup to 1 citation, got %d", len(citations))
	}
}

func TestExtractCitationsFromTextDedupsByTitlePrefixWithoutDOI(t *testing.T) {
	text := `References:
1. Smith J. A long enough title to trigger split here. Journal A, 2020.
2. Doe K. A long enough title to trigger split here. Journal B, 2021.
`
	citations := extractCitationsFromText(text)
	if len(citations) != 1 {
		t.Fatalf("expected title-prefix dedup to 1 citation, got %d: %+v", len(citations), citations)
	}
}

func TestExtractCitationsFromTextReturnsNilWithoutReferencesSection(t *testing.T) {
	if got := extractCitationsFromText("no references here at all"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestIsAuthorInitialBoundaryTreatsSingleCapitalAsInitial(t *testing.T) {
	body := "J. Smith wrote this paper"
	if !isAuthorInitialBoundary(body, 1) {
		t.Fatal("expected 'J.' to be treated as an author initial, not a sentence boundary")
	}
}

func TestIsAuthorInitialBoundaryRejectsMultiLetterWord(t *testing.T) {
	body := "This is a sentence. Next sentence"
	idx := 18 // the period after "sentence"
	if isAuthorInitialBoundary(body, idx) {
		t.Fatal("expected a real sentence boundary to not be treated as an initial")
	}
}
