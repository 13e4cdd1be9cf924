package agent

import (
	"context"
	"testing"

	"github.com/mkhale/researchctl/internal/store"
)

func TestCitationVerifierStrategySkipsRecordsWithoutDOI(t *testing.T) {
	s := store.New(t.TempDir())
	rec := store.CitationRecord{CitationKey: "doe2024", Title: "A Paper", Status: store.CitationUnverified}
	if err := s.UpsertCitation(rec); err != nil {
		t.Fatalf("UpsertCitation: %v", err)
	}

	result, err := citationVerifierStrategy(context.Background(), s, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}

	citations, err := s.ListCitations()
	if err != nil {
		t.Fatalf("ListCitations: %v", err)
	}
	if len(citations) != 1 || citations[0].CitationKey != "doe2024" {
		t.Fatalf("citations = %+v", citations)
	}
}

func TestCitationVerifierStrategyDedupsByDOIAndRendersBibliography(t *testing.T) {
	s := store.New(t.TempDir())
	a := store.CitationRecord{CitationKey: "a", Title: "First", Authors: []string{"Ada Lovelace"}, Year: 2020}
	a.Identifiers.DOI = "10.1/xyz"
	b := store.CitationRecord{CitationKey: "b", Title: "Duplicate", Authors: []string{"Ada Lovelace"}, Year: 2020}
	b.Identifiers.DOI = "https://doi.org/10.1/xyz"
	for _, rec := range []store.CitationRecord{a, b} {
		if err := s.UpsertCitation(rec); err != nil {
			t.Fatalf("UpsertCitation: %v", err)
		}
	}

	if _, err := citationVerifierStrategy(context.Background(), s, Input{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	citations, err := s.ListCitations()
	if err != nil {
		t.Fatalf("ListCitations: %v", err)
	}
	if len(citations) != 1 {
		t.Fatalf("expected dedup down to 1 citation, got %d: %+v", len(citations), citations)
	}
}

func TestLiteratureSearchStrategyRequiresQuery(t *testing.T) {
	s := store.New(t.TempDir())
	_, err := literatureSearchStrategy(context.Background(), s, Input{})
	if err == nil {
		t.Fatal("expected an error when no query artifact is supplied")
	}
}

func TestLiteratureSearchStrategyFailsWithoutConfiguredClient(t *testing.T) {
	s := store.New(t.TempDir())
	input := Input{Artifacts: map[string]any{"query": "transformer attention mechanisms"}}
	_, err := literatureSearchStrategy(context.Background(), s, input)
	if err == nil {
		t.Fatal("expected an error: no EDISON_API_KEY is configured in this test environment")
	}
}
