package biblio

import (
	"context"
	"testing"
	"time"

	"github.com/mkhale/researchctl/internal/errs"
	"github.com/mkhale/researchctl/internal/store"
)

type fakeProvider struct {
	name    string
	resolve func(ctx context.Context, doi string) (ResolvedMetadata, error)
}

func (f fakeProvider) Name() string { return f.name }
func (f fakeProvider) Resolve(ctx context.Context, doi string) (ResolvedMetadata, error) {
	return f.resolve(ctx, doi)
}

func TestResolveFallsBackOnNonNotFoundPrimaryFailure(t *testing.T) {
	primary := fakeProvider{name: "crossref", resolve: func(ctx context.Context, doi string) (ResolvedMetadata, error) {
		return ResolvedMetadata{}, errs.Wrap(errs.Transport, errs.Transport)
	}}
	fallback := fakeProvider{name: "openalex", resolve: func(ctx context.Context, doi string) (ResolvedMetadata, error) {
		return ResolvedMetadata{Title: "Fallback Title"}, nil
	}}
	r := New(primary, fallback, 24)

	meta, attempt, err := r.Resolve(context.Background(), "10.1234/abcd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Title != "Fallback Title" {
		t.Fatalf("expected fallback to resolve, got %+v", meta)
	}
	if attempt.Provider != "openalex" {
		t.Fatalf("expected attempt to record fallback provider, got %q", attempt.Provider)
	}
}

func TestResolveDoesNotFallBackOnNotFound(t *testing.T) {
	calledFallback := false
	primary := fakeProvider{name: "crossref", resolve: func(ctx context.Context, doi string) (ResolvedMetadata, error) {
		return ResolvedMetadata{}, errs.Wrap(errs.NotFound, errs.NotFound)
	}}
	fallback := fakeProvider{name: "openalex", resolve: func(ctx context.Context, doi string) (ResolvedMetadata, error) {
		calledFallback = true
		return ResolvedMetadata{}, nil
	}}
	r := New(primary, fallback, 24)

	_, _, err := r.Resolve(context.Background(), "10.1234/abcd")
	if err == nil {
		t.Fatal("expected NotFound to propagate")
	}
	if calledFallback {
		t.Fatal("expected fallback not to be called on NotFound")
	}
}

func TestMergeIntoDoesNotOverwriteHumanEditedFields(t *testing.T) {
	rec := store.CitationRecord{CitationKey: "Smith2020", Title: "Human Edited Title"}
	meta := ResolvedMetadata{Title: "Provider Title", Authors: []string{"A. Smith"}, Year: 2020}
	attempt := store.VerificationAttempt{Provider: "crossref", OK: true, CheckedAt: time.Now().UTC()}

	MergeInto(&rec, meta, attempt)

	if rec.Title != "Human Edited Title" {
		t.Fatalf("expected human title preserved, got %q", rec.Title)
	}
	if len(rec.Authors) != 1 || rec.Authors[0] != "A. Smith" {
		t.Fatalf("expected provider authors to fill empty field, got %+v", rec.Authors)
	}
	if rec.Status != store.CitationVerified {
		t.Fatalf("expected status verified, got %s", rec.Status)
	}
}

func TestIsFreshRespectsMaxAge(t *testing.T) {
	r := New(nil, nil, 24)
	fresh := store.CitationRecord{Verification: &store.Verification{LastChecked: time.Now().UTC()}}
	stale := store.CitationRecord{Verification: &store.Verification{LastChecked: time.Now().UTC().Add(-48 * time.Hour)}}

	if !r.IsFresh(fresh, time.Now().UTC()) {
		t.Fatal("expected fresh record to be fresh")
	}
	if r.IsFresh(stale, time.Now().UTC()) {
		t.Fatal("expected stale record to not be fresh")
	}
}

func TestDedupByDOIKeepsFirstAndMapsDropped(t *testing.T) {
	records := []store.CitationRecord{
		{CitationKey: "Smith2020", Identifiers: store.Identifiers{DOI: "10.1234/abcd"}},
		{CitationKey: "Smith2020b", Identifiers: store.Identifiers{DOI: "https://doi.org/10.1234/ABCD"}},
	}
	survivors, dropped := DedupByDOI(records)
	if len(survivors) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(survivors))
	}
	if survivors[0].CitationKey != "Smith2020" {
		t.Fatalf("expected first record to survive, got %q", survivors[0].CitationKey)
	}
	if dropped["Smith2020b"] != "Smith2020" {
		t.Fatalf("expected dropped map to point at survivor, got %+v", dropped)
	}
}

func TestRenderAssignsCollisionSuffixes(t *testing.T) {
	records := []store.CitationRecord{
		{CitationKey: "k1", Title: "First", Authors: []string{"Jane Smith"}, Year: 2020},
		{CitationKey: "k2", Title: "Second", Authors: []string{"John Smith"}, Year: 2020},
	}
	out := Render(records)
	if !containsSubstr(out, "@misc{Smith2020,") || !containsSubstr(out, "@misc{Smith2020a,") {
		t.Fatalf("expected collision-suffixed keys, got:\n%s", out)
	}
}

func containsSubstr(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
