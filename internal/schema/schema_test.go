package schema

import (
	"testing"

	"github.com/mkhale/researchctl/internal/store"
)

func TestNormalizeDOIIdempotent(t *testing.T) {
	cases := []string{
		"10.1234/ABCD",
		"https://doi.org/10.1234/abcd",
		"doi:10.1234/ABCD",
		"  10.1234/abcd  ",
	}
	for _, c := range cases {
		once := NormalizeDOI(c)
		twice := NormalizeDOI(once)
		if once != twice {
			t.Fatalf("NormalizeDOI not idempotent for %q: %q != %q", c, once, twice)
		}
		if once != "10.1234/abcd" {
			t.Fatalf("NormalizeDOI(%q) = %q, want 10.1234/abcd", c, once)
		}
	}
}

func TestValidateClaimRecordSourceBackedRequiresEvidenceOrCitation(t *testing.T) {
	c := store.ClaimRecord{ClaimID: "c1", Kind: store.ClaimSourceBacked, Statement: "x"}
	if err := ValidateClaimRecord(c); err == nil {
		t.Fatal("expected error for source_backed claim with no evidence_ids or citation_keys")
	}
	c.EvidenceIDs = []string{"e1"}
	if err := ValidateClaimRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateClaimRecordComputedRequiresMetricKeys(t *testing.T) {
	c := store.ClaimRecord{ClaimID: "c2", Kind: store.ClaimComputed, Statement: "x"}
	if err := ValidateClaimRecord(c); err == nil {
		t.Fatal("expected error for computed claim with no metric_keys")
	}
	c.MetricKeys = []string{"m1"}
	if err := ValidateClaimRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUniqueEvidenceIDs(t *testing.T) {
	unique := []store.EvidenceItem{{EvidenceID: "a"}, {EvidenceID: "b"}}
	if !UniqueEvidenceIDs(unique) {
		t.Fatal("expected unique IDs to pass")
	}
	dup := []store.EvidenceItem{{EvidenceID: "a"}, {EvidenceID: "a"}}
	if UniqueEvidenceIDs(dup) {
		t.Fatal("expected duplicate IDs to fail")
	}
}
