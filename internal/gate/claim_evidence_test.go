package gate

import (
	"testing"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

func TestClaimEvidenceGateResolvesIDs(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir)
	if err := s.WriteEvidenceItems("src-a", []store.EvidenceItem{
		{EvidenceID: "e1", SourceID: "src-a", Kind: store.EvidenceQuote, Excerpt: "x"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendClaims([]store.ClaimRecord{
		{ClaimID: "c1", Kind: store.ClaimSourceBacked, Statement: "x", EvidenceIDs: []string{"e1"}},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := EvaluateClaimEvidenceGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionPass {
		t.Fatalf("expected pass, got %s (%+v)", result.Action, result.Reports)
	}
}

func TestClaimEvidenceGateFailsOnEmptyEvidenceIDs(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir)
	if err := s.AppendClaims([]store.ClaimRecord{
		{ClaimID: "c1", Kind: store.ClaimSourceBacked, Statement: "x"},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := EvaluateClaimEvidenceGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionBlock {
		t.Fatalf("expected block, got %s", result.Action)
	}
}
