package gate

import (
	"testing"
	"time"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

func TestLiteratureGatePassesWithFreshVerifiedCitation(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir)
	if err := s.UpsertCitation(store.CitationRecord{
		CitationKey: "Smith2020", Title: "t", Status: store.CitationVerified,
		Verification: &store.Verification{LastChecked: time.Now().UTC()},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendClaims([]store.ClaimRecord{
		{ClaimID: "c1", Kind: store.ClaimSourceBacked, Statement: "x", CitationKeys: []string{"Smith2020"}},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := EvaluateLiteratureGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionPass {
		t.Fatalf("expected pass, got %s (%+v)", result.Action, result.Reports)
	}
}

func TestLiteratureGateFailsOnStaleCitation(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir)
	if err := s.UpsertCitation(store.CitationRecord{
		CitationKey: "Smith2020", Title: "t", Status: store.CitationVerified,
		Verification: &store.Verification{LastChecked: time.Now().UTC().Add(-48 * time.Hour)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendClaims([]store.ClaimRecord{
		{ClaimID: "c1", Kind: store.ClaimSourceBacked, Statement: "x", CitationKeys: []string{"Smith2020"}},
	}); err != nil {
		t.Fatal(err)
	}

	cfg := testCfg(config.OnFailureBlock)
	cfg.MaxAgeHours = 24
	result, err := EvaluateLiteratureGate(dir, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionBlock {
		t.Fatalf("expected block, got %s", result.Action)
	}
}
