package gate

import (
	"testing"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

func TestComputationGateResolvesMetricKeys(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir)
	if err := s.AppendMetrics([]store.Metric{{MetricKey: "m1", Name: "f1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendClaims([]store.ClaimRecord{
		{ClaimID: "c1", Kind: store.ClaimComputed, Statement: "x", MetricKeys: []string{"m1"}},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := EvaluateComputationGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionPass {
		t.Fatalf("expected pass, got %s (%+v)", result.Action, result.Reports)
	}
}

func TestComputationGateFailsOnUnresolvedMetricKey(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir)
	if err := s.AppendClaims([]store.ClaimRecord{
		{ClaimID: "c1", Kind: store.ClaimComputed, Statement: "x", MetricKeys: []string{"missing"}},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := EvaluateComputationGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionBlock {
		t.Fatalf("expected block, got %s", result.Action)
	}
}
