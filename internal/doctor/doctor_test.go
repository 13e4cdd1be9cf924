package doctor

import (
	"context"
	"testing"

	"github.com/mkhale/researchctl/internal/store"
)

func TestRunReportsNothingToDiagnoseWithNoRunResult(t *testing.T) {
	s := store.New(t.TempDir())
	if err := Run(context.Background(), s, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunReportsNothingToDiagnoseOnCleanSuccess(t *testing.T) {
	s := store.New(t.TempDir())
	if err := s.WriteRunResult(store.PipelineResult{RunID: "r1", OverallSuccess: true}); err != nil {
		t.Fatalf("WriteRunResult: %v", err)
	}
	if err := Run(context.Background(), s, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRequiresLLMClientWhenThereIsSomethingToDiagnose(t *testing.T) {
	s := store.New(t.TempDir())
	if err := s.WriteRunResult(store.PipelineResult{RunID: "r1", OverallSuccess: false}); err != nil {
		t.Fatalf("WriteRunResult: %v", err)
	}
	err := Run(context.Background(), s, nil)
	if err == nil {
		t.Fatal("expected an error when no LLM client is configured for a failed run")
	}
}
