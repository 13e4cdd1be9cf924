package llmclient

import "testing"

func TestTiersCoverEveryTaskType(t *testing.T) {
	for _, tt := range []TaskType{TaskExtraction, TaskDrafting, TaskReview, TaskSynthesis} {
		if _, ok := Tiers[tt]; !ok {
			t.Fatalf("TaskType %q has no tier mapping", tt)
		}
	}
}

func TestToSDKMessagesPreservesOrder(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}
	out := toSDKMessages(msgs)
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
}

func TestCostSummaryStartsEmpty(t *testing.T) {
	c := New(Config{SmallModel: "small", BalancedModel: "balanced", LargeModel: "large"})
	summary := c.CostSummary()
	if summary.TokensUsed != 0 {
		t.Fatalf("expected 0 tokens used initially, got %d", summary.TokensUsed)
	}
	if len(summary.CallsByTier) != 0 {
		t.Fatalf("expected no calls recorded initially")
	}
}
