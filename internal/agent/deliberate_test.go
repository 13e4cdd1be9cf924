package agent

import (
	"context"
	"testing"

	"github.com/mkhale/researchctl/internal/store"
)

func registerEcho(t *testing.T, id, content string, fail bool) func() {
	t.Helper()
	prev, had := Registry[id]
	Register(id, Spec{Name: id}, func(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error) {
		if fail {
			return store.AgentResult{Success: false, Error: "boom"}, nil
		}
		return store.AgentResult{Success: true, Content: content}, nil
	})
	return func() {
		if had {
			Registry[id] = prev
		} else {
			delete(Registry, id)
		}
	}
}

func TestDeliberateNoConflictWhenOutputsAgreeModuloWhitespace(t *testing.T) {
	r1 := registerEcho(t, "d1", "same answer", false)
	r2 := registerEcho(t, "d2", "same   answer", false)
	defer r1()
	defer r2()

	s := store.New(t.TempDir())
	c, err := Deliberate(context.Background(), s, []string{"d1", "d2"}, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ConflictDetected {
		t.Fatal("expected no conflict for whitespace-only difference")
	}
	if c.Degraded {
		t.Fatal("expected not degraded when all agents succeed")
	}
}

func TestDeliberateDetectsConflictAndConsolidatesByAgentID(t *testing.T) {
	rz := registerEcho(t, "z_agent", "answer from z", false)
	ra := registerEcho(t, "a_agent", "answer from a", false)
	defer rz()
	defer ra()

	s := store.New(t.TempDir())
	c, err := Deliberate(context.Background(), s, []string{"z_agent", "a_agent"}, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.ConflictDetected {
		t.Fatal("expected conflict to be detected")
	}
	if c.ConsolidatedOutput != "answer from a" {
		t.Fatalf("expected consolidation to pick the lexicographically first agent id, got %q", c.ConsolidatedOutput)
	}
}

func TestDeliberateMarksDegradedWhenAnAgentFails(t *testing.T) {
	ok := registerEcho(t, "ok_agent", "fine", false)
	bad := registerEcho(t, "bad_agent", "", true)
	defer ok()
	defer bad()

	s := store.New(t.TempDir())
	c, err := Deliberate(context.Background(), s, []string{"ok_agent", "bad_agent"}, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Degraded {
		t.Fatal("expected degraded when one agent fails")
	}
	if c.ConsolidatedOutput != "fine" {
		t.Fatalf("expected the surviving agent's output, got %q", c.ConsolidatedOutput)
	}
}

func TestDeliberateAllFailuresYieldsDegradedEmptyConsolidation(t *testing.T) {
	b1 := registerEcho(t, "bad1", "", true)
	b2 := registerEcho(t, "bad2", "", true)
	defer b1()
	defer b2()

	s := store.New(t.TempDir())
	c, err := Deliberate(context.Background(), s, []string{"bad1", "bad2"}, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Degraded || c.ConsolidatedOutput != "" {
		t.Fatalf("expected fully degraded empty consolidation, got %+v", c)
	}
}
