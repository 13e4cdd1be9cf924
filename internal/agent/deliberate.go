package agent

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mkhale/researchctl/internal/store"
)

// maxConcurrentDeliberators bounds how many agent invocations a single
// deliberation round runs in parallel.
const maxConcurrentDeliberators = 4

// Consolidation is the outcome of fanning the same input out to multiple
// agents and reconciling their outputs.
type Consolidation struct {
	ConsolidatedOutput string
	ConflictDetected   bool
	Degraded           bool
	Rationale          string
}

// Deliberate invokes every agent id in ids against the same input
// concurrently (bounded to maxConcurrentDeliberators), then consolidates
// their results. An agent that errors or times out is dropped from
// consolidation and marks the result Degraded, but does not abort the round
// for the others.
func Deliberate(ctx context.Context, s *store.Store, ids []string, input Input) (Consolidation, error) {
	results := make([]store.AgentResult, len(ids))
	ok := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDeliberators)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			result, err := Invoke(gctx, s, id, input, 0)
			if err != nil {
				return nil
			}
			results[i] = result
			ok[i] = result.Success
			return nil
		})
	}
	// errgroup.Wait only returns an error if a Go func returns one; every Go
	// func above returns nil (an Invoke error, such as an unregistered id,
	// just leaves that agent out of consolidation), so this check is a guard
	// rather than an expected path.
	if err := g.Wait(); err != nil {
		return Consolidation{}, err
	}

	return consolidate(ids, results, ok), nil
}

type vote struct {
	id     string
	result store.AgentResult
}

func consolidate(ids []string, results []store.AgentResult, ok []bool) Consolidation {
	var succeeded []vote
	degraded := false
	for i := range results {
		if ok[i] {
			succeeded = append(succeeded, vote{id: ids[i], result: results[i]})
		} else {
			degraded = true
		}
	}

	if len(succeeded) == 0 {
		return Consolidation{Degraded: true, Rationale: "every deliberating agent failed or timed out"}
	}

	conflict := hasConflict(succeeded)
	chosen := pickConsolidated(succeeded)

	rationale := "single agent succeeded, no consolidation needed"
	switch {
	case len(succeeded) > 1 && conflict:
		rationale = "outputs diverged; consolidated deterministically by agent id"
	case len(succeeded) > 1:
		rationale = "outputs agreed after whitespace normalization"
	}

	return Consolidation{
		ConsolidatedOutput: chosen,
		ConflictDetected:   conflict,
		Degraded:           degraded,
		Rationale:          rationale,
	}
}

func hasConflict(votes []vote) bool {
	if len(votes) < 2 {
		return false
	}
	first := normalize(votes[0].result.Content)
	for _, v := range votes[1:] {
		if normalize(v.result.Content) != first {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// pickConsolidated deterministically picks a winner among conflicting
// outputs: the one produced by the agent whose id sorts first, so repeated
// runs over the same disagreement pick the same answer regardless of
// completion order.
func pickConsolidated(votes []vote) string {
	sorted := make([]vote, len(votes))
	copy(sorted, votes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })
	return sorted[0].result.Content
}
