// Package report assembles and re-renders a completed run's results: it is
// the data side of the orchestrator's Reporting transition, kept separate
// from internal/ux (the pure terminal-rendering side) so that a run's
// outcome can be displayed again later — by "researchctl status" — without
// re-running the pipeline.
package report

import (
	"errors"
	"fmt"

	"github.com/mkhale/researchctl/internal/errs"
	"github.com/mkhale/researchctl/internal/store"
	"github.com/mkhale/researchctl/internal/ux"
)

// Summary is the read-back view of a prior run, assembled from whatever the
// project folder currently holds. Degradations is re-derived from the
// degradation_summary.json file rather than trusted from PipelineResult
// alone, since the two can be written by different code paths (a normal
// Reporting pass vs. a catastrophic early exit).
type Summary struct {
	Result       store.PipelineResult
	Degradations []store.DegradationEntry
	HasResult    bool
}

// Load reads back a project's most recent run result and degradation
// summary. A project that has never been run yields a zero Summary with
// HasResult false, not an error.
func Load(s *store.Store) (Summary, error) {
	result, err := s.ReadRunResult()
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return Summary{}, nil
		}
		return Summary{}, fmt.Errorf("reading run result: %w", err)
	}

	degradations, err := s.ReadDegradationSummary()
	if err != nil && !errors.Is(err, errs.NotFound) {
		return Summary{}, fmt.Errorf("reading degradation summary: %w", err)
	}

	return Summary{Result: result, Degradations: degradations, HasResult: true}, nil
}

// Render prints a Summary with the same success matrix and banner helpers
// the orchestrator uses for a live run's Reporting transition. The banner
// shows "degraded" only when the run did not succeed and some phase is
// marked degraded; a run the orchestrator classed as degraded because a
// non-critical phase failed is shown here as failed.
func Render(sum Summary) {
	if !sum.HasResult {
		fmt.Println("no run result on file for this project yet")
		return
	}
	ux.SuccessMatrix(sum.Result.Phases)
	degraded := false
	for _, p := range sum.Result.Phases {
		if p.Degraded {
			degraded = true
		}
	}
	ux.RunComplete(sum.Result.OverallSuccess, degraded && !sum.Result.OverallSuccess, sum.Result.ReadinessScore)
	if len(sum.Degradations) > 0 {
		fmt.Println()
		fmt.Printf("%s%sDegradation summary%s\n", ux.Bold, ux.Cyan, ux.Reset)
		for _, d := range sum.Degradations {
			fmt.Printf("  %s↳ %s: %s%s\n", ux.Dim, d.PhaseName, d.Reason, ux.Reset)
		}
	}
}
