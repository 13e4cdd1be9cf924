package ux

import (
	"os"
	"testing"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

// These are smoke tests: ux prints directly to stdout (matching the
// teacher's package), so there's nothing to assert on beyond "it doesn't
// panic on the shapes the orchestrator actually passes it."
func TestRenderingHelpersDoNotPanic(t *testing.T) {
	old := os.Stdout
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = devnull
	defer func() { os.Stdout = old; devnull.Close() }()

	PhaseHeader(0, 3, config.Phase{Name: "intake", Critical: true})
	PhaseComplete(0, 0, false)
	PhaseComplete(1, 0, true)
	PhaseFail(2, "compile", "exit 1")
	GateResult(store.GateResult{GateName: "evidence_gate", Action: store.ActionPass})
	GateResult(store.GateResult{GateName: "citation_accuracy_gate", Action: store.ActionDowngrade, FailedClaimsTotal: 1, CheckedClaimsTotal: 3})
	GateResult(store.GateResult{GateName: "literature_gate", Action: store.ActionBlock})
	GateResult(store.GateResult{GateName: "computation_gate", Action: store.ActionDisabled})
	SuccessMatrix([]store.PhaseResult{
		{PhaseName: "intake", Success: true, ExitCode: 0},
		{PhaseName: "writing", Success: true, Degraded: true, DegradationReasons: []string{"fallback_provider"}},
		{PhaseName: "compile", Success: false, ExitCode: 1},
	})
	RunComplete(true, false, 0.9)
	RunComplete(false, true, 0.4)
	RunComplete(false, false, 0.0)
	ResumeHint("/tmp/project")
	PurgeNotice("")
	PurgeNotice("archives/outputs_archive_20260101T000000Z")
}
