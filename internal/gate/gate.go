// Package gate implements the family of deterministic, offline quality
// gates that run between pipeline phases. Every gate is a pure function
// over the on-disk project folder and a config: it never calls an external
// service, never invokes an LLM, and always returns a structured GateResult
// rather than raising — the orchestrator inspects the result, it never
// catches a generic error from a gate.
package gate

import (
	"time"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

// Evaluator is the shared signature every gate implements.
type Evaluator func(projectFolder string, cfg config.GateConfig) (store.GateResult, error)

// Registry maps gate name to its evaluator. It carries no order: the
// orchestrator runs gates in the order of each phase's GatesAfter list.
var Registry = map[string]Evaluator{
	"evidence_gate":           EvaluateEvidenceGate,
	"citation_accuracy_gate":  EvaluateCitationAccuracyGate,
	"computation_gate":        EvaluateComputationGate,
	"claim_evidence_gate":     EvaluateClaimEvidenceGate,
	"literature_gate":         EvaluateLiteratureGate,
	"analysis_gate":           EvaluateAnalysisGate,
}

// outcome applies the shared enabled/on_failure contract every gate follows:
// disabled gates always pass as disabled; enabled gates with no failures pass;
// enabled gates with failures either block or downgrade per config.
func outcome(name string, cfg config.GateConfig, failed bool, reports []store.GateReportEntry) store.GateResult {
	res := store.GateResult{
		SchemaVersion: "1.0",
		CreatedAt:     time.Now().UTC(),
		GateName:      name,
		Enabled:       cfg.Enabled,
		Reports:       reports,
	}

	if !cfg.Enabled {
		res.Action = store.ActionDisabled
		res.OK = true
		return res
	}

	if !failed {
		res.Action = store.ActionPass
		res.OK = true
		return res
	}

	if cfg.OnFailure == config.OnFailureBlock {
		res.Action = store.ActionBlock
		res.OK = false
	} else {
		res.Action = store.ActionDowngrade
		res.OK = true
	}
	return res
}
