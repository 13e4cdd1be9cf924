package gate

import (
	"sort"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

// EvaluateComputationGate checks that every computed claim's metric_keys
// resolve to an entry in outputs/metrics.json.
func EvaluateComputationGate(projectFolder string, cfg config.GateConfig) (store.GateResult, error) {
	s := store.New(projectFolder)

	claims, err := s.ReadClaims()
	if err != nil {
		return store.GateResult{}, err
	}
	metrics, err := s.ReadMetrics()
	if err != nil {
		return store.GateResult{}, err
	}

	known := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		known[m.MetricKey] = true
	}

	var reports []store.GateReportEntry
	anyFailed := false

	for _, claim := range claims {
		if claim.Kind != store.ClaimComputed {
			continue
		}
		var missing []string
		for _, key := range claim.MetricKeys {
			if !known[key] {
				missing = append(missing, key)
			}
		}
		ok := len(claim.MetricKeys) > 0 && len(missing) == 0
		var reasons []string
		if len(claim.MetricKeys) == 0 {
			reasons = append(reasons, "no_metric_keys")
		}
		for _, key := range missing {
			reasons = append(reasons, "unresolved_metric_key:"+key)
		}
		if !ok {
			anyFailed = true
		}
		reports = append(reports, store.GateReportEntry{ID: claim.ClaimID, OK: ok, Reasons: reasons})
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })

	result := outcome("computation_gate", cfg, anyFailed, reports)
	if err := s.WriteGateReport("computation_gate", result); err != nil {
		return result, err
	}
	return result, nil
}
