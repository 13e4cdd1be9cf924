package gate

import (
	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

// EvaluateAnalysisGate checks that a project declaring has_data=true has
// produced at least one metric.
func EvaluateAnalysisGate(projectFolder string, cfg config.GateConfig) (store.GateResult, error) {
	s := store.New(projectFolder)

	meta, err := s.ReadProjectMetadata()
	if err != nil {
		return store.GateResult{}, err
	}

	if !meta.HasData {
		result := outcome("analysis_gate", cfg, false, nil)
		if err := s.WriteGateReport("analysis_gate", result); err != nil {
			return result, err
		}
		return result, nil
	}

	metrics, err := s.ReadMetrics()
	if err != nil {
		return store.GateResult{}, err
	}

	failed := len(metrics) == 0
	reports := []store.GateReportEntry{
		{ID: meta.ID, OK: !failed, Reasons: reasonsIf(failed, "no_metrics_for_data_project")},
	}

	result := outcome("analysis_gate", cfg, failed, reports)
	if err := s.WriteGateReport("analysis_gate", result); err != nil {
		return result, err
	}
	return result, nil
}

func reasonsIf(cond bool, reason string) []string {
	if !cond {
		return nil
	}
	return []string{reason}
}
