package gate

import (
	"sort"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

// EvaluateClaimEvidenceGate checks that every source_backed claim carries a
// non-empty evidence_ids list that resolves to items actually on disk.
func EvaluateClaimEvidenceGate(projectFolder string, cfg config.GateConfig) (store.GateResult, error) {
	s := store.New(projectFolder)

	claims, err := s.ReadClaims()
	if err != nil {
		return store.GateResult{}, err
	}

	known := make(map[string]bool)
	sourceIDs, err := s.IterEvidenceFiles()
	if err != nil {
		return store.GateResult{}, err
	}
	for _, id := range sourceIDs {
		items, err := s.ReadEvidenceItems(id)
		if err != nil {
			continue
		}
		for _, item := range items {
			known[item.EvidenceID] = true
		}
	}

	var reports []store.GateReportEntry
	anyFailed := false

	for _, claim := range claims {
		if claim.Kind != store.ClaimSourceBacked {
			continue
		}
		if len(claim.EvidenceIDs) == 0 {
			anyFailed = true
			reports = append(reports, store.GateReportEntry{
				ID: claim.ClaimID, OK: false, Reasons: []string{"no_evidence_ids"},
			})
			continue
		}
		var unresolved []string
		for _, id := range claim.EvidenceIDs {
			if !known[id] {
				unresolved = append(unresolved, id)
			}
		}
		ok := len(unresolved) == 0
		var reasons []string
		for _, id := range unresolved {
			reasons = append(reasons, "unresolved_evidence_id:"+id)
		}
		if !ok {
			anyFailed = true
		}
		reports = append(reports, store.GateReportEntry{ID: claim.ClaimID, OK: ok, Reasons: reasons})
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })

	result := outcome("claim_evidence_gate", cfg, anyFailed, reports)
	if err := s.WriteGateReport("claim_evidence_gate", result); err != nil {
		return result, err
	}
	return result, nil
}
