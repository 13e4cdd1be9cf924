package gate

import (
	"sort"
	"time"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

// EvaluateLiteratureGate checks that every claim carrying citation_keys has
// at least one verified citation that was checked within MaxAgeHours.
func EvaluateLiteratureGate(projectFolder string, cfg config.GateConfig) (store.GateResult, error) {
	s := store.New(projectFolder)

	claims, err := s.ReadClaims()
	if err != nil {
		return store.GateResult{}, err
	}
	citations, err := s.ListCitations()
	if err != nil {
		return store.GateResult{}, err
	}

	byKey := make(map[string]store.CitationRecord, len(citations))
	for _, c := range citations {
		byKey[c.CitationKey] = c
	}

	maxAge := time.Duration(cfg.MaxAgeHours * float64(time.Hour))
	now := time.Now().UTC()

	var reports []store.GateReportEntry
	anyFailed := false

	for _, claim := range claims {
		if len(claim.CitationKeys) == 0 {
			continue
		}

		freshVerified := false
		var reasons []string

		for _, key := range claim.CitationKeys {
			rec, ok := byKey[key]
			if !ok {
				reasons = append(reasons, "unresolved_citation_key:"+key)
				continue
			}
			if rec.Status != store.CitationVerified {
				reasons = append(reasons, "citation_not_verified:"+key)
				continue
			}
			if rec.Verification == nil || now.Sub(rec.Verification.LastChecked) > maxAge {
				reasons = append(reasons, "citation_stale:"+key)
				continue
			}
			freshVerified = true
		}

		ok := freshVerified
		if ok {
			reasons = nil
		} else {
			anyFailed = true
		}
		reports = append(reports, store.GateReportEntry{ID: claim.ClaimID, OK: ok, Reasons: reasons})
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })

	result := outcome("literature_gate", cfg, anyFailed, reports)
	if err := s.WriteGateReport("literature_gate", result); err != nil {
		return result, err
	}
	return result, nil
}
