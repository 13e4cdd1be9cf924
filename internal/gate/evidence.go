package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/schema"
	"github.com/mkhale/researchctl/internal/store"
)

// EvaluateEvidenceGate checks that every source with a parsed.json carries at
// least MinItemsPerSource well-formed evidence items.
func EvaluateEvidenceGate(projectFolder string, cfg config.GateConfig) (store.GateResult, error) {
	s := store.New(projectFolder)

	sourceIDs, err := s.IterEvidenceFiles()
	if err != nil {
		return store.GateResult{}, err
	}
	// A parsed source with no evidence.json is checked too; it fails as unreadable.
	if entries, err := os.ReadDir(filepath.Join(projectFolder, "sources")); err == nil {
		for _, e := range entries {
			if e.IsDir() && !slices.Contains(sourceIDs, e.Name()) {
				if _, err := os.Stat(filepath.Join(projectFolder, "sources", e.Name(), "parsed.json")); err == nil {
					sourceIDs = append(sourceIDs, e.Name())
				}
			}
		}
	}

	var reports []store.GateReportEntry
	anyFailed := false

	for _, id := range sourceIDs {
		items, err := s.ReadEvidenceItems(id)
		if err != nil {
			anyFailed = true
			reports = append(reports, store.GateReportEntry{
				ID: id, OK: false, Reasons: []string{"evidence_unreadable"},
			})
			continue
		}

		valid := 0
		for _, item := range items {
			if schema.IsValidEvidenceItem(item) {
				valid++
			}
		}

		var reasons []string
		ok := true
		if valid < cfg.MinItemsPerSource {
			ok = false
			anyFailed = true
			reasons = append(reasons, fmt.Sprintf("below_min_items_per_source:%d", valid))
		}
		if !schema.UniqueEvidenceIDs(items) {
			ok = false
			anyFailed = true
			reasons = append(reasons, "duplicate_evidence_ids")
		}

		reports = append(reports, store.GateReportEntry{ID: id, OK: ok, Reasons: reasons})
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })

	result := outcome("evidence_gate", cfg, anyFailed, reports)
	if err := s.WriteGateReport("evidence_gate", result); err != nil {
		return result, err
	}
	return result, nil
}
