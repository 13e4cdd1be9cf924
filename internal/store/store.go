package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/mkhale/researchctl/internal/errs"
)

// Store is the on-disk project layout rooted at ProjectFolder.
type Store struct {
	ProjectFolder string
}

// New returns a Store rooted at projectFolder.
func New(projectFolder string) *Store {
	return &Store{ProjectFolder: projectFolder}
}

func (s *Store) path(parts ...string) string {
	return filepath.Join(append([]string{s.ProjectFolder}, parts...)...)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.NotFound, err)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Wrap(errs.SchemaInvalid, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data, 0644)
}

// ReadProjectMetadata reads project.json.
func (s *Store) ReadProjectMetadata() (*ProjectMetadata, error) {
	var m ProjectMetadata
	if err := readJSON(s.path("project.json"), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadParsed reads sources/<sourceID>/parsed.json into an arbitrary map,
// since its internal shape is owned by upstream source parsers out of scope here.
func (s *Store) ReadParsed(sourceID string) (map[string]any, error) {
	var m map[string]any
	if err := readJSON(s.path("sources", sourceID, "parsed.json"), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteEvidenceItems overwrites sources/<sourceID>/evidence.json, sorted by evidence_id.
func (s *Store) WriteEvidenceItems(sourceID string, items []EvidenceItem) error {
	sorted := append([]EvidenceItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EvidenceID < sorted[j].EvidenceID })
	return writeJSON(s.path("sources", sourceID, "evidence.json"), sorted)
}

// AppendEvidenceItems appends items to the existing evidence.json for
// sourceID (creating it if absent), instead of overwriting. This is the
// explicit append path; the default write path is WriteEvidenceItems.
func (s *Store) AppendEvidenceItems(sourceID string, items []EvidenceItem) error {
	existing, err := s.ReadEvidenceItems(sourceID)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return err
	}
	return s.WriteEvidenceItems(sourceID, append(existing, items...))
}

// EvidenceReadResult carries both the valid items and a count of malformed
// ones, since gates never fail process-wide on a schema violation.
type EvidenceReadResult struct {
	Items        []EvidenceItem
	InvalidCount int
}

// ReadEvidenceItems reads sources/<sourceID>/evidence.json.
func (s *Store) ReadEvidenceItems(sourceID string) ([]EvidenceItem, error) {
	var items []EvidenceItem
	if err := readJSON(s.path("sources", sourceID, "evidence.json"), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// IterEvidenceFiles returns the source IDs that have an evidence.json.
func (s *Store) IterEvidenceFiles() ([]string, error) {
	entries, err := os.ReadDir(s.path("sources"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(s.path("sources", e.Name(), "evidence.json")); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadClaims reads claims/claims.json. Absence is treated as an empty list.
func (s *Store) ReadClaims() ([]ClaimRecord, error) {
	var claims []ClaimRecord
	err := readJSON(s.path("claims", "claims.json"), &claims)
	if errors.Is(err, errs.NotFound) {
		return nil, nil
	}
	return claims, err
}

// AppendClaims appends claims to claims/claims.json, sorted by claim_id.
func (s *Store) AppendClaims(claims []ClaimRecord) error {
	existing, err := s.ReadClaims()
	if err != nil {
		return err
	}
	merged := append(existing, claims...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].ClaimID < merged[j].ClaimID })
	return writeJSON(s.path("claims", "claims.json"), merged)
}

// ReadMetrics reads outputs/metrics.json. Absence is treated as an empty list.
func (s *Store) ReadMetrics() ([]Metric, error) {
	var metrics []Metric
	err := readJSON(s.path("outputs", "metrics.json"), &metrics)
	if errors.Is(err, errs.NotFound) {
		return nil, nil
	}
	return metrics, err
}

// AppendMetrics appends metrics to outputs/metrics.json, sorted by metric_key.
func (s *Store) AppendMetrics(metrics []Metric) error {
	existing, err := s.ReadMetrics()
	if err != nil {
		return err
	}
	merged := append(existing, metrics...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].MetricKey < merged[j].MetricKey })
	return writeJSON(s.path("outputs", "metrics.json"), merged)
}

// ListCitations reads citations/citations.json. Absence is an empty list.
func (s *Store) ListCitations() ([]CitationRecord, error) {
	var citations []CitationRecord
	err := readJSON(s.path("citations", "citations.json"), &citations)
	if errors.Is(err, errs.NotFound) {
		return nil, nil
	}
	return citations, err
}

// UpsertCitation inserts or replaces the record matching CitationKey, then
// rewrites citations.json sorted by citation_key.
func (s *Store) UpsertCitation(rec CitationRecord) error {
	existing, err := s.ListCitations()
	if err != nil {
		return err
	}
	found := false
	for i := range existing {
		if existing[i].CitationKey == rec.CitationKey {
			existing[i] = rec
			found = true
			break
		}
	}
	if !found {
		existing = append(existing, rec)
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].CitationKey < existing[j].CitationKey })
	return writeJSON(s.path("citations", "citations.json"), existing)
}

// WriteSection writes outputs/sections/<name>.tex, replacing any prior version.
func (s *Store) WriteSection(name, tex string) error {
	return writeFileAtomic(s.path("outputs", "sections", name+".tex"), []byte(tex), 0644)
}

// WriteBibliography writes paper/references.bib, replacing any prior version.
func (s *Store) WriteBibliography(bibtex string) error {
	return writeFileAtomic(s.path("paper", "references.bib"), []byte(bibtex), 0644)
}

// WriteLiteratureReview writes outputs/LITERATURE_REVIEW.md, the narrative
// synthesis a literature search produces alongside its structured citations.
func (s *Store) WriteLiteratureReview(markdown string) error {
	return writeFileAtomic(s.path("outputs", "LITERATURE_REVIEW.md"), []byte(markdown), 0644)
}

// WriteGateReport writes outputs/gates/<name>.json.
func (s *Store) WriteGateReport(name string, result GateResult) error {
	return writeJSON(s.path("outputs", "gates", name+".json"), result)
}

// WriteRemedyLine appends one remedy line to logs/REMEDY_LIST.txt in the
// format "<iso_ts> | <phase_id> | <reason>".
func (s *Store) WriteRemedyLine(isoTimestamp, phaseID, reason string) error {
	path := s.path("logs", "REMEDY_LIST.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s | %s | %s\n", isoTimestamp, phaseID, reason)
	return err
}

// WriteRunResult writes autonomous_run_result.json at the project root.
func (s *Store) WriteRunResult(result PipelineResult) error {
	return writeJSON(s.path("autonomous_run_result.json"), result)
}

// ReadRunResult reads autonomous_run_result.json at the project root.
func (s *Store) ReadRunResult() (PipelineResult, error) {
	var result PipelineResult
	err := readJSON(s.path("autonomous_run_result.json"), &result)
	return result, err
}

// ReadDegradationSummary reads outputs/degradation_summary.json. Absence is
// treated as an empty list, not an error.
func (s *Store) ReadDegradationSummary() ([]DegradationEntry, error) {
	var summary DegradationSummary
	err := readJSON(s.path("outputs", "degradation_summary.json"), &summary)
	if errors.Is(err, errs.NotFound) {
		return nil, nil
	}
	return summary.Degradations, err
}

// WriteDegradationSummary writes outputs/degradation_summary.json as a
// schema-valid object — a "counts" aggregate plus the flat degradations
// list — not a bare array. Called even on early catastrophic failure, so a
// nil/empty slice must still produce counts.total=0 and an empty (not
// null) degradations array.
func (s *Store) WriteDegradationSummary(entries []DegradationEntry) error {
	if entries == nil {
		entries = []DegradationEntry{}
	}
	byPhase := make(map[string]int, len(entries))
	for _, e := range entries {
		byPhase[e.PhaseName]++
	}
	summary := DegradationSummary{
		Counts:       DegradationCounts{Total: len(entries), ByPhase: byPhase},
		Degradations: entries,
	}
	return writeJSON(s.path("outputs", "degradation_summary.json"), summary)
}

// ReadReadinessReport reads a readiness_report.json if present at any of
// the given candidate paths (relative to the project folder), returning
// the first one found. Absence at every candidate is not an error — the
// report is optional.
func (s *Store) ReadReadinessReport(candidates ...string) (map[string]any, bool, error) {
	for _, c := range candidates {
		var m map[string]any
		err := readJSON(s.path(c), &m)
		if err == nil {
			return m, true, nil
		}
		if !errors.Is(err, errs.NotFound) {
			return nil, false, err
		}
	}
	return nil, false, nil
}

// EvidenceItemsCount sums |evidence.json| across every source directory.
func (s *Store) EvidenceItemsCount() (int, error) {
	sourceIDs, err := s.IterEvidenceFiles()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range sourceIDs {
		items, err := s.ReadEvidenceItems(id)
		if err != nil {
			continue
		}
		total += len(items)
	}
	return total, nil
}
