package gate

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

// entityWeight is the contribution of named-entity overlap to the composite
// alignment score when entity overlap is enabled.
const entityWeight = 0.20

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"were": true, "are": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true, "their": true,
	"there": true, "than": true, "then": true, "also": true, "into": true,
	"over": true, "under": true, "between": true, "during": true, "about": true,
	"not": true, "no": true, "all": true, "any": true, "each": true, "such": true,
}

var (
	tokenRe    = regexp.MustCompile(`[A-Za-z0-9']+`)
	entityRe   = regexp.MustCompile(`\b[A-Z][a-zA-Z]+\b`)
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?%?`)
)

// tokenize returns lowercased, stop-word-filtered tokens of length >= 3 that
// are not purely numeric.
func tokenize(text string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range tokenRe.FindAllString(text, -1) {
		lower := strings.ToLower(tok)
		if len(lower) < 3 {
			continue
		}
		if stopwords[lower] {
			continue
		}
		if isAllDigits(lower) {
			continue
		}
		out[lower] = true
	}
	return out
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// extractNamedEntities returns the set of capitalized tokens in text.
func extractNamedEntities(text string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range entityRe.FindAllString(text, -1) {
		out[m] = true
	}
	return out
}

// extractNumbers returns every numeric token in text, excluding bare
// four-digit years in [1900, 2100] unless suffixed with '%'.
func extractNumbers(text string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range numberRe.FindAllString(text, -1) {
		if isYearLike(m) {
			continue
		}
		out[m] = true
	}
	return out
}

// isYearLike reports whether m is a bare four-digit integer in [1900, 2100]
// with no '%' suffix. "2020%" is NOT year-like.
func isYearLike(m string) bool {
	if strings.HasSuffix(m, "%") {
		return false
	}
	if len(m) != 4 {
		return false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return false
	}
	return n >= 1900 && n <= 2100
}

// jaccard computes |a ∩ b| / |a ∪ b|. Two empty sets are trivially aligned (1.0);
// one empty and one non-empty set has zero overlap (0.0).
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// claimVerdict is the scoring outcome for one claim.
type claimVerdict struct {
	ClaimID        string
	Skipped        bool
	OK             bool
	Reasons        []string
	AlignmentScore float64
}

// verifyClaim scores one source_backed claim's statement against the
// excerpt+context of its resolved evidence items.
func verifyClaim(claim store.ClaimRecord, evidenceByID map[string]store.EvidenceItem, cfg config.GateConfig) claimVerdict {
	max := cfg.MaxEvidenceItemsPerClaim
	ids := claim.EvidenceIDs
	if max > 0 && len(ids) > max {
		ids = ids[:max]
	}

	var evidenceText strings.Builder
	resolvedAny := false
	for _, id := range ids {
		item, ok := evidenceByID[id]
		if !ok {
			continue
		}
		resolvedAny = true
		evidenceText.WriteString(item.Excerpt)
		evidenceText.WriteString(" ")
		evidenceText.WriteString(item.Context)
		evidenceText.WriteString(" ")
	}

	if !resolvedAny {
		return claimVerdict{ClaimID: claim.ClaimID, Skipped: true, OK: true}
	}

	statementTokens := tokenize(claim.Statement)
	evidenceTokens := tokenize(evidenceText.String())
	keywordOverlap := jaccard(statementTokens, evidenceTokens)

	var reasons []string
	ok := true

	if keywordOverlap < cfg.MinKeywordOverlap {
		ok = false
		reasons = append(reasons, "keyword_overlap_below_threshold")
	}

	entityOverlap := 1.0
	if cfg.EnableEntityOverlap {
		statementEntities := extractNamedEntities(claim.Statement)
		evidenceEntities := extractNamedEntities(evidenceText.String())
		entityOverlap = jaccard(statementEntities, evidenceEntities)
		if entityOverlap < cfg.MinEntityOverlap {
			ok = false
			reasons = append(reasons, "entity_overlap_below_threshold")
		}
	}

	composite := keywordOverlap
	if cfg.EnableEntityOverlap {
		composite = math.Min(1.0, keywordOverlap+entityWeight*entityOverlap)
	}

	if cfg.EnableNumericConsistency {
		statementNumbers := extractNumbers(claim.Statement)
		evidenceNumbers := extractNumbers(evidenceText.String())
		for n := range statementNumbers {
			if !evidenceNumbers[n] {
				ok = false
				reasons = append(reasons, "numeric_mismatch")
				composite /= 2
				break
			}
		}
	}

	if composite < cfg.MinAlignmentScore {
		ok = false
		reasons = append(reasons, "alignment_score_below_threshold")
	}

	return claimVerdict{
		ClaimID:        claim.ClaimID,
		OK:             ok,
		Reasons:        reasons,
		AlignmentScore: composite,
	}
}

// EvaluateCitationAccuracyGate scores every source_backed claim's statement
// against the evidence it cites, per the alignment algorithm in §4.3.
func EvaluateCitationAccuracyGate(projectFolder string, cfg config.GateConfig) (store.GateResult, error) {
	s := store.New(projectFolder)

	claims, err := s.ReadClaims()
	if err != nil {
		return store.GateResult{}, err
	}

	evidenceByID := make(map[string]store.EvidenceItem)
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
			evidenceByID[item.EvidenceID] = item
		}
	}

	var reports []store.GateReportEntry
	checked := 0
	failed := 0
	skippedMissing := 0
	anyFailed := false

	for _, claim := range claims {
		if claim.Kind != store.ClaimSourceBacked || len(claim.EvidenceIDs) == 0 {
			continue
		}
		checked++
		v := verifyClaim(claim, evidenceByID, cfg)
		if v.Skipped {
			skippedMissing++
			reports = append(reports, store.GateReportEntry{ID: v.ClaimID, OK: true, Skipped: true})
			continue
		}
		if !v.OK {
			failed++
			anyFailed = true
		}
		reports = append(reports, store.GateReportEntry{
			ID: v.ClaimID, OK: v.OK, Reasons: v.Reasons, Score: v.AlignmentScore,
		})
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })

	result := outcome("citation_accuracy_gate", cfg, anyFailed, reports)
	result.CheckedClaimsTotal = checked
	result.FailedClaimsTotal = failed
	result.SkippedMissingTotal = skippedMissing

	if err := s.WriteGateReport("citation_accuracy_gate", result); err != nil {
		return result, err
	}
	return result, nil
}
