// Package schema holds pure, side-effect-free validation and normalization
// functions for every on-disk record type the store persists. Nothing here
// performs I/O.
package schema

import (
	"fmt"
	"strings"

	"github.com/mkhale/researchctl/internal/store"
)

// NormalizeDOI lowercases a DOI and strips a leading "doi:" or
// "https://doi.org/" prefix, idempotently: Normalize(Normalize(x)) == Normalize(x).
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(doi)
	d = strings.ToLower(d)
	d = strings.TrimPrefix(d, "https://doi.org/")
	d = strings.TrimPrefix(d, "http://doi.org/")
	d = strings.TrimPrefix(d, "doi:")
	return strings.TrimSpace(d)
}

// IsValidEvidenceItem reports whether e satisfies its structural invariants.
func IsValidEvidenceItem(e store.EvidenceItem) bool {
	return ValidateEvidenceItem(e) == nil
}

// ValidateEvidenceItem checks required fields and enum membership.
func ValidateEvidenceItem(e store.EvidenceItem) error {
	if e.EvidenceID == "" {
		return fmt.Errorf("evidence_id is required")
	}
	if e.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	switch e.Kind {
	case store.EvidenceQuote, store.EvidenceParaphrase, store.EvidenceMetric, store.EvidenceFigure, store.EvidenceTable:
	default:
		return fmt.Errorf("evidence %q: invalid kind %q", e.EvidenceID, e.Kind)
	}
	if e.Excerpt == "" {
		return fmt.Errorf("evidence %q: excerpt is required", e.EvidenceID)
	}
	return nil
}

// IsValidClaimRecord reports whether c satisfies its structural invariants.
func IsValidClaimRecord(c store.ClaimRecord) bool {
	return ValidateClaimRecord(c) == nil
}

// ValidateClaimRecord enforces: kind=source_backed requires evidence_ids or
// citation_keys; kind=computed requires metric_keys.
func ValidateClaimRecord(c store.ClaimRecord) error {
	if c.ClaimID == "" {
		return fmt.Errorf("claim_id is required")
	}
	if c.Statement == "" {
		return fmt.Errorf("claim %q: statement is required", c.ClaimID)
	}
	switch c.Kind {
	case store.ClaimSourceBacked:
		if len(c.EvidenceIDs) == 0 && len(c.CitationKeys) == 0 {
			return fmt.Errorf("claim %q: source_backed claims require evidence_ids or citation_keys", c.ClaimID)
		}
	case store.ClaimComputed:
		if len(c.MetricKeys) == 0 {
			return fmt.Errorf("claim %q: computed claims require metric_keys", c.ClaimID)
		}
	case store.ClaimTheoretical:
	default:
		return fmt.Errorf("claim %q: invalid kind %q", c.ClaimID, c.Kind)
	}
	return nil
}

// IsValidMetric reports whether m satisfies its structural invariants.
func IsValidMetric(m store.Metric) bool {
	return ValidateMetric(m) == nil
}

func ValidateMetric(m store.Metric) error {
	if m.MetricKey == "" {
		return fmt.Errorf("metric_key is required")
	}
	if m.Name == "" {
		return fmt.Errorf("metric %q: name is required", m.MetricKey)
	}
	return nil
}

// IsValidCitationRecord reports whether c satisfies its structural invariants.
func IsValidCitationRecord(c store.CitationRecord) bool {
	return ValidateCitationRecord(c) == nil
}

func ValidateCitationRecord(c store.CitationRecord) error {
	if c.CitationKey == "" {
		return fmt.Errorf("citation_key is required")
	}
	if c.Title == "" {
		return fmt.Errorf("citation %q: title is required", c.CitationKey)
	}
	switch c.Status {
	case store.CitationUnverified, store.CitationVerified, store.CitationRejected:
	default:
		return fmt.Errorf("citation %q: invalid status %q", c.CitationKey, c.Status)
	}
	return nil
}

// UniqueEvidenceIDs reports whether every EvidenceItem in items has a unique
// evidence_id within the set.
func UniqueEvidenceIDs(items []store.EvidenceItem) bool {
	seen := make(map[string]bool, len(items))
	for _, e := range items {
		if seen[e.EvidenceID] {
			return false
		}
		seen[e.EvidenceID] = true
	}
	return true
}
