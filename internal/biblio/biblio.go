// Package biblio resolves citation metadata by DOI against a primary and
// fallback provider, merges resolved fields without clobbering human edits,
// and builds a deduplicated .bib file.
package biblio

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mkhale/researchctl/internal/errs"
	"github.com/mkhale/researchctl/internal/schema"
	"github.com/mkhale/researchctl/internal/store"
	"github.com/mkhale/researchctl/internal/telemetry"
)

// ResolvedMetadata is what a Provider returns for a successfully resolved DOI.
type ResolvedMetadata struct {
	Title   string
	Authors []string
	Year    int
	URL     string
}

// Provider resolves a normalized DOI to metadata, or returns an error —
// errs.NotFound from the primary means the DOI is absent there and stops the
// Resolver from trying the fallback; any other error triggers the fallback.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, doi string) (ResolvedMetadata, error)
}

// Resolver coordinates a primary and fallback Provider.
type Resolver struct {
	Primary     Provider
	Fallback    Provider
	MaxAgeHours float64
}

// New constructs a Resolver with the given providers and freshness policy.
func New(primary, fallback Provider, maxAgeHours float64) *Resolver {
	if maxAgeHours <= 0 {
		maxAgeHours = 24
	}
	return &Resolver{Primary: primary, Fallback: fallback, MaxAgeHours: maxAgeHours}
}

// IsFresh reports whether rec's last verification is within the resolver's
// max age, relative to now.
func (r *Resolver) IsFresh(rec store.CitationRecord, now time.Time) bool {
	if rec.Verification == nil {
		return false
	}
	age := now.Sub(rec.Verification.LastChecked)
	return age <= time.Duration(r.MaxAgeHours*float64(time.Hour))
}

// Resolve attempts the primary provider, falling back to the secondary only
// when the primary fails with a non-NotFound error (i.e. it could not even
// reach/parse the primary, as opposed to confirming the DOI does not exist
// there).
func (r *Resolver) Resolve(ctx context.Context, doi string) (ResolvedMetadata, store.VerificationAttempt, error) {
	ctx, span := telemetry.StartSpan(ctx, "biblio.resolve")
	defer span.End()
	telemetry.SafeSetAttributes(span, attribute.String("biblio.doi", doi))

	normalized := schema.NormalizeDOI(doi)

	meta, attempt, err := r.tryProvider(ctx, r.Primary, normalized)
	if err == nil {
		telemetry.SafeSetAttributes(span, attribute.String("biblio.provider_used", attempt.Provider))
		return meta, attempt, nil
	}
	if errors.Is(err, errs.NotFound) || r.Fallback == nil {
		return ResolvedMetadata{}, attempt, err
	}

	meta, fallbackAttempt, fallbackErr := r.tryProvider(ctx, r.Fallback, normalized)
	if fallbackErr != nil {
		return ResolvedMetadata{}, fallbackAttempt, fallbackErr
	}
	telemetry.SafeSetAttributes(span, attribute.String("biblio.provider_used", fallbackAttempt.Provider))
	return meta, fallbackAttempt, nil
}

func (r *Resolver) tryProvider(ctx context.Context, p Provider, doi string) (ResolvedMetadata, store.VerificationAttempt, error) {
	meta, err := p.Resolve(ctx, doi)
	attempt := store.VerificationAttempt{
		Provider:  p.Name(),
		OK:        err == nil,
		CheckedAt: time.Now().UTC(),
	}
	return meta, attempt, err
}

// MergeInto applies resolved metadata into rec without overwriting fields
// the operator has already set by hand, appends a verification attempt, and
// updates provider_used/last_checked/status.
func MergeInto(rec *store.CitationRecord, meta ResolvedMetadata, attempt store.VerificationAttempt) {
	if rec.Title == "" {
		rec.Title = meta.Title
	}
	if len(rec.Authors) == 0 {
		rec.Authors = meta.Authors
	}
	if rec.Year == 0 {
		rec.Year = meta.Year
	}
	if rec.Identifiers.URL == "" {
		rec.Identifiers.URL = meta.URL
	}

	if rec.Verification == nil {
		rec.Verification = &store.Verification{}
	}
	rec.Verification.Attempts = append(rec.Verification.Attempts, attempt)
	rec.Verification.LastChecked = attempt.CheckedAt
	if attempt.OK {
		rec.Verification.ProviderUsed = attempt.Provider
		rec.Status = store.CitationVerified
	}
}

// DedupByDOI deduplicates records by normalized DOI, keeping the first
// occurrence as the survivor. Returns the deduplicated list and a map from
// each dropped citation_key to its surviving citation_key.
func DedupByDOI(records []store.CitationRecord) ([]store.CitationRecord, map[string]string) {
	survivors := make([]store.CitationRecord, 0, len(records))
	byDOI := make(map[string]string) // normalized doi -> surviving citation_key
	dropped := make(map[string]string)

	for _, rec := range records {
		doi := schema.NormalizeDOI(rec.Identifiers.DOI)
		if doi == "" {
			survivors = append(survivors, rec)
			continue
		}
		if survivorKey, ok := byDOI[doi]; ok {
			dropped[rec.CitationKey] = survivorKey
			continue
		}
		byDOI[doi] = rec.CitationKey
		survivors = append(survivors, rec)
	}

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].CitationKey < survivors[j].CitationKey })
	return survivors, dropped
}
