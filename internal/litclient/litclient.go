// Package litclient wraps an external literature-synthesis API with request
// deduplication, response normalization, and narrative citation extraction,
// ported from the reference implementation's edison client.
package litclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mkhale/researchctl/internal/telemetry"
)

// DedupWindow is how long a fingerprint blocks duplicate submissions after
// its last activity (submission, or completion re-stamp).
const DedupWindow = 30 * time.Minute

// Provider performs the actual remote literature search. A real
// implementation calls out to the external synthesis API; ProviderFunc is
// the seam a test or alternate backend plugs into.
type Provider interface {
	Search(ctx context.Context, query string) (rawResponse any, err error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, query string) (any, error)

func (f ProviderFunc) Search(ctx context.Context, query string) (any, error) {
	return f(ctx, query)
}

// Client deduplicates concurrent identical searches and normalizes results.
type Client struct {
	provider  Provider
	initErr   error
	breaker   *gobreaker.CircuitBreaker

	mu      sync.Mutex
	inFlight map[string]time.Time
}

// New constructs a Client backed by provider. If provider is nil, the client
// is still constructed but IsAvailable reports false and every call returns
// a FAILED result carrying initErr.
func New(provider Provider, initErr error) *Client {
	c := &Client{
		provider: provider,
		initErr:  initErr,
		inFlight: make(map[string]time.Time),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "litclient",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

// IsAvailable reports whether the client has a usable provider.
func (c *Client) IsAvailable() bool {
	return c.provider != nil && c.initErr == nil
}

// InitError returns the error captured at construction time, if the
// provider could not be initialized.
func (c *Client) InitError() error {
	return c.initErr
}

func fingerprint(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *Client) reap(now time.Time) {
	for fp, ts := range c.inFlight {
		if now.Sub(ts) > DedupWindow {
			delete(c.inFlight, fp)
		}
	}
}

// claim marks fp as in-flight if it is not already within the dedup window,
// reaping stale entries opportunistically. Returns false and fp's stored
// timestamp if fp is a duplicate that must be blocked: the submission time
// while the call is in flight, the completion time once it has finished.
func (c *Client) claim(fp string, now time.Time) (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reap(now)
	if ts, ok := c.inFlight[fp]; ok && now.Sub(ts) <= DedupWindow {
		return false, ts
	}
	c.inFlight[fp] = now
	return true, time.Time{}
}

// complete re-stamps fp's timestamp to the completion time, rather than
// removing it, so the dedup window is measured from last activity.
func (c *Client) complete(fp string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight[fp] = now
}

// Search runs a literature search for query, blocking until the provider
// returns. A duplicate fingerprint already in flight (or completed less
// than DedupWindow ago) returns FAILED immediately without calling the
// provider.
func (c *Client) Search(ctx context.Context, query string) (result Result) {
	ctx, span := telemetry.StartSpan(ctx, "literature.search")
	defer func() {
		telemetry.SafeSetAttributes(span, attribute.String("literature.status", string(result.Status)))
		span.End()
	}()

	start := time.Now()

	if !c.IsAvailable() {
		return Result{Query: query, Status: StatusFailed, Error: c.initErr.Error()}
	}

	fp := fingerprint(query)
	now := time.Now().UTC()
	if claimed, submittedAt := c.claim(fp, now); !claimed {
		elapsed := now.Sub(submittedAt).Seconds()
		return Result{
			Query:  query,
			Status: StatusFailed,
			Error:  fmt.Sprintf("Duplicate request blocked. A similar query was submitted %.1fs ago.", elapsed),
		}
	}
	defer func() { c.complete(fp, time.Now().UTC()) }()

	raw, err := c.breaker.Execute(func() (any, error) {
		return c.provider.Search(ctx, query)
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		return Result{
			Query:          query,
			Status:         StatusFailed,
			Error:          err.Error(),
			ProcessingTime: elapsed,
		}
	}

	return normalizeResponse(query, raw, elapsed)
}

// normalizeResponse accepts either a list or a single response object from
// the provider; if a list, the first element is used. Citations are taken
// from a structured field when present, otherwise parsed from narrative text.
func normalizeResponse(query string, raw any, elapsed float64) Result {
	obj := raw
	if list, ok := raw.([]any); ok {
		if len(list) == 0 {
			return Result{Query: query, Status: StatusFailed, Error: "empty response list", ProcessingTime: elapsed}
		}
		obj = list[0]
	}

	m, ok := obj.(map[string]any)
	if !ok {
		return Result{Query: query, Status: StatusFailed, Error: "unrecognized response shape", ProcessingTime: elapsed}
	}

	responseText, _ := m["response"].(string)

	var citations []Citation
	if structured, ok := structuredCitations(m); ok {
		citations = structured
	} else {
		citations = extractCitationsFromText(responseText)
	}

	totalSearched := 0
	if v, ok := m["total_papers_searched"].(float64); ok {
		totalSearched = int(v)
	}

	return Result{
		Query:               query,
		Response:            responseText,
		Citations:           citations,
		TotalPapersSearched: totalSearched,
		ProcessingTime:      elapsed,
		Status:              StatusCompleted,
	}
}

// structuredCitations looks for citations under the "citations", "references"
// or "papers" keys, in that order, before falling back to narrative parsing.
func structuredCitations(m map[string]any) ([]Citation, bool) {
	for _, key := range []string{"citations", "references", "papers"} {
		raw, ok := m[key].([]any)
		if !ok || len(raw) == 0 {
			continue
		}
		out := make([]Citation, 0, len(raw))
		for _, item := range raw {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, citationFromMap(entry))
		}
		return out, true
	}
	return nil, false
}

func citationFromMap(m map[string]any) Citation {
	var c Citation
	c.Title, _ = m["title"].(string)
	c.Journal, _ = m["journal"].(string)
	c.DOI, _ = m["doi"].(string)
	c.URL, _ = m["url"].(string)
	c.Abstract, _ = m["abstract"].(string)
	c.PaperID, _ = m["paper_id"].(string)
	if v, ok := m["year"].(float64); ok {
		c.Year = int(v)
	}
	if v, ok := m["relevance_score"].(float64); ok {
		c.RelevanceScore = v
	}
	if v, ok := m["citations"].(float64); ok {
		c.CitationCount = int(v)
	}
	if authors, ok := m["authors"].([]any); ok {
		for _, a := range authors {
			if s, ok := a.(string); ok {
				c.Authors = append(c.Authors, strings.TrimSpace(s))
			}
		}
	}
	return c
}
