package litclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mkhale/researchctl/internal/errs"
)

// HTTPProvider implements Provider against a job-submission literature
// synthesis API: POST a query, then poll the returned job until it reaches
// a terminal status, mirroring the official client's submit-then-poll flow.
type HTTPProvider struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	PollEvery  time.Duration
	PollFor    time.Duration
}

// NewHTTPProvider always returns a provider; it does not check apiKey, so
// callers construct one only when a key is configured.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
		APIKey:     apiKey,
		PollEvery:  2 * time.Second,
		PollFor:    5 * time.Minute,
	}
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type pollResponse struct {
	Status              string `json:"status"`
	Response             string `json:"response"`
	TotalPapersSearched int    `json:"total_papers_searched"`
	Citations           []struct {
		Title          string   `json:"title"`
		Authors        []string `json:"authors"`
		Year           int      `json:"year"`
		Journal        string   `json:"journal"`
		DOI            string   `json:"doi"`
		URL            string   `json:"url"`
		Abstract       string   `json:"abstract"`
		RelevanceScore float64  `json:"relevance_score"`
		PaperID        string   `json:"paper_id"`
		Citations      int      `json:"citations"`
	} `json:"citations"`
}

// Search submits query as a literature-synthesis job and polls until it
// reaches a terminal status or PollFor elapses.
func (p *HTTPProvider) Search(ctx context.Context, query string) (any, error) {
	jobID, err := p.submit(ctx, query)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(p.PollFor)
	for {
		result, done, err := p.poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
		if time.Now().After(deadline) {
			return nil, errs.Wrap(errs.Transport, fmt.Errorf("job %s did not complete within %s", jobID, p.PollFor))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.PollEvery):
		}
	}
}

func (p *HTTPProvider) submit(ctx context.Context, query string) (string, error) {
	body, _ := json.Marshal(map[string]string{"query": query})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.Transport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errs.Wrap(errs.Auth, fmt.Errorf("literature API rejected credentials"))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", errs.Wrap(errs.Transport, fmt.Errorf("literature API: unexpected submit status %d", resp.StatusCode))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errs.Wrap(errs.Transport, fmt.Errorf("decoding submit response: %w", err))
	}
	return out.JobID, nil
}

func (p *HTTPProvider) poll(ctx context.Context, jobID string) (map[string]any, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, false, errs.Wrap(errs.Transport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, errs.Wrap(errs.Transport, fmt.Errorf("literature API: unexpected poll status %d", resp.StatusCode))
	}

	var out pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, errs.Wrap(errs.Transport, fmt.Errorf("decoding poll response: %w", err))
	}

	switch Status(out.Status) {
	case StatusCompleted:
		citations := make([]any, 0, len(out.Citations))
		for _, c := range out.Citations {
			citations = append(citations, map[string]any{
				"title":           c.Title,
				"authors":         toAnySlice(c.Authors),
				"year":            float64(c.Year),
				"journal":         c.Journal,
				"doi":             c.DOI,
				"url":             c.URL,
				"abstract":        c.Abstract,
				"relevance_score": c.RelevanceScore,
				"paper_id":        c.PaperID,
				"citations":       float64(c.Citations),
			})
		}
		return map[string]any{
			"response":               out.Response,
			"citations":              citations,
			"total_papers_searched": float64(out.TotalPapersSearched),
		}, true, nil
	case StatusFailed, StatusTimeout:
		return nil, false, errs.Wrap(errs.ProviderUnavailable, fmt.Errorf("literature job %s ended with status %s", jobID, out.Status))
	default:
		return nil, false, nil
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
