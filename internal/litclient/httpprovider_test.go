package litclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProviderSubmitsThenPollsUntilCompleted(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"job-1"}`))
	})
	mux.HandleFunc("/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		w.Header().Set("Content-Type", "application/json")
		if polls < 2 {
			w.Write([]byte(`{"status":"processing"}`))
			return
		}
		w.Write([]byte(`{"status":"completed","response":"survey text","total_papers_searched":3,"citations":[{"title":"Paper A","authors":["A. Author"],"year":2021,"doi":"10.1/a"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &HTTPProvider{HTTPClient: srv.Client(), BaseURL: srv.URL, APIKey: "k", PollEvery: time.Millisecond, PollFor: time.Second}
	raw, err := p.Search(context.Background(), "transformers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, ok := raw.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", raw)
	}
	if m["response"] != "survey text" {
		t.Fatalf("response = %v", m["response"])
	}
	citations, ok := m["citations"].([]any)
	if !ok || len(citations) != 1 {
		t.Fatalf("citations = %v", m["citations"])
	}
}

func TestHTTPProviderReturnsErrorOnFailedJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id":"job-2"}`))
	})
	mux.HandleFunc("/jobs/job-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failed"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &HTTPProvider{HTTPClient: srv.Client(), BaseURL: srv.URL, APIKey: "k", PollEvery: time.Millisecond, PollFor: time.Second}
	_, err := p.Search(context.Background(), "transformers")
	if err == nil {
		t.Fatal("expected an error for a failed job")
	}
}
