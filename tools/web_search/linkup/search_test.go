package linkup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devscout/devscout/tools/web_search/models"
)

func TestSearchDecodesSourcedAnswer(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"answer": "Algolia and Elasticsearch lead the field.",
			"sources": []map[string]string{
				{"name": "Algolia Docs", "url": "https://algolia.com/doc", "snippet": "Hosted search API."},
				{"name": "ES Guide", "url": "https://elastic.co/guide", "snippet": "Distributed search engine."},
			},
		})
	}))
	defer srv.Close()

	s := Search{ApiKey: "test-key", BaseURL: srv.URL}
	resp, err := s.Search(context.Background(), "best search API", models.DepthDeep)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/v1/search" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["q"] != "best search API" {
		t.Fatalf("expected query in body, got %v", gotBody["q"])
	}
	if gotBody["depth"] != "deep" {
		t.Fatalf("expected deep depth, got %v", gotBody["depth"])
	}
	if gotBody["outputType"] != "sourcedAnswer" {
		t.Fatalf("expected sourcedAnswer output type, got %v", gotBody["outputType"])
	}

	if resp.Answer != "Algolia and Elasticsearch lead the field." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].Name != "Algolia Docs" || resp.Sources[0].URL != "https://algolia.com/doc" {
		t.Fatalf("unexpected first source: %+v", resp.Sources[0])
	}
	if resp.Sources[1].Snippet != "Distributed search engine." {
		t.Fatalf("unexpected second snippet: %q", resp.Sources[1].Snippet)
	}
}

func TestSearchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	s := Search{ApiKey: "test-key", BaseURL: srv.URL}
	_, err := s.Search(context.Background(), "anything", models.DepthStandard)
	if err == nil {
		t.Fatalf("expected error for 429 response")
	}
	var statusErr *models.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected code 429, got %d", statusErr.Code)
	}
	if statusErr.Body != "rate limited" {
		t.Fatalf("expected body prefix, got %q", statusErr.Body)
	}
}

func TestSearchAnswerWithoutSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"answer": "Nothing definitive found."})
	}))
	defer srv.Close()

	s := Search{ApiKey: "test-key", BaseURL: srv.URL}
	resp, err := s.Search(context.Background(), "obscure capability", models.DepthStandard)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.Answer != "Nothing definitive found." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(resp.Sources))
	}
}
