package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/devscout/devscout/config"
	"github.com/devscout/devscout/internal/agent/telemetry"
	websearch "github.com/devscout/devscout/tools/web_search"
	"github.com/devscout/devscout/tools/web_search/models"
)

// funcProvider scripts LLM behavior through a single function.
type funcProvider struct {
	fn func(messages []ChatMessage) (ChatResponse, error)
}

func (p funcProvider) Chat(_ context.Context, _ string, messages []ChatMessage) (ChatResponse, error) {
	return p.fn(messages)
}

func (p funcProvider) ChatWithTools(_ context.Context, _ string, messages []ChatMessage, _ []ToolDefinition) (ChatResponse, error) {
	return p.fn(messages)
}

func (p funcProvider) CalculateCost(inputTokens, outputTokens int64, _ string) float64 {
	return float64(inputTokens+outputTokens) / 1000.0
}

// funcSearcher scripts search behavior; the function must be safe for
// concurrent use because category searches fan out.
type funcSearcher struct {
	fn func(query string, depth models.Depth) (*models.Response, error)
}

func (s funcSearcher) Search(_ context.Context, query string, depth models.Depth) (*models.Response, error) {
	return s.fn(query, depth)
}

func newTestTelemetry() *telemetry.Telemetry {
	return telemetry.NewTelemetryWith(config.TelemetryConfig{}, prometheus.NewRegistry())
}

func workerTestConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{Provider: "linkup", Depth: "standard"},
		Agents: config.AgentsConfig{Profile: "quick", MaxTurns: 25},
	}
}

func newTestWorker(cfg *config.Config, provider LLMProvider, searcher websearch.WebSearcher) *ResearchWorker {
	return &ResearchWorker{
		cfg:       cfg,
		provider:  provider,
		model:     "research-model",
		searcher:  searcher,
		telemetry: newTestTelemetry(),
		logger:    log.New(io.Discard, "", 0),
	}
}

func TestGatherContextAggregatesAllCategories(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	searcher := funcSearcher{fn: func(query string, depth models.Depth) (*models.Response, error) {
		if depth != models.DepthStandard {
			t.Errorf("category search used depth %q, want standard", depth)
		}
		mu.Lock()
		queries = append(queries, query)
		mu.Unlock()
		return &models.Response{
			Answer:  "info for " + query,
			Sources: []models.Source{{Name: "Doc", URL: "https://example.com"}},
		}, nil
	}}
	worker := newTestWorker(workerTestConfig(), funcProvider{}, searcher)

	raw := worker.gatherContext(context.Background(), "Algolia")

	var aggregated map[string]map[string]string
	if err := json.Unmarshal([]byte(raw), &aggregated); err != nil {
		t.Fatalf("context is not valid JSON: %v", err)
	}
	if len(aggregated) != len(researchCategories) {
		t.Fatalf("expected %d categories, got %d", len(researchCategories), len(aggregated))
	}
	for _, cat := range researchCategories {
		payload, ok := aggregated[cat.name]
		if !ok {
			t.Fatalf("category %s missing from context", cat.name)
		}
		if !strings.Contains(payload["search_result"], "Algolia") {
			t.Fatalf("category %s result does not mention the tool: %q", cat.name, payload["search_result"])
		}
	}

	found := false
	for _, q := range queries {
		if q == "what is Algolia API overview technology description" {
			found = true
		}
	}
	if !found {
		t.Fatalf("general_info query template not applied, queries: %v", queries)
	}
}

func TestGatherContextIsolatesCategoryFailures(t *testing.T) {
	searcher := funcSearcher{fn: func(query string, _ models.Depth) (*models.Response, error) {
		if strings.Contains(query, "pricing free tier") {
			return nil, &models.StatusError{Code: 429, Body: "slow down"}
		}
		return &models.Response{Answer: "ok"}, nil
	}}
	worker := newTestWorker(workerTestConfig(), funcProvider{}, searcher)

	raw := worker.gatherContext(context.Background(), "Algolia")

	var aggregated map[string]map[string]string
	if err := json.Unmarshal([]byte(raw), &aggregated); err != nil {
		t.Fatalf("context is not valid JSON: %v", err)
	}
	if got := aggregated["pricing"]["error"]; got != "Error: search API returned status 429" {
		t.Fatalf("pricing error: got %q", got)
	}
	for _, cat := range researchCategories {
		if cat.name == "pricing" {
			continue
		}
		if aggregated[cat.name]["search_result"] == "" {
			t.Fatalf("category %s lost its result to a sibling failure", cat.name)
		}
	}
}

func TestGatherContextWithoutSearchKey(t *testing.T) {
	worker := newTestWorker(workerTestConfig(), funcProvider{}, nil)

	raw := worker.gatherContext(context.Background(), "Algolia")

	var degraded map[string]string
	if err := json.Unmarshal([]byte(raw), &degraded); err != nil {
		t.Fatalf("degraded context is not valid JSON: %v", err)
	}
	if degraded["error"] != "search API key not configured" {
		t.Fatalf("degraded context: got %q", degraded["error"])
	}
}

func TestResearchSynthesizesRecord(t *testing.T) {
	var captured []ChatMessage
	provider := funcProvider{fn: func(messages []ChatMessage) (ChatResponse, error) {
		captured = messages
		return ChatResponse{
			Content:      "Here is the record:\n```json\n{\"title\":\"Algolia\"}\n```",
			InputTokens:  100,
			OutputTokens: 50,
		}, nil
	}}
	searcher := funcSearcher{fn: func(query string, _ models.Depth) (*models.Response, error) {
		return &models.Response{Answer: "ok"}, nil
	}}
	worker := newTestWorker(workerTestConfig(), provider, searcher)

	res, err := worker.Research(context.Background(), "Algolia", "")
	if err != nil {
		t.Fatalf("Research: %v", err)
	}

	if res.Output != `{"title":"Algolia"}` {
		t.Fatalf("output not extracted: %q", res.Output)
	}
	if res.Focus != "comprehensive analysis" {
		t.Fatalf("empty focus should default, got %q", res.Focus)
	}
	if res.ToolName != "Algolia" || res.ModelUsed != "research-model" {
		t.Fatalf("result identity wrong: %+v", res)
	}
	if res.TokensUsed != 150 {
		t.Fatalf("tokens: got %d, want 150", res.TokensUsed)
	}

	if len(captured) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(captured))
	}
	if captured[0].Role != RoleSystem || !strings.Contains(captured[0].Content, "deep research specialist") {
		t.Fatalf("system message wrong: %q", captured[0].Content)
	}
	user := captured[1].Content
	if !strings.Contains(user, `"Algolia"`) || !strings.Contains(user, "comprehensive analysis") {
		t.Fatalf("user message missing tool or focus: %q", user)
	}
	if !strings.Contains(user, "Research data:") || !strings.Contains(user, "general_info") {
		t.Fatalf("user message missing research context: %q", user)
	}
}

func TestResearchUsesConfiguredCategorySubset(t *testing.T) {
	cfg := workerTestConfig()
	cfg.Agents.ResearchCategories = []string{"pricing", "security"}
	searcher := funcSearcher{fn: func(query string, _ models.Depth) (*models.Response, error) {
		return &models.Response{Answer: "ok"}, nil
	}}
	worker := newTestWorker(cfg, funcProvider{}, searcher)

	raw := worker.gatherContext(context.Background(), "Algolia")

	var aggregated map[string]map[string]string
	if err := json.Unmarshal([]byte(raw), &aggregated); err != nil {
		t.Fatalf("context is not valid JSON: %v", err)
	}
	if len(aggregated) != 2 {
		t.Fatalf("expected 2 categories, got %d: %v", len(aggregated), aggregated)
	}
	for _, name := range []string{"pricing", "security"} {
		if _, ok := aggregated[name]; !ok {
			t.Fatalf("category %s missing", name)
		}
	}
}

func TestResearchProviderErrorPropagates(t *testing.T) {
	provider := funcProvider{fn: func([]ChatMessage) (ChatResponse, error) {
		return ChatResponse{}, errors.New("model unavailable")
	}}
	searcher := funcSearcher{fn: func(query string, _ models.Depth) (*models.Response, error) {
		return &models.Response{Answer: "ok"}, nil
	}}
	worker := newTestWorker(workerTestConfig(), provider, searcher)

	_, err := worker.Research(context.Background(), "Algolia", "pricing")
	if err == nil {
		t.Fatalf("expected synthesis error")
	}
	if !strings.Contains(err.Error(), "research synthesis for Algolia") {
		t.Fatalf("error not wrapped: %v", err)
	}
}
