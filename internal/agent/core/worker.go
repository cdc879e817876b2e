package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devscout/devscout/config"
	"github.com/devscout/devscout/internal/agent/telemetry"
	websearch "github.com/devscout/devscout/tools/web_search"
	"github.com/devscout/devscout/tools/web_search/models"
)

var workerTracer trace.Tracer = otel.Tracer("devscout/internal/agent/worker")

// researchCategory pairs a context key with its query template. The %s
// placeholder receives the tool name.
type researchCategory struct {
	name     string
	template string
}

// researchCategories covers the angles a tool record needs: identity,
// repositories, docs, release history, community sentiment, use cases,
// compatibility, pricing, security, and MCP availability.
var researchCategories = []researchCategory{
	{"general_info", "what is %s API overview technology description"},
	{"github_repository", "%s official GitHub repository source code"},
	{"documentation", "%s official API documentation developer docs"},
	{"release_info", "%s release date launch date version history"},
	{"community_feedback", "site:reddit.com %s API pros cons review experience"},
	{"use_cases", "%s API use cases examples projects tutorials github"},
	{"compatibility", "%s API stack compatibility python javascript integration"},
	{"pricing", "%s API pricing free tier business model cost"},
	{"security", "%s API security SOC compliance data policy"},
	{"mcp_integration", "%s Model Context Protocol MCP integration"},
}

// ResearchWorker researches a single tool: it fans out one web search
// per category, aggregates the outcomes, and asks the LLM to synthesize
// them into one JSON record.
type ResearchWorker struct {
	cfg       *config.Config
	provider  LLMProvider
	model     string
	searcher  websearch.WebSearcher
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewResearchWorker creates a research worker from configuration. It
// fails only when no LLM provider holds an API key; a missing search
// key degrades category searches to error entries instead.
func NewResearchWorker(cfg *config.Config, tel *telemetry.Telemetry) (*ResearchWorker, error) {
	logger := log.New(log.Writer(), "[WORKER] ", log.LstdFlags)

	provider, model, err := ProviderForRoute(cfg.LLM, cfg.LLM.Routing.Research)
	if err != nil {
		return nil, err
	}
	logger.Printf("research model: %s", model)

	searcher := newSearcher(cfg.Search)
	if searcher == nil {
		logger.Printf("warning: no search API key configured, category searches will degrade")
	}

	return &ResearchWorker{
		cfg:       cfg,
		provider:  provider,
		model:     model,
		searcher:  searcher,
		telemetry: tel,
		logger:    logger,
	}, nil
}

// Research runs the category searches for one tool and synthesizes the
// aggregated context into a single JSON record.
func (w *ResearchWorker) Research(ctx context.Context, toolName, focus string) (ResearchResult, error) {
	ctx, span := workerTracer.Start(ctx, "worker.research",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
			attribute.String("research.focus", focus),
		))
	defer span.End()

	if focus == "" {
		focus = "comprehensive analysis"
	}
	start := time.Now()
	w.logger.Printf("starting research for %s (focus: %s)", toolName, focus)

	contextJSON := w.gatherContext(ctx, toolName)

	messages := []ChatMessage{
		{Role: RoleSystem, Content: WorkerPrompt()},
		{Role: RoleUser, Content: fmt.Sprintf(
			"Research the tool/API named %q focusing on %s.\n\nResearch data:\n%s",
			toolName, focus, contextJSON)},
	}

	resp, err := w.provider.Chat(ctx, w.model, messages)
	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.telemetry.RecordResearchEvent(ctx, telemetry.ResearchEvent{
			ID:        uuid.New().String(),
			ToolName:  toolName,
			Focus:     focus,
			Duration:  duration,
			Success:   false,
			Error:     err.Error(),
			ModelUsed: w.model,
		})
		return ResearchResult{}, fmt.Errorf("research synthesis for %s: %w", toolName, err)
	}

	cost := w.provider.CalculateCost(resp.InputTokens, resp.OutputTokens, w.model)
	tokens := resp.InputTokens + resp.OutputTokens
	w.telemetry.RecordLLMUsage(ctx, w.model, "research", resp.InputTokens, resp.OutputTokens, cost)
	w.telemetry.RecordResearchEvent(ctx, telemetry.ResearchEvent{
		ID:         uuid.New().String(),
		ToolName:   toolName,
		Focus:      focus,
		Duration:   duration,
		Success:    true,
		Cost:       cost,
		TokensUsed: tokens,
		ModelUsed:  w.model,
	})
	w.logger.Printf("research completed for %s in %s", toolName, duration.Round(time.Millisecond))

	return ResearchResult{
		ToolName:   toolName,
		Focus:      focus,
		Output:     extractFirstJSON(resp.Content),
		ModelUsed:  w.model,
		TokensUsed: tokens,
		Cost:       cost,
		Duration:   duration,
	}, nil
}

// gatherContext runs every category search concurrently and aggregates
// the outcomes into an indented JSON document keyed by category. One
// failing category never discards the others.
func (w *ResearchWorker) gatherContext(ctx context.Context, toolName string) string {
	if w.searcher == nil {
		out, _ := json.MarshalIndent(map[string]string{"error": "search API key not configured"}, "", "  ")
		return string(out)
	}

	cats := w.categories()
	type outcome struct {
		name    string
		payload map[string]string
	}
	results := make([]outcome, len(cats))

	var wg sync.WaitGroup
	for i, cat := range cats {
		wg.Add(1)
		go func(i int, cat researchCategory) {
			defer wg.Done()
			results[i] = outcome{name: cat.name, payload: w.searchCategory(ctx, cat, toolName)}
		}(i, cat)
	}
	wg.Wait()

	aggregated := make(map[string]map[string]string, len(results))
	for _, r := range results {
		aggregated[r.name] = r.payload
	}
	out, err := json.MarshalIndent(aggregated, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}

func (w *ResearchWorker) searchCategory(ctx context.Context, cat researchCategory, toolName string) map[string]string {
	query := fmt.Sprintf(cat.template, toolName)
	start := time.Now()
	resp, err := w.searcher.Search(ctx, query, models.Depth(w.cfg.Search.Depth))

	event := telemetry.SearchEvent{
		ID:       uuid.New().String(),
		Provider: w.cfg.Search.Provider,
		Query:    query,
		Duration: time.Since(start),
	}
	if err != nil {
		event.Error = err.Error()
		w.telemetry.RecordSearchEvent(ctx, event)
		w.logger.Printf("category %s search failed: %v", cat.name, err)
		return map[string]string{"error": searchErrorString(err)}
	}
	event.Success = true
	event.Sources = len(resp.Sources)
	w.telemetry.RecordSearchEvent(ctx, event)

	return map[string]string{"search_result": FormatSearchResult(resp, false, w.cfg.Search.MaxSources)}
}

// categories returns the configured subset of research categories, or
// all of them when the config names none.
func (w *ResearchWorker) categories() []researchCategory {
	wanted := w.cfg.Agents.ResearchCategories
	if len(wanted) == 0 {
		return researchCategories
	}
	keep := make(map[string]bool, len(wanted))
	for _, name := range wanted {
		keep[name] = true
	}
	var out []researchCategory
	for _, cat := range researchCategories {
		if keep[cat.name] {
			out = append(out, cat)
		}
	}
	if len(out) == 0 {
		return researchCategories
	}
	return out
}
