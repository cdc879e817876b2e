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

var orchestratorTracer trace.Tracer = otel.Tracer("devscout/internal/agent/orchestrator")

// Tool names advertised to the model.
const (
	toolWebSearch      = "web_search"
	toolResearchWorker = "research_worker"
)

// Orchestrator drives a discovery run: it prompts the model, executes
// every requested tool call concurrently, and loops until the model
// produces its final answer.
type Orchestrator struct {
	cfg       *config.Config
	provider  LLMProvider
	model     string
	searcher  websearch.WebSearcher
	worker    *ResearchWorker
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewOrchestrator wires up the orchestrating agent. It fails when no
// LLM provider holds an API key; a missing search key only degrades
// tool calls to error results.
func NewOrchestrator(cfg *config.Config, tel *telemetry.Telemetry) (*Orchestrator, error) {
	logger := log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags)

	provider, model, err := ProviderForRoute(cfg.LLM, cfg.LLM.Routing.Orchestrator)
	if err != nil {
		return nil, err
	}
	logger.Printf("orchestrator model: %s", model)

	worker, err := NewResearchWorker(cfg, tel)
	if err != nil {
		return nil, err
	}

	searcher := newSearcher(cfg.Search)
	if searcher == nil {
		logger.Printf("warning: no search API key configured, web_search degrades to error results")
	}

	return &Orchestrator{
		cfg:       cfg,
		provider:  provider,
		model:     model,
		searcher:  searcher,
		worker:    worker,
		telemetry: tel,
		logger:    logger,
	}, nil
}

// Run executes one discovery run for a capability. The returned result
// carries the model's final text output, which the prompts require to
// be a JSON array but which is deliberately not validated here.
func (o *Orchestrator) Run(ctx context.Context, capability string) (RunResult, error) {
	profile := o.cfg.Agents.Profile
	runID := uuid.New().String()

	ctx, span := orchestratorTracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.capability", capability),
			attribute.String("run.profile", profile),
		))
	defer span.End()

	start := time.Now()
	result := RunResult{
		ID:         runID,
		Capability: capability,
		Profile:    profile,
		ModelsUsed: []string{o.model},
		StartedAt:  start,
	}
	if o.worker.model != o.model {
		result.ModelsUsed = append(result.ModelsUsed, o.worker.model)
	}

	messages := []ChatMessage{
		{Role: RoleSystem, Content: OrchestratorPrompt(profile)},
		{Role: RoleUser, Content: fmt.Sprintf("Find and research developer tools for the capability: %s", capability)},
	}

	maxTurns := o.cfg.Agents.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 25
	}

	o.logger.Printf("run %s started (capability=%q, profile=%s, model=%s)", runID, capability, profile, o.model)

	for turn := 1; turn <= maxTurns; turn++ {
		resp, err := o.provider.ChatWithTools(ctx, o.model, messages, toolDefinitions())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			result.Duration = time.Since(start)
			o.recordRun(ctx, result, err)
			return result, fmt.Errorf("orchestrator turn %d: %w", turn, err)
		}

		result.Turns = turn
		result.TokensUsed += resp.InputTokens + resp.OutputTokens
		cost := o.provider.CalculateCost(resp.InputTokens, resp.OutputTokens, o.model)
		result.CostEstimate += cost
		o.telemetry.RecordLLMUsage(ctx, o.model, "orchestrator", resp.InputTokens, resp.OutputTokens, cost)

		if len(resp.ToolCalls) == 0 {
			result.FinalOutput = resp.Content
			result.Duration = time.Since(start)
			o.recordRun(ctx, result, nil)
			o.logger.Printf("run %s finished: %d turns, %d tool calls, %s",
				runID, result.Turns, result.ToolCalls, result.Duration.Round(time.Millisecond))
			return result, nil
		}

		o.logger.Printf("run %s turn %d: executing %d tool calls", runID, turn, len(resp.ToolCalls))
		messages = append(messages, ChatMessage{
			Role:      RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		messages = append(messages, o.executeToolCalls(ctx, &result, resp.ToolCalls)...)
	}

	err := fmt.Errorf("run exceeded %d turns without a final answer", maxTurns)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	result.Duration = time.Since(start)
	o.recordRun(ctx, result, err)
	return result, err
}

// executeToolCalls runs every requested call concurrently and returns
// one tool message per call, in call order. A failing call contributes
// an error payload; it never aborts its siblings.
func (o *Orchestrator) executeToolCalls(ctx context.Context, result *RunResult, calls []ToolCall) []ChatMessage {
	replies := make([]ChatMessage, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			replies[i] = ChatMessage{
				Role:       RoleTool,
				Content:    o.executeToolCall(ctx, call),
				ToolCallID: call.ID,
			}
		}(i, call)
	}
	wg.Wait()

	for _, call := range calls {
		result.ToolCalls++
		switch call.Name {
		case toolWebSearch:
			result.SearchCalls++
		case toolResearchWorker:
			result.ResearchCalls++
		}
	}
	return replies
}

func (o *Orchestrator) executeToolCall(ctx context.Context, call ToolCall) string {
	ctx, span := orchestratorTracer.Start(ctx, "orchestrator.tool_call",
		trace.WithAttributes(attribute.String("tool.name", call.Name)))
	defer span.End()

	switch call.Name {
	case toolWebSearch:
		return o.webSearch(ctx, call.Arguments)
	case toolResearchWorker:
		return o.research(ctx, call.Arguments)
	default:
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}
}

// webSearch implements the web_search tool. The depth argument is
// accepted for compatibility but discovery searches always run deep.
func (o *Orchestrator) webSearch(ctx context.Context, arguments string) string {
	var args struct {
		Query string `json:"query"`
		Depth string `json:"depth"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fmt.Sprintf("Error: search failed - invalid arguments: %v", err)
	}
	if o.searcher == nil {
		return errSearchKeyMissing
	}

	o.logger.Printf("web_search: %q", args.Query)
	start := time.Now()
	resp, err := o.searcher.Search(ctx, args.Query, models.DepthDeep)

	event := telemetry.SearchEvent{
		ID:       uuid.New().String(),
		Provider: o.cfg.Search.Provider,
		Query:    args.Query,
		Duration: time.Since(start),
	}
	if err != nil {
		event.Error = err.Error()
		o.telemetry.RecordSearchEvent(ctx, event)
		o.logger.Printf("web_search failed: %v", err)
		return searchErrorString(err)
	}
	event.Success = true
	event.Sources = len(resp.Sources)
	o.telemetry.RecordSearchEvent(ctx, event)

	return FormatSearchResult(resp, true, o.cfg.Search.MaxSources)
}

// research implements the research_worker tool. Worker failures come
// back as an error JSON payload so the model can aggregate the
// remaining tools.
func (o *Orchestrator) research(ctx context.Context, arguments string) string {
	var args struct {
		ToolName string `json:"tool_name"`
		Focus    string `json:"research_focus"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return researchErrorJSON(args.ToolName, args.Focus, fmt.Errorf("invalid arguments: %w", err))
	}
	if args.Focus == "" {
		args.Focus = "comprehensive analysis"
	}

	res, err := o.worker.Research(ctx, args.ToolName, args.Focus)
	if err != nil {
		o.logger.Printf("research failed for %s: %v", args.ToolName, err)
		return researchErrorJSON(args.ToolName, args.Focus, err)
	}
	return res.Output
}

func researchErrorJSON(toolName, focus string, err error) string {
	out, _ := json.Marshal(map[string]string{
		"error":          fmt.Sprintf("Research failed for %s: %v", toolName, err),
		"tool_name":      toolName,
		"research_focus": focus,
	})
	return string(out)
}

func (o *Orchestrator) recordRun(ctx context.Context, result RunResult, runErr error) {
	event := telemetry.RunEvent{
		ID:         result.ID,
		Capability: result.Capability,
		Profile:    result.Profile,
		StartTime:  result.StartedAt,
		EndTime:    result.StartedAt.Add(result.Duration),
		Duration:   result.Duration,
		Success:    runErr == nil,
		Turns:      result.Turns,
		ToolCalls:  result.ToolCalls,
		Cost:       result.CostEstimate,
		TokensUsed: result.TokensUsed,
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}
	o.telemetry.RecordRunEvent(ctx, event)
}

// toolDefinitions describes the two tools the orchestrator exposes.
func toolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        toolWebSearch,
			Description: "Search the web for developer tools and APIs. Returns a synthesized answer followed by a numbered source list.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The search query",
					},
					"depth": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"standard", "deep"},
						"description": "Search depth, defaults to deep",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        toolResearchWorker,
			Description: "Research one developer tool in depth. Returns a JSON record with links, pricing, community feedback, pros and cons. Can be called multiple times in parallel for different tools.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tool_name": map[string]interface{}{
						"type":        "string",
						"description": "Exact name of the tool or API to research",
					},
					"research_focus": map[string]interface{}{
						"type":        "string",
						"description": "Aspect to focus on, for example pricing or community feedback. Defaults to comprehensive analysis",
					},
				},
				"required": []string{"tool_name"},
			},
		},
	}
}
