package telemetry

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/devscout/devscout/config"
)

// Telemetry aggregates monitoring and cost tracking for discovery runs
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	metrics     *Metrics
	costTracker *CostTracker
	prom        *PrometheusMetrics
	mu          sync.RWMutex
}

// Metrics holds various performance metrics
type Metrics struct {
	// Run metrics
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AverageRunTime time.Duration

	// Search metrics
	TotalSearches      int64
	FailedSearches     int64
	AverageSearchTime  time.Duration
	SearchesByProvider map[string]int64

	// Research metrics
	ResearchTasks       int64
	SuccessfulResearch  int64
	FailedResearch      int64
	AverageResearchTime time.Duration
	ResearchByTool      map[string]int64

	// LLM metrics
	LLMRequests   map[string]int64
	LLMTokensUsed map[string]int64
}

// CostTracker tracks estimated spend across models and stages
type CostTracker struct {
	ModelCosts map[string]float64 // model -> cost
	StageCosts map[string]float64 // orchestrator/research -> cost

	TotalCost   float64
	TotalTokens int64
}

// RunEvent represents one complete discovery run
type RunEvent struct {
	ID         string
	Capability string
	Profile    string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Success    bool
	Error      string
	Turns      int
	ToolCalls  int
	Cost       float64
	TokensUsed int64
}

// SearchEvent represents one web search call
type SearchEvent struct {
	ID       string
	Provider string
	Query    string
	Duration time.Duration
	Success  bool
	Error    string
	Sources  int
}

// ResearchEvent represents one per-tool research task
type ResearchEvent struct {
	ID         string
	ToolName   string
	Focus      string
	Duration   time.Duration
	Success    bool
	Error      string
	Cost       float64
	TokensUsed int64
	ModelUsed  string
}

// NewTelemetry creates a telemetry instance registered on the default
// Prometheus registry.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return NewTelemetryWith(cfg, prometheus.DefaultRegisterer)
}

// NewTelemetryWith creates a telemetry instance with an explicit registerer.
func NewTelemetryWith(cfg config.TelemetryConfig, reg prometheus.Registerer) *Telemetry {
	w := io.Writer(log.Writer())
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			w = io.MultiWriter(w, f)
		} else {
			log.Printf("[TELEMETRY] cannot open log file %s: %v", cfg.LogFile, err)
		}
	}

	t := &Telemetry{
		config: cfg,
		logger: log.New(w, "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			SearchesByProvider: make(map[string]int64),
			ResearchByTool:     make(map[string]int64),
			LLMRequests:        make(map[string]int64),
			LLMTokensUsed:      make(map[string]int64),
		},
		costTracker: &CostTracker{
			ModelCosts: make(map[string]float64),
			StageCosts: make(map[string]float64),
		},
		prom: NewPrometheusMetrics(reg),
	}

	// Background reporting can be disabled via config
	if cfg.Enabled && cfg.PeriodicLogs {
		go t.startMetricsCollection()
		go t.startCostReporting()
	}

	return t
}

// RecordRunEvent records a complete discovery run
func (t *Telemetry) RecordRunEvent(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	if event.Success {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
	}

	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.Duration
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.Duration) / time.Duration(t.metrics.TotalRuns)
	}

	t.prom.ObserveRun(event.Profile, event.Duration, event.Success)

	t.logger.Printf("Run Event: ID=%s, Capability=%q, Profile=%s, Success=%t, Turns=%d, ToolCalls=%d, Duration=%v, Cost=$%.4f, Tokens=%d",
		event.ID, event.Capability, event.Profile, event.Success, event.Turns, event.ToolCalls, event.Duration, event.Cost, event.TokensUsed)
}

// RecordSearchEvent records a web search call
func (t *Telemetry) RecordSearchEvent(ctx context.Context, event SearchEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalSearches++
	if !event.Success {
		t.metrics.FailedSearches++
	}
	t.metrics.SearchesByProvider[event.Provider]++

	if t.metrics.TotalSearches == 1 {
		t.metrics.AverageSearchTime = event.Duration
	} else {
		total := t.metrics.AverageSearchTime * time.Duration(t.metrics.TotalSearches-1)
		t.metrics.AverageSearchTime = (total + event.Duration) / time.Duration(t.metrics.TotalSearches)
	}

	t.prom.ObserveSearch(event.Provider, event.Success)

	t.logger.Printf("Search Event: Provider=%s, Success=%t, Duration=%v, Sources=%d",
		event.Provider, event.Success, event.Duration, event.Sources)
}

// RecordResearchEvent records a per-tool research task
func (t *Telemetry) RecordResearchEvent(ctx context.Context, event ResearchEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.ResearchTasks++
	if event.Success {
		t.metrics.SuccessfulResearch++
	} else {
		t.metrics.FailedResearch++
	}
	t.metrics.ResearchByTool[event.ToolName]++

	if t.metrics.ResearchTasks == 1 {
		t.metrics.AverageResearchTime = event.Duration
	} else {
		total := t.metrics.AverageResearchTime * time.Duration(t.metrics.ResearchTasks-1)
		t.metrics.AverageResearchTime = (total + event.Duration) / time.Duration(t.metrics.ResearchTasks)
	}

	t.prom.ObserveResearch(event.Duration, event.Success)

	t.logger.Printf("Research Event: Tool=%q, Focus=%q, Success=%t, Duration=%v, Cost=$%.4f, Model=%s",
		event.ToolName, event.Focus, event.Success, event.Duration, event.Cost, event.ModelUsed)
}

// RecordLLMUsage records tokens and estimated cost of one model call.
// This is the only place token and cost totals accumulate, so run and
// research events never double count.
func (t *Telemetry) RecordLLMUsage(ctx context.Context, model, stage string, inputTokens, outputTokens int64, cost float64) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tokens := inputTokens + outputTokens
	t.metrics.LLMRequests[model]++
	t.metrics.LLMTokensUsed[model] += tokens

	if t.config.CostTracking {
		t.costTracker.ModelCosts[model] += cost
		t.costTracker.StageCosts[stage] += cost
		t.costTracker.TotalCost += cost
		t.costTracker.TotalTokens += tokens
	}

	t.prom.ObserveLLMTokens(model, tokens)
}

// RecordHTTPRequest records one served HTTP request. The path should be
// the registered route pattern, not the raw URL, to keep label
// cardinality bounded.
func (t *Telemetry) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if !t.config.Enabled {
		return
	}

	t.prom.ObserveHTTPRequest(method, path, status, duration)
}

// GetMetrics returns a snapshot of the current metrics
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	metrics := *t.metrics
	metrics.SearchesByProvider = make(map[string]int64)
	metrics.ResearchByTool = make(map[string]int64)
	metrics.LLMRequests = make(map[string]int64)
	metrics.LLMTokensUsed = make(map[string]int64)

	for k, v := range t.metrics.SearchesByProvider {
		metrics.SearchesByProvider[k] = v
	}
	for k, v := range t.metrics.ResearchByTool {
		metrics.ResearchByTool[k] = v
	}
	for k, v := range t.metrics.LLMRequests {
		metrics.LLMRequests[k] = v
	}
	for k, v := range t.metrics.LLMTokensUsed {
		metrics.LLMTokensUsed[k] = v
	}

	return metrics
}

// CostSummary provides a summary of estimated spend
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
	ModelCosts  map[string]float64
	StageCosts  map[string]float64
}

// GetCostSummary returns the current cost summary
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summary := CostSummary{
		TotalCost:   t.costTracker.TotalCost,
		TotalTokens: t.costTracker.TotalTokens,
		ModelCosts:  make(map[string]float64),
		StageCosts:  make(map[string]float64),
	}
	for k, v := range t.costTracker.ModelCosts {
		summary.ModelCosts[k] = v
	}
	for k, v := range t.costTracker.StageCosts {
		summary.StageCosts[k] = v
	}
	return summary
}

// startMetricsCollection logs periodic metric snapshots
func (t *Telemetry) startMetricsCollection() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		metrics := t.GetMetrics()
		costs := t.GetCostSummary()

		t.logger.Printf("Metrics Snapshot: Runs=%d/%d, Searches=%d, Research=%d/%d, AvgRun=%v, TotalCost=$%.4f",
			metrics.SuccessfulRuns, metrics.TotalRuns, metrics.TotalSearches,
			metrics.SuccessfulResearch, metrics.ResearchTasks,
			metrics.AverageRunTime, costs.TotalCost)
	}
}

// startCostReporting logs periodic cost reports
func (t *Telemetry) startCostReporting() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		costs := t.GetCostSummary()

		t.logger.Printf("Cost Report: Total=$%.4f, Tokens=%d", costs.TotalCost, costs.TotalTokens)
		for model, cost := range costs.ModelCosts {
			t.logger.Printf("  Model %s: $%.4f", model, cost)
		}
		for stage, cost := range costs.StageCosts {
			t.logger.Printf("  Stage %s: $%.4f", stage, cost)
		}
	}
}

// Shutdown logs a final report
func (t *Telemetry) Shutdown() {
	t.logger.Println("Shutting down telemetry...")

	metrics := t.GetMetrics()
	costs := t.GetCostSummary()

	t.logger.Printf("Final Report:")
	t.logger.Printf("  Total Runs: %d", metrics.TotalRuns)
	if metrics.TotalRuns > 0 {
		t.logger.Printf("  Success Rate: %.2f%%", float64(metrics.SuccessfulRuns)/float64(metrics.TotalRuns)*100)
		t.logger.Printf("  Average Run Time: %v", metrics.AverageRunTime)
	}
	t.logger.Printf("  Total Cost: $%.4f", costs.TotalCost)
	t.logger.Printf("  Total Tokens: %d", costs.TotalTokens)
}

// GetPerformanceReport returns a human readable performance report
func (t *Telemetry) GetPerformanceReport() string {
	metrics := t.GetMetrics()
	costs := t.GetCostSummary()

	report := fmt.Sprintf(`
=== PERFORMANCE REPORT ===
Runs:
  Total: %d
  Successful: %d
  Failed: %d
  Average Duration: %v
Searches:
  Total: %d (failed %d)
  Average Duration: %v
Research Tasks:
  Total: %d
  Successful: %d
  Failed: %d
  Average Duration: %v
Spend:
  Total Cost: $%.4f
  Total Tokens: %d

LLM Usage:
`, metrics.TotalRuns, metrics.SuccessfulRuns, metrics.FailedRuns, metrics.AverageRunTime,
		metrics.TotalSearches, metrics.FailedSearches, metrics.AverageSearchTime,
		metrics.ResearchTasks, metrics.SuccessfulResearch, metrics.FailedResearch, metrics.AverageResearchTime,
		costs.TotalCost, costs.TotalTokens)

	for model, requests := range metrics.LLMRequests {
		tokens := metrics.LLMTokensUsed[model]
		cost := costs.ModelCosts[model]
		report += fmt.Sprintf("  %s: %d requests, %d tokens, $%.4f\n", model, requests, tokens, cost)
	}

	return report
}
