package core

import (
	"context"
	"time"
)

// Message roles used in agent conversations
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage represents a single turn in an agent conversation
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents one tool invocation requested by the model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object
}

// ToolDefinition describes a callable tool advertised to the model
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON schema
}

// ChatResponse represents the model's reply along with token usage
type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	InputTokens  int64      `json:"input_tokens"`
	OutputTokens int64      `json:"output_tokens"`
}

// LLMProvider interface defines the contract for LLM providers
type LLMProvider interface {
	// Chat sends a conversation and returns the model's reply
	Chat(ctx context.Context, model string, messages []ChatMessage) (ChatResponse, error)

	// ChatWithTools sends a conversation along with tool definitions the
	// model may call; requested calls come back on the response
	ChatWithTools(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (ChatResponse, error)

	// CalculateCost calculates the cost for a given number of tokens
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// RunResult represents the final result of a discovery run
type RunResult struct {
	ID            string        `json:"id"`
	Capability    string        `json:"capability"`
	Profile       string        `json:"profile"`
	FinalOutput   string        `json:"final_output"`
	Turns         int           `json:"turns"`
	ToolCalls     int           `json:"tool_calls"`
	SearchCalls   int           `json:"search_calls"`
	ResearchCalls int           `json:"research_calls"`
	TokensUsed    int64         `json:"tokens_used"`
	CostEstimate  float64       `json:"cost_estimate"`
	ModelsUsed    []string      `json:"models_used"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// ResearchResult represents one worker's findings for a single tool
type ResearchResult struct {
	ToolName   string        `json:"tool_name"`
	Focus      string        `json:"research_focus"`
	Output     string        `json:"output"` // JSON record text, not validated
	ModelUsed  string        `json:"model_used"`
	TokensUsed int64         `json:"tokens_used"`
	Cost       float64       `json:"cost"`
	Duration   time.Duration `json:"duration"`
}
