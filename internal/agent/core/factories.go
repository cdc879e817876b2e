package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/devscout/devscout/config"
)

// ErrNoLLMProvider is returned when neither the routed model nor the
// fallback model belongs to a provider holding an API key.
var ErrNoLLMProvider = errors.New("no LLM provider configured")

// NewLLMProvider creates a new LLM provider based on configuration
func NewLLMProvider(cfg config.LLMProvider) (LLMProvider, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Type)
	}
}

// ProviderForModel finds the configured provider owning a model name.
// Models absent from every provider section resolve by name prefix, so
// an env-supplied model like CLAUDE_MODEL_NAME routes to the anthropic
// provider even when the config does not list it. The bool reports
// whether the provider holds an API key.
func ProviderForModel(cfg config.LLMConfig, model string) (config.LLMProvider, bool) {
	for _, pc := range cfg.Providers {
		for _, m := range pc.Models {
			if m.Name == model {
				return pc, hasAPIKey(pc)
			}
		}
	}
	wanted := "openai"
	if strings.HasPrefix(model, "claude") {
		wanted = "anthropic"
	}
	for _, pc := range cfg.Providers {
		if pc.Type == wanted {
			return pc, hasAPIKey(pc)
		}
	}
	return config.LLMProvider{}, false
}

// ProviderForRoute resolves a routed model to a ready provider, falling
// back to the routing fallback model when the routed provider has no
// key. Returns the provider and the model actually selected.
func ProviderForRoute(cfg config.LLMConfig, model string) (LLMProvider, string, error) {
	if pc, ok := ProviderForModel(cfg, model); ok {
		p, err := NewLLMProvider(pc)
		if err != nil {
			return nil, "", err
		}
		return p, model, nil
	}
	if fb := cfg.Routing.Fallback; fb != "" && fb != model {
		if pc, ok := ProviderForModel(cfg, fb); ok {
			p, err := NewLLMProvider(pc)
			if err != nil {
				return nil, "", err
			}
			return p, fb, nil
		}
	}
	return nil, "", ErrNoLLMProvider
}

func hasAPIKey(pc config.LLMProvider) bool {
	if pc.APIKey != "" {
		return true
	}
	switch pc.Type {
	case "openai":
		return os.Getenv("OPENAI_API_KEY") != ""
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY") != ""
	}
	return false
}

func modelByName(models map[string]config.LLMModel, name string) (config.LLMModel, bool) {
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return config.LLMModel{}, false
}

func costFor(models map[string]config.LLMModel, model string, inputTokens, outputTokens int64) float64 {
	m, ok := modelByName(models, model)
	if !ok {
		return 0.0
	}
	inputCost := float64(inputTokens) / 1000.0 * m.CostPer1K
	outputCost := float64(outputTokens) / 1000.0 * m.CostPer1KOutput
	return inputCost + outputCost
}

// OpenAIProvider implements LLMProvider for OpenAI
type OpenAIProvider struct {
	client *openai.Client
	config config.LLMProvider
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg config.LLMProvider) *OpenAIProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	cc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cc),
		config: cfg,
	}
}

// Chat sends a conversation and returns the model's reply
func (p *OpenAIProvider) Chat(ctx context.Context, model string, messages []ChatMessage) (ChatResponse, error) {
	return p.ChatWithTools(ctx, model, messages, nil)
}

// ChatWithTools sends a conversation along with tool definitions
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (ChatResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	if m, ok := modelByName(p.config.Models, model); ok {
		req.MaxTokens = m.MaxTokens
		req.Temperature = float32(m.Temperature)
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
		req.ParallelToolCalls = true
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("openai chat completion: %w", err)
	}

	out := ChatResponse{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return out, fmt.Errorf("openai chat completion: no choices")
	}
	msg := resp.Choices[0].Message
	out.Content = msg.Content
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// CalculateCost calculates the cost for a given number of tokens
func (p *OpenAIProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return costFor(p.config.Models, model, inputTokens, outputTokens)
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		m := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		result[i] = m
	}
	return result
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

// AnthropicProvider implements LLMProvider for Anthropic
type AnthropicProvider struct {
	client *anthropic.Client
	config config.LLMProvider
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(cfg config.LLMProvider) *AnthropicProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropic.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey, opts...),
		config: cfg,
	}
}

// Chat sends a conversation and returns the model's reply
func (p *AnthropicProvider) Chat(ctx context.Context, model string, messages []ChatMessage) (ChatResponse, error) {
	return p.ChatWithTools(ctx, model, messages, nil)
}

// ChatWithTools sends a conversation along with tool definitions
func (p *AnthropicProvider) ChatWithTools(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (ChatResponse, error) {
	maxTokens := 8192
	if m, ok := modelByName(p.config.Models, model); ok && m.MaxTokens > 0 {
		maxTokens = m.MaxTokens
	}
	req := toAnthropicRequest(model, maxTokens, messages, tools)

	resp, err := p.client.CreateMessages(ctx, req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("anthropic messages: %w", err)
	}

	out := ChatResponse{
		InputTokens:  int64(resp.Usage.InputTokens),
		OutputTokens: int64(resp.Usage.OutputTokens),
	}
	for _, c := range resp.Content {
		switch c.Type {
		case anthropic.MessagesContentTypeText:
			out.Content += c.GetText()
		case anthropic.MessagesContentTypeToolUse:
			if c.MessageContentToolUse != nil {
				out.ToolCalls = append(out.ToolCalls, ToolCall{
					ID:        c.MessageContentToolUse.ID,
					Name:      c.MessageContentToolUse.Name,
					Arguments: string(c.MessageContentToolUse.Input),
				})
			}
		}
	}
	return out, nil
}

// CalculateCost calculates the cost for a given number of tokens
func (p *AnthropicProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return costFor(p.config.Models, model, inputTokens, outputTokens)
}

func toAnthropicRequest(model string, maxTokens int, messages []ChatMessage, tools []ToolDefinition) anthropic.MessagesRequest {
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	lastWasToolResult := false
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			req.System = msg.Content
			lastWasToolResult = false
		case RoleAssistant:
			content := make([]anthropic.MessageContent, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, []byte(tc.Arguments)))
			}
			req.Messages = append(req.Messages, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})
			lastWasToolResult = false
		case RoleTool:
			// all results for one assistant turn must share a single user
			// message, or the API rejects the role sequence
			result := anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, false)
			if lastWasToolResult {
				last := &req.Messages[len(req.Messages)-1]
				last.Content = append(last.Content, result)
			} else {
				req.Messages = append(req.Messages, anthropic.Message{
					Role:    anthropic.RoleUser,
					Content: []anthropic.MessageContent{result},
				})
			}
			lastWasToolResult = true
		default:
			req.Messages = append(req.Messages, anthropic.NewUserTextMessage(msg.Content))
			lastWasToolResult = false
		}
	}
	return req
}
