package core

import (
	"errors"
	"testing"

	"github.com/devscout/devscout/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Providers: map[string]config.LLMProvider{
			"openai": {
				Type:   "openai",
				APIKey: "sk-test",
				Models: map[string]config.LLMModel{
					"gpt-4o": {Name: "gpt-4o-2024-08-06", MaxTokens: 16384, CostPer1K: 0.0025, CostPer1KOutput: 0.01},
				},
			},
			"anthropic": {
				Type: "anthropic",
				Models: map[string]config.LLMModel{
					"claude-opus": {Name: "claude-opus-4-20250514", MaxTokens: 8192, CostPer1K: 0.015, CostPer1KOutput: 0.075},
				},
			},
		},
		Routing: config.LLMRoutingConfig{
			Orchestrator: "gpt-4o-2024-08-06",
			Research:     "claude-opus-4-20250514",
			Fallback:     "gpt-4o-2024-08-06",
		},
	}
}

func TestNewLLMProviderTypes(t *testing.T) {
	if _, err := NewLLMProvider(config.LLMProvider{Type: "openai", APIKey: "sk"}); err != nil {
		t.Fatalf("openai provider: %v", err)
	}
	if _, err := NewLLMProvider(config.LLMProvider{Type: "anthropic", APIKey: "sk"}); err != nil {
		t.Fatalf("anthropic provider: %v", err)
	}
	if _, err := NewLLMProvider(config.LLMProvider{Type: "mystery"}); err == nil {
		t.Fatalf("expected error for unsupported provider type")
	}
}

func TestProviderForModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := testLLMConfig()

	pc, ok := ProviderForModel(cfg, "gpt-4o-2024-08-06")
	if !ok {
		t.Fatalf("expected openai provider to be ready")
	}
	if pc.Type != "openai" {
		t.Fatalf("expected openai provider, got %s", pc.Type)
	}

	// configured model whose provider has no key
	pc, ok = ProviderForModel(cfg, "claude-opus-4-20250514")
	if pc.Type != "anthropic" {
		t.Fatalf("expected anthropic provider, got %s", pc.Type)
	}
	if ok {
		t.Fatalf("anthropic provider should not be ready without a key")
	}

	// unlisted model resolves by name prefix
	pc, _ = ProviderForModel(cfg, "claude-3-5-haiku-latest")
	if pc.Type != "anthropic" {
		t.Fatalf("prefix fallback: expected anthropic, got %s", pc.Type)
	}
	pc, _ = ProviderForModel(cfg, "gpt-5")
	if pc.Type != "openai" {
		t.Fatalf("prefix fallback: expected openai, got %s", pc.Type)
	}
}

func TestProviderForRouteFallsBack(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := testLLMConfig()

	// anthropic holds no key, so the research route lands on the fallback
	_, model, err := ProviderForRoute(cfg, "claude-opus-4-20250514")
	if err != nil {
		t.Fatalf("ProviderForRoute: %v", err)
	}
	if model != "gpt-4o-2024-08-06" {
		t.Fatalf("expected fallback model, got %s", model)
	}

	// direct route keeps the requested model
	_, model, err = ProviderForRoute(cfg, "gpt-4o-2024-08-06")
	if err != nil {
		t.Fatalf("ProviderForRoute: %v", err)
	}
	if model != "gpt-4o-2024-08-06" {
		t.Fatalf("expected routed model, got %s", model)
	}
}

func TestProviderForRouteNoKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := testLLMConfig()
	for name, pc := range cfg.Providers {
		pc.APIKey = ""
		cfg.Providers[name] = pc
	}

	if _, _, err := ProviderForRoute(cfg, "claude-opus-4-20250514"); !errors.Is(err, ErrNoLLMProvider) {
		t.Fatalf("expected ErrNoLLMProvider, got %v", err)
	}
}

func TestCalculateCost(t *testing.T) {
	cfg := testLLMConfig()
	provider := NewOpenAIProvider(cfg.Providers["openai"])

	got := provider.CalculateCost(1000, 1000, "gpt-4o-2024-08-06")
	want := 0.0025 + 0.01
	if got != want {
		t.Fatalf("cost: got %f, want %f", got, want)
	}

	if got := provider.CalculateCost(1000, 1000, "unknown-model"); got != 0 {
		t.Fatalf("unknown model cost: got %f, want 0", got)
	}
}
