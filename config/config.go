package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the discovery service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai, anthropic
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for different stages
type LLMRoutingConfig struct {
	Orchestrator string `mapstructure:"orchestrator"` // Tool discovery and dispatch
	Research     string `mapstructure:"research"`     // Per-tool record synthesis
	Fallback     string `mapstructure:"fallback"`     // Used when the routed model's provider has no key
}

// SearchConfig contains web search provider settings
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // linkup, brave, serper
	APIKey       string        `mapstructure:"api_key"`  // linkup key
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Depth        string        `mapstructure:"depth"` // standard or deep
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxSources   int           `mapstructure:"max_sources"` // 0 renders every source
}

// ActiveKey returns the API key for the configured provider.
func (s SearchConfig) ActiveKey() string {
	switch s.Provider {
	case "brave":
		return s.BraveAPIKey
	case "serper":
		return s.SerperAPIKey
	default:
		return s.APIKey
	}
}

// AgentsConfig contains agent-specific settings
type AgentsConfig struct {
	Profile            string   `mapstructure:"profile"`   // quick, elite, comprehensive
	MaxTurns           int      `mapstructure:"max_turns"` // run loop cap
	ResearchCategories []string `mapstructure:"research_categories"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LogFile      string `mapstructure:"log_file"`
	CostTracking bool   `mapstructure:"cost_tracking"`
	PeriodicLogs bool   `mapstructure:"periodic_logs"`
}

// LoadConfig loads configuration from file and environment variables.
// A missing config file is not an error: defaults plus environment
// variables are enough to start, and missing API keys only degrade the
// affected stages at call time.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	if path == "" {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		exe, _ := os.Executable()
		viper.AddConfigPath(filepath.Dir(exe))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("DEVSCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// General defaults
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.max_processing_time", "10m")

	// Server defaults
	viper.SetDefault("server.address", ":8034")
	viper.SetDefault("server.cors_origins", []string{"*"})

	// LLM defaults
	viper.SetDefault("llm.routing.orchestrator", "gpt-4o-2024-08-06")
	viper.SetDefault("llm.routing.research", "claude-opus-4-20250514")
	viper.SetDefault("llm.routing.fallback", "gpt-4o-2024-08-06")

	viper.SetDefault("llm.providers.openai.type", "openai")
	viper.SetDefault("llm.providers.openai.timeout", "120s")
	viper.SetDefault("llm.providers.openai.models.gpt-4o.name", "gpt-4o-2024-08-06")
	viper.SetDefault("llm.providers.openai.models.gpt-4o.max_tokens", 16384)
	viper.SetDefault("llm.providers.openai.models.gpt-4o.cost_per_1k_input", 0.0025)
	viper.SetDefault("llm.providers.openai.models.gpt-4o.cost_per_1k_output", 0.01)
	viper.SetDefault("llm.providers.openai.models.gpt-4o-mini.name", "gpt-4o-mini")
	viper.SetDefault("llm.providers.openai.models.gpt-4o-mini.max_tokens", 16384)
	viper.SetDefault("llm.providers.openai.models.gpt-4o-mini.cost_per_1k_input", 0.00015)
	viper.SetDefault("llm.providers.openai.models.gpt-4o-mini.cost_per_1k_output", 0.0006)

	viper.SetDefault("llm.providers.anthropic.type", "anthropic")
	viper.SetDefault("llm.providers.anthropic.timeout", "120s")
	viper.SetDefault("llm.providers.anthropic.models.claude-opus.name", "claude-opus-4-20250514")
	viper.SetDefault("llm.providers.anthropic.models.claude-opus.max_tokens", 8192)
	viper.SetDefault("llm.providers.anthropic.models.claude-opus.cost_per_1k_input", 0.015)
	viper.SetDefault("llm.providers.anthropic.models.claude-opus.cost_per_1k_output", 0.075)
	viper.SetDefault("llm.providers.anthropic.models.claude-sonnet.name", "claude-sonnet-4-20250514")
	viper.SetDefault("llm.providers.anthropic.models.claude-sonnet.max_tokens", 8192)
	viper.SetDefault("llm.providers.anthropic.models.claude-sonnet.cost_per_1k_input", 0.003)
	viper.SetDefault("llm.providers.anthropic.models.claude-sonnet.cost_per_1k_output", 0.015)

	// Search defaults
	viper.SetDefault("search.provider", "linkup")
	viper.SetDefault("search.base_url", "https://api.linkup.so")
	viper.SetDefault("search.depth", "standard")
	viper.SetDefault("search.timeout", "60s")
	viper.SetDefault("search.max_sources", 0)

	// Agent defaults
	viper.SetDefault("agents.profile", "quick")
	viper.SetDefault("agents.max_turns", 25)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)
	viper.SetDefault("telemetry.periodic_logs", false)
}

// overrideFromEnv overrides configuration with the conventional
// environment variable names for sensitive data
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.providers.openai.api_key", apiKey)
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		viper.Set("llm.providers.anthropic.api_key", apiKey)
	}
	if model := os.Getenv("CLAUDE_MODEL_NAME"); model != "" {
		viper.Set("llm.routing.research", model)
	}

	if apiKey := os.Getenv("LINKUP_API_KEY"); apiKey != "" {
		viper.Set("search.api_key", apiKey)
	}
	if baseURL := os.Getenv("LINKUP_BASE_URL"); baseURL != "" {
		viper.Set("search.base_url", baseURL)
	}
	if apiKey := os.Getenv("BRAVE_SEARCH_KEY"); apiKey != "" {
		viper.Set("search.brave_api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		viper.Set("search.serper_api_key", apiKey)
	}
}

// validateConfig validates the configuration. API keys are deliberately
// not checked here: their absence degrades the affected stage instead of
// failing startup.
func validateConfig(config *Config) error {
	switch config.Agents.Profile {
	case "quick", "elite", "comprehensive":
	default:
		return fmt.Errorf("unknown discovery profile %q", config.Agents.Profile)
	}
	if config.Agents.MaxTurns < 1 {
		return fmt.Errorf("agents.max_turns must be at least 1")
	}

	switch config.Search.Provider {
	case "linkup", "brave", "serper":
	default:
		return fmt.Errorf("unknown search provider %q", config.Search.Provider)
	}
	switch config.Search.Depth {
	case "standard", "deep":
	default:
		return fmt.Errorf("search.depth must be %q or %q", "standard", "deep")
	}

	if config.LLM.Routing.Orchestrator == "" {
		return fmt.Errorf("llm.routing.orchestrator must name a model")
	}
	if config.LLM.Routing.Fallback == "" {
		return fmt.Errorf("llm.routing.fallback must name a model")
	}
	return nil
}
