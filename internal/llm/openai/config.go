// Package openai implements llm.InferenceGateway against any
// OpenAI-compatible chat completions endpoint (litellm, Ollama, Azure,
// vLLM, the Conway-hosted default, etc.), using the go-openai SDK.
package openai

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config holds OpenAI-compatible LLM configuration, split between the
// default-tier model and a cheaper low-compute-tier model the gateway
// switches to under spec.md §4.3's tier effects.
type Config struct {
	APIKey       string   // API key for authentication
	BaseURL      string   // Base URL (default: https://api.openai.com/v1)
	Model        string   // default-tier model
	LowComputeModel string // cheap-tier model used once SetLowComputeMode(true) is called
	Temperature  *float32 // response creativity 0.0-2.0 (nil = API default)
	MaxTokens    int      // default-tier max tokens, 0 = no limit
	LowComputeMaxTokens int // reduced token budget while in low-compute mode
	MaxRetries   int      // HTTP-level retry for transient errors only (default: 1)
	HTTPTimeout  int      // HTTP client timeout in seconds (default: 300)
}

// NewConfigFromEnv creates Config from environment variables.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:              getEnvOrDefault("LLM_API_KEY", ""),
		BaseURL:             getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:               getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		LowComputeModel:     getEnvOrDefault("LLM_LOW_COMPUTE_MODEL", "gpt-4o-mini"),
		Temperature:         getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:           getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		LowComputeMaxTokens: getEnvIntOrDefault("LLM_LOW_COMPUTE_MAX_TOKENS", 512),
		MaxRetries:          getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout:         getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
		log.Printf("[Config] WARNING: invalid value for %s=%q, ignoring", key, v)
	}
	return nil
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[Config] WARNING: invalid value for %s=%q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}
