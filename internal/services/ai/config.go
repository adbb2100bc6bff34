// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

type Config struct {
	// Provider Configuration
	APIKey  string
	BaseURL string

	// Model Configuration
	DefaultModel   string
	EmbeddingModel string

	// Run polling
	PollInterval time.Duration
	RunTimeout   time.Duration

	// Model Parameters
	Temperature float32
	TopP        float32
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("default model is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		DefaultModel:   "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		PollInterval:   800 * time.Millisecond,
		RunTimeout:     5 * time.Minute,
		Temperature:    0.7,
		TopP:           0.9,
	}
}
