// File: internal/services/judge/config.go
package judge

import (
	"fmt"
	"time"
)

type Config struct {
	// Model Configuration
	Model string // model used for scoring

	// Retrieval Configuration
	FactTopK int // reference snippets retrieved per evaluation

	// Batch Configuration
	CallDelay time.Duration // fixed delay between batched evaluations

	// Performance Configuration
	Timeout time.Duration // cap on one evaluation
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.FactTopK <= 0 {
		return fmt.Errorf("fact_top_k must be positive")
	}
	if c.CallDelay < 0 {
		return fmt.Errorf("call_delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Model:     "gpt-4o-mini",
		FactTopK:  5,
		CallDelay: 1500 * time.Millisecond,
		Timeout:   60 * time.Second,
	}
}
