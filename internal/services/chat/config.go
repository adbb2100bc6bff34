// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

type Config struct {
	// Model Configuration
	DefaultModel string // model used when a group has none yet
	PersonaModel string // model tier used when a persona is installed
	TitleModel   string // model for conversation title generation

	// Performance Configuration
	StreamTimeout time.Duration // overall cap on one streamed turn
	SaveTimeout   time.Duration // background persistence timeout

	// Title Configuration
	TitleMaxLen int // persisted display name length cap
}

func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model is required")
	}
	if c.PersonaModel == "" {
		return fmt.Errorf("persona_model is required")
	}
	if c.TitleModel == "" {
		return fmt.Errorf("title_model is required")
	}
	if c.StreamTimeout <= 0 {
		return fmt.Errorf("stream_timeout must be positive")
	}
	if c.SaveTimeout <= 0 {
		return fmt.Errorf("save_timeout must be positive")
	}
	if c.TitleMaxLen <= 0 {
		return fmt.Errorf("title_max_len must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		DefaultModel:  "gpt-4o-mini",
		PersonaModel:  "gpt-4o",
		TitleModel:    "gpt-4o-mini",
		StreamTimeout: 5 * time.Minute,
		SaveTimeout:   5 * time.Second,
		TitleMaxLen:   60,
	}
}
