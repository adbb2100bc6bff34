// File: internal/services/pinecone/config.go
package pinecone

import (
	"errors"
	"time"
)

type Config struct {
	// Connection settings
	APIKey    string
	IndexHost string
	Namespace string

	// Operation settings
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Query settings
	TopK int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		TopK:       5,
	}
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("pinecone API key is required")
	}

	if c.IndexHost == "" {
		return errors.New("pinecone index host is required")
	}

	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}

	if c.TopK <= 0 {
		return errors.New("topK must be positive")
	}

	return nil
}
