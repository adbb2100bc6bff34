// File: internal/services/pinecone/interface.go
package pinecone

import (
	"context"
)

// FactRepository retrieves reference fact snippets by vector similarity.
type FactRepository interface {
	QuerySimilar(ctx context.Context, embedding []float32, topK int) ([]Fact, error)
}

// Fact is one retrieved reference snippet with its similarity score.
type Fact struct {
	ID    string
	Score float32
	Text  string
}

// RetryProvider handles retry logic for vector store operations
type RetryProvider interface {
	RetryWithTimeout(call func(ctx context.Context) error) error
}

// Logger interface for vector store operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
