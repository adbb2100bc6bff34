// File: internal/services/ai/interface.go
package ai

import "context"

// StreamProvider starts one upstream completion stream per request.
type StreamProvider interface {
	StartStream(ctx context.Context, cfg StreamConfig) (Stream, error)
}

// ConversationProvider manages provider-side threads, assistants and
// single-use file attachments.
type ConversationProvider interface {
	CreateThread(ctx context.Context) (string, error)
	CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error)
	// EnsureAssistant pushes cfg only when the stored assistant
	// configuration differs, avoiding redundant round-trips.
	EnsureAssistant(ctx context.Context, assistantID string, cfg AssistantConfig) error
	UploadAttachment(ctx context.Context, name string, data []byte) (fileID, vectorStoreID string, err error)
	RemoveAttachment(ctx context.Context, fileID, vectorStoreID string) error
}

// CompletionProvider handles non-streaming completions and embeddings.
type CompletionProvider interface {
	GetCompletion(ctx context.Context, model, prompt string) (string, error)
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	// PredictCompletionTokens asks the upstream prediction service for a
	// pre-flight completion token estimate.
	PredictCompletionTokens(ctx context.Context, model, text string) (int, error)
}

// Provider combines every upstream capability the orchestrator needs.
type Provider interface {
	StreamProvider
	ConversationProvider
	CompletionProvider
}
