// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider on top of an OpenAI-compatible API.
type OpenAIProvider struct {
	config *Config
	client *openai.Client
	logger Logger
}

func NewOpenAIProvider(config *Config, logger Logger) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// StartStream selects the upstream protocol from cfg.Variant. Thread
// variants synchronize the assistant configuration first when one is
// supplied, so a run never executes against stale instructions.
func (p *OpenAIProvider) StartStream(ctx context.Context, cfg StreamConfig) (Stream, error) {
	switch cfg.Variant {
	case VariantStateless:
		return p.startCompletionStream(ctx, cfg)
	case VariantThread, VariantToolRun:
		if cfg.ThreadID == "" || cfg.AssistantID == "" {
			return nil, NewProviderError("start_stream", "thread variant requires thread and assistant handles", nil)
		}
		if cfg.Assistant != nil {
			if err := p.EnsureAssistant(ctx, cfg.AssistantID, *cfg.Assistant); err != nil {
				return nil, err
			}
		}
		return p.startRunStream(ctx, cfg)
	default:
		return nil, NewProviderError("start_stream", fmt.Sprintf("unknown stream variant %d", cfg.Variant), nil)
	}
}

func (p *OpenAIProvider) GetCompletion(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.config.Temperature,
		TopP:        p.config.TopP,
	})
	if err != nil {
		return "", NewProviderError("completion", "failed to create completion", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &AIError{Type: ErrTypeProvider, Operation: "completion", Message: "empty completion response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.config.EmbeddingModel),
	})
	if err != nil {
		return nil, NewProviderError("embedding", "failed to create embedding", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &AIError{Type: ErrTypeProvider, Operation: "embedding", Message: "empty embedding response"}
	}
	return resp.Data[0].Embedding, nil
}

var leadingInt = regexp.MustCompile(`\d+`)

// PredictCompletionTokens asks the model itself for a completion-length
// estimate. The reply is reduced to its first integer.
func (p *OpenAIProvider) PredictCompletionTokens(ctx context.Context, model, text string) (int, error) {
	prompt := "Estimate how many tokens a typical assistant answer to the following message would contain. " +
		"Reply with a single integer and nothing else.\n\n" + text

	reply, err := p.GetCompletion(ctx, model, prompt)
	if err != nil {
		return 0, err
	}

	match := leadingInt.FindString(reply)
	if match == "" {
		return 0, &AIError{Type: ErrTypeProvider, Operation: "predict_tokens", Message: "no integer in prediction response"}
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, NewProviderError("predict_tokens", "unparseable prediction", err)
	}
	return n, nil
}
