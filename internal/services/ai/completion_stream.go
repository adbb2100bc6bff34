// File: internal/services/ai/completion_stream.go
package ai

import (
	"context"
	"errors"
	"io"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// completionState is the finite state machine for the stateless variant.
type completionState int

const (
	completionIdle completionState = iota
	completionStreaming
	completionDone
	completionCancelled
)

// completionStream adapts a single-turn chat completion stream. Usage
// totals arrive on a final usage-bearing chunk before EOF.
type completionStream struct {
	events chan Event
	cancel context.CancelFunc

	mu    sync.Mutex
	state completionState
}

func (p *OpenAIProvider) startCompletionStream(ctx context.Context, cfg StreamConfig) (Stream, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	upstream, err := p.client.CreateChatCompletionStream(streamCtx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: cfg.Prompt},
		},
		Temperature:   p.config.Temperature,
		TopP:          p.config.TopP,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		cancel()
		return nil, NewProviderError("streaming", "failed to create stream", err)
	}

	s := &completionStream{
		events: make(chan Event, 16),
		cancel: cancel,
		state:  completionStreaming,
	}
	go s.loop(streamCtx, upstream, p.logger)
	return s, nil
}

func (s *completionStream) Events() <-chan Event { return s.events }

func (s *completionStream) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if s.state == completionDone || s.state == completionCancelled {
		s.mu.Unlock()
		return nil
	}
	s.state = completionCancelled
	s.mu.Unlock()

	// Dropping the request context closes the upstream HTTP stream;
	// there is no server-side handle to abort for this variant.
	s.cancel()
	return nil
}

func (s *completionStream) SubmitToolOutputs(ctx context.Context, outputs []ToolOutput) error {
	return NewTransitionError("submit_tool_outputs", "stateless completions cannot require action")
}

func (s *completionStream) setState(st completionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *completionStream) cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == completionCancelled
}

func (s *completionStream) loop(ctx context.Context, upstream *openai.ChatCompletionStream, logger Logger) {
	defer close(s.events)
	defer upstream.Close()
	defer s.cancel()

	var usage *Usage
	for {
		resp, err := upstream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.setState(completionDone)
				s.emit(ctx, Event{Kind: EventCompleted, Usage: usage})
				return
			}
			if s.cancelled() || IsAbort(err) {
				logger.Debug("completion stream aborted")
				return
			}
			s.setState(completionDone)
			s.emit(ctx, Event{Kind: EventError, Err: NewProviderError("streaming", "stream receive error", err)})
			return
		}

		if resp.Usage != nil {
			usage = &Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
			}
		}
		if len(resp.Choices) > 0 {
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				s.emit(ctx, Event{Kind: EventDelta, Content: delta})
			}
		}
	}
}

func (s *completionStream) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
