// File: internal/services/ai/run_stream.go
package ai

import (
	"context"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// runState is the finite state machine for thread-backed runs. Transitions
// are enforced in code so that illegal sequences (submitting tool outputs
// before the run asked for them) are impossible.
type runState int

const (
	runIdle runState = iota
	runStreaming
	runRequiresAction
	runDone
	runCancelled
)

// runStream drives one provider-side run with a single poll loop. The
// prompt has already been appended to the thread and the run created by
// the time the stream exists; events mirror the run lifecycle:
// EventRunCreated, zero or more EventRequiresAction pauses, the assistant
// reply as EventDelta fragments, then EventCompleted with usage.
type runStream struct {
	client       *openai.Client
	logger       Logger
	threadID     string
	runID        string
	pollInterval time.Duration
	deadline     time.Duration

	events  chan Event
	resumed chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	mu    sync.Mutex
	state runState
}

func (p *OpenAIProvider) startRunStream(ctx context.Context, cfg StreamConfig) (Stream, error) {
	// The run must survive a client disconnect until explicitly
	// cancelled, so its lifetime is detached from the request context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	_, err := p.client.CreateMessage(ctx, cfg.ThreadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: cfg.Prompt,
	})
	if err != nil {
		cancel()
		return nil, NewProviderError("create_message", "failed to append prompt to thread", err)
	}

	run, err := p.client.CreateRun(ctx, cfg.ThreadID, openai.RunRequest{
		AssistantID: cfg.AssistantID,
	})
	if err != nil {
		cancel()
		return nil, NewProviderError("create_run", "failed to start run", err)
	}

	s := &runStream{
		client:       p.client,
		logger:       p.logger,
		threadID:     cfg.ThreadID,
		runID:        run.ID,
		pollInterval: p.config.PollInterval,
		deadline:     p.config.RunTimeout,
		events:       make(chan Event, 16),
		resumed:      make(chan struct{}, 1),
		ctx:          runCtx,
		cancel:       cancel,
		state:        runIdle,
	}
	go s.loop()
	return s, nil
}

func (s *runStream) Events() <-chan Event { return s.events }

// Cancel issues the one upstream abort call for this run and stops the
// poll loop. Sub-runs already resumed share the same run id, so a single
// cancel covers the whole turn.
func (s *runStream) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if s.state == runDone || s.state == runCancelled {
		s.mu.Unlock()
		return nil
	}
	s.state = runCancelled
	s.mu.Unlock()

	_, err := s.client.CancelRun(ctx, s.threadID, s.runID)
	s.cancel()
	if err != nil {
		return NewProviderError("cancel_run", "failed to cancel run", err)
	}
	return nil
}

// SubmitToolOutputs resumes a run blocked on requires_action. The batch
// is submitted as one request keyed by call id.
func (s *runStream) SubmitToolOutputs(ctx context.Context, outputs []ToolOutput) error {
	s.mu.Lock()
	if s.state != runRequiresAction {
		s.mu.Unlock()
		return NewTransitionError("submit_tool_outputs", "run is not awaiting tool outputs")
	}
	s.mu.Unlock()

	req := openai.SubmitToolOutputsRequest{}
	for _, out := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: out.CallID,
			Output:     out.Output,
		})
	}

	if _, err := s.client.SubmitToolOutputs(ctx, s.threadID, s.runID, req); err != nil {
		return NewProviderError("submit_tool_outputs", "failed to submit tool outputs", err)
	}

	s.setState(runStreaming)
	select {
	case s.resumed <- struct{}{}:
	default:
	}
	return nil
}

func (s *runStream) setState(st runState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *runStream) getState() runState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *runStream) loop() {
	defer close(s.events)
	defer s.cancel()

	s.emit(Event{Kind: EventRunCreated, RunID: s.runID})
	s.setState(runStreaming)

	deadline := time.Now().Add(s.deadline)
	for {
		if s.ctx.Err() != nil {
			return
		}
		if time.Now().After(deadline) {
			s.setState(runDone)
			s.emit(Event{Kind: EventError, Err: NewProviderError("run_poll", "run exceeded deadline", nil)})
			return
		}

		run, err := s.client.RetrieveRun(s.ctx, s.threadID, s.runID)
		if err != nil {
			if s.getState() == runCancelled || IsAbort(err) {
				s.logger.Debug("run poll aborted", "run_id", s.runID)
				return
			}
			s.setState(runDone)
			s.emit(Event{Kind: EventError, Err: NewProviderError("run_poll", "failed to poll run", err)})
			return
		}

		switch run.Status {
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
			if !s.sleep() {
				return
			}

		case openai.RunStatusRequiresAction:
			if s.getState() != runRequiresAction {
				s.setState(runRequiresAction)
				s.emit(Event{
					Kind:      EventRequiresAction,
					RunID:     s.runID,
					ToolCalls: requestedToolCalls(run),
				})
			}
			select {
			case <-s.resumed:
			case <-s.ctx.Done():
				return
			}

		case openai.RunStatusCompleted:
			s.emitAssistantReply()
			s.setState(runDone)
			s.emit(Event{
				Kind:  EventCompleted,
				RunID: s.runID,
				Usage: &Usage{
					PromptTokens:     run.Usage.PromptTokens,
					CompletionTokens: run.Usage.CompletionTokens,
				},
			})
			return

		case openai.RunStatusFailed:
			msg := "run failed"
			if run.LastError != nil {
				msg = run.LastError.Message
			}
			s.setState(runDone)
			s.emit(Event{Kind: EventError, RunID: s.runID, Err: NewProviderError("run", msg, nil)})
			return

		default:
			// Cancelled or expired upstream. Not an error; the session
			// persists whatever was accumulated.
			s.logger.Debug("run reached terminal status", "run_id", s.runID, "status", string(run.Status))
			s.setState(runCancelled)
			s.emit(Event{
				Kind:  EventCompleted,
				RunID: s.runID,
				Usage: &Usage{
					PromptTokens:     run.Usage.PromptTokens,
					CompletionTokens: run.Usage.CompletionTokens,
				},
			})
			return
		}
	}
}

// emitAssistantReply fetches the messages this run produced and forwards
// their text parts as delta events, oldest first.
func (s *runStream) emitAssistantReply() {
	limit := 20
	order := "asc"
	list, err := s.client.ListMessage(s.ctx, s.threadID, &limit, &order, nil, nil, &s.runID)
	if err != nil {
		s.logger.Error("failed to list run messages", "run_id", s.runID, "error", err)
		return
	}
	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Text != nil && part.Text.Value != "" {
				s.emit(Event{Kind: EventDelta, RunID: s.runID, Content: part.Text.Value})
			}
		}
	}
}

func (s *runStream) sleep() bool {
	select {
	case <-time.After(s.pollInterval):
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *runStream) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func requestedToolCalls(run openai.Run) []ToolCall {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	calls := make([]ToolCall, 0, len(run.RequiredAction.SubmitToolOutputs.ToolCalls))
	for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls
}
