// File: internal/services/chat/session.go
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/chatgroup"
	"github.com/ksamadi/omnichat/internal/repository/message"
	"github.com/ksamadi/omnichat/internal/services/ai"
)

const cancelTimeout = 10 * time.Second

// ToolDispatcher executes a batch of requested tool calls and returns
// one output per call, keyed by call id.
type ToolDispatcher interface {
	ExecuteBatch(ctx context.Context, userID uint, calls []ai.ToolCall) []ai.ToolOutput
}

// TurnResult is the outcome of one streamed turn, reported to the
// client as the terminal SSE event.
type TurnResult struct {
	MessageID        uint
	AIMessage        string
	PromptTokens     int
	CompletionTokens int
	Cancelled        bool
}

// StreamingService owns the event loop of every streamed turn: it
// resolves the group state, selects the provider variant, forwards
// deltas, dispatches tool batches and hands the accumulated result to
// the persistence path.
type StreamingService struct {
	config        *Config
	chatGroupRepo chatgroup.ChatGroupRepository
	messageRepo   message.MessageRepository
	provider      ai.Provider
	dispatcher    ToolDispatcher
	logger        Logger
}

func NewStreamingService(
	config *Config,
	chatGroupRepo chatgroup.ChatGroupRepository,
	messageRepo message.MessageRepository,
	provider ai.Provider,
	dispatcher ToolDispatcher,
	logger Logger,
) (*StreamingService, error) {
	if err := config.Validate(); err != nil {
		return nil, &ChatError{Type: ErrTypeConfig, Operation: "new_streaming_service", Message: err.Error()}
	}
	return &StreamingService{
		config:        config,
		chatGroupRepo: chatGroupRepo,
		messageRepo:   messageRepo,
		provider:      provider,
		dispatcher:    dispatcher,
		logger:        logger,
	}, nil
}

// StreamTurn runs one stateful (thread-backed) turn, switching to the
// tool-augmented variant when the group has a tool or an attachment.
func (s *StreamingService) StreamTurn(ctx context.Context, userID uint, req *TurnRequest, onDelta func(string) error) (*TurnResult, error) {
	return s.streamTurn(ctx, userID, req, true, onDelta)
}

// StreamCompletionTurn runs one stateless turn for a memory-disabled
// group.
func (s *StreamingService) StreamCompletionTurn(ctx context.Context, userID uint, req *TurnRequest, onDelta func(string) error) (*TurnResult, error) {
	return s.streamTurn(ctx, userID, req, false, onDelta)
}

func (s *StreamingService) streamTurn(ctx context.Context, userID uint, req *TurnRequest, wantMemory bool, onDelta func(string) error) (*TurnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	group, err := s.loadOwnedGroup(ctx, userID, req.ChatGroupID)
	if err != nil {
		return nil, err
	}
	if group.Memory != wantMemory {
		return nil, NewValidationError("stream_turn", "endpoint does not match the group's memory mode")
	}

	s.applyTurn(group, req)

	// One deadline caps the whole turn. Expiry is handled like a client
	// disconnect, so the partial answer is still persisted.
	ctx, cancelTurn := context.WithTimeout(ctx, s.config.StreamTimeout)
	defer cancelTurn()

	sessionID := uuid.NewString()
	s.logger.Info("starting stream turn",
		"session_id", sessionID,
		"user_id", userID,
		"chat_group_id", group.ID,
		"model", s.runModel(group),
		"memory", group.Memory,
		"tool", group.Tool,
		"edit", req.MessageID != 0)

	cfg, err := s.streamConfig(ctx, group, req.Prompt)
	if err != nil {
		return nil, err
	}

	stream, err := s.provider.StartStream(ctx, cfg)
	if err != nil {
		return nil, NewProviderError("start_stream", "failed to open upstream stream", err)
	}

	acc := newAccumulator(sessionID)
	toolUsed, cancelled, streamErr := s.pump(ctx, group.UserID, stream, acc, onDelta)
	if cfg.Variant == ai.VariantToolRun {
		// The turn ran tool-capable (dispatched calls or file search).
		toolUsed = true
	}

	// Persistence is always attempted: upstream state was already
	// mutated, so even a cancelled or failed stream saves what it has.
	result, persistErr := s.persistTurn(group, req, acc, toolUsed, cancelled)

	if streamErr != nil {
		return result, streamErr
	}
	if persistErr != nil {
		return result, persistErr
	}

	s.logger.Info("stream turn finished",
		"session_id", sessionID,
		"chat_group_id", group.ID,
		"cancelled", cancelled,
		"tool_used", toolUsed,
		"response_length", len(acc.text()))
	return result, nil
}

// streamConfig selects the provider variant from the group state and,
// for thread-backed groups, guarantees the provider-side conversation
// exists.
func (s *StreamingService) streamConfig(ctx context.Context, group *domain.ChatGroup, prompt string) (ai.StreamConfig, error) {
	if !group.Memory {
		return ai.StreamConfig{
			Variant: ai.VariantStateless,
			Model:   s.runModel(group),
			Prompt:  prompt,
		}, nil
	}

	if err := s.ProvisionConversation(ctx, group); err != nil {
		return ai.StreamConfig{}, err
	}

	variant := ai.VariantThread
	if group.ToolEnabled() {
		variant = ai.VariantToolRun
	}
	assistantCfg := s.assistantConfig(group)
	return ai.StreamConfig{
		Variant:     variant,
		Model:       s.runModel(group),
		Prompt:      prompt,
		ThreadID:    group.ThreadID,
		AssistantID: group.AssistantID,
		Assistant:   &assistantCfg,
	}, nil
}

// ProvisionConversation creates the provider-side thread and assistant
// for a memory-enabled group that does not have them yet. Stateless
// groups never acquire a thread.
func (s *StreamingService) ProvisionConversation(ctx context.Context, group *domain.ChatGroup) error {
	if !group.Memory || group.ThreadID != "" {
		return nil
	}

	threadID, err := s.provider.CreateThread(ctx)
	if err != nil {
		return NewProviderError("provision", "failed to create thread", err)
	}
	assistantID, err := s.provider.CreateAssistant(ctx, s.assistantConfig(group))
	if err != nil {
		return NewProviderError("provision", "failed to create assistant", err)
	}

	group.ThreadID = threadID
	group.AssistantID = assistantID
	if err := s.chatGroupRepo.Update(ctx, group); err != nil {
		return NewPersistenceError("provision", "failed to save conversation handles", err)
	}
	s.logger.Info("provisioned conversation", "chat_group_id", group.ID, "thread_id", threadID)
	return nil
}

// pump is the single authoritative event loop of one turn. It forwards
// deltas in upstream order, dispatches tool batches, and guarantees at
// most one upstream cancel per session.
func (s *StreamingService) pump(ctx context.Context, userID uint, stream ai.Stream, acc *accumulator, onDelta func(string) error) (toolUsed, cancelled bool, err error) {
	cancelOnce := func() {
		if cancelled {
			return
		}
		cancelled = true
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
		defer cancel()
		if cerr := stream.Cancel(cctx); cerr != nil {
			s.logger.Warn("upstream cancel failed", "session_id", acc.sessionID, "error", cerr.Error())
		}
	}

	for {
		select {
		case <-ctx.Done():
			// Client disconnect is the only early exit.
			s.logger.Info("client disconnected, cancelling upstream", "session_id", acc.sessionID)
			cancelOnce()
			return toolUsed, true, nil

		case ev, ok := <-stream.Events():
			if !ok {
				return toolUsed, cancelled, nil
			}

			switch ev.Kind {
			case ai.EventRunCreated:
				s.logger.Debug("run created", "session_id", acc.sessionID, "run_id", ev.RunID)

			case ai.EventDelta:
				acc.append(ev.Content)
				if onDelta != nil {
					if werr := onDelta(ev.Content); werr != nil {
						s.logger.Info("client write failed, cancelling upstream",
							"session_id", acc.sessionID, "error", werr.Error())
						cancelOnce()
						return toolUsed, true, nil
					}
				}

			case ai.EventRequiresAction:
				toolUsed = true
				// Dispatched sub-runs must run to completion even if the
				// client goes away; their outputs close out the parent run.
				tctx := context.WithoutCancel(ctx)
				outputs := s.dispatcher.ExecuteBatch(tctx, userID, ev.ToolCalls)
				if serr := stream.SubmitToolOutputs(tctx, outputs); serr != nil {
					return toolUsed, cancelled, NewStreamingError("submit_tool_outputs", "failed to resume run", serr)
				}
				s.logger.Debug("tool outputs submitted",
					"session_id", acc.sessionID, "calls", len(ev.ToolCalls))

			case ai.EventCompleted:
				if ev.Usage != nil {
					// Later usage events supersede earlier ones; tool
					// sub-run totals overwrite the parent's.
					acc.setUsage(ev.Usage.PromptTokens, ev.Usage.CompletionTokens)
				}
				return toolUsed, cancelled, nil

			case ai.EventError:
				if ai.IsAbort(ev.Err) {
					s.logger.Info("stream aborted", "session_id", acc.sessionID)
					return toolUsed, true, nil
				}
				return toolUsed, cancelled, NewStreamingError("stream", "upstream stream failed", ev.Err)
			}
		}
	}
}

// StreamGroupName runs a short stateless turn that titles the
// conversation and persists the result as the group's display name.
func (s *StreamingService) StreamGroupName(ctx context.Context, userID, chatGroupID uint, prompt string, onDelta func(string) error) (string, error) {
	if prompt == "" {
		return "", NewValidationError("group_name", "prompt is required")
	}
	group, err := s.loadOwnedGroup(ctx, userID, chatGroupID)
	if err != nil {
		return "", err
	}

	ctx, cancelTurn := context.WithTimeout(ctx, s.config.StreamTimeout)
	defer cancelTurn()

	stream, err := s.provider.StartStream(ctx, ai.StreamConfig{
		Variant: ai.VariantStateless,
		Model:   s.config.TitleModel,
		Prompt: "Generate a short title of at most five words for a conversation " +
			"that starts with the following message. Reply with the title only, " +
			"no quotes.\n\n" + prompt,
	})
	if err != nil {
		return "", NewProviderError("group_name", "failed to open title stream", err)
	}

	acc := newAccumulator(uuid.NewString())
	_, cancelled, streamErr := s.pump(ctx, userID, stream, acc, onDelta)
	if streamErr != nil {
		return "", streamErr
	}

	title := sanitizeTitle(acc.text(), s.config.TitleMaxLen)
	if cancelled || title == "" {
		return title, nil
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), s.config.SaveTimeout)
	defer cancel()
	group.Name = title
	if err := s.chatGroupRepo.Update(saveCtx, group); err != nil {
		return title, NewPersistenceError("group_name", "failed to save group name", err)
	}
	return title, nil
}

// PredictTokens returns a pre-flight completion token estimate for the
// given text.
func (s *StreamingService) PredictTokens(ctx context.Context, userID, chatGroupID uint, model, text string) (int, error) {
	if text == "" {
		return 0, NewValidationError("predict_tokens", "text is required")
	}
	group, err := s.loadOwnedGroup(ctx, userID, chatGroupID)
	if err != nil {
		return 0, err
	}
	if model == "" {
		model = group.Model
	}
	if model == "" {
		model = s.config.DefaultModel
	}

	count, err := s.provider.PredictCompletionTokens(ctx, model, text)
	if err != nil {
		return 0, NewProviderError("predict_tokens", "token prediction failed", err)
	}
	return count, nil
}

func (s *StreamingService) loadOwnedGroup(ctx context.Context, userID, chatGroupID uint) (*domain.ChatGroup, error) {
	group, err := s.chatGroupRepo.FindByID(ctx, chatGroupID)
	if err != nil || group.UserID != userID {
		return nil, NewUnauthorizedError(userID, chatGroupID)
	}
	return group, nil
}

func sanitizeTitle(raw string, maxLen int) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'`")
	title = strings.ReplaceAll(title, "\n", " ")
	runes := []rune(title)
	if len(runes) > maxLen {
		title = strings.TrimSpace(string(runes[:maxLen]))
	}
	return title
}

// accumulator collects the assembled answer and token totals of one
// session. Owned exclusively by its pump loop.
type accumulator struct {
	sessionID        string
	builder          strings.Builder
	promptTokens     int
	completionTokens int
}

func newAccumulator(sessionID string) *accumulator {
	return &accumulator{sessionID: sessionID}
}

func (a *accumulator) append(fragment string) {
	a.builder.WriteString(fragment)
}

func (a *accumulator) setUsage(promptTokens, completionTokens int) {
	a.promptTokens = promptTokens
	a.completionTokens = completionTokens
}

func (a *accumulator) text() string {
	return a.builder.String()
}
