// File: internal/services/chat/session_test.go
package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/chatgroup"
	"github.com/ksamadi/omnichat/internal/repository/message"
	"github.com/ksamadi/omnichat/internal/services"
	"github.com/ksamadi/omnichat/internal/services/ai"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.ChatGroup{}, &domain.Message{}, &domain.Document{}))
	return db
}

// fakeStream feeds a scripted event sequence through the ai.Stream
// contract and records cancel and submit calls.
type fakeStream struct {
	events chan ai.Event

	mu          sync.Mutex
	cancelCalls int
	submitted   [][]ai.ToolOutput
	onSubmit    func([]ai.ToolOutput)
}

func newFakeStream(events ...ai.Event) *fakeStream {
	s := &fakeStream{events: make(chan ai.Event, 64)}
	for _, ev := range events {
		s.events <- ev
	}
	return s
}

func (f *fakeStream) Events() <-chan ai.Event { return f.events }

func (f *fakeStream) Cancel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakeStream) SubmitToolOutputs(ctx context.Context, outputs []ai.ToolOutput) error {
	f.mu.Lock()
	f.submitted = append(f.submitted, outputs)
	onSubmit := f.onSubmit
	f.mu.Unlock()
	if onSubmit != nil {
		onSubmit(outputs)
	}
	return nil
}

func (f *fakeStream) cancels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelCalls
}

type fakeProvider struct {
	stream ai.Stream

	mu         sync.Mutex
	startedCfg []ai.StreamConfig
	removed    []string
	completion string
	tokens     int
}

func (p *fakeProvider) StartStream(ctx context.Context, cfg ai.StreamConfig) (ai.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedCfg = append(p.startedCfg, cfg)
	return p.stream, nil
}

func (p *fakeProvider) CreateThread(ctx context.Context) (string, error) { return "th_test", nil }

func (p *fakeProvider) CreateAssistant(ctx context.Context, cfg ai.AssistantConfig) (string, error) {
	return "as_test", nil
}

func (p *fakeProvider) EnsureAssistant(ctx context.Context, assistantID string, cfg ai.AssistantConfig) error {
	return nil
}

func (p *fakeProvider) UploadAttachment(ctx context.Context, name string, data []byte) (string, string, error) {
	return "file_test", "vs_test", nil
}

func (p *fakeProvider) RemoveAttachment(ctx context.Context, fileID, vectorStoreID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, fileID)
	return nil
}

func (p *fakeProvider) GetCompletion(ctx context.Context, model, prompt string) (string, error) {
	return p.completion, nil
}

func (p *fakeProvider) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (p *fakeProvider) PredictCompletionTokens(ctx context.Context, model, text string) (int, error) {
	return p.tokens, nil
}

func (p *fakeProvider) removedFiles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.removed...)
}

type stubDispatcher struct {
	mu      sync.Mutex
	batches [][]ai.ToolCall
	outputs func(calls []ai.ToolCall) []ai.ToolOutput
}

func (d *stubDispatcher) ExecuteBatch(ctx context.Context, userID uint, calls []ai.ToolCall) []ai.ToolOutput {
	d.mu.Lock()
	d.batches = append(d.batches, calls)
	d.mu.Unlock()
	if d.outputs != nil {
		return d.outputs(calls)
	}
	out := make([]ai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		out = append(out, ai.ToolOutput{CallID: call.ID, Output: "ok"})
	}
	return out
}

type sessionFixture struct {
	service    *StreamingService
	groupRepo  chatgroup.ChatGroupRepository
	msgRepo    message.MessageRepository
	provider   *fakeProvider
	dispatcher *stubDispatcher
}

func newSessionFixture(t *testing.T, stream ai.Stream) *sessionFixture {
	t.Helper()
	db := newTestDB(t)
	groupRepo := chatgroup.NewChatGroupRepository(db)
	msgRepo := message.NewMessageRepository(db)
	provider := &fakeProvider{stream: stream}
	dispatcher := &stubDispatcher{}

	service, err := NewStreamingService(DefaultConfig(), groupRepo, msgRepo, provider, dispatcher, &services.NoOpLogger{})
	require.NoError(t, err)

	return &sessionFixture{
		service:    service,
		groupRepo:  groupRepo,
		msgRepo:    msgRepo,
		provider:   provider,
		dispatcher: dispatcher,
	}
}

func (f *sessionFixture) createGroup(t *testing.T, group *domain.ChatGroup) *domain.ChatGroup {
	t.Helper()
	created, err := f.groupRepo.Create(context.Background(), group)
	require.NoError(t, err)
	return created
}

func TestStatelessTurnPersistsConcatenatedFragments(t *testing.T) {
	stream := newFakeStream(
		ai.Event{Kind: ai.EventDelta, Content: "4"},
		ai.Event{Kind: ai.EventCompleted, Usage: &ai.Usage{PromptTokens: 3, CompletionTokens: 1}},
	)
	f := newSessionFixture(t, stream)
	group := f.createGroup(t, &domain.ChatGroup{UserID: 1, Name: "test", Model: "modelA", Memory: false})

	var forwarded []string
	result, err := f.service.StreamCompletionTurn(context.Background(), 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "2+2",
	}, func(fragment string) error {
		forwarded = append(forwarded, fragment)
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Cancelled)

	saved, err := f.msgRepo.FindByID(context.Background(), result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "2+2", saved.UserMessage)
	assert.Equal(t, strings.Join(forwarded, ""), saved.AIMessage)
	assert.Equal(t, "4", saved.AIMessage)
	assert.Equal(t, 3, saved.PromptTokens)
	assert.Equal(t, 1, saved.CompletionTokens)
	assert.False(t, saved.ToolUse)

	// Stateless groups never touch thread-based config.
	require.Len(t, f.provider.startedCfg, 1)
	assert.Equal(t, ai.VariantStateless, f.provider.startedCfg[0].Variant)
	assert.Empty(t, f.provider.startedCfg[0].ThreadID)
}

func TestDisconnectCancelsUpstreamOnceAndPersistsPartial(t *testing.T) {
	stream := newFakeStream(
		ai.Event{Kind: ai.EventDelta, Content: "Hello "},
		ai.Event{Kind: ai.EventDelta, Content: "world"},
	)
	f := newSessionFixture(t, stream)
	group := f.createGroup(t, &domain.ChatGroup{UserID: 1, Name: "test", Model: "modelA", Memory: false})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := 0
	result, err := f.service.StreamCompletionTurn(ctx, 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "hi",
	}, func(fragment string) error {
		seen++
		if seen == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)

	assert.Equal(t, 1, stream.cancels())

	saved, err := f.msgRepo.FindByID(context.Background(), result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", saved.AIMessage)
}

func TestStreamTimeoutCancelsHungUpstreamAndPersistsPartial(t *testing.T) {
	// Two fragments arrive and then the upstream goes silent without a
	// terminal event.
	stream := newFakeStream(
		ai.Event{Kind: ai.EventDelta, Content: "Partial "},
		ai.Event{Kind: ai.EventDelta, Content: "answer"},
	)
	f := newSessionFixture(t, stream)
	f.service.config.StreamTimeout = 100 * time.Millisecond
	group := f.createGroup(t, &domain.ChatGroup{UserID: 1, Name: "test", Model: "modelA", Memory: false})

	start := time.Now()
	result, err := f.service.StreamCompletionTurn(context.Background(), 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "q",
	}, func(string) error { return nil })
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, stream.cancels())

	saved, err := f.msgRepo.FindByID(context.Background(), result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "Partial answer", saved.AIMessage)
}

func TestToolTurnResumesAndOverwritesUsage(t *testing.T) {
	stream := newFakeStream(
		ai.Event{Kind: ai.EventRunCreated, RunID: "run_1"},
		ai.Event{Kind: ai.EventDelta, Content: "Checking. "},
		ai.Event{Kind: ai.EventRequiresAction, RunID: "run_1", ToolCalls: []ai.ToolCall{
			{ID: "call_b", Name: "web_search", Arguments: `{"query":"go"}`},
			{ID: "call_a", Name: "bogus_tool", Arguments: `{}`},
		}},
	)
	stream.onSubmit = func(outputs []ai.ToolOutput) {
		stream.events <- ai.Event{Kind: ai.EventDelta, Content: "Found it."}
		stream.events <- ai.Event{Kind: ai.EventCompleted, Usage: &ai.Usage{PromptTokens: 42, CompletionTokens: 7}}
	}

	f := newSessionFixture(t, stream)
	f.dispatcher.outputs = func(calls []ai.ToolCall) []ai.ToolOutput {
		return []ai.ToolOutput{
			{CallID: "call_a", Output: "Error: unknown tool function"},
			{CallID: "call_b", Output: "result text"},
		}
	}
	group := f.createGroup(t, &domain.ChatGroup{
		UserID: 1, Name: "test", Model: "modelA", Memory: true,
		ThreadID: "th_1", AssistantID: "as_1",
	})

	tool := "search"
	result, err := f.service.StreamTurn(context.Background(), 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "look this up",
		Tool:        &tool,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	saved, err := f.msgRepo.FindByID(context.Background(), result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "Checking. Found it.", saved.AIMessage)
	assert.True(t, saved.ToolUse)

	// The nested stream's usage supersedes anything before it.
	assert.Equal(t, 42, saved.PromptTokens)
	assert.Equal(t, 7, saved.CompletionTokens)

	require.Len(t, stream.submitted, 1)
	require.Len(t, f.dispatcher.batches, 1)
	assert.Len(t, f.dispatcher.batches[0], 2)

	require.Len(t, f.provider.startedCfg, 1)
	assert.Equal(t, ai.VariantToolRun, f.provider.startedCfg[0].Variant)
}

func TestEditReplayOverwritesInPlaceAndClearsScores(t *testing.T) {
	stream := newFakeStream(
		ai.Event{Kind: ai.EventDelta, Content: "new answer"},
		ai.Event{Kind: ai.EventCompleted, Usage: &ai.Usage{PromptTokens: 5, CompletionTokens: 2}},
	)
	f := newSessionFixture(t, stream)
	group := f.createGroup(t, &domain.ChatGroup{UserID: 1, Name: "test", Model: "modelA", Memory: false})

	original, err := f.msgRepo.Create(context.Background(), &domain.Message{
		ChatGroupID: group.ID,
		UserMessage: "old prompt",
		AIMessage:   "old answer",
		Accuracy:    8,
		Coherence:   9,
		Relevance:   7,
	})
	require.NoError(t, err)

	result, err := f.service.StreamCompletionTurn(context.Background(), 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "new prompt",
		MessageID:   original.ID,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, original.ID, result.MessageID)

	count, err := f.msgRepo.CountByGroupID(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	saved, err := f.msgRepo.FindByID(context.Background(), original.ID)
	require.NoError(t, err)
	assert.Equal(t, "new prompt", saved.UserMessage)
	assert.Equal(t, "new answer", saved.AIMessage)
	assert.Zero(t, saved.Accuracy)
	assert.Zero(t, saved.Coherence)
	assert.Zero(t, saved.Relevance)
}

func TestTurnConsumesSingleUseAttachment(t *testing.T) {
	stream := newFakeStream(
		ai.Event{Kind: ai.EventDelta, Content: "summary"},
		ai.Event{Kind: ai.EventCompleted, Usage: &ai.Usage{PromptTokens: 1, CompletionTokens: 1}},
	)
	f := newSessionFixture(t, stream)
	group := f.createGroup(t, &domain.ChatGroup{
		UserID: 1, Name: "test", Model: "modelA", Memory: true,
		ThreadID: "th_1", AssistantID: "as_1",
		FileID: "file_1", VectorStoreID: "vs_1", FileName: "notes.pdf",
	})

	result, err := f.service.StreamTurn(context.Background(), 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "summarize the file",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	saved, err := f.msgRepo.FindByID(context.Background(), result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", saved.FileName)
	assert.True(t, saved.ToolUse)

	reloaded, err := f.groupRepo.FindByID(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.FileID)
	assert.Empty(t, reloaded.VectorStoreID)
	assert.Empty(t, reloaded.FileName)

	// Upstream handles are released in the background.
	require.Eventually(t, func() bool {
		return len(f.provider.removedFiles()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "file_1", f.provider.removedFiles()[0])
}

func TestStreamTurnRejectsMemoryMismatch(t *testing.T) {
	f := newSessionFixture(t, newFakeStream())
	group := f.createGroup(t, &domain.ChatGroup{UserID: 1, Name: "test", Model: "modelA", Memory: false})

	_, err := f.service.StreamTurn(context.Background(), 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "hello",
	}, nil)
	require.Error(t, err)

	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeValidation, chatErr.Type)
}

func TestStreamTurnRejectsForeignGroup(t *testing.T) {
	f := newSessionFixture(t, newFakeStream())
	group := f.createGroup(t, &domain.ChatGroup{UserID: 2, Name: "other", Model: "modelA", Memory: true})

	_, err := f.service.StreamTurn(context.Background(), 1, &TurnRequest{
		ChatGroupID: group.ID,
		Prompt:      "hello",
	}, nil)
	require.Error(t, err)

	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeUnauthorized, chatErr.Type)
}

func TestStreamGroupNameSetsDisplayName(t *testing.T) {
	stream := newFakeStream(
		ai.Event{Kind: ai.EventDelta, Content: "\"Weekend Trip "},
		ai.Event{Kind: ai.EventDelta, Content: "Planning\""},
		ai.Event{Kind: ai.EventCompleted},
	)
	f := newSessionFixture(t, stream)
	group := f.createGroup(t, &domain.ChatGroup{UserID: 1, Name: "New Chat", Model: "modelA", Memory: true})

	title, err := f.service.StreamGroupName(context.Background(), 1, group.ID, "help me plan a weekend trip", nil)
	require.NoError(t, err)
	assert.Equal(t, "Weekend Trip Planning", title)

	reloaded, err := f.groupRepo.FindByID(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekend Trip Planning", reloaded.Name)
}
