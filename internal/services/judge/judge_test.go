// File: internal/services/judge/judge_test.go
package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/chatgroup"
	"github.com/ksamadi/omnichat/internal/repository/message"
	"github.com/ksamadi/omnichat/internal/services"
	"github.com/ksamadi/omnichat/internal/services/pinecone"
)

type stubCompletion struct {
	reply      string
	err        error
	embedErr   error
	calls      int
	embedCalls int
}

func (s *stubCompletion) GetCompletion(ctx context.Context, model, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func (s *stubCompletion) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.embedCalls++
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return []float32{0.5}, nil
}

type stubFacts struct {
	facts []pinecone.Fact
	err   error
}

func (s *stubFacts) QuerySimilar(ctx context.Context, embedding []float32, topK int) ([]pinecone.Fact, error) {
	return s.facts, s.err
}

type judgeFixture struct {
	service    *Service
	msgRepo    message.MessageRepository
	completion *stubCompletion
	db         *gorm.DB
}

func newJudgeFixture(t *testing.T, completion *stubCompletion, facts *stubFacts) *judgeFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.ChatGroup{}, &domain.Message{}))

	msgRepo := message.NewMessageRepository(db)
	cfg := DefaultConfig()
	cfg.CallDelay = 0

	service, err := NewService(cfg, msgRepo, chatgroup.NewChatGroupRepository(db), completion, facts, &services.NoOpLogger{})
	require.NoError(t, err)

	return &judgeFixture{service: service, msgRepo: msgRepo, completion: completion, db: db}
}

func (f *judgeFixture) createMessage(t *testing.T, msg *domain.Message) *domain.Message {
	t.Helper()
	created, err := f.msgRepo.Create(context.Background(), msg)
	require.NoError(t, err)
	return created
}

func (f *judgeFixture) createGroup(t *testing.T, userID uint) *domain.ChatGroup {
	t.Helper()
	group := &domain.ChatGroup{UserID: userID, Name: "test", Model: "modelA"}
	require.NoError(t, f.db.Create(group).Error)
	return group
}

func TestJudgeMessageRecordsScores(t *testing.T) {
	completion := &stubCompletion{reply: `{"accuracy": 8, "coherence": 9, "relevance": 7}`}
	f := newJudgeFixture(t, completion, &stubFacts{facts: []pinecone.Fact{{ID: "f1", Text: "reference"}}})
	group := f.createGroup(t, 1)
	msg := f.createMessage(t, &domain.Message{ChatGroupID: group.ID, UserMessage: "q", AIMessage: "a"})

	scores, err := f.service.JudgeMessage(context.Background(), 1, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, scores.Accuracy)
	assert.Equal(t, 9, scores.Coherence)
	assert.Equal(t, 7, scores.Relevance)

	saved, err := f.msgRepo.FindByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, saved.Judged())
	assert.Equal(t, 8, saved.Accuracy)
}

func TestJudgeMessageIsIdempotent(t *testing.T) {
	completion := &stubCompletion{reply: `{"accuracy": 3, "coherence": 3, "relevance": 3}`}
	f := newJudgeFixture(t, completion, &stubFacts{})
	group := f.createGroup(t, 1)
	msg := f.createMessage(t, &domain.Message{
		ChatGroupID: group.ID, UserMessage: "q", AIMessage: "a",
		Accuracy: 9, Coherence: 8, Relevance: 10,
	})

	_, err := f.service.JudgeMessage(context.Background(), 1, msg.ID)
	require.ErrorIs(t, err, ErrAlreadyJudged)
	assert.Zero(t, completion.calls)

	saved, err := f.msgRepo.FindByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, saved.Accuracy)
	assert.Equal(t, 8, saved.Coherence)
	assert.Equal(t, 10, saved.Relevance)
}

func TestJudgeMessageClampsAndExtractsScores(t *testing.T) {
	completion := &stubCompletion{reply: "Here you go:\n```json\n{\"accuracy\": 14, \"coherence\": 0, \"relevance\": 5}\n```"}
	f := newJudgeFixture(t, completion, &stubFacts{})
	group := f.createGroup(t, 1)
	msg := f.createMessage(t, &domain.Message{ChatGroupID: group.ID, UserMessage: "q", AIMessage: "a"})

	scores, err := f.service.JudgeMessage(context.Background(), 1, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, scores.Accuracy)
	assert.Equal(t, 1, scores.Coherence)
	assert.Equal(t, 5, scores.Relevance)
}

func TestJudgeMessageDegradesWhenFactLookupFails(t *testing.T) {
	completion := &stubCompletion{reply: `{"accuracy": 5, "coherence": 5, "relevance": 5}`}
	f := newJudgeFixture(t, completion, &stubFacts{err: errors.New("index down")})
	group := f.createGroup(t, 1)
	msg := f.createMessage(t, &domain.Message{ChatGroupID: group.ID, UserMessage: "q", AIMessage: "a"})

	scores, err := f.service.JudgeMessage(context.Background(), 1, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, scores.Accuracy)
}

func TestJudgeMessageRejectsForeignUsersMessage(t *testing.T) {
	completion := &stubCompletion{reply: `{"accuracy": 6, "coherence": 6, "relevance": 6}`}
	f := newJudgeFixture(t, completion, &stubFacts{})
	theirs := f.createGroup(t, 2)
	msg := f.createMessage(t, &domain.Message{ChatGroupID: theirs.ID, UserMessage: "q", AIMessage: "a"})

	_, err := f.service.JudgeMessage(context.Background(), 1, msg.ID)
	require.Error(t, err)

	var judgeErr *JudgeError
	require.ErrorAs(t, err, &judgeErr)
	assert.Equal(t, ErrTypeNotFound, judgeErr.Type)
	assert.Zero(t, completion.calls)

	saved, err := f.msgRepo.FindByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.False(t, saved.Judged())
}

func TestJudgeAllCountsJudgedSkippedFailed(t *testing.T) {
	completion := &stubCompletion{reply: `{"accuracy": 6, "coherence": 6, "relevance": 6}`}
	f := newJudgeFixture(t, completion, &stubFacts{})
	group := f.createGroup(t, 1)

	f.createMessage(t, &domain.Message{ChatGroupID: group.ID, UserMessage: "q1", AIMessage: "a1"})
	f.createMessage(t, &domain.Message{ChatGroupID: group.ID, UserMessage: "q2", AIMessage: "a2", Accuracy: 7, Coherence: 7, Relevance: 7})
	f.createMessage(t, &domain.Message{ChatGroupID: group.ID, UserMessage: "q3", AIMessage: ""})

	report, err := f.service.JudgeAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Judged)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Failed)
}

func TestJudgeAllIgnoresOtherUsersMessages(t *testing.T) {
	completion := &stubCompletion{reply: `{"accuracy": 6, "coherence": 6, "relevance": 6}`}
	f := newJudgeFixture(t, completion, &stubFacts{})
	mine := f.createGroup(t, 1)
	theirs := f.createGroup(t, 2)

	f.createMessage(t, &domain.Message{ChatGroupID: mine.ID, UserMessage: "q", AIMessage: "a"})
	f.createMessage(t, &domain.Message{ChatGroupID: theirs.ID, UserMessage: "q", AIMessage: "a"})

	report, err := f.service.JudgeAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Judged)
}
