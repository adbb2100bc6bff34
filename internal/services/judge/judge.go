// File: internal/services/judge/judge.go
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/chatgroup"
	"github.com/ksamadi/omnichat/internal/repository/message"
	"github.com/ksamadi/omnichat/internal/services/pinecone"
)

// ErrAlreadyJudged reports the judge-once refusal: a message with any
// recorded score is never re-evaluated.
var ErrAlreadyJudged = errors.New("message already judged")

// CompletionProvider defines the AI capabilities the judge needs.
type CompletionProvider interface {
	GetCompletion(ctx context.Context, model, prompt string) (string, error)
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// FactProvider retrieves reference snippets for grounding the
// accuracy score.
type FactProvider interface {
	QuerySimilar(ctx context.Context, embedding []float32, topK int) ([]pinecone.Fact, error)
}

// Logger interface for dependency injection
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Scores holds one evaluation result, each value in 1..10.
type Scores struct {
	Accuracy  int `json:"accuracy"`
	Coherence int `json:"coherence"`
	Relevance int `json:"relevance"`
}

// Service scores persisted exchanges for accuracy, coherence and
// relevance.
type Service struct {
	config        *Config
	messageRepo   message.MessageRepository
	chatGroupRepo chatgroup.ChatGroupRepository
	provider      CompletionProvider
	facts         FactProvider
	logger        Logger
}

func NewService(
	config *Config,
	messageRepo message.MessageRepository,
	chatGroupRepo chatgroup.ChatGroupRepository,
	provider CompletionProvider,
	facts FactProvider,
	logger Logger,
) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, &JudgeError{Type: ErrTypeConfig, Operation: "new_service", Message: err.Error()}
	}
	return &Service{
		config:        config,
		messageRepo:   messageRepo,
		chatGroupRepo: chatGroupRepo,
		provider:      provider,
		facts:         facts,
		logger:        logger,
	}, nil
}

// JudgeMessage evaluates one persisted exchange and records its scores.
// The message must belong to one of the user's chat groups. Returns
// ErrAlreadyJudged without touching anything when any score is already
// set.
func (s *Service) JudgeMessage(ctx context.Context, userID, messageID uint) (*Scores, error) {
	if messageID == 0 {
		return nil, NewValidationError("judge_message", "message id is required")
	}
	if userID == 0 {
		return nil, NewValidationError("judge_message", "user id is required")
	}

	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, &JudgeError{Type: ErrTypeNotFound, Operation: "judge_message", Message: "message not found", MessageID: messageID, Cause: err}
	}
	group, err := s.chatGroupRepo.FindByID(ctx, msg.ChatGroupID)
	if err != nil || group.UserID != userID {
		// Foreign messages are indistinguishable from missing ones.
		return nil, &JudgeError{Type: ErrTypeNotFound, Operation: "judge_message", Message: "message not found", MessageID: messageID, Cause: err}
	}
	if msg.Judged() {
		s.logger.Debug("message already judged", "message_id", messageID)
		return nil, ErrAlreadyJudged
	}
	if msg.AIMessage == "" {
		return nil, NewValidationError("judge_message", "message has no assistant reply to evaluate")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	facts := s.lookupFacts(ctx, msg)
	scores, err := s.score(ctx, msg, facts)
	if err != nil {
		return nil, err
	}

	msg.Accuracy = scores.Accuracy
	msg.Coherence = scores.Coherence
	msg.Relevance = scores.Relevance
	if err := s.messageRepo.Update(ctx, msg); err != nil {
		return nil, &JudgeError{Type: ErrTypePersistence, Operation: "judge_message", Message: "failed to save scores", MessageID: messageID, Cause: err}
	}

	s.logger.Info("message judged",
		"message_id", messageID,
		"accuracy", scores.Accuracy,
		"coherence", scores.Coherence,
		"relevance", scores.Relevance)
	return scores, nil
}

// lookupFacts retrieves reference snippets similar to the exchange.
// Retrieval failure degrades to an unaided evaluation rather than
// failing the judge call.
func (s *Service) lookupFacts(ctx context.Context, msg *domain.Message) []pinecone.Fact {
	embedding, err := s.provider.CreateEmbedding(ctx, msg.UserMessage+"\n"+msg.AIMessage)
	if err != nil {
		s.logger.Warn("embedding for fact lookup failed", "message_id", msg.ID, "error", err.Error())
		return nil
	}
	facts, err := s.facts.QuerySimilar(ctx, embedding, s.config.FactTopK)
	if err != nil {
		s.logger.Warn("fact lookup failed", "message_id", msg.ID, "error", err.Error())
		return nil
	}
	return facts
}

func (s *Service) score(ctx context.Context, msg *domain.Message, facts []pinecone.Fact) (*Scores, error) {
	reply, err := s.provider.GetCompletion(ctx, s.config.Model, scoringPrompt(msg, facts))
	if err != nil {
		return nil, NewProviderError("score", "scoring completion failed", err)
	}

	scores, err := parseScores(reply)
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func scoringPrompt(msg *domain.Message, facts []pinecone.Fact) string {
	var b strings.Builder
	b.WriteString("You are an impartial evaluator. Score the assistant answer below ")
	b.WriteString("on three dimensions, each an integer from 1 to 10:\n")
	b.WriteString("- accuracy: factual correctness\n")
	b.WriteString("- coherence: clarity and internal consistency\n")
	b.WriteString("- relevance: how directly it addresses the question\n\n")

	if len(facts) > 0 {
		b.WriteString("Reference material:\n")
		for i, fact := range facts {
			if fact.Text == "" {
				continue
			}
			fmt.Fprintf(&b, "[%d] %s\n", i+1, fact.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question:\n%s\n\nAssistant answer:\n%s\n\n", msg.UserMessage, msg.AIMessage)
	b.WriteString(`Respond with only a JSON object: {"accuracy": n, "coherence": n, "relevance": n}`)
	return b.String()
}

// parseScores extracts the JSON object from the model reply. Models
// occasionally wrap it in prose or code fences, so parsing starts at
// the first brace and ends at the last.
func parseScores(reply string) (*Scores, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, NewParseError("parse_scores", "no JSON object in scoring reply", nil)
	}

	var scores Scores
	if err := json.Unmarshal([]byte(reply[start:end+1]), &scores); err != nil {
		return nil, NewParseError("parse_scores", "malformed scoring reply", err)
	}

	scores.Accuracy = clampScore(scores.Accuracy)
	scores.Coherence = clampScore(scores.Coherence)
	scores.Relevance = clampScore(scores.Relevance)
	return &scores, nil
}

func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
