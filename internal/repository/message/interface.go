// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/ksamadi/omnichat/internal/domain"
)

// MessageRepository handles message data operations.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByID(ctx context.Context, messageID uint) (*domain.Message, error)
	FindByGroupID(ctx context.Context, groupID uint) ([]domain.Message, error)
	// FindByUserID joins through chat groups, ordered oldest first, for
	// batch evaluation across all of a user's conversations.
	FindByUserID(ctx context.Context, userID uint) ([]domain.Message, error)
	Update(ctx context.Context, message *domain.Message) error
	DeleteByGroupID(ctx context.Context, groupID uint) error
	CountByGroupID(ctx context.Context, groupID uint) (int64, error)
}
