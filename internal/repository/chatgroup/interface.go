// File: internal/repository/chatgroup/interface.go
package chatgroup

import (
	"context"

	"github.com/ksamadi/omnichat/internal/domain"
)

// ChatGroupRepository handles conversation data operations.
type ChatGroupRepository interface {
	Create(ctx context.Context, group *domain.ChatGroup) (*domain.ChatGroup, error)
	FindByID(ctx context.Context, id uint) (*domain.ChatGroup, error)
	FindByUserID(ctx context.Context, userID uint) ([]domain.ChatGroup, error)
	FindMostRecent(ctx context.Context, userID uint) (*domain.ChatGroup, error)
	Update(ctx context.Context, group *domain.ChatGroup) error
	Delete(ctx context.Context, groupID, userID uint) error
	CountByUserID(ctx context.Context, userID uint) (int64, error)
}
