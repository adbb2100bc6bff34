// File: internal/repository/user/interface.go
package user

import (
	"context"

	"github.com/ksamadi/omnichat/internal/domain"
)

// UserRepository handles account lookups for the auth boundary.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}
