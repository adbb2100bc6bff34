// File: internal/repository/document/interface.go
package document

import (
	"context"

	"github.com/ksamadi/omnichat/internal/domain"
)

// DocumentRepository backs the document tool collaborator.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) (*domain.Document, error)
	FindByTitle(ctx context.Context, userID uint, title string) (*domain.Document, error)
	Update(ctx context.Context, doc *domain.Document) error
}
