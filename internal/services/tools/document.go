// File: internal/services/tools/document.go
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/document"
)

// RepositoryDocumentStore executes document tool calls against the
// per-user document repository.
type RepositoryDocumentStore struct {
	repo document.DocumentRepository
}

func NewRepositoryDocumentStore(repo document.DocumentRepository) *RepositoryDocumentStore {
	return &RepositoryDocumentStore{repo: repo}
}

func (s *RepositoryDocumentStore) Execute(ctx context.Context, userID uint, instruction DocumentInstruction, title, content string) (string, error) {
	switch instruction {
	case DocumentCreate:
		if content == "" {
			return "", NewParseError(FuncDocument, "content is required for create", nil)
		}
		_, err := s.repo.Create(ctx, &domain.Document{UserID: userID, Title: title, Content: content})
		if errors.Is(err, document.ErrDuplicateTitle) {
			return "", NewExecutionError(FuncDocument, fmt.Sprintf("document %q already exists", title), err)
		}
		if err != nil {
			return "", NewExecutionError(FuncDocument, "failed to create document", err)
		}
		return fmt.Sprintf("Document %q created.", title), nil

	case DocumentRead:
		doc, err := s.repo.FindByTitle(ctx, userID, title)
		if errors.Is(err, document.ErrDocumentNotFound) {
			return "", NewExecutionError(FuncDocument, fmt.Sprintf("document %q not found", title), err)
		}
		if err != nil {
			return "", NewExecutionError(FuncDocument, "failed to read document", err)
		}
		return doc.Content, nil

	case DocumentAppend:
		if content == "" {
			return "", NewParseError(FuncDocument, "content is required for append", nil)
		}
		doc, err := s.repo.FindByTitle(ctx, userID, title)
		if errors.Is(err, document.ErrDocumentNotFound) {
			return "", NewExecutionError(FuncDocument, fmt.Sprintf("document %q not found", title), err)
		}
		if err != nil {
			return "", NewExecutionError(FuncDocument, "failed to read document", err)
		}
		if doc.Content == "" {
			doc.Content = content
		} else {
			doc.Content += "\n" + content
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return "", NewExecutionError(FuncDocument, "failed to update document", err)
		}
		return fmt.Sprintf("Appended to document %q.", title), nil

	default:
		return "", NewParseError(FuncDocument, fmt.Sprintf("unknown instruction %q", instruction), nil)
	}
}
