// File: internal/services/tools/interface.go
package tools

import "context"

// MailProvider is the mail collaborator capability.
type MailProvider interface {
	Execute(ctx context.Context, instruction MailInstruction, address, content string) (string, error)
	HealthCheck(ctx context.Context) error
}

// DocumentStore is the document collaborator capability, scoped per user.
type DocumentStore interface {
	Execute(ctx context.Context, userID uint, instruction DocumentInstruction, title, content string) (string, error)
}

// SearchProvider is the web search collaborator capability.
type SearchProvider interface {
	Execute(ctx context.Context, query string) (string, error)
}
