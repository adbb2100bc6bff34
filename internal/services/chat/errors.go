// File: internal/services/chat/errors.go
package chat

import "fmt"

type ErrorType string

const (
	ErrTypeConfig       ErrorType = "CONFIG"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeStreaming    ErrorType = "STREAMING"
	ErrTypeProvider     ErrorType = "PROVIDER"
	ErrTypePersistence  ErrorType = "PERSISTENCE"
	ErrTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
)

type ChatError struct {
	Type        ErrorType
	Operation   string
	Message     string
	ChatGroupID uint
	UserID      uint
	Cause       error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewStreamingError(operation, msg string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeStreaming, Operation: operation, Message: msg, Cause: cause}
}

func NewProviderError(operation, msg string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

func NewPersistenceError(operation, msg string, cause error) *ChatError {
	return &ChatError{Type: ErrTypePersistence, Operation: operation, Message: msg, Cause: cause}
}

func NewUnauthorizedError(userID, chatGroupID uint) *ChatError {
	return &ChatError{
		Type:        ErrTypeUnauthorized,
		Operation:   "authorization",
		Message:     "chat group not found or unauthorized",
		UserID:      userID,
		ChatGroupID: chatGroupID,
	}
}
