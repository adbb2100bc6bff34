// File: internal/services/judge/errors.go
package judge

import "fmt"

type ErrorType string

const (
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeProvider    ErrorType = "PROVIDER"
	ErrTypeParse       ErrorType = "PARSE"
	ErrTypePersistence ErrorType = "PERSISTENCE"
)

type JudgeError struct {
	Type      ErrorType
	Operation string
	Message   string
	MessageID uint
	Cause     error
}

func (e *JudgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Judge %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Judge %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *JudgeError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *JudgeError {
	return &JudgeError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewProviderError(operation, msg string, cause error) *JudgeError {
	return &JudgeError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

func NewParseError(operation, msg string, cause error) *JudgeError {
	return &JudgeError{Type: ErrTypeParse, Operation: operation, Message: msg, Cause: cause}
}
