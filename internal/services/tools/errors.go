// File: internal/services/tools/errors.go
package tools

import "fmt"

type ErrorType string

const (
	ErrTypeConfig    ErrorType = "CONFIG"
	ErrTypeParse     ErrorType = "PARSE"
	ErrTypeNetwork   ErrorType = "NETWORK"
	ErrTypeProvider  ErrorType = "PROVIDER"
	ErrTypeRateLimit ErrorType = "RATE_LIMIT"
	ErrTypeExecution ErrorType = "EXECUTION"
)

// ToolError describes a failed tool invocation. Execution failures are
// isolated per call and surfaced to the model as output text.
type ToolError struct {
	Type    ErrorType
	Tool    string
	Code    int
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool %s %s error: %s (caused by: %v)", e.Tool, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("tool %s %s error: %s", e.Tool, e.Type, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

func NewParseError(tool, message string, cause error) *ToolError {
	return &ToolError{Type: ErrTypeParse, Tool: tool, Message: message, Cause: cause}
}

func NewExecutionError(tool, message string, cause error) *ToolError {
	return &ToolError{Type: ErrTypeExecution, Tool: tool, Message: message, Cause: cause}
}
