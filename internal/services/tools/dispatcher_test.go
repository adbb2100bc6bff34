// File: internal/services/tools/dispatcher_test.go
package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksamadi/omnichat/internal/services"
	"github.com/ksamadi/omnichat/internal/services/ai"
)

type stubSearch struct {
	result string
	err    error
}

func (s *stubSearch) Execute(ctx context.Context, query string) (string, error) {
	return s.result, s.err
}

type stubDocs struct {
	result string
	err    error
}

func (s *stubDocs) Execute(ctx context.Context, userID uint, instruction DocumentInstruction, title, content string) (string, error) {
	return s.result, s.err
}

func TestExecuteBatchIsolatesFailuresAndOrdersByCallID(t *testing.T) {
	d := NewDispatcher(nil,
		&stubDocs{err: NewExecutionError(FuncDocument, "document \"Notes\" not found", nil)},
		&stubSearch{result: "top results"},
		&services.NoOpLogger{})

	outputs := d.ExecuteBatch(context.Background(), 1, []ai.ToolCall{
		{ID: "call_b", Name: FuncSearch, Arguments: `{"query":"go"}`},
		{ID: "call_a", Name: FuncDocument, Arguments: `{"instruction":"read","title":"Notes"}`},
	})

	require.Len(t, outputs, 2)

	// Outputs come back in call id order regardless of completion order.
	assert.Equal(t, "call_a", outputs[0].CallID)
	assert.Equal(t, "call_b", outputs[1].CallID)

	assert.Contains(t, outputs[0].Output, "Error")
	assert.Contains(t, outputs[0].Output, "not found")
	assert.Equal(t, "top results", outputs[1].Output)
}

func TestExecuteBatchReportsParseFailureAsOutput(t *testing.T) {
	d := NewDispatcher(nil, &stubDocs{}, &stubSearch{}, &services.NoOpLogger{})

	outputs := d.ExecuteBatch(context.Background(), 1, []ai.ToolCall{
		{ID: "call_1", Name: "unknown_tool", Arguments: `{}`},
	})

	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0].Output, "Error")
}

func TestExecuteBatchReportsUnconfiguredTool(t *testing.T) {
	d := NewDispatcher(nil, &stubDocs{}, &stubSearch{}, &services.NoOpLogger{})

	outputs := d.ExecuteBatch(context.Background(), 1, []ai.ToolCall{
		{ID: "call_1", Name: FuncMail, Arguments: `{"instruction":"read","address":"a@b.example"}`},
	})

	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0].Output, "not configured")
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func(ctx context.Context) error {
		attempts++
		return NewParseError(FuncMail, "bad arguments", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryRetriesTransientErrors(t *testing.T) {
	attempts := 0
	cfg := &RetryConfig{MaxAttempts: 3, Delay: 0}
	err := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &ToolError{Type: ErrTypeNetwork, Tool: FuncMail, Message: "timeout"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return errors.New("always failing")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}
