// File: internal/services/tools/dispatcher.go
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ksamadi/omnichat/internal/services/ai"
)

// Logger interface for dependency injection
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Dispatcher executes a batch of requested tool calls against the
// registered collaborators. Every call produces exactly one output, in
// call id order; a failed call yields its error text as the output so
// the run can always resume.
type Dispatcher struct {
	mail     MailProvider
	document DocumentStore
	search   SearchProvider
	logger   Logger
}

func NewDispatcher(mail MailProvider, document DocumentStore, search SearchProvider, logger Logger) *Dispatcher {
	return &Dispatcher{
		mail:     mail,
		document: document,
		search:   search,
		logger:   logger,
	}
}

// ExecuteBatch runs all requested calls concurrently and returns one
// output per call. Execution failures never abort the batch.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, userID uint, calls []ai.ToolCall) []ai.ToolOutput {
	outputs := make([]ai.ToolOutput, 0, len(calls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, call := range calls {
		call := call
		g.Go(func() error {
			output := d.executeOne(gctx, userID, call)
			mu.Lock()
			outputs = append(outputs, output)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].CallID < outputs[j].CallID
	})
	return outputs
}

func (d *Dispatcher) executeOne(ctx context.Context, userID uint, call ai.ToolCall) ai.ToolOutput {
	result, err := d.dispatch(ctx, userID, call)
	if err != nil {
		d.logger.Warn("tool call failed", "call_id", call.ID, "function", call.Name, "error", err.Error())
		return ai.ToolOutput{
			CallID: call.ID,
			Output: fmt.Sprintf("Error: %v", err),
		}
	}
	d.logger.Debug("tool call completed", "call_id", call.ID, "function", call.Name)
	return ai.ToolOutput{CallID: call.ID, Output: result}
}

func (d *Dispatcher) dispatch(ctx context.Context, userID uint, call ai.ToolCall) (string, error) {
	invocation, err := Parse(call)
	if err != nil {
		return "", err
	}

	switch inv := invocation.(type) {
	case MailInvocation:
		if d.mail == nil {
			return "", NewExecutionError(FuncMail, "mail tool is not configured", nil)
		}
		return d.mail.Execute(ctx, inv.Instruction, inv.Address, inv.Content)
	case DocumentInvocation:
		if d.document == nil {
			return "", NewExecutionError(FuncDocument, "document tool is not configured", nil)
		}
		return d.document.Execute(ctx, userID, inv.Instruction, inv.Title, inv.Content)
	case SearchInvocation:
		if d.search == nil {
			return "", NewExecutionError(FuncSearch, "search tool is not configured", nil)
		}
		return d.search.Execute(ctx, inv.Query)
	default:
		return "", NewParseError(call.Name, "unhandled invocation type", nil)
	}
}
