// File: internal/services/ai/events.go
package ai

import "context"

// EventKind discriminates the events a provider stream can yield.
type EventKind int

const (
	// EventRunCreated carries the cancelable run handle (thread variants).
	EventRunCreated EventKind = iota
	// EventDelta carries one content fragment.
	EventDelta
	// EventRequiresAction carries the tool calls the run is blocked on.
	EventRequiresAction
	// EventCompleted is terminal and carries usage totals when known.
	EventCompleted
	// EventError is terminal.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRunCreated:
		return "run_created"
	case EventDelta:
		return "delta"
	case EventRequiresAction:
		return "requires_action"
	case EventCompleted:
		return "completed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Usage holds token totals from a usage-bearing event.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ToolCall is one requested tool invocation, still unparsed.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolOutput is one tool result keyed by the originating call id.
type ToolOutput struct {
	CallID string
	Output string
}

// Event is one item on a provider stream. Exactly one terminal event
// (EventCompleted or EventError) is emitted before the channel closes,
// unless the stream is cancelled first.
type Event struct {
	Kind      EventKind
	Content   string
	RunID     string
	ToolCalls []ToolCall
	Usage     *Usage
	Err       error
}

// Variant selects the upstream protocol for one stream.
type Variant int

const (
	// VariantStateless is a single-turn completion with no provider-side
	// conversation state.
	VariantStateless Variant = iota
	// VariantThread appends the prompt to a durable thread and runs the
	// assistant against it.
	VariantThread
	// VariantToolRun is a thread run whose assistant configuration
	// declares callable tools; it may emit EventRequiresAction.
	VariantToolRun
)

// ToolDefinition describes one callable function exposed to a run.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// AssistantConfig is the desired provider-side assistant state, pushed
// before a run only when it differs from what is currently stored.
type AssistantConfig struct {
	Model          string
	Instructions   string
	Functions      []ToolDefinition
	FileSearch     bool
	VectorStoreIDs []string
}

// StreamConfig carries everything needed to start one stream.
type StreamConfig struct {
	Variant     Variant
	Model       string
	Prompt      string
	ThreadID    string
	AssistantID string
	// Assistant, when set for thread variants, is synchronized upstream
	// before the run starts.
	Assistant *AssistantConfig
}

// Stream is one live upstream completion. Events are delivered in upstream
// order; the channel is closed after a terminal event or cancellation.
type Stream interface {
	Events() <-chan Event
	// Cancel aborts the upstream run or stream. It is safe to call once
	// the client has disconnected; the events channel will close shortly
	// after.
	Cancel(ctx context.Context) error
	// SubmitToolOutputs resumes a run blocked on EventRequiresAction.
	// It fails with a transition error in any other state.
	SubmitToolOutputs(ctx context.Context, outputs []ToolOutput) error
}
