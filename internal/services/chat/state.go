// File: internal/services/chat/state.go
package chat

import (
	"fmt"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/services/ai"
	"github.com/ksamadi/omnichat/internal/services/tools"
)

// TurnRequest carries the fields of one streamed turn. Optional fields
// use pointers so that "absent" and "explicitly cleared" stay distinct:
// a turn only ever changes the group fields its request actually names.
type TurnRequest struct {
	ChatGroupID uint
	Prompt      string

	// Model switches the group's model when non-empty.
	Model string

	// Assistant installs (or, when set to the empty string, clears) the
	// persona text. Nil leaves the previous persona untouched.
	Assistant *string

	// Tool selects the tool mode ("mail", "document", "search"). Nil
	// keeps the previous mode; empty string clears it.
	Tool *string

	// MessageID triggers edit-replay of an existing message.
	MessageID uint
}

func (r *TurnRequest) Validate() error {
	if r.ChatGroupID == 0 {
		return NewValidationError("turn_request", "chatGroupId is required")
	}
	if r.Prompt == "" {
		return NewValidationError("turn_request", "prompt is required")
	}
	if r.Tool != nil && *r.Tool != "" && !tools.KnownTool(*r.Tool) {
		return NewValidationError("turn_request", fmt.Sprintf("unknown tool %q", *r.Tool))
	}
	return nil
}

// applyTurn folds the request's explicit fields into the group. Memory
// is fixed at group creation and never changes here; everything else
// persists from the previous turn unless the request names it.
func (s *StreamingService) applyTurn(group *domain.ChatGroup, req *TurnRequest) {
	if req.Model != "" {
		group.Model = req.Model
	}
	if group.Model == "" {
		group.Model = s.config.DefaultModel
	}
	if req.Assistant != nil {
		group.Assistant = *req.Assistant
	}
	if req.Tool != nil {
		group.Tool = *req.Tool
	}
}

// runModel picks the model for the coming run. Installing a persona
// switches to the persona-capable tier.
func (s *StreamingService) runModel(group *domain.ChatGroup) string {
	if group.Assistant != "" {
		return s.config.PersonaModel
	}
	return group.Model
}

// assistantConfig builds the desired provider-side assistant state for
// the group. A cleared persona resets instructions to empty so stale
// role-play text never leaks into the next turn.
func (s *StreamingService) assistantConfig(group *domain.ChatGroup) ai.AssistantConfig {
	cfg := ai.AssistantConfig{
		Model:        s.runModel(group),
		Instructions: personaInstructions(group.Assistant),
	}
	if group.Tool != "" {
		cfg.Functions = tools.Definitions(group.Tool)
	}
	if group.HasAttachment() {
		cfg.FileSearch = true
		cfg.VectorStoreIDs = []string{group.VectorStoreID}
	}
	return cfg
}

func personaInstructions(persona string) string {
	if persona == "" {
		return ""
	}
	return fmt.Sprintf(
		"You are role-playing as %s. Stay in character for every reply, "+
			"answer from that perspective, and never reveal that you are "+
			"an AI model following instructions.", persona)
}

// consumeAttachment clears the single-use attachment after the turn
// that ran with it and releases the upstream handles best effort.
func (s *StreamingService) consumeAttachment(group *domain.ChatGroup) (fileID, vectorStoreID string) {
	fileID, vectorStoreID = group.FileID, group.VectorStoreID
	group.FileID = ""
	group.VectorStoreID = ""
	group.FileName = ""
	return fileID, vectorStoreID
}
