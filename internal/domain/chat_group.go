// File: internal/domain/chat_group.go
package domain

import "time"

// ChatGroup is one conversation and its upstream configuration.
//
// ThreadID and AssistantID are opaque provider handles. They are set when
// the group is created with Memory enabled and stay empty for the whole
// lifetime of a stateless group; the orchestrator relies on that invariant
// when selecting the provider variant.
type ChatGroup struct {
	ID     uint `gorm:"primarykey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	Name   string `json:"name"`

	// Provider-side conversation state, present iff Memory is true.
	ThreadID    string `json:"-"`
	AssistantID string `json:"-"`

	Model  string `json:"model"`
	Memory bool   `json:"memory"`

	// Assistant holds the persona text installed as run instructions.
	// Empty means no persona.
	Assistant string `json:"assistant"`

	// Tool names the attached tool mode: "", "mail", "document" or "search".
	Tool string `json:"tool"`

	// Single-use attachment handles. Consumed and cleared by the first
	// turn that runs after the attachment.
	FileID        string `json:"-"`
	VectorStoreID string `json:"-"`
	FileName      string `json:"file_name"`

	Messages []Message `gorm:"foreignKey:ChatGroupID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAttachment reports whether a consumable file is attached.
func (g *ChatGroup) HasAttachment() bool {
	return g.FileID != "" || g.VectorStoreID != ""
}

// ToolEnabled reports whether the next turn must run tool-augmented.
// An attached file forces tool-capable configuration even when no tool
// mode is selected.
func (g *ChatGroup) ToolEnabled() bool {
	return g.Tool != "" || g.HasAttachment()
}
