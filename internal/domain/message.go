// File: internal/domain/message.go
package domain

import "time"

// Message is one user/assistant exchange inside a ChatGroup.
//
// AIMessage is mutable: an edit-replay overwrites it in place instead of
// appending a new record. The three judge scores are zero until the
// exchange has been evaluated; once any of them is set the message is
// considered judged and further judging is refused.
type Message struct {
	ID          uint `gorm:"primarykey" json:"id"`
	ChatGroupID uint `gorm:"not null;index" json:"chat_group_id"`

	UserMessage string `gorm:"not null" json:"user_message"`
	AIMessage   string `json:"ai_message"`

	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Model            string `json:"model"`

	FileName string `json:"file_name,omitempty"`
	ToolUse  bool   `json:"tool_use,omitempty"`

	// Judge scores, 1..10. Zero means not yet judged.
	Accuracy  int `json:"accuracy,omitempty"`
	Coherence int `json:"coherence,omitempty"`
	Relevance int `json:"relevance,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Judged reports whether any evaluation score has been recorded.
func (m *Message) Judged() bool {
	return m.Accuracy != 0 || m.Coherence != 0 || m.Relevance != 0
}

// ClearScores resets the judge scores, used when an edit invalidates a
// previous evaluation.
func (m *Message) ClearScores() {
	m.Accuracy = 0
	m.Coherence = 0
	m.Relevance = 0
}
