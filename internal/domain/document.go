// File: internal/domain/document.go
package domain

import "time"

// Document is a user-owned note manipulated by the document tool
// (create, read, append). Titles are unique per user.
type Document struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	UserID    uint   `gorm:"not null;index:idx_doc_user_title,unique" json:"user_id"`
	Title     string `gorm:"not null;index:idx_doc_user_title,unique" json:"title"`
	Content   string `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
