// File: internal/domain/user.go
package domain

import "time"

// User is the minimal account record the orchestrator needs: an identity
// to own chat groups and a credential for the login boundary.
type User struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
