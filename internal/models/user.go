package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"` // Hash
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicFor returns a copy of u safe to show to viewerID.
// Email is only visible to its owner.
func (u User) PublicFor(viewerID uint) User {
	if viewerID == 0 || viewerID != u.ID {
		u.Email = ""
	}
	return u
}
