package models

import (
	"time"
)

const (
	VoteUp   = 1
	VoteDown = -1
)

// Vote is one ledger row. The composite primary key allows a single
// decision per user per post; changing direction updates the row.
type Vote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"postId"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ValidVote(value int) bool {
	return value == VoteUp || value == VoteDown
}
