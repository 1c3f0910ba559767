package models

import (
	"time"
)

type Post struct {
	ID        uint      `gorm:"primaryKey;index:idx_posts_feed,priority:2" json:"id"`
	AuthorID  uint      `gorm:"not null;index" json:"authorId"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Points    int       `gorm:"not null;default:0" json:"points"` // Written only by the vote ledger
	CreatedAt time.Time `gorm:"index:idx_posts_feed,priority:1" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// 非数据库字段，用于查询时填充
	TextSnippet string `gorm:"-" json:"textSnippet"`
	TextHTML    string `gorm:"-" json:"textHtml,omitempty"`
	VoteStatus  int    `gorm:"-" json:"voteStatus"` // viewer's vote: 1, -1 or 0
}
