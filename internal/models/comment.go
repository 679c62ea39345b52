package models

import "time"

// Comment trees are two levels deep: a comment with ParentCommentID == nil is
// top-level, everything else is a reply. Replies to replies are reparented to
// the nearest top-level ancestor at insert time.
type Comment struct {
	ID              int       `gorm:"primaryKey" json:"id"`
	Body            string    `gorm:"not null" json:"body"`
	AuthorID        int       `gorm:"index" json:"author_id"`
	User            User      `gorm:"foreignKey:AuthorID" json:"user"`
	PostID          int       `gorm:"index" json:"post_id"`
	ParentCommentID *int      `gorm:"index" json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
