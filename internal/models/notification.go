package models

import "time"

type NotificationKind string

const (
	NotificationVote    NotificationKind = "vote"
	NotificationComment NotificationKind = "comment"
	NotificationMention NotificationKind = "mention"
	NotificationSystem  NotificationKind = "system"
)

// Notification is the durable, pollable record of an event. The realtime push
// is a copy of this row; nothing is ever delivered only over the socket.
type Notification struct {
	ID          int              `gorm:"primaryKey" json:"id"`
	RecipientID int              `gorm:"not null;index" json:"recipient_id"`
	ActorID     *int             `gorm:"index" json:"actor_id,omitempty"`
	Kind        NotificationKind `gorm:"size:20;not null" json:"kind"`
	Message     string           `gorm:"not null" json:"message"`
	PostID      *int             `json:"post_id,omitempty"`
	CommentID   *int             `json:"comment_id,omitempty"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}
