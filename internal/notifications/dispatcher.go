package notifications

import (
	"fmt"
	"log"

	"github.com/quillforum/backend/internal/models"
)

// Publisher delivers an event to every live connection a user holds. Delivery
// is fire-and-forget: no queuing, no replay, no error path. The store remains
// the authoritative record whether or not anyone is connected.
type Publisher interface {
	BroadcastToUser(userID int, event string, payload any)
}

const (
	EventNotification      = "notification"
	EventNotificationCount = "notification_count"
)

// Dispatcher decides whether an action notifies anyone, persists the result,
// and pushes it to the recipient's live connections.
type Dispatcher struct {
	store              *Store
	publisher          Publisher
	notifyCommentVotes bool
}

func NewDispatcher(store *Store, publisher Publisher, notifyCommentVotes bool) *Dispatcher {
	return &Dispatcher{
		store:              store,
		publisher:          publisher,
		notifyCommentVotes: notifyCommentVotes,
	}
}

// Dispatch records and pushes one notification. Users are never notified
// about their own actions; that check lives here and nowhere else.
func (d *Dispatcher) Dispatch(recipientID int, actorID *int, kind models.NotificationKind, message string, postID, commentID *int) error {
	if actorID != nil && *actorID == recipientID {
		return nil
	}

	notification, err := d.store.Record(recipientID, actorID, kind, message, postID, commentID)
	if err != nil {
		return err
	}

	d.push(notification)
	return nil
}

// push sends the notification and a fresh unread count to the recipient's
// live connections. Neither the primary request nor the stored row depends
// on these landing anywhere.
func (d *Dispatcher) push(notification models.Notification) {
	if d.publisher == nil {
		return
	}

	d.publisher.BroadcastToUser(notification.RecipientID, EventNotification, notification)

	unread, err := d.store.UnreadCount(notification.RecipientID)
	if err != nil {
		log.Printf("skipping unread count push for user %d: %v", notification.RecipientID, err)
		return
	}
	d.publisher.BroadcastToUser(notification.RecipientID, EventNotificationCount, map[string]int64{"unread": unread})
}

// PostVoted notifies a post's author about a vote on it.
func (d *Dispatcher) PostVoted(actor models.User, post models.Post) error {
	message := fmt.Sprintf("%s voted on your post %q", actor.Username, post.Title)
	return d.Dispatch(post.AuthorID, &actor.ID, models.NotificationVote, message, &post.ID, nil)
}

// CommentVoted notifies a comment's author about a vote on it, when enabled.
func (d *Dispatcher) CommentVoted(actor models.User, comment models.Comment) error {
	if !d.notifyCommentVotes {
		return nil
	}
	message := fmt.Sprintf("%s voted on your comment", actor.Username)
	return d.Dispatch(comment.AuthorID, &actor.ID, models.NotificationVote, message, &comment.PostID, &comment.ID)
}

// PostCommented notifies a post's author about a new top-level comment.
func (d *Dispatcher) PostCommented(actor models.User, post models.Post, comment models.Comment) error {
	message := fmt.Sprintf("%s commented on your post %q", actor.Username, post.Title)
	return d.Dispatch(post.AuthorID, &actor.ID, models.NotificationComment, message, &post.ID, &comment.ID)
}

// CommentReplied notifies the parent comment's author about a reply.
func (d *Dispatcher) CommentReplied(actor models.User, parent models.Comment, reply models.Comment) error {
	message := fmt.Sprintf("%s replied to your comment", actor.Username)
	return d.Dispatch(parent.AuthorID, &actor.ID, models.NotificationComment, message, &reply.PostID, &reply.ID)
}

// Mentioned notifies a user named with @username in a post or comment body.
func (d *Dispatcher) Mentioned(actor models.User, recipientID int, postID, commentID *int) error {
	message := fmt.Sprintf("%s mentioned you", actor.Username)
	return d.Dispatch(recipientID, &actor.ID, models.NotificationMention, message, postID, commentID)
}
