package handlers

import (
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quillforum/backend/internal/comments"
	"github.com/quillforum/backend/internal/config"
	"github.com/quillforum/backend/internal/models"
	"github.com/quillforum/backend/internal/notifications"
	"github.com/quillforum/backend/internal/pagination"
	"github.com/quillforum/backend/internal/votes"
)

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Post         *PostHandler
	Comment      *CommentHandler
	Notification *NotificationHandler
}

// NewHandler wires the stores and the dispatcher once and shares them across
// sub-handlers. The publisher comes in as a constructor argument, never a
// package global, so tests can hand in a fake registry.
func NewHandler(db *gorm.DB, publisher notifications.Publisher, cfg *config.Config) *Handler {
	voteStore := votes.NewStore(db)
	assembler := comments.NewAssembler(db, voteStore)
	notificationStore := notifications.NewStore(db)
	dispatcher := notifications.NewDispatcher(notificationStore, publisher, cfg.NotifyCommentVotes)

	return &Handler{
		Auth:         NewAuthHandler(db),
		Post:         NewPostHandler(db, voteStore, dispatcher),
		Comment:      NewCommentHandler(db, assembler, voteStore, dispatcher),
		Notification: NewNotificationHandler(notificationStore),
	}
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return pagination.Clamp(page, limit, 20, 100)
}

// dispatchMentions notifies every @username named in a body. Unknown
// usernames are skipped; a failed dispatch never fails the request that
// created the content.
func dispatchMentions(db *gorm.DB, dispatcher *notifications.Dispatcher, actor models.User, body string, postID, commentID *int) {
	for _, username := range notifications.ExtractMentions(body) {
		var mentioned models.User
		if err := db.Where("username = ?", username).First(&mentioned).Error; err != nil {
			continue
		}
		if err := dispatcher.Mentioned(actor, mentioned.ID, postID, commentID); err != nil {
			log.Printf("mention notification for %s failed: %v", username, err)
		}
	}
}
