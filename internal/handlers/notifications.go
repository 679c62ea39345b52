package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quillforum/backend/internal/notifications"
)

type NotificationHandler struct {
	store *notifications.Store
}

func NewNotificationHandler(store *notifications.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	page, limit := pageParams(c)

	items, pageInfo, err := h.store.List(userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"pagination":    pageInfo,
	})
}

// Count returns the caller's unread notification count. The same number is
// pushed over the realtime channel as a notification_count event; this
// endpoint is the pollable source of truth.
func (h *NotificationHandler) Count(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	unread, err := h.store.UnreadCount(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch unread count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notificationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	if err := h.store.MarkRead(userID, notificationID); err != nil {
		switch {
		case errors.Is(err, notifications.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		case errors.Is(err, notifications.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only mark your own notifications"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead marks every one of the caller's notifications as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.store.MarkAllRead(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}
