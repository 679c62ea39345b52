package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quillforum/backend/internal/comments"
	"github.com/quillforum/backend/internal/middleware"
	"github.com/quillforum/backend/internal/models"
	"github.com/quillforum/backend/internal/notifications"
	"github.com/quillforum/backend/internal/votes"
)

type CommentHandler struct {
	db         *gorm.DB
	assembler  *comments.Assembler
	votes      *votes.Store
	dispatcher *notifications.Dispatcher
}

func NewCommentHandler(db *gorm.DB, assembler *comments.Assembler, voteStore *votes.Store, dispatcher *notifications.Dispatcher) *CommentHandler {
	return &CommentHandler{db: db, assembler: assembler, votes: voteStore, dispatcher: dispatcher}
}

// GetComments returns one page of a post's comment tree: top-level comments
// newest first, each with all of its replies oldest first, every node
// annotated with tallies and the viewer's own vote.
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	page, limit := pageParams(c)

	nodes, pageInfo, err := h.assembler.List(postID, page, limit, middleware.OptionalUserID(c))
	if err != nil {
		if errors.Is(err, comments.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments":   nodes,
		"pagination": pageInfo,
	})
}

// CreateComment creates a comment or reply on a post and notifies the post
// owner (or, for replies, the parent comment's owner).
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input struct {
		Body            string `json:"body" binding:"required"`
		ParentCommentID *int   `json:"parent_comment_id"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	comment, err := h.assembler.Create(postID, authorID, input.Body, input.ParentCommentID)
	if err != nil {
		switch {
		case errors.Is(err, comments.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		case errors.Is(err, comments.ErrParentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Parent comment not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		}
		return
	}

	h.notifyCommentCreated(comment)

	c.JSON(http.StatusCreated, comment)
}

// notifyCommentCreated fans out the notifications a new comment produces.
// The comment row is already committed; failures here are logged only.
func (h *CommentHandler) notifyCommentCreated(comment models.Comment) {
	actor := comment.User

	if comment.ParentCommentID != nil {
		var parent models.Comment
		if err := h.db.First(&parent, *comment.ParentCommentID).Error; err == nil {
			if err := h.dispatcher.CommentReplied(actor, parent, comment); err != nil {
				log.Printf("reply notification failed: %v", err)
			}
		}
	} else {
		var post models.Post
		if err := h.db.First(&post, comment.PostID).Error; err == nil {
			if err := h.dispatcher.PostCommented(actor, post, comment); err != nil {
				log.Printf("comment notification failed: %v", err)
			}
		}
	}

	dispatchMentions(h.db, h.dispatcher, actor, comment.Body, &comment.PostID, &comment.ID)
}

// VoteComment applies the three-way vote toggle to a comment. Whether the
// comment's author is notified is a deployment choice (NOTIFY_COMMENT_VOTES).
func (h *CommentHandler) VoteComment(c *gin.Context) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	commentID, err := strconv.Atoi(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	var input struct {
		Direction string `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Direction must be upvote or downvote"})
		return
	}

	direction, err := votes.ParseDirection(input.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Direction must be upvote or downvote"})
		return
	}

	outcome, err := h.votes.Cast(voterID, votes.CommentTarget(commentID), direction)
	if err != nil {
		if errors.Is(err, votes.ErrTargetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	message := "Vote added"
	switch outcome {
	case votes.OutcomeRemoved:
		message = "Vote removed"
	case votes.OutcomeChanged:
		message = "Vote updated"
	}

	if outcome != votes.OutcomeRemoved {
		var comment models.Comment
		var actor models.User
		if err := h.db.First(&comment, commentID).Error; err == nil {
			if err := h.db.First(&actor, voterID).Error; err == nil {
				if err := h.dispatcher.CommentVoted(actor, comment); err != nil {
					log.Printf("comment vote notification failed: %v", err)
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}
