package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quillforum/backend/internal/middleware"
	"github.com/quillforum/backend/internal/models"
	"github.com/quillforum/backend/internal/notifications"
	"github.com/quillforum/backend/internal/votes"
)

type PostHandler struct {
	db         *gorm.DB
	votes      *votes.Store
	dispatcher *notifications.Dispatcher
}

func NewPostHandler(db *gorm.DB, voteStore *votes.Store, dispatcher *notifications.Dispatcher) *PostHandler {
	return &PostHandler{db: db, votes: voteStore, dispatcher: dispatcher}
}

func postResponse(post models.Post, snap votes.Snapshot) gin.H {
	var userVote *string
	if snap.ViewerVote != nil {
		vote := snap.ViewerVote.String()
		userVote = &vote
	}
	return gin.H{
		"id":         post.ID,
		"title":      post.Title,
		"body":       post.Body,
		"author_id":  post.AuthorID,
		"user":       post.User,
		"upvotes":    snap.Upvotes,
		"downvotes":  snap.Downvotes,
		"totalVotes": snap.Net,
		"userVote":   userVote,
		"created_at": post.CreatedAt,
		"updated_at": post.UpdatedAt,
	}
}

// GetPosts returns all posts, newest first, with vote tallies resolved in one
// batch for the whole page.
func (h *PostHandler) GetPosts(c *gin.Context) {
	var posts []models.Post

	if err := h.db.Preload("User").Order("created_at desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	targets := make([]votes.TargetRef, 0, len(posts))
	for _, post := range posts {
		targets = append(targets, votes.PostTarget(post.ID))
	}

	tallies, err := h.votes.TallyBatch(targets, middleware.OptionalUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	responses := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		responses = append(responses, postResponse(post, tallies[votes.PostTarget(post.ID)]))
	}

	c.JSON(http.StatusOK, responses)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	postID := c.Param("id")
	var post models.Post

	if err := h.db.Preload("User").First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	snap, err := h.votes.Tally(votes.PostTarget(post.ID), middleware.OptionalUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	c.JSON(http.StatusOK, postResponse(post, snap))
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	post := models.Post{
		Title:    input.Title,
		Body:     input.Body,
		AuthorID: authorID,
	}

	if err := h.db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	h.db.Preload("User").First(&post, post.ID)

	dispatchMentions(h.db, h.dispatcher, post.User, input.Title+" "+input.Body, &post.ID, nil)

	c.JSON(http.StatusCreated, post)
}

// VotePost applies the three-way vote toggle to a post and notifies the post
// owner on Added and Changed outcomes (never on Removed).
func (h *PostHandler) VotePost(c *gin.Context) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
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

	outcome, err := h.votes.Cast(voterID, votes.PostTarget(postID), direction)
	if err != nil {
		if errors.Is(err, votes.ErrTargetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
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

	// Retractions never notify; the vote is already committed, so a
	// notification failure is logged, not surfaced.
	if outcome != votes.OutcomeRemoved {
		var post models.Post
		var actor models.User
		if err := h.db.First(&post, postID).Error; err == nil {
			if err := h.db.First(&actor, voterID).Error; err == nil {
				if err := h.dispatcher.PostVoted(actor, post); err != nil {
					log.Printf("post vote notification failed: %v", err)
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}
