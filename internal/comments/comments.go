package comments

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/quillforum/backend/internal/models"
	"github.com/quillforum/backend/internal/pagination"
	"github.com/quillforum/backend/internal/votes"
)

var (
	ErrPostNotFound   = errors.New("post not found")
	ErrParentNotFound = errors.New("parent comment not found")
)

// Node is one annotated comment in the assembled tree. Top-level nodes carry
// their replies; replies never nest further.
type Node struct {
	ID              int           `json:"id"`
	Body            string        `json:"body"`
	AuthorID        int           `json:"author_id"`
	User            models.User   `json:"user"`
	PostID          int           `json:"post_id"`
	ParentCommentID *int          `json:"parent_comment_id,omitempty"`
	Upvotes         int           `json:"upvotes"`
	Downvotes       int           `json:"downvotes"`
	TotalVotes      int           `json:"totalVotes"`
	UserVote        *string       `json:"userVote"`
	Replies         []Node        `json:"replies"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Assembler builds the two-level comment tree for a post and owns comment
// creation. Vote annotation goes through the ledger's batch resolver.
type Assembler struct {
	db    *gorm.DB
	votes *votes.Store
}

func NewAssembler(db *gorm.DB, voteStore *votes.Store) *Assembler {
	return &Assembler{db: db, votes: voteStore}
}

// List returns one page of top-level comments (newest thread first) with all
// of their replies (oldest first). Pagination counts top-level comments only;
// replies under a visible thread are always returned in full.
func (a *Assembler) List(postID, page, limit int, viewerID *int) ([]Node, pagination.Page, error) {
	var postCount int64
	if err := a.db.Model(&models.Post{}).Where("id = ?", postID).Count(&postCount).Error; err != nil {
		return nil, pagination.Page{}, err
	}
	if postCount == 0 {
		return nil, pagination.Page{}, ErrPostNotFound
	}

	var total int64
	err := a.db.Model(&models.Comment{}).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Count(&total).Error
	if err != nil {
		return nil, pagination.Page{}, err
	}

	var topLevel []models.Comment
	err = a.db.Preload("User").
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&topLevel).Error
	if err != nil {
		return nil, pagination.Page{}, err
	}

	topIDs := make([]int, 0, len(topLevel))
	for _, c := range topLevel {
		topIDs = append(topIDs, c.ID)
	}

	var replies []models.Comment
	if len(topIDs) > 0 {
		err = a.db.Preload("User").
			Where("parent_comment_id IN ?", topIDs).
			Order("created_at asc").
			Find(&replies).Error
		if err != nil {
			return nil, pagination.Page{}, err
		}
	}

	targets := make([]votes.TargetRef, 0, len(topLevel)+len(replies))
	for _, c := range topLevel {
		targets = append(targets, votes.CommentTarget(c.ID))
	}
	for _, r := range replies {
		targets = append(targets, votes.CommentTarget(r.ID))
	}

	tallies, err := a.votes.TallyBatch(targets, viewerID)
	if err != nil {
		return nil, pagination.Page{}, err
	}

	repliesByParent := make(map[int][]Node)
	for _, r := range replies {
		node := newNode(r, tallies[votes.CommentTarget(r.ID)])
		repliesByParent[*r.ParentCommentID] = append(repliesByParent[*r.ParentCommentID], node)
	}

	nodes := make([]Node, 0, len(topLevel))
	for _, c := range topLevel {
		node := newNode(c, tallies[votes.CommentTarget(c.ID)])
		if children, ok := repliesByParent[c.ID]; ok {
			node.Replies = children
		}
		nodes = append(nodes, node)
	}

	return nodes, pagination.New(page, limit, total), nil
}

func newNode(c models.Comment, snap votes.Snapshot) Node {
	node := Node{
		ID:              c.ID,
		Body:            c.Body,
		AuthorID:        c.AuthorID,
		User:            c.User,
		PostID:          c.PostID,
		ParentCommentID: c.ParentCommentID,
		Upvotes:         snap.Upvotes,
		Downvotes:       snap.Downvotes,
		TotalVotes:      snap.Net,
		Replies:         []Node{},
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if snap.ViewerVote != nil {
		vote := snap.ViewerVote.String()
		node.UserVote = &vote
	}
	return node
}

// Create inserts a comment. A reply to a reply is reparented to the nearest
// top-level ancestor so the stored tree stays two levels deep.
func (a *Assembler) Create(postID, authorID int, body string, parentID *int) (models.Comment, error) {
	var postCount int64
	if err := a.db.Model(&models.Post{}).Where("id = ?", postID).Count(&postCount).Error; err != nil {
		return models.Comment{}, err
	}
	if postCount == 0 {
		return models.Comment{}, ErrPostNotFound
	}

	if parentID != nil {
		var parent models.Comment
		if err := a.db.First(&parent, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Comment{}, ErrParentNotFound
			}
			return models.Comment{}, err
		}
		if parent.PostID != postID {
			return models.Comment{}, ErrParentNotFound
		}
		if parent.ParentCommentID != nil {
			parentID = parent.ParentCommentID
		}
	}

	comment := models.Comment{
		Body:            body,
		AuthorID:        authorID,
		PostID:          postID,
		ParentCommentID: parentID,
	}
	if err := a.db.Create(&comment).Error; err != nil {
		return models.Comment{}, err
	}

	if err := a.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}
