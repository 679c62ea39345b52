package comments

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quillforum/backend/internal/models"
	"github.com/quillforum/backend/internal/votes"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
	))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, author models.User) models.Post {
	t.Helper()
	post := models.Post{Title: "a post", AuthorID: author.ID}
	require.NoError(t, db.Create(&post).Error)
	return post
}

// seedComment pins created_at so ordering assertions are deterministic.
func seedComment(t *testing.T, db *gorm.DB, author models.User, post models.Post, parentID *int, createdAt time.Time) models.Comment {
	t.Helper()
	comment := models.Comment{
		Body:            "a comment",
		AuthorID:        author.ID,
		PostID:          post.ID,
		ParentCommentID: parentID,
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(&comment).Error)
	return comment
}

func newAssembler(db *gorm.DB) *Assembler {
	return NewAssembler(db, votes.NewStore(db))
}

func TestListTreeShape(t *testing.T) {
	db := newTestDB(t)
	a := newAssembler(db)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, author)

	base := time.Now().Add(-time.Hour)
	top1 := seedComment(t, db, author, post, nil, base)
	top2 := seedComment(t, db, author, post, nil, base.Add(time.Minute))
	reply1 := seedComment(t, db, author, post, &top1.ID, base.Add(2*time.Minute))
	reply2 := seedComment(t, db, author, post, &top1.ID, base.Add(3*time.Minute))

	nodes, pageInfo, err := a.List(post.ID, 1, 20, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, 1, pageInfo.CurrentPage)
	assert.Equal(t, 1, pageInfo.TotalPages)
	assert.False(t, pageInfo.HasNext)

	// Newest thread first
	assert.Equal(t, top2.ID, nodes[0].ID)
	assert.Equal(t, top1.ID, nodes[1].ID)

	for _, node := range nodes {
		assert.Nil(t, node.ParentCommentID, "top-level nodes have no parent")
		for _, reply := range node.Replies {
			require.NotNil(t, reply.ParentCommentID)
			assert.Equal(t, node.ID, *reply.ParentCommentID)
			assert.Empty(t, reply.Replies, "replies never nest")
		}
	}

	// Replies in chronological order under their thread
	require.Len(t, nodes[1].Replies, 2)
	assert.Equal(t, reply1.ID, nodes[1].Replies[0].ID)
	assert.Equal(t, reply2.ID, nodes[1].Replies[1].ID)
}

func TestListPaginatesTopLevelOnly(t *testing.T) {
	db := newTestDB(t)
	a := newAssembler(db)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, author)

	base := time.Now().Add(-time.Hour)
	var oldest models.Comment
	for i := 0; i < 5; i++ {
		c := seedComment(t, db, author, post, nil, base.Add(time.Duration(i)*time.Minute))
		if i == 0 {
			oldest = c
		}
	}
	// Replies on the oldest thread must not count toward pagination
	for i := 0; i < 4; i++ {
		seedComment(t, db, author, post, &oldest.ID, base.Add(time.Duration(10+i)*time.Minute))
	}

	nodes, pageInfo, err := a.List(post.ID, 1, 2, nil)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.Equal(t, 3, pageInfo.TotalPages)
	assert.EqualValues(t, 5, pageInfo.TotalItems)
	assert.True(t, pageInfo.HasNext)
	assert.False(t, pageInfo.HasPrev)

	// Last page holds the oldest thread with all replies attached
	nodes, pageInfo, err = a.List(post.ID, 3, 2, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, oldest.ID, nodes[0].ID)
	assert.Len(t, nodes[0].Replies, 4)
	assert.False(t, pageInfo.HasNext)
	assert.True(t, pageInfo.HasPrev)
}

func TestListAnnotatesVotes(t *testing.T) {
	db := newTestDB(t)
	voteStore := votes.NewStore(db)
	a := NewAssembler(db, voteStore)
	author := seedUser(t, db, "author")
	viewer := seedUser(t, db, "viewer")
	other := seedUser(t, db, "other")
	post := seedPost(t, db, author)

	top := seedComment(t, db, author, post, nil, time.Now().Add(-time.Hour))

	_, err := voteStore.Cast(viewer.ID, votes.CommentTarget(top.ID), votes.Up)
	require.NoError(t, err)
	_, err = voteStore.Cast(other.ID, votes.CommentTarget(top.ID), votes.Down)
	require.NoError(t, err)

	nodes, _, err := a.List(post.ID, 1, 20, &viewer.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	assert.Equal(t, 1, nodes[0].Upvotes)
	assert.Equal(t, 1, nodes[0].Downvotes)
	assert.Equal(t, 0, nodes[0].TotalVotes)
	require.NotNil(t, nodes[0].UserVote)
	assert.Equal(t, "upvote", *nodes[0].UserVote)

	// Anonymous viewers get no vote state
	nodes, _, err = a.List(post.ID, 1, 20, nil)
	require.NoError(t, err)
	assert.Nil(t, nodes[0].UserVote)
}

func TestListPostNotFound(t *testing.T) {
	db := newTestDB(t)
	a := newAssembler(db)

	_, _, err := a.List(1234, 1, 20, nil)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestCreateTopLevel(t *testing.T) {
	db := newTestDB(t)
	a := newAssembler(db)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, author)

	comment, err := a.Create(post.ID, author.ID, "hello", nil)
	require.NoError(t, err)
	assert.Nil(t, comment.ParentCommentID)
	assert.Equal(t, "author", comment.User.Username)
}

func TestCreateReplyToReplyIsFlattened(t *testing.T) {
	db := newTestDB(t)
	a := newAssembler(db)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, author)

	top, err := a.Create(post.ID, author.ID, "top", nil)
	require.NoError(t, err)
	reply, err := a.Create(post.ID, author.ID, "reply", &top.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentCommentID)

	// Replying to the reply attaches to the top-level ancestor instead
	deep, err := a.Create(post.ID, author.ID, "deep", &reply.ID)
	require.NoError(t, err)
	require.NotNil(t, deep.ParentCommentID)
	assert.Equal(t, top.ID, *deep.ParentCommentID)
}

func TestCreateParentValidation(t *testing.T) {
	db := newTestDB(t)
	a := newAssembler(db)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, author)
	otherPost := seedPost(t, db, author)

	_, err := a.Create(1234, author.ID, "hello", nil)
	assert.ErrorIs(t, err, ErrPostNotFound)

	missing := 999
	_, err = a.Create(post.ID, author.ID, "hello", &missing)
	assert.ErrorIs(t, err, ErrParentNotFound)

	// Parent must belong to the same post
	top, err := a.Create(otherPost.ID, author.ID, "top", nil)
	require.NoError(t, err)
	_, err = a.Create(post.ID, author.ID, "hello", &top.ID)
	assert.ErrorIs(t, err, ErrParentNotFound)
}
