package notifications

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quillforum/backend/internal/models"
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

	require.NoError(t, db.AutoMigrate(&models.Notification{}))

	return db
}

func TestRecordAndList(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	actor := 2

	first, err := store.Record(1, &actor, models.NotificationVote, "voted on your post", nil, nil)
	require.NoError(t, err)
	assert.False(t, first.IsRead)

	_, err = store.Record(1, &actor, models.NotificationComment, "commented on your post", nil, nil)
	require.NoError(t, err)
	_, err = store.Record(3, nil, models.NotificationSystem, "welcome", nil, nil)
	require.NoError(t, err)

	items, pageInfo, err := store.List(1, 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 2, "only the recipient's rows")
	assert.EqualValues(t, 2, pageInfo.TotalItems)

	for _, item := range items {
		assert.Equal(t, 1, item.RecipientID)
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	first, err := store.Record(1, nil, models.NotificationSystem, "one", nil, nil)
	require.NoError(t, err)
	_, err = store.Record(1, nil, models.NotificationSystem, "two", nil, nil)
	require.NoError(t, err)

	unread, err := store.UnreadCount(1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	require.NoError(t, store.MarkRead(1, first.ID))

	unread, err = store.UnreadCount(1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	// Marking again is a no-op, not an error, and never raises the count
	require.NoError(t, store.MarkRead(1, first.ID))
	unread, err = store.UnreadCount(1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestMarkReadOwnership(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	notification, err := store.Record(1, nil, models.NotificationSystem, "hi", nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, store.MarkRead(2, notification.ID), ErrForbidden)
	assert.ErrorIs(t, store.MarkRead(1, 9999), ErrNotFound)
}

func TestMarkAllRead(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	for i := 0; i < 3; i++ {
		_, err := store.Record(1, nil, models.NotificationSystem, "hi", nil, nil)
		require.NoError(t, err)
	}
	_, err := store.Record(2, nil, models.NotificationSystem, "hi", nil, nil)
	require.NoError(t, err)

	require.NoError(t, store.MarkAllRead(1))

	unread, err := store.UnreadCount(1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unread)

	// Other recipients untouched; repeat is idempotent
	unread, err = store.UnreadCount(2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
	require.NoError(t, store.MarkAllRead(1))
}
