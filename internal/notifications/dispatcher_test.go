package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quillforum/backend/internal/models"
)

type recordedEvent struct {
	UserID  int
	Event   string
	Payload any
}

// fakePublisher captures pushes; silentPublisher models a registry with no
// live connections (pushes vanish, nothing fails).
type fakePublisher struct {
	events []recordedEvent
}

func (f *fakePublisher) BroadcastToUser(userID int, event string, payload any) {
	f.events = append(f.events, recordedEvent{UserID: userID, Event: event, Payload: payload})
}

type silentPublisher struct{}

func (silentPublisher) BroadcastToUser(int, string, any) {}

func notificationCount(t *testing.T, db *gorm.DB, recipientID int) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&count).Error)
	return count
}

func TestDispatchPersistsAndPushes(t *testing.T) {
	db := newTestDB(t)
	publisher := &fakePublisher{}
	dispatcher := NewDispatcher(NewStore(db), publisher, false)
	actor := 2

	err := dispatcher.Dispatch(1, &actor, models.NotificationVote, "voted on your post", nil, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 1, notificationCount(t, db, 1))

	// Notification event first, unread count delta second
	require.Len(t, publisher.events, 2)
	assert.Equal(t, 1, publisher.events[0].UserID)
	assert.Equal(t, EventNotification, publisher.events[0].Event)
	notification, ok := publisher.events[0].Payload.(models.Notification)
	require.True(t, ok)
	assert.Equal(t, "voted on your post", notification.Message)

	assert.Equal(t, EventNotificationCount, publisher.events[1].Event)
	assert.Equal(t, map[string]int64{"unread": 1}, publisher.events[1].Payload)
}

func TestDispatchSuppressesSelfActions(t *testing.T) {
	db := newTestDB(t)
	publisher := &fakePublisher{}
	dispatcher := NewDispatcher(NewStore(db), publisher, true)
	actor := 1

	kinds := []models.NotificationKind{
		models.NotificationVote,
		models.NotificationComment,
		models.NotificationMention,
		models.NotificationSystem,
	}
	for _, kind := range kinds {
		require.NoError(t, dispatcher.Dispatch(1, &actor, kind, "self", nil, nil))
	}

	assert.EqualValues(t, 0, notificationCount(t, db, 1))
	assert.Empty(t, publisher.events)
}

func TestDispatchWithoutActorIsDelivered(t *testing.T) {
	db := newTestDB(t)
	dispatcher := NewDispatcher(NewStore(db), &fakePublisher{}, false)

	// System notifications have no actor and are never suppressed
	require.NoError(t, dispatcher.Dispatch(1, nil, models.NotificationSystem, "maintenance tonight", nil, nil))
	assert.EqualValues(t, 1, notificationCount(t, db, 1))
}

func TestDispatchSurvivesDeadRegistry(t *testing.T) {
	db := newTestDB(t)
	actor := 2

	// No publisher at all
	dispatcher := NewDispatcher(NewStore(db), nil, false)
	require.NoError(t, dispatcher.Dispatch(1, &actor, models.NotificationVote, "hi", nil, nil))

	// Publisher with nobody listening
	dispatcher = NewDispatcher(NewStore(db), silentPublisher{}, false)
	require.NoError(t, dispatcher.Dispatch(1, &actor, models.NotificationVote, "hi", nil, nil))

	assert.EqualValues(t, 2, notificationCount(t, db, 1))
}

func TestCommentVotedRespectsFlag(t *testing.T) {
	db := newTestDB(t)
	actor := models.User{ID: 2, Username: "bob"}
	comment := models.Comment{ID: 10, AuthorID: 1, PostID: 5}

	dispatcher := NewDispatcher(NewStore(db), &fakePublisher{}, false)
	require.NoError(t, dispatcher.CommentVoted(actor, comment))
	assert.EqualValues(t, 0, notificationCount(t, db, 1), "disabled by default")

	dispatcher = NewDispatcher(NewStore(db), &fakePublisher{}, true)
	require.NoError(t, dispatcher.CommentVoted(actor, comment))
	assert.EqualValues(t, 1, notificationCount(t, db, 1))
}

func TestHelperKinds(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	dispatcher := NewDispatcher(store, &fakePublisher{}, false)

	actor := models.User{ID: 2, Username: "bob"}
	post := models.Post{ID: 5, Title: "hello", AuthorID: 1}
	parent := models.Comment{ID: 10, AuthorID: 3, PostID: 5}
	reply := models.Comment{ID: 11, AuthorID: 2, PostID: 5}

	require.NoError(t, dispatcher.PostVoted(actor, post))
	require.NoError(t, dispatcher.PostCommented(actor, post, reply))
	require.NoError(t, dispatcher.CommentReplied(actor, parent, reply))
	require.NoError(t, dispatcher.Mentioned(actor, 4, &post.ID, nil))

	items, _, err := store.List(1, 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		require.NotNil(t, item.ActorID)
		assert.Equal(t, actor.ID, *item.ActorID)
	}

	replyItems, _, err := store.List(3, 1, 20)
	require.NoError(t, err)
	require.Len(t, replyItems, 1)
	assert.Equal(t, models.NotificationComment, replyItems[0].Kind)

	mentionItems, _, err := store.List(4, 1, 20)
	require.NoError(t, err)
	require.Len(t, mentionItems, 1)
	assert.Equal(t, models.NotificationMention, mentionItems[0].Kind)
}
