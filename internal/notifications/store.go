package notifications

import (
	"errors"

	"gorm.io/gorm"

	"github.com/quillforum/backend/internal/models"
	"github.com/quillforum/backend/internal/pagination"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrForbidden = errors.New("notification belongs to another user")
)

// Store is the durable per-recipient notification log. Rows are written by
// the dispatcher only and are never deleted here; is_read moves one way.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Record persists unconditionally; suppression decisions happen in the
// dispatcher before this is called.
func (s *Store) Record(recipientID int, actorID *int, kind models.NotificationKind, message string, postID, commentID *int) (models.Notification, error) {
	notification := models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Kind:        kind,
		Message:     message,
		PostID:      postID,
		CommentID:   commentID,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}

// List returns one page of a recipient's notifications, newest first.
func (s *Store) List(recipientID, page, limit int) ([]models.Notification, pagination.Page, error) {
	var total int64
	err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID).
		Count(&total).Error
	if err != nil {
		return nil, pagination.Page{}, err
	}

	notifications := make([]models.Notification, 0, limit)
	err = s.db.
		Where("recipient_id = ?", recipientID).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, pagination.Page{}, err
	}

	return notifications, pagination.New(page, limit, total), nil
}

func (s *Store) UnreadCount(recipientID int) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips one notification to read. Marking an already-read
// notification is a no-op; marking someone else's is Forbidden.
func (s *Store) MarkRead(recipientID, notificationID int) error {
	var notification models.Notification
	if err := s.db.First(&notification, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if notification.RecipientID != recipientID {
		return ErrForbidden
	}
	if notification.IsRead {
		return nil
	}

	return s.db.Model(&notification).Update("is_read", true).Error
}

// MarkAllRead is idempotent; it only ever touches unread rows.
func (s *Store) MarkAllRead(recipientID int) error {
	return s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
}
