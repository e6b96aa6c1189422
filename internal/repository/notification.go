package repository

import (
	"context"
	"time"

	"commung/internal/cache"
	"commung/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, ns []*models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	ListByRecipient(ctx context.Context, profileID uint, unreadOnly bool, cursor Cursor, limit int) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, profileID uint) (int64, error)
	MarkRead(ctx context.Context, id uint, at time.Time) error
	MarkAllRead(ctx context.Context, profileID uint, at time.Time) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.UnreadCountKey(n.RecipientProfileID))
	return nil
}

func (r *notificationRepository) CreateBatch(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(ns, 100).Error; err != nil {
		return err
	}
	for _, n := range ns {
		cache.Invalidate(ctx, cache.UnreadCountKey(n.RecipientProfileID))
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, profileID uint, unreadOnly bool, cursor Cursor, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	q := r.db.WithContext(ctx).
		Preload("ActorProfile").
		Where("recipient_profile_id = ?", profileID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	if !cursor.IsZero() {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// UnreadCount is served cache-aside with a short TTL: header badges poll it
// constantly. Writes here and notify:profile:* messages from other
// instances both invalidate the cached value.
func (r *notificationRepository) UnreadCount(ctx context.Context, profileID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.UnreadCountKey(profileID), &count, cache.UnreadCountTTL, func() error {
		return r.db.WithContext(ctx).Model(&models.Notification{}).
			Where("recipient_profile_id = ? AND read = ?", profileID, false).
			Count(&count).Error
	})
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, at time.Time) error {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&n).
		Updates(map[string]interface{}{"read": true, "read_at": at}).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.UnreadCountKey(n.RecipientProfileID))
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, profileID uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_profile_id = ? AND read = ?", profileID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at}).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.UnreadCountKey(profileID))
	return nil
}
