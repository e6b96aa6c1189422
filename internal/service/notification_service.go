package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"commung/internal/middleware"
	"commung/internal/models"
	"commung/internal/notifications"
	"commung/internal/observability"
	"commung/internal/repository"

	"gorm.io/gorm"
)

// NotificationService persists notifications and fans them out over Redis
// pub/sub so other instances drop their cached unread counts.
type NotificationService struct {
	repo        repository.NotificationRepository
	profileRepo repository.ProfileRepository
	notifier    *notifications.Notifier
	now         func() time.Time
}

func NewNotificationService(
	repo repository.NotificationRepository,
	profileRepo repository.ProfileRepository,
	notifier *notifications.Notifier,
) *NotificationService {
	return &NotificationService{
		repo:        repo,
		profileRepo: profileRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Notify stores one notification and publishes it to the recipient's
// channel. Delivery failures are logged, never returned: notifications are
// best effort and must not fail the triggering operation.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) {
	if n == nil || n.RecipientProfileID == 0 {
		return
	}
	// Self-notifications are noise.
	if n.ActorProfileID != nil && *n.ActorProfileID == n.RecipientProfileID {
		return
	}
	if err := s.repo.Create(ctx, n); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to store notification", "error", err)
		return
	}
	observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	s.publish(ctx, n)
}

// NotifyModerators notifies every owner and moderator of a community.
func (s *NotificationService) NotifyModerators(ctx context.Context, communityID uint, typ models.NotificationType, body string) {
	members, err := s.profileRepo.ListMembers(ctx, communityID, 500, 0)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to list moderators for notification", "error", err)
		return
	}

	batch := make([]*models.Notification, 0, 4)
	for _, m := range members {
		if !m.CanModerate() {
			continue
		}
		batch = append(batch, &models.Notification{
			RecipientProfileID: m.ProfileID,
			Type:               typ,
			CommunityID:        communityID,
			Body:               body,
		})
	}
	if len(batch) == 0 {
		return
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to store moderator notifications", "error", err)
		return
	}
	observability.NotificationsCreated.WithLabelValues(string(typ)).Add(float64(len(batch)))
	for _, n := range batch {
		s.publish(ctx, n)
	}
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	payload, err := json.Marshal(map[string]interface{}{
		"id":   n.ID,
		"type": n.Type,
	})
	if err != nil {
		return
	}
	if err := s.notifier.PublishProfile(ctx, n.RecipientProfileID, string(payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification", "error", err)
	}
}

type ListNotificationsInput struct {
	ProfileID  uint
	UnreadOnly bool
	Cursor     repository.Cursor
	Limit      int
}

func (s *NotificationService) List(ctx context.Context, in ListNotificationsInput) ([]*models.Notification, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	ns, err := s.repo.ListByRecipient(ctx, in.ProfileID, in.UnreadOnly, in.Cursor, in.Limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ns, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, profileID uint) (int64, error) {
	count, err := s.repo.UnreadCount(ctx, profileID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, profileID, notificationID uint) error {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Notification", notificationID)
		}
		return models.NewInternalError(err)
	}
	if n.RecipientProfileID != profileID {
		return models.NewForbiddenError("Not your notification")
	}
	if err := s.repo.MarkRead(ctx, notificationID, s.now()); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, profileID uint) error {
	if err := s.repo.MarkAllRead(ctx, profileID, s.now()); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
