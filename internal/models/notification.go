package models

import "time"

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	// NotificationTypeReply fires when someone replies to your post or reply.
	NotificationTypeReply NotificationType = "reply"
	// NotificationTypeMention fires when a post or reply @mentions you.
	NotificationTypeMention NotificationType = "mention"
	// NotificationTypeMessage fires for new direct or group messages.
	NotificationTypeMessage NotificationType = "message"
	// NotificationTypeApplication fires on application decisions and, for
	// moderators, on new applications.
	NotificationTypeApplication NotificationType = "application"
)

// Notification is an in-app notification addressed to one profile.
type Notification struct {
	ID                 uint     `gorm:"primaryKey" json:"id"`
	RecipientProfileID uint     `gorm:"not null;index:idx_notification_recipient_read" json:"recipient_profile_id"`
	ActorProfileID     *uint    `json:"actor_profile_id"`
	ActorProfile       *Profile `gorm:"foreignKey:ActorProfileID" json:"actor_profile,omitempty"`

	Type        NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	CommunityID uint             `gorm:"not null;index" json:"community_id"`

	// Optional references to the subject of the notification.
	PostID         *uint `json:"post_id,omitempty"`
	ReplyID        *uint `json:"reply_id,omitempty"`
	ConversationID *uint `json:"conversation_id,omitempty"`

	Body   string     `gorm:"size:300" json:"body"`
	Read   bool       `gorm:"default:false;index:idx_notification_recipient_read" json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
