package repository

import (
	"context"
	"time"

	"commung/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for conversation and message data operations
type ChatRepository interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	FindDirectConversation(ctx context.Context, communityID, profileA, profileB uint) (*models.Conversation, error)
	GetDefaultConversation(ctx context.Context, communityID uint) (*models.Conversation, error)
	ListConversations(ctx context.Context, communityID, profileID uint) ([]*models.Conversation, error)
	AddParticipant(ctx context.Context, convID, profileID uint) error
	RemoveParticipant(ctx context.Context, convID, profileID uint) error
	IsParticipant(ctx context.Context, convID, profileID uint) (bool, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, convID uint, cursor Cursor, limit int) ([]*models.Message, error)
	UpdateLastRead(ctx context.Context, convID, profileID uint, at time.Time) error
	UnreadCount(ctx context.Context, convID, profileID uint) (int64, error)

	AddReaction(ctx context.Context, reaction *models.MessageReaction) error
	RemoveReaction(ctx context.Context, messageID, profileID uint, emoji string) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *chatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirectConversation locates the non-group conversation whose two
// participants are exactly profileA and profileB. The NOT EXISTS clause
// rejects conversations with any third participant.
func (r *chatRepository) FindDirectConversation(ctx context.Context, communityID, profileA, profileB uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants a ON a.conversation_id = conversations.id AND a.profile_id = ?", profileA).
		Joins("JOIN conversation_participants b ON b.conversation_id = conversations.id AND b.profile_id = ?", profileB).
		Where("conversations.community_id = ? AND conversations.is_group = ?", communityID, false).
		Where("NOT EXISTS (SELECT 1 FROM conversation_participants x WHERE x.conversation_id = conversations.id AND x.profile_id NOT IN (?, ?))",
			profileA, profileB).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) GetDefaultConversation(ctx context.Context, communityID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND is_default = ?", communityID, true).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) ListConversations(ctx context.Context, communityID, profileID uint) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON conversations.id = cp.conversation_id").
		Where("cp.profile_id = ? AND conversations.community_id = ?", profileID, communityID).
		Preload("Participants").
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	// Attach last message and per-viewer unread count.
	for _, conv := range conversations {
		var last models.Message
		lastErr := r.db.WithContext(ctx).
			Preload("SenderProfile").
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC, id DESC").
			First(&last).Error
		if lastErr == nil {
			conv.LastMessage = &last
		} else if lastErr != gorm.ErrRecordNotFound {
			return nil, lastErr
		}

		unread, unreadErr := r.UnreadCount(ctx, conv.ID, profileID)
		if unreadErr != nil {
			return nil, unreadErr
		}
		conv.UnreadCount = int(unread)
	}
	return conversations, nil
}

func (r *chatRepository) AddParticipant(ctx context.Context, convID, profileID uint) error {
	participant := models.ConversationParticipant{
		ConversationID: convID,
		ProfileID:      profileID,
	}
	// OnConflict makes re-adding an existing participant a no-op
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error
}

func (r *chatRepository) RemoveParticipant(ctx context.Context, convID, profileID uint) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ? AND profile_id = ?", convID, profileID).
		Delete(&models.ConversationParticipant{}).Error
}

func (r *chatRepository) IsParticipant(ctx context.Context, convID, profileID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND profile_id = ?", convID, profileID).
		Count(&count).Error
	return count > 0, err
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		// Bump the conversation so listings sort by recent activity.
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now()).Error
	})
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).
		Preload("SenderProfile").
		Preload("Reactions").
		First(&msg, id).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatRepository) ListMessages(ctx context.Context, convID uint, cursor Cursor, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	q := r.db.WithContext(ctx).
		Preload("SenderProfile").
		Preload("Reactions").
		Where("conversation_id = ?", convID)
	if !cursor.IsZero() {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Fetched newest-first for the keyset; clients expect oldest -> newest.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *chatRepository) UpdateLastRead(ctx context.Context, convID, profileID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND profile_id = ?", convID, profileID).
		Update("last_read_at", at).Error
}

func (r *chatRepository) UnreadCount(ctx context.Context, convID, profileID uint) (int64, error) {
	var participant models.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND profile_id = ?", convID, profileID).
		First(&participant).Error
	if err != nil {
		return 0, err
	}

	q := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_profile_id <> ?", convID, profileID)
	if participant.LastReadAt != nil {
		q = q.Where("created_at > ?", *participant.LastReadAt)
	}
	var count int64
	err = q.Count(&count).Error
	return count, err
}

func (r *chatRepository) AddReaction(ctx context.Context, reaction *models.MessageReaction) error {
	// The unique index makes repeat reactions idempotent.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reaction).Error
}

func (r *chatRepository) RemoveReaction(ctx context.Context, messageID, profileID uint, emoji string) error {
	return r.db.WithContext(ctx).
		Where("message_id = ? AND profile_id = ? AND emoji = ?", messageID, profileID, emoji).
		Delete(&models.MessageReaction{}).Error
}
