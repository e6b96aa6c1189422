package repository

import (
	"context"

	"commung/internal/cache"
	"commung/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository defines the interface for community data operations
type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id uint) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	ListOwnedBy(ctx context.Context, userID uint) ([]*models.Community, error)
	ListDiscoverable(ctx context.Context, limit, offset int) ([]*models.Community, error)
	Update(ctx context.Context, community *models.Community) error
	Delete(ctx context.Context, id uint) error
	SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	MemberCount(ctx context.Context, id uint) (int64, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

func (r *communityRepository) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	err := cache.Aside(ctx, cache.CommunityKey(slug), &community, cache.CommunityTTL, func() error {
		return r.db.WithContext(ctx).Where("slug = ?", slug).First(&community).Error
	})
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) ListOwnedBy(ctx context.Context, userID uint) ([]*models.Community, error) {
	var communities []*models.Community
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", userID).
		Order("created_at DESC").
		Find(&communities).Error
	return communities, err
}

func (r *communityRepository) ListDiscoverable(ctx context.Context, limit, offset int) ([]*models.Community, error) {
	var communities []*models.Community
	err := r.db.WithContext(ctx).
		Where("status = ?", models.CommunityStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&communities).Error
	return communities, err
}

func (r *communityRepository) Update(ctx context.Context, community *models.Community) error {
	if err := r.db.WithContext(ctx).Save(community).Error; err != nil {
		return err
	}
	cache.InvalidateCommunity(ctx, community.Slug)
	return nil
}

// Delete removes the community and all rows scoped to it in one
// transaction. Children go before parents so subqueries still see them.
func (r *communityRepository) Delete(ctx context.Context, id uint) error {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postIDs := tx.Model(&models.BoardPost{}).Select("id").Where("community_id = ?", id)
		if err := tx.Where("post_id IN (?)", postIDs).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.BoardPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.Board{}).Error; err != nil {
			return err
		}

		convIDs := tx.Model(&models.Conversation{}).Select("id").Where("community_id = ?", id)
		msgIDs := tx.Model(&models.Message{}).Select("id").Where("conversation_id IN (?)", convIDs)
		if err := tx.Where("message_id IN (?)", msgIDs).Delete(&models.MessageReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id IN (?)", convIDs).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id IN (?)", convIDs).Delete(&models.ConversationParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.Conversation{}).Error; err != nil {
			return err
		}

		botIDs := tx.Model(&models.Bot{}).Select("id").Where("community_id = ?", id)
		if err := tx.Where("bot_id IN (?)", botIDs).Delete(&models.BotToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.Bot{}).Error; err != nil {
			return err
		}

		if err := tx.Where("community_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Community{}, id).Error
	})
	if err != nil {
		return err
	}
	cache.InvalidateCommunity(ctx, community.Slug)
	return nil
}

func (r *communityRepository) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Community{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *communityRepository) MemberCount(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("community_id = ?", id).
		Count(&count).Error
	return count, err
}
