package repository

import (
	"context"
	"time"

	"commung/internal/models"

	"gorm.io/gorm"
)

// BotRepository defines the interface for bot and token data operations
type BotRepository interface {
	Create(ctx context.Context, bot *models.Bot) error
	GetByID(ctx context.Context, id uint) (*models.Bot, error)
	ListByCommunity(ctx context.Context, communityID uint) ([]*models.Bot, error)
	Update(ctx context.Context, bot *models.Bot) error
	Delete(ctx context.Context, id uint) error

	CreateToken(ctx context.Context, token *models.BotToken) error
	GetTokenByHash(ctx context.Context, hash string) (*models.BotToken, error)
	ListTokens(ctx context.Context, botID uint) ([]*models.BotToken, error)
	RevokeToken(ctx context.Context, id uint, at time.Time) error
	TouchToken(ctx context.Context, id uint, at time.Time) error
}

type botRepository struct {
	db *gorm.DB
}

// NewBotRepository creates a new bot repository
func NewBotRepository(db *gorm.DB) BotRepository {
	return &botRepository{db: db}
}

func (r *botRepository) Create(ctx context.Context, bot *models.Bot) error {
	return r.db.WithContext(ctx).Create(bot).Error
}

func (r *botRepository) GetByID(ctx context.Context, id uint) (*models.Bot, error) {
	var bot models.Bot
	err := r.db.WithContext(ctx).
		Preload("Profile").
		First(&bot, id).Error
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *botRepository) ListByCommunity(ctx context.Context, communityID uint) ([]*models.Bot, error) {
	var bots []*models.Bot
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Find(&bots).Error
	return bots, err
}

func (r *botRepository) Update(ctx context.Context, bot *models.Bot) error {
	return r.db.WithContext(ctx).Save(bot).Error
}

func (r *botRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Bot{}, id).Error
}

func (r *botRepository) CreateToken(ctx context.Context, token *models.BotToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *botRepository) GetTokenByHash(ctx context.Context, hash string) (*models.BotToken, error) {
	var token models.BotToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", hash).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *botRepository) ListTokens(ctx context.Context, botID uint) ([]*models.BotToken, error) {
	var tokens []*models.BotToken
	err := r.db.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *botRepository) RevokeToken(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.BotToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (r *botRepository) TouchToken(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.BotToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
