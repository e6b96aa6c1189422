package repository

import (
	"context"

	"commung/internal/cache"
	"commung/internal/models"

	"gorm.io/gorm"
)

// BoardRepository defines the interface for board data operations
type BoardRepository interface {
	Create(ctx context.Context, board *models.Board) error
	GetByID(ctx context.Context, id uint) (*models.Board, error)
	ListByCommunity(ctx context.Context, communityID uint) ([]*models.Board, error)
	Update(ctx context.Context, board *models.Board) error
	Delete(ctx context.Context, id uint) error
	Reorder(ctx context.Context, communityID uint, orderedIDs []uint) error
}

type boardRepository struct {
	db *gorm.DB
}

// NewBoardRepository creates a new board repository
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &boardRepository{db: db}
}

func (r *boardRepository) Create(ctx context.Context, board *models.Board) error {
	err := r.db.WithContext(ctx).Create(board).Error
	if err == nil {
		cache.InvalidateBoards(ctx, board.CommunityID)
	}
	return err
}

func (r *boardRepository) GetByID(ctx context.Context, id uint) (*models.Board, error) {
	var board models.Board
	if err := r.db.WithContext(ctx).First(&board, id).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepository) ListByCommunity(ctx context.Context, communityID uint) ([]*models.Board, error) {
	var boards []*models.Board
	err := cache.Aside(ctx, cache.BoardListKey(communityID), &boards, cache.BoardListTTL, func() error {
		return r.db.WithContext(ctx).
			Where("community_id = ?", communityID).
			Order("position ASC, id ASC").
			Find(&boards).Error
	})
	return boards, err
}

func (r *boardRepository) Update(ctx context.Context, board *models.Board) error {
	if err := r.db.WithContext(ctx).Save(board).Error; err != nil {
		return err
	}
	cache.InvalidateBoards(ctx, board.CommunityID)
	return nil
}

func (r *boardRepository) Delete(ctx context.Context, id uint) error {
	var board models.Board
	if err := r.db.WithContext(ctx).First(&board, id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&board).Error; err != nil {
		return err
	}
	cache.InvalidateBoards(ctx, board.CommunityID)
	return nil
}

func (r *boardRepository) Reorder(ctx context.Context, communityID uint, orderedIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for pos, id := range orderedIDs {
			res := tx.Model(&models.Board{}).
				Where("id = ? AND community_id = ?", id, communityID).
				Update("position", pos)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
	if err == nil {
		cache.InvalidateBoards(ctx, communityID)
	}
	return err
}
