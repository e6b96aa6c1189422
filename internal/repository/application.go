package repository

import (
	"context"

	"commung/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationRepository defines the interface for join application data operations
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uint) (*models.Application, error)
	GetPendingByUserAndCommunity(ctx context.Context, userID, communityID uint) (*models.Application, error)
	ListByCommunity(ctx context.Context, communityID uint, status models.ApplicationStatus, limit, offset int) ([]*models.Application, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	Delete(ctx context.Context, id uint) error
	// Decide runs fn inside a transaction holding a row lock on the
	// application, so concurrent reviews of the same application serialize.
	Decide(ctx context.Context, id uint, fn func(tx *gorm.DB, app *models.Application) error) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Preload("Community").
		Preload("User").
		First(&app, id).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) GetPendingByUserAndCommunity(ctx context.Context, userID, communityID uint) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ? AND status = ?",
			userID, communityID, models.ApplicationStatusPending).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) ListByCommunity(ctx context.Context, communityID uint, status models.ApplicationStatus, limit, offset int) ([]*models.Application, error) {
	var apps []*models.Application
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("community_id = ?", communityID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Application, error) {
	var apps []*models.Application
	err := r.db.WithContext(ctx).
		Preload("Community").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) Update(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Save(app).Error
}

func (r *applicationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Application{}, id).Error
}

func (r *applicationRepository) Decide(ctx context.Context, id uint, fn func(tx *gorm.DB, app *models.Application) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&app, id).Error; err != nil {
			return err
		}
		return fn(tx, &app)
	})
}
