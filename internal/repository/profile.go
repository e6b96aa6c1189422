package repository

import (
	"context"

	"commung/internal/cache"
	"commung/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile and membership data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByUserAndCommunity(ctx context.Context, userID, communityID uint) (*models.Profile, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	UsernameTaken(ctx context.Context, communityID uint, username string, excludeID uint) (bool, error)

	CreateMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, communityID, profileID uint) (*models.Membership, error)
	ListMembers(ctx context.Context, communityID uint, limit, offset int) ([]*models.Membership, error)
	UpdateMembership(ctx context.Context, m *models.Membership) error
	DeleteMembership(ctx context.Context, communityID, profileID uint) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		return r.db.WithContext(ctx).First(&profile, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetByUserAndCommunity(ctx context.Context, userID, communityID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := r.db.WithContext(ctx).
		Preload("Community").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return err
	}
	cache.InvalidateProfile(ctx, profile.ID)
	return nil
}

func (r *profileRepository) UsernameTaken(ctx context.Context, communityID uint, username string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("community_id = ? AND username = ?", communityID, username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *profileRepository) CreateMembership(ctx context.Context, m *models.Membership) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *profileRepository) GetMembership(ctx context.Context, communityID, profileID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND profile_id = ?", communityID, profileID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *profileRepository) ListMembers(ctx context.Context, communityID uint, limit, offset int) ([]*models.Membership, error) {
	var members []*models.Membership
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&members).Error
	return members, err
}

func (r *profileRepository) UpdateMembership(ctx context.Context, m *models.Membership) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *profileRepository) DeleteMembership(ctx context.Context, communityID, profileID uint) error {
	return r.db.WithContext(ctx).
		Where("community_id = ? AND profile_id = ?", communityID, profileID).
		Delete(&models.Membership{}).Error
}
