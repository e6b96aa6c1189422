package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is a per-community identity, distinct from the global User
// account. A user holds at most one profile per community and switches
// between them in the client's profile switcher.
type Profile struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CommunityID uint       `gorm:"not null;uniqueIndex:idx_profile_user_community;uniqueIndex:idx_profile_username_community" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	// UserID is nil for bot profiles.
	UserID *uint `gorm:"uniqueIndex:idx_profile_user_community" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Name       string `gorm:"size:50;not null" json:"name"`
	Username   string `gorm:"size:50;not null;uniqueIndex:idx_profile_username_community" json:"username"`
	Bio        string `gorm:"type:text" json:"bio"`
	PictureURL string `json:"picture_url"`
	BirthYear  int    `json:"birth_year"`
	// IsBot marks service-account profiles created through the bot console.
	IsBot bool `gorm:"default:false" json:"is_bot"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
