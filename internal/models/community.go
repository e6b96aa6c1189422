package models

import (
	"time"

	"gorm.io/gorm"
)

// CommunityStatus defines the lifecycle state of a community.
type CommunityStatus string

const (
	// CommunityStatusActive indicates a community is open and usable.
	CommunityStatusActive CommunityStatus = "active"
	// CommunityStatusArchived indicates a community is read-only and hidden
	// from discovery.
	CommunityStatusArchived CommunityStatus = "archived"
)

// Community represents a tenant: an isolated social space with its own
// members, profiles, boards, and conversations.
type Community struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:120;not null" json:"name"`
	Slug        string `gorm:"size:24;not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`

	// Schedule window the community runs for (optional).
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`

	// Recruiting window during which applications are accepted (optional).
	RecruitOpensAt  *time.Time `json:"recruit_opens_at"`
	RecruitClosesAt *time.Time `json:"recruit_closes_at"`

	CustomDomain string `gorm:"size:253" json:"custom_domain"`
	BannerURL    string `json:"banner_url"`
	// Hashtags is a comma-joined tag list, e.g. "creative,writing".
	Hashtags string `gorm:"size:255" json:"hashtags"`
	// MinBirthYear rejects applicants born before this year. Zero disables
	// the check.
	MinBirthYear int `json:"min_birth_year"`

	OwnerUserID uint            `gorm:"not null;index" json:"owner_user_id"`
	OwnerUser   *User           `gorm:"foreignKey:OwnerUserID" json:"owner_user,omitempty"`
	Status      CommunityStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM.
func (Community) TableName() string {
	return "communities"
}

// RecruitingOpen reports whether applications are accepted at the given
// time. A community with no recruiting window configured is always open.
func (c *Community) RecruitingOpen(now time.Time) bool {
	if c.RecruitOpensAt != nil && now.Before(*c.RecruitOpensAt) {
		return false
	}
	if c.RecruitClosesAt != nil && !now.Before(*c.RecruitClosesAt) {
		return false
	}
	return true
}
