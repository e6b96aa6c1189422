package models

import "time"

// ApplicationStatus defines lifecycle states for join applications.
type ApplicationStatus string

const (
	// ApplicationStatusPending indicates the application is awaiting review.
	ApplicationStatusPending ApplicationStatus = "pending"
	// ApplicationStatusApproved indicates the application was accepted.
	ApplicationStatusApproved ApplicationStatus = "approved"
	// ApplicationStatusRejected indicates the application was declined.
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is a user's request to join a community. Approval provisions
// the profile and membership described by the application fields; the
// applicant may edit or cancel only while pending.
type Application struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CommunityID uint       `gorm:"not null;index:idx_application_community_status" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Answer          string `gorm:"type:text;not null" json:"answer"`
	ProfileName     string `gorm:"size:50;not null" json:"profile_name"`
	ProfileUsername string `gorm:"size:50;not null" json:"profile_username"`
	BirthYear       int    `json:"birth_year"`

	Status              ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_application_community_status" json:"status"`
	ReviewedByProfileID *uint             `json:"reviewed_by_profile_id"`
	ReviewedByProfile   *Profile          `gorm:"foreignKey:ReviewedByProfileID" json:"reviewed_by_profile,omitempty"`
	ReviewNote          string            `gorm:"type:text" json:"review_note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
