package models

import "time"

// MembershipRole defines a member's role in a community.
type MembershipRole string

const (
	// MembershipRoleOwner is the community owner role. Exactly one per
	// community; not assignable through the role-update endpoint.
	MembershipRoleOwner MembershipRole = "owner"
	// MembershipRoleModerator is the community moderator role.
	MembershipRoleModerator MembershipRole = "moderator"
	// MembershipRoleMember is the default member role.
	MembershipRoleMember MembershipRole = "member"
)

// Membership maps profiles to communities and tracks role and mute state.
type Membership struct {
	CommunityID uint           `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community   *Community     `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	ProfileID   uint           `gorm:"primaryKey;autoIncrement:false" json:"profile_id"`
	Profile     *Profile       `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Role        MembershipRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`

	// MutedAt set with MutedUntil nil means muted indefinitely.
	MutedAt    *time.Time `json:"muted_at,omitempty"`
	MutedUntil *time.Time `json:"muted_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsMuted reports whether the membership is muted at the given time.
func (m *Membership) IsMuted(now time.Time) bool {
	if m.MutedAt == nil {
		return false
	}
	if m.MutedUntil == nil {
		return true
	}
	return m.MutedUntil.After(now)
}

// CanModerate reports whether the role carries moderation privileges.
func (m *Membership) CanModerate() bool {
	return m.Role == MembershipRoleOwner || m.Role == MembershipRoleModerator
}
