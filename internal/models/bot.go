package models

import (
	"time"

	"gorm.io/gorm"
)

// Bot is a service account owned by a community. Each bot posts through its
// own bot profile.
type Bot struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CommunityID uint       `gorm:"not null;index" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	ProfileID   uint       `gorm:"not null;index" json:"profile_id"`
	Profile     *Profile   `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`

	Name            string `gorm:"size:80;not null" json:"name"`
	Description     string `gorm:"type:text" json:"description"`
	CreatedByUserID uint   `gorm:"not null" json:"created_by_user_id"`

	Tokens []BotToken `gorm:"foreignKey:BotID" json:"tokens,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BotToken is an API credential for a bot. Only the SHA-256 hash is stored;
// the plaintext token is returned once at issue time.
type BotToken struct {
	ID    uint `gorm:"primaryKey" json:"id"`
	BotID uint `gorm:"not null;index" json:"bot_id"`

	TokenHash string `gorm:"size:64;not null;uniqueIndex" json:"-"`
	// Prefix holds the first characters of the plaintext so the console can
	// show which token is which.
	Prefix     string     `gorm:"size:12;not null" json:"prefix"`
	LastUsedAt *time.Time `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at"`

	CreatedAt time.Time `json:"created_at"`
}

// Revoked reports whether the token has been revoked.
func (t *BotToken) Revoked() bool {
	return t.RevokedAt != nil
}
