package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a direct or group chat scoped to one community. Direct
// conversations hold exactly two participants and are deduplicated per pair;
// the community-wide default group chat has IsDefault set.
type Conversation struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CommunityID uint       `gorm:"not null;index" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`

	Name    string `gorm:"size:120" json:"name"`
	IsGroup bool   `gorm:"default:false" json:"is_group"`
	// IsDefault marks the community-wide group chat every member joins.
	IsDefault          bool  `gorm:"default:false" json:"is_default"`
	CreatedByProfileID *uint `json:"created_by_profile_id"`

	Participants []Profile `gorm:"many2many:conversation_participants;joinForeignKey:ConversationID;joinReferences:ProfileID" json:"participants,omitempty"`

	// LastMessage and UnreadCount are computed per viewer at query time.
	LastMessage *Message `gorm:"-" json:"last_message,omitempty"`
	UnreadCount int      `gorm:"-" json:"unread_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ConversationParticipant is the join row between conversations and
// profiles. LastReadAt drives unread counts and read receipts.
type ConversationParticipant struct {
	ConversationID uint       `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	ProfileID      uint       `gorm:"primaryKey;autoIncrement:false" json:"profile_id"`
	Profile        *Profile   `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	JoinedAt       time.Time  `gorm:"autoCreateTime" json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at"`
}

// Message is a chat message within a conversation.
type Message struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	ConversationID  uint     `gorm:"not null;index" json:"conversation_id"`
	SenderProfileID uint     `gorm:"not null;index" json:"sender_profile_id"`
	SenderProfile   *Profile `gorm:"foreignKey:SenderProfileID" json:"sender_profile,omitempty"`

	Content  string `gorm:"type:text" json:"content"`
	ImageURL string `json:"image_url"`

	Reactions []MessageReaction `gorm:"foreignKey:MessageID" json:"reactions,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MessageReaction is one profile's emoji reaction to a message. The unique
// index makes reacting idempotent per emoji.
type MessageReaction struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	MessageID uint     `gorm:"not null;uniqueIndex:idx_reaction_message_profile_emoji" json:"message_id"`
	ProfileID uint     `gorm:"not null;uniqueIndex:idx_reaction_message_profile_emoji" json:"profile_id"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Emoji     string   `gorm:"size:32;not null;uniqueIndex:idx_reaction_message_profile_emoji" json:"emoji"`

	CreatedAt time.Time `json:"created_at"`
}
