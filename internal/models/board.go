package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxDisplayDepth caps the visual nesting level reported for replies. The
// stored depth is unbounded; rendering flattens everything deeper.
const MaxDisplayDepth = 3

// Board is a topic-scoped post area within a community.
type Board struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CommunityID uint       `gorm:"not null;index" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	Name        string     `gorm:"size:80;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Position    int        `gorm:"not null;default:0" json:"position"`
	// ReadOnly boards accept posts from moderators and bots only.
	ReadOnly  bool           `gorm:"default:false" json:"read_only"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BoardPost is a post on a board.
type BoardPost struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	BoardID uint   `gorm:"not null;index" json:"board_id"`
	Board   *Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	// CommunityID is denormalized from the board for timeline queries.
	CommunityID     uint     `gorm:"not null;index" json:"community_id"`
	AuthorProfileID uint     `gorm:"not null;index" json:"author_profile_id"`
	AuthorProfile   *Profile `gorm:"foreignKey:AuthorProfileID" json:"author_profile,omitempty"`

	Title    string `gorm:"size:200" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `json:"image_url"`
	Pinned   bool   `gorm:"default:false" json:"pinned"`

	// ReplyCount is not persisted; computed at query time.
	ReplyCount int `gorm:"->" json:"reply_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Reply is a threaded reply to a board post. Depth is server-computed at
// insert time (parent depth + 1, 0 for top level) and never taken from the
// client, so the stored reply graph is a forest by construction.
type Reply struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	PostID          uint       `gorm:"not null;index" json:"post_id"`
	Post            *BoardPost `gorm:"foreignKey:PostID" json:"post,omitempty"`
	AuthorProfileID uint       `gorm:"not null;index" json:"author_profile_id"`
	AuthorProfile   *Profile   `gorm:"foreignKey:AuthorProfileID" json:"author_profile,omitempty"`

	Content     string `gorm:"type:text;not null" json:"content"`
	InReplyToID *uint  `gorm:"index" json:"in_reply_to_id"`
	Depth       int    `gorm:"not null;default:0" json:"depth"`

	// Children and DisplayDepth are assembled in memory when serving a
	// post detail; they are never persisted. Deleted marks a soft-deleted
	// reply kept in the tree as a blanked placeholder.
	Children     []*Reply `gorm:"-" json:"replies,omitempty"`
	DisplayDepth int      `gorm:"-" json:"display_depth"`
	Deleted      bool     `gorm:"-" json:"deleted"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
