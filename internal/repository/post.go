package repository

import (
	"context"

	"commung/internal/cache"
	"commung/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for board post and reply data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.BoardPost) error
	GetByID(ctx context.Context, id uint) (*models.BoardPost, error)
	ListByBoard(ctx context.Context, boardID uint, cursor Cursor, limit int) ([]*models.BoardPost, error)
	Timeline(ctx context.Context, communityID uint, cursor Cursor, limit int) ([]*models.BoardPost, error)
	Update(ctx context.Context, post *models.BoardPost) error
	Delete(ctx context.Context, id uint) error
	SetPinned(ctx context.Context, id uint, pinned bool) error

	CreateReply(ctx context.Context, reply *models.Reply) error
	GetReply(ctx context.Context, id uint) (*models.Reply, error)
	ListReplies(ctx context.Context, postID uint) ([]*models.Reply, error)
	DeleteReply(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withReplyCount selects posts plus their live reply count in one query.
func (r *postRepository) withReplyCount(db *gorm.DB) *gorm.DB {
	return db.Select("board_posts.*, " +
		"(SELECT COUNT(*) FROM replies WHERE replies.post_id = board_posts.id AND replies.deleted_at IS NULL) as reply_count")
}

// applyCursor narrows a listing to rows strictly older than the cursor
// position. Pinned rows are excluded because they sort out of band.
func applyCursor(db *gorm.DB, cursor Cursor) *gorm.DB {
	if cursor.IsZero() {
		return db
	}
	return db.Where(
		"(board_posts.created_at < ?) OR (board_posts.created_at = ? AND board_posts.id < ?)",
		cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
	)
}

func (r *postRepository) Create(ctx context.Context, post *models.BoardPost) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err == nil {
		cache.InvalidatePost(ctx, post.ID, post.CommunityID)
	}
	return err
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.BoardPost, error) {
	var post models.BoardPost
	err := r.withReplyCount(r.db.WithContext(ctx)).
		Preload("AuthorProfile").
		Preload("Board").
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListByBoard(ctx context.Context, boardID uint, cursor Cursor, limit int) ([]*models.BoardPost, error) {
	var posts []*models.BoardPost
	base := r.withReplyCount(r.db.WithContext(ctx)).
		Preload("AuthorProfile").
		Where("board_id = ?", boardID)

	// First page carries pinned posts up top; subsequent pages walk the
	// unpinned keyset only.
	if cursor.IsZero() {
		err := base.Order("pinned DESC, created_at DESC, id DESC").
			Limit(limit).
			Find(&posts).Error
		return posts, err
	}

	err := applyCursor(base.Where("pinned = ?", false), cursor).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Timeline(ctx context.Context, communityID uint, cursor Cursor, limit int) ([]*models.BoardPost, error) {
	var posts []*models.BoardPost
	err := applyCursor(
		r.withReplyCount(r.db.WithContext(ctx)).
			Preload("AuthorProfile").
			Preload("Board").
			Where("board_posts.community_id = ?", communityID),
		cursor,
	).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.BoardPost) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, post.ID, post.CommunityID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	var post models.BoardPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&post).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id, post.CommunityID)
	return nil
}

func (r *postRepository) SetPinned(ctx context.Context, id uint, pinned bool) error {
	var post models.BoardPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&post).Update("pinned", pinned).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id, post.CommunityID)
	return nil
}

func (r *postRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	err := r.db.WithContext(ctx).Create(reply).Error
	if err == nil {
		cache.Invalidate(ctx, cache.PostKey(reply.PostID))
	}
	return err
}

func (r *postRepository) GetReply(ctx context.Context, id uint) (*models.Reply, error) {
	var reply models.Reply
	err := r.db.WithContext(ctx).
		Preload("AuthorProfile").
		First(&reply, id).Error
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListReplies returns every reply of the post, soft-deleted rows included:
// deleted replies keep their slot so their children stay threaded in place.
func (r *postRepository) ListReplies(ctx context.Context, postID uint) ([]*models.Reply, error) {
	var replies []*models.Reply
	err := r.db.WithContext(ctx).Unscoped().
		Preload("AuthorProfile").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	return replies, err
}

func (r *postRepository) DeleteReply(ctx context.Context, id uint) error {
	var reply models.Reply
	if err := r.db.WithContext(ctx).First(&reply, id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&reply).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.PostKey(reply.PostID))
	return nil
}
