package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"commung/internal/events"
	"commung/internal/models"
	"commung/internal/observability"
	"commung/internal/repository"

	"gorm.io/gorm"
)

const (
	maxPostTitleLen   = 200
	maxPostContentLen = 20000
	maxReplyLen       = 4000
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]{1,50})`)

// PostService handles board posts, the community timeline, and threaded
// replies.
type PostService struct {
	postRepo      repository.PostRepository
	boardRepo     repository.BoardRepository
	profileRepo   repository.ProfileRepository
	communityRepo repository.CommunityRepository
	notifications *NotificationService
	publisher     *events.Publisher
	now           func() time.Time
}

func NewPostService(
	postRepo repository.PostRepository,
	boardRepo repository.BoardRepository,
	profileRepo repository.ProfileRepository,
	communityRepo repository.CommunityRepository,
	notifications *NotificationService,
	publisher *events.Publisher,
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		boardRepo:     boardRepo,
		profileRepo:   profileRepo,
		communityRepo: communityRepo,
		notifications: notifications,
		publisher:     publisher,
		now:           time.Now,
	}
}

// requireActiveMember loads the author's membership and rejects writes from
// muted members and into archived communities.
func (s *PostService) requireActiveMember(ctx context.Context, communityID, profileID uint) (*models.Membership, error) {
	if err := requireActiveCommunity(ctx, s.communityRepo, communityID); err != nil {
		return nil, err
	}
	membership, err := s.profileRepo.GetMembership(ctx, communityID, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewForbiddenError("Not a member of this community")
		}
		return nil, models.NewInternalError(err)
	}
	if membership.IsMuted(s.now()) {
		return nil, models.NewForbiddenError("You are muted in this community")
	}
	return membership, nil
}

type CreatePostInput struct {
	BoardID         uint
	AuthorProfileID uint
	Title           string
	Content         string
	ImageURL        string
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.BoardPost, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxPostTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 20000 characters)")
	}

	board, err := s.boardRepo.GetByID(ctx, in.BoardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Board", in.BoardID)
		}
		return nil, models.NewInternalError(err)
	}

	membership, err := s.requireActiveMember(ctx, board.CommunityID, in.AuthorProfileID)
	if err != nil {
		return nil, err
	}

	if board.ReadOnly && !membership.CanModerate() {
		author, err := s.profileRepo.GetByID(ctx, in.AuthorProfileID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if !author.IsBot {
			return nil, models.NewForbiddenError("Board accepts posts from moderators and bots only")
		}
	}

	post := &models.BoardPost{
		BoardID:         in.BoardID,
		CommunityID:     board.CommunityID,
		AuthorProfileID: in.AuthorProfileID,
		Title:           in.Title,
		Content:         in.Content,
		ImageURL:        in.ImageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.PostsCreated.WithLabelValues(fmt.Sprint(board.CommunityID)).Inc()

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypePostCreated,
		CommunityID: board.CommunityID,
		ActorID:     in.AuthorProfileID,
		SubjectID:   post.ID,
	})

	s.notifyMentions(ctx, board.CommunityID, in.AuthorProfileID, in.Content, &post.ID, nil)
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, communityID, postID uint) (*models.BoardPost, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, models.NewInternalError(err)
	}
	if post.CommunityID != communityID {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

type ListPostsInput struct {
	CommunityID uint
	BoardID     uint
	Cursor      repository.Cursor
	Limit       int
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.BoardPost, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	board, err := s.boardRepo.GetByID(ctx, in.BoardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Board", in.BoardID)
		}
		return nil, models.NewInternalError(err)
	}
	if board.CommunityID != in.CommunityID {
		return nil, models.NewNotFoundError("Board", in.BoardID)
	}

	posts, err := s.postRepo.ListByBoard(ctx, in.BoardID, in.Cursor, in.Limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Timeline lists recent posts across every board of the community.
func (s *PostService) Timeline(ctx context.Context, communityID uint, cursor repository.Cursor, limit int) ([]*models.BoardPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts, err := s.postRepo.Timeline(ctx, communityID, cursor, limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

type UpdatePostInput struct {
	CommunityID uint
	PostID      uint
	ProfileID   uint
	Title       *string
	Content     *string
	ImageURL    *string
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.BoardPost, error) {
	post, err := s.GetPost(ctx, in.CommunityID, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorProfileID != in.ProfileID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}
	if _, err := s.requireActiveMember(ctx, in.CommunityID, in.ProfileID); err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, models.NewValidationError("Title cannot be empty")
		}
		if len(*in.Title) > maxPostTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		post.Title = *in.Title
	}
	if in.Content != nil {
		if *in.Content == "" {
			return nil, models.NewValidationError("Content cannot be empty")
		}
		if len(*in.Content) > maxPostContentLen {
			return nil, models.NewValidationError("Content too long (max 20000 characters)")
		}
		post.Content = *in.Content
	}
	if in.ImageURL != nil {
		post.ImageURL = *in.ImageURL
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}
	return post, nil
}

// DeletePost removes a post. Authors delete their own; moderators delete any.
func (s *PostService) DeletePost(ctx context.Context, communityID, postID, profileID uint) error {
	post, err := s.GetPost(ctx, communityID, postID)
	if err != nil {
		return err
	}
	membership, err := s.profileRepo.GetMembership(ctx, communityID, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewForbiddenError("Not a member of this community")
		}
		return models.NewInternalError(err)
	}
	if post.AuthorProfileID != profileID && !membership.CanModerate() {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SetPinned pins or unpins a post. Moderator only.
func (s *PostService) SetPinned(ctx context.Context, communityID, postID, profileID uint, pinned bool) error {
	if _, err := s.GetPost(ctx, communityID, postID); err != nil {
		return err
	}
	membership, err := s.profileRepo.GetMembership(ctx, communityID, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewForbiddenError("Not a member of this community")
		}
		return models.NewInternalError(err)
	}
	if !membership.CanModerate() {
		return models.NewForbiddenError("Only moderators can pin posts")
	}
	if err := s.postRepo.SetPinned(ctx, postID, pinned); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

type CreateReplyInput struct {
	CommunityID     uint
	PostID          uint
	AuthorProfileID uint
	Content         string
	InReplyToID     *uint
}

func (s *PostService) CreateReply(ctx context.Context, in CreateReplyInput) (*models.Reply, error) {
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxReplyLen {
		return nil, models.NewValidationError("Content too long (max 4000 characters)")
	}

	post, err := s.GetPost(ctx, in.CommunityID, in.PostID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireActiveMember(ctx, in.CommunityID, in.AuthorProfileID); err != nil {
		return nil, err
	}

	depth := 0
	var parent *models.Reply
	if in.InReplyToID != nil {
		parent, err = s.postRepo.GetReply(ctx, *in.InReplyToID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("Reply", *in.InReplyToID)
			}
			return nil, models.NewInternalError(err)
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent reply belongs to a different post")
		}
		depth = parent.Depth + 1
	}

	reply := &models.Reply{
		PostID:          in.PostID,
		AuthorProfileID: in.AuthorProfileID,
		Content:         in.Content,
		InReplyToID:     in.InReplyToID,
		Depth:           depth,
	}
	if err := s.postRepo.CreateReply(ctx, reply); err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.RepliesCreated.WithLabelValues(fmt.Sprint(in.CommunityID)).Inc()

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeReplyCreated,
		CommunityID: in.CommunityID,
		ActorID:     in.AuthorProfileID,
		SubjectID:   reply.ID,
	})

	// Notify the parent-reply author, or the post author for top-level
	// replies. Notify deduplicates self-notifications.
	recipient := post.AuthorProfileID
	if parent != nil {
		recipient = parent.AuthorProfileID
	}
	s.notifications.Notify(ctx, &models.Notification{
		RecipientProfileID: recipient,
		ActorProfileID:     &in.AuthorProfileID,
		Type:               models.NotificationTypeReply,
		CommunityID:        in.CommunityID,
		PostID:             &in.PostID,
		ReplyID:            &reply.ID,
		Body:               fmt.Sprintf("New reply on \"%s\"", truncate(post.Title, 80)),
	})

	s.notifyMentions(ctx, in.CommunityID, in.AuthorProfileID, in.Content, &in.PostID, &reply.ID)
	return reply, nil
}

// ListReplies returns the post's replies as a nested tree. DisplayDepth caps
// nesting for rendering; deeper replies keep their true Depth but display
// flattened at the cap. Deleted replies keep their slot in the tree as
// blanked placeholders so their children stay threaded in place.
func (s *PostService) ListReplies(ctx context.Context, communityID, postID uint) ([]*models.Reply, error) {
	if _, err := s.GetPost(ctx, communityID, postID); err != nil {
		return nil, err
	}
	replies, err := s.postRepo.ListReplies(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, r := range replies {
		if r.DeletedAt.Valid {
			r.Deleted = true
			r.Content = ""
		}
	}
	return buildReplyTree(replies), nil
}

func (s *PostService) DeleteReply(ctx context.Context, communityID, replyID, profileID uint) error {
	reply, err := s.postRepo.GetReply(ctx, replyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Reply", replyID)
		}
		return models.NewInternalError(err)
	}
	if _, err := s.GetPost(ctx, communityID, reply.PostID); err != nil {
		return err
	}
	membership, err := s.profileRepo.GetMembership(ctx, communityID, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewForbiddenError("Not a member of this community")
		}
		return models.NewInternalError(err)
	}
	if reply.AuthorProfileID != profileID && !membership.CanModerate() {
		return models.NewForbiddenError("You can only delete your own replies")
	}
	if err := s.postRepo.DeleteReply(ctx, replyID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// buildReplyTree nests replies under their parents in one pass. Replies are
// ordered oldest-first, so parents always precede children.
func buildReplyTree(replies []*models.Reply) []*models.Reply {
	byID := make(map[uint]*models.Reply, len(replies))
	roots := make([]*models.Reply, 0, len(replies))
	for _, r := range replies {
		r.DisplayDepth = r.Depth
		if r.DisplayDepth > models.MaxDisplayDepth {
			r.DisplayDepth = models.MaxDisplayDepth
		}
		byID[r.ID] = r
		if r.InReplyToID == nil {
			roots = append(roots, r)
			continue
		}
		parent, ok := byID[*r.InReplyToID]
		if !ok {
			// Parent row is gone entirely; surface the orphan at top level.
			roots = append(roots, r)
			continue
		}
		parent.Children = append(parent.Children, r)
	}
	return roots
}

// notifyMentions parses @username references and notifies each mentioned
// profile that exists in the community.
func (s *PostService) notifyMentions(ctx context.Context, communityID, actorProfileID uint, content string, postID, replyID *uint) {
	matches := mentionPattern.FindAllStringSubmatch(content, 20)
	if len(matches) == 0 {
		return
	}

	actor, err := s.profileRepo.GetByID(ctx, actorProfileID)
	if err != nil {
		return
	}

	members, err := s.profileRepo.ListMembers(ctx, communityID, 500, 0)
	if err != nil {
		return
	}

	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		username := m[1]
		if seen[username] {
			continue
		}
		seen[username] = true

		for _, member := range members {
			if member.Profile == nil || member.Profile.Username != username {
				continue
			}
			s.notifications.Notify(ctx, &models.Notification{
				RecipientProfileID: member.ProfileID,
				ActorProfileID:     &actorProfileID,
				Type:               models.NotificationTypeMention,
				CommunityID:        communityID,
				PostID:             postID,
				ReplyID:            replyID,
				Body:               fmt.Sprintf("%s mentioned you", actor.Name),
			})
			break
		}
	}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
