package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commung/internal/events"
	"commung/internal/models"
	"commung/internal/notifications"
	"commung/internal/observability"
	"commung/internal/repository"

	"gorm.io/gorm"
)

const (
	maxMessageLen = 4000
	maxEmojiLen   = 32
)

// ChatService handles direct and group conversations, messages, read state,
// and reactions.
type ChatService struct {
	chatRepo        repository.ChatRepository
	profileRepo     repository.ProfileRepository
	communityRepo   repository.CommunityRepository
	notificationSvc *NotificationService
	notifier        *notifications.Notifier
	publisher       *events.Publisher
	now             func() time.Time
}

func NewChatService(
	chatRepo repository.ChatRepository,
	profileRepo repository.ProfileRepository,
	communityRepo repository.CommunityRepository,
	notificationSvc *NotificationService,
	notifier *notifications.Notifier,
	publisher *events.Publisher,
) *ChatService {
	return &ChatService{
		chatRepo:        chatRepo,
		profileRepo:     profileRepo,
		communityRepo:   communityRepo,
		notificationSvc: notificationSvc,
		notifier:        notifier,
		publisher:       publisher,
		now:             time.Now,
	}
}

func (s *ChatService) requireMember(ctx context.Context, communityID, profileID uint) (*models.Membership, error) {
	membership, err := s.profileRepo.GetMembership(ctx, communityID, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewForbiddenError("Not a member of this community")
		}
		return nil, models.NewInternalError(err)
	}
	return membership, nil
}

// GetOrCreateDirectConversation returns the existing DM between the two
// profiles or creates one. Both profiles must be members of the community.
func (s *ChatService) GetOrCreateDirectConversation(ctx context.Context, communityID, profileID, otherProfileID uint) (*models.Conversation, error) {
	if profileID == otherProfileID {
		return nil, models.NewValidationError("Cannot start a conversation with yourself")
	}
	if _, err := s.requireMember(ctx, communityID, profileID); err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, communityID, otherProfileID); err != nil {
		return nil, err
	}

	conv, err := s.chatRepo.FindDirectConversation(ctx, communityID, profileID, otherProfileID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	conv = &models.Conversation{
		CommunityID:        communityID,
		IsGroup:            false,
		CreatedByProfileID: &profileID,
	}
	if err := s.chatRepo.CreateConversation(ctx, conv); err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, pid := range []uint{profileID, otherProfileID} {
		if err := s.chatRepo.AddParticipant(ctx, conv.ID, pid); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return conv, nil
}

type CreateGroupInput struct {
	CommunityID      uint
	CreatorProfileID uint
	Name             string
	ParticipantIDs   []uint
}

func (s *ChatService) CreateGroupConversation(ctx context.Context, in CreateGroupInput) (*models.Conversation, error) {
	if in.Name == "" {
		return nil, models.NewValidationError("Group name is required")
	}
	if _, err := s.requireMember(ctx, in.CommunityID, in.CreatorProfileID); err != nil {
		return nil, err
	}
	for _, pid := range in.ParticipantIDs {
		if pid == in.CreatorProfileID {
			continue
		}
		if _, err := s.requireMember(ctx, in.CommunityID, pid); err != nil {
			return nil, err
		}
	}

	conv := &models.Conversation{
		CommunityID:        in.CommunityID,
		Name:               in.Name,
		IsGroup:            true,
		CreatedByProfileID: &in.CreatorProfileID,
	}
	if err := s.chatRepo.CreateConversation(ctx, conv); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.chatRepo.AddParticipant(ctx, conv.ID, in.CreatorProfileID); err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, pid := range in.ParticipantIDs {
		if pid == in.CreatorProfileID {
			continue
		}
		if err := s.chatRepo.AddParticipant(ctx, conv.ID, pid); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return conv, nil
}

// AddGroupParticipant lets an existing participant bring another community
// member into a group conversation.
func (s *ChatService) AddGroupParticipant(ctx context.Context, convID, actorProfileID, newProfileID uint) error {
	conv, err := s.getParticipantConversation(ctx, convID, actorProfileID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return models.NewValidationError("Only group conversations accept new participants")
	}
	if _, err := s.requireMember(ctx, conv.CommunityID, newProfileID); err != nil {
		return err
	}
	if err := s.chatRepo.AddParticipant(ctx, convID, newProfileID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// LeaveConversation removes the profile from a group conversation. Direct
// conversations are permanent per pair and cannot be left.
func (s *ChatService) LeaveConversation(ctx context.Context, convID, profileID uint) error {
	conv, err := s.getParticipantConversation(ctx, convID, profileID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return models.NewValidationError("Direct conversations cannot be left")
	}
	if err := s.chatRepo.RemoveParticipant(ctx, convID, profileID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// JoinDefaultConversation adds the profile to the community-wide group chat.
// Approval does this automatically; this covers profiles provisioned before
// the default chat existed.
func (s *ChatService) JoinDefaultConversation(ctx context.Context, communityID, profileID uint) error {
	if _, err := s.requireMember(ctx, communityID, profileID); err != nil {
		return err
	}
	conv, err := s.chatRepo.GetDefaultConversation(ctx, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Default conversation", communityID)
		}
		return models.NewInternalError(err)
	}
	if err := s.chatRepo.AddParticipant(ctx, conv.ID, profileID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *ChatService) ListConversations(ctx context.Context, communityID, profileID uint) ([]*models.Conversation, error) {
	if _, err := s.requireMember(ctx, communityID, profileID); err != nil {
		return nil, err
	}
	conversations, err := s.chatRepo.ListConversations(ctx, communityID, profileID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return conversations, nil
}

func (s *ChatService) getParticipantConversation(ctx context.Context, convID, profileID uint) (*models.Conversation, error) {
	conv, err := s.chatRepo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", convID)
		}
		return nil, models.NewInternalError(err)
	}
	ok, err := s.chatRepo.IsParticipant(ctx, convID, profileID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, models.NewForbiddenError("Not a participant in this conversation")
	}
	return conv, nil
}

type SendMessageInput struct {
	ConversationID  uint
	SenderProfileID uint
	Content         string
	ImageURL        string
}

func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if in.Content == "" && in.ImageURL == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(in.Content) > maxMessageLen {
		return nil, models.NewValidationError("Message too long (max 4000 characters)")
	}

	conv, err := s.getParticipantConversation(ctx, in.ConversationID, in.SenderProfileID)
	if err != nil {
		return nil, err
	}
	if err := requireActiveCommunity(ctx, s.communityRepo, conv.CommunityID); err != nil {
		return nil, err
	}

	membership, err := s.requireMember(ctx, conv.CommunityID, in.SenderProfileID)
	if err != nil {
		return nil, err
	}
	if membership.IsMuted(s.now()) {
		return nil, models.NewForbiddenError("You are muted in this community")
	}

	msg := &models.Message{
		ConversationID:  in.ConversationID,
		SenderProfileID: in.SenderProfileID,
		Content:         in.Content,
		ImageURL:        in.ImageURL,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, models.NewInternalError(err)
	}

	kind := "direct"
	if conv.IsGroup {
		kind = "group"
	}
	observability.MessagesSent.WithLabelValues(kind).Inc()

	// Sending counts as reading up to your own message.
	_ = s.chatRepo.UpdateLastRead(ctx, in.ConversationID, in.SenderProfileID, s.now())

	// Pub/sub wakes pollers; stored notifications cover offline members.
	_ = s.notifier.PublishConversation(ctx, in.ConversationID, fmt.Sprintf(`{"message_id":%d}`, msg.ID))

	sender, senderErr := s.profileRepo.GetByID(ctx, in.SenderProfileID)
	if senderErr == nil {
		for _, p := range conv.Participants {
			if p.ID == in.SenderProfileID {
				continue
			}
			s.notificationSvc.Notify(ctx, &models.Notification{
				RecipientProfileID: p.ID,
				ActorProfileID:     &in.SenderProfileID,
				Type:               models.NotificationTypeMessage,
				CommunityID:        conv.CommunityID,
				ConversationID:     &in.ConversationID,
				Body:               fmt.Sprintf("New message from %s", sender.Name),
			})
		}
	}

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeMessageSent,
		CommunityID: conv.CommunityID,
		ActorID:     in.SenderProfileID,
		SubjectID:   msg.ID,
	})

	return msg, nil
}

type ListMessagesInput struct {
	ConversationID uint
	ProfileID      uint
	Cursor         repository.Cursor
	Limit          int
}

// ListMessages returns messages oldest-first and advances the caller's read
// marker when reading the latest page.
func (s *ChatService) ListMessages(ctx context.Context, in ListMessagesInput) ([]*models.Message, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 50
	}
	if _, err := s.getParticipantConversation(ctx, in.ConversationID, in.ProfileID); err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.ListMessages(ctx, in.ConversationID, in.Cursor, in.Limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// Only the latest page marks the conversation read; paging through
	// history must not clear unread state.
	if in.Cursor.IsZero() {
		_ = s.chatRepo.UpdateLastRead(ctx, in.ConversationID, in.ProfileID, s.now())
	}
	return messages, nil
}

func (s *ChatService) MarkRead(ctx context.Context, convID, profileID uint) error {
	if _, err := s.getParticipantConversation(ctx, convID, profileID); err != nil {
		return err
	}
	if err := s.chatRepo.UpdateLastRead(ctx, convID, profileID, s.now()); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *ChatService) AddReaction(ctx context.Context, convID, messageID, profileID uint, emoji string) error {
	if emoji == "" || len(emoji) > maxEmojiLen {
		return models.NewValidationError("Invalid emoji")
	}
	if _, err := s.getParticipantConversation(ctx, convID, profileID); err != nil {
		return err
	}
	msg, err := s.chatRepo.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Message", messageID)
		}
		return models.NewInternalError(err)
	}
	if msg.ConversationID != convID {
		return models.NewNotFoundError("Message", messageID)
	}
	if err := s.chatRepo.AddReaction(ctx, &models.MessageReaction{
		MessageID: messageID,
		ProfileID: profileID,
		Emoji:     emoji,
	}); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *ChatService) RemoveReaction(ctx context.Context, convID, messageID, profileID uint, emoji string) error {
	if _, err := s.getParticipantConversation(ctx, convID, profileID); err != nil {
		return err
	}
	if err := s.chatRepo.RemoveReaction(ctx, messageID, profileID, emoji); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
