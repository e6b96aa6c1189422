package server

import (
	"net/url"

	"commung/internal/models"
	"commung/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/app/communities/:id/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	convs, err := s.chatService.ListConversations(c.UserContext(), communityID, actingProfileID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, convs)
}

// CreateDirectConversation handles POST /api/app/communities/:id/conversations/direct.
// Idempotent: returns the existing conversation for the pair if one exists.
func (s *Server) CreateDirectConversation(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ProfileID uint `json:"profile_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	conv, err := s.chatService.GetOrCreateDirectConversation(
		c.UserContext(), communityID, actingProfileID(c), req.ProfileID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, conv)
}

// CreateGroupConversation handles POST /api/app/communities/:id/conversations/group
func (s *Server) CreateGroupConversation(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name           string `json:"name"`
		ParticipantIDs []uint `json:"participant_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	conv, err := s.chatService.CreateGroupConversation(c.UserContext(), service.CreateGroupInput{
		CommunityID:      communityID,
		CreatorProfileID: actingProfileID(c),
		Name:             req.Name,
		ParticipantIDs:   req.ParticipantIDs,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, conv)
}

// JoinDefaultConversation handles POST /api/app/communities/:id/conversations/default/join
func (s *Server) JoinDefaultConversation(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.chatService.JoinDefaultConversation(c.UserContext(), communityID, actingProfileID(c)); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"joined": true})
}

// AddConversationParticipant handles POST /api/app/communities/:id/conversations/:conversationId/participants
func (s *Server) AddConversationParticipant(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}

	var req struct {
		ProfileID uint `json:"profile_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.chatService.AddGroupParticipant(
		c.UserContext(), conversationID, actingProfileID(c), req.ProfileID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, fiber.Map{"added": true})
}

// LeaveConversation handles DELETE /api/app/communities/:id/conversations/:conversationId/leave
func (s *Server) LeaveConversation(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}
	if err := s.chatService.LeaveConversation(c.UserContext(), conversationID, actingProfileID(c)); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"left": true})
}

// GetMessages handles GET /api/app/communities/:id/conversations/:conversationId/messages.
// Messages come back oldest-first; the cursor pages backwards through history.
func (s *Server) GetMessages(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}
	cursor, err := parseCursor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	messages, err := s.chatService.ListMessages(c.UserContext(), service.ListMessagesInput{
		ConversationID: conversationID,
		ProfileID:      actingProfileID(c),
		Cursor:         cursor,
		Limit:          p.Limit,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	// Oldest-first slice: the next (older) page continues from the head.
	next, more := "", false
	if len(messages) > 0 {
		oldest := messages[0]
		next, more = nextCursor(len(messages), p.Limit, oldest.CreatedAt, oldest.ID)
	}
	return respondPage(c, messages, next, more)
}

// SendMessage handles POST /api/app/communities/:id/conversations/:conversationId/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	message, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		ConversationID:  conversationID,
		SenderProfileID: actingProfileID(c),
		Content:         req.Content,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, message)
}

// MarkConversationRead handles POST /api/app/communities/:id/conversations/:conversationId/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}
	if err := s.chatService.MarkRead(c.UserContext(), conversationID, actingProfileID(c)); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"read": true})
}

// AddReaction handles POST /api/app/communities/:id/conversations/:conversationId/messages/:messageId/reactions
func (s *Server) AddReaction(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}
	messageID, err := s.parseID(c, "messageId")
	if err != nil {
		return nil
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.chatService.AddReaction(
		c.UserContext(), conversationID, messageID, actingProfileID(c), req.Emoji); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, fiber.Map{"reacted": true})
}

// RemoveReaction handles DELETE /api/app/communities/:id/conversations/:conversationId/messages/:messageId/reactions/:emoji
func (s *Server) RemoveReaction(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}
	messageID, err := s.parseID(c, "messageId")
	if err != nil {
		return nil
	}
	// Emoji arrive percent-encoded in the path.
	emoji := c.Params("emoji")
	if decoded, uerr := url.PathUnescape(emoji); uerr == nil {
		emoji = decoded
	}

	if err := s.chatService.RemoveReaction(
		c.UserContext(), conversationID, messageID, actingProfileID(c), emoji); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"removed": true})
}

// GetNotifications handles GET /api/app/communities/:id/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	cursor, err := parseCursor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	notifs, err := s.notificationService.List(c.UserContext(), service.ListNotificationsInput{
		ProfileID:  actingProfileID(c),
		UnreadOnly: c.QueryBool("unread_only", false),
		Cursor:     cursor,
		Limit:      p.Limit,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	next, more := "", false
	if len(notifs) > 0 {
		last := notifs[len(notifs)-1]
		next, more = nextCursor(len(notifs), p.Limit, last.CreatedAt, last.ID)
	}
	return respondPage(c, notifs, next, more)
}

// GetUnreadNotificationCount handles GET /api/app/communities/:id/notifications/unread-count
func (s *Server) GetUnreadNotificationCount(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	count, err := s.notificationService.UnreadCount(c.UserContext(), actingProfileID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"unread": count})
}

// MarkAllNotificationsRead handles POST /api/app/communities/:id/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	if err := s.notificationService.MarkAllRead(c.UserContext(), actingProfileID(c)); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"read": true})
}

// MarkNotificationRead handles POST /api/app/communities/:id/notifications/:notificationId/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	notificationID, err := s.parseID(c, "notificationId")
	if err != nil {
		return nil
	}
	if err := s.notificationService.MarkRead(c.UserContext(), actingProfileID(c), notificationID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"read": true})
}
