package server

import (
	"strings"

	"commung/internal/models"
	"commung/internal/service"

	"github.com/gofiber/fiber/v2"
)

// BotTokenRequired authenticates bot API requests with a bearer bot token.
// The verified bot and its profile ID are stored in Locals for the handlers.
func (s *Server) BotTokenRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization header required"))
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid authorization header format"))
	}

	bot, err := s.botService.VerifyToken(c.UserContext(), parts[1])
	if err != nil {
		return models.RespondError(c, err)
	}

	c.Locals("bot", bot)
	c.Locals("botProfileID", bot.ProfileID)
	return c.Next()
}

func currentBot(c *fiber.Ctx) *models.Bot {
	bot, _ := c.Locals("bot").(*models.Bot)
	return bot
}

// GetBotIdentity handles GET /api/bot/me
func (s *Server) GetBotIdentity(c *fiber.Ctx) error {
	return respondData(c, fiber.StatusOK, currentBot(c))
}

// CreateBotPost handles POST /api/bot/boards/:boardId/posts. The bot posts
// under its own profile; board scoping is enforced by the bot's membership.
func (s *Server) CreateBotPost(c *fiber.Ctx) error {
	boardID, err := s.parseID(c, "boardId")
	if err != nil {
		return nil
	}

	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		BoardID:         boardID,
		AuthorProfileID: currentBot(c).ProfileID,
		Title:           req.Title,
		Content:         req.Content,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, post)
}

// SendBotMessage handles POST /api/bot/conversations/:conversationId/messages.
// Bots join group conversations in their community on first send; direct
// conversations stay human-to-human.
func (s *Server) SendBotMessage(c *fiber.Ctx) error {
	conversationID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}
	bot := currentBot(c)

	conv, err := s.chatRepo.GetConversation(c.UserContext(), conversationID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Conversation", conversationID))
	}
	if conv.CommunityID != bot.CommunityID {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Conversation", conversationID))
	}

	isParticipant, err := s.chatRepo.IsParticipant(c.UserContext(), conversationID, bot.ProfileID)
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}
	if !isParticipant {
		if !conv.IsGroup {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Bots cannot join direct conversations"))
		}
		if err := s.chatRepo.AddParticipant(c.UserContext(), conversationID, bot.ProfileID); err != nil {
			return models.RespondError(c, models.NewInternalError(err))
		}
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
		SenderProfileID: bot.ProfileID,
		Content:         req.Content,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, message)
}
