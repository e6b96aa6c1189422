package server

import (
	"commung/internal/models"
	"commung/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateBot handles POST /api/console/communities/:id/bots
func (s *Server) CreateBot(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	bot, err := s.botService.CreateBot(c.UserContext(), service.CreateBotInput{
		CommunityID:     communityID,
		CreatedByUserID: userID(c),
		Name:            req.Name,
		Username:        req.Username,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, bot)
}

// GetBots handles GET /api/console/communities/:id/bots
func (s *Server) GetBots(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	bots, err := s.botService.ListBots(c.UserContext(), communityID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, bots)
}

// DeleteBot handles DELETE /api/console/communities/:id/bots/:botId
func (s *Server) DeleteBot(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	botID, err := s.parseID(c, "botId")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	if err := s.botService.DeleteBot(c.UserContext(), communityID, botID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// IssueBotToken handles POST /api/console/communities/:id/bots/:botId/tokens.
// The response carries the plaintext token exactly once.
func (s *Server) IssueBotToken(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	botID, err := s.parseID(c, "botId")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	issued, err := s.botService.IssueToken(c.UserContext(), communityID, botID, userID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, issued)
}

// GetBotTokens handles GET /api/console/communities/:id/bots/:botId/tokens
func (s *Server) GetBotTokens(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	botID, err := s.parseID(c, "botId")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	tokens, err := s.botService.ListTokens(c.UserContext(), communityID, botID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, tokens)
}

// RevokeBotToken handles DELETE /api/console/communities/:id/bots/:botId/tokens/:tokenId
func (s *Server) RevokeBotToken(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	botID, err := s.parseID(c, "botId")
	if err != nil {
		return nil
	}
	tokenID, err := s.parseID(c, "tokenId")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	if err := s.botService.RevokeToken(c.UserContext(), communityID, botID, tokenID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"revoked": true})
}
