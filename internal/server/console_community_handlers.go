package server

import (
	"time"

	"commung/internal/models"
	"commung/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommunity handles POST /api/console/communities
// @Summary Create a community
// @Description Creates a community owned by the caller, provisioning the
// @Description owner profile, a General board, and the default group chat.
// @Tags console
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} object{data=models.Community}
// @Failure 400 {object} object{error=string}
// @Router /console/communities [post]
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	var req struct {
		Name            string     `json:"name"`
		Slug            string     `json:"slug"`
		Description     string     `json:"description"`
		StartsAt        *time.Time `json:"starts_at"`
		EndsAt          *time.Time `json:"ends_at"`
		RecruitOpensAt  *time.Time `json:"recruit_opens_at"`
		RecruitClosesAt *time.Time `json:"recruit_closes_at"`
		CustomDomain    string     `json:"custom_domain"`
		BannerURL       string     `json:"banner_url"`
		Hashtags        string     `json:"hashtags"`
		MinBirthYear    int        `json:"min_birth_year"`
		OwnerName       string     `json:"owner_name"`
		OwnerUsername   string     `json:"owner_username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, err := s.communityService.CreateCommunity(c.UserContext(), service.CreateCommunityInput{
		OwnerUserID:     userID(c),
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		RecruitOpensAt:  req.RecruitOpensAt,
		RecruitClosesAt: req.RecruitClosesAt,
		CustomDomain:    req.CustomDomain,
		BannerURL:       req.BannerURL,
		Hashtags:        req.Hashtags,
		MinBirthYear:    req.MinBirthYear,
		OwnerName:       req.OwnerName,
		OwnerUsername:   req.OwnerUsername,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, community)
}

// GetOwnedCommunities handles GET /api/console/communities
func (s *Server) GetOwnedCommunities(c *fiber.Ctx) error {
	communities, err := s.communityService.ListOwned(c.UserContext(), userID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, communities)
}

// GetConsoleCommunity handles GET /api/console/communities/:id
func (s *Server) GetConsoleCommunity(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	community, err := s.communityService.GetCommunity(c.UserContext(), communityID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, community)
}

// UpdateCommunity handles PUT /api/console/communities/:id. Owner only;
// moderators manage content, not community settings.
func (s *Server) UpdateCommunity(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.requireOwner(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Name            *string    `json:"name"`
		Slug            *string    `json:"slug"`
		Description     *string    `json:"description"`
		StartsAt        *time.Time `json:"starts_at"`
		EndsAt          *time.Time `json:"ends_at"`
		RecruitOpensAt  *time.Time `json:"recruit_opens_at"`
		RecruitClosesAt *time.Time `json:"recruit_closes_at"`
		CustomDomain    *string    `json:"custom_domain"`
		BannerURL       *string    `json:"banner_url"`
		Hashtags        *string    `json:"hashtags"`
		MinBirthYear    *int       `json:"min_birth_year"`
		// Setting status to archived freezes the community read-only;
		// setting it back to active reopens it.
		Status *models.CommunityStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, err := s.communityService.UpdateCommunity(c.UserContext(), service.UpdateCommunityInput{
		CommunityID:     communityID,
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		RecruitOpensAt:  req.RecruitOpensAt,
		RecruitClosesAt: req.RecruitClosesAt,
		CustomDomain:    req.CustomDomain,
		BannerURL:       req.BannerURL,
		Hashtags:        req.Hashtags,
		MinBirthYear:    req.MinBirthYear,
		Status:          req.Status,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, community)
}

// DeleteCommunity handles DELETE /api/console/communities/:id. Owner only;
// removes the community and everything scoped to it.
func (s *Server) DeleteCommunity(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.requireOwner(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	if err := s.communityService.DeleteCommunity(c.UserContext(), communityID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// requireOwner verifies the caller owns the community.
func (s *Server) requireOwner(c *fiber.Ctx, communityID uint) error {
	community, err := s.communityService.GetCommunity(c.UserContext(), communityID)
	if err != nil {
		return err
	}
	if community.OwnerUserID != userID(c) {
		return models.NewForbiddenError("Only the community owner can do this")
	}
	return nil
}

// CreateBoard handles POST /api/console/communities/:id/boards
func (s *Server) CreateBoard(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ReadOnly    bool   `json:"read_only"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	board, err := s.communityService.CreateBoard(c.UserContext(), service.CreateBoardInput{
		CommunityID: communityID,
		Name:        req.Name,
		Description: req.Description,
		ReadOnly:    req.ReadOnly,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, board)
}

// GetConsoleBoards handles GET /api/console/communities/:id/boards
func (s *Server) GetConsoleBoards(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	boards, err := s.communityService.ListBoards(c.UserContext(), communityID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, boards)
}

// ReorderBoards handles PUT /api/console/communities/:id/boards/order
func (s *Server) ReorderBoards(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		BoardIDs []uint `json:"board_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.communityService.ReorderBoards(c.UserContext(), communityID, req.BoardIDs); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"reordered": true})
}

// UpdateBoard handles PUT /api/console/communities/:id/boards/:boardId
func (s *Server) UpdateBoard(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	boardID, err := s.parseID(c, "boardId")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ReadOnly    *bool   `json:"read_only"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	board, err := s.communityService.UpdateBoard(c.UserContext(), service.UpdateBoardInput{
		CommunityID: communityID,
		BoardID:     boardID,
		Name:        req.Name,
		Description: req.Description,
		ReadOnly:    req.ReadOnly,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, board)
}

// DeleteBoard handles DELETE /api/console/communities/:id/boards/:boardId
func (s *Server) DeleteBoard(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	boardID, err := s.parseID(c, "boardId")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	if err := s.communityService.DeleteBoard(c.UserContext(), communityID, boardID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
