package server

import (
	"time"

	"commung/internal/models"
	"commung/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetApplications handles GET /api/console/communities/:id/applications.
// Filters by the status query parameter, defaulting to pending.
func (s *Server) GetApplications(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	status := models.ApplicationStatus(c.Query("status", string(models.ApplicationStatusPending)))
	switch status {
	case models.ApplicationStatusPending, models.ApplicationStatusApproved, models.ApplicationStatusRejected:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid application status"))
	}

	p := parsePagination(c, 20)
	apps, err := s.applicationService.ListForCommunity(c.UserContext(), communityID, status, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, apps)
}

// ApproveApplication handles POST /api/console/communities/:id/applications/:applicationId/approve
func (s *Server) ApproveApplication(c *fiber.Ctx) error {
	return s.decideApplication(c, true)
}

// RejectApplication handles POST /api/console/communities/:id/applications/:applicationId/reject
func (s *Server) RejectApplication(c *fiber.Ctx) error {
	return s.decideApplication(c, false)
}

func (s *Server) decideApplication(c *fiber.Ctx, approve bool) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	applicationID, err := s.parseID(c, "applicationId")
	if err != nil {
		return nil
	}
	reviewer, err := s.consoleAccess(c, communityID)
	if err != nil {
		return models.RespondError(c, err)
	}

	// Scope check before deciding so a mismatched route cannot mutate an
	// application in another community.
	existing, err := s.appRepo.GetByID(c.UserContext(), applicationID)
	if err != nil || existing.CommunityID != communityID {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Application", applicationID))
	}

	var req struct {
		Note string `json:"note"`
	}
	// Body is optional for decisions without a note.
	_ = c.BodyParser(&req)

	app, err := s.applicationService.Decide(c.UserContext(), service.DecideInput{
		ApplicationID:     applicationID,
		ReviewerProfileID: reviewer.ID,
		Approve:           approve,
		Note:              req.Note,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, app)
}

// GetConsoleMembers handles GET /api/console/communities/:id/members
func (s *Server) GetConsoleMembers(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.consoleAccess(c, communityID); err != nil {
		return models.RespondError(c, err)
	}

	p := parsePagination(c, 50)
	members, err := s.membershipService.ListMembers(c.UserContext(), communityID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, members)
}

// UpdateMemberRole handles PUT /api/console/communities/:id/members/:profileId/role
func (s *Server) UpdateMemberRole(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetProfileID, err := s.parseID(c, "profileId")
	if err != nil {
		return nil
	}
	actor, err := s.consoleAccess(c, communityID)
	if err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Role models.MembershipRole `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	membership, err := s.membershipService.UpdateRole(c.UserContext(), service.UpdateRoleInput{
		CommunityID:     communityID,
		ActorProfileID:  actor.ID,
		TargetProfileID: targetProfileID,
		Role:            req.Role,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, membership)
}

// RemoveMember handles DELETE /api/console/communities/:id/members/:profileId
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetProfileID, err := s.parseID(c, "profileId")
	if err != nil {
		return nil
	}
	actor, err := s.consoleAccess(c, communityID)
	if err != nil {
		return models.RespondError(c, err)
	}

	if err := s.membershipService.RemoveMember(c.UserContext(), communityID, actor.ID, targetProfileID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"removed": true})
}

// MuteMember handles POST /api/console/communities/:id/members/:profileId/mute.
// A null or absent until mutes indefinitely.
func (s *Server) MuteMember(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetProfileID, err := s.parseID(c, "profileId")
	if err != nil {
		return nil
	}
	actor, err := s.consoleAccess(c, communityID)
	if err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Until *time.Time `json:"until"`
	}
	_ = c.BodyParser(&req)

	membership, err := s.membershipService.MuteMember(c.UserContext(), service.MuteInput{
		CommunityID:     communityID,
		ActorProfileID:  actor.ID,
		TargetProfileID: targetProfileID,
		Until:           req.Until,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, membership)
}

// UnmuteMember handles DELETE /api/console/communities/:id/members/:profileId/mute
func (s *Server) UnmuteMember(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetProfileID, err := s.parseID(c, "profileId")
	if err != nil {
		return nil
	}
	actor, err := s.consoleAccess(c, communityID)
	if err != nil {
		return models.RespondError(c, err)
	}

	membership, err := s.membershipService.UnmuteMember(c.UserContext(), communityID, actor.ID, targetProfileID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, membership)
}
