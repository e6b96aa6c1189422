package server

import (
	"commung/internal/models"
	"commung/internal/service"

	"github.com/gofiber/fiber/v2"
)

// DiscoverCommunities handles GET /api/app/communities. Lists active
// communities that are currently open for recruitment.
func (s *Server) DiscoverCommunities(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	communities, err := s.communityService.ListDiscoverable(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, communities)
}

// GetCommunityBySlug handles GET /api/app/communities/by-slug/:slug
func (s *Server) GetCommunityBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	community, err := s.communityService.GetBySlug(c.UserContext(), slug)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, community)
}

// GetMyProfiles handles GET /api/app/profiles. The profile switcher: every
// community identity the caller holds.
func (s *Server) GetMyProfiles(c *fiber.Ctx) error {
	profiles, err := s.profileRepo.ListByUser(c.UserContext(), userID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, profiles)
}

// UpdateMyProfile handles PUT /api/app/profiles/:profileId. Owner-verified in
// the service; bot profiles are rejected there.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "profileId")
	if err != nil {
		return nil
	}

	var req struct {
		Name       *string `json:"name"`
		Username   *string `json:"username"`
		Bio        *string `json:"bio"`
		PictureURL *string `json:"picture_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.membershipService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:     userID(c),
		ProfileID:  profileID,
		Name:       req.Name,
		Username:   req.Username,
		Bio:        req.Bio,
		PictureURL: req.PictureURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, profile)
}

// GetCommunityHome handles GET /api/app/communities/:id/home. The member
// landing view in one response: the community card, its boards, the member
// count, and the caller's unread notification count.
func (s *Server) GetCommunityHome(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	community, err := s.communityService.GetCommunity(c.UserContext(), communityID)
	if err != nil {
		return models.RespondError(c, err)
	}
	boards, err := s.communityService.ListBoards(c.UserContext(), communityID)
	if err != nil {
		return models.RespondError(c, err)
	}
	members, err := s.communityService.MemberCount(c.UserContext(), communityID)
	if err != nil {
		return models.RespondError(c, err)
	}
	unread, err := s.notificationService.UnreadCount(c.UserContext(), actingProfileID(c))
	if err != nil {
		return models.RespondError(c, err)
	}

	return respondData(c, fiber.StatusOK, fiber.Map{
		"community":    community,
		"boards":       boards,
		"member_count": members,
		"unread":       unread,
	})
}

// GetMyApplications handles GET /api/app/applications
func (s *Server) GetMyApplications(c *fiber.Ctx) error {
	apps, err := s.applicationService.ListMine(c.UserContext(), userID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, apps)
}

// Apply handles POST /api/app/communities/:id/applications
func (s *Server) Apply(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Answer          string `json:"answer"`
		ProfileName     string `json:"profile_name"`
		ProfileUsername string `json:"profile_username"`
		BirthYear       int    `json:"birth_year"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	app, err := s.applicationService.Apply(c.UserContext(), service.ApplyInput{
		UserID:          userID(c),
		CommunityID:     communityID,
		Answer:          req.Answer,
		ProfileName:     req.ProfileName,
		ProfileUsername: req.ProfileUsername,
		BirthYear:       req.BirthYear,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, app)
}

// UpdateMyApplication handles PUT /api/app/applications/:applicationId
func (s *Server) UpdateMyApplication(c *fiber.Ctx) error {
	applicationID, err := s.parseID(c, "applicationId")
	if err != nil {
		return nil
	}

	var req struct {
		Answer      string `json:"answer"`
		ProfileName string `json:"profile_name"`
		Username    string `json:"username"`
		BirthYear   int    `json:"birth_year"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	app, err := s.applicationService.UpdateApplication(c.UserContext(), service.UpdateApplicationInput{
		UserID:        userID(c),
		ApplicationID: applicationID,
		Answer:        req.Answer,
		ProfileName:   req.ProfileName,
		Username:      req.Username,
		BirthYear:     req.BirthYear,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, app)
}

// CancelMyApplication handles DELETE /api/app/applications/:applicationId
func (s *Server) CancelMyApplication(c *fiber.Ctx) error {
	applicationID, err := s.parseID(c, "applicationId")
	if err != nil {
		return nil
	}
	if err := s.applicationService.CancelApplication(c.UserContext(), userID(c), applicationID); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"cancelled": true})
}

// GetTimeline handles GET /api/app/communities/:id/timeline. Newest posts
// across all of the community's boards, keyset paginated.
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	cursor, err := parseCursor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, err := s.postService.Timeline(c.UserContext(), communityID, cursor, p.Limit)
	if err != nil {
		return models.RespondError(c, err)
	}

	next, more := "", false
	if len(posts) > 0 {
		last := posts[len(posts)-1]
		next, more = nextCursor(len(posts), p.Limit, last.CreatedAt, last.ID)
	}
	return respondPage(c, posts, next, more)
}

// GetBoards handles GET /api/app/communities/:id/boards
func (s *Server) GetBoards(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	boards, err := s.communityService.ListBoards(c.UserContext(), communityID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, boards)
}

// GetBoardPosts handles GET /api/app/communities/:id/boards/:boardId/posts.
// Pinned posts lead the first page; cursor pages carry only unpinned posts.
func (s *Server) GetBoardPosts(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	boardID, err := s.parseID(c, "boardId")
	if err != nil {
		return nil
	}
	cursor, err := parseCursor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		CommunityID: communityID,
		BoardID:     boardID,
		Cursor:      cursor,
		Limit:       p.Limit,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	next, more := "", false
	if len(posts) > 0 {
		last := posts[len(posts)-1]
		next, more = nextCursor(len(posts), p.Limit, last.CreatedAt, last.ID)
	}
	return respondPage(c, posts, next, more)
}

// CreatePost handles POST /api/app/communities/:id/boards/:boardId/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
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
		AuthorProfileID: actingProfileID(c),
		Title:           req.Title,
		Content:         req.Content,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, post)
}

// GetPost handles GET /api/app/communities/:id/posts/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), communityID, postID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, post)
}

// UpdatePost handles PUT /api/app/communities/:id/posts/:postId
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		ImageURL *string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		CommunityID: communityID,
		PostID:      postID,
		ProfileID:   actingProfileID(c),
		Title:       req.Title,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, post)
}

// DeletePost handles DELETE /api/app/communities/:id/posts/:postId
func (s *Server) DeletePost(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), communityID, postID, actingProfileID(c)); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// PinPost handles POST /api/app/communities/:id/posts/:postId/pin
func (s *Server) PinPost(c *fiber.Ctx) error {
	return s.setPostPinned(c, true)
}

// UnpinPost handles DELETE /api/app/communities/:id/posts/:postId/pin
func (s *Server) UnpinPost(c *fiber.Ctx) error {
	return s.setPostPinned(c, false)
}

func (s *Server) setPostPinned(c *fiber.Ctx, pinned bool) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.SetPinned(c.UserContext(), communityID, postID, actingProfileID(c), pinned); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"pinned": pinned})
}

// GetReplies handles GET /api/app/communities/:id/posts/:postId/replies.
// Returns the full thread as a tree with display depth capped.
func (s *Server) GetReplies(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	replies, err := s.postService.ListReplies(c.UserContext(), communityID, postID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, replies)
}

// CreateReply handles POST /api/app/communities/:id/posts/:postId/replies
func (s *Server) CreateReply(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		Content     string `json:"content"`
		InReplyToID *uint  `json:"in_reply_to_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	reply, err := s.postService.CreateReply(c.UserContext(), service.CreateReplyInput{
		CommunityID:     communityID,
		PostID:          postID,
		AuthorProfileID: actingProfileID(c),
		Content:         req.Content,
		InReplyToID:     req.InReplyToID,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, reply)
}

// DeleteReply handles DELETE /api/app/communities/:id/replies/:replyId
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	replyID, err := s.parseID(c, "replyId")
	if err != nil {
		return nil
	}
	if err := s.postService.DeleteReply(c.UserContext(), communityID, replyID, actingProfileID(c)); err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
