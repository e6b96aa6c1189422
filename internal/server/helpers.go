package server

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"commung/internal/middleware"
	"commung/internal/models"
	"commung/internal/repository"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseCursor decodes the cursor query parameter. An absent cursor decodes to
// the zero cursor, meaning first page.
func parseCursor(c *fiber.Ctx) (repository.Cursor, error) {
	cursor, err := repository.DecodeCursor(c.Query("cursor"))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid cursor"))
		return repository.Cursor{}, errResponseWritten
	}
	return cursor, nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "boardId" -> "board ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// respondData wraps a payload in the standard response envelope.
func respondData(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

// respondPage wraps a keyset-paginated listing. nextCursor is empty when the
// page was short, signalling the end of the listing.
func respondPage(c *fiber.Ctx, data interface{}, nextCursor string, hasMore bool) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data":        data,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

// userID returns the authenticated user's ID set by the auth middleware.
func userID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// actingProfileID returns the acting profile resolved by ActingProfileRequired.
func actingProfileID(c *fiber.Ctx) uint {
	id, _ := c.Locals("profileID").(uint)
	return id
}

// ActingProfileRequired resolves the acting profile from the profile_id query
// parameter and verifies it belongs to the authenticated user and to the
// community in the route. Must run after AuthRequired.
func (s *Server) ActingProfileRequired(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profileID := c.QueryInt("profile_id", 0)
	if profileID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("profile_id query parameter is required"))
	}

	profile, err := s.profileRepo.GetByID(c.UserContext(), uint(profileID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Profile", profileID))
		}
		return models.RespondError(c, models.NewInternalError(err))
	}
	if profile.UserID == nil || *profile.UserID != userID(c) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Profile does not belong to you"))
	}
	if profile.CommunityID != communityID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Profile belongs to a different community"))
	}

	c.Locals("profileID", profile.ID)
	ctx := context.WithValue(c.UserContext(), middleware.ProfileIDKey, profile.ID)
	c.SetUserContext(ctx)
	return c.Next()
}

// consoleAccess resolves the caller's moderating profile in the community.
// The community owner passes even without a moderator profile; in that case
// the returned profile is the owner's profile in the community, which always
// exists because community creation provisions it.
func (s *Server) consoleAccess(c *fiber.Ctx, communityID uint) (*models.Profile, error) {
	community, err := s.communityRepo.GetByID(c.UserContext(), communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", communityID)
		}
		return nil, models.NewInternalError(err)
	}

	profile, err := s.profileRepo.GetByUserAndCommunity(c.UserContext(), userID(c), communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewForbiddenError("Console access requires a moderator role")
		}
		return nil, models.NewInternalError(err)
	}

	if community.OwnerUserID == userID(c) {
		return profile, nil
	}

	membership, err := s.profileRepo.GetMembership(c.UserContext(), communityID, profile.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewForbiddenError("Console access requires a moderator role")
		}
		return nil, models.NewInternalError(err)
	}
	if !membership.CanModerate() {
		return nil, models.NewForbiddenError("Console access requires a moderator role")
	}
	return profile, nil
}

// nextCursor derives the next-page cursor from the last item of a full page.
// A short page means the listing is exhausted.
func nextCursor(pageLen, limit int, createdAt time.Time, id uint) (string, bool) {
	if pageLen == 0 || pageLen < limit {
		return "", false
	}
	return repository.EncodeCursor(repository.Cursor{CreatedAt: createdAt, ID: id}), true
}
