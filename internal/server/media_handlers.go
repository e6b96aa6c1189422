package server

import (
	"io"

	"commung/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media. Accepts a multipart form with a
// single "file" field and returns the content-addressed URL.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A file field is required"))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	result, err := s.mediaService.Upload(c.UserContext(), data)
	if err != nil {
		return models.RespondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, result)
}

// ServeMedia handles GET /media/:name
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	path, err := s.mediaService.Open(c.Params("name"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.SendFile(path)
}
