package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"commung/internal/models"
	"commung/internal/observability"
)

const maxUploadBytes = 10 << 20

// allowedMediaTypes maps accepted sniffed content types to file extensions.
var allowedMediaTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaService stores uploaded images on local disk under content-hash
// names, so re-uploads of the same bytes dedupe to one file.
type MediaService struct {
	dir string
}

func NewMediaService(dir string) *MediaService {
	return &MediaService{dir: dir}
}

type UploadResult struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

func (s *MediaService) Upload(ctx context.Context, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, models.NewValidationError("File is empty")
	}
	if len(data) > maxUploadBytes {
		return nil, models.NewValidationError("File too large (max 10MB)")
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedMediaTypes[contentType]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("Unsupported file type %s", contentType))
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, models.NewInternalError(err)
	}

	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:]) + ext
	path := filepath.Join(s.dir, name)

	// Same hash means same bytes; skip the rewrite.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, models.NewInternalError(err)
		}
	} else if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.MediaUploads.WithLabelValues(contentType).Inc()
	return &UploadResult{
		URL:         "/media/" + name,
		ContentType: contentType,
		Size:        len(data),
	}, nil
}

// Open resolves a stored file by name, refusing path traversal.
func (s *MediaService) Open(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", models.NewValidationError("Invalid file name")
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", models.NewNotFoundError("File", name)
		}
		return "", models.NewInternalError(err)
	}
	return path, nil
}
