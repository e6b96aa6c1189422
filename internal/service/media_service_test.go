package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"commung/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestMediaService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("PNG Accepted And Deduped", func(t *testing.T) {
		svc := NewMediaService(t.TempDir())

		first, err := svc.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Equal(t, "image/png", first.ContentType)
		assert.Contains(t, first.URL, ".png")

		// Same bytes land on the same content-hash name.
		second, err := svc.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Equal(t, first.URL, second.URL)
	})

	t.Run("JPEG Accepted", func(t *testing.T) {
		svc := NewMediaService(t.TempDir())
		jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0}, 16)...)

		res, err := svc.Upload(ctx, jpeg)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", res.ContentType)
	})

	t.Run("Text Rejected", func(t *testing.T) {
		svc := NewMediaService(t.TempDir())

		_, err := svc.Upload(ctx, []byte("#!/bin/sh\nrm -rf /"))
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("Empty Rejected", func(t *testing.T) {
		svc := NewMediaService(t.TempDir())

		_, err := svc.Upload(ctx, nil)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("Oversized Rejected", func(t *testing.T) {
		svc := NewMediaService(t.TempDir())
		huge := make([]byte, maxUploadBytes+1)
		copy(huge, pngHeader)

		_, err := svc.Upload(ctx, huge)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})
}

func TestMediaService_Open(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc := NewMediaService(dir)

	res, err := svc.Upload(ctx, pngHeader)
	require.NoError(t, err)
	name := filepath.Base(res.URL)

	path, err := svc.Open(name)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)

	t.Run("Traversal Rejected", func(t *testing.T) {
		_, err := svc.Open("../secrets.txt")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := svc.Open("deadbeef.png")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})
}
