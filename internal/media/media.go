// Package media uploads staged user images (avatar, cover image) to object
// storage and returns their public URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoFile is returned when Upload is called without a staged file.
var ErrNoFile = errors.New("no file to upload")

// Uploader moves a locally staged file to object storage.
type Uploader interface {
	// Upload stores the file at localPath and returns where it can be fetched.
	// Implementations remove localPath once the attempt is over.
	Upload(ctx context.Context, localPath string) (*UploadResult, error)
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// ObjectKey builds a date-partitioned key such as avatars/2026/1/2/<uuid>.png.
func ObjectKey(prefix, localPath string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	return fmt.Sprintf("%s/%d/%d/%d/%s%s", prefix, now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)
}

// ContentType guesses the MIME type from the file extension.
func ContentType(localPath string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// RemoveStaged deletes a staged file, ignoring files that are already gone.
func RemoveStaged(localPath string) error {
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}
