package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/VaibhavChawla151003/youtube-backend/internal/media"
)

const (
	avatarField     = "avatar"
	coverImageField = "coverImage"
)

// stager copies multipart file parts to a local directory so the media
// uploader can work from a path.
type stager struct {
	dir string
}

func newStager(dir string) *stager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &stager{dir: dir}
}

// stage copies the first file of the given form field to disk and returns
// its path. A missing field yields "" and no error.
func (s *stager) stage(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(header.Filename)))
	dst, err := os.CreateTemp(s.dir, field+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return dst.Name(), nil
}

// cleanup removes staged files the uploader did not consume.
func cleanup(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = media.RemoveStaged(p)
		}
	}
}
