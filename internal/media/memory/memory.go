// Package memory is an Uploader that keeps upload metadata in memory. It is
// used in development and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/VaibhavChawla151003/youtube-backend/internal/media"
)

// fileEntry stores metadata about an uploaded file in memory.
type fileEntry struct {
	Key         string
	ContentType string
	Size        int64
	URL         string
}

// Uploader implements media.Uploader without a storage backend.
type Uploader struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
	prefix  string
	// failWith makes every upload fail; tests use it to simulate an outage.
	failWith error
}

// New creates an in-memory uploader whose URLs start with baseURL.
func New(baseURL string) *Uploader {
	return &Uploader{
		files:   make(map[string]*fileEntry),
		baseURL: baseURL,
		prefix:  "avatars",
	}
}

// FailWith makes subsequent uploads return err. Passing nil restores success.
func (u *Uploader) FailWith(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failWith = err
}

// Upload records the staged file and returns its URL. The staged file is
// removed either way.
func (u *Uploader) Upload(_ context.Context, localPath string) (*media.UploadResult, error) {
	if localPath == "" {
		return nil, media.ErrNoFile
	}
	defer func() { _ = media.RemoveStaged(localPath) }()

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("stat staged file: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.failWith != nil {
		return nil, u.failWith
	}

	key := media.ObjectKey(u.prefix, localPath, time.Now().UTC())
	url := fmt.Sprintf("%s/media/%s", u.baseURL, key)
	u.files[key] = &fileEntry{
		Key:         key,
		ContentType: media.ContentType(localPath),
		Size:        info.Size(),
		URL:         url,
	}

	return &media.UploadResult{Key: key, URL: url}, nil
}

// Count returns the number of stored uploads.
func (u *Uploader) Count() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.files)
}
