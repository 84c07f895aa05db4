package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// LocalBlobStore implements port.BlobStore on the local filesystem. Stored
// files are served under baseURL by the HTTP layer.
type LocalBlobStore struct {
	baseDir string
	baseURL string
	logger  *zap.Logger
	nowNano func() int64
}

// NewLocalBlobStore creates a new LocalBlobStore
func NewLocalBlobStore(baseDir, baseURL string, logger *zap.Logger) *LocalBlobStore {
	return &LocalBlobStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		nowNano: func() int64 { return time.Now().UnixNano() },
	}
}

// Store writes the document under a timestamp-prefixed name and returns its
// retrievable URL
func (s *LocalBlobStore) Store(ctx context.Context, content []byte, filename string) (string, error) {
	name := fmt.Sprintf("%d-%s", s.nowNano(), s.sanitizeName(filename))
	fullPath := filepath.Join(s.baseDir, name)

	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		s.logger.Error("Failed to create storage directory",
			zap.String("dir", s.baseDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	url := s.baseURL + "/" + name
	s.logger.Debug("Document stored",
		zap.String("path", fullPath),
		zap.String("url", url),
		zap.Int("size", len(content)))

	return url, nil
}

// sanitizeName strips path separators and anything else unsafe from an
// uploaded filename
func (s *LocalBlobStore) sanitizeName(filename string) string {
	name := filepath.Base(filename)
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	return name
}

// validatePath checks that the path resolves inside baseDir
func (s *LocalBlobStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes storage directory: %s", fullPath)
	}

	return nil
}

// Verify interface compliance
var _ port.BlobStore = (*LocalBlobStore)(nil)
