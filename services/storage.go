package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thedemonsid/quiz-app/models"
)

const (
	partSuffix      = ".part"
	maxStoredName   = 100
	defaultBaseName = "upload"
)

// FileStorageManager materializes uploads in a transient directory.
// Every key is unique per request, so concurrent uploads never share a path.
type FileStorageManager struct {
	uploadDir string
	logger    *slog.Logger
}

// StoredFile describes an artifact written by Store.
type StoredFile struct {
	Path string
	Key  string
	Size int64
}

// NewFileStorageManager creates a new file storage manager rooted at uploadDir.
func NewFileStorageManager(uploadDir string, logger *slog.Logger) *FileStorageManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorageManager{uploadDir: uploadDir, logger: logger}
}

// Dir returns the directory artifacts are written to.
func (sm *FileStorageManager) Dir() string {
	return sm.uploadDir
}

// Store copies doc into the upload directory. The artifact is fully written
// and synced under a temporary name, then renamed into place.
func (sm *FileStorageManager) Store(ctx context.Context, requestID string, doc models.RawDocument) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(sm.uploadDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create upload directory: %v", ErrStorage, err)
	}

	key := storageKey(requestID, doc.Name)
	finalPath := filepath.Join(sm.uploadDir, key)
	tempPath := finalPath + partSuffix

	src, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", ErrStorage, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", ErrStorage, err)
	}

	written, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("%w: write file: %v", ErrStorage, err)
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("%w: sync file: %v", ErrStorage, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("%w: close temp file: %v", ErrStorage, err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("%w: move file to final location: %v", ErrStorage, err)
	}

	sm.logger.Debug("Stored upload",
		slog.String("request_id", requestID),
		slog.String("key", key),
		slog.Int64("size", written))

	return &StoredFile{Path: finalPath, Key: key, Size: written}, nil
}

// Cleanup removes a file from storage
func (sm *FileStorageManager) Cleanup(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sm.logger.Warn("Failed to cleanup file", slog.String("path", filePath), slog.String("error", err.Error()))
	}
}

// SweepStale removes artifacts and abandoned .part files last modified more
// than olderThan ago. A missing directory is not an error.
func (sm *FileStorageManager) SweepStale(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(sm.uploadDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read upload directory: %v", ErrStorage, err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(sm.uploadDir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			sm.logger.Warn("Failed to remove stale artifact", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	return removed, nil
}

// CheckWritable verifies the upload directory accepts new files.
func (sm *FileStorageManager) CheckWritable() error {
	if err := os.MkdirAll(sm.uploadDir, 0o700); err != nil {
		return fmt.Errorf("%w: create upload directory: %v", ErrStorage, err)
	}
	probe, err := os.CreateTemp(sm.uploadDir, ".probe-*"+partSuffix)
	if err != nil {
		return fmt.Errorf("%w: upload directory not writable: %v", ErrStorage, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

func storageKey(requestID, declaredName string) string {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return sanitizeRequestID(requestID) + "_" + uuid.NewString()[:8] + "_" + sanitizeFilename(declaredName)
}

// sanitizeFilename keeps the base name of a client supplied filename and
// restricts it to [A-Za-z0-9._-].
func sanitizeFilename(name string) string {
	// Clients may send Windows paths regardless of the server OS.
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isSafeNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	safe := strings.TrimLeft(b.String(), ".")
	if len(safe) > maxStoredName {
		safe = safe[:maxStoredName]
	}
	if safe == "" {
		return defaultBaseName
	}
	return safe
}

func sanitizeRequestID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if isSafeNameRune(r) && r != '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || b.Len() > 64 {
		return uuid.NewString()
	}
	return b.String()
}

func isSafeNameRune(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '.' || r == '_' || r == '-'
}
