// Package media moves user images from the multipart request to the image host.
// Files are staged on local disk first and must never outlive the upload attempt.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"VidTube/core/apperr"
	"VidTube/logger"
)

// StagedFile is an uploaded file written to the staging directory.
type StagedFile struct {
	OriginalName string
	Path         string

	once sync.Once
}

// Remove deletes the local copy. It is safe to call more than once and on nil.
func (f *StagedFile) Remove() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("[Stager] failed to remove staged file",
				logger.String("path", f.Path), logger.ErrorField(err))
		}
	})
}

// RemoveAll removes every non-nil file.
func RemoveAll(files ...*StagedFile) {
	for _, f := range files {
		f.Remove()
	}
}

// Stager writes incoming files into a single directory.
type Stager struct {
	dir      string
	maxBytes int64
}

// NewStager creates dir when needed. maxBytes <= 0 disables the size check.
func NewStager(dir string, maxBytes int64) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", dir, err)
	}
	return &Stager{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// MaxBytes returns the per-file limit, 0 or less when unlimited.
func (s *Stager) MaxBytes() int64 {
	return s.maxBytes
}

// StageHeader stages a multipart file part. A nil header yields (nil, nil).
func (s *Stager) StageHeader(fh *multipart.FileHeader) (*StagedFile, error) {
	if fh == nil {
		return nil, nil
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, tooLarge(fh.Filename, s.maxBytes)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, apperr.Upload(400, "Failed to read uploaded file", err)
	}
	defer src.Close()
	return s.Stage(fh.Filename, src)
}

// Stage copies r into a new file named by a random id plus the original extension,
// so concurrent uploads of equally named files never collide.
func (s *Stager) Stage(originalName string, r io.Reader) (*StagedFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperr.Internal("Failed to stage uploaded file", err)
	}
	staged := &StagedFile{OriginalName: originalName, Path: path}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		staged.Remove()
		return nil, apperr.Internal("Failed to stage uploaded file", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		staged.Remove()
		return nil, tooLarge(originalName, s.maxBytes)
	}
	return staged, nil
}

func tooLarge(name string, max int64) error {
	return apperr.Validation(fmt.Sprintf("File %s exceeds the %d byte limit", filepath.Base(name), max))
}
