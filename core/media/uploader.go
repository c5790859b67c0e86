package media

import (
	"context"
	"errors"
	"net/http"

	"VidTube/core/apperr"
	"VidTube/logger"
	"VidTube/storage"
)

// Uploader pushes staged files to the image host.
type Uploader struct {
	host storage.ImageHost
}

// NewUploader creates a new Uploader.
func NewUploader(host storage.ImageHost) *Uploader {
	return &Uploader{host: host}
}

// Upload sends f to the image host and returns its public URL. The staged file is
// removed whatever the outcome.
func (u *Uploader) Upload(ctx context.Context, f *StagedFile) (string, error) {
	if f == nil {
		return "", apperr.Upload(http.StatusBadRequest, "No file to upload", nil)
	}
	defer f.Remove()

	asset, err := u.host.Upload(ctx, f.Path)
	if err != nil {
		logger.Error("[Upload] image host rejected file",
			logger.String("file", f.OriginalName), logger.ErrorField(err))
		return "", apperr.Upload(http.StatusInternalServerError, "Error while uploading file", err)
	}
	if asset == nil || asset.URL == "" {
		return "", apperr.Upload(http.StatusInternalServerError, "Error while uploading file",
			errors.New("image host returned no url"))
	}
	logger.Debug("[Upload] stored file",
		logger.String("file", f.OriginalName), logger.String("key", asset.Key))
	return asset.URL, nil
}

// Discard deletes previously uploaded assets. Failures are logged, never returned.
func (u *Uploader) Discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := u.host.Delete(ctx, url); err != nil {
			logger.Warn("[Upload] failed to delete asset", logger.String("url", url), logger.ErrorField(err))
		}
	}
}
